package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/satori-nvr/satori/internal/storage/workflows"
)

func newExportVideoCommand(env *cliEnv) *cobra.Command {
	var camera, outPath string
	cmd := &cobra.Command{
		Use:   "export-video <event-filename>",
		Short: "Export one camera's recorded segments for an event as a single video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.openProvider(cmd.Context())
			if err != nil {
				return err
			}
			ev, err := p.GetEvent(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			data, err := workflows.ExportEventVideo(cmd.Context(), p, ev, camera)
			if err != nil {
				return err
			}

			if outPath == "" {
				outPath = workflows.GenerateVideoFilename(ev, camera)
			}
			return os.WriteFile(outPath, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&camera, "camera", "", "camera to export (required unless the event references exactly one)")
	cmd.Flags().StringVar(&outPath, "out", "", "output path (default: a generated filename)")
	return cmd
}

func newPruneEventsCommand(env *cliEnv) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "prune-events",
		Short: "Delete archived events whose span ended more than --ttl ago",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.openProvider(cmd.Context())
			if err != nil {
				return err
			}

			report, err := workflows.PruneEventsOlderThan(cmd.Context(), p, ttl, time.Now())
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d event(s), skipped %d\n", len(report.Deleted), len(report.Skipped))
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 30*24*time.Hour, "age past an event's end time before it is pruned")
	return cmd
}

func newPruneSegmentsCommand(env *cliEnv) *cobra.Command {
	root := &cobra.Command{
		Use:   "prune-segments",
		Short: "Two-phase sweep for segments no archived event references",
	}

	var reportPath string
	calc := &cobra.Command{
		Use:   "calculate",
		Short: "Compute the unreferenced-segments report and write it to --report",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.openProvider(cmd.Context())
			if err != nil {
				return err
			}
			report, err := workflows.CalculateUnreferencedSegments(cmd.Context(), p)
			if err != nil {
				return err
			}
			if err := report.Save(reportPath); err != nil {
				return err
			}

			total := 0
			for _, segs := range report.ByCamera {
				total += len(segs)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d unreferenced segment(s) across %d camera(s), written to %s\n", total, len(report.ByCamera), reportPath)
			return nil
		},
	}
	calc.Flags().StringVar(&reportPath, "report", "unreferenced-segments.toml", "path to write the report")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Delete the segments named in a report produced by calculate",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.openProvider(cmd.Context())
			if err != nil {
				return err
			}
			report, err := workflows.LoadUnreferencedSegments(reportPath)
			if err != nil {
				return err
			}
			return workflows.DeleteUnreferencedSegments(cmd.Context(), p, report)
		},
	}
	del.Flags().StringVar(&reportPath, "report", "unreferenced-segments.toml", "path to the report to act on")

	root.AddCommand(calc, del)
	return root
}
