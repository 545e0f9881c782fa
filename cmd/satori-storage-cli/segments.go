package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newListCamerasCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "list-cameras",
		Short: "List every camera with at least one archived segment",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.openProvider(cmd.Context())
			if err != nil {
				return err
			}
			cameras, err := p.ListCameras(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range cameras {
				fmt.Fprintln(cmd.OutOrStdout(), c)
			}
			return nil
		},
	}
}

func newListSegmentsCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "list-segments <camera>",
		Short: "List a camera's archived segment filenames",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.openProvider(cmd.Context())
			if err != nil {
				return err
			}
			segments, err := p.ListSegments(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			for _, s := range segments {
				fmt.Fprintln(cmd.OutOrStdout(), s)
			}
			return nil
		},
	}
}

func newGetSegmentCommand(env *cliEnv) *cobra.Command {
	var outPath string
	cmd := &cobra.Command{
		Use:   "get-segment <camera> <filename>",
		Short: "Write an archived segment's video bytes to a file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.openProvider(cmd.Context())
			if err != nil {
				return err
			}
			data, err := p.GetSegment(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if outPath == "" {
				outPath = args[1]
			}
			return os.WriteFile(outPath, data, 0o644)
		},
	}
	cmd.Flags().StringVar(&outPath, "out", "", "output path (default: the segment's own filename)")
	return cmd
}

func newDeleteSegmentCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-segment <camera> <filename>",
		Short: "Delete an archived segment",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.openProvider(cmd.Context())
			if err != nil {
				return err
			}
			return p.DeleteSegment(cmd.Context(), args[0], args[1])
		},
	}
}
