package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newListEventsCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "list-events",
		Short: "List every archived event's filename",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.openProvider(cmd.Context())
			if err != nil {
				return err
			}
			filenames, err := p.ListEvents(cmd.Context())
			if err != nil {
				return err
			}
			for _, f := range filenames {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
}

func newGetEventCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "get-event <filename>",
		Short: "Print an archived event as JSON",
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
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(ev)
		},
	}
}

func newDeleteEventCommand(env *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-event <filename>",
		Short: "Delete an archived event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := env.openProvider(cmd.Context())
			if err != nil {
				return err
			}
			return p.DeleteEvent(cmd.Context(), args[0])
		},
	}
}
