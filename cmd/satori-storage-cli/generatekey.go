package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/satori-nvr/satori/internal/storage/encryption"
)

func newGenerateKeyCommand() *cobra.Command {
	var eventPublicOut, eventPrivateOut string
	var segmentPublicOut, segmentPrivateOut string
	cmd := &cobra.Command{
		Use:   "generate-key",
		Short: "Generate fresh event and segment archive encryption key pairs",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := writeKeyPair(eventPublicOut, eventPrivateOut); err != nil {
				return fmt.Errorf("generating event key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", eventPublicOut, eventPrivateOut)

			if err := writeKeyPair(segmentPublicOut, segmentPrivateOut); err != nil {
				return fmt.Errorf("generating segment key: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s and %s\n", segmentPublicOut, segmentPrivateOut)

			return nil
		},
	}
	cmd.Flags().StringVar(&eventPublicOut, "event-public-out", "satori-event-public.pem", "path to write the event public key")
	cmd.Flags().StringVar(&eventPrivateOut, "event-private-out", "satori-event-private.pem", "path to write the event private key (contains both halves)")
	cmd.Flags().StringVar(&segmentPublicOut, "segment-public-out", "satori-segment-public.pem", "path to write the segment public key")
	cmd.Flags().StringVar(&segmentPrivateOut, "segment-private-out", "satori-segment-private.pem", "path to write the segment private key (contains both halves)")
	return cmd
}

func writeKeyPair(publicOut, privateOut string) error {
	key, err := encryption.Generate()
	if err != nil {
		return err
	}

	if err := os.WriteFile(publicOut, key.EncodePublicPEM(), 0o644); err != nil {
		return err
	}

	privatePEM, err := key.EncodePrivatePEM()
	if err != nil {
		return err
	}
	return os.WriteFile(privateOut, privatePEM, 0o600)
}
