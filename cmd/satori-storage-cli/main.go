// Command satori-storage-cli is the operator tool for inspecting and
// maintaining the archive store directly: listing and fetching events and
// segments, exporting playable video, and running the prune workflows.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var storeURL string
	var eventPublicKeyPath, eventPrivateKeyPath string
	var segmentPublicKeyPath, segmentPrivateKeyPath string

	root := &cobra.Command{
		Use:   "satori-storage-cli",
		Short: "Inspect and maintain the Satori archive store",
	}
	root.PersistentFlags().StringVar(&storeURL, "store-url", "", "archive store backend URL (memory://, file://path, s3://bucket/prefix)")
	root.PersistentFlags().StringVar(&eventPublicKeyPath, "event-public-key", "", "path to the event encryption public key PEM")
	root.PersistentFlags().StringVar(&eventPrivateKeyPath, "event-private-key", "", "path to the event encryption private key PEM (required to read archived events)")
	root.PersistentFlags().StringVar(&segmentPublicKeyPath, "segment-public-key", "", "path to the segment encryption public key PEM")
	root.PersistentFlags().StringVar(&segmentPrivateKeyPath, "segment-private-key", "", "path to the segment encryption private key PEM (required to read archived segments)")
	root.MarkPersistentFlagRequired("store-url")

	env := &cliEnv{
		storeURL:              &storeURL,
		eventPublicKeyPath:    &eventPublicKeyPath,
		eventPrivateKeyPath:   &eventPrivateKeyPath,
		segmentPublicKeyPath:  &segmentPublicKeyPath,
		segmentPrivateKeyPath: &segmentPrivateKeyPath,
	}

	root.AddCommand(
		newListEventsCommand(env),
		newGetEventCommand(env),
		newDeleteEventCommand(env),
		newListCamerasCommand(env),
		newListSegmentsCommand(env),
		newGetSegmentCommand(env),
		newDeleteSegmentCommand(env),
		newExportVideoCommand(env),
		newPruneEventsCommand(env),
		newPruneSegmentsCommand(env),
		newGenerateKeyCommand(),
	)

	return root
}

// cliEnv carries the resolved persistent flags down to each subcommand's
// RunE without every command needing its own copy of the flag wiring.
type cliEnv struct {
	storeURL              *string
	eventPublicKeyPath    *string
	eventPrivateKeyPath   *string
	segmentPublicKeyPath  *string
	segmentPrivateKeyPath *string
}
