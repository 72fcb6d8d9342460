package main

import (
	"io"

	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "kittyctl",
		Short:         "Operate a kittycore registry",
		Long:          "kittyctl replays call scenarios against a kittycore registry, inspects kitties and owners, verifies invariants and archives snapshots. Settings come from KITTYCORE_* environment variables.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	root.AddCommand(
		newReplayCmd(),
		newInspectCmd(),
		newCheckCmd(),
		newExportCmd(),
		newImportCmd(),
	)
	return root
}
