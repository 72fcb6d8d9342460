package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"kittycore/internal/archive"
)

func newExportCmd() *cobra.Command {
	var block uint64
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Archive the current registry state to the configured blob store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			src, ok := rt.store.(archive.Exporter)
			if !ok {
				return fmt.Errorf("%s store cannot be exported", rt.cfg.Storage.Driver)
			}
			arc, err := rt.archive(ctx)
			if err != nil {
				return err
			}
			info, err := arc.Export(ctx, src, block)
			if err != nil {
				return err
			}
			rt.logger.Info("snapshot archived", "key", info.Key, "size", info.Size)
			return json.NewEncoder(cmd.OutOrStdout()).Encode(info)
		},
	}
	cmd.Flags().Uint64Var(&block, "block", 0, "block number the snapshot is taken at")
	return cmd
}

func newImportCmd() *cobra.Command {
	var (
		block  uint64
		latest bool
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace the registry state with an archived snapshot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			dst, ok := rt.store.(archive.Importer)
			if !ok {
				return fmt.Errorf("%s store cannot import snapshots", rt.cfg.Storage.Driver)
			}
			arc, err := rt.archive(ctx)
			if err != nil {
				return err
			}
			key := archive.Key(block)
			if latest || !cmd.Flags().Changed("block") {
				if key, err = arc.Latest(ctx); err != nil {
					return err
				}
			}
			doc, err := arc.Restore(ctx, key, dst)
			if err != nil {
				return err
			}
			rt.logger.Info("snapshot restored", "key", key, "block", doc.Block)
			fmt.Fprintf(cmd.OutOrStdout(), "restored block %d (%d kitties) from %s\n", doc.Block, doc.Snapshot.NextID, key)
			return nil
		},
	}
	cmd.Flags().Uint64Var(&block, "block", 0, "block number to restore")
	cmd.Flags().BoolVar(&latest, "latest", false, "restore the highest archived block (default when --block is unset)")
	return cmd
}
