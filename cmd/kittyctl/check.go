package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify ownership and listing invariants over the whole registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()
			svc, err := rt.service()
			if err != nil {
				return err
			}

			res, err := svc.VerifyState(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, v := range res.Violations {
				fmt.Fprintf(out, "%s\t%s\tkitty %d\t%s\n", v.Severity, v.Rule, v.KittyID, v.Message)
			}
			if res.HasBlocking() {
				return fmt.Errorf("%d invariant violations", len(res.Violations))
			}
			fmt.Fprintf(out, "ok: %d kitties verified\n", svc.KittiesCount())
			return nil
		},
	}
}
