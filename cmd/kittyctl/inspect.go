package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kittycore/internal/core"
	"kittycore/pkg/domain"
)

type kittyView struct {
	ID     domain.KittyID   `json:"id"`
	Genome domain.Genome    `json:"genome"`
	Owner  domain.AccountID `json:"owner"`
	Price  *domain.Balance  `json:"price,omitempty"`
}

type ownerView struct {
	Owner   domain.AccountID `json:"owner"`
	Count   int              `json:"count"`
	Kitties []domain.KittyID `json:"kitties"`
}

func newInspectCmd() *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "inspect [kitty-id]",
		Short: "Show a kitty, an owner's enumeration, or registry totals",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			switch {
			case len(args) == 1:
				view, err := describeKitty(svc, args[0])
				if err != nil {
					return err
				}
				return enc.Encode(view)
			case owner != "":
				account := domain.AccountID(owner)
				kitties := svc.OwnedKitties(account)
				if kitties == nil {
					kitties = []domain.KittyID{}
				}
				return enc.Encode(ownerView{Owner: account, Count: len(kitties), Kitties: kitties})
			default:
				return enc.Encode(map[string]any{"kitties": svc.KittiesCount()})
			}
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "list the kitties owned by this account")
	return cmd
}

func describeKitty(svc *core.Service, arg string) (kittyView, error) {
	n, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return kittyView{}, fmt.Errorf("kitty id %q: %w", arg, err)
	}
	id := domain.KittyID(n)
	kitty, ok := svc.Kitty(id)
	if !ok {
		return kittyView{}, domain.Reject("inspect", id, domain.ErrNotFound)
	}
	owner, _ := svc.OwnerOf(id)
	view := kittyView{ID: id, Genome: kitty.Genome, Owner: owner}
	if price, listed := svc.Price(id); listed {
		view.Price = &price
	}
	return view, nil
}
