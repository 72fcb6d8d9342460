package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"kittycore/internal/core"
	"kittycore/internal/ledger"
	"kittycore/pkg/domain"
)

type receiptLine struct {
	Block   uint64           `json:"block"`
	Index   uint32           `json:"index"`
	Caller  domain.AccountID `json:"caller,omitempty"`
	Call    core.CallKind    `json:"call"`
	KittyID domain.KittyID   `json:"kitty_id"`
	Events  []domain.Event   `json:"events,omitempty"`
	Error   string           `json:"error,omitempty"`
}

type replaySummary struct {
	Applied  int                                 `json:"applied"`
	Rejected int                                 `json:"rejected"`
	Kitties  domain.KittyID                      `json:"kitties"`
	Balances map[domain.AccountID]domain.Balance `json:"balances"`
}

func newReplayCmd() *cobra.Command {
	var failOnReject bool
	cmd := &cobra.Command{
		Use:   "replay <scenario.yaml>",
		Short: "Apply a scenario of blocks and calls, printing one JSON receipt per call",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := loadScenario(args[0])
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rt, err := openRuntime(ctx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() { _ = rt.Close(ctx) }()

			ed := domain.Balance(rt.cfg.Ledger.ExistentialDeposit)
			if sc.ExistentialDeposit != nil {
				ed = *sc.ExistentialDeposit
			}
			funds := ledger.New(ed)
			accounts := make([]domain.AccountID, 0, len(sc.Balances))
			for account := range sc.Balances {
				accounts = append(accounts, account)
			}
			sort.Slice(accounts, func(i, j int) bool { return accounts[i] < accounts[j] })
			for _, account := range accounts {
				if err := funds.Deposit(account, sc.Balances[account]); err != nil {
					return fmt.Errorf("fund %s: %w", account, err)
				}
			}

			opts := []core.Option{core.WithCurrencyLedger(funds)}
			seed, err := sc.seed()
			if err != nil {
				return err
			}
			if seed != nil {
				opts = append(opts, core.WithRandomnessSource(core.ChainSeed{Genesis: seed}))
			}
			svc, err := rt.service(opts...)
			if err != nil {
				return err
			}
			dispatcher := core.NewDispatcher(svc, nil)

			enc := json.NewEncoder(cmd.OutOrStdout())
			summary := replaySummary{}
			for _, block := range sc.Blocks {
				dispatcher.BeginBlock(block.Number)
				for _, req := range block.Calls {
					receipt := dispatcher.Dispatch(ctx, req)
					line := receiptLine{
						Block:   receipt.Call.Block,
						Index:   receipt.Call.Index,
						Caller:  receipt.Call.Caller,
						Call:    req.Call,
						KittyID: receipt.KittyID,
						Events:  receipt.Events,
					}
					if receipt.Err != nil {
						line.Error = receipt.Err.Error()
						summary.Rejected++
					} else {
						summary.Applied++
					}
					if err := enc.Encode(line); err != nil {
						return err
					}
				}
			}

			summary.Kitties = svc.KittiesCount()
			summary.Balances = make(map[domain.AccountID]domain.Balance)
			for _, account := range funds.Accounts() {
				summary.Balances[account] = funds.Balance(account)
			}
			if err := enc.Encode(summary); err != nil {
				return err
			}
			if failOnReject && summary.Rejected > 0 {
				return fmt.Errorf("%d calls rejected", summary.Rejected)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&failOnReject, "strict", false, "exit non-zero when any call is rejected")
	return cmd
}
