package main

import (
	"context"
	"log/slog"

	"github.com/Veraticus/fraudwatch/internal/cli"
	"github.com/Veraticus/fraudwatch/internal/model"
	"github.com/spf13/cobra"
)

func (a *app) predictCmd() *cobra.Command {
	var (
		input   inputFlags
		approve bool
		yes     bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Score a single transaction",
		Long: `Score a single transaction and show the risk verdict.

The first request after the service has been idle may take up to two minutes
while it wakes up; a timed out request is retried once.

Examples:
  # Try the suspicious sample
  fraudwatch predict --sample suspicious

  # Score a transfer given on the command line
  fraudwatch predict --step 1 --type TRANSFER --amount 9000 \
    --old-balance-org 9000 --new-balance-orig 0 \
    --old-balance-dest 0 --new-balance-dest 0

  # Score a JSON document and approve it afterwards
  fraudwatch predict -f txn.json --approve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tx, err := input.resolve(cmd, a.in)
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			stop := a.wakeUp(ctx)
			var result *model.PredictionResult
			err = a.waitFor("Scoring transaction...", func() error {
				var perr error
				result, perr = a.scorer.PredictSingle(ctx, tx)
				return perr
			})
			stop()
			if err != nil {
				return err
			}

			if asJSON {
				if err := a.printJSON(result); err != nil {
					return err
				}
			} else {
				a.println(cli.RenderPrediction(*result, a.thresholds(ctx)))
			}

			if !approve {
				return nil
			}
			if !yes {
				ok, err := cli.NewPrompter(a.in, a.errOut).Confirm(ctx, "Approve this transaction?", false)
				if err != nil {
					return err
				}
				if !ok {
					a.println(cli.FormatInfo("Transaction not approved"))
					return nil
				}
			}
			return a.approve(ctx, tx, asJSON)
		},
	}

	input.register(cmd)
	cmd.Flags().BoolVar(&approve, "approve", false, "approve the transaction after scoring it")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "approve without asking")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON results")
	return cmd
}

func (a *app) approveCmd() *cobra.Command {
	var (
		input  inputFlags
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "approve",
		Short: "Manually approve a transaction",
		Long: `Record a manual approval for a transaction regardless of its risk score.

Examples:
  fraudwatch approve --sample legitimate
  fraudwatch approve -f txn.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tx, err := input.resolve(cmd, a.in)
			if err != nil {
				return err
			}
			return a.approve(cmd.Context(), tx, asJSON)
		},
	}

	input.register(cmd)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON results")
	return cmd
}

func (a *app) approve(ctx context.Context, tx model.TransactionInput, asJSON bool) error {
	var result *model.ApprovalResult
	err := a.waitFor("Approving transaction...", func() error {
		var aerr error
		result, aerr = a.scorer.Approve(ctx, tx)
		return aerr
	})
	if err != nil {
		return err
	}

	if asJSON {
		return a.printJSON(result)
	}
	a.println(cli.RenderApproval(*result))
	return nil
}

// thresholds fetches the deployed model's risk thresholds. The verdict is
// still shown when they cannot be fetched.
func (a *app) thresholds(ctx context.Context) *model.RiskThresholds {
	info, err := a.scorer.FetchModelInfo(ctx)
	if err != nil {
		slog.Debug("Could not fetch model thresholds", "error", err)
		return nil
	}
	t := info.Thresholds()
	return &t
}
