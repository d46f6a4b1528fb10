package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/Veraticus/fraudwatch/internal/cli"
	"github.com/Veraticus/fraudwatch/internal/common"
	"github.com/Veraticus/fraudwatch/internal/model"
	"github.com/Veraticus/fraudwatch/internal/ofx"
	"github.com/spf13/cobra"
)

// batchLimit is the most transactions the service accepts per batch call.
const batchLimit = 100

func (a *app) batchCmd() *cobra.Command {
	var (
		file    string
		ofxFile string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Score many transactions at once",
		Long: `Score a list of transactions. Input is either a JSON array (or a
{"transactions": [...]} document) or an OFX/QFX bank statement.

Statements are converted by transaction type: debits and checks become PAYMENT,
transfers TRANSFER, ATM withdrawals CASH_OUT and credits CASH_IN. Balances are
rebuilt from the statement's closing balance. Inputs larger than 100
transactions are sent in several calls.

Examples:
  fraudwatch batch -f transactions.json
  fraudwatch batch --ofx ~/Downloads/checking.qfx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var (
				inputs []model.TransactionInput
				err    error
			)
			switch {
			case ofxFile != "":
				inputs, err = a.readStatement(ctx, ofxFile)
			case file != "":
				inputs, err = a.readBatch(file)
			default:
				return common.NewUserError("Nothing to score", fmt.Errorf("one of --file or --ofx is required"))
			}
			if err != nil {
				return err
			}

			result, err := a.scoreAll(ctx, inputs)
			if err != nil {
				return err
			}

			if asJSON {
				return a.printJSON(result)
			}
			a.println(cli.RenderBatch(*result))
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "JSON file of transactions, or - for stdin")
	cmd.Flags().StringVar(&ofxFile, "ofx", "", "OFX/QFX statement to import and score")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print raw JSON results")
	cmd.MarkFlagsMutuallyExclusive("file", "ofx")
	return cmd
}

func (a *app) readBatch(path string) ([]model.TransactionInput, error) {
	r, closeFn, err := openInput(path, a.in)
	if err != nil {
		return nil, err
	}
	defer closeFn()
	return model.DecodeTransactions(r)
}

func (a *app) readStatement(ctx context.Context, path string) ([]model.TransactionInput, error) {
	r, closeFn, err := openInput(path, a.in)
	if err != nil {
		return nil, err
	}
	defer closeFn()

	statements, err := ofx.NewParser().ParseFile(ctx, r)
	if err != nil {
		return nil, common.NewUserError("Could not read statement "+filepath.Base(path), err)
	}

	inputs := ofx.Inputs(statements)
	skipped := 0
	for _, s := range statements {
		skipped += s.Skipped
	}
	slog.Info("Imported statement",
		"file", filepath.Base(path),
		"accounts", len(statements),
		"transactions", len(inputs),
		"skipped", skipped)
	return inputs, nil
}

// scoreAll sends inputs in chunks the service accepts and merges the results.
// An empty list still goes through the client so it is rejected the usual way.
func (a *app) scoreAll(ctx context.Context, inputs []model.TransactionInput) (*model.BatchPredictionResult, error) {
	if len(inputs) <= batchLimit {
		var result *model.BatchPredictionResult
		err := a.waitFor(fmt.Sprintf("Scoring %d transactions...", len(inputs)), func() error {
			var berr error
			result, berr = a.scorer.PredictBatch(ctx, inputs)
			return berr
		})
		return result, err
	}

	prompter := cli.NewPrompter(a.in, a.errOut)
	prompter.StartProgress(len(inputs))
	defer prompter.FinishProgress()

	unsubscribe := a.monitor.Subscribe(func(s availability.Status) {
		if s == availability.StatusSleeping {
			prompter.DescribeProgress(coldStartHint)
		}
	})
	defer unsubscribe()

	merged := &model.BatchPredictionResult{}
	for i, chunk := range ofx.Chunk(inputs, batchLimit) {
		result, err := a.scorer.PredictBatch(ctx, chunk)
		if err != nil {
			return nil, fmt.Errorf("batch %d of %d: %w", i+1, (len(inputs)+batchLimit-1)/batchLimit, err)
		}
		merged.Predictions = append(merged.Predictions, result.Predictions...)
		merged.TotalTransactions += result.TotalTransactions
		merged.FraudDetected += result.FraudDetected
		merged.HighRiskCount += result.HighRiskCount
		prompter.Advance(len(chunk))
	}
	return merged, nil
}
