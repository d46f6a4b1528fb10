package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Veraticus/fraudwatch/internal/common"
	"github.com/Veraticus/fraudwatch/internal/config"
	"github.com/Veraticus/fraudwatch/internal/model"
	"github.com/spf13/cobra"
)

// inputFlags collects a single transaction from flags, a sample or a file.
type inputFlags struct {
	sample         string
	file           string
	txType         string
	amount         float64
	oldBalanceOrg  float64
	newBalanceOrig float64
	oldBalanceDest float64
	newBalanceDest float64
	step           int
}

// fieldFlags maps each transaction field to its flag name.
var fieldFlags = []struct{ field, flag string }{
	{"step", "step"},
	{"type", "type"},
	{"amount", "amount"},
	{"oldbalanceOrg", "old-balance-org"},
	{"newbalanceOrig", "new-balance-orig"},
	{"oldbalanceDest", "old-balance-dest"},
	{"newbalanceDest", "new-balance-dest"},
}

func (f *inputFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.sample, "sample", "", fmt.Sprintf("start from a sample transaction (%s)", strings.Join(model.SampleNames(), ", ")))
	flags.StringVarP(&f.file, "file", "f", "", "read the transaction as JSON from a file, or - for stdin")
	flags.IntVar(&f.step, "step", 0, "hour of the simulation the transaction belongs to (1 or more)")
	flags.StringVar(&f.txType, "type", "", "transaction type (CASH_IN, CASH_OUT, DEBIT, PAYMENT, TRANSFER)")
	flags.Float64Var(&f.amount, "amount", 0, "transaction amount")
	flags.Float64Var(&f.oldBalanceOrg, "old-balance-org", 0, "origin balance before the transaction")
	flags.Float64Var(&f.newBalanceOrig, "new-balance-orig", 0, "origin balance after the transaction")
	flags.Float64Var(&f.oldBalanceDest, "old-balance-dest", 0, "destination balance before the transaction")
	flags.Float64Var(&f.newBalanceDest, "new-balance-dest", 0, "destination balance after the transaction")
	cmd.MarkFlagsMutuallyExclusive("sample", "file")
}

// resolve builds the transaction. A sample may be adjusted with field flags;
// without one every field flag is required.
func (f *inputFlags) resolve(cmd *cobra.Command, stdin io.Reader) (model.TransactionInput, error) {
	if f.file != "" {
		return readTransaction(f.file, stdin)
	}

	var input model.TransactionInput
	if f.sample != "" {
		sample, err := model.Sample(f.sample)
		if err != nil {
			return input, common.NewUserError("Unknown sample", err)
		}
		input = sample
	} else {
		var problems []model.FieldProblem
		for _, ff := range fieldFlags {
			if !cmd.Flags().Changed(ff.flag) {
				problems = append(problems, model.FieldProblem{
					Field:   ff.field,
					Message: fmt.Sprintf("%s is required (--%s)", ff.field, ff.flag),
				})
			}
		}
		if len(problems) > 0 {
			return input, &model.ValidationError{Problems: problems}
		}
	}

	changed := cmd.Flags().Changed
	if changed("step") {
		input.Step = f.step
	}
	if changed("type") {
		input.Type = model.TransactionType(strings.ToUpper(strings.TrimSpace(f.txType)))
	}
	if changed("amount") {
		input.Amount = f.amount
	}
	if changed("old-balance-org") {
		input.OldBalanceOrg = f.oldBalanceOrg
	}
	if changed("new-balance-orig") {
		input.NewBalanceOrig = f.newBalanceOrig
	}
	if changed("old-balance-dest") {
		input.OldBalanceDest = f.oldBalanceDest
	}
	if changed("new-balance-dest") {
		input.NewBalanceDest = f.newBalanceDest
	}
	return input, nil
}

func readTransaction(path string, stdin io.Reader) (model.TransactionInput, error) {
	r, closeFn, err := openInput(path, stdin)
	if err != nil {
		return model.TransactionInput{}, err
	}
	defer closeFn()
	return model.DecodeTransaction(r)
}

// openInput opens path, treating "-" as stdin.
func openInput(path string, stdin io.Reader) (io.Reader, func(), error) {
	if path == "-" {
		return stdin, func() {}, nil
	}
	f, err := os.Open(config.ExpandPath(path))
	if err != nil {
		return nil, nil, common.NewUserError("Could not open "+path, err)
	}
	return f, func() { _ = f.Close() }, nil
}
