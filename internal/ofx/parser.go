// Package ofx converts OFX/QFX bank statements into transactions the scoring
// service can evaluate.
package ofx

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/fraudwatch/internal/model"
	"github.com/aclindsa/ofxgo"
)

var (
	severityRegex = regexp.MustCompile(`(?i)<SEVERITY>(Info|Warn|Error)</SEVERITY>`)
	// Opening tags at end of line that lost their closing bracket.
	tagFixRegex = regexp.MustCompile(`(?m)^(\s*<[A-Z][A-Z0-9._]*[A-Z0-9])$`)
)

// Entry is one statement line converted for scoring.
type Entry struct {
	Posted      time.Time
	ID          string
	Description string
	Input       model.TransactionInput
}

// Statement holds the converted entries of one account, oldest first.
type Statement struct {
	AccountID string
	Entries   []Entry
	// Skipped counts lines that could not be scored, such as zero amounts.
	Skipped int
}

// Parser implements OFX/QFX file parsing.
type Parser struct{}

// NewParser creates a new OFX parser.
func NewParser() *Parser {
	return &Parser{}
}

// preprocessOFX fixes common formatting issues in OFX files.
func (p *Parser) preprocessOFX(content string) string {
	content = strings.TrimLeft(content, " \t\r\n")

	// SEVERITY must be INFO, WARN or ERROR.
	content = severityRegex.ReplaceAllStringFunc(content, strings.ToUpper)

	return tagFixRegex.ReplaceAllString(content, "$1>")
}

// ParseFile parses an OFX/QFX file into one statement per account.
func (p *Parser) ParseFile(ctx context.Context, reader io.Reader) ([]Statement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read OFX file: %w", err)
	}

	resp, err := ofxgo.ParseResponse(strings.NewReader(p.preprocessOFX(string(content))))
	if err != nil {
		return nil, fmt.Errorf("failed to parse OFX file: %w", err)
	}

	var statements []Statement

	for _, msg := range resp.Bank {
		stmt, ok := msg.(*ofxgo.StatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		statements = append(statements,
			p.convertStatement(string(stmt.BankAcctFrom.AcctID), stmt.BankTranList.Transactions, &stmt.BalAmt.Rat))
	}

	for _, msg := range resp.CreditCard {
		stmt, ok := msg.(*ofxgo.CCStatementResponse)
		if !ok || stmt.BankTranList == nil {
			continue
		}
		statements = append(statements,
			p.convertStatement(string(stmt.CCAcctFrom.AcctID), stmt.BankTranList.Transactions, &stmt.BalAmt.Rat))
	}

	total := 0
	for _, s := range statements {
		total += len(s.Entries)
	}
	slog.Info("Parsed OFX file",
		"statements", len(statements),
		"total_transactions", total)

	return statements, nil
}

// convertStatement rebuilds the running balance backwards from the closing
// balance and maps every line onto a scoring input. Steps count hours since
// the first posting, starting at 1.
func (p *Parser) convertStatement(accountID string, txns []ofxgo.Transaction, closing *big.Rat) Statement {
	sorted := make([]ofxgo.Transaction, len(txns))
	copy(sorted, txns)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].DtPosted.Before(sorted[j].DtPosted.Time)
	})

	stmt := Statement{AccountID: accountID}
	if len(sorted) == 0 {
		return stmt
	}

	// before[i] is the balance just ahead of line i.
	before := make([]*big.Rat, len(sorted))
	balance := new(big.Rat).Set(closing)
	for i := len(sorted) - 1; i >= 0; i-- {
		balance = new(big.Rat).Sub(balance, &sorted[i].TrnAmt.Rat)
		before[i] = balance
	}

	first := sorted[0].DtPosted.Time
	for i, tx := range sorted {
		amount := new(big.Rat).Abs(&tx.TrnAmt.Rat)
		if amount.Sign() == 0 {
			slog.Debug("Skipping zero amount transaction", "account", accountID, "fitid", tx.FiTID)
			stmt.Skipped++
			continue
		}

		after := new(big.Rat).Add(before[i], &tx.TrnAmt.Rat)
		stmt.Entries = append(stmt.Entries, Entry{
			ID:          string(tx.FiTID),
			Posted:      tx.DtPosted.Time,
			Description: extractDescription(tx),
			Input: model.TransactionInput{
				Step:           int(tx.DtPosted.Sub(first)/time.Hour) + 1,
				Type:           mapType(tx),
				Amount:         toFloat(amount),
				OldBalanceOrg:  nonNegative(before[i]),
				NewBalanceOrig: nonNegative(after),
			},
		})
	}
	return stmt
}

// mapType maps an OFX transaction type onto the scoring model's types.
func mapType(tx ofxgo.Transaction) model.TransactionType {
	switch tx.TrnType {
	case ofxgo.TrnTypeXfer:
		return model.TypeTransfer
	case ofxgo.TrnTypeATM, ofxgo.TrnTypeCash:
		return model.TypeCashOut
	case ofxgo.TrnTypeCredit, ofxgo.TrnTypeDep, ofxgo.TrnTypeDirectDep, ofxgo.TrnTypeInt, ofxgo.TrnTypeDiv:
		return model.TypeCashIn
	case ofxgo.TrnTypeDebit, ofxgo.TrnTypeCheck, ofxgo.TrnTypePayment, ofxgo.TrnTypePOS,
		ofxgo.TrnTypeDirectDebit, ofxgo.TrnTypeRepeatPmt, ofxgo.TrnTypeFee, ofxgo.TrnTypeSrvChg:
		return model.TypePayment
	}
	if tx.TrnAmt.Sign() > 0 {
		return model.TypeCashIn
	}
	return model.TypePayment
}

func toFloat(r *big.Rat) float64 {
	f, _ := r.Float64()
	return f
}

// nonNegative clamps owed balances, such as credit card statements, to zero.
func nonNegative(r *big.Rat) float64 {
	if r.Sign() < 0 {
		return 0
	}
	return toFloat(r)
}

// extractDescription tries to get a readable counterparty from OFX data.
func extractDescription(tx ofxgo.Transaction) string {
	if tx.Payee != nil && tx.Payee.Name != "" {
		return string(tx.Payee.Name)
	}

	name := string(tx.Name)
	if tx.Memo != "" && isGenericDescription(name) {
		name = string(tx.Memo)
	}
	name = strings.TrimSpace(name)

	prefixes := []string{
		"POS PURCHASE ",
		"PURCHASE AUTHORIZED ON ",
		"DEBIT CARD PURCHASE ",
		"ACH DEBIT ",
		"CHECK CARD ",
		"VISA PURCHASE ",
		"DEBIT PURCHASE ",
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToUpper(name), prefix) {
			name = name[len(prefix):]
			break
		}
	}

	// Leading "MM/DD " dates.
	if len(name) > 5 && name[2] == '/' && name[5] == ' ' {
		name = strings.TrimSpace(name[6:])
	}
	return name
}

func isGenericDescription(name string) bool {
	switch strings.ToUpper(name) {
	case "DEBIT", "CREDIT", "PURCHASE", "PAYMENT", "POS TRANSACTION", "CARD PURCHASE":
		return true
	}
	return false
}

// Inputs flattens statements into scoring inputs, oldest first per account.
func Inputs(statements []Statement) []model.TransactionInput {
	var inputs []model.TransactionInput
	for _, s := range statements {
		for _, e := range s.Entries {
			inputs = append(inputs, e.Input)
		}
	}
	return inputs
}

// Chunk splits inputs into groups of at most size.
func Chunk(inputs []model.TransactionInput, size int) [][]model.TransactionInput {
	if size <= 0 {
		size = len(inputs)
	}
	var chunks [][]model.TransactionInput
	for start := 0; start < len(inputs); start += size {
		end := min(start+size, len(inputs))
		chunks = append(chunks, inputs[start:end])
	}
	return chunks
}
