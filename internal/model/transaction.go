package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// TransactionType is the categorical kind of a transaction as the scoring model knows it.
type TransactionType string

// Transaction types accepted by the scoring service.
const (
	TypeCashIn   TransactionType = "CASH_IN"
	TypeCashOut  TransactionType = "CASH_OUT"
	TypeDebit    TransactionType = "DEBIT"
	TypePayment  TransactionType = "PAYMENT"
	TypeTransfer TransactionType = "TRANSFER"
)

// TransactionTypes lists every valid transaction type in display order.
var TransactionTypes = []TransactionType{TypeCashIn, TypeCashOut, TypeDebit, TypePayment, TypeTransfer}

// ParseTransactionType normalizes a user supplied type name.
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
	return t, nil
}

// IsValid reports whether t is one of the known transaction types.
func (t TransactionType) IsValid() bool {
	for _, known := range TransactionTypes {
		if t == known {
			return true
		}
	}
	return false
}

// TransactionInput is the record submitted for scoring.
// Field names on the wire match the scoring service's schema exactly.
type TransactionInput struct {
	Type           TransactionType `json:"type" validate:"required,oneof=CASH_IN CASH_OUT DEBIT PAYMENT TRANSFER"`
	Step           int             `json:"step" validate:"min=1"`
	Amount         float64         `json:"amount" validate:"finite,gt=0"`
	OldBalanceOrg  float64         `json:"oldbalanceOrg" validate:"finite,gte=0"`
	NewBalanceOrig float64         `json:"newbalanceOrig" validate:"finite,gte=0"`
	OldBalanceDest float64         `json:"oldbalanceDest" validate:"finite,gte=0"`
	NewBalanceDest float64         `json:"newbalanceDest" validate:"finite,gte=0"`
}

// Validate checks the input structurally. It never touches the network.
func (t TransactionInput) Validate() error {
	return validateStruct(t)
}

// BatchRequest is the body of a batch prediction call.
type BatchRequest struct {
	Transactions []TransactionInput `json:"transactions" validate:"min=1,max=100,dive"`
}

// Validate checks the batch size and every transaction in it.
func (b BatchRequest) Validate() error {
	return validateStruct(b)
}

// requiredFields are the keys a decoded transaction document must carry.
// A missing balance would otherwise decode silently as zero.
var requiredFields = []string{
	"step", "type", "amount",
	"oldbalanceOrg", "newbalanceOrig", "oldbalanceDest", "newbalanceDest",
}

// DecodeTransaction reads a single JSON transaction document.
// Missing fields and unknown fields are reported as validation problems.
func DecodeTransaction(r io.Reader) (TransactionInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return TransactionInput{}, fmt.Errorf("failed to read transaction: %w", err)
	}
	return decodeTransaction(data)
}

// DecodeTransactions reads either a JSON array of transactions or a
// {"transactions": [...]} document.
func DecodeTransactions(r io.Reader) ([]TransactionInput, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read transactions: %w", err)
	}

	trimmed := bytes.TrimSpace(data)
	var raw []json.RawMessage
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var envelope struct {
			Transactions []json.RawMessage `json:"transactions"`
		}
		if err := json.Unmarshal(trimmed, &envelope); err != nil {
			return nil, fmt.Errorf("failed to parse transactions: %w", err)
		}
		raw = envelope.Transactions
	} else if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse transactions: %w", err)
	}

	inputs := make([]TransactionInput, 0, len(raw))
	for i, item := range raw {
		input, err := decodeTransaction(item)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

func decodeTransaction(data []byte) (TransactionInput, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return TransactionInput{}, fmt.Errorf("failed to parse transaction: %w", err)
	}

	var problems []FieldProblem
	for _, name := range requiredFields {
		if v, ok := fields[name]; !ok || string(v) == "null" {
			problems = append(problems, FieldProblem{Field: name, Message: name + " is required"})
		}
	}
	if len(problems) > 0 {
		return TransactionInput{}, &ValidationError{Problems: problems}
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var input TransactionInput
	if err := dec.Decode(&input); err != nil {
		return TransactionInput{}, &ValidationError{Problems: []FieldProblem{{Message: err.Error()}}}
	}

	input.Type = TransactionType(strings.ToUpper(string(input.Type)))
	return input, nil
}
