package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// RiskLevel is the discrete risk band assigned by the scoring service.
type RiskLevel string

// Risk levels. RiskUnknown only appears on batch items the service failed to score.
const (
	RiskLow     RiskLevel = "LOW"
	RiskMedium  RiskLevel = "MEDIUM"
	RiskHigh    RiskLevel = "HIGH"
	RiskUnknown RiskLevel = "UNKNOWN"
)

// Action is the recommended handling for a scored transaction.
type Action string

// Recommended actions. ActionManualReview pairs with RiskUnknown.
const (
	ActionAllow        Action = "ALLOW"
	ActionReview       Action = "REVIEW"
	ActionBlock        Action = "BLOCK"
	ActionManualReview Action = "MANUAL_REVIEW"
)

// PredictionResult is the verdict for one transaction.
type PredictionResult struct {
	Timestamp         Timestamp `json:"timestamp"`
	RiskLevel         RiskLevel `json:"risk_level"`
	RecommendedAction Action    `json:"recommended_action"`
	Explanation       string    `json:"explanation"`
	FraudProbability  float64   `json:"fraud_probability"`
	Confidence        float64   `json:"confidence"`
	IsFraud           bool      `json:"is_fraud"`
}

// Scored reports whether the service actually scored this transaction.
func (p PredictionResult) Scored() bool {
	return p.RiskLevel != RiskUnknown && p.RecommendedAction != ActionManualReview
}

// BatchPredictionResult is the response of a batch prediction.
type BatchPredictionResult struct {
	Predictions       []PredictionResult `json:"predictions"`
	TotalTransactions int                `json:"total_transactions"`
	FraudDetected     int                `json:"fraud_detected"`
	HighRiskCount     int                `json:"high_risk_count"`
}

// Failed counts the items the service could not score.
func (b BatchPredictionResult) Failed() int {
	n := 0
	for _, p := range b.Predictions {
		if !p.Scored() {
			n++
		}
	}
	return n
}

// naiveLayouts are the zone-less ISO-8601 forms the scoring service emits.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp accepts RFC 3339 and zone-less ISO-8601 timestamps.
// Zone-less values are taken as UTC.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("timestamp must be a string: %w", err)
	}
	if s == "" {
		return nil
	}

	if parsed, err := time.Parse(time.RFC3339Nano, s); err == nil {
		t.Time = parsed
		return nil
	}
	for _, layout := range naiveLayouts {
		if parsed, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("unrecognized timestamp %q", s)
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.UTC().Format(time.RFC3339Nano))
}
