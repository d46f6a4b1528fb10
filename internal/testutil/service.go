package testutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// Canned payloads in the shape the scoring service returns.
const (
	HealthJSON = `{"status":"healthy","timestamp":"2024-06-01T12:00:00","version":"1.0.0","model_loaded":true}`

	LowRiskJSON = `{"fraud_probability":0.02,"risk_level":"LOW","is_fraud":false,"confidence":0.96,` +
		`"recommended_action":"ALLOW","explanation":"Transaction appears legitimate",` +
		`"timestamp":"2024-06-01T12:00:01.123456"}`

	HighRiskJSON = `{"fraud_probability":0.97,"risk_level":"HIGH","is_fraud":true,"confidence":0.94,` +
		`"recommended_action":"BLOCK","explanation":"Balance drained by a large transfer",` +
		`"timestamp":"2024-06-01T12:00:02Z"}`

	ModelInfoJSON = `{"model_version":"1.0","model_type":"XGBoost Classifier","training_date":"2026-01-13",` +
		`"performance_metrics":{"roc_auc":0.9997,"recall":0.9897,"precision":0.4267,"f1_score":0.5963},` +
		`"features":["step","amount","oldbalanceOrg","newbalanceOrig","oldbalanceDest","newbalanceDest","type_encoded"],` +
		`"hyperparameters":{"n_estimators":100,"max_depth":10,"learning_rate":0.1},"training_data_size":5090096,` +
		`"risk_thresholds":{"high_risk":0.8,"medium_risk":0.4}}`

	FeatureImportanceJSON = `{"features":["newbalanceOrig","oldbalanceOrg","amount","type_encoded"],` +
		`"importance":[0.45,0.23,0.18,0.14],"importance_percentage":[45.0,23.0,18.0,14.0],` +
		`"top_features":{"newbalanceOrig":45.0,"oldbalanceOrg":23.0,"amount":18.0,"type_encoded":14.0}}`

	ApprovedJSON = `{"status":"approved","message":"Transaction approved successfully",` +
		`"transaction_details":{"type":"PAYMENT","amount":50,"step":1,"approval_timestamp":"2024-06-01T12:00:03"},` +
		`"approved_by":"system","notes":"Manual approval override"}`
)

// FakeService is an httptest server that plays the scoring service. Handlers
// are keyed by path; unknown paths answer 404 with a FastAPI-style body.
type FakeService struct {
	*httptest.Server
	handlers map[string]http.HandlerFunc
	hits     map[string]int
	mu       sync.Mutex
}

// NewFakeService starts a server that is closed when the test ends.
func NewFakeService(t *testing.T) *FakeService {
	t.Helper()

	f := &FakeService{
		handlers: make(map[string]http.HandlerFunc),
		hits:     make(map[string]int),
	}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// Handle installs h for path.
func (f *FakeService) Handle(path string, h http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.handlers[path] = h
}

// Reply makes path answer status with body.
func (f *FakeService) Reply(path string, status int, body string) {
	f.Handle(path, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})
}

// Hits returns how many requests reached path.
func (f *FakeService) Hits(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *FakeService) serve(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSuffix(r.URL.Path, "/")

	f.mu.Lock()
	f.hits[path]++
	h, ok := f.handlers[path]
	f.mu.Unlock()

	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Not Found"}`))
		return
	}
	h(w, r)
}
