package scoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/fraudwatch/internal/availability"
	"github.com/Veraticus/fraudwatch/internal/common"
	"github.com/Veraticus/fraudwatch/internal/config"
	"github.com/Veraticus/fraudwatch/internal/model"
	"github.com/Veraticus/fraudwatch/internal/testutil"
	"github.com/Veraticus/fraudwatch/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type opRecorder struct {
	outcomes map[string][]string
	retries  map[string]int
	mu       sync.Mutex
}

func newOpRecorder() *opRecorder {
	return &opRecorder{outcomes: make(map[string][]string), retries: make(map[string]int)}
}

func (r *opRecorder) RecordOperation(operation, outcome string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[operation] = append(r.outcomes[operation], outcome)
}

func (r *opRecorder) RecordRetry(operation string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.retries[operation]++
}

func testConfig() config.Config {
	cfg := config.Default()
	cfg.Retry.Delay = time.Millisecond
	return cfg
}

func newTestClient(doer transport.Doer, opts ...Option) (*Client, *availability.Monitor) {
	monitor := availability.NewMonitor(doer)
	return New(doer, monitor, testConfig(), opts...), monitor
}

func legitimate(t *testing.T) model.TransactionInput {
	t.Helper()
	input, err := model.Sample("legitimate")
	require.NoError(t, err)
	return input
}

func TestClient_InvalidInputNeverDispatches(t *testing.T) {
	valid := model.TransactionInput{
		Step: 1, Type: model.TypePayment, Amount: 10,
		OldBalanceOrg: 100, NewBalanceOrig: 90, OldBalanceDest: 0, NewBalanceDest: 10,
	}
	tests := []struct {
		mutate func(*model.TransactionInput)
		name   string
	}{
		{name: "zero amount", mutate: func(in *model.TransactionInput) { in.Amount = 0 }},
		{name: "negative balance", mutate: func(in *model.TransactionInput) { in.OldBalanceDest = -1 }},
		{name: "step below one", mutate: func(in *model.TransactionInput) { in.Step = 0 }},
		{name: "unknown type", mutate: func(in *model.TransactionInput) { in.Type = "WIRE" }},
		{name: "missing type", mutate: func(in *model.TransactionInput) { in.Type = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &testutil.MockDoer{}
			client, monitor := newTestClient(doer)
			input := valid
			tt.mutate(&input)

			_, err := client.PredictSingle(context.Background(), input)
			assert.True(t, common.IsKind(err, common.KindValidation))

			_, err = client.Approve(context.Background(), input)
			assert.True(t, common.IsKind(err, common.KindValidation))

			_, err = client.PredictBatch(context.Background(), []model.TransactionInput{valid, input})
			assert.True(t, common.IsKind(err, common.KindValidation))

			assert.Equal(t, 0, doer.Calls())
			assert.Equal(t, availability.StatusChecking, monitor.Status())
		})
	}
}

func TestClient_PredictBatch_SizeLimits(t *testing.T) {
	doer := &testutil.MockDoer{}
	client, _ := newTestClient(doer)

	_, err := client.PredictBatch(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindValidation))
	assert.ErrorIs(t, err, common.ErrNoTransactions)

	tooMany := make([]model.TransactionInput, 101)
	for i := range tooMany {
		tooMany[i] = legitimate(t)
	}
	_, err = client.PredictBatch(context.Background(), tooMany)
	assert.True(t, common.IsKind(err, common.KindValidation))

	assert.Equal(t, 0, doer.Calls())
}

func TestClient_PredictSingle_CallCount(t *testing.T) {
	path := "/api/v1/predictions/single"
	tests := []struct {
		name      string
		failures  []error
		wantCalls int
		wantKind  common.ErrorKind
	}{
		{name: "success", wantCalls: 1},
		{name: "server error is not retried", failures: []error{testutil.ServerError(path, 500, "")}, wantCalls: 1, wantKind: common.KindServer},
		{name: "network error is not retried", failures: []error{testutil.Unreachable(path)}, wantCalls: 1, wantKind: common.KindNetwork},
		{name: "rejection is not retried", failures: []error{testutil.ServerError(path, 400, "")}, wantCalls: 1, wantKind: common.KindServer},
		{name: "timeout is retried once", failures: []error{testutil.Timeout(path)}, wantCalls: 2},
		{name: "two timeouts stop", failures: []error{testutil.Timeout(path), testutil.Timeout(path)}, wantCalls: 2, wantKind: common.KindTimeout},
		{name: "timeout then server error", failures: []error{testutil.Timeout(path), testutil.ServerError(path, 503, "")}, wantCalls: 2, wantKind: common.KindServer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &testutil.MockDoer{}
			doer.DoFn = func(_ context.Context, _ transport.Request) (*transport.Response, error) {
				if n := doer.Calls(); n <= len(tt.failures) {
					return nil, tt.failures[n-1]
				}
				return testutil.JSON(testutil.LowRiskJSON), nil
			}
			client, _ := newTestClient(doer)

			result, err := client.PredictSingle(context.Background(), legitimate(t))
			assert.Equal(t, tt.wantCalls, doer.Calls())
			if tt.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, model.RiskLow, result.RiskLevel)
				return
			}
			assert.True(t, common.IsKind(err, tt.wantKind), "got %v", err)
		})
	}
}

func TestClient_PredictSingle_TimeoutThenSuccess(t *testing.T) {
	doer := &testutil.MockDoer{}
	doer.DoFn = func(_ context.Context, req transport.Request) (*transport.Response, error) {
		if doer.Calls() == 1 {
			return nil, testutil.Timeout(req.Path)
		}
		return testutil.JSON(testutil.HighRiskJSON), nil
	}
	rec := newOpRecorder()
	client, monitor := newTestClient(doer, WithRecorder(rec))

	result, err := client.PredictSingle(context.Background(), legitimate(t))
	require.NoError(t, err)

	assert.Equal(t, model.RiskHigh, result.RiskLevel)
	assert.Equal(t, 0.97, result.FraudProbability)
	assert.Equal(t, availability.StatusAwake, monitor.Status())
	assert.Equal(t, 1, rec.retries[OpPredictSingle])
	assert.Equal(t, []string{"success"}, rec.outcomes[OpPredictSingle])

	reqs := doer.Requests()
	require.Len(t, reqs, 2)
	for _, req := range reqs {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/api/v1/predictions/single", req.Path)
		assert.Equal(t, 120*time.Second, req.Timeout)
	}
}

func TestClient_PredictSingle_TwoTimeouts(t *testing.T) {
	doer := &testutil.MockDoer{
		DoFn: func(_ context.Context, req transport.Request) (*transport.Response, error) {
			return nil, testutil.Timeout(req.Path)
		},
	}
	client, monitor := newTestClient(doer)
	monitor.Observe(monitor.Begin(), availability.OutcomeSuccess)

	_, err := client.PredictSingle(context.Background(), legitimate(t))
	require.Error(t, err)

	var opErr *common.OperationError
	require.True(t, errors.As(err, &opErr))
	assert.Equal(t, common.KindTimeout, opErr.Kind)
	assert.Equal(t, ColdStartMessage, err.Error())
	assert.Equal(t, availability.StatusSleeping, monitor.Status())
}

func TestClient_PredictSingle_WaitsBeforeRetry(t *testing.T) {
	var stamps []time.Time
	var mu sync.Mutex
	doer := &testutil.MockDoer{
		DoFn: func(_ context.Context, req transport.Request) (*transport.Response, error) {
			mu.Lock()
			stamps = append(stamps, time.Now())
			mu.Unlock()
			return nil, testutil.Timeout(req.Path)
		},
	}
	cfg := testConfig()
	cfg.Retry.Delay = 40 * time.Millisecond
	client := New(doer, availability.NewMonitor(doer), cfg)

	_, _ = client.PredictSingle(context.Background(), legitimate(t))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, stamps, 2)
	assert.GreaterOrEqual(t, stamps[1].Sub(stamps[0]), 40*time.Millisecond)
}

func TestClient_PredictSingle_CancelledDuringWait(t *testing.T) {
	doer := &testutil.MockDoer{
		DoFn: func(_ context.Context, req transport.Request) (*transport.Response, error) {
			return nil, testutil.Timeout(req.Path)
		},
	}
	cfg := testConfig()
	cfg.Retry.Delay = time.Hour
	client := New(doer, availability.NewMonitor(doer), cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := client.PredictSingle(ctx, legitimate(t))
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindNetwork))
	assert.Equal(t, "Failed to predict transaction", err.Error())
	assert.Equal(t, 1, doer.Calls())
}

func TestClient_ErrorMessages(t *testing.T) {
	structured := `{"detail":{"error":"Prediction failed","message":"Model not loaded"}}`

	tests := []struct {
		call   func(*Client) error
		err    error
		name   string
		want   string
		kind   common.ErrorKind
		status int
	}{
		{
			name: "structured detail is used verbatim",
			call: func(c *Client) error {
				_, err := c.PredictBatch(context.Background(), []model.TransactionInput{{
					Step: 1, Type: model.TypePayment, Amount: 1,
				}})
				return err
			},
			err:    testutil.ServerError("/api/v1/predictions/batch", 500, structured),
			want:   "Model not loaded",
			kind:   common.KindServer,
			status: 500,
		},
		{
			name: "plain detail string",
			call: func(c *Client) error {
				_, err := c.FetchModelInfo(context.Background())
				return err
			},
			err:    testutil.ServerError("/api/v1/model/info", 404, `{"detail":"Not Found"}`),
			want:   "Not Found",
			kind:   common.KindServer,
			status: 404,
		},
		{
			name: "unstructured server error uses the generic message",
			call: func(c *Client) error {
				_, err := c.FetchFeatureImportance(context.Background())
				return err
			},
			err:    testutil.ServerError("/api/v1/model/feature-importance", 502, "bad gateway"),
			want:   "Failed to fetch feature importance",
			kind:   common.KindServer,
			status: 502,
		},
		{
			name: "network failure uses the generic message",
			call: func(c *Client) error {
				_, err := c.FetchHealth(context.Background())
				return err
			},
			err:  testutil.Unreachable("/api/v1/model/health"),
			want: "Health check failed",
			kind: common.KindNetwork,
		},
		{
			name: "approve timeout explains the cold start",
			call: func(c *Client) error {
				_, err := c.Approve(context.Background(), model.TransactionInput{Step: 1, Type: model.TypePayment, Amount: 1})
				return err
			},
			err:  testutil.Timeout("/api/v1/predictions/approve"),
			want: ColdStartMessage,
			kind: common.KindTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &testutil.MockDoer{
				DoFn: func(context.Context, transport.Request) (*transport.Response, error) {
					return nil, tt.err
				},
			}
			client, _ := newTestClient(doer)

			err := tt.call(client)
			require.Error(t, err)
			assert.Equal(t, tt.want, err.Error())

			var opErr *common.OperationError
			require.True(t, errors.As(err, &opErr))
			assert.Equal(t, tt.kind, opErr.Kind)
			assert.Equal(t, tt.status, opErr.StatusCode)
			assert.Equal(t, 1, doer.Calls())
		})
	}
}

func TestClient_MalformedPayload(t *testing.T) {
	doer := &testutil.MockDoer{
		DoFn: func(context.Context, transport.Request) (*transport.Response, error) {
			return testutil.JSON(`{"fraud_probability": "high"`), nil
		},
	}
	client, monitor := newTestClient(doer)

	_, err := client.PredictSingle(context.Background(), legitimate(t))
	require.Error(t, err)
	assert.True(t, common.IsKind(err, common.KindServer))
	assert.Equal(t, "Failed to predict transaction", err.Error())
	assert.Equal(t, availability.StatusAwake, monitor.Status(), "the service answered")
}

func TestClient_LightOperationsUseLightBudget(t *testing.T) {
	doer := &testutil.MockDoer{
		DoFn: func(_ context.Context, req transport.Request) (*transport.Response, error) {
			switch req.Path {
			case "/api/v1/model/info":
				return testutil.JSON(testutil.ModelInfoJSON), nil
			case "/api/v1/model/feature-importance":
				return testutil.JSON(testutil.FeatureImportanceJSON), nil
			default:
				return testutil.JSON(testutil.HealthJSON), nil
			}
		},
	}
	client, _ := newTestClient(doer)

	info, err := client.FetchModelInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "XGBoost Classifier", info.ModelType)

	importance, err := client.FetchFeatureImportance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "newbalanceOrig", importance.Ranked()[0].Name)

	health, err := client.FetchHealth(context.Background())
	require.NoError(t, err)
	assert.True(t, health.Healthy())

	for _, req := range doer.Requests() {
		assert.Equal(t, http.MethodGet, req.Method)
		assert.Equal(t, 30*time.Second, req.Timeout)
		assert.Nil(t, req.Body)
	}
}

func TestClient_ModelInfoIsStable(t *testing.T) {
	service := testutil.NewFakeService(t)
	service.Reply("/api/v1/model/info", http.StatusOK, testutil.ModelInfoJSON)

	doer := transport.New(service.URL)
	client, _ := newTestClient(doer)

	fieldSet := func() []string {
		info, err := client.FetchModelInfo(context.Background())
		require.NoError(t, err)
		raw, err := json.Marshal(info)
		require.NoError(t, err)
		var fields map[string]any
		require.NoError(t, json.Unmarshal(raw, &fields))
		keys := make([]string, 0, len(fields))
		for k := range fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return keys
	}

	first := fieldSet()
	second := fieldSet()
	assert.Equal(t, first, second)
	assert.Contains(t, first, "risk_thresholds")
	assert.Equal(t, 2, service.Hits("/api/v1/model/info"))
}

func TestClient_StatusNeverCheckingAfterOperation(t *testing.T) {
	tests := []struct {
		err  error
		name string
	}{
		{name: "success"},
		{name: "timeout", err: testutil.Timeout("/x")},
		{name: "network", err: testutil.Unreachable("/x")},
		{name: "server", err: testutil.ServerError("/x", 500, "")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &testutil.MockDoer{
				DoFn: func(context.Context, transport.Request) (*transport.Response, error) {
					if tt.err != nil {
						return nil, tt.err
					}
					return testutil.JSON(testutil.HealthJSON), nil
				},
			}
			client, monitor := newTestClient(doer)
			require.Equal(t, availability.StatusChecking, monitor.Status())

			_, _ = client.FetchHealth(context.Background())
			assert.NotEqual(t, availability.StatusChecking, monitor.Status())
		})
	}
}

// scoreHandler plays a model that flags transactions draining the origin account.
func scoreHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input model.TransactionInput
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&input)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		probability := 0.03
		if input.NewBalanceOrig == 0 && input.Amount >= input.OldBalanceOrg {
			probability = 0.97
		}
		level, action := model.DefaultRiskThresholds().Classify(probability)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"fraud_probability":  probability,
			"risk_level":         level,
			"is_fraud":           level == model.RiskHigh,
			"confidence":         0.95,
			"recommended_action": action,
			"explanation":        "scored",
			"timestamp":          "2024-06-01T12:00:00",
		})
	}
}

func TestClient_SamplesAgreeWithReportedThresholds(t *testing.T) {
	service := testutil.NewFakeService(t)
	service.Reply("/api/v1/model/info", http.StatusOK, testutil.ModelInfoJSON)
	service.Handle("/api/v1/predictions/single", scoreHandler(t))

	doer := transport.New(service.URL)
	client, monitor := newTestClient(doer)

	info, err := client.FetchModelInfo(context.Background())
	require.NoError(t, err)
	thresholds := info.Thresholds()

	tests := []struct {
		sample string
		want   model.RiskLevel
	}{
		{sample: "legitimate", want: model.RiskLow},
		{sample: "suspicious", want: model.RiskHigh},
	}
	for _, tt := range tests {
		t.Run(tt.sample, func(t *testing.T) {
			input, err := model.Sample(tt.sample)
			require.NoError(t, err)

			result, err := client.PredictSingle(context.Background(), input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.RiskLevel)
			assert.True(t, thresholds.Consistent(*result))
		})
	}
	assert.Equal(t, availability.StatusAwake, monitor.Status())
}

func TestClient_PredictBatch_PartialFailures(t *testing.T) {
	service := testutil.NewFakeService(t)
	service.Handle("/api/v1/predictions/batch", func(w http.ResponseWriter, r *http.Request) {
		var body model.BatchRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Len(t, body.Transactions, 2)

		_, _ = w.Write([]byte(`{"predictions":[` + testutil.LowRiskJSON + `,` +
			`{"fraud_probability":0,"risk_level":"UNKNOWN","is_fraud":false,"confidence":0,` +
			`"recommended_action":"MANUAL_REVIEW","explanation":"Error processing transaction: boom",` +
			`"timestamp":"2024-06-01T12:00:00"}],` +
			`"total_transactions":2,"fraud_detected":0,"high_risk_count":0}`))
	})

	client, _ := newTestClient(transport.New(service.URL))
	result, err := client.PredictBatch(context.Background(), []model.TransactionInput{legitimate(t), legitimate(t)})
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalTransactions)
	assert.Equal(t, 1, result.Failed())
	assert.False(t, result.Predictions[1].Scored())
	assert.Equal(t, 1, service.Hits("/api/v1/predictions/batch"))
}

func TestClient_Approve(t *testing.T) {
	service := testutil.NewFakeService(t)
	service.Reply("/api/v1/predictions/approve", http.StatusOK, testutil.ApprovedJSON)

	client, monitor := newTestClient(transport.New(service.URL))
	result, err := client.Approve(context.Background(), legitimate(t))
	require.NoError(t, err)

	assert.True(t, result.Approved())
	assert.Equal(t, "system", result.ApprovedBy)
	assert.Equal(t, model.TypePayment, result.TransactionDetails.Type)
	assert.Equal(t, availability.StatusAwake, monitor.Status())
}

func TestClient_ConcurrentOperations(t *testing.T) {
	service := testutil.NewFakeService(t)
	service.Handle("/api/v1/predictions/single", scoreHandler(t))
	service.Reply("/health", http.StatusOK, `{"status":"ok"}`)

	doer := transport.New(service.URL)
	client, monitor := newTestClient(doer)
	input := legitimate(t)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.Probe(context.Background())
	}()
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := client.PredictSingle(context.Background(), input)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, availability.StatusAwake, monitor.Status())
	assert.Equal(t, 5, service.Hits("/api/v1/predictions/single"))
}
