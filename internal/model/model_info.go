package model

// Default risk thresholds used by the scoring service when it does not report its own.
const (
	DefaultHighRiskThreshold   = 0.8
	DefaultMediumRiskThreshold = 0.4
)

// RiskThresholds are the probability cut-offs between risk levels.
type RiskThresholds struct {
	High   float64 `json:"high_risk"`
	Medium float64 `json:"medium_risk"`
}

// DefaultRiskThresholds returns the service's documented defaults.
func DefaultRiskThresholds() RiskThresholds {
	return RiskThresholds{High: DefaultHighRiskThreshold, Medium: DefaultMediumRiskThreshold}
}

// Classify maps a fraud probability to a risk level and recommended action.
func (r RiskThresholds) Classify(probability float64) (RiskLevel, Action) {
	switch {
	case probability >= r.High:
		return RiskHigh, ActionBlock
	case probability >= r.Medium:
		return RiskMedium, ActionReview
	default:
		return RiskLow, ActionAllow
	}
}

// Consistent reports whether a prediction's risk level agrees with these thresholds.
// Unscored batch items are always consistent.
func (r RiskThresholds) Consistent(p PredictionResult) bool {
	if !p.Scored() {
		return true
	}
	level, _ := r.Classify(p.FraudProbability)
	return level == p.RiskLevel
}

// ModelInfo describes the model deployed behind the scoring service.
type ModelInfo struct {
	PerformanceMetrics map[string]float64 `json:"performance_metrics"`
	Hyperparameters    map[string]any     `json:"hyperparameters"`
	RiskThresholds     *RiskThresholds    `json:"risk_thresholds,omitempty"`
	ModelVersion       string             `json:"model_version"`
	ModelType          string             `json:"model_type"`
	TrainingDate       string             `json:"training_date"`
	Features           []string           `json:"features"`
	TrainingDataSize   int                `json:"training_data_size"`
}

// Thresholds returns the reported thresholds, falling back to the defaults.
func (m ModelInfo) Thresholds() RiskThresholds {
	if m.RiskThresholds == nil {
		return DefaultRiskThresholds()
	}
	return *m.RiskThresholds
}

// FeatureImportance lists the model's features ordered by importance, descending.
type FeatureImportance struct {
	TopFeatures          map[string]float64 `json:"top_features"`
	Features             []string           `json:"features"`
	Importance           []float64          `json:"importance"`
	ImportancePercentage []float64          `json:"importance_percentage"`
}

// FeatureScore pairs a feature with its importance percentage.
type FeatureScore struct {
	Name       string
	Percentage float64
}

// Ranked zips features with their percentages, stopping at the shorter list.
func (f FeatureImportance) Ranked() []FeatureScore {
	n := min(len(f.Features), len(f.ImportancePercentage))
	scores := make([]FeatureScore, 0, n)
	for i := 0; i < n; i++ {
		scores = append(scores, FeatureScore{Name: f.Features[i], Percentage: f.ImportancePercentage[i]})
	}
	return scores
}

// HealthReport is the model service's readiness report.
type HealthReport struct {
	Timestamp   Timestamp `json:"timestamp"`
	Status      string    `json:"status"`
	Version     string    `json:"version"`
	ModelLoaded bool      `json:"model_loaded"`
}

// Healthy reports whether the model service is ready to score.
func (h HealthReport) Healthy() bool {
	return h.Status == "healthy" && h.ModelLoaded
}
