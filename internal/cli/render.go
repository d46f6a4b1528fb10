package cli

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/fraudwatch/internal/common"
	"github.com/Veraticus/fraudwatch/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// highlightedFeatures is how many of the top features the chart emphasises.
const highlightedFeatures = 5

// RenderPrediction renders a single verdict. When thresholds is non-nil, a
// risk level that disagrees with them is flagged.
func RenderPrediction(p model.PredictionResult, thresholds *model.RiskThresholds) string {
	risk := RiskStyle(p.RiskLevel)

	var b strings.Builder
	fmt.Fprintf(&b, "Risk level:         %s\n", risk.Bold(true).Render(string(p.RiskLevel)))
	fmt.Fprintf(&b, "Fraud probability:  %s\n", risk.Render(percent(p.FraudProbability)))
	fmt.Fprintf(&b, "Confidence:         %s\n", percent(p.Confidence))
	fmt.Fprintf(&b, "Recommended action: %s\n", BoldStyle.Render(string(p.RecommendedAction)))
	fmt.Fprintf(&b, "Flagged as fraud:   %s\n", yesNo(p.IsFraud))
	if p.Explanation != "" {
		fmt.Fprintf(&b, "\n%s\n", p.Explanation)
	}
	if !p.Timestamp.IsZero() {
		fmt.Fprintf(&b, "\n%s", SubtleStyle.Render("Scored at "+formatTime(p.Timestamp.Time)))
	}

	if thresholds != nil && !thresholds.Consistent(p) {
		expected, _ := thresholds.Classify(p.FraudProbability)
		fmt.Fprintf(&b, "\n%s", FormatWarning(fmt.Sprintf(
			"Risk level %s disagrees with the model thresholds (high ≥ %.2f, medium ≥ %.2f), expected %s",
			p.RiskLevel, thresholds.High, thresholds.Medium, expected)))
	}

	return RenderBox(ShieldIcon+" Fraud Analysis Result", strings.TrimRight(b.String(), "\n"))
}

// RenderApproval renders the service's answer to an approval.
func RenderApproval(a model.ApprovalResult) string {
	if !a.Approved() {
		return FormatWarning(fmt.Sprintf("Approval not confirmed (status %q): %s", a.Status, a.Message))
	}

	var b strings.Builder
	b.WriteString(FormatSuccess(a.Message))
	if a.ApprovedBy != "" {
		fmt.Fprintf(&b, "\n  Approved by: %s", a.ApprovedBy)
	}
	if ts := a.TransactionDetails.ApprovalTimestamp; ts != nil && !ts.IsZero() {
		fmt.Fprintf(&b, "\n  Approved at: %s", formatTime(ts.Time))
	}
	if a.Notes != "" {
		fmt.Fprintf(&b, "\n  Notes: %s", a.Notes)
	}
	return b.String()
}

// RenderBatch renders a batch result as a table followed by its summary.
func RenderBatch(result model.BatchPredictionResult) string {
	headers := []string{"#", "Risk", "Probability", "Action", "Explanation"}
	rows := make([][]string, 0, len(result.Predictions))
	for i, p := range result.Predictions {
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			string(p.RiskLevel),
			percent(p.FraudProbability),
			string(p.RecommendedAction),
			truncate(p.Explanation, 60),
		})
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	headerCells := make([]string, len(headers))
	for i, h := range headers {
		headerCells[i] = TableCellStyle.Render(pad(h, widths[i]))
	}
	b.WriteString(TableHeaderStyle.Render(lipgloss.JoinHorizontal(lipgloss.Top, headerCells...)))
	b.WriteString("\n")

	for i, row := range rows {
		style := RiskStyle(result.Predictions[i].RiskLevel)
		cells := make([]string, len(row))
		for j, cell := range row {
			text := pad(cell, widths[j])
			if j == 1 {
				text = style.Render(text)
			}
			cells[j] = TableCellStyle.Render(text)
		}
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cells...))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(RenderBatchSummary(result))
	return b.String()
}

// RenderBatchSummary renders the batch totals reported by the service.
func RenderBatchSummary(result model.BatchPredictionResult) string {
	summary := fmt.Sprintf("%s Total: %d  Fraud detected: %s  High risk: %s",
		ChartIcon,
		result.TotalTransactions,
		ErrorStyle.Render(strconv.Itoa(result.FraudDetected)),
		ErrorStyle.Render(strconv.Itoa(result.HighRiskCount)))
	if failed := result.Failed(); failed > 0 {
		summary += "  " + WarningStyle.Render(fmt.Sprintf("Needs manual review: %d", failed))
	}
	return summary
}

// RenderModelInfo renders the deployed model's metadata.
func RenderModelInfo(info model.ModelInfo) string {
	thresholds := info.Thresholds()

	var b strings.Builder
	fmt.Fprintf(&b, "Model:          %s\n", BoldStyle.Render(info.ModelType))
	fmt.Fprintf(&b, "Version:        %s\n", info.ModelVersion)
	fmt.Fprintf(&b, "Trained:        %s\n", info.TrainingDate)
	fmt.Fprintf(&b, "Training size:  %s samples\n", groupThousands(info.TrainingDataSize))
	fmt.Fprintf(&b, "Thresholds:     high ≥ %.2f, medium ≥ %.2f", thresholds.High, thresholds.Medium)
	if info.RiskThresholds == nil {
		b.WriteString(SubtleStyle.Render(" (defaults)"))
	}
	b.WriteString("\n")

	if len(info.PerformanceMetrics) > 0 {
		b.WriteString("\nPerformance:\n")
		for _, name := range sortedKeys(info.PerformanceMetrics) {
			fmt.Fprintf(&b, "  %-12s %.4f\n", name, info.PerformanceMetrics[name])
		}
	}
	if len(info.Hyperparameters) > 0 {
		b.WriteString("\nHyperparameters:\n")
		for _, name := range sortedKeys(info.Hyperparameters) {
			fmt.Fprintf(&b, "  %-16s %v\n", name, info.Hyperparameters[name])
		}
	}
	if len(info.Features) > 0 {
		fmt.Fprintf(&b, "\nFeatures (%d): %s\n", len(info.Features), strings.Join(info.Features, ", "))
	}

	return RenderBox(InfoIcon+" Model Information", strings.TrimRight(b.String(), "\n"))
}

// RenderFeatureImportance renders importance percentages as a horizontal bar
// chart barWidth cells wide. The top features are highlighted.
func RenderFeatureImportance(fi model.FeatureImportance, barWidth int) string {
	scores := fi.Ranked()
	if len(scores) == 0 {
		return SubtleStyle.Render("No feature importance reported")
	}
	if barWidth < 1 {
		barWidth = 30
	}

	nameWidth := 0
	peak := 0.0
	for _, s := range scores {
		nameWidth = max(nameWidth, len(s.Name))
		peak = math.Max(peak, s.Percentage)
	}

	var b strings.Builder
	for i, s := range scores {
		cells := 0
		if peak > 0 {
			cells = int(math.Round(s.Percentage / peak * float64(barWidth)))
		}
		bar := strings.Repeat("█", cells)

		style := SubtleStyle
		if i < highlightedFeatures {
			style = lipgloss.NewStyle().Foreground(PrimaryColor)
		}
		fmt.Fprintf(&b, "%-*s %s %5.1f%%\n", nameWidth, s.Name, style.Render(pad(bar, barWidth)), s.Percentage)
	}

	return RenderBox(ChartIcon+" Feature Importance", strings.TrimRight(b.String(), "\n"))
}

// RenderHealth renders the model service's readiness report.
func RenderHealth(h model.HealthReport) string {
	status := FormatSuccess("Model service healthy")
	if !h.Healthy() {
		status = FormatWarning(fmt.Sprintf("Model service reports %q (model loaded: %s)", h.Status, yesNo(h.ModelLoaded)))
	}

	details := []string{status}
	if h.Version != "" {
		details = append(details, "  Version: "+h.Version)
	}
	if !h.Timestamp.IsZero() {
		details = append(details, "  Checked: "+formatTime(h.Timestamp.Time))
	}
	return strings.Join(details, "\n")
}

// RenderError renders an operation failure. Validation failures list every
// offending field.
func RenderError(err error) string {
	var verr *model.ValidationError
	if errors.As(err, &verr) && len(verr.Problems) > 1 {
		lines := []string{FormatError("Invalid transaction:")}
		for _, p := range verr.Problems {
			lines = append(lines, "  • "+p.Message)
		}
		return strings.Join(lines, "\n")
	}

	msg := err.Error()
	if common.IsKind(err, common.KindNetwork) {
		msg += SubtleStyle.Render(" (the service could not be reached)")
	}
	return FormatError(msg)
}

func percent(p float64) string {
	return fmt.Sprintf("%.1f%%", p*100)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatTime(t time.Time) string {
	return t.Local().Format("Jan 2, 2006 15:04:05")
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}

func groupThousands(n int) string {
	s := strconv.Itoa(n)
	if n < 0 {
		return "-" + groupThousands(-n)
	}
	for i := len(s) - 3; i > 0; i -= 3 {
		s = s[:i] + "," + s[i:]
	}
	return s
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
