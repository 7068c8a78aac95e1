// Package analysis turns the raw, untrusted model response for a business
// plan into a canonical scoring object. The normalizer guarantees every
// invariant the report layout depends on: a complete 27-entry checklist,
// exactly three issues, a fix for every flagged criterion, and a potential
// score that never regresses below the current score.
package analysis

// CriterionStatus is the canonical per-criterion verdict. Raw responses
// may carry the German spellings; the decoder maps both.
type CriterionStatus string

const (
	StatusOK       CriterionStatus = "OK"
	StatusWarning  CriterionStatus = "WARNING"
	StatusError    CriterionStatus = "ERROR"
	StatusNotFound CriterionStatus = "NOT_FOUND"
)

type RiskLevel string

const (
	RiskLow      RiskLevel = "LOW"
	RiskMedium   RiskLevel = "MEDIUM"
	RiskHigh     RiskLevel = "HIGH"
	RiskCritical RiskLevel = "CRITICAL"
)

// RiskForScore maps a 0-100 score onto the four risk bands. The tier is
// always derived from the score so it stays monotonic with it.
func RiskForScore(score int) RiskLevel {
	switch {
	case score >= 85:
		return RiskLow
	case score >= 65:
		return RiskMedium
	case score >= 45:
		return RiskHigh
	default:
		return RiskCritical
	}
}

type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
)

// Fix is the remediation attached to a WARNING or ERROR criterion.
type Fix struct {
	Problem       string `json:"problem"`
	CopyPasteText string `json:"copy_paste_text"`
	TimeMinutes   int    `json:"time_minutes"`
	ImpactPoints  int    `json:"impact_points"`
	Rationale     string `json:"why_it_works"`
}

// Issue is one of the exactly three headline findings of a report.
type Issue struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Severity      Severity `json:"severity"`
	Remediation   string   `json:"fix"`
	CopyPasteText string   `json:"copy_paste_text"`
	TimeMinutes   int      `json:"time_minutes"`
	ImpactPoints  int      `json:"impact_points"`
	Rationale     string   `json:"why_it_works"`
}

// RevenueComparison carries the plan figure and industry benchmark as the
// model reported them; each side may be a number, a textual range, or
// missing. The formatted strings on Analysis are derived from it.
type RevenueComparison struct {
	Plan             any `json:"plan,omitempty"`
	Benchmark        any `json:"ihk_benchmark,omitempty"`
	DeviationPercent int `json:"deviation_percent,omitempty"`
}

// Analysis is the canonical scoring object consumed by the report
// renderer and the delivery handlers. After normalization it satisfies:
// len(Checklist) == 27, len(Issues) == 3, every WARNING/ERROR id has a
// Fix, Score <= PotentialScore <= the policy cap, and PositiveAspects is
// never empty.
type Analysis struct {
	ID                  string                     `json:"analysis_id,omitempty"`
	Score               int                        `json:"score"`
	PotentialScore      int                        `json:"potential_score"`
	ScoreImprovement    int                        `json:"score_improvement"`
	RiskLevel           RiskLevel                  `json:"risk_level"`
	BusinessName        string                     `json:"business_name"`
	DetectedIndustry    string                     `json:"detected_industry"`
	Summary             string                     `json:"personalized_summary,omitempty"`
	EstimatedRevenue    string                     `json:"estimated_revenue"`
	BenchmarkRevenue    string                     `json:"benchmark_revenue"`
	Revenue             RevenueComparison          `json:"revenue_comparison"`
	PositiveAspects     []string                   `json:"positive_aspects"`
	Checklist           map[string]CriterionStatus `json:"criteria_checklist"`
	Fixes               map[string]Fix             `json:"criteria_fixes"`
	Issues              []Issue                    `json:"issues"`
	FulfilledCount      int                        `json:"criteria_fulfilled_count"`
	TotalCount          int                        `json:"criteria_total_count"`
	TotalFixTimeMinutes int                        `json:"total_fix_time_minutes"`
	TotalFixesCount     int                        `json:"total_fixes_count"`
	Error               string                     `json:"error,omitempty"`
}

// Flagged reports whether a status requires a fix.
func (s CriterionStatus) Flagged() bool {
	return s == StatusWarning || s == StatusError
}
