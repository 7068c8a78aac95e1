package analysis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RawAnalysis is the tolerant decode target for the model's free-text
// JSON. No field is trusted to be present or well-typed; numbers may
// arrive as strings and enum values in German or English.
type RawAnalysis struct {
	Score            any               `json:"score"`
	RiskLevel        string            `json:"risk_level"`
	DetectedIndustry string            `json:"detected_industry"`
	BusinessName     string            `json:"business_name"`
	Summary          string            `json:"personalized_summary"`
	PositiveAspects  []string          `json:"positive_aspects"`
	Issues           []RawIssue        `json:"issues"`
	Checklist        map[string]string `json:"criteria_checklist"`
	Fixes            map[string]RawFix `json:"criteria_fixes"`
	Revenue          RawRevenue        `json:"revenue_comparison"`
}

type RawIssue struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	Severity      string `json:"severity"`
	Remediation   string `json:"fix"`
	CopyPasteText string `json:"copy_paste_text"`
	TimeMinutes   any    `json:"time_minutes"`
	ImpactPoints  any    `json:"impact_points"`
	Rationale     string `json:"why_it_works"`
}

type RawFix struct {
	Problem       string `json:"problem"`
	CopyPasteText string `json:"copy_paste_text"`
	TimeMinutes   any    `json:"time_minutes"`
	ImpactPoints  any    `json:"impact_points"`
	Rationale     string `json:"why_it_works"`
}

type RawRevenue struct {
	Plan             any `json:"plan"`
	Benchmark        any `json:"ihk_benchmark"`
	DeviationPercent any `json:"deviation_percent"`
}

// ParseRaw decodes the model's text response. Fence markers around the
// JSON body are tolerated; anything that still fails to decode is an
// error the caller turns into the degraded analysis.
func ParseRaw(text string) (RawAnalysis, error) {
	clean := stripCodeFences(text)
	if strings.TrimSpace(clean) == "" {
		return RawAnalysis{}, fmt.Errorf("empty model response")
	}
	var raw RawAnalysis
	if err := json.Unmarshal([]byte(clean), &raw); err != nil {
		return RawAnalysis{}, fmt.Errorf("decode model response: %w", err)
	}
	return raw, nil
}

func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		parts := strings.SplitN(s, "\n", 2)
		if len(parts) == 2 {
			s = parts[1]
		}
		s = strings.TrimPrefix(s, "json")
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	return s
}

// parseStatus maps a raw status string (German or English, any case) to
// the canonical status. Anything unrecognized counts as NOT_FOUND.
func parseStatus(s string) CriterionStatus {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OK":
		return StatusOK
	case "WARNING", "WARNUNG":
		return StatusWarning
	case "ERROR", "FEHLER":
		return StatusError
	default:
		return StatusNotFound
	}
}

// parseSeverity maps a raw severity (German or English) onto the three
// canonical tiers, defaulting to MEDIUM.
func parseSeverity(s string) Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CRITICAL", "KRITISCH":
		return SeverityCritical
	case "HIGH", "HOCH":
		return SeverityHigh
	default:
		return SeverityMedium
	}
}

// asInt coerces a JSON value that should be an integer. Floats are
// truncated, numeric strings parsed; anything else yields def. Negative
// values are clamped to zero because every integer field in the canonical
// object is a count, duration, or point value.
func asInt(v any, def int) int {
	var n int
	switch t := v.(type) {
	case float64:
		n = int(t)
	case int:
		n = t
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return def
		}
		n = int(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return def
		}
		n = int(f)
	default:
		return def
	}
	if n < 0 {
		return 0
	}
	return n
}
