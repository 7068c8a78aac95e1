package analysis

import (
	"fmt"

	"github.com/LukaSashic/gruenderai/internal/criteria"
)

// Policy holds the scoring knobs that were fixed constants in early
// versions: the practical ceiling for the potential score and the share
// of a criterion's points recoverable by fixing it.
type Policy struct {
	PotentialCap     int     `yaml:"potential_cap"`
	ErrorRecovery    float64 `yaml:"error_recovery"`
	WarningRecovery  float64 `yaml:"warning_recovery"`
	DefaultFixTime   int     `yaml:"default_fix_time_minutes"`
	DefaultIssueTime int     `yaml:"default_issue_time_minutes"`
}

// DefaultPolicy models "most but not all points are recoverable" and
// "95 is the ceiling while human review remains".
func DefaultPolicy() Policy {
	return Policy{
		PotentialCap:     95,
		ErrorRecovery:    0.85,
		WarningRecovery:  0.50,
		DefaultFixTime:   10,
		DefaultIssueTime: 15,
	}
}

const (
	defaultBusinessName = "Ihr Unternehmen"
	defaultIndustry     = "Dienstleistung"
	issueCount          = 3
	maxPositiveAspects  = 5
)

// Normalizer converts a raw model response into a canonical Analysis.
// Normalize never fails: whatever shape the input has, the output
// satisfies every invariant the renderer depends on. Each step is
// idempotent, so normalizing an already-canonical object changes nothing.
type Normalizer struct {
	policy Policy
}

func NewNormalizer(policy Policy) *Normalizer {
	if policy.PotentialCap <= 0 {
		policy = DefaultPolicy()
	}
	return &Normalizer{policy: policy}
}

func (n *Normalizer) Normalize(raw RawAnalysis) Analysis {
	out := Analysis{
		Score:            clampScore(asInt(raw.Score, 0)),
		BusinessName:     firstNonEmpty(raw.BusinessName, defaultBusinessName),
		DetectedIndustry: firstNonEmpty(raw.DetectedIndustry, defaultIndustry),
		Summary:          raw.Summary,
		Revenue: RevenueComparison{
			Plan:             raw.Revenue.Plan,
			Benchmark:        raw.Revenue.Benchmark,
			DeviationPercent: asInt(raw.Revenue.DeviationPercent, 0),
		},
	}
	out.RiskLevel = RiskForScore(out.Score)

	// Checklist completion: every catalog id gets exactly one status;
	// ids the catalog does not know are dropped.
	out.Checklist = make(map[string]CriterionStatus, 27)
	for _, id := range criteria.AllIDs() {
		if s, ok := raw.Checklist[id]; ok {
			out.Checklist[id] = parseStatus(s)
		} else {
			out.Checklist[id] = StatusNotFound
		}
	}

	// Fix backfill: upstream fixes pass through untouched; every flagged
	// criterion without one gets a synthesized generic fix.
	out.Fixes = make(map[string]Fix, len(raw.Fixes))
	for id, rf := range raw.Fixes {
		out.Fixes[id] = Fix{
			Problem:       rf.Problem,
			CopyPasteText: rf.CopyPasteText,
			TimeMinutes:   asInt(rf.TimeMinutes, n.policy.DefaultFixTime),
			ImpactPoints:  asInt(rf.ImpactPoints, 0),
			Rationale:     rf.Rationale,
		}
	}
	for id, status := range out.Checklist {
		if status.Flagged() {
			if _, ok := out.Fixes[id]; !ok {
				out.Fixes[id] = n.genericFix(id)
			}
		}
	}

	// Potential score: recoverable points accrue per flagged criterion
	// that carries a fix, which after backfill is all of them.
	recoverable := 0
	for id, status := range out.Checklist {
		if _, ok := out.Fixes[id]; !ok {
			continue
		}
		max := criteria.Lookup(id).MaxPoints
		switch status {
		case StatusError:
			recoverable += int(float64(max) * n.policy.ErrorRecovery)
		case StatusWarning:
			recoverable += int(float64(max) * n.policy.WarningRecovery)
		}
	}
	out.PotentialScore = out.Score + recoverable
	if out.PotentialScore > n.policy.PotentialCap {
		out.PotentialScore = n.policy.PotentialCap
	}
	if out.PotentialScore < out.Score {
		out.PotentialScore = out.Score
	}
	out.ScoreImprovement = out.PotentialScore - out.Score

	out.Issues = n.normalizeIssues(raw.Issues)
	out.PositiveAspects = normalizeAspects(raw.PositiveAspects)

	out.EstimatedRevenue = formatRevenue(raw.Revenue.Plan)
	out.BenchmarkRevenue = formatBenchmark(raw.Revenue.Benchmark)

	n.fillAggregates(&out)
	return out
}

// Degraded produces the fixed, complete fallback analysis emitted when
// the model response could not be used at all. Downstream rendering never
// sees a partial object.
func (n *Normalizer) Degraded(cause error) Analysis {
	out := Analysis{
		Score:            50,
		PotentialScore:   70,
		ScoreImprovement: 20,
		RiskLevel:        RiskHigh,
		BusinessName:     defaultBusinessName,
		DetectedIndustry: "Nicht erkannt",
		Summary:          "Automatische Analyse fehlgeschlagen. Bitte erneut versuchen.",
		EstimatedRevenue: missingRevenue,
		BenchmarkRevenue: defaultBenchmark,
		PositiveAspects: []string{
			"Business Plan wurde eingereicht",
			"Gründungsmotivation erkennbar",
		},
		Issues: []Issue{
			fallbackIssue(),
			genericIssue(2),
			genericIssue(3),
		},
		Checklist: make(map[string]CriterionStatus, 27),
		Fixes:     map[string]Fix{},
		Error:     "Analysefehler",
	}
	if cause != nil {
		out.Error = fmt.Sprintf("Analysefehler: %v", cause)
	}
	for _, id := range criteria.AllIDs() {
		out.Checklist[id] = StatusNotFound
	}
	out.FulfilledCount = 0
	out.TotalCount = len(out.Checklist)
	out.TotalFixTimeMinutes = 60
	out.TotalFixesCount = 0
	return out
}

func (n *Normalizer) normalizeIssues(raw []RawIssue) []Issue {
	issues := make([]Issue, 0, issueCount)
	for _, ri := range raw {
		if len(issues) == issueCount {
			break
		}
		issues = append(issues, Issue{
			Title:         ri.Title,
			Description:   ri.Description,
			Severity:      parseSeverity(ri.Severity),
			Remediation:   ri.Remediation,
			CopyPasteText: ri.CopyPasteText,
			TimeMinutes:   asInt(ri.TimeMinutes, n.policy.DefaultIssueTime),
			ImpactPoints:  asInt(ri.ImpactPoints, 0),
			Rationale:     ri.Rationale,
		})
	}
	if len(issues) == 0 {
		issues = append(issues, fallbackIssue())
	}
	for len(issues) < issueCount {
		issues = append(issues, genericIssue(len(issues)+1))
	}
	return issues
}

func normalizeAspects(aspects []string) []string {
	kept := make([]string, 0, maxPositiveAspects)
	for _, a := range aspects {
		if a == "" {
			continue
		}
		kept = append(kept, a)
		if len(kept) == maxPositiveAspects {
			break
		}
	}
	if len(kept) > 0 {
		return kept
	}
	return []string{
		"Geschäftsidee vorhanden und beschrieben",
		"Business Plan wurde eingereicht",
		"Motivation zur Selbständigkeit erkennbar",
	}
}

func (n *Normalizer) genericFix(id string) Fix {
	c := criteria.Lookup(id)
	return Fix{
		Problem:       fmt.Sprintf("%s nicht ausreichend dokumentiert", c.Name),
		CopyPasteText: fmt.Sprintf("Der Bereich '%s' wurde nach IHK-Empfehlungen geplant.", c.Name),
		TimeMinutes:   n.policy.DefaultFixTime,
		ImpactPoints:  c.MaxPoints,
		Rationale:     "Klare Dokumentation zeigt professionelle Vorbereitung.",
	}
}

func fallbackIssue() Issue {
	return Issue{
		Title:         "Dokumentenprüfung erforderlich",
		Description:   "Der Business Plan konnte nicht vollständig analysiert werden.",
		Severity:      SeverityMedium,
		Remediation:   "Stellen Sie sicher, dass alle Abschnitte vollständig sind.",
		CopyPasteText: "Der Business Plan wurde nach BA GZ 04 Kriterien erstellt.",
		TimeMinutes:   15,
		ImpactPoints:  5,
		Rationale:     "Vollständigkeit ist ein Grundkriterium für die Prüfung.",
	}
}

func genericIssue(index int) Issue {
	return Issue{
		Title:         fmt.Sprintf("Optimierungspotenzial #%d", index),
		Description:   "Weitere Verbesserungsmöglichkeiten vorhanden.",
		Severity:      SeverityMedium,
		Remediation:   "Überprüfen Sie alle Abschnitte auf Vollständigkeit.",
		CopyPasteText: "Die Planung orientiert sich an IHK-Branchenkennzahlen.",
		TimeMinutes:   10,
		ImpactPoints:  4,
		Rationale:     "IHK-Referenzen erhöhen die Glaubwürdigkeit.",
	}
}

func (n *Normalizer) fillAggregates(a *Analysis) {
	fulfilled := 0
	for _, s := range a.Checklist {
		if s == StatusOK {
			fulfilled++
		}
	}
	total := 0
	for _, f := range a.Fixes {
		total += f.TimeMinutes
	}
	for _, is := range a.Issues {
		total += is.TimeMinutes
	}
	a.FulfilledCount = fulfilled
	a.TotalCount = len(a.Checklist)
	a.TotalFixTimeMinutes = total
	a.TotalFixesCount = len(a.Fixes)
}

// FlaggedIDs returns the WARNING/ERROR criterion ids in catalog order,
// for stable report output.
func FlaggedIDs(a Analysis) []string {
	var ids []string
	for _, id := range criteria.AllIDs() {
		if a.Checklist[id].Flagged() {
			ids = append(ids, id)
		}
	}
	return ids
}

func clampScore(s int) int {
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}

func firstNonEmpty(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
