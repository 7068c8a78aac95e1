// Package report turns a normalized analysis into the customer-facing
// German report, first as markdown and then as a printed PDF.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/LukaSashic/gruenderai/internal/analysis"
	"github.com/LukaSashic/gruenderai/internal/criteria"
)

var statusLabels = map[analysis.CriterionStatus]string{
	analysis.StatusOK:       "✅ Erfüllt",
	analysis.StatusWarning:  "⚠️ Lückenhaft",
	analysis.StatusError:    "❌ Kritisch",
	analysis.StatusNotFound: "➖ Nicht gefunden",
}

var riskLabels = map[analysis.RiskLevel]string{
	analysis.RiskLow:      "NIEDRIG",
	analysis.RiskMedium:   "MITTEL",
	analysis.RiskHigh:     "HOCH",
	analysis.RiskCritical: "KRITISCH",
}

// BuildMarkdown renders the full report for one analysis. The output is
// deterministic for a given analysis, which keeps the PDF reproducible.
func BuildMarkdown(a analysis.Analysis, generatedAt time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Businessplan-Analyse: %s\n\n", a.BusinessName)
	fmt.Fprintf(&b, "- Branche: %s\n", a.DetectedIndustry)
	fmt.Fprintf(&b, "- Erstellt am: %s\n", generatedAt.Format("02.01.2006"))
	fmt.Fprintf(&b, "- Analyse-ID: %s\n\n", a.ID)

	fmt.Fprintf(&b, "## Gesamtbewertung\n\n")
	fmt.Fprintf(&b, "| Kennzahl | Wert |\n|---|---|\n")
	fmt.Fprintf(&b, "| Punktzahl | **%d / 100** |\n", a.Score)
	fmt.Fprintf(&b, "| Erreichbar nach Korrekturen | **%d / 100** |\n", a.PotentialScore)
	fmt.Fprintf(&b, "| Verbesserungspotenzial | +%d Punkte |\n", a.ScoreImprovement)
	fmt.Fprintf(&b, "| Risiko einer Ablehnung | %s |\n", riskLabels[a.RiskLevel])
	fmt.Fprintf(&b, "| Erfüllte Kriterien | %d von %d |\n\n", a.FulfilledCount, a.TotalCount)

	if a.Summary != "" {
		fmt.Fprintf(&b, "%s\n\n", a.Summary)
	}

	if len(a.PositiveAspects) > 0 {
		fmt.Fprintf(&b, "## Stärken Ihres Businessplans\n\n")
		for _, p := range a.PositiveAspects {
			fmt.Fprintf(&b, "- %s\n", p)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Umsatzplanung im Branchenvergleich\n\n")
	fmt.Fprintf(&b, "- Ihre Planung: %s\n", a.EstimatedRevenue)
	fmt.Fprintf(&b, "- Branchenüblich (IHK): %s\n\n", a.BenchmarkRevenue)

	fmt.Fprintf(&b, "## Die drei wichtigsten Handlungsfelder\n\n")
	for i, issue := range a.Issues {
		fmt.Fprintf(&b, "### %d. %s\n\n", i+1, issue.Title)
		if issue.Description != "" {
			fmt.Fprintf(&b, "%s\n\n", issue.Description)
		}
		fmt.Fprintf(&b, "- Schweregrad: %s\n", severityLabel(issue.Severity))
		if issue.Remediation != "" {
			fmt.Fprintf(&b, "- Empfehlung: %s\n", issue.Remediation)
		}
		if issue.TimeMinutes > 0 {
			fmt.Fprintf(&b, "- Zeitaufwand: ca. %d Minuten\n", issue.TimeMinutes)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "## Prüfkriterien im Detail\n\n")
	for _, cat := range criteria.Categories() {
		fmt.Fprintf(&b, "### %s\n\n", cat.Name)
		fmt.Fprintf(&b, "| Kriterium | Status |\n|---|---|\n")
		for _, c := range cat.Criteria {
			status, ok := a.Checklist[c.ID]
			if !ok {
				status = analysis.StatusNotFound
			}
			fmt.Fprintf(&b, "| %s – %s | %s |\n", c.ID, c.Name, statusLabels[status])
		}
		b.WriteString("\n")
	}

	if len(a.Fixes) > 0 {
		fmt.Fprintf(&b, "## Korrekturvorlagen zum Übernehmen\n\n")
		fmt.Fprintf(&b, "Die folgenden Textbausteine schließen die gefundenen Lücken. Passen Sie Zahlen und Namen an Ihr Vorhaben an.\n\n")
		for _, c := range criteria.Categories() {
			for _, crit := range c.Criteria {
				fix, ok := a.Fixes[crit.ID]
				if !ok {
					continue
				}
				fmt.Fprintf(&b, "### %s – %s\n\n", crit.ID, crit.Name)
				if fix.Problem != "" {
					fmt.Fprintf(&b, "%s\n\n", fix.Problem)
				}
				if fix.CopyPasteText != "" {
					fmt.Fprintf(&b, "> %s\n\n", strings.ReplaceAll(fix.CopyPasteText, "\n", "\n> "))
				}
				if fix.ImpactPoints > 0 || fix.TimeMinutes > 0 {
					fmt.Fprintf(&b, "- Wirkung: +%d Punkte, Aufwand ca. %d Minuten\n", fix.ImpactPoints, fix.TimeMinutes)
				}
				if fix.Rationale != "" {
					fmt.Fprintf(&b, "- Warum das wirkt: %s\n", fix.Rationale)
				}
				b.WriteString("\n")
			}
		}
	}

	fmt.Fprintf(&b, "## Nächste Schritte\n\n")
	fmt.Fprintf(&b, "1. Arbeiten Sie die drei Handlungsfelder in der angegebenen Reihenfolge ab (Gesamtaufwand ca. %d Minuten).\n", a.TotalFixTimeMinutes)
	fmt.Fprintf(&b, "2. Übernehmen Sie die Korrekturvorlagen und passen Sie die Platzhalter an.\n")
	fmt.Fprintf(&b, "3. Reichen Sie den überarbeiteten Plan bei Ihrer fachkundigen Stelle ein.\n\n")
	fmt.Fprintf(&b, "---\n\n")
	fmt.Fprintf(&b, "*Diese Analyse wurde automatisch erstellt und ersetzt keine individuelle Gründungsberatung.*\n")

	return b.String()
}

func severityLabel(s analysis.Severity) string {
	switch s {
	case analysis.SeverityCritical:
		return "KRITISCH"
	case analysis.SeverityHigh:
		return "HOCH"
	default:
		return "MITTEL"
	}
}
