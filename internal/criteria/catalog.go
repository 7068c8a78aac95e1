// Package criteria holds the fixed BA GZ 04 scoring catalog: 27 criteria
// grouped into 6 categories. The catalog is immutable and defined at
// process start; it feeds both the model prompt and the report layout.
package criteria

import (
	"fmt"
	"strings"
)

type Criterion struct {
	ID          string
	Category    string
	Name        string
	Description string
	MaxPoints   int
}

type Category struct {
	Key      string
	Name     string
	Criteria []Criterion
}

// DefaultMaxPoints is assumed for unknown criterion ids so a lookup can
// never stall the scoring pipeline.
const DefaultMaxPoints = 3

var categories = []Category{
	{
		Key:  "grundvoraussetzungen",
		Name: "Grundvoraussetzungen",
		Criteria: []Criterion{
			{ID: "G1", Name: "Solo-Selbständigkeit", Description: "Gründung als Einzelperson", MaxPoints: 5},
			{ID: "G2", Name: "Einzelunternehmen/Freiberufler", Description: "Keine Kapitalgesellschaft", MaxPoints: 5},
			{ID: "G3", Name: "Keine Gesellschafter", Description: "Alleinige Inhaberschaft", MaxPoints: 4},
			{ID: "G4", Name: "Keine Angestellten Jahr 1", Description: "Solo-Start ohne Personal", MaxPoints: 5},
			{ID: "G5", Name: "Haupterwerb geplant", Description: "Mindestens 15 Stunden/Woche", MaxPoints: 4},
			{ID: "G6", Name: "ALG-Anspruch vorhanden", Description: "Mindestens 150 Tage Restanspruch", MaxPoints: 3},
		},
	},
	{
		Key:  "finanzplanung",
		Name: "Finanzplanung",
		Criteria: []Criterion{
			{ID: "F1", Name: "Realistische Umsatzprognose", Description: "Jahr 1: €40-60K typisch", MaxPoints: 6},
			{ID: "F2", Name: "Kostenaufstellung", Description: "Alle Betriebskosten erfasst", MaxPoints: 4},
			{ID: "F3", Name: "Liquiditätsplanung", Description: "Monatliche Cashflow-Übersicht", MaxPoints: 4},
			{ID: "F4", Name: "Break-Even Analyse", Description: "Gewinnschwelle definiert", MaxPoints: 3},
			{ID: "F5", Name: "Kapitalbedarf", Description: "Startkapital und Reserven", MaxPoints: 4},
			{ID: "F6", Name: "Privatentnahmen", Description: "Lebenshaltungskosten berücksichtigt", MaxPoints: 3},
		},
	},
	{
		Key:  "marktanalyse",
		Name: "Marktanalyse",
		Criteria: []Criterion{
			{ID: "M1", Name: "Zielgruppe definiert", Description: "Konkrete Kundenbeschreibung", MaxPoints: 4},
			{ID: "M2", Name: "Wettbewerbsanalyse", Description: "Konkurrenten identifiziert", MaxPoints: 4},
			{ID: "M3", Name: "USP formuliert", Description: "Alleinstellungsmerkmal klar", MaxPoints: 4},
			{ID: "M4", Name: "Marktgröße", Description: "Realistisches Marktpotenzial", MaxPoints: 3},
			{ID: "M5", Name: "Preiskalkulation", Description: "Nachvollziehbare Preise", MaxPoints: 3},
		},
	},
	{
		Key:  "geschaeftsmodell",
		Name: "Geschäftsmodell",
		Criteria: []Criterion{
			{ID: "B1", Name: "Leistungsbeschreibung", Description: "Klare Produkt-/Dienstleistungsdefinition", MaxPoints: 4},
			{ID: "B2", Name: "Kundenakquise", Description: "Vertriebsstrategie vorhanden", MaxPoints: 3},
			{ID: "B3", Name: "Marketing-Mix", Description: "Werbemaßnahmen geplant", MaxPoints: 3},
			{ID: "B4", Name: "Standortwahl", Description: "Begründete Standortentscheidung", MaxPoints: 3},
		},
	},
	{
		Key:  "qualifikation",
		Name: "Qualifikation & Erfahrung",
		Criteria: []Criterion{
			{ID: "Q1", Name: "Fachliche Eignung", Description: "Branchenerfahrung/-ausbildung", MaxPoints: 4},
			{ID: "Q2", Name: "Kaufmännische Kenntnisse", Description: "BWL-Grundlagen vorhanden", MaxPoints: 3},
			{ID: "Q3", Name: "Branchenkontakte", Description: "Netzwerk für Kundengewinnung", MaxPoints: 3},
		},
	},
	{
		Key:  "risikobewertung",
		Name: "Risikobewertung",
		Criteria: []Criterion{
			{ID: "R1", Name: "Risiken identifiziert", Description: "Mögliche Probleme benannt", MaxPoints: 3},
			{ID: "R2", Name: "Gegenmaßnahmen", Description: "Strategien zur Risikominimierung", MaxPoints: 3},
			{ID: "R3", Name: "Plan B vorhanden", Description: "Alternative bei Misserfolg", MaxPoints: 2},
		},
	},
}

var byID = func() map[string]Criterion {
	m := make(map[string]Criterion, 27)
	for _, cat := range categories {
		for _, c := range cat.Criteria {
			c.Category = cat.Name
			m[c.ID] = c
		}
	}
	return m
}()

// Categories returns the catalog in its canonical order.
func Categories() []Category {
	return categories
}

// AllIDs returns the 27 criterion ids in catalog order.
func AllIDs() []string {
	ids := make([]string, 0, len(byID))
	for _, cat := range categories {
		for _, c := range cat.Criteria {
			ids = append(ids, c.ID)
		}
	}
	return ids
}

// Lookup returns the criterion for id. Unknown ids yield a synthetic
// criterion named after the id with DefaultMaxPoints so callers never
// have to handle a miss.
func Lookup(id string) Criterion {
	if c, ok := byID[id]; ok {
		return c
	}
	return Criterion{ID: id, Name: id, MaxPoints: DefaultMaxPoints}
}

// PromptSection serializes the catalog into the instruction block handed
// to the model, one category per paragraph.
func PromptSection() string {
	var b strings.Builder
	for _, cat := range categories {
		fmt.Fprintf(&b, "\n%s:\n", cat.Name)
		for _, c := range cat.Criteria {
			fmt.Fprintf(&b, "  - %s: %s (%s) [Max: %d Punkte]\n", c.ID, c.Name, c.Description, c.MaxPoints)
		}
	}
	return b.String()
}
