package criteria

import (
	"strings"
	"testing"
)

func TestCatalogShape(t *testing.T) {
	ids := AllIDs()
	if len(ids) != 27 {
		t.Fatalf("expected 27 criterion ids, got %d", len(ids))
	}
	seen := map[string]bool{}
	for _, id := range ids {
		if seen[id] {
			t.Fatalf("duplicate criterion id %s", id)
		}
		seen[id] = true
	}
	wantSizes := []int{6, 6, 5, 4, 3, 3}
	cats := Categories()
	if len(cats) != len(wantSizes) {
		t.Fatalf("expected %d categories, got %d", len(wantSizes), len(cats))
	}
	for i, cat := range cats {
		if len(cat.Criteria) != wantSizes[i] {
			t.Errorf("category %s: expected %d criteria, got %d", cat.Key, wantSizes[i], len(cat.Criteria))
		}
	}
}

func TestLookupKnown(t *testing.T) {
	c := Lookup("G4")
	if c.Name != "Keine Angestellten Jahr 1" || c.MaxPoints != 5 {
		t.Fatalf("unexpected criterion: %+v", c)
	}
	if c.Category != "Grundvoraussetzungen" {
		t.Fatalf("expected category to be set, got %q", c.Category)
	}
}

func TestLookupUnknownFallsBack(t *testing.T) {
	c := Lookup("X9")
	if c.ID != "X9" || c.Name != "X9" || c.MaxPoints != DefaultMaxPoints {
		t.Fatalf("unexpected fallback: %+v", c)
	}
}

func TestPromptSectionMentionsEveryCriterion(t *testing.T) {
	section := PromptSection()
	for _, id := range AllIDs() {
		if !strings.Contains(section, id+":") {
			t.Errorf("prompt section missing %s", id)
		}
	}
}
