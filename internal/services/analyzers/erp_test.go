package analyzers

import (
	"strings"
	"testing"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
)

func newTestERPAnalyzer() *ERPAnalyzer {
	logger := arbor.NewLogger()
	store := NewSectorStore("", defaultERPSectors, logger)
	return NewERPAnalyzer(store, logger)
}

func TestTierScore(t *testing.T) {
	tests := []struct {
		name   string
		hits   int
		weight int
		want   int
	}{
		{"no hits", 0, 30, 0},
		{"one hit 40pct", 1, 30, 12},
		{"two hits 70pct", 2, 30, 21},
		{"three hits full", 3, 30, 30},
		{"many hits capped at full", 7, 30, 30},
		{"one hit rounds", 1, 25, 10},
		{"two hits round up", 2, 25, 18},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tierScore(tt.hits, tt.weight); got != tt.want {
				t.Errorf("tierScore(%d, %d) = %d, want %d", tt.hits, tt.weight, got, tt.want)
			}
		})
	}
}

func TestERPAnalyzeLogisticsWithDomainBonus(t *testing.T) {
	a := newTestERPAnalyzer()

	result, err := a.Analyze(interfaces.AnalyzeInput{
		Text:   "warehouse inventory logistics",
		URL:    "https://example.nl",
		Domain: "example.nl",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// Three logistics hits score the full 30; no B2B signal, so the
	// .nl domain adds the +2 market bonus.
	if result.Score != 32 {
		t.Errorf("Score = %d, want 32", result.Score)
	}

	breakdown := result.Data["breakdown"].(map[string]interface{})
	logistics := breakdown["logistics"].(map[string]interface{})
	if logistics["score"].(int) != 30 {
		t.Errorf("logistics score = %v, want 30", logistics["score"])
	}
	b2b := breakdown["b2b"].(map[string]interface{})
	if b2b["score"].(int) != 2 {
		t.Errorf("b2b score = %v, want 2 (domain bonus)", b2b["score"])
	}
}

func TestERPAnalyzeNoBonusWithB2BSignal(t *testing.T) {
	a := newTestERPAnalyzer()

	result, err := a.Analyze(interfaces.AnalyzeInput{
		Text:   "groothandel voor zakelijke klanten",
		URL:    "https://example.nl",
		Domain: "example.nl",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}

	// Two B2B hits (groothandel, zakelijk) score 14; the bonus only
	// applies when the dimension scored zero.
	breakdown := result.Data["breakdown"].(map[string]interface{})
	b2b := breakdown["b2b"].(map[string]interface{})
	if b2b["score"].(int) != 14 {
		t.Errorf("b2b score = %v, want 14", b2b["score"])
	}
}

func TestERPAnalyzeNoBonusForOtherTLD(t *testing.T) {
	a := newTestERPAnalyzer()

	result, err := a.Analyze(interfaces.AnalyzeInput{
		Text:   "warehouse",
		URL:    "https://example.com",
		Domain: "example.com",
	})
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if result.Score != 12 {
		t.Errorf("Score = %d, want 12 (single logistics hit, no bonus)", result.Score)
	}
}

func TestERPAnalyzeDeterministic(t *testing.T) {
	a := newTestERPAnalyzer()
	in := interfaces.AnalyzeInput{
		Text:   "magazijn distributie erp sap medewerkers b2b",
		URL:    "https://example.be",
		Domain: "example.be",
	}

	first, err := a.Analyze(in)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	second, err := a.Analyze(in)
	if err != nil {
		t.Fatalf("Analyze() error = %v", err)
	}
	if first.Score != second.Score {
		t.Errorf("scores differ across runs: %d vs %d", first.Score, second.Score)
	}
}

func TestERPGenerateQueries(t *testing.T) {
	a := newTestERPAnalyzer()

	specs := a.GenerateQueries(models.JobConfig{
		SectorKeys:  []string{"logistiek"},
		CountryKeys: []string{"NL"},
	})

	if len(specs) != 3 {
		t.Fatalf("got %d queries, want 3 (one sector, one country, three templates)", len(specs))
	}
	for _, spec := range specs {
		if !strings.HasSuffix(spec.Query, "Nederland site:.nl") {
			t.Errorf("query %q missing NL suffix", spec.Query)
		}
		if spec.SectorKey != "logistiek" || spec.CountryKey != "NL" {
			t.Errorf("unexpected spec metadata: %+v", spec)
		}
	}
}

func TestERPGenerateQueriesAllMarkets(t *testing.T) {
	a := newTestERPAnalyzer()

	specs := a.GenerateQueries(models.JobConfig{})

	// 4 sectors x 3 countries x 3 templates.
	if len(specs) != 36 {
		t.Fatalf("got %d queries, want 36", len(specs))
	}
}
