package analyzers

import (
	"context"
	"math"
	"strings"

	"github.com/ternarybob/arbor"

	"github.com/rjdeboer/captare/internal/interfaces"
	"github.com/rjdeboer/captare/internal/models"
)

// erpDimension is one weighted keyword group of the ERP-readiness
// score.
type erpDimension struct {
	key      string
	weight   int
	keywords []string
}

// The four dimensions sum to 100. Hit tiers: 3+ keywords = full weight,
// 2 = 70%, 1 = 40%.
var erpDimensions = []erpDimension{
	{
		key:    "logistics",
		weight: 30,
		keywords: []string{
			"warehouse", "inventory", "logistics", "supply chain", "voorraad",
			"magazijn", "distributie", "fulfilment", "wms", "transport",
		},
	},
	{
		key:    "process",
		weight: 25,
		keywords: []string{
			"erp", "sap", "exact online", "afas", "navision", "dynamics",
			"unit4", "boekhouding", "facturatie", "administratie", "werkbonnen",
		},
	},
	{
		key:    "scale",
		weight: 25,
		keywords: []string{
			"vestigingen", "locaties", "medewerkers", "employees", "productie",
			"fabriek", "machinepark", "assemblage", "international", "wereldwijd",
		},
	},
	{
		key:    "b2b",
		weight: 20,
		keywords: []string{
			"b2b", "zakelijk", "groothandel", "wholesale", "leverancier",
			"supplier", "distributeur", "oem", "industrie", "maakindustrie",
		},
	},
}

// domainBonusTLDs earn the +2 market bonus when the B2B dimension
// scored zero.
var domainBonusTLDs = []string{".nl", ".be", ".de"}

// ERPAnalyzer scores companies on ERP-readiness: logistics complexity,
// process signals, scale and B2B orientation.
type ERPAnalyzer struct {
	sectors *SectorStore
	logger  arbor.ILogger
}

// NewERPAnalyzer creates the ERP analyzer backed by the hot-reloadable
// sector taxonomy.
func NewERPAnalyzer(sectors *SectorStore, logger arbor.ILogger) *ERPAnalyzer {
	return &ERPAnalyzer{sectors: sectors, logger: logger}
}

func (a *ERPAnalyzer) Key() string { return "erp" }

// GenerateQueries emits sector × country × template queries.
func (a *ERPAnalyzer) GenerateQueries(cfg models.JobConfig) []models.QuerySpec {
	return buildQueries(a.sectors.Sectors(), cfg)
}

// FetchExtra is a no-op: the ERP score needs no pages beyond the
// homepage and contact pages.
func (a *ERPAnalyzer) FetchExtra(ctx context.Context, baseURL string, fetch interfaces.FetchFunc) (*interfaces.ExtraResult, error) {
	return &interfaces.ExtraResult{Data: map[string]interface{}{}}, nil
}

// Analyze scores the accumulated lowercase text against the four
// dimensions. Deterministic for identical input.
func (a *ERPAnalyzer) Analyze(in interfaces.AnalyzeInput) (*interfaces.AnalyzeResult, error) {
	text := strings.ToLower(in.Text)

	total := 0
	breakdown := make(map[string]interface{}, len(erpDimensions))
	b2bScore := 0

	for _, dim := range erpDimensions {
		var signals []string
		for _, kw := range dim.keywords {
			if strings.Contains(text, kw) {
				signals = append(signals, kw)
			}
		}

		score := tierScore(len(signals), dim.weight)
		total += score
		if dim.key == "b2b" {
			b2bScore = score
		}

		if len(signals) > 5 {
			signals = signals[:5]
		}
		breakdown[dim.key] = map[string]interface{}{
			"score":   score,
			"max":     dim.weight,
			"hits":    len(signals),
			"signals": signals,
		}
	}

	// Domestic-market bonus only when nothing else suggested B2B.
	if b2bScore == 0 && hasBonusTLD(in.Domain, in.URL) {
		total += 2
		breakdown["b2b"] = map[string]interface{}{
			"score":   2,
			"max":     20,
			"hits":    0,
			"signals": []string{"domain_bonus"},
		}
	}

	if total > 100 {
		total = 100
	}

	return &interfaces.AnalyzeResult{
		Score: total,
		Data: map[string]interface{}{
			"score":     total,
			"breakdown": breakdown,
		},
	}, nil
}

// tierScore maps distinct keyword hits to a share of the dimension
// weight: 3+ hits full, 2 hits 70%, 1 hit 40%.
func tierScore(hits, weight int) int {
	switch {
	case hits >= 3:
		return weight
	case hits == 2:
		return int(math.Round(0.7 * float64(weight)))
	case hits == 1:
		return int(math.Round(0.4 * float64(weight)))
	default:
		return 0
	}
}

func hasBonusTLD(domain, url string) bool {
	host := domain
	if host == "" {
		host = strings.ToLower(url)
	}
	host = strings.TrimSuffix(host, "/")
	for _, tld := range domainBonusTLDs {
		if strings.HasSuffix(host, tld) {
			return true
		}
	}
	return false
}

var _ interfaces.Analyzer = (*ERPAnalyzer)(nil)
