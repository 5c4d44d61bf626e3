package analyzers

import "github.com/rjdeboer/captare/internal/models"

// Country carries the label and the query suffix that pins search
// results to a national market.
type Country struct {
	Key    string
	Label  string
	Suffix string
}

// countries is the supported market list, in emission order.
var countries = []Country{
	{Key: "NL", Label: "Nederland", Suffix: "Nederland site:.nl"},
	{Key: "BE", Label: "België", Suffix: "België site:.be"},
	{Key: "DE", Label: "Deutschland", Suffix: "Deutschland site:.de"},
}

// Sector is one taxonomy entry: a key, display label and the base query
// templates emitted for it.
type Sector struct {
	Key     string   `json:"key"`
	Label   string   `json:"label"`
	Queries []string `json:"queries"`
}

// selectCountries resolves the configured country keys; an empty list
// selects all markets. Unknown keys are skipped.
func selectCountries(keys []string) []Country {
	if len(keys) == 0 {
		return countries
	}

	var out []Country
	for _, key := range keys {
		for _, c := range countries {
			if c.Key == key {
				out = append(out, c)
			}
		}
	}
	return out
}

// selectSectors resolves the configured sector keys against a taxonomy;
// an empty list selects everything.
func selectSectors(sectors []Sector, keys []string) []Sector {
	if len(keys) == 0 {
		return sectors
	}

	var out []Sector
	for _, key := range keys {
		for _, s := range sectors {
			if s.Key == key {
				out = append(out, s)
			}
		}
	}
	return out
}

// buildQueries emits the Cartesian product of sectors × countries, one
// QuerySpec per base-query template.
func buildQueries(sectors []Sector, cfg models.JobConfig) []models.QuerySpec {
	selSectors := selectSectors(sectors, cfg.SectorKeys)
	selCountries := selectCountries(cfg.CountryKeys)

	var specs []models.QuerySpec
	for _, sector := range selSectors {
		for _, country := range selCountries {
			for _, base := range sector.Queries {
				specs = append(specs, models.QuerySpec{
					Query:        base + " " + country.Suffix,
					SectorKey:    sector.Key,
					SectorLabel:  sector.Label,
					CountryKey:   country.Key,
					CountryLabel: country.Label,
				})
			}
		}
	}
	return specs
}
