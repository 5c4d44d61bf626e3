package models

// QuerySpec is a concrete search-engine query plus its sector/country
// provenance. Produced by Analyzer.GenerateQueries and immutable from
// that point on.
type QuerySpec struct {
	Query        string `json:"query"`
	SectorKey    string `json:"sector_key"`
	SectorLabel  string `json:"sector_label"`
	CountryKey   string `json:"country_key"`
	CountryLabel string `json:"country_label"`
}
