package analyzers

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/ternarybob/arbor"
)

// defaultERPSectors is the built-in taxonomy used when no sectors file
// is configured or the file cannot be read.
var defaultERPSectors = []Sector{
	{
		Key:   "productie",
		Label: "Productie & Maakindustrie",
		Queries: []string{
			"productiebedrijf machinebouw",
			"maakindustrie toeleverancier metaal",
			"fabrikant industriële producten",
		},
	},
	{
		Key:   "groothandel",
		Label: "Groothandel & Distributie",
		Queries: []string{
			"groothandel technische producten",
			"distributeur bouwmaterialen",
			"importeur groothandel b2b",
		},
	},
	{
		Key:   "logistiek",
		Label: "Logistiek & Warehousing",
		Queries: []string{
			"logistiek dienstverlener warehousing",
			"transportbedrijf opslag distributie",
			"fulfilment partner e-commerce",
		},
	},
	{
		Key:   "installatie",
		Label: "Installatie & Techniek",
		Queries: []string{
			"installatiebedrijf werktuigbouw",
			"technisch installatiebedrijf industrie",
			"elektrotechnisch bedrijf projecten",
		},
	},
}

// DefaultERPSectors returns the built-in ERP taxonomy.
func DefaultERPSectors() []Sector {
	out := make([]Sector, len(defaultERPSectors))
	copy(out, defaultERPSectors)
	return out
}

// DefaultRecruitmentSectors returns the built-in recruitment taxonomy.
func DefaultRecruitmentSectors() []Sector {
	out := make([]Sector, len(defaultRecruitmentSectors))
	copy(out, defaultRecruitmentSectors)
	return out
}

// SectorStore holds the hot-reloadable ERP sector taxonomy.
type SectorStore struct {
	mu      sync.RWMutex
	path    string
	sectors []Sector
	logger  arbor.ILogger
}

// NewSectorStore loads the taxonomy from path, falling back to the
// supplied defaults when the file is missing.
func NewSectorStore(path string, defaults []Sector, logger arbor.ILogger) *SectorStore {
	s := &SectorStore{
		path:    path,
		sectors: defaults,
		logger:  logger,
	}

	if path != "" {
		if err := s.Reload(); err != nil {
			logger.Warn().Err(err).Str("path", path).Msg("Using built-in sector taxonomy")
		}
	}
	return s
}

// Sectors returns a copy of the current taxonomy.
func (s *SectorStore) Sectors() []Sector {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Sector, len(s.sectors))
	copy(out, s.sectors)
	return out
}

// Reload re-reads the sectors file. The previous taxonomy stays active
// when the file is unreadable or invalid.
func (s *SectorStore) Reload() error {
	if s.path == "" {
		return fmt.Errorf("no sectors file configured")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("failed to read sectors file: %w", err)
	}

	var sectors []Sector
	if err := json.Unmarshal(data, &sectors); err != nil {
		return fmt.Errorf("failed to parse sectors file %s: %w", s.path, err)
	}
	if len(sectors) == 0 {
		return fmt.Errorf("sectors file %s is empty", s.path)
	}

	s.mu.Lock()
	s.sectors = sectors
	s.mu.Unlock()

	s.logger.Info().Int("sectors", len(sectors)).Str("path", s.path).Msg("Sector taxonomy reloaded")
	return nil
}
