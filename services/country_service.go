package services

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/camden-git/genealogybackend/database"
	"github.com/camden-git/genealogybackend/models"
)

// CountryService translates historical country names. Normalize works on an
// in-memory snapshot of former_countries; Reload refreshes it.
type CountryService struct {
	sql      *database.SQL
	mu       sync.RWMutex
	snapshot []models.FormerCountry
}

func NewCountryService(sql *database.SQL) *CountryService {
	return &CountryService{sql: sql}
}

// Reload replaces the snapshot with the current table contents
func (s *CountryService) Reload(ctx context.Context) error {
	rows, err := s.sql.ListFormerCountries(ctx)
	if err != nil {
		return fmt.Errorf("failed to load former countries: %w", err)
	}
	s.mu.Lock()
	s.snapshot = rows
	s.mu.Unlock()
	log.Printf("countries: loaded %d former country mappings", len(rows))
	return nil
}

// List returns a copy of the snapshot
func (s *CountryService) List() []models.FormerCountry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.FormerCountry, len(s.snapshot))
	copy(out, s.snapshot)
	return out
}

// Normalize returns the modern name for a historical country valid at the
// given date, or the trimmed input when nothing matches
func (s *CountryService) Normalize(name string, at *time.Time) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.NormalizeCountry(s.snapshot, name, at)
}

// NormalizePtr is Normalize for optional columns
func (s *CountryService) NormalizePtr(name *string, at *time.Time) *string {
	if name == nil {
		return nil
	}
	modern := s.Normalize(*name, at)
	return &modern
}

// Lookup returns every mapping recorded for a former name
func (s *CountryService) Lookup(ctx context.Context, formerName string) ([]models.FormerCountry, error) {
	return s.sql.FindFormerCountriesByName(ctx, formerName)
}

// Aliases returns the former names that map to a modern country
func (s *CountryService) Aliases(ctx context.Context, modernName string) ([]string, error) {
	return s.sql.FormerNamesOf(ctx, modernName)
}
