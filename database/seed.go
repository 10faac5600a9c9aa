package database

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/camden-git/genealogybackend/models"
)

const seedDateLayout = "2006-01-02"

type formerCountrySeed struct {
	FormerName string `yaml:"former_name"`
	ModernName string `yaml:"modern_name"`
	DateFrom   string `yaml:"date_from,omitempty"`
	DateTo     string `yaml:"date_to,omitempty"`
}

type seedFile struct {
	FormerCountries []formerCountrySeed `yaml:"former_countries"`
}

func parseSeedDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(seedDateLayout, raw)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ParseFormerCountries decodes the YAML seed document.
func ParseFormerCountries(data []byte) ([]models.FormerCountry, error) {
	var doc seedFile
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse former countries seed: %w", err)
	}
	entries := make([]models.FormerCountry, 0, len(doc.FormerCountries))
	for i, raw := range doc.FormerCountries {
		from, err := parseSeedDate(raw.DateFrom)
		if err != nil {
			return nil, fmt.Errorf("former country #%d (%s): bad date_from: %w", i, raw.FormerName, err)
		}
		to, err := parseSeedDate(raw.DateTo)
		if err != nil {
			return nil, fmt.Errorf("former country #%d (%s): bad date_to: %w", i, raw.FormerName, err)
		}
		fc := models.FormerCountry{FormerName: raw.FormerName, ModernName: raw.ModernName, DateFrom: from, DateTo: to}
		if err := fc.Validate(); err != nil {
			return nil, fmt.Errorf("former country #%d (%s): %w", i, raw.FormerName, err)
		}
		entries = append(entries, fc)
	}
	return entries, nil
}

// SeedFormerCountries inserts entries that are not yet present, keyed on
// (former_name, date_from). Returns the number of rows inserted.
func SeedFormerCountries(db *gorm.DB, entries []models.FormerCountry) (int, error) {
	inserted := 0
	err := db.Transaction(func(tx *gorm.DB) error {
		for _, entry := range entries {
			q := tx.Model(&models.FormerCountry{}).Where("former_name = ?", entry.FormerName)
			if entry.DateFrom == nil {
				q = q.Where("date_from IS NULL")
			} else {
				q = q.Where("date_from = ?", *entry.DateFrom)
			}
			var count int64
			if err := q.Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check former country %s: %w", entry.FormerName, err)
			}
			if count > 0 {
				continue
			}
			row := entry
			row.ID = 0
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert former country %s: %w", entry.FormerName, err)
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// SeedFormerCountriesFromFile loads the YAML seed at path. A missing file is
// not an error.
func SeedFormerCountriesFromFile(db *gorm.DB, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Printf("Info: former countries seed %s not found, skipping", path)
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read former countries seed %s: %w", path, err)
	}
	entries, err := ParseFormerCountries(data)
	if err != nil {
		return 0, err
	}
	n, err := SeedFormerCountries(db, entries)
	if err != nil {
		return 0, err
	}
	log.Printf("seeded %d former country entries from %s (%d already present)", n, path, len(entries)-n)
	return n, nil
}
