package models

import (
	"strings"
	"time"
)

// FormerCountry maps a historical country name, valid over an interval, to its
// modern equivalent. It has no foreign keys.
type FormerCountry struct {
	ID         uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	FormerName string     `gorm:"not null;index;uniqueIndex:idx_former_name_from" json:"former_name"`
	ModernName string     `gorm:"not null;index" json:"modern_name"`
	DateFrom   *time.Time `gorm:"uniqueIndex:idx_former_name_from" json:"date_from,omitempty"`
	DateTo     *time.Time `gorm:"" json:"date_to,omitempty"`
}

func (FormerCountry) TableName() string {
	return "former_countries"
}

func (fc *FormerCountry) Validate() error {
	fc.FormerName = strings.TrimSpace(fc.FormerName)
	fc.ModernName = strings.TrimSpace(fc.ModernName)
	if fc.FormerName == "" {
		return invalid("former_name", ErrRequiredField)
	}
	if fc.ModernName == "" {
		return invalid("modern_name", ErrRequiredField)
	}
	return checkInterval("date_to", fc.DateFrom, fc.DateTo)
}

// Matches reports whether this row translates name at the given date. An
// unknown date matches any validity interval.
func (fc *FormerCountry) Matches(name string, at *time.Time) bool {
	if !strings.EqualFold(strings.TrimSpace(name), fc.FormerName) {
		return false
	}
	if at == nil {
		return true
	}
	return coversDate(fc.DateFrom, fc.DateTo, *at)
}

// NormalizeCountry translates a historical country name into its modern
// equivalent using the given lookup rows. Unknown names are returned trimmed
// but otherwise unchanged.
func NormalizeCountry(table []FormerCountry, name string, at *time.Time) string {
	trimmed := strings.TrimSpace(name)
	for i := range table {
		if table[i].Matches(trimmed, at) {
			return table[i].ModernName
		}
	}
	return trimmed
}
