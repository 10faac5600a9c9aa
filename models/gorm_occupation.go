package models

import (
	"strings"
	"time"
)

// Occupation is one employment period. Periods of the same individual may overlap.
type Occupation struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	IndividualID uint       `gorm:"not null;index" json:"individual_id"`
	Title        string     `gorm:"not null" json:"title"`
	Employer     *string    `gorm:"" json:"employer,omitempty"`
	Municipality *string    `gorm:"" json:"municipality,omitempty"`
	State        *string    `gorm:"" json:"state,omitempty"`
	Country      *string    `gorm:"" json:"country,omitempty"`
	DateFrom     *time.Time `gorm:"" json:"date_from,omitempty"`
	DateTo       *time.Time `gorm:"" json:"date_to,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

func (Occupation) TableName() string {
	return "occupations"
}

func (o *Occupation) Validate() error {
	o.Title = strings.TrimSpace(o.Title)
	if o.Title == "" {
		return invalid("title", ErrRequiredField)
	}
	return checkInterval("date_to", o.DateFrom, o.DateTo)
}
