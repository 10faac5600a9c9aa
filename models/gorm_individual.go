package models

import (
	"fmt"
	"strings"
	"time"
)

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderOther   Gender = "other"
	GenderUnknown Gender = "unknown"
)

// ParseGender normalises user input; empty means unknown.
func ParseGender(s string) (Gender, error) {
	switch g := Gender(strings.ToLower(strings.TrimSpace(s))); g {
	case "":
		return GenderUnknown, nil
	case GenderMale, GenderFemale, GenderOther, GenderUnknown:
		return g, nil
	default:
		return "", invalid("gender", fmt.Errorf("%w: %q", ErrInvalidEnum, s))
	}
}

// Individual represents a person record in the genealogical database.
// It corresponds to the 'individuals' table. Rows are never deleted.
type Individual struct {
	ID uint `gorm:"primaryKey;autoIncrement" json:"id"`

	DateOfBirth       *time.Time `gorm:"index" json:"date_of_birth,omitempty"`
	BirthMunicipality *string    `gorm:"" json:"birth_municipality,omitempty"`
	BirthState        *string    `gorm:"" json:"birth_state,omitempty"`
	BirthCountry      *string    `gorm:"index" json:"birth_country,omitempty"`

	DateOfDeath       *time.Time `gorm:"" json:"date_of_death,omitempty"` // null means living
	DeathMunicipality *string    `gorm:"" json:"death_municipality,omitempty"`
	DeathState        *string    `gorm:"" json:"death_state,omitempty"`
	DeathCountry      *string    `gorm:"" json:"death_country,omitempty"`

	Gender         Gender    `gorm:"not null;default:unknown" json:"gender"`
	Bio            string    `gorm:"type:text" json:"bio"`
	ProfileImageID *uint     `gorm:"" json:"profile_image_id,omitempty"` // one of this individual's own images
	IsPrivate      bool      `gorm:"not null;default:false;index" json:"is_private"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`

	// Relationships
	// omitempty will hide these if they are not preloaded or are empty
	Names       []Name       `gorm:"foreignKey:IndividualID;constraint:OnDelete:CASCADE" json:"names,omitempty"`
	Occupations []Occupation `gorm:"foreignKey:IndividualID;constraint:OnDelete:CASCADE" json:"occupations,omitempty"`
	Images      []Image      `gorm:"foreignKey:IndividualID;constraint:OnDelete:CASCADE" json:"images,omitempty"`
}

// TableName explicitly sets the table name for GORM.
func (Individual) TableName() string {
	return "individuals"
}

// IsLiving is true while no death date is recorded.
func (i *Individual) IsLiving() bool {
	return i.DateOfDeath == nil
}

// Validate checks the invariants the schema cannot express.
func (i *Individual) Validate() error {
	if i.Gender == "" {
		i.Gender = GenderUnknown
	}
	if _, err := ParseGender(string(i.Gender)); err != nil {
		return err
	}
	if i.DateOfBirth != nil && i.DateOfDeath != nil && i.DateOfDeath.Before(*i.DateOfBirth) {
		return invalid("date_of_death", ErrDeathBeforeBirth)
	}
	return nil
}

// CurrentName returns the open-ended name, if any. Names must be loaded.
func (i *Individual) CurrentName() *Name {
	for idx := range i.Names {
		if i.Names[idx].IsCurrent() {
			return &i.Names[idx]
		}
	}
	return nil
}

// DisplayName is the current name, falling back to the most recent closed one.
func (i *Individual) DisplayName() string {
	if n := i.CurrentName(); n != nil {
		return n.FullName()
	}
	var latest *Name
	for idx := range i.Names {
		n := &i.Names[idx]
		if latest == nil || (n.DateTo != nil && latest.DateTo != nil && n.DateTo.After(*latest.DateTo)) {
			latest = n
		}
	}
	if latest == nil {
		return ""
	}
	return latest.FullName()
}
