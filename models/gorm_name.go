package models

import (
	"strings"
	"time"
)

// Name is a name an individual held during [DateFrom, DateTo]. A null DateTo
// marks the current name; there is at most one per individual.
// It corresponds to the 'names' table.
type Name struct {
	ID           uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	IndividualID uint       `gorm:"not null;index" json:"individual_id"` // Foreign key to individuals table
	GivenName    string     `gorm:"not null;index" json:"given_name"`
	MiddleName   *string    `gorm:"" json:"middle_name,omitempty"`
	Surname      string     `gorm:"not null;index" json:"surname"`
	Title        *string    `gorm:"" json:"title,omitempty"`
	Suffix       *string    `gorm:"" json:"suffix,omitempty"`
	DateFrom     *time.Time `gorm:"" json:"date_from,omitempty"`
	DateTo       *time.Time `gorm:"" json:"date_to,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (Name) TableName() string {
	return "names"
}

func (n *Name) IsCurrent() bool {
	return n.DateTo == nil
}

func (n *Name) Validate() error {
	n.GivenName = strings.TrimSpace(n.GivenName)
	n.Surname = strings.TrimSpace(n.Surname)
	if n.GivenName == "" && n.Surname == "" {
		return invalid("given_name", ErrRequiredField)
	}
	return checkInterval("date_to", n.DateFrom, n.DateTo)
}

// FullName joins the non-empty parts in display order.
func (n *Name) FullName() string {
	parts := make([]string, 0, 5)
	for _, p := range []*string{n.Title, &n.GivenName, n.MiddleName, &n.Surname, n.Suffix} {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, strings.TrimSpace(*p))
		}
	}
	return strings.Join(parts, " ")
}
