package models

import (
	"fmt"
	"strings"
	"time"
)

type ParentType string

const (
	ParentBiological ParentType = "biological"
	ParentAdoptive   ParentType = "adoptive"
	ParentStep       ParentType = "step"
	ParentFoster     ParentType = "foster"
	ParentUnknown    ParentType = "unknown"
)

func ParseParentType(s string) (ParentType, error) {
	switch t := ParentType(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return ParentBiological, nil
	case ParentBiological, ParentAdoptive, ParentStep, ParentFoster, ParentUnknown:
		return t, nil
	default:
		return "", invalid("relationship_type", fmt.Errorf("%w: %q", ErrInvalidEnum, s))
	}
}

type MarriageEndReason string

const (
	EndDivorce    MarriageEndReason = "divorce"
	EndDeath      MarriageEndReason = "death"
	EndAnnulment  MarriageEndReason = "annulment"
	EndSeparation MarriageEndReason = "separation"
	EndOther      MarriageEndReason = "other"
)

func ParseEndReason(s string) (MarriageEndReason, error) {
	switch r := MarriageEndReason(strings.ToLower(strings.TrimSpace(s))); r {
	case EndDivorce, EndDeath, EndAnnulment, EndSeparation, EndOther:
		return r, nil
	default:
		return "", invalid("end_reason", fmt.Errorf("%w: %q", ErrInvalidEnum, s))
	}
}

// ParentOf is a directed parent -> child edge. A child may have any number of
// parents (biological, adoptive, step).
type ParentOf struct {
	ID               uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	ParentID         uint        `gorm:"not null;uniqueIndex:idx_parent_child" json:"parent_id"`
	ChildID          uint        `gorm:"not null;uniqueIndex:idx_parent_child;index" json:"child_id"`
	RelationshipType ParentType  `gorm:"not null;default:biological" json:"relationship_type"`
	CreatedAt        time.Time   `json:"created_at"`
	Parent           *Individual `gorm:"foreignKey:ParentID;constraint:OnDelete:CASCADE" json:"-"`
	Child            *Individual `gorm:"foreignKey:ChildID;constraint:OnDelete:CASCADE" json:"-"`
}

func (ParentOf) TableName() string {
	return "parent_of"
}

func (p *ParentOf) Validate() error {
	if p.ParentID == 0 {
		return invalid("parent_id", ErrRequiredField)
	}
	if p.ChildID == 0 {
		return invalid("child_id", ErrRequiredField)
	}
	if p.ParentID == p.ChildID {
		return invalid("child_id", ErrSelfRelationship)
	}
	if p.RelationshipType == "" {
		p.RelationshipType = ParentBiological
	}
	_, err := ParseParentType(string(p.RelationshipType))
	return err
}

// MarriedTo records one marriage. Both spouses are required.
type MarriedTo struct {
	ID              uint               `gorm:"primaryKey;autoIncrement" json:"id"`
	Spouse1ID       uint               `gorm:"column:spouse_1_id;not null;index" json:"spouse_1_id"`
	Spouse2ID       uint               `gorm:"column:spouse_2_id;not null;index" json:"spouse_2_id"`
	MarriageDate    *time.Time         `gorm:"" json:"marriage_date,omitempty"`
	MarriageEndDate *time.Time         `gorm:"" json:"marriage_end_date,omitempty"`
	EndReason       *MarriageEndReason `gorm:"" json:"end_reason,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	Spouse1         *Individual        `gorm:"foreignKey:Spouse1ID;constraint:OnDelete:CASCADE" json:"-"`
	Spouse2         *Individual        `gorm:"foreignKey:Spouse2ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (MarriedTo) TableName() string {
	return "married_to"
}

func (m *MarriedTo) Validate() error {
	if m.Spouse1ID == 0 {
		return invalid("spouse_1_id", ErrRequiredField)
	}
	if m.Spouse2ID == 0 {
		return invalid("spouse_2_id", ErrRequiredField)
	}
	if m.Spouse1ID == m.Spouse2ID {
		return invalid("spouse_2_id", ErrSelfRelationship)
	}
	if err := checkInterval("marriage_end_date", m.MarriageDate, m.MarriageEndDate); err != nil {
		return err
	}
	if m.EndReason != nil {
		if _, err := ParseEndReason(string(*m.EndReason)); err != nil {
			return err
		}
	}
	return nil
}

// IsEnded is true once an end date or reason has been recorded.
func (m *MarriedTo) IsEnded() bool {
	return m.MarriageEndDate != nil || m.EndReason != nil
}

// End closes the marriage. It can only happen once.
func (m *MarriedTo) End(at *time.Time, reason MarriageEndReason) error {
	if m.IsEnded() {
		return ErrMarriageAlreadyEnded
	}
	if _, err := ParseEndReason(string(reason)); err != nil {
		return err
	}
	if err := checkInterval("marriage_end_date", m.MarriageDate, at); err != nil {
		return err
	}
	m.MarriageEndDate = at
	m.EndReason = &reason
	return nil
}

// Other returns the spouse that is not id.
func (m *MarriedTo) Other(id uint) uint {
	if m.Spouse1ID == id {
		return m.Spouse2ID
	}
	return m.Spouse1ID
}

// SiblingTo is a symmetric edge stored with Sibling1ID < Sibling2ID.
type SiblingTo struct {
	ID         uint        `gorm:"primaryKey;autoIncrement" json:"id"`
	Sibling1ID uint        `gorm:"column:sibling_1_id;not null;uniqueIndex:idx_sibling_pair" json:"sibling_1_id"`
	Sibling2ID uint        `gorm:"column:sibling_2_id;not null;uniqueIndex:idx_sibling_pair;index" json:"sibling_2_id"`
	CreatedAt  time.Time   `json:"created_at"`
	Sibling1   *Individual `gorm:"foreignKey:Sibling1ID;constraint:OnDelete:CASCADE" json:"-"`
	Sibling2   *Individual `gorm:"foreignKey:Sibling2ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (SiblingTo) TableName() string {
	return "sibling_to"
}

// NewSiblingTo orders the pair so each sibling pair has one canonical row.
func NewSiblingTo(a, b uint) SiblingTo {
	if a > b {
		a, b = b, a
	}
	return SiblingTo{Sibling1ID: a, Sibling2ID: b}
}

func (s *SiblingTo) Validate() error {
	if s.Sibling1ID == 0 || s.Sibling2ID == 0 {
		return invalid("sibling_id", ErrRequiredField)
	}
	if s.Sibling1ID == s.Sibling2ID {
		return invalid("sibling_2_id", ErrSelfRelationship)
	}
	if s.Sibling1ID > s.Sibling2ID {
		s.Sibling1ID, s.Sibling2ID = s.Sibling2ID, s.Sibling1ID
	}
	return nil
}

func (s *SiblingTo) Other(id uint) uint {
	if s.Sibling1ID == id {
		return s.Sibling2ID
	}
	return s.Sibling1ID
}
