package services

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/repository"
)

// RelationshipService maintains the parent, marriage and sibling edges
type RelationshipService struct {
	db     *gorm.DB
	events EventPublisher
}

func NewRelationshipService(db *gorm.DB, events EventPublisher) *RelationshipService {
	return &RelationshipService{db: db, events: publisherOrNop(events)}
}

func requireIndividuals(tx *gorm.DB, ids ...uint) error {
	repo := repository.NewIndividualRepository(tx)
	for _, id := range ids {
		if err := requireIndividual(repo, id); err != nil {
			return err
		}
	}
	return nil
}

// AddParent records parentID as a parent of childID. The edge is refused if
// the child is already an ancestor of the parent.
func (s *RelationshipService) AddParent(ctx context.Context, parentID, childID uint, relationshipType string) (*models.ParentOf, error) {
	parsed, err := models.ParseParentType(relationshipType)
	if err != nil {
		return nil, err
	}
	edge := &models.ParentOf{ParentID: parentID, ChildID: childID, RelationshipType: parsed}
	if err := edge.Validate(); err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireIndividuals(tx, parentID, childID); err != nil {
			return err
		}
		rels := repository.NewRelationshipRepository(tx)
		cycle, err := rels.IsAncestor(childID, parentID)
		if err != nil {
			return err
		}
		if cycle {
			return &models.ValidationError{Field: "parent_id", Err: models.ErrAncestryCycle}
		}
		return translateWriteError(rels.AddParent(edge), models.ErrDuplicateRelationship)
	})
	if err != nil {
		return nil, err
	}
	log.Printf("relationships: %d is now %s parent of %d", parentID, parsed, childID)
	s.events.Publish(eventCreated, "parent_of", edge.ID, childID)
	return edge, nil
}

func (s *RelationshipService) RemoveParent(ctx context.Context, edgeID uint) error {
	rels := repository.NewRelationshipRepository(s.db.WithContext(ctx))
	edge, err := rels.GetParentEdge(edgeID)
	if err != nil {
		return lookupError(err, "parent edge", edgeID)
	}
	if err := rels.DeleteParentEdge(edgeID); err != nil {
		return lookupError(err, "parent edge", edgeID)
	}
	s.events.Publish(eventDeleted, "parent_of", edgeID, edge.ChildID)
	return nil
}

// AddMarriage records a marriage between two different individuals. An
// individual may have any number of marriages over time.
func (s *RelationshipService) AddMarriage(ctx context.Context, marriage *models.MarriedTo) error {
	marriage.ID = 0
	if marriage.EndReason != nil {
		reason, err := models.ParseEndReason(string(*marriage.EndReason))
		if err != nil {
			return err
		}
		marriage.EndReason = &reason
	}
	if err := marriage.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireIndividuals(tx, marriage.Spouse1ID, marriage.Spouse2ID); err != nil {
			return err
		}
		return translateWriteError(repository.NewRelationshipRepository(tx).AddMarriage(marriage), nil)
	})
	if err != nil {
		return err
	}
	s.events.Publish(eventCreated, "married_to", marriage.ID, marriage.Spouse1ID)
	return nil
}

// EndMarriage sets the end date and reason. A marriage can be ended once.
func (s *RelationshipService) EndMarriage(ctx context.Context, marriageID uint, endDate *time.Time, reason string) (*models.MarriedTo, error) {
	parsed, err := models.ParseEndReason(reason)
	if err != nil {
		return nil, err
	}
	var marriage *models.MarriedTo
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		rels := repository.NewRelationshipRepository(tx)
		m, err := rels.GetMarriage(marriageID)
		if err != nil {
			return lookupError(err, "marriage", marriageID)
		}
		if err := m.End(endDate, parsed); err != nil {
			return err
		}
		marriage = m
		return rels.UpdateMarriage(m)
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(eventUpdated, "married_to", marriageID, marriage.Spouse1ID)
	return marriage, nil
}

// AddSibling records an explicit sibling pair, stored in canonical order
func (s *RelationshipService) AddSibling(ctx context.Context, a, b uint) (*models.SiblingTo, error) {
	edge := models.NewSiblingTo(a, b)
	if err := edge.Validate(); err != nil {
		return nil, err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireIndividuals(tx, edge.Sibling1ID, edge.Sibling2ID); err != nil {
			return err
		}
		return translateWriteError(repository.NewRelationshipRepository(tx).AddSibling(&edge), models.ErrDuplicateRelationship)
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(eventCreated, "sibling_to", edge.ID, edge.Sibling1ID)
	return &edge, nil
}

func (s *RelationshipService) RemoveSibling(ctx context.Context, edgeID uint) error {
	if err := repository.NewRelationshipRepository(s.db.WithContext(ctx)).DeleteSiblingEdge(edgeID); err != nil {
		return lookupError(err, "sibling edge", edgeID)
	}
	s.events.Publish(eventDeleted, "sibling_to", edgeID, 0)
	return nil
}

// Relative is one end of a parent or child edge
type Relative struct {
	EdgeID           uint              `json:"edge_id"`
	IndividualID     uint              `json:"individual_id"`
	Name             string            `json:"name"`
	RelationshipType models.ParentType `json:"relationship_type"`
}

// Spouse is a marriage seen from one partner
type Spouse struct {
	models.MarriedTo
	SpouseID   uint   `json:"spouse_id"`
	SpouseName string `json:"spouse_name"`
}

// Sibling is an explicit sibling edge or a sibling implied by a shared parent.
// EdgeID is nil for implied siblings.
type Sibling struct {
	EdgeID       *uint  `json:"edge_id,omitempty"`
	IndividualID uint   `json:"individual_id"`
	Name         string `json:"name"`
	SharedParent bool   `json:"shared_parent"`
}

// Family is the immediate family of one individual
type Family struct {
	IndividualID uint       `json:"individual_id"`
	Parents      []Relative `json:"parents"`
	Children     []Relative `json:"children"`
	Marriages    []Spouse   `json:"marriages"`
	Siblings     []Sibling  `json:"siblings"`
}

// GetFamily collects parents, children, marriages and siblings of an
// individual. Private relatives are left out unless includePrivate.
func (s *RelationshipService) GetFamily(ctx context.Context, id uint, includePrivate bool) (*Family, error) {
	db := s.db.WithContext(ctx)
	people := repository.NewIndividualRepository(db)
	rels := repository.NewRelationshipRepository(db)

	self, err := people.GetByIDs([]uint{id})
	if err != nil {
		return nil, err
	}
	if len(self) == 0 || (self[0].IsPrivate && !includePrivate) {
		return nil, notFound("individual", id)
	}

	parentEdges, err := rels.ParentEdgesOf(id)
	if err != nil {
		return nil, err
	}
	childEdges, err := rels.ChildEdgesOf(id)
	if err != nil {
		return nil, err
	}
	marriages, err := rels.MarriagesOf(id)
	if err != nil {
		return nil, err
	}
	siblingEdges, err := rels.SiblingEdgesOf(id)
	if err != nil {
		return nil, err
	}

	// children of each parent, for implied siblings
	halfEdges := make([]models.ParentOf, 0)
	for _, pe := range parentEdges {
		edges, err := rels.ChildEdgesOf(pe.ParentID)
		if err != nil {
			return nil, err
		}
		halfEdges = append(halfEdges, edges...)
	}

	related := []uint{}
	for _, e := range parentEdges {
		related = append(related, e.ParentID)
	}
	for _, e := range childEdges {
		related = append(related, e.ChildID)
	}
	for _, m := range marriages {
		related = append(related, m.Other(id))
	}
	for _, e := range siblingEdges {
		related = append(related, e.Other(id))
	}
	for _, e := range halfEdges {
		related = append(related, e.ChildID)
	}

	relatives, err := people.GetByIDs(related)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(relatives))
	for i := range relatives {
		if relatives[i].IsPrivate && !includePrivate {
			continue
		}
		names[relatives[i].ID] = relatives[i].DisplayName()
	}
	visible := func(pid uint) bool {
		_, ok := names[pid]
		return ok
	}

	family := &Family{
		IndividualID: id,
		Parents:      []Relative{},
		Children:     []Relative{},
		Marriages:    []Spouse{},
		Siblings:     []Sibling{},
	}
	for _, e := range parentEdges {
		if visible(e.ParentID) {
			family.Parents = append(family.Parents, Relative{EdgeID: e.ID, IndividualID: e.ParentID, Name: names[e.ParentID], RelationshipType: e.RelationshipType})
		}
	}
	for _, e := range childEdges {
		if visible(e.ChildID) {
			family.Children = append(family.Children, Relative{EdgeID: e.ID, IndividualID: e.ChildID, Name: names[e.ChildID], RelationshipType: e.RelationshipType})
		}
	}
	for _, m := range marriages {
		other := m.Other(id)
		if visible(other) {
			family.Marriages = append(family.Marriages, Spouse{MarriedTo: m, SpouseID: other, SpouseName: names[other]})
		}
	}

	seen := map[uint]bool{id: true}
	for _, e := range siblingEdges {
		other := e.Other(id)
		if seen[other] || !visible(other) {
			continue
		}
		seen[other] = true
		edgeID := e.ID
		family.Siblings = append(family.Siblings, Sibling{EdgeID: &edgeID, IndividualID: other, Name: names[other]})
	}
	for _, e := range halfEdges {
		if seen[e.ChildID] || !visible(e.ChildID) {
			continue
		}
		seen[e.ChildID] = true
		family.Siblings = append(family.Siblings, Sibling{IndividualID: e.ChildID, Name: names[e.ChildID], SharedParent: true})
	}
	return family, nil
}
