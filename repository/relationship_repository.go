package repository

import (
	"fmt"

	"github.com/camden-git/genealogybackend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RelationshipRepository handles the parent_of, married_to and sibling_to edge tables
type RelationshipRepository struct {
	DB *gorm.DB
}

func NewRelationshipRepository(db *gorm.DB) *RelationshipRepository {
	return &RelationshipRepository{DB: db}
}

func (r *RelationshipRepository) AddParent(edge *models.ParentOf) error {
	if err := r.DB.Omit(clause.Associations).Create(edge).Error; err != nil {
		return fmt.Errorf("failed to add parent %d of child %d: %w", edge.ParentID, edge.ChildID, err)
	}
	return nil
}

func (r *RelationshipRepository) GetParentEdge(id uint) (*models.ParentOf, error) {
	var edge models.ParentOf
	if err := r.DB.First(&edge, id).Error; err != nil {
		return nil, err
	}
	return &edge, nil
}

func (r *RelationshipRepository) DeleteParentEdge(id uint) error {
	result := r.DB.Delete(&models.ParentOf{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete parent edge ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ParentEdgesOf returns the edges pointing at childID
func (r *RelationshipRepository) ParentEdgesOf(childID uint) ([]models.ParentOf, error) {
	var edges []models.ParentOf
	if err := r.DB.Where("child_id = ?", childID).Order("id ASC").Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("failed to list parents of %d: %w", childID, err)
	}
	return edges, nil
}

// ChildEdgesOf returns the edges leaving parentID
func (r *RelationshipRepository) ChildEdgesOf(parentID uint) ([]models.ParentOf, error) {
	var edges []models.ParentOf
	if err := r.DB.Where("parent_id = ?", parentID).Order("id ASC").Find(&edges).Error; err != nil {
		return nil, fmt.Errorf("failed to list children of %d: %w", parentID, err)
	}
	return edges, nil
}

// IsAncestor walks parent edges upward from individualID, one generation per
// query, and reports whether candidateAncestorID is reached.
func (r *RelationshipRepository) IsAncestor(candidateAncestorID, individualID uint) (bool, error) {
	visited := map[uint]bool{individualID: true}
	frontier := []uint{individualID}
	for len(frontier) > 0 {
		var parents []uint
		err := r.DB.Model(&models.ParentOf{}).Where("child_id IN ?", frontier).Pluck("parent_id", &parents).Error
		if err != nil {
			return false, fmt.Errorf("failed to walk ancestors of %d: %w", individualID, err)
		}
		frontier = frontier[:0]
		for _, p := range parents {
			if p == candidateAncestorID {
				return true, nil
			}
			if !visited[p] {
				visited[p] = true
				frontier = append(frontier, p)
			}
		}
	}
	return false, nil
}

func (r *RelationshipRepository) AddMarriage(marriage *models.MarriedTo) error {
	if err := r.DB.Omit(clause.Associations).Create(marriage).Error; err != nil {
		return fmt.Errorf("failed to add marriage of %d and %d: %w", marriage.Spouse1ID, marriage.Spouse2ID, err)
	}
	return nil
}

func (r *RelationshipRepository) GetMarriage(id uint) (*models.MarriedTo, error) {
	var marriage models.MarriedTo
	if err := r.DB.First(&marriage, id).Error; err != nil {
		return nil, err
	}
	return &marriage, nil
}

func (r *RelationshipRepository) UpdateMarriage(marriage *models.MarriedTo) error {
	if err := r.DB.Omit(clause.Associations).Save(marriage).Error; err != nil {
		return fmt.Errorf("failed to update marriage ID %d: %w", marriage.ID, err)
	}
	return nil
}

// MarriagesOf returns every marriage of an individual, oldest first
func (r *RelationshipRepository) MarriagesOf(individualID uint) ([]models.MarriedTo, error) {
	var marriages []models.MarriedTo
	err := r.DB.Where("spouse_1_id = ? OR spouse_2_id = ?", individualID, individualID).
		Order("marriage_date ASC, id ASC").Find(&marriages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list marriages of %d: %w", individualID, err)
	}
	return marriages, nil
}

func (r *RelationshipRepository) AddSibling(edge *models.SiblingTo) error {
	if err := r.DB.Omit(clause.Associations).Create(edge).Error; err != nil {
		return fmt.Errorf("failed to add siblings %d and %d: %w", edge.Sibling1ID, edge.Sibling2ID, err)
	}
	return nil
}

func (r *RelationshipRepository) DeleteSiblingEdge(id uint) error {
	result := r.DB.Delete(&models.SiblingTo{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete sibling edge ID %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *RelationshipRepository) SiblingEdgesOf(individualID uint) ([]models.SiblingTo, error) {
	var edges []models.SiblingTo
	err := r.DB.Where("sibling_1_id = ? OR sibling_2_id = ?", individualID, individualID).
		Order("id ASC").Find(&edges).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list siblings of %d: %w", individualID, err)
	}
	return edges, nil
}
