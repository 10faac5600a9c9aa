package repository

import (
	"fmt"

	"github.com/camden-git/genealogybackend/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// IndividualRepository handles database operations for Individual and the
// Name and Occupation rows it owns
type IndividualRepository struct {
	DB *gorm.DB
}

// NewIndividualRepository creates a new instance of IndividualRepository
func NewIndividualRepository(db *gorm.DB) *IndividualRepository {
	return &IndividualRepository{DB: db}
}

// Create inserts the individual row only; owned records are added separately
// so each one is validated on its own.
func (r *IndividualRepository) Create(individual *models.Individual) error {
	err := r.DB.Omit(clause.Associations).Create(individual).Error
	if err != nil {
		return fmt.Errorf("failed to create individual: %w", err)
	}
	return nil
}

// GetByID retrieves an individual, preloading names, occupations and images
func (r *IndividualRepository) GetByID(id uint) (*models.Individual, error) {
	var individual models.Individual
	err := r.DB.
		Preload("Names", func(db *gorm.DB) *gorm.DB { return db.Order("date_from ASC, id ASC") }).
		Preload("Occupations", func(db *gorm.DB) *gorm.DB { return db.Order("date_from ASC, id ASC") }).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		First(&individual, id).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get individual by ID %d: %w", id, err)
	}
	return &individual, nil
}

// GetByIDs retrieves several individuals with their names, in id order
func (r *IndividualRepository) GetByIDs(ids []uint) ([]models.Individual, error) {
	if len(ids) == 0 {
		return []models.Individual{}, nil
	}
	var individuals []models.Individual
	err := r.DB.Preload("Names").Where("id IN ?", ids).Order("id ASC").Find(&individuals).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get individuals by IDs: %w", err)
	}
	return individuals, nil
}

func (r *IndividualRepository) Exists(id uint) (bool, error) {
	var count int64
	if err := r.DB.Model(&models.Individual{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check individual %d: %w", id, err)
	}
	return count > 0, nil
}

// ListAll retrieves all individuals with their names
func (r *IndividualRepository) ListAll(includePrivate bool) ([]models.Individual, error) {
	var individuals []models.Individual
	q := r.DB.Preload("Names")
	if !includePrivate {
		q = q.Where("is_private = ?", false)
	}
	if err := q.Order("id ASC").Find(&individuals).Error; err != nil {
		return nil, fmt.Errorf("failed to list individuals: %w", err)
	}
	return individuals, nil
}

// Update saves every column of the individual, leaving owned records alone
func (r *IndividualRepository) Update(individual *models.Individual) error {
	result := r.DB.Omit(clause.Associations).Save(individual)
	if result.Error != nil {
		return fmt.Errorf("failed to update individual ID %d: %w", individual.ID, result.Error)
	}
	return nil
}

// AddName adds a new name for an individual
func (r *IndividualRepository) AddName(name *models.Name) error {
	err := r.DB.Create(name).Error
	if err != nil {
		return fmt.Errorf("failed to add name '%s %s' for individual ID %d: %w", name.GivenName, name.Surname, name.IndividualID, err)
	}
	return nil
}

func (r *IndividualRepository) GetName(id uint) (*models.Name, error) {
	var name models.Name
	if err := r.DB.First(&name, id).Error; err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get name ID %d: %w", id, err)
	}
	return &name, nil
}

func (r *IndividualRepository) UpdateName(name *models.Name) error {
	if err := r.DB.Save(name).Error; err != nil {
		return fmt.Errorf("failed to update name ID %d: %w", name.ID, err)
	}
	return nil
}

// ListNames retrieves all names for a given individual, oldest first
func (r *IndividualRepository) ListNames(individualID uint) ([]models.Name, error) {
	var names []models.Name
	err := r.DB.Where("individual_id = ?", individualID).Order("date_from ASC, id ASC").Find(&names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list names for individual ID %d: %w", individualID, err)
	}
	return names, nil
}

// CountCurrentNames counts open-ended names of an individual, ignoring excludeNameID
func (r *IndividualRepository) CountCurrentNames(individualID uint, excludeNameID uint) (int64, error) {
	var count int64
	q := r.DB.Model(&models.Name{}).Where("individual_id = ? AND date_to IS NULL", individualID)
	if excludeNameID != 0 {
		q = q.Where("id <> ?", excludeNameID)
	}
	if err := q.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count current names for individual ID %d: %w", individualID, err)
	}
	return count, nil
}

func (r *IndividualRepository) AddOccupation(occupation *models.Occupation) error {
	if err := r.DB.Create(occupation).Error; err != nil {
		return fmt.Errorf("failed to add occupation '%s' for individual ID %d: %w", occupation.Title, occupation.IndividualID, err)
	}
	return nil
}

func (r *IndividualRepository) GetOccupation(id uint) (*models.Occupation, error) {
	var occupation models.Occupation
	if err := r.DB.First(&occupation, id).Error; err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get occupation ID %d: %w", id, err)
	}
	return &occupation, nil
}

func (r *IndividualRepository) UpdateOccupation(occupation *models.Occupation) error {
	if err := r.DB.Save(occupation).Error; err != nil {
		return fmt.Errorf("failed to update occupation ID %d: %w", occupation.ID, err)
	}
	return nil
}

func (r *IndividualRepository) ListOccupations(individualID uint) ([]models.Occupation, error) {
	var occupations []models.Occupation
	err := r.DB.Where("individual_id = ?", individualID).Order("date_from ASC, id ASC").Find(&occupations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list occupations for individual ID %d: %w", individualID, err)
	}
	return occupations, nil
}
