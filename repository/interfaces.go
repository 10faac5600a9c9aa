package repository

import (
	"github.com/camden-git/genealogybackend/media"
	"github.com/camden-git/genealogybackend/models"
)

// IndividualRepositoryInterface defines the methods for individual data operations,
// including the records an individual owns (names, occupations)
type IndividualRepositoryInterface interface {
	Create(individual *models.Individual) error
	GetByID(id uint) (*models.Individual, error)
	GetByIDs(ids []uint) ([]models.Individual, error)
	Exists(id uint) (bool, error)
	ListAll(includePrivate bool) ([]models.Individual, error)
	Update(individual *models.Individual) error

	AddName(name *models.Name) error
	GetName(id uint) (*models.Name, error)
	UpdateName(name *models.Name) error
	ListNames(individualID uint) ([]models.Name, error)
	CountCurrentNames(individualID uint, excludeNameID uint) (int64, error)

	AddOccupation(occupation *models.Occupation) error
	GetOccupation(id uint) (*models.Occupation, error)
	UpdateOccupation(occupation *models.Occupation) error
	ListOccupations(individualID uint) ([]models.Occupation, error)
}

// ImageRepositoryInterface defines the methods for image data operations
type ImageRepositoryInterface interface {
	Create(image *models.Image) error
	GetByID(id uint) (*models.Image, error)
	ListByIndividual(individualID uint) ([]models.Image, error)
	Delete(id uint) error
	MarkTaskProcessing(id uint, taskStatusColumn string) error
	UpdateThumbnailResult(id uint, thumbPath *string, taskErr error) error
	UpdateMetadataResult(id uint, meta *media.Metadata, taskErr error) error
	GetImagesRequiringProcessing() ([]models.Image, error)
}

// RelationshipRepositoryInterface defines the methods for edge tables between individuals
type RelationshipRepositoryInterface interface {
	AddParent(edge *models.ParentOf) error
	GetParentEdge(id uint) (*models.ParentOf, error)
	DeleteParentEdge(id uint) error
	ParentEdgesOf(childID uint) ([]models.ParentOf, error)
	ChildEdgesOf(parentID uint) ([]models.ParentOf, error)
	IsAncestor(candidateAncestorID, individualID uint) (bool, error)

	AddMarriage(marriage *models.MarriedTo) error
	GetMarriage(id uint) (*models.MarriedTo, error)
	UpdateMarriage(marriage *models.MarriedTo) error
	MarriagesOf(individualID uint) ([]models.MarriedTo, error)

	AddSibling(edge *models.SiblingTo) error
	DeleteSiblingEdge(id uint) error
	SiblingEdgesOf(individualID uint) ([]models.SiblingTo, error)
}

// UserRepository defines the methods for user data operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	LockByEmail(email string) (*models.User, error)
	GetByIndividualID(individualID uint) (*models.User, error)
	Update(user *models.User) error
}

var (
	_ IndividualRepositoryInterface   = (*IndividualRepository)(nil)
	_ ImageRepositoryInterface        = (*ImageRepository)(nil)
	_ RelationshipRepositoryInterface = (*RelationshipRepository)(nil)
	_ UserRepository                  = (*GormUserRepository)(nil)
)
