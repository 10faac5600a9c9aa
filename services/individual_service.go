package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/camden-git/genealogybackend/database"
	"github.com/camden-git/genealogybackend/media"
	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/repository"
)

// ErrUploadsDisabled is returned by UploadImage when no media processor is configured
var ErrUploadsDisabled = errors.New("image uploads are not configured")

// ImageTaskQueue schedules thumbnail and metadata processing for an upload
type ImageTaskQueue interface {
	QueueImageTasks(imageID uint, storedPath string)
}

// IndividualService manages individuals and the names, occupations and images
// they own. Every write that checks an invariant does so inside the same
// transaction as the insert.
type IndividualService struct {
	db        *gorm.DB
	sql       *database.SQL
	countries *CountryService
	processor *media.Processor
	queue     ImageTaskQueue
	events    EventPublisher
}

func NewIndividualService(db *gorm.DB, sql *database.SQL, countries *CountryService, processor *media.Processor, queue ImageTaskQueue, events EventPublisher) *IndividualService {
	return &IndividualService{
		db:        db,
		sql:       sql,
		countries: countries,
		processor: processor,
		queue:     queue,
		events:    publisherOrNop(events),
	}
}

func (s *IndividualService) repo(tx *gorm.DB) *repository.IndividualRepository {
	return repository.NewIndividualRepository(tx)
}

// requireIndividual fails with ErrIndividualNotFound when the owner row is missing
func requireIndividual(repo *repository.IndividualRepository, id uint) error {
	ok, err := repo.Exists(id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("individual %d: %w", id, models.ErrIndividualNotFound)
	}
	return nil
}

// CreateIndividual inserts the individual with its initial names. Nothing is
// stored if any part is invalid.
func (s *IndividualService) CreateIndividual(ctx context.Context, individual *models.Individual, names []models.Name) (*models.Individual, error) {
	individual.ID = 0
	if err := individual.Validate(); err != nil {
		return nil, err
	}
	current := 0
	for i := range names {
		if err := names[i].Validate(); err != nil {
			return nil, err
		}
		if names[i].IsCurrent() {
			current++
		}
	}
	if current > 1 {
		return nil, &models.ValidationError{Field: "names", Err: models.ErrDuplicateCurrentName}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo(tx)
		if err := repo.Create(individual); err != nil {
			return err
		}
		for i := range names {
			names[i].ID = 0
			names[i].IndividualID = individual.ID
			if err := repo.AddName(&names[i]); err != nil {
				return translateWriteError(err, models.ErrDuplicateCurrentName)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Printf("individuals: created individual %d with %d name(s)", individual.ID, len(names))
	s.events.Publish(eventCreated, "individual", individual.ID, individual.ID)
	return s.GetIndividual(ctx, individual.ID, true)
}

// GetIndividual loads an individual with names, occupations and images.
// Private individuals are reported as not found unless includePrivate.
func (s *IndividualService) GetIndividual(ctx context.Context, id uint, includePrivate bool) (*models.Individual, error) {
	individual, err := s.repo(s.db.WithContext(ctx)).GetByID(id)
	if err != nil {
		return nil, lookupError(err, "individual", id)
	}
	if individual.IsPrivate && !includePrivate {
		return nil, notFound("individual", id)
	}
	return individual, nil
}

// ListIndividuals returns every visible individual in the requested order
func (s *IndividualService) ListIndividuals(ctx context.Context, order string, includePrivate bool) ([]models.Individual, error) {
	individuals, err := s.repo(s.db.WithContext(ctx)).ListAll(includePrivate)
	if err != nil {
		return nil, err
	}
	if err := sortIndividuals(individuals, order); err != nil {
		return nil, err
	}
	return individuals, nil
}

// SearchParams filters SearchIndividuals
type SearchParams struct {
	Query          string
	Country        string // birth country, also matched through its former names
	Sort           string
	IncludePrivate bool
}

// SearchIndividuals matches any name row of an individual and optionally the
// birth country, including historical names that map to it.
func (s *IndividualService) SearchIndividuals(ctx context.Context, params SearchParams) ([]models.Individual, error) {
	search := database.IndividualSearch{
		Query:          params.Query,
		IncludePrivate: params.IncludePrivate,
	}
	if country := strings.TrimSpace(params.Country); country != "" {
		search.BirthCountries = []string{country}
		aliases, err := s.countries.Aliases(ctx, country)
		if err != nil {
			return nil, err
		}
		search.BirthCountries = append(search.BirthCountries, aliases...)
	}

	ids, err := s.sql.SearchIndividualIDs(ctx, search)
	if err != nil {
		return nil, err
	}
	individuals, err := s.repo(s.db.WithContext(ctx)).GetByIDs(ids)
	if err != nil {
		return nil, err
	}
	if err := sortIndividuals(individuals, params.Sort); err != nil {
		return nil, err
	}
	return individuals, nil
}

// IndividualPatch holds the fields a partial update sets. Clear lists nullable
// fields (by JSON name) to set to null.
type IndividualPatch struct {
	DateOfBirth       *time.Time
	BirthMunicipality *string
	BirthState        *string
	BirthCountry      *string
	DateOfDeath       *time.Time
	DeathMunicipality *string
	DeathState        *string
	DeathCountry      *string
	Gender            *models.Gender
	Bio               *string
	IsPrivate         *bool
	Clear             []string
}

var clearableIndividualFields = map[string]func(*models.Individual){
	"date_of_birth":      func(i *models.Individual) { i.DateOfBirth = nil },
	"birth_municipality": func(i *models.Individual) { i.BirthMunicipality = nil },
	"birth_state":        func(i *models.Individual) { i.BirthState = nil },
	"birth_country":      func(i *models.Individual) { i.BirthCountry = nil },
	"date_of_death":      func(i *models.Individual) { i.DateOfDeath = nil },
	"death_municipality": func(i *models.Individual) { i.DeathMunicipality = nil },
	"death_state":        func(i *models.Individual) { i.DeathState = nil },
	"death_country":      func(i *models.Individual) { i.DeathCountry = nil },
}

func (p IndividualPatch) apply(i *models.Individual) error {
	for _, field := range p.Clear {
		reset, ok := clearableIndividualFields[field]
		if !ok {
			return &models.ValidationError{Field: field, Err: fmt.Errorf("%w: field cannot be cleared", models.ErrInvalidEnum)}
		}
		reset(i)
	}
	if p.DateOfBirth != nil {
		i.DateOfBirth = p.DateOfBirth
	}
	if p.BirthMunicipality != nil {
		i.BirthMunicipality = p.BirthMunicipality
	}
	if p.BirthState != nil {
		i.BirthState = p.BirthState
	}
	if p.BirthCountry != nil {
		i.BirthCountry = p.BirthCountry
	}
	if p.DateOfDeath != nil {
		i.DateOfDeath = p.DateOfDeath
	}
	if p.DeathMunicipality != nil {
		i.DeathMunicipality = p.DeathMunicipality
	}
	if p.DeathState != nil {
		i.DeathState = p.DeathState
	}
	if p.DeathCountry != nil {
		i.DeathCountry = p.DeathCountry
	}
	if p.Gender != nil {
		i.Gender = *p.Gender
	}
	if p.Bio != nil {
		i.Bio = *p.Bio
	}
	if p.IsPrivate != nil {
		i.IsPrivate = *p.IsPrivate
	}
	return nil
}

// UpdateIndividual applies a partial update and revalidates the whole record
func (s *IndividualService) UpdateIndividual(ctx context.Context, id uint, patch IndividualPatch) (*models.Individual, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo(tx)
		individual, err := repo.GetByID(id)
		if err != nil {
			return lookupError(err, "individual", id)
		}
		if err := patch.apply(individual); err != nil {
			return err
		}
		if err := individual.Validate(); err != nil {
			return err
		}
		return repo.Update(individual)
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(eventUpdated, "individual", id, id)
	return s.GetIndividual(ctx, id, true)
}

// AddName records another name. A name without an end date becomes the
// current name and is refused if one already exists.
func (s *IndividualService) AddName(ctx context.Context, individualID uint, name *models.Name) error {
	name.ID = 0
	name.IndividualID = individualID
	if err := name.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo(tx)
		if err := requireIndividual(repo, individualID); err != nil {
			return err
		}
		if err := checkSingleCurrentName(repo, name); err != nil {
			return err
		}
		return translateWriteError(repo.AddName(name), models.ErrDuplicateCurrentName)
	})
	if err != nil {
		return err
	}
	s.events.Publish(eventCreated, "name", name.ID, individualID)
	return nil
}

func checkSingleCurrentName(repo *repository.IndividualRepository, name *models.Name) error {
	if !name.IsCurrent() {
		return nil
	}
	count, err := repo.CountCurrentNames(name.IndividualID, name.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return &models.ValidationError{Field: "date_to", Err: models.ErrDuplicateCurrentName}
	}
	return nil
}

// UpdateName replaces the fields of an existing name of the individual
func (s *IndividualService) UpdateName(ctx context.Context, individualID, nameID uint, replacement models.Name) (*models.Name, error) {
	var updated *models.Name
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo(tx)
		existing, err := repo.GetName(nameID)
		if err != nil {
			return lookupError(err, "name", nameID)
		}
		if existing.IndividualID != individualID {
			return notFound("name", nameID)
		}
		replacement.ID = existing.ID
		replacement.IndividualID = existing.IndividualID
		replacement.CreatedAt = existing.CreatedAt
		if err := replacement.Validate(); err != nil {
			return err
		}
		if err := checkSingleCurrentName(repo, &replacement); err != nil {
			return err
		}
		if err := repo.UpdateName(&replacement); err != nil {
			return translateWriteError(err, models.ErrDuplicateCurrentName)
		}
		updated = &replacement
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(eventUpdated, "name", nameID, individualID)
	return updated, nil
}

func (s *IndividualService) ListNames(ctx context.Context, individualID uint, includePrivate bool) ([]models.Name, error) {
	if _, err := s.visible(ctx, individualID, includePrivate); err != nil {
		return nil, err
	}
	return s.repo(s.db.WithContext(ctx)).ListNames(individualID)
}

// visible returns the bare individual row when the caller may see it
func (s *IndividualService) visible(ctx context.Context, id uint, includePrivate bool) (*models.Individual, error) {
	var individual models.Individual
	err := s.db.WithContext(ctx).Select("id", "is_private").First(&individual, id).Error
	if err != nil {
		return nil, lookupError(err, "individual", id)
	}
	if individual.IsPrivate && !includePrivate {
		return nil, notFound("individual", id)
	}
	return &individual, nil
}

func (s *IndividualService) AddOccupation(ctx context.Context, individualID uint, occupation *models.Occupation) error {
	occupation.ID = 0
	occupation.IndividualID = individualID
	if err := occupation.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo(tx)
		if err := requireIndividual(repo, individualID); err != nil {
			return err
		}
		return translateWriteError(repo.AddOccupation(occupation), nil)
	})
	if err != nil {
		return err
	}
	s.events.Publish(eventCreated, "occupation", occupation.ID, individualID)
	return nil
}

func (s *IndividualService) UpdateOccupation(ctx context.Context, individualID, occupationID uint, replacement models.Occupation) (*models.Occupation, error) {
	var updated *models.Occupation
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo(tx)
		existing, err := repo.GetOccupation(occupationID)
		if err != nil {
			return lookupError(err, "occupation", occupationID)
		}
		if existing.IndividualID != individualID {
			return notFound("occupation", occupationID)
		}
		replacement.ID = existing.ID
		replacement.IndividualID = existing.IndividualID
		replacement.CreatedAt = existing.CreatedAt
		if err := replacement.Validate(); err != nil {
			return err
		}
		if err := repo.UpdateOccupation(&replacement); err != nil {
			return err
		}
		updated = &replacement
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(eventUpdated, "occupation", occupationID, individualID)
	return updated, nil
}

func (s *IndividualService) ListOccupations(ctx context.Context, individualID uint, includePrivate bool) ([]models.Occupation, error) {
	if _, err := s.visible(ctx, individualID, includePrivate); err != nil {
		return nil, err
	}
	return s.repo(s.db.WithContext(ctx)).ListOccupations(individualID)
}

// AddImage links an externally hosted image to the individual
func (s *IndividualService) AddImage(ctx context.Context, individualID uint, image *models.Image) error {
	image.ID = 0
	image.IndividualID = individualID
	image.StoredPath = nil
	image.ThumbnailStatus = models.StatusNotRequired
	image.MetadataStatus = models.StatusNotRequired
	if err := image.Validate(); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireIndividual(s.repo(tx), individualID); err != nil {
			return err
		}
		return translateWriteError(repository.NewImageRepository(tx).Create(image), nil)
	})
	if err != nil {
		return err
	}
	s.events.Publish(eventCreated, "image", image.ID, individualID)
	return nil
}

// UploadImage stores an uploaded photo and queues its thumbnail and metadata tasks
func (s *IndividualService) UploadImage(ctx context.Context, individualID uint, filename string, data []byte, caption *string) (*models.Image, error) {
	if s.processor == nil {
		return nil, ErrUploadsDisabled
	}
	if err := requireIndividual(s.repo(s.db.WithContext(ctx)), individualID); err != nil {
		return nil, err
	}

	relPath, err := s.processor.SavePortrait(individualID, filename, data)
	if err != nil {
		if errors.Is(err, media.ErrUnsupportedImage) {
			return nil, &models.ValidationError{Field: "file", Err: err}
		}
		return nil, err
	}

	image := &models.Image{
		IndividualID:    individualID,
		URL:             "/api/" + relPath,
		Caption:         caption,
		StoredPath:      &relPath,
		ThumbnailStatus: models.StatusPending,
		MetadataStatus:  models.StatusPending,
	}
	if err := repository.NewImageRepository(s.db.WithContext(ctx)).Create(image); err != nil {
		if delErr := s.processor.Store().Delete(relPath); delErr != nil {
			log.Printf("individuals: failed to remove orphaned upload %s: %v", relPath, delErr)
		}
		return nil, translateWriteError(err, nil)
	}

	if s.queue != nil {
		s.queue.QueueImageTasks(image.ID, relPath)
	}
	s.events.Publish(eventCreated, "image", image.ID, individualID)
	return image, nil
}

func (s *IndividualService) ListImages(ctx context.Context, individualID uint, includePrivate bool) ([]models.Image, error) {
	if _, err := s.visible(ctx, individualID, includePrivate); err != nil {
		return nil, err
	}
	return repository.NewImageRepository(s.db.WithContext(ctx)).ListByIndividual(individualID)
}

// DeleteImage removes the image record, unsets it as profile image and deletes any stored files
func (s *IndividualService) DeleteImage(ctx context.Context, individualID, imageID uint) error {
	images := repository.NewImageRepository(s.db.WithContext(ctx))
	image, err := images.GetByID(imageID)
	if err != nil {
		return lookupError(err, "image", imageID)
	}
	if image.IndividualID != individualID {
		return notFound("image", imageID)
	}
	if err := images.Delete(imageID); err != nil {
		return lookupError(err, "image", imageID)
	}

	if s.processor != nil {
		for _, p := range []*string{image.StoredPath, image.ThumbnailPath} {
			if p == nil || *p == "" {
				continue
			}
			if err := s.processor.Store().Delete(*p); err != nil {
				log.Printf("individuals: failed to delete asset %s of image %d: %v", *p, imageID, err)
			}
		}
	}
	s.events.Publish(eventDeleted, "image", imageID, individualID)
	return nil
}

// SetProfileImage points the individual at one of its own images; nil clears it
func (s *IndividualService) SetProfileImage(ctx context.Context, individualID uint, imageID *uint) (*models.Individual, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo(tx)
		individual, err := repo.GetByID(individualID)
		if err != nil {
			return lookupError(err, "individual", individualID)
		}
		if imageID != nil {
			image, err := repository.NewImageRepository(tx).GetByID(*imageID)
			if err != nil {
				if repository.IsNotFound(err) {
					return &models.ValidationError{Field: "image_id", Err: models.ErrImageNotOwned}
				}
				return err
			}
			if image.IndividualID != individualID {
				return &models.ValidationError{Field: "image_id", Err: models.ErrImageNotOwned}
			}
		}
		individual.ProfileImageID = imageID
		return repo.Update(individual)
	})
	if err != nil {
		return nil, err
	}
	s.events.Publish(eventUpdated, "individual", individualID, individualID)
	return s.GetIndividual(ctx, individualID, true)
}
