package repository

import (
	"fmt"

	"github.com/camden-git/genealogybackend/media"
	"github.com/camden-git/genealogybackend/models"
	"gorm.io/gorm"
)

// ImageRepository handles database operations for Image entities
type ImageRepository struct {
	DB *gorm.DB
}

// NewImageRepository creates a new instance of ImageRepository
func NewImageRepository(db *gorm.DB) *ImageRepository {
	return &ImageRepository{DB: db}
}

func (r *ImageRepository) Create(image *models.Image) error {
	if err := r.DB.Create(image).Error; err != nil {
		return fmt.Errorf("failed to create image for individual ID %d: %w", image.IndividualID, err)
	}
	return nil
}

func (r *ImageRepository) GetByID(id uint) (*models.Image, error) {
	var image models.Image
	err := r.DB.First(&image, id).Error
	if err != nil {
		if IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get image ID %d: %w", id, err)
	}
	return &image, nil
}

func (r *ImageRepository) ListByIndividual(individualID uint) ([]models.Image, error) {
	var images []models.Image
	err := r.DB.Where("individual_id = ?", individualID).Order("id ASC").Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list images for individual ID %d: %w", individualID, err)
	}
	return images, nil
}

// Delete removes an image record and clears it as a profile image in the same transaction
func (r *ImageRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Individual{}).Where("profile_image_id = ?", id).
			Update("profile_image_id", gorm.Expr("NULL")).Error; err != nil {
			return fmt.Errorf("failed to clear profile image %d: %w", id, err)
		}
		result := tx.Delete(&models.Image{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete image ID %d: %w", id, result.Error)
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

// MarkTaskProcessing updates a specific task's status to 'processing' and clears its error
func (r *ImageRepository) MarkTaskProcessing(id uint, taskStatusColumn string) error {
	validStatusColumns := map[string]string{
		"metadata_status":  "metadata_error",
		"thumbnail_status": "thumbnail_error",
	}

	errorColumn, isValid := validStatusColumns[taskStatusColumn]
	if !isValid {
		return fmt.Errorf("invalid task status column name: %s", taskStatusColumn)
	}

	updates := map[string]interface{}{
		taskStatusColumn: models.StatusProcessing,
		errorColumn:      gorm.Expr("NULL"),
	}

	result := r.DB.Model(&models.Image{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to mark task %s processing for image %d: %w", taskStatusColumn, id, result.Error)
	}
	if result.RowsAffected == 0 {
		// deleted while the job sat in the queue
		return gorm.ErrRecordNotFound
	}
	return nil
}

func taskOutcome(taskErr error) (string, *string) {
	if taskErr == nil {
		return models.StatusDone, nil
	}
	s := taskErr.Error()
	return models.StatusFailed, &s
}

// UpdateThumbnailResult updates the image record with thumbnail generation results
func (r *ImageRepository) UpdateThumbnailResult(id uint, thumbPath *string, taskErr error) error {
	status, errStr := taskOutcome(taskErr)
	updates := map[string]interface{}{
		"thumbnail_path":   thumbPath,
		"thumbnail_status": status,
		"thumbnail_error":  errStr,
	}

	result := r.DB.Model(&models.Image{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update thumbnail result for image %d: %w", id, result.Error)
	}
	return nil
}

// UpdateMetadataResult updates the image record with metadata extraction results
func (r *ImageRepository) UpdateMetadataResult(id uint, meta *media.Metadata, taskErr error) error {
	status, errStr := taskOutcome(taskErr)
	updateData := map[string]interface{}{
		"metadata_status": status,
		"metadata_error":  errStr,
	}
	if meta != nil {
		updateData["width"] = meta.Width
		updateData["height"] = meta.Height
		updateData["taken_at"] = meta.TakenAt
	}

	result := r.DB.Model(&models.Image{}).Where("id = ?", id).Updates(updateData)
	if result.Error != nil {
		return fmt.Errorf("failed to update metadata result for image %d: %w", id, result.Error)
	}
	return nil
}

// GetImagesRequiringProcessing retrieves uploads with a task still pending or
// interrupted mid-processing, so they can be requeued at startup
func (r *ImageRepository) GetImagesRequiringProcessing() ([]models.Image, error) {
	var images []models.Image
	unfinished := []string{models.StatusPending, models.StatusProcessing}
	err := r.DB.Where("metadata_status IN ? OR thumbnail_status IN ?", unfinished, unfinished).
		Order("id ASC").Find(&images).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get images requiring processing: %w", err)
	}
	return images, nil
}
