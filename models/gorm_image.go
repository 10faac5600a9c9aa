package models

import (
	"strings"
	"time"
)

// Processing status values for uploaded images.
const (
	StatusNotRequired = "notRequired"
	StatusPending     = "pending"
	StatusProcessing  = "processing"
	StatusDone        = "done"
	StatusFailed      = "failed"
)

// Image represents a picture of an individual. External images only carry a
// URL; uploads also go through thumbnail and metadata processing.
// It corresponds to the 'images' table.
type Image struct {
	ID           uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	IndividualID uint    `gorm:"not null;index" json:"individual_id"`
	URL          string  `gorm:"not null" json:"url"`
	Caption      *string `gorm:"" json:"caption,omitempty"`

	StoredPath    *string `gorm:"" json:"-"`                        // relative to MEDIA_STORAGE_PATH, uploads only
	ThumbnailPath *string `gorm:"" json:"thumbnail_path,omitempty"` // Nullable
	Width         *int    `gorm:"" json:"width,omitempty"`
	Height        *int    `gorm:"" json:"height,omitempty"`
	TakenAt       *int64  `gorm:"index" json:"taken_at,omitempty"` // Nullable, Unix timestamp

	ThumbnailStatus string  `gorm:"not null;default:notRequired" json:"thumbnail_status"`
	MetadataStatus  string  `gorm:"not null;default:notRequired" json:"metadata_status"`
	ThumbnailError  *string `gorm:"" json:"thumbnail_error,omitempty"`
	MetadataError   *string `gorm:"" json:"metadata_error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName explicitly sets the table name for GORM.
func (Image) TableName() string {
	return "images"
}

func (img *Image) Validate() error {
	img.URL = strings.TrimSpace(img.URL)
	if img.URL == "" {
		return invalid("url", ErrRequiredField)
	}
	if img.ThumbnailStatus == "" {
		img.ThumbnailStatus = StatusNotRequired
	}
	if img.MetadataStatus == "" {
		img.MetadataStatus = StatusNotRequired
	}
	return nil
}

// IsUpload reports whether the file lives in local media storage.
func (img *Image) IsUpload() bool {
	return img.StoredPath != nil && *img.StoredPath != ""
}
