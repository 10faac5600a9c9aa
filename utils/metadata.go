package utils

import (
	"fmt"
	"image"
	"io"
	"log"
	"os"

	"github.com/rwcarlsen/goexif/exif"

	"github.com/camden-git/genealogybackend/media"
)

// GetImageMetadata reads dimensions and the capture time of a stored portrait.
// A file without EXIF data still yields its dimensions.
func GetImageMetadata(filePath string) (*media.Metadata, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to open file %s: %w", filePath, err)
	}
	defer file.Close()
	return ReadImageMetadata(file)
}

// ReadImageMetadata is GetImageMetadata for an already open file
func ReadImageMetadata(r io.ReadSeeker) (*media.Metadata, error) {
	config, _, err := image.DecodeConfig(r)
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to decode image config: %w", err)
	}
	width, height := config.Width, config.Height
	meta := &media.Metadata{Width: &width, Height: &height}

	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("metadata: failed to seek: %w", err)
	}

	exifData, err := exif.Decode(r)
	if err != nil {
		// scans and PNGs routinely carry no EXIF
		log.Printf("metadata: no EXIF data: %v", err)
		return meta, nil
	}

	if orientation := getInt(exifData, exif.Orientation); orientation != nil && *orientation >= 5 {
		// orientations 5-8 are rotated by 90 degrees; report the displayed size
		meta.Width, meta.Height = &height, &width
	}

	dt, err := exifData.DateTime()
	if err == nil {
		ts := dt.Unix()
		meta.TakenAt = &ts
	} else {
		log.Printf("metadata: could not read DateTimeOriginal: %v", err)
	}
	return meta, nil
}

// helper to safely get an integer tag
func getInt(exifData *exif.Exif, tagName exif.FieldName) *int {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	val, err := tag.Int(0)
	if err != nil {
		return nil
	}
	return &val
}
