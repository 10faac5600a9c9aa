package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
)

const (
	ThumbnailJpegQuality   = 90
	ThumbnailFileExtension = ".jpg"
)

// ErrUnsupportedImage is returned for uploads that are not a decodable raster image
var ErrUnsupportedImage = errors.New("unsupported image file")

// Processor stores portraits and derives thumbnails from them. It relies on a
// Store implementation for saving the results.
type Processor struct {
	store Store
}

func NewProcessor(store Store) *Processor {
	return &Processor{store: store}
}

// Store exposes the backing store so callers can resolve or delete assets
func (p *Processor) Store() Store {
	return p.store
}

// SavePortrait validates an uploaded photo and stores it unmodified under the
// individual's portrait directory, keeping EXIF data for the metadata task.
func (p *Processor) SavePortrait(individualID uint, filename string, data []byte) (string, error) {
	if !IsRasterImage(filename) {
		return "", fmt.Errorf("%w: extension of '%s'", ErrUnsupportedImage, filename)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("%w: invalid dimensions %dx%d", ErrUnsupportedImage, cfg.Width, cfg.Height)
	}

	subDir := strconv.FormatUint(uint64(individualID), 10)
	relPath, err := p.store.Save(AssetTypePortrait, subDir, "", normalizedExtension(filename), bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to save portrait via store: %w", err)
	}
	log.Printf("processor: stored %s portrait (%dx%d) for individual %d at %s", format, cfg.Width, cfg.Height, individualID, relPath)
	return relPath, nil
}

// thumbnailSize returns dimensions where the longest side is at most maxSize
func thumbnailSize(width, height, maxSize int) (int, int) {
	if width > height {
		if width <= maxSize {
			return width, height
		}
		return maxSize, maxInt(1, int(math.Round(float64(height)*(float64(maxSize)/float64(width)))))
	}
	if height <= maxSize {
		return width, height
	}
	return maxInt(1, int(math.Round(float64(width)*(float64(maxSize)/float64(height))))), maxSize
}

// GenerateThumbnail creates an auto-oriented thumbnail of a stored portrait where
// the longest side matches maxSize. Returns the relative path of the thumbnail.
func (p *Processor) GenerateThumbnail(portraitRelPath string, maxSize int) (string, error) {
	fullPath, err := p.store.GetFullPath(portraitRelPath)
	if err != nil {
		return "", err
	}
	originalImg, err := imaging.Open(fullPath, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("failed to open portrait %s: %w", portraitRelPath, err)
	}

	bounds := originalImg.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return "", fmt.Errorf("invalid original image dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}
	newWidth, newHeight := thumbnailSize(bounds.Dx(), bounds.Dy(), maxSize)
	thumb := imaging.Resize(originalImg, newWidth, newHeight, imaging.Lanczos)

	reader, writer := io.Pipe()
	go func() {
		err := imaging.Encode(writer, thumb, imaging.JPEG, imaging.JPEGQuality(ThumbnailJpegQuality))
		if err != nil {
			log.Printf("processor: failed to encode thumbnail: %v", err)
			writer.CloseWithError(fmt.Errorf("thumbnail encoding failed: %w", err))
			return
		}
		writer.Close()
	}()

	savedRelPath, err := p.store.Save(AssetTypeThumbnail, "", "", ThumbnailFileExtension, reader)
	reader.Close()
	if err != nil {
		return "", fmt.Errorf("failed to save thumbnail via store: %w", err)
	}

	log.Printf("processor: generated thumbnail for %s at %s", portraitRelPath, savedRelPath)
	return savedRelPath, nil
}
