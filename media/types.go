package media

type AssetType string

const (
	AssetTypePortrait  AssetType = "portrait"
	AssetTypeThumbnail AssetType = "thumbnail"
)

// Metadata holds what the metadata task records on an uploaded image
type Metadata struct {
	Width   *int   `json:"width,omitempty"`
	Height  *int   `json:"height,omitempty"`
	TakenAt *int64 `json:"taken_at,omitempty"` // EXIF DateTimeOriginal, unix seconds
}
