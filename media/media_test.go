package media

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestProcessor(t *testing.T) (*Processor, *LocalStorage) {
	t.Helper()
	store, err := NewLocalStorage(t.TempDir(), map[AssetType]string{
		AssetTypePortrait:  "portraits",
		AssetTypeThumbnail: "thumbnails",
	})
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	return NewProcessor(store), store
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, x%h, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestThumbnailSize(t *testing.T) {
	tests := []struct {
		w, h, max    int
		wantW, wantH int
	}{
		{1200, 600, 300, 300, 150},
		{600, 1200, 300, 150, 300},
		{200, 100, 300, 200, 100},
		{3000, 1, 300, 300, 1},
	}
	for _, tt := range tests {
		gotW, gotH := thumbnailSize(tt.w, tt.h, tt.max)
		if gotW != tt.wantW || gotH != tt.wantH {
			t.Errorf("thumbnailSize(%d,%d,%d) = %dx%d, want %dx%d", tt.w, tt.h, tt.max, gotW, gotH, tt.wantW, tt.wantH)
		}
	}
}

func TestSavePortraitAndThumbnail(t *testing.T) {
	proc, store := newTestProcessor(t)

	rel, err := proc.SavePortrait(7, "Grandma.PNG", pngBytes(t, 640, 320))
	if err != nil {
		t.Fatalf("SavePortrait: %v", err)
	}
	if !strings.HasPrefix(rel, "portraits/7/") || !strings.HasSuffix(rel, ".png") {
		t.Fatalf("unexpected portrait path %q", rel)
	}

	thumbRel, err := proc.GenerateThumbnail(rel, 100)
	if err != nil {
		t.Fatalf("GenerateThumbnail: %v", err)
	}
	full, err := store.GetFullPath(thumbRel)
	if err != nil {
		t.Fatalf("GetFullPath: %v", err)
	}
	f, err := os.Open(full)
	if err != nil {
		t.Fatalf("open thumbnail: %v", err)
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		t.Fatalf("decode thumbnail: %v", err)
	}
	if format != "jpeg" || cfg.Width != 100 || cfg.Height != 50 {
		t.Fatalf("thumbnail is %s %dx%d, want jpeg 100x50", format, cfg.Width, cfg.Height)
	}
}

func TestSavePortraitRejectsNonImages(t *testing.T) {
	proc, _ := newTestProcessor(t)
	if _, err := proc.SavePortrait(1, "notes.txt", []byte("hello")); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage for extension, got %v", err)
	}
	if _, err := proc.SavePortrait(1, "fake.jpg", []byte("not a jpeg")); !errors.Is(err, ErrUnsupportedImage) {
		t.Fatalf("expected ErrUnsupportedImage for content, got %v", err)
	}
}

func TestGetFullPathRejectsTraversal(t *testing.T) {
	_, store := newTestProcessor(t)
	if _, err := store.GetFullPath("../../etc/passwd"); err == nil {
		t.Fatalf("expected traversal to be rejected")
	}
	if _, err := store.GetFullPath(filepath.ToSlash("portraits/1/x.jpg")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDeleteMissingAssetIsNoop(t *testing.T) {
	_, store := newTestProcessor(t)
	if err := store.Delete("thumbnails/missing.jpg"); err != nil {
		t.Fatalf("Delete on a missing file: %v", err)
	}
}
