package utils

import (
	"bytes"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func TestGetImageMetadata_NoExif(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 40, 30))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	path := filepath.Join(t.TempDir(), "scan.png")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	meta, err := GetImageMetadata(path)
	if err != nil {
		t.Fatalf("GetImageMetadata: %v", err)
	}
	if meta.Width == nil || *meta.Width != 40 || meta.Height == nil || *meta.Height != 30 {
		t.Fatalf("unexpected dimensions %+v", meta)
	}
	if meta.TakenAt != nil {
		t.Fatalf("expected no capture time, got %d", *meta.TakenAt)
	}
}

func TestGetImageMetadata_NotAnImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.jpg")
	if err := os.WriteFile(path, []byte("plain text"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := GetImageMetadata(path); err == nil {
		t.Fatalf("expected decode error")
	}
}
