// Package debug holds viewer diagnostics: frame captures written as PNG.
package debug

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"time"
)

// Screenshots writes frame captures into Dir as <Prefix>_<timestamp>.png.
type Screenshots struct {
	Dir    string
	Prefix string
}

// Filename returns the path a capture taken at t is written to.
func (s Screenshots) Filename(t time.Time) string {
	name := fmt.Sprintf("%s_%s.png", s.Prefix, t.Format("2006-01-02_15-04-05.000"))
	if s.Dir != "" {
		name = filepath.Join(s.Dir, name)
	}
	return name
}

// Save encodes bottom-up RGBA rows, as read back from the framebuffer,
// and returns the written path.
func (s Screenshots) Save(pixels []byte, width, height int, t time.Time) (string, error) {
	img, err := FromBottomUp(pixels, width, height)
	if err != nil {
		return "", err
	}
	if s.Dir != "" {
		if err := os.MkdirAll(s.Dir, 0o755); err != nil {
			return "", fmt.Errorf("creating output dir: %w", err)
		}
	}

	path := s.Filename(t)
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating file: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		file.Close()
		return "", fmt.Errorf("encoding PNG: %w", err)
	}
	return path, file.Close()
}

// FromBottomUp copies RGBA rows stored bottom row first into an image.
func FromBottomUp(pixels []byte, width, height int) (*image.RGBA, error) {
	if len(pixels) != width*height*4 {
		return nil, fmt.Errorf("pixel data size mismatch: expected %d, got %d", width*height*4, len(pixels))
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	row := width * 4
	for y := 0; y < height; y++ {
		src := (height - 1 - y) * row
		copy(img.Pix[y*img.Stride:y*img.Stride+row], pixels[src:src+row])
	}
	return img, nil
}
