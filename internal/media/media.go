// Package media stores uploaded communion sign-in sheets on local disk and
// renders downscaled previews.
package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"golang.org/x/image/webp"
)

const (
	MaxUploadBytes = 10 << 20
	// MaxPixels caps width*height of an upload before it is decoded.
	MaxPixels = 64 << 20
)

var (
	ErrEmptyUpload       = errors.New("empty upload")
	ErrTooLarge          = errors.New("upload exceeds 10MB")
	ErrTooManyPixels     = errors.New("image exceeds 64 megapixels")
	ErrUnsupportedFormat = errors.New("unsupported image format (use jpg, png or webp)")
	ErrInvalidKey        = errors.New("invalid media key")
)

type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create media directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save checks that data is a decodable image and writes it under a fresh
// key that keeps the original extension.
func (s *Store) Save(filename string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyUpload
	}
	if len(data) > MaxUploadBytes {
		return "", ErrTooLarge
	}
	ext, err := detectExt(data, filename)
	if err != nil {
		return "", err
	}
	cfg, err := decodeConfig(data, ext)
	if err != nil {
		return "", fmt.Errorf("decode upload: %w", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", ErrTooManyPixels
	}
	if _, err := decode(data, ext); err != nil {
		return "", fmt.Errorf("decode upload: %w", err)
	}

	key := "communion_sheets/" + uuid.NewString() + ext
	path := filepath.Join(s.dir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("create sheet directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write sheet image: %w", err)
	}
	return key, nil
}

// Preview returns a JPEG of the stored image fitted inside maxW x maxH.
func (s *Store) Preview(key string, maxW, maxH int) ([]byte, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sheet image: %w", err)
	}
	img, err := decode(data, strings.ToLower(filepath.Ext(key)))
	if err != nil {
		return nil, fmt.Errorf("decode sheet image: %w", err)
	}

	b := img.Bounds()
	if b.Dx() > maxW || b.Dy() > maxH {
		img = imaging.Fit(img, maxW, maxH, imaging.Lanczos)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
		return nil, fmt.Errorf("encode preview: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *Store) Remove(key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove sheet image: %w", err)
	}
	return nil
}

func (s *Store) path(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if key == "" || filepath.IsAbs(clean) || strings.HasPrefix(clean, "..") {
		return "", ErrInvalidKey
	}
	return filepath.Join(s.dir, clean), nil
}

func detectExt(data []byte, filename string) (string, error) {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	ct := http.DetectContentType(head)
	switch {
	case strings.Contains(ct, "jpeg"):
		return ".jpg", nil
	case strings.Contains(ct, "png"):
		return ".png", nil
	case strings.Contains(ct, "webp"):
		return ".webp", nil
	}
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".jpg", ".jpeg":
		return ".jpg", nil
	case ".png", ".webp":
		return ext, nil
	}
	return "", ErrUnsupportedFormat
}

func decodeConfig(data []byte, ext string) (image.Config, error) {
	r := bytes.NewReader(data)
	switch ext {
	case ".jpg", ".jpeg":
		return jpeg.DecodeConfig(r)
	case ".png":
		return png.DecodeConfig(r)
	case ".webp":
		return webp.DecodeConfig(r)
	}
	return image.Config{}, ErrUnsupportedFormat
}

func decode(data []byte, ext string) (image.Image, error) {
	r := bytes.NewReader(data)
	switch ext {
	case ".jpg", ".jpeg":
		return jpeg.Decode(r)
	case ".png":
		return png.Decode(r)
	case ".webp":
		return webp.Decode(r)
	}
	return nil, ErrUnsupportedFormat
}
