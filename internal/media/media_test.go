package media

import (
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		img.Set(x, 0, color.RGBA{R: 200, A: 255})
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestSaveAndPreview(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Save("sheet.png", pngBytes(t, 1600, 1200))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	preview, err := s.Preview(key, 400, 400)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	img, err := jpeg.Decode(bytes.NewReader(preview))
	if err != nil {
		t.Fatalf("preview is not a jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 300 {
		t.Fatalf("preview size = %dx%d, want 400x300", b.Dx(), b.Dy())
	}

	if err := s.Remove(key); err != nil {
		t.Fatalf("remove: %v", err)
	}
}

func TestSaveRejectsBadUploads(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	tests := []struct {
		name string
		file string
		data []byte
		want error
	}{
		{name: "empty", file: "a.png", data: nil, want: ErrEmptyUpload},
		{name: "text file", file: "notes.txt", data: []byte("hello"), want: ErrUnsupportedFormat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := s.Save(tt.file, tt.data); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := s.Save("broken.png", []byte("\x89PNG\r\n\x1a\nnot really")); err == nil {
		t.Fatal("expected decode error for corrupt png")
	}
}

// pngHeader returns a PNG signature and IHDR chunk declaring w x h grayscale
// pixels with no image data behind it.
func pngHeader(w, h uint32) []byte {
	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], w)
	binary.BigEndian.PutUint32(ihdr[4:], h)
	ihdr[8] = 8 // bit depth

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	_ = binary.Write(&buf, binary.BigEndian, uint32(len(ihdr)))
	chunk := append([]byte("IHDR"), ihdr...)
	buf.Write(chunk)
	_ = binary.Write(&buf, binary.BigEndian, crc32.ChecksumIEEE(chunk))
	return buf.Bytes()
}

func TestSaveRejectsOversizedDimensions(t *testing.T) {
	dir := t.TempDir()
	s, _ := NewStore(dir)
	if _, err := s.Save("huge.png", pngHeader(20000, 20000)); !errors.Is(err, ErrTooManyPixels) {
		t.Fatalf("err = %v, want %v", err, ErrTooManyPixels)
	}
}

func TestPreviewRejectsTraversal(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	if _, err := s.Preview("../../etc/passwd", 10, 10); !errors.Is(err, ErrInvalidKey) {
		t.Fatalf("err = %v", err)
	}
}
