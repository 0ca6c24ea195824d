package media

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
)

func createTestPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 255 / width), uint8(y * 255 / height), 128, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func TestOutputName(t *testing.T) {
	cases := []struct {
		name   string
		in     string
		format Format
		want   string
	}{
		{"jpeg source", "photo.jpg", FormatPNG, "photo_no_bg.png"},
		{"nested path", "/tmp/shots/cat.webp", FormatPNG, "cat_no_bg.png"},
		{"no extension", "portrait", FormatPNG, "portrait_no_bg.png"},
		{"webp output", "dog.png", FormatWebP, "dog_no_bg.webp"},
		{"empty name", "", FormatPNG, "background_removed.png"},
		{"blank name", "   ", "", "background_removed.png"},
		{"extension only", ".png", FormatPNG, "background_removed.png"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := OutputName(tc.in, tc.format); got != tc.want {
				t.Fatalf("OutputName(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestIsImage(t *testing.T) {
	for _, v := range []string{"image/png", "IMAGE/JPEG", " image/webp "} {
		if !IsImage(v) {
			t.Fatalf("IsImage(%q) = false, want true", v)
		}
	}
	for _, v := range []string{"", "text/plain", "application/octet-stream", "video/mp4"} {
		if IsImage(v) {
			t.Fatalf("IsImage(%q) = true, want false", v)
		}
	}
}

func TestDetectType_SniffsContentBeforeExtension(t *testing.T) {
	data := createTestPNG(t, 4, 4)
	if got := DetectType("mislabelled.txt", data); got != "image/png" {
		t.Fatalf("DetectType = %q, want image/png", got)
	}
	if got := DetectType("photo.jpg", []byte("not really a jpeg")); got != "image/jpeg" {
		t.Fatalf("DetectType by extension = %q, want image/jpeg", got)
	}
	if got := DetectType("notes", []byte("plain words")); IsImage(got) {
		t.Fatalf("DetectType(text) = %q, want non-image", got)
	}
}

func TestFromUpload_DeclaredTypeWins(t *testing.T) {
	f := FromUpload("dir/a.bin", "image/gif; charset=binary", []byte("x"))
	if f.MIMEType != "image/gif" {
		t.Fatalf("MIMEType = %q, want image/gif", f.MIMEType)
	}
	if f.Name != "a.bin" {
		t.Fatalf("Name = %q, want a.bin", f.Name)
	}

	f = FromUpload("a.png", "application/octet-stream", createTestPNG(t, 2, 2))
	if f.MIMEType != "image/png" {
		t.Fatalf("MIMEType = %q, want sniffed image/png", f.MIMEType)
	}
}

func TestOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shot.png")
	if err := os.WriteFile(path, createTestPNG(t, 8, 8), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	if f.Name != "shot.png" || f.MIMEType != "image/png" || f.Size() == 0 {
		t.Fatalf("Open = %+v, want shot.png image/png with data", f)
	}

	if _, err := Open("  "); err == nil {
		t.Fatalf("Open(blank) returned nil error")
	}
	if _, err := Open(filepath.Join(t.TempDir(), "missing.png")); err == nil {
		t.Fatalf("Open(missing) returned nil error")
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	raw := createTestPNG(t, 3, 3)
	enc := EncodeBytes("", raw)
	if enc.MIMEType != DefaultMIMEType {
		t.Fatalf("MIMEType = %q, want %q", enc.MIMEType, DefaultMIMEType)
	}
	got, err := enc.Bytes()
	if err != nil {
		t.Fatalf("Bytes returned error: %v", err)
	}
	if !bytes.Equal(got, raw) {
		t.Fatalf("decoded bytes differ from input")
	}
	if _, err := (Encoded{}).Bytes(); err == nil {
		t.Fatalf("Bytes on empty Encoded returned nil error")
	}
	if _, err := (Encoded{Data: "%%%"}).Bytes(); err == nil {
		t.Fatalf("Bytes on invalid base64 returned nil error")
	}
}

func TestSave_WritesPNGUnchanged(t *testing.T) {
	raw := createTestPNG(t, 5, 5)
	dir := filepath.Join(t.TempDir(), "out")

	path, err := Save(dir, "holiday.jpeg", EncodeBytes("image/png", raw), FormatPNG)
	if err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	if filepath.Base(path) != "holiday_no_bg.png" {
		t.Fatalf("Save path = %q, want holiday_no_bg.png", path)
	}
	written, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if !bytes.Equal(written, raw) {
		t.Fatalf("PNG payload was re-encoded, want byte-identical copy")
	}
}

func TestDecodeAndThumbnail(t *testing.T) {
	img, err := Decode(createTestPNG(t, 200, 100))
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	thumb := Thumbnail(img, 40, 40)
	if b := thumb.Bounds(); b.Dx() != 40 || b.Dy() != 20 {
		t.Fatalf("Thumbnail bounds = %dx%d, want 40x20", b.Dx(), b.Dy())
	}
	if same := Thumbnail(img, 400, 400); same.Bounds() != img.Bounds() {
		t.Fatalf("Thumbnail upscaled a small image")
	}
	if _, err := Decode([]byte("garbage")); err == nil {
		t.Fatalf("Decode(garbage) returned nil error")
	}
}

func TestParseFormat(t *testing.T) {
	if f, err := ParseFormat(""); err != nil || f != FormatPNG {
		t.Fatalf("ParseFormat(\"\") = %q, %v", f, err)
	}
	if f, err := ParseFormat(" WEBP "); err != nil || f != FormatWebP {
		t.Fatalf("ParseFormat(WEBP) = %q, %v", f, err)
	}
	if _, err := ParseFormat("gif"); err == nil {
		t.Fatalf("ParseFormat(gif) returned nil error")
	}
	if FormatWebP.MIMEType() != "image/webp" || FormatPNG.MIMEType() != "image/png" {
		t.Fatalf("unexpected format media types")
	}
}
