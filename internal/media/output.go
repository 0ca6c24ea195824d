package media

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// Format is an output encoding for processed images.
type Format string

const (
	FormatPNG  Format = "png"
	FormatWebP Format = "webp"
)

const (
	outputSuffix = "_no_bg"
	defaultBase  = "background_removed"
)

// ParseFormat validates a configured output format. Empty means PNG.
func ParseFormat(v string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "png":
		return FormatPNG, nil
	case "webp":
		return FormatWebP, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (use png or webp)", v)
	}
}

// MIMEType returns the media type written for the format.
func (f Format) MIMEType() string {
	if f == FormatWebP {
		return "image/webp"
	}
	return "image/png"
}

// OutputName derives the saved file name from the source name.
// "photo.jpg" becomes "photo_no_bg.png"; a missing name falls back to a default.
func OutputName(sourceName string, format Format) string {
	if format == "" {
		format = FormatPNG
	}
	base := strings.TrimSpace(sourceName)
	if base != "" {
		base = filepath.Base(base)
		base = strings.TrimSuffix(base, filepath.Ext(base))
		base = strings.Trim(base, " .")
	}
	if base == "" || base == "/" || base == string(filepath.Separator) {
		return defaultBase + "." + string(format)
	}
	return base + outputSuffix + "." + string(format)
}

// Decode decodes any supported image, falling back to the cgo WebP decoder.
func Decode(data []byte) (image.Image, error) {
	if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, fmt.Errorf("image: unknown or unsupported format")
}

// Encode writes the processed image in the requested format. PNG payloads are
// copied as-is so the alpha channel the model produced is untouched.
func Encode(w io.Writer, enc Encoded, format Format) error {
	raw, err := enc.Bytes()
	if err != nil {
		return err
	}
	if format == "" {
		format = FormatPNG
	}
	if format == FormatPNG && enc.MIMEType == "image/png" {
		_, err := w.Write(raw)
		return err
	}

	img, err := Decode(raw)
	if err != nil {
		return fmt.Errorf("decode processed image: %w", err)
	}
	switch format {
	case FormatWebP:
		return webp.Encode(w, img, &webp.Options{Lossless: true})
	default:
		return imaging.Encode(w, img, imaging.PNG)
	}
}

// Save writes the processed image into dir and returns the written path.
func Save(dir, sourceName string, enc Encoded, format Format) (string, error) {
	if strings.TrimSpace(dir) == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, OutputName(sourceName, format))

	var buf bytes.Buffer
	if err := Encode(&buf, enc, format); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write output: %w", err)
	}
	return path, nil
}

// Thumbnail scales img to fit within maxW x maxH without upscaling.
func Thumbnail(img image.Image, maxW, maxH int) image.Image {
	b := img.Bounds()
	if maxW <= 0 || maxH <= 0 || (b.Dx() <= maxW && b.Dy() <= maxH) {
		return img
	}
	return imaging.Fit(img, maxW, maxH, imaging.Lanczos)
}
