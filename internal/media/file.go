package media

import (
	"encoding/base64"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMIMEType is assumed for model output that does not declare a type.
const DefaultMIMEType = "image/png"

// File is a source image as handed to the application.
type File struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Encoded is image data in base64 form, tagged with its media type.
type Encoded struct {
	MIMEType string
	Data     string
}

// Open reads a file from disk and determines its media type.
func Open(path string) (File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return File{}, fmt.Errorf("path is empty")
	}
	data, err := os.ReadFile(trimmed)
	if err != nil {
		return File{}, fmt.Errorf("read image: %w", err)
	}
	return File{
		Name:     filepath.Base(trimmed),
		MIMEType: DetectType(trimmed, data),
		Data:     data,
	}, nil
}

// FromUpload builds a File from uploaded bytes. The declared type wins when it
// is present; otherwise the type is detected from the name and content.
func FromUpload(name, declared string, data []byte) File {
	mimeType := normalizeType(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = DetectType(name, data)
	}
	return File{Name: filepath.Base(name), MIMEType: mimeType, Data: data}
}

// DetectType sniffs the content first and falls back to the file extension.
func DetectType(name string, data []byte) string {
	if len(data) > 0 {
		if sniffed := normalizeType(http.DetectContentType(data)); IsImage(sniffed) {
			return sniffed
		}
	}
	if ext := filepath.Ext(name); ext != "" {
		if byExt := normalizeType(mime.TypeByExtension(strings.ToLower(ext))); byExt != "" {
			return byExt
		}
	}
	if len(data) > 0 {
		return normalizeType(http.DetectContentType(data))
	}
	return "application/octet-stream"
}

// IsImage reports whether a media type claims to be an image.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// Size returns the number of raw bytes in the file.
func (f File) Size() int {
	return len(f.Data)
}

// Encode returns the file contents as base64 tagged with the media type.
func (f File) Encode() Encoded {
	return EncodeBytes(f.MIMEType, f.Data)
}

// EncodeBytes wraps raw image bytes as Encoded data.
func EncodeBytes(mimeType string, raw []byte) Encoded {
	mimeType = normalizeType(mimeType)
	if mimeType == "" {
		mimeType = DefaultMIMEType
	}
	return Encoded{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(raw)}
}

// Empty reports whether no image data is held.
func (e Encoded) Empty() bool {
	return strings.TrimSpace(e.Data) == ""
}

// Bytes decodes the base64 payload.
func (e Encoded) Bytes() ([]byte, error) {
	if e.Empty() {
		return nil, fmt.Errorf("no image data")
	}
	raw, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return nil, fmt.Errorf("decode base64: %w", err)
	}
	return raw, nil
}

func normalizeType(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	parsed, _, err := mime.ParseMediaType(v)
	if err != nil {
		return strings.ToLower(v)
	}
	return parsed
}
