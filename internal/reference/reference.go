// Package reference turns uploaded style-reference files into the encoded
// payload sent to the model.
package reference

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"stylefuse/internal/domain"
)

// AssumedMIMEType tags every payload sent to the model, whatever the upload
// was sniffed as.
const AssumedMIMEType = "image/jpeg"

// Source identifies how an upload reached the service.
type Source string

const (
	SourcePicker Source = "picker"
	SourceDrop   Source = "drop"
)

// ParseSource maps free-form input onto a Source, defaulting to the picker.
func ParseSource(raw string) Source {
	if strings.EqualFold(strings.TrimSpace(raw), string(SourceDrop)) {
		return SourceDrop
	}
	return SourcePicker
}

// Upload is an encoded reference image ready to be handed to a session.
type Upload struct {
	Name     string
	MIMEType string
	Data     []byte
	Payload  string
}

// ErrTooLarge is returned when an upload exceeds the configured limit.
var ErrTooLarge = errors.New("upload too large")

var dataURIPrefix = regexp.MustCompile(`^data:image/[\w.+-]+;base64,`)

// Read consumes r and encodes it. limit <= 0 disables the size check.
// Non-image content is rejected with domain.ErrUnsupportedMedia.
func Read(ctx context.Context, r io.Reader, name string, limit int64) (*Upload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit > 0 {
		r = io.LimitReader(r, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reference: read %q: %w", name, err)
	}
	if limit > 0 && int64(len(data)) > limit {
		return nil, fmt.Errorf("reference: %q exceeds %d bytes: %w", name, limit, ErrTooLarge)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("reference: %q: %w", name, domain.ErrEmptyUpload)
	}
	mimeType := DetectMIME(data)
	if !IsImage(mimeType) {
		return nil, fmt.Errorf("reference: %q sniffed as %s: %w", name, mimeType, domain.ErrUnsupportedMedia)
	}
	return &Upload{
		Name:     name,
		MIMEType: mimeType,
		Data:     data,
		Payload:  DataURI(mimeType, data),
	}, nil
}

// ReadFile opens path and encodes its contents with Read.
func ReadFile(ctx context.Context, path string, limit int64) (*Upload, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("reference: open: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Read(ctx, f, filepath.Base(path), limit)
}

// DetectMIME sniffs the media type of data without parameters.
func DetectMIME(data []byte) string {
	ct := http.DetectContentType(data)
	if mediaType, _, err := mime.ParseMediaType(ct); err == nil {
		return mediaType
	}
	return ct
}

// IsImage reports whether mimeType is in the image/* family.
func IsImage(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(mimeType)), "image/")
}

// DataURI builds a base64 data URI for data.
func DataURI(mimeType string, data []byte) string {
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// StripDataURIPrefix removes a leading "data:image/<subtype>;base64," marker.
// Payloads without the marker are returned unchanged.
func StripDataURIPrefix(payload string) string {
	return dataURIPrefix.ReplaceAllString(payload, "")
}

// Decode returns the raw bytes behind payload, with or without a data URI
// prefix.
func Decode(payload string) ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(StripDataURIPrefix(payload))
	if err != nil {
		return nil, fmt.Errorf("reference: decode payload: %w", err)
	}
	return data, nil
}
