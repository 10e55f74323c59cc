package generator

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"appforge/internal/models"
)

const (
	dataURIScheme         = "data:"
	defaultAttachmentName = "attachment"
)

var errMalformedDataURI = errors.New("malformed data URI: missing ',' separator")

// DecodeAttachments writes every data-URI attachment into dir and returns one
// result per input. Inputs that are not data URIs are marked Skipped. A failure
// on one attachment never stops the others. Names are not deduplicated: a later
// attachment with the same name overwrites the earlier file.
func DecodeAttachments(dir string, attachments []models.Attachment) []models.AttachmentResult {
	results := make([]models.AttachmentResult, 0, len(attachments))
	if len(attachments) == 0 {
		return results
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		for _, att := range attachments {
			results = append(results, models.AttachmentResult{Name: attachmentName(att), Err: fmt.Errorf("create attachment dir: %w", err)})
		}
		return results
	}

	for _, att := range attachments {
		name := attachmentName(att)
		if !strings.HasPrefix(att.URL, dataURIScheme) {
			results = append(results, models.AttachmentResult{Name: name, Skipped: true})
			continue
		}
		saved, err := decodeOne(dir, name, att.URL)
		if err != nil {
			slog.Warn("failed to decode attachment", "name", name, "error", err)
			results = append(results, models.AttachmentResult{Name: name, Err: err})
			continue
		}
		results = append(results, models.AttachmentResult{Name: name, Saved: saved})
	}
	return results
}

// SavedAttachments keeps only the successfully decoded attachments, in input order.
func SavedAttachments(results []models.AttachmentResult) []models.SavedAttachment {
	saved := make([]models.SavedAttachment, 0, len(results))
	for _, r := range results {
		if r.OK() {
			saved = append(saved, *r.Saved)
		}
	}
	return saved
}

// ParseDataURI splits a data URI into its MIME type and decoded payload.
func ParseDataURI(uri string) (string, []byte, error) {
	header, payload, found := strings.Cut(uri, ",")
	if !found {
		return "", nil, errMalformedDataURI
	}
	mime, _, _ := strings.Cut(strings.TrimPrefix(header, dataURIScheme), ";")

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// tolerate unpadded payloads
		raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if rawErr != nil {
			return "", nil, fmt.Errorf("decode base64 payload: %w", err)
		}
		data = raw
	}
	return mime, data, nil
}

// EncodeDataURI is the inverse of ParseDataURI.
func EncodeDataURI(mime string, data []byte) string {
	return dataURIScheme + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// AttachmentFromFile reads a local file into a data-URI attachment. The MIME
// type comes from the extension, then from content sniffing.
func AttachmentFromFile(path string) (models.Attachment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return models.Attachment{}, err
	}
	typ, _, _ := strings.Cut(mime.TypeByExtension(filepath.Ext(path)), ";")
	if typ == "" {
		typ, _, _ = strings.Cut(http.DetectContentType(data), ";")
	}
	return models.Attachment{Name: filepath.Base(path), URL: EncodeDataURI(typ, data)}, nil
}

func decodeOne(dir, name, uri string) (*models.SavedAttachment, error) {
	mime, data, err := ParseDataURI(uri)
	if err != nil {
		return nil, err
	}
	path := filepath.Join(dir, filepath.Base(name))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write attachment: %w", err)
	}
	return &models.SavedAttachment{
		Name: name,
		Path: path,
		MIME: mime,
		Size: len(data),
	}, nil
}

func attachmentName(att models.Attachment) string {
	if name := strings.TrimSpace(att.Name); name != "" {
		return name
	}
	return defaultAttachmentName
}
