package media

import (
	"context"
	"errors"
	"strings"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
)

// MaxUploadBytes caps attachments at 10 MiB, checked before the file is
// spooled anywhere.
const MaxUploadBytes = 10 << 20

var (
	ErrUnsupportedFormat = errors.New("unsupported media format")
	ErrTooLarge          = errors.New("file exceeds the maximum upload size")
	ErrNotFound          = errors.New("media object not found")
)

var allowedVideoTypes = map[string]struct{}{
	"video/mp4":        {},
	"video/quicktime":  {},
	"video/x-msvideo":  {},
	"video/x-matroska": {},
	"video/webm":       {},
}

// DetectKind maps a MIME type to an upload kind. Any image/* type is
// accepted; video is restricted to the formats the player stack handles.
func DetectKind(contentType string) (Kind, error) {
	mime := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}

	if strings.HasPrefix(mime, "image/") {
		return KindImage, nil
	}
	if _, ok := allowedVideoTypes[mime]; ok {
		return KindVideo, nil
	}
	return "", ErrUnsupportedFormat
}

type Upload struct {
	URL      string `json:"url"`
	PublicID string `json:"public_id"`
}

// Store uploads local files to durable object storage and deletes them by
// public id. Delete reports ErrNotFound when the object is already gone.
type Store interface {
	Upload(ctx context.Context, localPath, contentType string, kind Kind) (Upload, error)
	Delete(ctx context.Context, publicID string, kind Kind) error
}
