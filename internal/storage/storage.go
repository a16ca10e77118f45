package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/afs/url"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

// FileStorage stores uploaded media under relative paths such as "events/42/main/<uuid>.jpg".
type FileStorage interface {
	Store(ctx context.Context, dir, originalName string, data []byte) (string, error)
	Delete(ctx context.Context, relPath string) error
	Open(ctx context.Context, relPath string) ([]byte, error)
	PublicURL(relPath string) string
	// PathFromReference accepts either a public URL or a stored path and returns the stored path.
	PathFromReference(ref string) string
}

var imageExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// DetectImage sniffs data and returns the file extension for an accepted image type.
func DetectImage(data []byte, maxBytes int64) (string, error) {
	if len(data) == 0 {
		return "", models.NewValidation("EMPTY_FILE", "uploaded file is empty")
	}
	if maxBytes > 0 && int64(len(data)) > maxBytes {
		return "", models.NewValidation("FILE_TOO_LARGE", "uploaded file exceeds %d bytes", maxBytes)
	}
	contentType := http.DetectContentType(data)
	ext, ok := imageExtensions[contentType]
	if !ok {
		return "", models.NewValidation("UNSUPPORTED_MEDIA_TYPE", "unsupported file type %s", contentType)
	}
	return ext, nil
}

// AFSStorage keeps files in any viant/afs backend: file://, mem://, s3://, gs://.
type AFSStorage struct {
	fs            afs.Service
	baseURL       string
	publicBaseURL string
	log           *logger.Logger
}

func NewAFSStorage(fs afs.Service, baseURL, publicBaseURL string, log *logger.Logger) *AFSStorage {
	return &AFSStorage{
		fs:            fs,
		baseURL:       strings.TrimRight(baseURL, "/"),
		publicBaseURL: strings.TrimRight(publicBaseURL, "/"),
		log:           log,
	}
}

func (s *AFSStorage) Store(ctx context.Context, dir, originalName string, data []byte) (string, error) {
	ext := strings.ToLower(path.Ext(originalName))
	if detected := imageExtensions[http.DetectContentType(data)]; detected != "" {
		ext = detected
	}
	relPath := path.Join(dir, uuid.NewString()+ext)

	if err := s.fs.Upload(ctx, s.objectURL(relPath), file.DefaultFileOsMode, bytes.NewReader(data)); err != nil {
		return "", fmt.Errorf("upload %s: %w", relPath, err)
	}
	s.log.LogStorage("STORE", relPath, fmt.Sprintf("%d bytes", len(data)))
	return relPath, nil
}

// Delete removes relPath. Missing files are not an error.
func (s *AFSStorage) Delete(ctx context.Context, relPath string) error {
	if relPath == "" {
		return nil
	}
	objectURL := s.objectURL(relPath)
	exists, err := s.fs.Exists(ctx, objectURL)
	if err != nil {
		return fmt.Errorf("check %s: %w", relPath, err)
	}
	if !exists {
		return nil
	}
	if err := s.fs.Delete(ctx, objectURL); err != nil {
		return fmt.Errorf("delete %s: %w", relPath, err)
	}
	s.log.LogStorage("DELETE", relPath, "removed")
	return nil
}

func (s *AFSStorage) Open(ctx context.Context, relPath string) ([]byte, error) {
	clean, ok := cleanPath(relPath)
	if !ok {
		return nil, models.NewNotFound("MEDIA_NOT_FOUND", "media %s not found", relPath)
	}
	objectURL := s.objectURL(clean)
	exists, err := s.fs.Exists(ctx, objectURL)
	if err != nil {
		return nil, fmt.Errorf("check %s: %w", clean, err)
	}
	if !exists {
		return nil, models.NewNotFound("MEDIA_NOT_FOUND", "media %s not found", clean)
	}
	data, err := s.fs.DownloadWithURL(ctx, objectURL)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", clean, err)
	}
	return data, nil
}

func (s *AFSStorage) PublicURL(relPath string) string {
	if relPath == "" {
		return ""
	}
	return s.publicBaseURL + "/" + strings.TrimLeft(relPath, "/")
}

func (s *AFSStorage) PathFromReference(ref string) string {
	if s.publicBaseURL != "" && strings.HasPrefix(ref, s.publicBaseURL+"/") {
		return strings.TrimPrefix(ref, s.publicBaseURL+"/")
	}
	return strings.TrimLeft(ref, "/")
}

func (s *AFSStorage) objectURL(relPath string) string {
	return url.Join(s.baseURL, relPath)
}

// cleanPath rejects paths escaping the storage root.
func cleanPath(relPath string) (string, bool) {
	clean := path.Clean("/" + relPath)
	if clean == "/" || strings.Contains(relPath, "..") {
		return "", false
	}
	return strings.TrimPrefix(clean, "/"), true
}
