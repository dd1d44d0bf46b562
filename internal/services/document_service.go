package services

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/repositories"
	"github.com/sestra24/recruitment-service/internal/storage"
	"github.com/sestra24/recruitment-service/internal/utils"
)

const MaxDocumentSize = 10 << 20 // 10 MB

// allowedExtensions maps the accepted upload kinds to normalized extensions.
var allowedExtensions = map[string]string{
	".pdf":  "pdf",
	".jpg":  "jpg",
	".jpeg": "jpeg",
	".png":  "png",
}

// documentColumns maps a document kind to its column on nurse_applications.
var documentColumns = map[models.DocumentKind]string{
	models.DocumentDiploma:     "diploma_url",
	models.DocumentMedicalBook: "medical_book_url",
	models.DocumentPassport:    "passport_url",
	models.DocumentPhoto:       "photo_url",
}

// DocumentService stores candidate files and keeps the per-kind URL on the
// application record in sync with the object store.
type DocumentService interface {
	Upload(ctx context.Context, userID string, kind models.DocumentKind, filename string, size int64, r io.Reader) (string, error)
	Remove(ctx context.Context, userID string, kind models.DocumentKind) error
}

type documentService struct {
	repo   repositories.Repository
	store  storage.ObjectStore
	logger utils.Logger
}

func NewDocumentService(repo repositories.Repository, store storage.ObjectStore, logger utils.Logger) DocumentService {
	return &documentService{
		repo:   repo,
		store:  store,
		logger: logger,
	}
}

// Upload validates, stores the file and records its URL on the application.
// Re-uploading a kind replaces the recorded URL; the previous object is left
// for retention.
func (s *documentService) Upload(ctx context.Context, userID string, kind models.DocumentKind, filename string, size int64, r io.Reader) (string, error) {
	if !kind.Valid() {
		return "", ErrUnknownDocument
	}
	if size > MaxDocumentSize {
		return "", ErrFileTooLarge
	}
	ext, ok := allowedExtensions[strings.ToLower(path.Ext(filename))]
	if !ok {
		return "", ErrFileTypeInvalid
	}

	app, err := s.repo.Application().GetByUserID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return "", ErrApplicationNotFound
		}
		return "", fmt.Errorf("failed to load application: %w", err)
	}
	if app.Status.IsTerminal() {
		return "", ErrApplicationTerminal
	}

	key := fmt.Sprintf("%s/%s_%d.%s", userID, kind, time.Now().Unix(), ext)
	// Reads one byte past the ceiling; lr.N == 0 means the stream ran over
	// the declared size.
	lr := &io.LimitedReader{R: r, N: MaxDocumentSize + 1}
	if err := s.store.Put(ctx, key, lr); err != nil {
		return "", fmt.Errorf("failed to store document: %w", err)
	}
	if lr.N == 0 {
		if delErr := s.store.Delete(ctx, key); delErr != nil {
			s.logger.Warn("Failed to remove oversize document", "key", key, "error", delErr)
		}
		return "", ErrFileTooLarge
	}

	url := s.store.URL(key)
	if err := s.repo.Application().UpdateFields(ctx, app.ID, map[string]interface{}{
		documentColumns[kind]: url,
	}); err != nil {
		return "", err
	}

	s.logger.Info("Document uploaded",
		"application_id", app.ID,
		"kind", kind,
		"size", size)

	return url, nil
}

// Remove clears the recorded URL for a document kind.
func (s *documentService) Remove(ctx context.Context, userID string, kind models.DocumentKind) error {
	if !kind.Valid() {
		return ErrUnknownDocument
	}

	app, err := s.repo.Application().GetByUserID(ctx, userID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrApplicationNotFound
		}
		return fmt.Errorf("failed to load application: %w", err)
	}
	if app.Status.IsTerminal() {
		return ErrApplicationTerminal
	}

	return s.repo.Application().UpdateFields(ctx, app.ID, map[string]interface{}{
		documentColumns[kind]: nil,
	})
}
