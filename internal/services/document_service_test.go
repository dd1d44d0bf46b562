package services

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sestra24/recruitment-service/internal/models"
	"github.com/sestra24/recruitment-service/internal/storage"
)

func newDocumentServiceFixture(t *testing.T) (*fakeRepository, DocumentService) {
	t.Helper()
	repo := newFakeRepository()
	store, err := storage.NewLocalStore(t.TempDir(), "https://files.example.com")
	require.NoError(t, err)
	return repo, NewDocumentService(repo, store, newTestLogger())
}

func TestUpload_StoresFileAndRecordsURL(t *testing.T) {
	repo, svc := newDocumentServiceFixture(t)
	app := applicationFixture("user-1", models.StepDocuments, models.StatusNew)
	require.NoError(t, repo.Application().Create(context.Background(), app))

	url, err := svc.Upload(context.Background(), "user-1", models.DocumentDiploma,
		"diploma.pdf", 1024, strings.NewReader("%PDF-1.4 fake"))
	require.NoError(t, err)
	assert.Contains(t, url, "https://files.example.com/user-1/diploma_")
	assert.True(t, strings.HasSuffix(url, ".pdf"))

	stored, err := repo.Application().GetByID(context.Background(), app.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.DiplomaURL)
	assert.Equal(t, url, *stored.DiplomaURL)
}

func TestUpload_Rejections(t *testing.T) {
	repo, svc := newDocumentServiceFixture(t)
	app := applicationFixture("user-1", models.StepDocuments, models.StatusNew)
	require.NoError(t, repo.Application().Create(context.Background(), app))

	_, err := svc.Upload(context.Background(), "user-1", models.DocumentKind("visa"),
		"visa.pdf", 10, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrUnknownDocument)

	_, err = svc.Upload(context.Background(), "user-1", models.DocumentPhoto,
		"photo.jpg", MaxDocumentSize+1, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = svc.Upload(context.Background(), "user-1", models.DocumentPhoto,
		"photo.gif", 10, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrFileTypeInvalid)

	_, err = svc.Upload(context.Background(), "ghost", models.DocumentPhoto,
		"photo.png", 10, strings.NewReader("x"))
	assert.ErrorIs(t, err, ErrApplicationNotFound)
}

// repeatReader yields its byte forever; stands in for a stream longer than
// its declared size.
type repeatReader byte

func (r repeatReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r)
	}
	return len(p), nil
}

func TestUpload_RejectsStreamLargerThanDeclaredSize(t *testing.T) {
	repo := newFakeRepository()
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir, "https://files.example.com")
	require.NoError(t, err)
	svc := NewDocumentService(repo, store, newTestLogger())

	app := applicationFixture("user-1", models.StepDocuments, models.StatusNew)
	require.NoError(t, repo.Application().Create(context.Background(), app))

	_, err = svc.Upload(context.Background(), "user-1", models.DocumentPhoto,
		"photo.png", 1024, repeatReader('a'))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	stored, err := repo.Application().GetByID(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PhotoURL)

	leftovers, err := filepath.Glob(filepath.Join(dir, "user-1", "*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestRemove_ClearsURL(t *testing.T) {
	repo, svc := newDocumentServiceFixture(t)
	app := applicationFixture("user-1", models.StepDocuments, models.StatusNew)
	existing := "https://files.example.com/user-1/passport_1.jpg"
	app.PassportURL = &existing
	require.NoError(t, repo.Application().Create(context.Background(), app))

	require.NoError(t, svc.Remove(context.Background(), "user-1", models.DocumentPassport))

	stored, err := repo.Application().GetByID(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.PassportURL)
}
