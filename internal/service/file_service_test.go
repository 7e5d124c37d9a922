package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/pkg/serverutils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadFileValidation(t *testing.T) {
	uow := newFakeUnitOfWork()
	cfg := testConfig(t)
	cfg.Uploads.MaxSizeBytes = 64
	publisher := &fakePublisherService{}
	svc := NewFileService(cfg, newFakeFactory(uow), nil, publisher, nil)
	userId := uuid.New()
	project := seedProject(t, uow, userId)
	ctx := context.Background()

	t.Run("rejected extension", func(t *testing.T) {
		_, err := svc.UploadFile(ctx, userId, project.Id, "malware.exe", 10, strings.NewReader("x"))
		require.Error(t, err)
		assert.Equal(t, 400, serverutils.StatusFor(err))
	})

	t.Run("oversize", func(t *testing.T) {
		_, err := svc.UploadFile(ctx, userId, project.Id, "big.txt", 65, strings.NewReader("x"))
		require.Error(t, err)
		assert.Equal(t, 400, serverutils.StatusFor(err))
	})

	t.Run("unowned project", func(t *testing.T) {
		_, err := svc.UploadFile(ctx, uuid.New(), project.Id, "ok.txt", 2, strings.NewReader("ok"))
		require.Error(t, err)
		assert.Equal(t, 403, serverutils.StatusFor(err))
	})

	assert.Empty(t, uow.files)
	assert.Empty(t, publisher.published)
	entries, err := os.ReadDir(cfg.Uploads.Dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUploadFileSuccess(t *testing.T) {
	uow := newFakeUnitOfWork()
	cfg := testConfig(t)
	store := &fakeFileStore{}
	publisher := &fakePublisherService{}
	svc := NewFileService(cfg, newFakeFactory(uow), store, publisher, nil)
	userId := uuid.New()
	project := seedProject(t, uow, userId)

	res, err := svc.UploadFile(context.Background(), userId, project.Id,
		"my report.txt", 12, strings.NewReader("file content"))
	require.NoError(t, err)

	assert.Equal(t, "my report.txt", res.OriginalFilename)
	assert.Contains(t, res.Filename, "my_report.txt")
	require.NotNil(t, res.ProviderFileId)
	assert.Equal(t, "file-"+res.Filename, *res.ProviderFileId)

	data, err := os.ReadFile(filepath.Join(cfg.Uploads.Dir, project.Id.String(), res.Filename))
	require.NoError(t, err)
	assert.Equal(t, "file content", string(data))

	require.Len(t, uow.files, 1)
	assert.Equal(t, "txt", uow.files[0].FileType)

	// The consumer was asked to extract context.
	require.Len(t, publisher.published, 1)
	var msg dto.ProcessFileMessage
	require.NoError(t, json.Unmarshal(publisher.published[0], &msg))
	assert.Equal(t, res.Id, msg.FileId)
}

func TestUploadFileMirrorFailureCleansUp(t *testing.T) {
	uow := newFakeUnitOfWork()
	cfg := testConfig(t)
	store := &fakeFileStore{uploadErr: errors.New("provider down")}
	publisher := &fakePublisherService{}
	svc := NewFileService(cfg, newFakeFactory(uow), store, publisher, nil)
	userId := uuid.New()
	project := seedProject(t, uow, userId)

	_, err := svc.UploadFile(context.Background(), userId, project.Id,
		"doc.txt", 4, strings.NewReader("data"))
	require.Error(t, err)
	assert.Equal(t, 503, serverutils.StatusFor(err))

	assert.Empty(t, uow.files)
	assert.Empty(t, publisher.published)
	entries, readErr := os.ReadDir(filepath.Join(cfg.Uploads.Dir, project.Id.String()))
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestUploadFileRowFailureRollsBackMirror(t *testing.T) {
	uow := newFakeUnitOfWork()
	uow.fileCreateErr = errors.New("db down")
	cfg := testConfig(t)
	store := &fakeFileStore{}
	svc := NewFileService(cfg, newFakeFactory(uow), store, &fakePublisherService{}, nil)
	userId := uuid.New()
	project := seedProject(t, uow, userId)

	_, err := svc.UploadFile(context.Background(), userId, project.Id,
		"doc.txt", 4, strings.NewReader("data"))
	require.Error(t, err)

	// The orphaned provider copy was removed.
	require.Len(t, store.uploaded, 1)
	require.Len(t, store.deleted, 1)
	assert.Equal(t, "file-"+store.uploaded[0], store.deleted[0])

	entries, readErr := os.ReadDir(filepath.Join(cfg.Uploads.Dir, project.Id.String()))
	require.NoError(t, readErr)
	assert.Empty(t, entries)
}

func TestDeleteFile(t *testing.T) {
	uow := newFakeUnitOfWork()
	cfg := testConfig(t)
	store := &fakeFileStore{}
	svc := NewFileService(cfg, newFakeFactory(uow), store, &fakePublisherService{}, nil)
	userId := uuid.New()
	project := seedProject(t, uow, userId)
	ctx := context.Background()

	res, err := svc.UploadFile(ctx, userId, project.Id, "doc.txt", 4, strings.NewReader("data"))
	require.NoError(t, err)

	require.NoError(t, svc.DeleteFile(ctx, userId, project.Id, res.Id))

	assert.Empty(t, uow.files)
	assert.Contains(t, store.deleted, *res.ProviderFileId)
	_, statErr := os.Stat(filepath.Join(cfg.Uploads.Dir, project.Id.String(), res.Filename))
	assert.True(t, os.IsNotExist(statErr))

	t.Run("missing file", func(t *testing.T) {
		err := svc.DeleteFile(ctx, userId, project.Id, uuid.New())
		require.Error(t, err)
		assert.Equal(t, 404, serverutils.StatusFor(err))
	})
}

func TestGetAllFiles(t *testing.T) {
	uow := newFakeUnitOfWork()
	svc := NewFileService(testConfig(t), newFakeFactory(uow), nil, &fakePublisherService{}, nil)
	userId := uuid.New()
	project := seedProject(t, uow, userId)
	ctx := context.Background()

	_, err := svc.UploadFile(ctx, userId, project.Id, "a.txt", 1, strings.NewReader("a"))
	require.NoError(t, err)

	files, err := svc.GetAllFiles(ctx, userId, project.Id)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].OriginalFilename)
	assert.Nil(t, files[0].ProviderFileId)

	_, err = svc.GetAllFiles(ctx, uuid.New(), project.Id)
	require.Error(t, err)
	assert.Equal(t, 403, serverutils.StatusFor(err))
}
