package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ai-agenthub-be/internal/config"
	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/pkg/serverutils"
	"ai-agenthub-be/internal/repository/specification"
	"ai-agenthub-be/internal/repository/unitofwork"

	"ai-agenthub-be/pkg/events"
	"ai-agenthub-be/pkg/llm"
	pktNats "ai-agenthub-be/pkg/nats"

	"github.com/google/uuid"
)

// allowedFileExtensions maps accepted upload extensions (without dot).
var allowedFileExtensions = map[string]bool{
	"txt":  true,
	"pdf":  true,
	"png":  true,
	"jpg":  true,
	"jpeg": true,
	"gif":  true,
	"doc":  true,
	"docx": true,
}

type IFileService interface {
	UploadFile(ctx context.Context, userId, projectId uuid.UUID, originalFilename string, size int64, content io.Reader) (*dto.UploadFileResponse, error)
	GetAllFiles(ctx context.Context, userId, projectId uuid.UUID) ([]dto.FileListItem, error)
	DeleteFile(ctx context.Context, userId, projectId, fileId uuid.UUID) error
}

type fileService struct {
	uowFactory       unitofwork.RepositoryFactory
	fileStore        llm.FileStore
	publisherService IPublisherService
	eventPublisher   *pktNats.Publisher
	uploadDir        string
	maxSizeBytes     int64
}

func NewFileService(
	cfg *config.Config,
	uowFactory unitofwork.RepositoryFactory,
	fileStore llm.FileStore,
	publisherService IPublisherService,
	eventPublisher *pktNats.Publisher,
) IFileService {
	return &fileService{
		uowFactory:       uowFactory,
		fileStore:        fileStore,
		publisherService: publisherService,
		eventPublisher:   eventPublisher,
		uploadDir:        cfg.Uploads.Dir,
		maxSizeBytes:     cfg.Uploads.MaxSizeBytes,
	}
}

// UploadFile validates, stores and mirrors an upload. The local copy is the
// source of truth; if the provider mirror fails the local copy is removed and
// no row is written.
func (s *fileService) UploadFile(ctx context.Context, userId, projectId uuid.UUID, originalFilename string, size int64, content io.Reader) (*dto.UploadFileResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := findOwnedProject(ctx, uow, userId, projectId); err != nil {
		return nil, err
	}

	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(originalFilename), "."))
	if !allowedFileExtensions[ext] {
		return nil, serverutils.NewValidationError("file type ." + ext + " is not allowed")
	}
	if size > s.maxSizeBytes {
		return nil, serverutils.NewValidationError(fmt.Sprintf("file exceeds the %d byte limit", s.maxSizeBytes))
	}

	storedName := fmt.Sprintf("%d_%s", time.Now().Unix(), serverutils.SanitizeFilename(originalFilename))
	projectDir := filepath.Join(s.uploadDir, projectId.String())
	if err := os.MkdirAll(projectDir, 0o755); err != nil {
		return nil, err
	}
	localPath := filepath.Join(projectDir, storedName)

	dst, err := os.Create(localPath)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(dst, content); err != nil {
		dst.Close()
		os.Remove(localPath)
		return nil, err
	}
	if err := dst.Close(); err != nil {
		os.Remove(localPath)
		return nil, err
	}

	var providerFileId *string
	if s.fileStore != nil {
		src, err := os.Open(localPath)
		if err != nil {
			os.Remove(localPath)
			return nil, err
		}
		stored, err := s.fileStore.UploadFile(ctx, storedName, src)
		src.Close()
		if err != nil {
			os.Remove(localPath)
			return nil, serverutils.NewExternalServiceError("failed to mirror file to provider", err)
		}
		providerFileId = &stored.ID
	}

	file := &entity.UploadedFile{
		Id:               uuid.New(),
		ProjectId:        projectId,
		Filename:         storedName,
		OriginalFilename: originalFilename,
		FileSize:         size,
		FileType:         ext,
		ProviderFileId:   providerFileId,
		CreatedAt:        time.Now(),
	}

	if err := uow.UploadedFileRepository().Create(ctx, file); err != nil {
		if s.fileStore != nil && providerFileId != nil {
			if delErr := s.fileStore.DeleteFile(ctx, *providerFileId); delErr != nil {
				fmt.Printf("[WARN] Failed to delete provider file %s: %v\n", *providerFileId, delErr)
			}
		}
		os.Remove(localPath)
		return nil, err
	}

	msgPayload := dto.ProcessFileMessage{FileId: file.Id}
	msgJson, err := json.Marshal(msgPayload)
	if err != nil {
		return nil, err
	}
	if err := s.publisherService.Publish(ctx, msgJson); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		event := events.BaseEvent{
			Type: events.TypeFileUploaded,
			Data: map[string]interface{}{
				"user_id":    userId,
				"project_id": projectId,
				"file_id":    file.Id,
				"filename":   originalFilename,
			},
			OccurredAt: time.Now(),
		}
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			fmt.Printf("[WARN] Failed to publish FILE_UPLOADED event: %v\n", err)
		}
	}

	return &dto.UploadFileResponse{
		Id:               file.Id,
		Filename:         file.Filename,
		OriginalFilename: file.OriginalFilename,
		FileSize:         file.FileSize,
		FileType:         file.FileType,
		ProviderFileId:   file.ProviderFileId,
	}, nil
}

func (s *fileService) GetAllFiles(ctx context.Context, userId, projectId uuid.UUID) ([]dto.FileListItem, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := findOwnedProject(ctx, uow, userId, projectId); err != nil {
		return nil, err
	}

	files, err := uow.UploadedFileRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	items := make([]dto.FileListItem, 0, len(files))
	for _, file := range files {
		items = append(items, dto.FileListItem{
			Id:               file.Id,
			Filename:         file.Filename,
			OriginalFilename: file.OriginalFilename,
			FileSize:         file.FileSize,
			FileType:         file.FileType,
			ProviderFileId:   file.ProviderFileId,
			CreatedAt:        file.CreatedAt,
		})
	}

	return items, nil
}

// DeleteFile removes the row, the provider mirror and the local copy. Mirror
// and disk cleanup are best effort; the row always goes.
func (s *fileService) DeleteFile(ctx context.Context, userId, projectId, fileId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := findOwnedProject(ctx, uow, userId, projectId); err != nil {
		return err
	}

	file, err := uow.UploadedFileRepository().FindOne(ctx,
		specification.ByID{ID: fileId},
		specification.ByProjectID{ProjectID: projectId},
	)
	if err != nil {
		return err
	}
	if file == nil {
		return serverutils.NewNotFoundError("file not found")
	}

	if s.fileStore != nil && file.ProviderFileId != nil {
		if err := s.fileStore.DeleteFile(ctx, *file.ProviderFileId); err != nil {
			fmt.Printf("[WARN] Failed to delete provider file %s: %v\n", *file.ProviderFileId, err)
		}
	}

	localPath := filepath.Join(s.uploadDir, projectId.String(), file.Filename)
	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		fmt.Printf("[WARN] Failed to remove local file %s: %v\n", localPath, err)
	}

	return uow.UploadedFileRepository().Delete(ctx, file.Id)
}
