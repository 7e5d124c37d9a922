package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
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

type IProjectService interface {
	CreateProject(ctx context.Context, userId uuid.UUID, req *dto.CreateProjectRequest) (*dto.CreateProjectResponse, error)
	UpdateProject(ctx context.Context, userId uuid.UUID, req *dto.UpdateProjectRequest) (*dto.UpdateProjectResponse, error)
	GetAllProjects(ctx context.Context, userId uuid.UUID) ([]dto.ProjectListItem, error)
	ShowProject(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) (*dto.ShowProjectResponse, error)
	DeleteProject(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) error
}

type projectService struct {
	uowFactory     unitofwork.RepositoryFactory
	fileStore      llm.FileStore
	uploadDir      string
	eventPublisher *pktNats.Publisher
}

func NewProjectService(cfg *config.Config, uowFactory unitofwork.RepositoryFactory, fileStore llm.FileStore, eventPublisher *pktNats.Publisher) IProjectService {
	return &projectService{
		uowFactory:     uowFactory,
		fileStore:      fileStore,
		uploadDir:      cfg.Uploads.Dir,
		eventPublisher: eventPublisher,
	}
}

// findOwnedProject loads a project and enforces ownership. A missing project
// yields a not-found error, someone else's project a forbidden one.
func findOwnedProject(ctx context.Context, uow unitofwork.UnitOfWork, userId, projectId uuid.UUID) (*entity.Project, error) {
	project, err := uow.ProjectRepository().FindOne(ctx, specification.ByID{ID: projectId})
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, serverutils.NewNotFoundError("project not found")
	}
	if project.UserId != userId {
		return nil, serverutils.NewAuthorizationError("you do not have access to this project")
	}
	return project, nil
}

func (s *projectService) CreateProject(ctx context.Context, userId uuid.UUID, req *dto.CreateProjectRequest) (*dto.CreateProjectResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	project := &entity.Project{
		Id:           uuid.New(),
		UserId:       userId,
		Name:         req.Name,
		Description:  req.Description,
		SystemPrompt: req.SystemPrompt,
		CreatedAt:    time.Now(),
	}

	if err := uow.ProjectRepository().Create(ctx, project); err != nil {
		return nil, err
	}

	return &dto.CreateProjectResponse{Id: project.Id}, nil
}

func (s *projectService) UpdateProject(ctx context.Context, userId uuid.UUID, req *dto.UpdateProjectRequest) (*dto.UpdateProjectResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	project, err := findOwnedProject(ctx, uow, userId, req.Id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	project.Name = req.Name
	project.Description = req.Description
	project.SystemPrompt = req.SystemPrompt
	project.UpdatedAt = &now

	if err := uow.ProjectRepository().Update(ctx, project); err != nil {
		return nil, err
	}

	return &dto.UpdateProjectResponse{Id: project.Id}, nil
}

func (s *projectService) GetAllProjects(ctx context.Context, userId uuid.UUID) ([]dto.ProjectListItem, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	projects, err := uow.ProjectRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ProjectListItem, 0, len(projects))
	for _, project := range projects {
		sessionCount, err := uow.ChatSessionRepository().Count(ctx, specification.ByProjectID{ProjectID: project.Id})
		if err != nil {
			return nil, err
		}
		fileCount, err := uow.UploadedFileRepository().Count(ctx, specification.ByProjectID{ProjectID: project.Id})
		if err != nil {
			return nil, err
		}

		items = append(items, dto.ProjectListItem{
			Id:           project.Id,
			Name:         project.Name,
			Description:  project.Description,
			SessionCount: sessionCount,
			FileCount:    fileCount,
			CreatedAt:    project.CreatedAt,
			UpdatedAt:    project.UpdatedAt,
		})
	}

	return items, nil
}

func (s *projectService) ShowProject(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) (*dto.ShowProjectResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	project, err := findOwnedProject(ctx, uow, userId, projectId)
	if err != nil {
		return nil, err
	}

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: 5, Offset: 0},
	)
	if err != nil {
		return nil, err
	}

	recent := make([]dto.GetAllSessionsResponse, 0, len(sessions))
	for _, session := range sessions {
		recent = append(recent, dto.GetAllSessionsResponse{
			Id:        session.Id,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		})
	}

	return &dto.ShowProjectResponse{
		Id:             project.Id,
		Name:           project.Name,
		Description:    project.Description,
		SystemPrompt:   project.SystemPrompt,
		CreatedAt:      project.CreatedAt,
		UpdatedAt:      project.UpdatedAt,
		RecentSessions: recent,
	}, nil
}

// DeleteProject removes a project and everything under it. Provider and disk
// copies of uploaded files go first on a best-effort basis, then the rows are
// deleted bottom-up in one transaction.
func (s *projectService) DeleteProject(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	project, err := findOwnedProject(ctx, uow, userId, projectId)
	if err != nil {
		return err
	}

	files, err := uow.UploadedFileRepository().FindAll(ctx, specification.ByProjectID{ProjectID: projectId})
	if err != nil {
		return err
	}
	for _, file := range files {
		if s.fileStore != nil && file.ProviderFileId != nil {
			if err := s.fileStore.DeleteFile(ctx, *file.ProviderFileId); err != nil {
				fmt.Printf("[WARN] Failed to delete provider file %s: %v\n", *file.ProviderFileId, err)
			}
		}
		localPath := filepath.Join(s.uploadDir, projectId.String(), file.Filename)
		if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
			fmt.Printf("[WARN] Failed to remove local file %s: %v\n", localPath, err)
		}
	}

	sessions, err := uow.ChatSessionRepository().FindAll(ctx, specification.ByProjectID{ProjectID: projectId})
	if err != nil {
		return err
	}
	sessionIds := make([]uuid.UUID, 0, len(sessions))
	for _, session := range sessions {
		sessionIds = append(sessionIds, session.Id)
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if len(sessionIds) > 0 {
		if err := uow.ChatMessageRepository().DeleteAllBySessionIds(ctx, sessionIds); err != nil {
			return err
		}
	}
	if err := uow.ChatSessionRepository().DeleteAllByProjectId(ctx, projectId); err != nil {
		return err
	}
	if err := uow.PromptRepository().DeleteAllByProjectId(ctx, projectId); err != nil {
		return err
	}
	if err := uow.UploadedFileRepository().DeleteAllByProjectId(ctx, projectId); err != nil {
		return err
	}
	if err := uow.ProjectRepository().Delete(ctx, projectId); err != nil {
		return err
	}

	if err := uow.Commit(); err != nil {
		return err
	}

	if s.eventPublisher != nil {
		event := events.BaseEvent{
			Type: events.TypeProjectDeleted,
			Data: map[string]interface{}{
				"user_id":      userId,
				"project_id":   projectId,
				"project_name": project.Name,
			},
			OccurredAt: time.Now(),
		}
		if err := s.eventPublisher.Publish(ctx, event); err != nil {
			fmt.Printf("[WARN] Failed to publish PROJECT_DELETED event: %v\n", err)
		}
	}

	return nil
}
