package service

import (
	"context"
	"time"

	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/pkg/serverutils"
	"ai-agenthub-be/internal/repository/specification"
	"ai-agenthub-be/internal/repository/unitofwork"

	"github.com/google/uuid"
)

type IPromptService interface {
	CreatePrompt(ctx context.Context, userId uuid.UUID, req *dto.CreatePromptRequest) (*dto.CreatePromptResponse, error)
	UpdatePrompt(ctx context.Context, userId uuid.UUID, req *dto.UpdatePromptRequest) (*dto.UpdatePromptResponse, error)
	GetAllPrompts(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) ([]dto.ShowPromptResponse, error)
	ShowPrompt(ctx context.Context, userId uuid.UUID, projectId, promptId uuid.UUID) (*dto.ShowPromptResponse, error)
	DeletePrompt(ctx context.Context, userId uuid.UUID, projectId, promptId uuid.UUID) error
}

type promptService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewPromptService(uowFactory unitofwork.RepositoryFactory) IPromptService {
	return &promptService{uowFactory: uowFactory}
}

// findProjectPrompt resolves a prompt inside an owned project. Prompts from
// another project are reported as missing rather than forbidden.
func findProjectPrompt(ctx context.Context, uow unitofwork.UnitOfWork, userId, projectId, promptId uuid.UUID) (*entity.Prompt, error) {
	if _, err := findOwnedProject(ctx, uow, userId, projectId); err != nil {
		return nil, err
	}

	prompt, err := uow.PromptRepository().FindOne(ctx,
		specification.ByID{ID: promptId},
		specification.ByProjectID{ProjectID: projectId},
	)
	if err != nil {
		return nil, err
	}
	if prompt == nil {
		return nil, serverutils.NewNotFoundError("prompt not found")
	}
	return prompt, nil
}

func (s *promptService) CreatePrompt(ctx context.Context, userId uuid.UUID, req *dto.CreatePromptRequest) (*dto.CreatePromptResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := findOwnedProject(ctx, uow, userId, req.ProjectId); err != nil {
		return nil, err
	}

	prompt := &entity.Prompt{
		Id:        uuid.New(),
		ProjectId: req.ProjectId,
		Title:     req.Title,
		Content:   req.Content,
		CreatedAt: time.Now(),
	}

	if err := uow.PromptRepository().Create(ctx, prompt); err != nil {
		return nil, err
	}

	return &dto.CreatePromptResponse{Id: prompt.Id}, nil
}

func (s *promptService) UpdatePrompt(ctx context.Context, userId uuid.UUID, req *dto.UpdatePromptRequest) (*dto.UpdatePromptResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	prompt, err := findProjectPrompt(ctx, uow, userId, req.ProjectId, req.Id)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	prompt.Title = req.Title
	prompt.Content = req.Content
	prompt.UpdatedAt = &now

	if err := uow.PromptRepository().Update(ctx, prompt); err != nil {
		return nil, err
	}

	return &dto.UpdatePromptResponse{Id: prompt.Id}, nil
}

func (s *promptService) GetAllPrompts(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) ([]dto.ShowPromptResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := findOwnedProject(ctx, uow, userId, projectId); err != nil {
		return nil, err
	}

	prompts, err := uow.PromptRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ShowPromptResponse, 0, len(prompts))
	for _, prompt := range prompts {
		items = append(items, dto.ShowPromptResponse{
			Id:        prompt.Id,
			ProjectId: prompt.ProjectId,
			Title:     prompt.Title,
			Content:   prompt.Content,
			CreatedAt: prompt.CreatedAt,
			UpdatedAt: prompt.UpdatedAt,
		})
	}

	return items, nil
}

func (s *promptService) ShowPrompt(ctx context.Context, userId uuid.UUID, projectId, promptId uuid.UUID) (*dto.ShowPromptResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	prompt, err := findProjectPrompt(ctx, uow, userId, projectId, promptId)
	if err != nil {
		return nil, err
	}

	return &dto.ShowPromptResponse{
		Id:        prompt.Id,
		ProjectId: prompt.ProjectId,
		Title:     prompt.Title,
		Content:   prompt.Content,
		CreatedAt: prompt.CreatedAt,
		UpdatedAt: prompt.UpdatedAt,
	}, nil
}

func (s *promptService) DeletePrompt(ctx context.Context, userId uuid.UUID, projectId, promptId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	prompt, err := findProjectPrompt(ctx, uow, userId, projectId, promptId)
	if err != nil {
		return err
	}

	return uow.PromptRepository().Delete(ctx, prompt.Id)
}
