package service

import (
	"context"
	"strings"
	"time"

	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/pkg/serverutils"
	"ai-agenthub-be/internal/repository/specification"
	"ai-agenthub-be/internal/repository/unitofwork"

	"ai-agenthub-be/pkg/llm"

	"github.com/google/uuid"
)

type IChatService interface {
	GetAllSessions(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) ([]dto.GetAllSessionsResponse, error)
	GetChatHistory(ctx context.Context, userId uuid.UUID, projectId, sessionId uuid.UUID) ([]dto.GetChatHistoryResponse, error)
	SendChat(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	DeleteSession(ctx context.Context, userId uuid.UUID, projectId, sessionId uuid.UUID) error
}

type chatService struct {
	uowFactory  unitofwork.RepositoryFactory
	llmProvider llm.LLMProvider
}

func NewChatService(uowFactory unitofwork.RepositoryFactory, llmProvider llm.LLMProvider) IChatService {
	return &chatService{
		uowFactory:  uowFactory,
		llmProvider: llmProvider,
	}
}

// findProjectSession resolves a session inside an owned project.
func findProjectSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, projectId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	if _, err := findOwnedProject(ctx, uow, userId, projectId); err != nil {
		return nil, err
	}

	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.ByProjectID{ProjectID: projectId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, serverutils.NewNotFoundError("chat session not found")
	}
	return session, nil
}

// sessionTitleFrom derives a session title from the first user message:
// the first five words, with an ellipsis when the message is longer.
func sessionTitleFrom(message string) string {
	words := strings.Fields(message)
	if len(words) == 0 {
		return "New Chat"
	}
	if len(words) <= 5 {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:5], " ") + "..."
}

func (s *chatService) GetAllSessions(ctx context.Context, userId uuid.UUID, projectId uuid.UUID) ([]dto.GetAllSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := findOwnedProject(ctx, uow, userId, projectId); err != nil {
		return nil, err
	}

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: projectId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	items := make([]dto.GetAllSessionsResponse, 0, len(sessions))
	for _, session := range sessions {
		items = append(items, dto.GetAllSessionsResponse{
			Id:        session.Id,
			Title:     session.Title,
			CreatedAt: session.CreatedAt,
			UpdatedAt: session.UpdatedAt,
		})
	}

	return items, nil
}

func (s *chatService) GetChatHistory(ctx context.Context, userId uuid.UUID, projectId, sessionId uuid.UUID) ([]dto.GetChatHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := findProjectSession(ctx, uow, userId, projectId, sessionId); err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{SessionID: sessionId},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	items := make([]dto.GetChatHistoryResponse, 0, len(messages))
	for _, message := range messages {
		items = append(items, dto.GetChatHistoryResponse{
			Id:        message.Id,
			Role:      string(message.Role),
			Content:   message.Content,
			CreatedAt: message.CreatedAt,
		})
	}

	return items, nil
}

// SendChat appends a user message to a session (creating the session when no
// id is supplied) and asks the model for a reply. The user message commits in
// its own transaction before the model is called, so a provider failure
// leaves the user's text in the history.
func (s *chatService) SendChat(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	project, err := findOwnedProject(ctx, uow, userId, req.ProjectId)
	if err != nil {
		return nil, err
	}

	var session *entity.ChatSession
	isNewSession := false
	if req.ChatSessionId != nil {
		session, err = findProjectSession(ctx, uow, userId, req.ProjectId, *req.ChatSessionId)
		if err != nil {
			return nil, err
		}
	} else {
		session = &entity.ChatSession{
			Id:        uuid.New(),
			ProjectId: req.ProjectId,
			Title:     "New Chat",
			CreatedAt: time.Now(),
		}
		isNewSession = true
	}

	history, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{SessionID: session.Id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err != nil {
		return nil, err
	}

	userMessage := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Role:          entity.RoleUser,
		Content:       req.Message,
		CreatedAt:     time.Now(),
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	if isNewSession {
		if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
			uow.Rollback()
			return nil, err
		}
	}
	if err := uow.ChatMessageRepository().Create(ctx, userMessage); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	prompt := s.buildPrompt(ctx, uow, project, history, req.Message)

	replyContent, err := s.llmProvider.Chat(ctx, prompt)
	if err != nil {
		return nil, serverutils.NewExternalServiceError("assistant is unavailable right now", err)
	}

	reply := &entity.ChatMessage{
		Id:            uuid.New(),
		ChatSessionId: session.Id,
		Role:          entity.RoleAssistant,
		Content:       replyContent,
		CreatedAt:     time.Now(),
	}

	now := time.Now()
	session.UpdatedAt = &now
	if isNewSession {
		session.Title = sessionTitleFrom(req.Message)
	}

	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	if err := uow.ChatMessageRepository().Create(ctx, reply); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
		uow.Rollback()
		return nil, err
	}
	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.SendChatResponse{
		ChatSessionId:    session.Id,
		ChatSessionTitle: session.Title,
		Sent: &dto.SendChatResponseChat{
			Id:        userMessage.Id,
			Content:   userMessage.Content,
			Role:      string(userMessage.Role),
			CreatedAt: userMessage.CreatedAt,
		},
		Reply: &dto.SendChatResponseChat{
			Id:        reply.Id,
			Content:   reply.Content,
			Role:      string(reply.Role),
			CreatedAt: reply.CreatedAt,
		},
	}, nil
}

// buildPrompt assembles the model input: the project's system prompt, a
// context block from processed file previews, the stored history in order,
// then the new user message.
func (s *chatService) buildPrompt(ctx context.Context, uow unitofwork.UnitOfWork, project *entity.Project, history []*entity.ChatMessage, userMessage string) []llm.Message {
	prompt := make([]llm.Message, 0, len(history)+3)

	if project.SystemPrompt != "" {
		prompt = append(prompt, llm.Message{Role: "system", Content: project.SystemPrompt})
	}

	files, err := uow.UploadedFileRepository().FindAll(ctx,
		specification.ByProjectID{ProjectID: project.Id},
		specification.OrderBy{Field: "created_at", Desc: false},
	)
	if err == nil && len(files) > 0 {
		var sb strings.Builder
		sb.WriteString("The user attached the following project files:\n")
		for _, file := range files {
			sb.WriteString("- ")
			sb.WriteString(file.OriginalFilename)
			if file.ContextPreview != nil && *file.ContextPreview != "" {
				sb.WriteString(": ")
				sb.WriteString(*file.ContextPreview)
			}
			sb.WriteString("\n")
		}
		prompt = append(prompt, llm.Message{Role: "system", Content: sb.String()})
	}

	for _, message := range history {
		prompt = append(prompt, llm.Message{
			Role:    string(message.Role),
			Content: message.Content,
		})
	}

	prompt = append(prompt, llm.Message{Role: "user", Content: userMessage})
	return prompt
}

func (s *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, projectId, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := findProjectSession(ctx, uow, userId, projectId, sessionId)
	if err != nil {
		return err
	}

	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	if err := uow.ChatMessageRepository().DeleteAllBySessionId(ctx, session.Id); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, session.Id); err != nil {
		return err
	}

	return uow.Commit()
}
