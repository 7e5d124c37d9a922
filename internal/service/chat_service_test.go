package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/pkg/serverutils"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionTitleFrom(t *testing.T) {
	cases := []struct {
		message string
		want    string
	}{
		{"", "New Chat"},
		{"   ", "New Chat"},
		{"hello", "hello"},
		{"what is the answer", "what is the answer"},
		{"one two three four five", "one two three four five"},
		{"one two three four five six", "one two three four five..."},
		{"  spaced   out   message   with   many   words  ", "spaced out message with many..."},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, sessionTitleFrom(c.message), "message: %q", c.message)
	}
}

func TestSendChatNewSession(t *testing.T) {
	uow := newFakeUnitOfWork()
	provider := &fakeLLMProvider{reply: "Hello from the model"}
	svc := NewChatService(newFakeFactory(uow), provider)
	userId := uuid.New()
	project := seedProject(t, uow, userId)
	ctx := context.Background()

	preview := "quarterly numbers are up"
	require.NoError(t, uow.UploadedFileRepository().Create(ctx, &entity.UploadedFile{
		Id:               uuid.New(),
		ProjectId:        project.Id,
		Filename:         "1_report.txt",
		OriginalFilename: "report.txt",
		FileType:         "txt",
		ContextPreview:   &preview,
		CreatedAt:        time.Now(),
	}))

	res, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{
		ProjectId: project.Id,
		Message:   "please summarize the quarterly report for me",
	})
	require.NoError(t, err)

	assert.Equal(t, "please summarize the quarterly report...", res.ChatSessionTitle)
	assert.Equal(t, "user", res.Sent.Role)
	assert.Equal(t, "Hello from the model", res.Reply.Content)

	require.Len(t, uow.sessions, 1)
	assert.Equal(t, res.ChatSessionId, uow.sessions[0].Id)
	assert.Equal(t, "please summarize the quarterly report...", uow.sessions[0].Title)
	require.Len(t, uow.messages, 2)

	// The prompt carries the system prompt, the file context and the message.
	require.NotEmpty(t, provider.gotPrompt)
	assert.Equal(t, "system", provider.gotPrompt[0].Role)
	assert.Equal(t, project.SystemPrompt, provider.gotPrompt[0].Content)
	assert.Equal(t, "system", provider.gotPrompt[1].Role)
	assert.Contains(t, provider.gotPrompt[1].Content, "report.txt")
	assert.Contains(t, provider.gotPrompt[1].Content, preview)
	last := provider.gotPrompt[len(provider.gotPrompt)-1]
	assert.Equal(t, "user", last.Role)
	assert.Equal(t, "please summarize the quarterly report for me", last.Content)
}

func TestSendChatExistingSessionKeepsHistoryOrder(t *testing.T) {
	uow := newFakeUnitOfWork()
	provider := &fakeLLMProvider{reply: "second answer"}
	svc := NewChatService(newFakeFactory(uow), provider)
	userId := uuid.New()
	project := seedProject(t, uow, userId)
	ctx := context.Background()

	session := &entity.ChatSession{
		Id:        uuid.New(),
		ProjectId: project.Id,
		Title:     "existing",
		CreatedAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, uow.ChatSessionRepository().Create(ctx, session))

	base := time.Now().Add(-30 * time.Minute)
	require.NoError(t, uow.ChatMessageRepository().Create(ctx, &entity.ChatMessage{
		Id: uuid.New(), ChatSessionId: session.Id, Role: entity.RoleUser,
		Content: "first question", CreatedAt: base,
	}))
	require.NoError(t, uow.ChatMessageRepository().Create(ctx, &entity.ChatMessage{
		Id: uuid.New(), ChatSessionId: session.Id, Role: entity.RoleAssistant,
		Content: "first answer", CreatedAt: base.Add(time.Minute),
	}))

	res, err := svc.SendChat(ctx, userId, &dto.SendChatRequest{
		ProjectId:     project.Id,
		ChatSessionId: &session.Id,
		Message:       "second question",
	})
	require.NoError(t, err)

	// Title untouched on an existing session.
	assert.Equal(t, "existing", res.ChatSessionTitle)

	// History arrives in order before the new message.
	roles := make([]string, 0, len(provider.gotPrompt))
	contents := make([]string, 0, len(provider.gotPrompt))
	for _, m := range provider.gotPrompt {
		roles = append(roles, m.Role)
		contents = append(contents, m.Content)
	}
	assert.Equal(t, []string{"system", "user", "assistant", "user"}, roles)
	assert.Equal(t, "first question", contents[1])
	assert.Equal(t, "first answer", contents[2])
	assert.Equal(t, "second question", contents[3])

	history, err := svc.GetChatHistory(ctx, userId, project.Id, session.Id)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "second answer", history[3].Content)
}

func TestSendChatProviderFailureKeepsUserMessage(t *testing.T) {
	uow := newFakeUnitOfWork()
	provider := &fakeLLMProvider{err: errors.New("upstream timeout")}
	svc := NewChatService(newFakeFactory(uow), provider)
	userId := uuid.New()
	project := seedProject(t, uow, userId)

	_, err := svc.SendChat(context.Background(), userId, &dto.SendChatRequest{
		ProjectId: project.Id,
		Message:   "are you there",
	})
	require.Error(t, err)
	assert.Equal(t, 503, serverutils.StatusFor(err))

	// The user message committed before the model call, the reply never did.
	require.Len(t, uow.messages, 1)
	assert.Equal(t, entity.RoleUser, uow.messages[0].Role)
	require.Len(t, uow.sessions, 1)
	assert.Equal(t, "New Chat", uow.sessions[0].Title)
}

func TestSessionScopedToProject(t *testing.T) {
	uow := newFakeUnitOfWork()
	svc := NewChatService(newFakeFactory(uow), &fakeLLMProvider{reply: "ok"})
	userId := uuid.New()
	projectA := seedProject(t, uow, userId)
	projectB := seedProject(t, uow, userId)
	ctx := context.Background()

	session := &entity.ChatSession{Id: uuid.New(), ProjectId: projectA.Id, Title: "A", CreatedAt: time.Now()}
	require.NoError(t, uow.ChatSessionRepository().Create(ctx, session))

	_, err := svc.GetChatHistory(ctx, userId, projectB.Id, session.Id)
	require.Error(t, err)
	assert.Equal(t, 404, serverutils.StatusFor(err))

	_, err = svc.GetChatHistory(ctx, uuid.New(), projectA.Id, session.Id)
	require.Error(t, err)
	assert.Equal(t, 403, serverutils.StatusFor(err))
}

func TestDeleteSession(t *testing.T) {
	uow := newFakeUnitOfWork()
	svc := NewChatService(newFakeFactory(uow), &fakeLLMProvider{reply: "ok"})
	userId := uuid.New()
	project := seedProject(t, uow, userId)
	ctx := context.Background()

	session := &entity.ChatSession{Id: uuid.New(), ProjectId: project.Id, Title: "S", CreatedAt: time.Now()}
	require.NoError(t, uow.ChatSessionRepository().Create(ctx, session))
	require.NoError(t, uow.ChatMessageRepository().Create(ctx, &entity.ChatMessage{
		Id: uuid.New(), ChatSessionId: session.Id, Role: entity.RoleUser, Content: "hi", CreatedAt: time.Now(),
	}))

	require.NoError(t, svc.DeleteSession(ctx, userId, project.Id, session.Id))
	assert.Empty(t, uow.sessions)
	assert.Empty(t, uow.messages)
}

func TestGetAllSessionsNewestFirst(t *testing.T) {
	uow := newFakeUnitOfWork()
	svc := NewChatService(newFakeFactory(uow), &fakeLLMProvider{reply: "ok"})
	userId := uuid.New()
	project := seedProject(t, uow, userId)
	ctx := context.Background()

	old := &entity.ChatSession{Id: uuid.New(), ProjectId: project.Id, Title: "old", CreatedAt: time.Now().Add(-time.Hour)}
	fresh := &entity.ChatSession{Id: uuid.New(), ProjectId: project.Id, Title: "fresh", CreatedAt: time.Now()}
	require.NoError(t, uow.ChatSessionRepository().Create(ctx, old))
	require.NoError(t, uow.ChatSessionRepository().Create(ctx, fresh))

	sessions, err := svc.GetAllSessions(ctx, userId, project.Id)
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, "fresh", sessions[0].Title)
	assert.Equal(t, "old", sessions[1].Title)
}
