package service

import (
	"context"
	"io"
	"sort"
	"sync"

	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/repository/contract"
	"ai-agenthub-be/internal/repository/specification"
	"ai-agenthub-be/internal/repository/unitofwork"
	"ai-agenthub-be/pkg/llm"

	"github.com/google/uuid"
)

// fakeUnitOfWork is an in-memory UnitOfWork for service tests. It interprets
// the specification types the services actually use and tracks transaction
// calls so tests can assert on them.
type fakeUnitOfWork struct {
	mu sync.Mutex

	users         []*entity.User
	refreshTokens []*entity.UserRefreshToken
	userProviders []*entity.UserProvider
	oauthTokens   []*entity.OAuthToken
	projects      []*entity.Project
	prompts       []*entity.Prompt
	sessions      []*entity.ChatSession
	messages      []*entity.ChatMessage
	files         []*entity.UploadedFile

	beginCount    int
	commitCount   int
	rollbackCount int

	fileCreateErr error
}

func newFakeUnitOfWork() *fakeUnitOfWork {
	return &fakeUnitOfWork{}
}

type fakeRepositoryFactory struct {
	uow *fakeUnitOfWork
}

func (f *fakeRepositoryFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return f.uow
}

func newFakeFactory(uow *fakeUnitOfWork) unitofwork.RepositoryFactory {
	return &fakeRepositoryFactory{uow: uow}
}

func (u *fakeUnitOfWork) Begin(ctx context.Context) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.beginCount++
	return nil
}

func (u *fakeUnitOfWork) Commit() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.commitCount++
	return nil
}

func (u *fakeUnitOfWork) Rollback() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.rollbackCount++
	return nil
}

func (u *fakeUnitOfWork) UserRepository() contract.UserRepository {
	return &fakeUserRepo{uow: u}
}

func (u *fakeUnitOfWork) ProjectRepository() contract.ProjectRepository {
	return &fakeProjectRepo{uow: u}
}

func (u *fakeUnitOfWork) PromptRepository() contract.PromptRepository {
	return &fakePromptRepo{uow: u}
}

func (u *fakeUnitOfWork) ChatSessionRepository() contract.ChatSessionRepository {
	return &fakeSessionRepo{uow: u}
}

func (u *fakeUnitOfWork) ChatMessageRepository() contract.ChatMessageRepository {
	return &fakeMessageRepo{uow: u}
}

func (u *fakeUnitOfWork) UploadedFileRepository() contract.UploadedFileRepository {
	return &fakeFileRepo{uow: u}
}

// listOptions carries the ordering and pagination specs shared by every repo.
type listOptions struct {
	orderField string
	orderDesc  bool
	limit      int
	offset     int
}

func readListOptions(specs []specification.Specification) listOptions {
	opts := listOptions{limit: -1}
	for _, sp := range specs {
		switch s := sp.(type) {
		case specification.OrderBy:
			opts.orderField = s.Field
			opts.orderDesc = s.Desc
		case specification.Pagination:
			opts.limit = s.Limit
			opts.offset = s.Offset
		}
	}
	return opts
}

func paginate[T any](items []T, opts listOptions) []T {
	if opts.offset > 0 {
		if opts.offset >= len(items) {
			return nil
		}
		items = items[opts.offset:]
	}
	if opts.limit >= 0 && opts.limit < len(items) {
		items = items[:opts.limit]
	}
	return items
}

// --- users ---

type fakeUserRepo struct {
	uow *fakeUnitOfWork
}

func userMatches(u *entity.User, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch s := sp.(type) {
		case specification.ByID:
			if u.Id != s.ID {
				return false
			}
		case specification.ByEmail:
			if u.Email != s.Email {
				return false
			}
		}
	}
	return true
}

func (r *fakeUserRepo) Create(ctx context.Context, user *entity.User) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	copied := *user
	r.uow.users = append(r.uow.users, &copied)
	return nil
}

func (r *fakeUserRepo) Update(ctx context.Context, user *entity.User) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for i, existing := range r.uow.users {
		if existing.Id == user.Id {
			copied := *user
			r.uow.users[i] = &copied
			return nil
		}
	}
	return nil
}

func (r *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, existing := range r.uow.users {
		if existing.Id == id {
			existing.IsDeleted = true
		}
	}
	return nil
}

func (r *fakeUserRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, u := range r.uow.users {
		if !u.IsDeleted && userMatches(u, specs) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindOneUnscoped(ctx context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, u := range r.uow.users {
		if userMatches(u, specs) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	var out []*entity.User
	for _, u := range r.uow.users {
		if !u.IsDeleted && userMatches(u, specs) {
			copied := *u
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

func (r *fakeUserRepo) Restore(ctx context.Context, id uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, u := range r.uow.users {
		if u.Id == id {
			u.IsDeleted = false
		}
	}
	return nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, userId uuid.UUID, hash string) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, u := range r.uow.users {
		if u.Id == userId {
			u.PasswordHash = &hash
		}
	}
	return nil
}

func (r *fakeUserRepo) CreateRefreshToken(ctx context.Context, token *entity.UserRefreshToken) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	copied := *token
	r.uow.refreshTokens = append(r.uow.refreshTokens, &copied)
	return nil
}

func (r *fakeUserRepo) FindRefreshToken(ctx context.Context, specs ...specification.Specification) (*entity.UserRefreshToken, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, t := range r.uow.refreshTokens {
		match := true
		for _, sp := range specs {
			switch s := sp.(type) {
			case specification.ByTokenHash:
				if t.TokenHash != s.Hash {
					match = false
				}
			case specification.Unrevoked:
				if t.Revoked {
					match = false
				}
			}
		}
		if match {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, t := range r.uow.refreshTokens {
		if t.TokenHash == tokenHash {
			t.Revoked = true
		}
	}
	return nil
}

func (r *fakeUserRepo) SaveUserProvider(ctx context.Context, provider *entity.UserProvider) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for i, p := range r.uow.userProviders {
		if p.ProviderName == provider.ProviderName && p.ProviderUserId == provider.ProviderUserId {
			copied := *provider
			r.uow.userProviders[i] = &copied
			return nil
		}
	}
	copied := *provider
	r.uow.userProviders = append(r.uow.userProviders, &copied)
	return nil
}

func (r *fakeUserRepo) FindUserProvider(ctx context.Context, specs ...specification.Specification) (*entity.UserProvider, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, p := range r.uow.userProviders {
		match := true
		for _, sp := range specs {
			switch s := sp.(type) {
			case specification.UserOwnedBy:
				if p.UserId != s.UserID {
					match = false
				}
			case specification.ByProviderName:
				if p.ProviderName != s.Name {
					match = false
				}
			}
		}
		if match {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) SaveOAuthToken(ctx context.Context, token *entity.OAuthToken) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for i, t := range r.uow.oauthTokens {
		if t.UserId == token.UserId && t.Provider == token.Provider {
			copied := *token
			r.uow.oauthTokens[i] = &copied
			return nil
		}
	}
	copied := *token
	r.uow.oauthTokens = append(r.uow.oauthTokens, &copied)
	return nil
}

func (r *fakeUserRepo) FindOAuthToken(ctx context.Context, specs ...specification.Specification) (*entity.OAuthToken, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, t := range r.uow.oauthTokens {
		match := true
		for _, sp := range specs {
			switch s := sp.(type) {
			case specification.UserOwnedBy:
				if t.UserId != s.UserID {
					match = false
				}
			case specification.ByProvider:
				if t.Provider != s.Provider {
					match = false
				}
			}
		}
		if match {
			copied := *t
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeUserRepo) DeleteOAuthToken(ctx context.Context, id uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	kept := r.uow.oauthTokens[:0]
	for _, t := range r.uow.oauthTokens {
		if t.Id != id {
			kept = append(kept, t)
		}
	}
	r.uow.oauthTokens = kept
	return nil
}

// --- projects ---

type fakeProjectRepo struct {
	uow *fakeUnitOfWork
}

func projectMatches(p *entity.Project, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch s := sp.(type) {
		case specification.ByID:
			if p.Id != s.ID {
				return false
			}
		case specification.UserOwnedBy:
			if p.UserId != s.UserID {
				return false
			}
		}
	}
	return true
}

func (r *fakeProjectRepo) Create(ctx context.Context, project *entity.Project) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	copied := *project
	r.uow.projects = append(r.uow.projects, &copied)
	return nil
}

func (r *fakeProjectRepo) Update(ctx context.Context, project *entity.Project) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for i, existing := range r.uow.projects {
		if existing.Id == project.Id {
			copied := *project
			r.uow.projects[i] = &copied
		}
	}
	return nil
}

func (r *fakeProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	kept := r.uow.projects[:0]
	for _, p := range r.uow.projects {
		if p.Id != id {
			kept = append(kept, p)
		}
	}
	r.uow.projects = kept
	return nil
}

func (r *fakeProjectRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Project, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, p := range r.uow.projects {
		if projectMatches(p, specs) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeProjectRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Project, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	opts := readListOptions(specs)
	var out []*entity.Project
	for _, p := range r.uow.projects {
		if projectMatches(p, specs) {
			copied := *p
			out = append(out, &copied)
		}
	}
	if opts.orderField == "created_at" {
		sort.SliceStable(out, func(i, j int) bool {
			if opts.orderDesc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}
	return paginate(out, opts), nil
}

func (r *fakeProjectRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

// --- prompts ---

type fakePromptRepo struct {
	uow *fakeUnitOfWork
}

func promptMatches(p *entity.Prompt, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch s := sp.(type) {
		case specification.ByID:
			if p.Id != s.ID {
				return false
			}
		case specification.ByProjectID:
			if p.ProjectId != s.ProjectID {
				return false
			}
		}
	}
	return true
}

func (r *fakePromptRepo) Create(ctx context.Context, prompt *entity.Prompt) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	copied := *prompt
	r.uow.prompts = append(r.uow.prompts, &copied)
	return nil
}

func (r *fakePromptRepo) Update(ctx context.Context, prompt *entity.Prompt) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for i, existing := range r.uow.prompts {
		if existing.Id == prompt.Id {
			copied := *prompt
			r.uow.prompts[i] = &copied
		}
	}
	return nil
}

func (r *fakePromptRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	kept := r.uow.prompts[:0]
	for _, p := range r.uow.prompts {
		if p.Id != id {
			kept = append(kept, p)
		}
	}
	r.uow.prompts = kept
	return nil
}

func (r *fakePromptRepo) DeleteAllByProjectId(ctx context.Context, projectId uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	kept := r.uow.prompts[:0]
	for _, p := range r.uow.prompts {
		if p.ProjectId != projectId {
			kept = append(kept, p)
		}
	}
	r.uow.prompts = kept
	return nil
}

func (r *fakePromptRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Prompt, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, p := range r.uow.prompts {
		if promptMatches(p, specs) {
			copied := *p
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakePromptRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Prompt, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	opts := readListOptions(specs)
	var out []*entity.Prompt
	for _, p := range r.uow.prompts {
		if promptMatches(p, specs) {
			copied := *p
			out = append(out, &copied)
		}
	}
	if opts.orderField == "created_at" {
		sort.SliceStable(out, func(i, j int) bool {
			if opts.orderDesc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}
	return paginate(out, opts), nil
}

func (r *fakePromptRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

// --- chat sessions ---

type fakeSessionRepo struct {
	uow *fakeUnitOfWork
}

func sessionMatches(s *entity.ChatSession, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch spec := sp.(type) {
		case specification.ByID:
			if s.Id != spec.ID {
				return false
			}
		case specification.ByProjectID:
			if s.ProjectId != spec.ProjectID {
				return false
			}
		}
	}
	return true
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *entity.ChatSession) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	copied := *session
	r.uow.sessions = append(r.uow.sessions, &copied)
	return nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *entity.ChatSession) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for i, existing := range r.uow.sessions {
		if existing.Id == session.Id {
			copied := *session
			r.uow.sessions[i] = &copied
		}
	}
	return nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	kept := r.uow.sessions[:0]
	for _, s := range r.uow.sessions {
		if s.Id != id {
			kept = append(kept, s)
		}
	}
	r.uow.sessions = kept
	return nil
}

func (r *fakeSessionRepo) DeleteAllByProjectId(ctx context.Context, projectId uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	kept := r.uow.sessions[:0]
	for _, s := range r.uow.sessions {
		if s.ProjectId != projectId {
			kept = append(kept, s)
		}
	}
	r.uow.sessions = kept
	return nil
}

func (r *fakeSessionRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatSession, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, s := range r.uow.sessions {
		if sessionMatches(s, specs) {
			copied := *s
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeSessionRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatSession, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	opts := readListOptions(specs)
	var out []*entity.ChatSession
	for _, s := range r.uow.sessions {
		if sessionMatches(s, specs) {
			copied := *s
			out = append(out, &copied)
		}
	}
	if opts.orderField == "created_at" {
		sort.SliceStable(out, func(i, j int) bool {
			if opts.orderDesc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}
	return paginate(out, opts), nil
}

func (r *fakeSessionRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

// --- chat messages ---

type fakeMessageRepo struct {
	uow *fakeUnitOfWork
}

func messageMatches(m *entity.ChatMessage, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch s := sp.(type) {
		case specification.ByID:
			if m.Id != s.ID {
				return false
			}
		case specification.ByChatSessionID:
			if m.ChatSessionId != s.SessionID {
				return false
			}
		}
	}
	return true
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *entity.ChatMessage) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	copied := *message
	r.uow.messages = append(r.uow.messages, &copied)
	return nil
}

func (r *fakeMessageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	kept := r.uow.messages[:0]
	for _, m := range r.uow.messages {
		if m.Id != id {
			kept = append(kept, m)
		}
	}
	r.uow.messages = kept
	return nil
}

func (r *fakeMessageRepo) DeleteAllBySessionId(ctx context.Context, sessionId uuid.UUID) error {
	return r.DeleteAllBySessionIds(ctx, []uuid.UUID{sessionId})
}

func (r *fakeMessageRepo) DeleteAllBySessionIds(ctx context.Context, sessionIds []uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	drop := make(map[uuid.UUID]bool, len(sessionIds))
	for _, id := range sessionIds {
		drop[id] = true
	}
	kept := r.uow.messages[:0]
	for _, m := range r.uow.messages {
		if !drop[m.ChatSessionId] {
			kept = append(kept, m)
		}
	}
	r.uow.messages = kept
	return nil
}

func (r *fakeMessageRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.ChatMessage, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, m := range r.uow.messages {
		if messageMatches(m, specs) {
			copied := *m
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeMessageRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.ChatMessage, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	opts := readListOptions(specs)
	var out []*entity.ChatMessage
	for _, m := range r.uow.messages {
		if messageMatches(m, specs) {
			copied := *m
			out = append(out, &copied)
		}
	}
	if opts.orderField == "created_at" {
		sort.SliceStable(out, func(i, j int) bool {
			if opts.orderDesc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}
	return paginate(out, opts), nil
}

func (r *fakeMessageRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

// --- uploaded files ---

type fakeFileRepo struct {
	uow *fakeUnitOfWork
}

func fileMatches(f *entity.UploadedFile, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch s := sp.(type) {
		case specification.ByID:
			if f.Id != s.ID {
				return false
			}
		case specification.ByProjectID:
			if f.ProjectId != s.ProjectID {
				return false
			}
		}
	}
	return true
}

func (r *fakeFileRepo) Create(ctx context.Context, file *entity.UploadedFile) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	if r.uow.fileCreateErr != nil {
		return r.uow.fileCreateErr
	}
	copied := *file
	r.uow.files = append(r.uow.files, &copied)
	return nil
}

func (r *fakeFileRepo) Update(ctx context.Context, file *entity.UploadedFile) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for i, existing := range r.uow.files {
		if existing.Id == file.Id {
			copied := *file
			r.uow.files[i] = &copied
		}
	}
	return nil
}

func (r *fakeFileRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	kept := r.uow.files[:0]
	for _, f := range r.uow.files {
		if f.Id != id {
			kept = append(kept, f)
		}
	}
	r.uow.files = kept
	return nil
}

func (r *fakeFileRepo) DeleteAllByProjectId(ctx context.Context, projectId uuid.UUID) error {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	kept := r.uow.files[:0]
	for _, f := range r.uow.files {
		if f.ProjectId != projectId {
			kept = append(kept, f)
		}
	}
	r.uow.files = kept
	return nil
}

func (r *fakeFileRepo) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.UploadedFile, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	for _, f := range r.uow.files {
		if fileMatches(f, specs) {
			copied := *f
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeFileRepo) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.UploadedFile, error) {
	r.uow.mu.Lock()
	defer r.uow.mu.Unlock()
	opts := readListOptions(specs)
	var out []*entity.UploadedFile
	for _, f := range r.uow.files {
		if fileMatches(f, specs) {
			copied := *f
			out = append(out, &copied)
		}
	}
	if opts.orderField == "created_at" {
		sort.SliceStable(out, func(i, j int) bool {
			if opts.orderDesc {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
	}
	return paginate(out, opts), nil
}

func (r *fakeFileRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, _ := r.FindAll(ctx, specs...)
	return int64(len(all)), nil
}

// --- collaborators ---

type fakeEmailService struct {
	sent chan string
}

func newFakeEmailService() *fakeEmailService {
	return &fakeEmailService{sent: make(chan string, 8)}
}

func (f *fakeEmailService) SendWelcome(toEmail, name string) error {
	f.sent <- toEmail
	return nil
}

type fakeLLMProvider struct {
	reply     string
	err       error
	gotPrompt []llm.Message
}

func (f *fakeLLMProvider) Chat(ctx context.Context, history []llm.Message, opts ...llm.Option) (string, error) {
	f.gotPrompt = history
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLMProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	return f.Chat(ctx, []llm.Message{{Role: "user", Content: prompt}}, opts...)
}

type fakeFileStore struct {
	uploadErr error
	deleteErr error
	uploaded  []string
	deleted   []string
}

func (f *fakeFileStore) UploadFile(ctx context.Context, filename string, content io.Reader) (*llm.StoredFile, error) {
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	f.uploaded = append(f.uploaded, filename)
	return &llm.StoredFile{ID: "file-" + filename, Filename: filename}, nil
}

func (f *fakeFileStore) DeleteFile(ctx context.Context, fileID string) error {
	f.deleted = append(f.deleted, fileID)
	return f.deleteErr
}

type fakePublisherService struct {
	published [][]byte
	err       error
}

func (f *fakePublisherService) Publish(ctx context.Context, payload []byte) error {
	if f.err != nil {
		return f.err
	}
	f.published = append(f.published, payload)
	return nil
}
