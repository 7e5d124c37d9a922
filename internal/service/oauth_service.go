package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"ai-agenthub-be/internal/config"
	"ai-agenthub-be/internal/dto"
	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/pkg/serverutils"
	"ai-agenthub-be/internal/repository/memory"
	"ai-agenthub-be/internal/repository/specification"
	"ai-agenthub-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

type IOAuthService interface {
	GetRedirectURL(provider string) (*dto.OAuthRedirectResponse, error)
	HandleCallback(ctx context.Context, provider, state, code string) (*dto.OAuthCallbackResponse, error)
	GetProviderStatus(ctx context.Context, userId uuid.UUID, provider string) (*dto.ProviderStatusResponse, error)
	EnsureFreshToken(ctx context.Context, userId uuid.UUID, provider string) (*entity.OAuthToken, bool, error)
}

type oauthService struct {
	uowFactory unitofwork.RepositoryFactory
	stateRepo  *memory.StateRepository
	googleConf *oauth2.Config
}

func NewOAuthService(cfg *config.Config, uowFactory unitofwork.RepositoryFactory, stateRepo *memory.StateRepository) IOAuthService {
	conf := &oauth2.Config{
		ClientID:     cfg.OAuth.GoogleClientID,
		ClientSecret: cfg.OAuth.GoogleClientSecret,
		RedirectURL:  cfg.App.BaseURL + "/api/auth/google/callback",
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return newOAuthService(uowFactory, stateRepo, conf)
}

// newOAuthService takes the provider config directly so callers can point
// the endpoint at a stand-in token server.
func newOAuthService(uowFactory unitofwork.RepositoryFactory, stateRepo *memory.StateRepository, conf *oauth2.Config) *oauthService {
	return &oauthService{
		uowFactory: uowFactory,
		stateRepo:  stateRepo,
		googleConf: conf,
	}
}

type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

func (s *oauthService) GetRedirectURL(provider string) (*dto.OAuthRedirectResponse, error) {
	if provider != "google" {
		return nil, serverutils.NewValidationError("unsupported provider: " + provider)
	}

	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	state := base64.URLEncoding.EncodeToString(b)
	s.stateRepo.Save(state, provider)

	return &dto.OAuthRedirectResponse{
		RedirectURL: s.googleConf.AuthCodeURL(state, oauth2.AccessTypeOffline),
	}, nil
}

func (s *oauthService) HandleCallback(ctx context.Context, provider, state, code string) (*dto.OAuthCallbackResponse, error) {
	if provider != "google" {
		return nil, serverutils.NewValidationError("unsupported provider: " + provider)
	}

	savedProvider, ok := s.stateRepo.Consume(state)
	if !ok || savedProvider != provider {
		return nil, serverutils.NewAuthenticationError("invalid or expired login state")
	}

	token, err := s.googleConf.Exchange(ctx, code)
	if err != nil {
		return nil, serverutils.NewAuthenticationError("code exchange failed")
	}

	info, err := s.fetchUserInfo(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: info.Email})
	if err != nil {
		return nil, err
	}

	// Re-registration after account deletion reactivates the old row.
	if user == nil {
		user, err = uow.UserRepository().FindOneUnscoped(ctx, specification.ByEmail{Email: info.Email})
		if err != nil {
			return nil, err
		}
		if user != nil {
			if err := uow.UserRepository().Restore(ctx, user.Id); err != nil {
				return nil, err
			}
			user, _ = uow.UserRepository().FindOne(ctx, specification.ByEmail{Email: info.Email})
		}
	}

	isNewUser := false
	if user == nil {
		avatar := info.Picture
		newUser := &entity.User{
			Id:           uuid.New(),
			Email:        info.Email,
			FullName:     info.Name,
			PasswordHash: nil,
			Role:         entity.UserRoleUser,
			AvatarURL:    &avatar,
			CreatedAt:    time.Now(),
			UpdatedAt:    time.Now(),
		}

		if err := uow.Begin(ctx); err != nil {
			return nil, err
		}
		if err := uow.UserRepository().Create(ctx, newUser); err != nil {
			uow.Rollback()
			return nil, err
		}
		if err := uow.Commit(); err != nil {
			return nil, err
		}

		user = newUser
		isNewUser = true
	}

	userProvider := &entity.UserProvider{
		Id:             uuid.New(),
		UserId:         user.Id,
		ProviderName:   provider,
		ProviderUserId: info.ID,
		AvatarURL:      info.Picture,
		CreatedAt:      time.Now(),
	}
	if err := uow.UserRepository().SaveUserProvider(ctx, userProvider); err != nil {
		return nil, fmt.Errorf("failed to save provider info: %v", err)
	}

	oauthToken := &entity.OAuthToken{
		Id:           uuid.New(),
		UserId:       user.Id,
		Provider:     provider,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := uow.UserRepository().SaveOAuthToken(ctx, oauthToken); err != nil {
		return nil, fmt.Errorf("failed to save provider token: %v", err)
	}

	signedToken, err := signAccessToken(user.Id, user.Role)
	if err != nil {
		return nil, err
	}

	rawRefreshToken := uuid.New().String()
	refreshTokenEntity := &entity.UserRefreshToken{
		Id:        uuid.New(),
		UserId:    user.Id,
		TokenHash: hashRefreshToken(rawRefreshToken),
		ExpiresAt: time.Now().Add(30 * 24 * time.Hour),
		Revoked:   false,
		CreatedAt: time.Now(),
	}
	if err := uow.UserRepository().CreateRefreshToken(ctx, refreshTokenEntity); err != nil {
		return nil, err
	}

	return &dto.OAuthCallbackResponse{
		AccessToken:  signedToken,
		RefreshToken: rawRefreshToken,
		IsNewUser:    isNewUser,
	}, nil
}

func (s *oauthService) fetchUserInfo(ctx context.Context, accessToken string) (*googleUserInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		"https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed getting user info: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, serverutils.NewAuthenticationError("provider rejected the access token")
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed reading response: %v", err)
	}

	var info googleUserInfo
	if err := json.Unmarshal(content, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

func (s *oauthService) GetProviderStatus(ctx context.Context, userId uuid.UUID, provider string) (*dto.ProviderStatusResponse, error) {
	token, refreshed, err := s.EnsureFreshToken(ctx, userId, provider)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return &dto.ProviderStatusResponse{Provider: provider, Connected: false}, nil
	}
	return &dto.ProviderStatusResponse{
		Provider:  provider,
		Connected: true,
		ExpiresAt: token.ExpiresAt,
		Refreshed: refreshed,
	}, nil
}

// EnsureFreshToken returns the stored provider token for the user, refreshing
// it once via the provider's token endpoint when expired. A failed refresh
// drops the stored token so the user is asked to reconnect.
func (s *oauthService) EnsureFreshToken(ctx context.Context, userId uuid.UUID, provider string) (*entity.OAuthToken, bool, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	stored, err := uow.UserRepository().FindOAuthToken(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.ByProvider{Provider: provider},
	)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, nil
	}

	if !stored.Expired(time.Now()) {
		return stored, false, nil
	}

	if stored.RefreshToken == "" {
		if err := uow.UserRepository().DeleteOAuthToken(ctx, stored.Id); err != nil {
			return nil, false, err
		}
		return nil, false, serverutils.NewAuthenticationError("provider session expired, please reconnect")
	}

	source := s.googleConf.TokenSource(ctx, &oauth2.Token{
		RefreshToken: stored.RefreshToken,
	})
	fresh, err := source.Token()
	if err != nil {
		if delErr := uow.UserRepository().DeleteOAuthToken(ctx, stored.Id); delErr != nil {
			return nil, false, delErr
		}
		return nil, false, serverutils.NewAuthenticationError("provider session expired, please reconnect")
	}

	stored.AccessToken = fresh.AccessToken
	if fresh.RefreshToken != "" {
		stored.RefreshToken = fresh.RefreshToken
	}
	stored.TokenType = fresh.TokenType
	stored.ExpiresAt = fresh.Expiry
	stored.UpdatedAt = time.Now()

	if err := uow.UserRepository().SaveOAuthToken(ctx, stored); err != nil {
		return nil, false, err
	}

	return stored, true, nil
}
