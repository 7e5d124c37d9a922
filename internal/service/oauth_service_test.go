package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"ai-agenthub-be/internal/config"
	"ai-agenthub-be/internal/entity"
	"ai-agenthub-be/internal/pkg/serverutils"
	"ai-agenthub-be/internal/repository/memory"
	"ai-agenthub-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newOAuthTestService(uow *fakeUnitOfWork, stateRepo *memory.StateRepository) IOAuthService {
	cfg := &config.Config{
		App: config.AppConfig{BaseURL: "http://localhost:3000"},
		OAuth: config.OAuthConfig{
			GoogleClientID:     "client-id",
			GoogleClientSecret: "client-secret",
		},
	}
	return NewOAuthService(cfg, newFakeFactory(uow), stateRepo)
}

func TestGetRedirectURL(t *testing.T) {
	stateRepo := memory.NewStateRepository()
	svc := newOAuthTestService(newFakeUnitOfWork(), stateRepo)

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := svc.GetRedirectURL("github")
		require.Error(t, err)
		assert.Equal(t, 400, serverutils.StatusFor(err))
	})

	t.Run("google", func(t *testing.T) {
		res, err := svc.GetRedirectURL("google")
		require.NoError(t, err)

		parsed, err := url.Parse(res.RedirectURL)
		require.NoError(t, err)
		assert.Equal(t, "client-id", parsed.Query().Get("client_id"))
		assert.Equal(t, "http://localhost:3000/api/auth/google/callback", parsed.Query().Get("redirect_uri"))

		state := parsed.Query().Get("state")
		require.NotEmpty(t, state)

		// The state is single use.
		provider, ok := stateRepo.Consume(state)
		require.True(t, ok)
		assert.Equal(t, "google", provider)
		_, ok = stateRepo.Consume(state)
		assert.False(t, ok)
	})
}

func TestHandleCallbackInvalidState(t *testing.T) {
	svc := newOAuthTestService(newFakeUnitOfWork(), memory.NewStateRepository())

	_, err := svc.HandleCallback(context.Background(), "google", "never-issued", "code")
	require.Error(t, err)
	assert.Equal(t, 401, serverutils.StatusFor(err))

	_, err = svc.HandleCallback(context.Background(), "github", "x", "code")
	require.Error(t, err)
	assert.Equal(t, 400, serverutils.StatusFor(err))
}

func TestEnsureFreshToken(t *testing.T) {
	ctx := context.Background()

	t.Run("no stored token", func(t *testing.T) {
		svc := newOAuthTestService(newFakeUnitOfWork(), memory.NewStateRepository())
		token, refreshed, err := svc.EnsureFreshToken(ctx, uuid.New(), "google")
		require.NoError(t, err)
		assert.Nil(t, token)
		assert.False(t, refreshed)
	})

	t.Run("valid token returned as is", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		userId := uuid.New()
		stored := &entity.OAuthToken{
			Id:          uuid.New(),
			UserId:      userId,
			Provider:    "google",
			AccessToken: "still-good",
			ExpiresAt:   time.Now().Add(time.Hour),
		}
		require.NoError(t, uow.UserRepository().SaveOAuthToken(ctx, stored))

		svc := newOAuthTestService(uow, memory.NewStateRepository())
		token, refreshed, err := svc.EnsureFreshToken(ctx, userId, "google")
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.Equal(t, "still-good", token.AccessToken)
		assert.False(t, refreshed)
	})

	t.Run("expired without refresh token drops the record", func(t *testing.T) {
		uow := newFakeUnitOfWork()
		userId := uuid.New()
		stored := &entity.OAuthToken{
			Id:          uuid.New(),
			UserId:      userId,
			Provider:    "google",
			AccessToken: "stale",
			ExpiresAt:   time.Now().Add(-time.Hour),
		}
		require.NoError(t, uow.UserRepository().SaveOAuthToken(ctx, stored))

		svc := newOAuthTestService(uow, memory.NewStateRepository())
		_, _, err := svc.EnsureFreshToken(ctx, userId, "google")
		require.Error(t, err)
		assert.Equal(t, 401, serverutils.StatusFor(err))
		assert.Empty(t, uow.oauthTokens)
	})
}

// newRefreshTestService points the token endpoint at a local stand-in so the
// refresh round trip can be exercised.
func newRefreshTestService(uow *fakeUnitOfWork, tokenURL string) *oauthService {
	conf := &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   tokenURL + "/auth",
			TokenURL:  tokenURL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	return newOAuthService(newFakeFactory(uow), memory.NewStateRepository(), conf)
}

func TestEnsureFreshTokenRefresh(t *testing.T) {
	ctx := context.Background()

	t.Run("expired token refreshed with one endpoint call", func(t *testing.T) {
		var tokenCalls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/token", r.URL.Path)
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "refresh_token", r.FormValue("grant_type"))
			assert.Equal(t, "refresh-1", r.FormValue("refresh_token"))
			tokenCalls++

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token":"new-access","token_type":"Bearer","expires_in":3600,"refresh_token":"refresh-2"}`))
		}))
		defer server.Close()

		uow := newFakeUnitOfWork()
		userId := uuid.New()
		require.NoError(t, uow.UserRepository().SaveOAuthToken(ctx, &entity.OAuthToken{
			Id:           uuid.New(),
			UserId:       userId,
			Provider:     "google",
			AccessToken:  "stale",
			RefreshToken: "refresh-1",
			ExpiresAt:    time.Now().Add(-time.Hour),
		}))

		svc := newRefreshTestService(uow, server.URL)
		token, refreshed, err := svc.EnsureFreshToken(ctx, userId, "google")
		require.NoError(t, err)
		require.NotNil(t, token)
		assert.True(t, refreshed)
		assert.Equal(t, 1, tokenCalls)
		assert.Equal(t, "new-access", token.AccessToken)
		assert.Equal(t, "refresh-2", token.RefreshToken)
		assert.True(t, token.ExpiresAt.After(time.Now()))

		// The rotated token is persisted, not just returned.
		stored, err := uow.UserRepository().FindOAuthToken(ctx,
			specification.UserOwnedBy{UserID: userId},
			specification.ByProvider{Provider: "google"},
		)
		require.NoError(t, err)
		require.NotNil(t, stored)
		assert.Equal(t, "new-access", stored.AccessToken)
		assert.Equal(t, "refresh-2", stored.RefreshToken)
	})

	t.Run("rejected refresh drops the stored token", func(t *testing.T) {
		var tokenCalls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenCalls++
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant"}`))
		}))
		defer server.Close()

		uow := newFakeUnitOfWork()
		userId := uuid.New()
		require.NoError(t, uow.UserRepository().SaveOAuthToken(ctx, &entity.OAuthToken{
			Id:           uuid.New(),
			UserId:       userId,
			Provider:     "google",
			AccessToken:  "stale",
			RefreshToken: "revoked-upstream",
			ExpiresAt:    time.Now().Add(-time.Hour),
		}))

		svc := newRefreshTestService(uow, server.URL)
		_, _, err := svc.EnsureFreshToken(ctx, userId, "google")
		require.Error(t, err)
		assert.Equal(t, 401, serverutils.StatusFor(err))
		assert.Equal(t, 1, tokenCalls)
		assert.Empty(t, uow.oauthTokens)
	})
}

func TestGetProviderStatusDisconnected(t *testing.T) {
	svc := newOAuthTestService(newFakeUnitOfWork(), memory.NewStateRepository())

	status, err := svc.GetProviderStatus(context.Background(), uuid.New(), "google")
	require.NoError(t, err)
	assert.False(t, status.Connected)
	assert.Equal(t, "google", status.Provider)
}
