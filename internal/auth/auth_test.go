package auth

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ms-events/internal/logger"
	"ms-events/internal/models"
)

const testSecret = "test-secret"

func TestHMACVerifierRoundTrip(t *testing.T) {
	token, err := IssueHMACToken(testSecret, "user-1", "a@b.c", []string{models.RoleStructureAdministrator}, time.Hour)
	require.NoError(t, err)

	p, err := NewHMACVerifier(testSecret).Verify(context.Background(), token)

	require.NoError(t, err)
	assert.Equal(t, "user-1", p.UserID)
	assert.Equal(t, "a@b.c", p.Email)
	assert.True(t, p.HasRole(models.RoleStructureAdministrator))
	assert.False(t, p.HasAnyRole(models.RoleSpectator, models.RoleReservationService))
}

func TestHMACVerifierRejectsBadTokens(t *testing.T) {
	v := NewHMACVerifier(testSecret)

	wrongKey, err := IssueHMACToken("other", "user-1", "", nil, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), wrongKey)
	assert.Error(t, err)

	expired, err := IssueHMACToken(testSecret, "user-1", "", nil, -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), expired)
	assert.Error(t, err)

	noSubject, err := IssueHMACToken(testSecret, "", "", nil, time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(context.Background(), noSubject)
	assert.Error(t, err)
}

func TestNilPrincipalHasNoRoles(t *testing.T) {
	var p *Principal
	assert.False(t, p.HasAnyRole(models.RoleSpectator))
	assert.Nil(t, PrincipalFrom(context.Background()))
	assert.Equal(t, "", UserID(context.Background()))
}

func TestMiddleware(t *testing.T) {
	log := logger.NewLoggerTo(io.Discard)
	var seen *Principal
	handler := Middleware(NewHMACVerifier(testSecret), log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = PrincipalFrom(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("anonymous passes through", func(t *testing.T) {
		seen = nil
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/events", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, seen)
	})

	t.Run("valid token sets principal", func(t *testing.T) {
		token, err := IssueHMACToken(testSecret, "user-9", "", []string{"SPECTATOR"}, time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		require.NotNil(t, seen)
		assert.Equal(t, "user-9", seen.UserID)
	})

	t.Run("invalid token is 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("wrong scheme is 401", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/events", nil)
		req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRequireAuthenticated(t *testing.T) {
	handler := RequireAuthenticated(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	handler.ServeHTTP(rec, req.WithContext(WithPrincipal(req.Context(), &Principal{UserID: "u"})))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestM2MClientCachesToken(t *testing.T) {
	calls := 0
	keycloak := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		assert.Equal(t, "/realms/event-ticketing/protocol/openid-connect/token", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "events-service", r.PostForm.Get("client_id"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"svc-token","expires_in":300,"token_type":"Bearer"}`))
	}))
	defer keycloak.Close()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	m2m := &M2MClient{
		Config: models.Config{
			KeycloakURL:   keycloak.URL,
			KeycloakRealm: "event-ticketing",
			ClientID:      "events-service",
			ClientSecret:  "s3cret",
		},
		HTTPClient: keycloak.Client(),
		Cache:      NewRedisTokenCache(client),
		Logger:     logger.NewLoggerTo(io.Discard),
	}

	for i := 0; i < 3; i++ {
		token, err := m2m.Token(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "svc-token", token)
	}
	assert.Equal(t, 1, calls)
	assert.True(t, mr.Exists("m2m_token:events-service"))
}

func TestGetM2MTokenFailureStatus(t *testing.T) {
	keycloak := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unauthorized_client", http.StatusUnauthorized)
	}))
	defer keycloak.Close()

	_, err := GetM2MToken(context.Background(), models.Config{KeycloakURL: keycloak.URL, KeycloakRealm: "r"}, keycloak.Client())

	assert.ErrorContains(t, err, "401")
}

func TestTokenCacheExpiryBuffer(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := NewRedisTokenCache(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	// expires inside the refresh buffer
	require.NoError(t, cache.SetToken(ctx, "svc", "short", TokenExpiryBuffer/2))
	got, err := cache.GetToken(ctx, "svc")
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.SetToken(ctx, "svc", "long", 3600))
	got, err = cache.GetToken(ctx, "svc")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "long", got.Token)
}
