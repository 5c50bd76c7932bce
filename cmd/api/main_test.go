package main

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/yourusername/gatehouse/internal/config"
	"github.com/yourusername/gatehouse/internal/users"
)

func TestSplitOrigins(t *testing.T) {
	assert.Equal(t, []string{"http://a", "http://b"}, splitOrigins(" http://a, ,http://b "))
	assert.Empty(t, splitOrigins(""))
}

func TestSeedUsersSkipsIncomplete(t *testing.T) {
	cfg := &config.Config{Seeds: []config.SeedUser{
		{Username: "AdminUser", Email: "admin@example.com", Password: "pw", Role: "admin"},
		{Username: "NoPassword", Email: "np@example.com", Role: "user"},
	}}

	seeds := seedUsers(cfg)
	require.Len(t, seeds, 1)
	assert.Equal(t, users.RoleAdmin, seeds[0].Role)
}

func TestSetupRouterServesLogin(t *testing.T) {
	cfg := &config.Config{
		GinMode:              "test",
		SessionSecret:        "test-session-secret-test-session-secret",
		SessionStore:         config.StoreMemory,
		SessionMaxAgeMinutes: 60,
		SessionIdleMinutes:   10,
		UserStore:            config.StoreMemory,
		BcryptCost:           bcrypt.MinCost,
		HashConcurrency:      1,
		CORSAllowedOrigins:   "http://localhost:3000",
	}

	svc, cleanup, err := setupUsers(t.Context(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer cleanup()

	router, err := setupRouter(cfg, zerolog.Nop(), svc)
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/login", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/login"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}
