package handler_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"pitchside/internal/identity/handler"
	identityservice "pitchside/internal/identity/service"
	identitystore "pitchside/internal/identity/store"
	"pitchside/internal/platform/middleware"
	"pitchside/internal/token"
	"pitchside/pkg/domain"
)

// AuthFlowSuite exercises the identity endpoints end to end over the
// in-memory store: registration, login, refresh, the session gate, and the
// admin-only role route.
type AuthFlowSuite struct {
	suite.Suite
	users  *identitystore.InMemoryUserStore
	tokens *token.Service
	server *httptest.Server
}

func TestAuthFlowSuite(t *testing.T) {
	suite.Run(t, new(AuthFlowSuite))
}

func (s *AuthFlowSuite) SetupTest() {
	log := slog.New(slog.DiscardHandler)
	s.users = identitystore.NewInMemoryUserStore()

	var err error
	s.tokens, err = token.NewService("access-secret", "refresh-secret", 15*time.Minute, 24*time.Hour)
	s.Require().NoError(err)

	identities := identityservice.New(s.users, s.tokens, log)
	requireAuth := middleware.RequireAuth(s.tokens, identities, log)

	r := chi.NewRouter()
	handler.New(identities, requireAuth, log).Register(r)
	s.server = httptest.NewServer(r)
}

func (s *AuthFlowSuite) TearDownTest() {
	s.server.Close()
}

func (s *AuthFlowSuite) post(path string, body any, authToken string) (*http.Response, map[string]any) {
	return s.request(http.MethodPost, path, body, authToken)
}

func (s *AuthFlowSuite) request(method, path string, body any, authToken string) (*http.Response, map[string]any) {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, s.server.URL+path, &buf)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}

	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func (s *AuthFlowSuite) register(email string, role domain.Role) map[string]any {
	resp, body := s.post("/auth/register", map[string]any{
		"email":    email,
		"password": "long-enough",
		"role":     role,
	}, "")
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	return body
}

func accessToken(s *AuthFlowSuite, body map[string]any) string {
	tok, ok := body["token"].(map[string]any)
	s.Require().True(ok)
	access, ok := tok["access_token"].(string)
	s.Require().True(ok)
	return access
}

func (s *AuthFlowSuite) TestRegisterLoginAndMe() {
	body := s.register("captain@example.com", domain.RoleCaptain)
	user := body["user"].(map[string]any)
	s.Equal("captain@example.com", user["email"])
	s.NotContains(user, "password_hash")

	resp, loginBody := s.post("/auth/login", map[string]string{
		"email":    "Captain@Example.com",
		"password": "long-enough",
	}, "")
	s.Equal(http.StatusOK, resp.StatusCode)

	resp, me := s.request(http.MethodGet, "/auth/me", nil, accessToken(s, loginBody))
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("captain@example.com", me["email"])
	s.Equal(string(domain.RoleCaptain), me["role"])
}

func (s *AuthFlowSuite) TestDuplicateRegistration() {
	s.register("captain@example.com", domain.RolePlayer)

	resp, _ := s.post("/auth/register", map[string]string{
		"email":    "captain@example.com",
		"password": "long-enough",
	}, "")
	s.Equal(http.StatusConflict, resp.StatusCode)
}

func (s *AuthFlowSuite) TestLoginRejectsBadCredentials() {
	s.register("captain@example.com", domain.RolePlayer)

	resp, _ := s.post("/auth/login", map[string]string{
		"email":    "captain@example.com",
		"password": "wrong-password",
	}, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *AuthFlowSuite) TestRefreshRotatesTokens() {
	body := s.register("captain@example.com", domain.RolePlayer)
	refresh := body["token"].(map[string]any)["refresh_token"].(string)

	resp, refreshed := s.post("/auth/refresh", map[string]string{"refresh_token": refresh}, "")
	s.Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(accessToken(s, refreshed))

	resp, _ = s.post("/auth/refresh", map[string]string{"refresh_token": "garbage"}, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *AuthFlowSuite) TestMeRequiresToken() {
	resp, _ := s.request(http.MethodGet, "/auth/me", nil, "")
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *AuthFlowSuite) TestRoleChangeIsAdminOnly() {
	adminBody := s.register("admin@example.com", domain.RoleAdmin)
	playerBody := s.register("player@example.com", domain.RolePlayer)
	playerID := playerBody["user"].(map[string]any)["id"].(string)

	path := fmt.Sprintf("/auth/users/%s/role", playerID)

	s.Run("player cannot promote anyone", func() {
		resp, _ := s.request(http.MethodPatch, path,
			map[string]string{"role": "CAPTAIN"}, accessToken(s, playerBody))
		s.Equal(http.StatusForbidden, resp.StatusCode)
	})

	s.Run("admin promotes the player", func() {
		resp, updated := s.request(http.MethodPatch, path,
			map[string]string{"role": "CAPTAIN"}, accessToken(s, adminBody))
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("CAPTAIN", updated["role"])
	})

	s.Run("promotion takes effect on the next request", func() {
		resp, me := s.request(http.MethodGet, "/auth/me", nil, accessToken(s, playerBody))
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("CAPTAIN", me["role"], "the gate re-reads the role from the store")
	})
}

func (s *AuthFlowSuite) TestDeletedUserIsLockedOut() {
	body := s.register("ghost@example.com", domain.RolePlayer)
	userID := body["user"].(map[string]any)["id"].(string)
	tok := accessToken(s, body)

	resp, _ := s.request(http.MethodGet, "/auth/me", nil, tok)
	s.Equal(http.StatusOK, resp.StatusCode)

	id, err := uuid.Parse(userID)
	s.Require().NoError(err)
	s.Require().NoError(s.users.Delete(s.T().Context(), id))

	// The still-valid token no longer grants access.
	resp, _ = s.request(http.MethodGet, "/auth/me", nil, tok)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}
