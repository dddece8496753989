package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/auditbridge/auditbridge/internal/blameable"
	"github.com/auditbridge/auditbridge/internal/db"
	"github.com/auditbridge/auditbridge/internal/loggable"
	"github.com/auditbridge/auditbridge/internal/logger"
	"github.com/auditbridge/auditbridge/internal/model"
	"github.com/auditbridge/auditbridge/internal/security"
	"github.com/auditbridge/auditbridge/internal/service/auth"
	"github.com/auditbridge/auditbridge/pkg/testhelpers"
	"github.com/auditbridge/auditbridge/pkg/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	t      *testing.T
	server *Server
}

func newTestServer(t *testing.T) (*testServer, func()) {
	t.Helper()
	blame := blameable.New(blameable.WithDefaultValue("system"))
	logs := loggable.New(loggable.WithDefaultUsername("system"))
	setup := testhelpers.SetupTestDB(t, blame, logs)

	s, err := NewServer(&ServerOptions{
		Database:   &db.Database{DB: setup.DB, Blameable: blame, Loggable: logs},
		Logger:     logger.Nop(),
		AuthConfig: auth.Config{AccessTokenTTL: time.Hour, RememberMeTTL: 24 * time.Hour},
		RoleHierarchy: map[string][]string{
			security.RoleAdmin: {security.RoleUser, security.RoleAllowedToSwitch},
		},
	})
	require.NoError(t, err)

	ctx := t.Context()
	_, err = s.authService.CreateUser(ctx, "admin", "admin-password", []string{security.RoleAdmin})
	require.NoError(t, err)
	_, err = s.authService.CreateUser(ctx, "alice", "alice-password", nil)
	require.NoError(t, err)

	return &testServer{t: t, server: s}, setup.Cleanup
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(ts.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "auditbridge-test")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	ts.server.Handler().ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func (ts *testServer) login(username string, rememberMe bool) types.LoginResponse {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/api/v0/login", "", types.LoginRequest{
		Username:   username,
		Password:   username + "-password",
		RememberMe: rememberMe,
	})
	require.Equal(ts.t, http.StatusOK, w.Code, w.Body.String())
	return decode[types.LoginResponse](ts.t, w)
}

func TestHealthAndMetrics(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	w := ts.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ts.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	testhelpers.AssertStringContains(t, w.Body.String(), "auditbridge_http_requests_total")
}

func TestAuthentication(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	w := ts.do(http.MethodGet, "/api/v0/documents", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodGet, "/api/v0/documents", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ts.do(http.MethodPost, "/api/v0/login", "", types.LoginRequest{Username: "alice", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	session := ts.login("alice", false)
	w = ts.do(http.MethodGet, "/api/v0/whoami", session.AccessToken.Token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[types.WhoAmIResponse](t, w)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, []string{security.RoleUser}, me.Roles)
	assert.Equal(t, "fully", me.Level)
	assert.Empty(t, me.ImpersonatedBy)

	w = ts.do(http.MethodPost, "/api/v0/logout", session.AccessToken.Token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(http.MethodGet, "/api/v0/whoami", session.AccessToken.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestDocumentsAreAttributedToTheCaller(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	alice := ts.login("alice", false).AccessToken.Token
	admin := ts.login("admin", false).AccessToken.Token

	w := ts.do(http.MethodPost, "/api/v0/documents", alice, types.CreateDocumentRequest{Title: "Draft", Body: "v1"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decode[types.Document](t, w)
	assert.Equal(t, "alice", doc.CreatedBy)
	assert.Equal(t, "alice", doc.UpdatedBy)
	require.NotNil(t, doc.OwnerID)

	title := "Final"
	w = ts.do(http.MethodPatch, fmt.Sprintf("/api/v0/documents/%d", doc.ID), admin, types.UpdateDocumentRequest{Title: &title})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode[types.Document](t, w)
	assert.Equal(t, "alice", updated.CreatedBy)
	assert.Equal(t, "admin", updated.UpdatedBy)

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/v0/documents/%d/history", doc.ID), alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[types.ListLogEntriesResponse](t, w)
	require.Equal(t, 2, history.Count)
	assert.Equal(t, "admin", history.Entries[0].Username)
	assert.Equal(t, model.LogActionUpdate, history.Entries[0].Action)
	assert.Equal(t, "alice", history.Entries[1].Username)
	assert.Equal(t, "192.0.2.1", history.Entries[1].IPAddress)

	w = ts.do(http.MethodDelete, fmt.Sprintf("/api/v0/documents/%d", doc.ID), alice, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = ts.do(http.MethodGet, fmt.Sprintf("/api/v0/documents/%d", doc.ID), alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestImpersonationIsAttributedToTheOriginalUser(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	admin := ts.login("admin", false).AccessToken.Token

	w := ts.do(http.MethodPost, "/api/v0/switch-user", admin, types.SwitchUserRequest{Username: "alice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	switched := decode[types.AccessToken](t, w).Token

	w = ts.do(http.MethodGet, "/api/v0/whoami", switched, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[types.WhoAmIResponse](t, w)
	assert.Equal(t, "alice", me.Username)
	assert.Equal(t, "admin", me.ImpersonatedBy)

	w = ts.do(http.MethodPost, "/api/v0/documents", switched, types.CreateDocumentRequest{Title: "On behalf of alice"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decode[types.Document](t, w)
	assert.Equal(t, "admin", doc.CreatedBy)
	assert.Equal(t, "admin", doc.UpdatedBy)

	w = ts.do(http.MethodGet, fmt.Sprintf("/api/v0/documents/%d/history", doc.ID), switched, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[types.ListLogEntriesResponse](t, w)
	require.Equal(t, 1, history.Count)
	assert.Equal(t, "admin", history.Entries[0].Username)

	w = ts.do(http.MethodPost, "/api/v0/switch-user", switched, types.SwitchUserRequest{Username: "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPost, "/api/v0/exit-switch-user", switched, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, admin, decode[types.AccessToken](t, w).Token)

	w = ts.do(http.MethodGet, "/api/v0/whoami", switched, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAccessControl(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	alice := ts.login("alice", false).AccessToken.Token
	remembered := ts.login("admin", true).RememberMeToken.Token

	w := ts.do(http.MethodPost, "/api/v0/switch-user", alice, types.SwitchUserRequest{Username: "admin"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodGet, "/api/v0/log-entries", alice, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// a remembered session may read and write but not switch user
	w = ts.do(http.MethodGet, "/api/v0/documents", remembered, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = ts.do(http.MethodPost, "/api/v0/switch-user", remembered, types.SwitchUserRequest{Username: "alice"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = ts.do(http.MethodPost, "/api/v0/exit-switch-user", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListLogEntries(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	alice := ts.login("alice", false).AccessToken.Token
	admin := ts.login("admin", false).AccessToken.Token

	for i := 0; i < 3; i++ {
		w := ts.do(http.MethodPost, "/api/v0/documents", alice, types.CreateDocumentRequest{Title: fmt.Sprintf("doc %d", i)})
		require.Equal(t, http.StatusCreated, w.Code)
	}

	w := ts.do(http.MethodGet, "/api/v0/log-entries?username=alice&limit=2", admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[types.ListLogEntriesResponse](t, w)
	assert.Equal(t, 2, resp.Count)

	w = ts.do(http.MethodGet, "/api/v0/log-entries?limit=0", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestInvalidDocumentRequests(t *testing.T) {
	ts, cleanup := newTestServer(t)
	defer cleanup()

	alice := ts.login("alice", false).AccessToken.Token

	w := ts.do(http.MethodGet, "/api/v0/documents/abc", alice, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/v0/documents", alice, map[string]string{"body": "no title"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodGet, "/api/v0/documents/42", alice, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
