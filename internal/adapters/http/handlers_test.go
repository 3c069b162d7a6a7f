package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/mediconnect/realtime/internal/adapters/signal"
	"github.com/mediconnect/realtime/internal/app"
	"github.com/mediconnect/realtime/internal/auth"
	"github.com/mediconnect/realtime/internal/config"
	"github.com/mediconnect/realtime/internal/core"
	"github.com/mediconnect/realtime/internal/domain"
	"github.com/mediconnect/realtime/internal/store"
)

type nullConn struct{ frames []core.Frame }

func (n *nullConn) TrySend(f core.Frame) error {
	n.frames = append(n.frames, f)
	return nil
}
func (n *nullConn) Close() {}

type testEnv struct {
	router   *gin.Engine
	tokens   *auth.TokenVerifier
	store    *store.Store
	registry *app.Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := store.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	cfg := &config.Config{
		Mode:         "test",
		ReadLimit:    32768,
		PingPeriod:   54 * time.Second,
		WriteTimeout: 5 * time.Second,
		HistoryLimit: 50,
	}
	tokens := auth.NewTokenVerifier("test-secret")
	registry := app.NewRegistry()
	chat := app.NewChatRelay(st, registry)
	video := app.NewVideoCoordinator(registry)
	ctl := signal.NewController(cfg, tokens, registry, chat, video)
	h := NewHandlers(tokens, st, registry, cfg.HistoryLimit)

	return &testEnv{
		router:   SetupRouter(context.Background(), cfg, ctl, h),
		tokens:   tokens,
		store:    st,
		registry: registry,
	}
}

func (e *testEnv) request(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) tokenFor(t *testing.T, id domain.UserID, role domain.Role) string {
	t.Helper()
	token, err := e.tokens.Issue(id, role, time.Hour)
	require.NoError(t, err)
	return token
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodGet, "/api/health", "", "")
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)
	w := env.request(t, http.MethodPost, "/api/chats", "", `{"participants":["a","b"]}`)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateChatAndFetchMessages(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	aliceToken := env.tokenFor(t, "alice", domain.RoleDoctor)

	w := env.request(t, http.MethodPost, "/api/chats", aliceToken, `{"participants":["alice","bob"]}`)
	req.Equal(http.StatusCreated, w.Code)
	var ch domain.Channel
	req.NoError(json.Unmarshal(w.Body.Bytes(), &ch))
	req.NotEmpty(ch.ID)

	// Caller must be a participant.
	w = env.request(t, http.MethodPost, "/api/chats", aliceToken, `{"participants":["bob","carol"]}`)
	req.Equal(http.StatusForbidden, w.Code)

	msg := domain.Message{
		ID:        "m1",
		ChannelID: ch.ID,
		SenderID:  "alice",
		Content:   "hello",
		Kind:      domain.MessageText,
		CreatedAt: time.Now().UTC(),
	}
	req.NoError(env.store.CreateMessage(context.Background(), msg))

	w = env.request(t, http.MethodGet, "/api/chats/"+string(ch.ID)+"/messages", aliceToken, "")
	req.Equal(http.StatusOK, w.Code)
	var page struct {
		Messages []core.MessageView `json:"messages"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &page))
	req.Len(page.Messages, 1)
	req.Equal("hello", page.Messages[0].Content)

	// A non-participant cannot read the history.
	carolToken := env.tokenFor(t, "carol", domain.RolePatient)
	w = env.request(t, http.MethodGet, "/api/chats/"+string(ch.ID)+"/messages", carolToken, "")
	req.Equal(http.StatusForbidden, w.Code)
}

func TestSaveProfile(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	token := env.tokenFor(t, "alice", domain.RoleDoctor)

	w := env.request(t, http.MethodPost, "/api/profiles", token, `{"name":"Dr. Alice"}`)
	req.Equal(http.StatusOK, w.Code)

	p, err := env.store.Profile(context.Background(), "alice")
	req.NoError(err)
	req.Equal("Dr. Alice", p.Name)
}

func TestPushNotification(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	adminToken := env.tokenFor(t, "root", domain.RoleAdmin)

	// Offline target: accepted, not delivered.
	w := env.request(t, http.MethodPost, "/api/notifications/push", adminToken,
		`{"userId":"alice","title":"Reminder","message":"Appointment at 10:00"}`)
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), `"delivered":false`)

	conn := &nullConn{}
	env.registry.Register(core.NewSession(domain.Identity{ID: "alice", Role: domain.RolePatient}, conn))

	w = env.request(t, http.MethodPost, "/api/notifications/push", adminToken,
		`{"userId":"alice","title":"Reminder","message":"Appointment at 10:00"}`)
	req.Equal(http.StatusOK, w.Code)
	req.Contains(w.Body.String(), `"delivered":true`)
	req.NotEmpty(conn.frames)

	// Non-admin callers are refused.
	patientToken := env.tokenFor(t, "alice", domain.RolePatient)
	w = env.request(t, http.MethodPost, "/api/notifications/push", patientToken,
		`{"userId":"bob","title":"x","message":"y"}`)
	req.Equal(http.StatusForbidden, w.Code)
}

func TestIssueTokenEndpoint(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)

	w := env.request(t, http.MethodPost, "/api/auth/token", "", `{"userId":"alice","role":"doctor"}`)
	req.Equal(http.StatusOK, w.Code)
	var resp struct {
		Token string `json:"token"`
	}
	req.NoError(json.Unmarshal(w.Body.Bytes(), &resp))

	identity, err := env.tokens.Verify(resp.Token)
	req.NoError(err)
	req.Equal(domain.UserID("alice"), identity.ID)

	w = env.request(t, http.MethodPost, "/api/auth/token", "", `{"userId":"alice","role":"wizard"}`)
	req.Equal(http.StatusBadRequest, w.Code)
}
