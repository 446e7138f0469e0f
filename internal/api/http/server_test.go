package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	appAudit "github.com/campus-market/meetup-hub/internal/application/audit"
	appAuth "github.com/campus-market/meetup-hub/internal/application/auth"
	appCatalog "github.com/campus-market/meetup-hub/internal/application/catalog"
	appChat "github.com/campus-market/meetup-hub/internal/application/chat"
	appMeetup "github.com/campus-market/meetup-hub/internal/application/meetup"
	meetupmocks "github.com/campus-market/meetup-hub/internal/application/meetup/mocks"
	appUser "github.com/campus-market/meetup-hub/internal/application/user"
	"github.com/campus-market/meetup-hub/internal/domain/audit"
	chatmocks "github.com/campus-market/meetup-hub/internal/domain/chat/mocks"
	"github.com/campus-market/meetup-hub/internal/domain/meetup"
	productmocks "github.com/campus-market/meetup-hub/internal/domain/product/mocks"
	domainSession "github.com/campus-market/meetup-hub/internal/domain/session"
	sessionmocks "github.com/campus-market/meetup-hub/internal/domain/session/mocks"
	domainUser "github.com/campus-market/meetup-hub/internal/domain/user"
	usermocks "github.com/campus-market/meetup-hub/internal/domain/user/mocks"
	"github.com/campus-market/meetup-hub/internal/infrastructure/memory"
	"github.com/campus-market/meetup-hub/internal/infrastructure/sse"
)

var (
	baseTime   = time.Date(2026, 2, 20, 9, 0, 0, 0, time.UTC)
	meetupDate = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

// memoryAudit is an audit.Repository for handler tests.
type memoryAudit struct {
	mu   sync.Mutex
	logs []*audit.AuditLog
}

func (m *memoryAudit) Create(_ context.Context, entry *audit.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, entry)
	return nil
}

func (m *memoryAudit) GetByEntityID(_ context.Context, entityType audit.EntityType, entityID string) ([]*audit.AuditLog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*audit.AuditLog, 0)
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].EntityType == entityType && m.logs[i].EntityID == entityID {
			out = append(out, m.logs[i])
		}
	}
	return out, nil
}

type apiHarness struct {
	handler  http.Handler
	repo     *memory.TransactionRepository
	notifier *meetupmocks.MockNotifier
	chats    *chatmocks.MockRepository
	products *productmocks.MockRepository
	users    *usermocks.MockRepository
	sessions *sessionmocks.MockRepository
	auth     *appAuth.Service
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()
	ctrl := gomock.NewController(t)
	logger := zerolog.Nop()
	h := &apiHarness{
		repo:     memory.NewTransactionRepository(),
		notifier: meetupmocks.NewMockNotifier(ctrl),
		chats:    chatmocks.NewMockRepository(ctrl),
		products: productmocks.NewMockRepository(ctrl),
		users:    usermocks.NewMockRepository(ctrl),
		sessions: sessionmocks.NewMockRepository(ctrl),
	}
	hub := sse.NewHub(logger)
	clock := fixedClock{now: baseTime}

	auditSvc := appAudit.NewService(&memoryAudit{}, logger, nil)
	store := appMeetup.NewStore(h.repo, sse.NewTransactionFeed(hub, logger), clock, logger)
	meetupSvc := appMeetup.NewService(store, meetup.NewMachine(meetup.DefaultPolicy()), h.notifier, auditSvc, clock, logger)
	h.auth = appAuth.NewService(h.users, h.sessions, []byte("0123456789abcdef0123456789abcdef"), time.Hour, logger)

	server := NewServer(Services{
		Meetup:      meetupSvc,
		Coordinator: appMeetup.NewCoordinator(meetupSvc, logger),
		Monitor:     appMeetup.NewMonitor(meetupSvc, 2, logger),
		Chat:        appChat.NewService(h.chats, hub, auditSvc, logger),
		Catalog:     appCatalog.NewService(h.products, logger),
		Audit:       auditSvc,
		Auth:        h.auth,
		User:        appUser.NewService(h.users, "campus.edu", logger),
	}, hub, Options{SessionCookieName: "meetup_hub_session", CORSOrigins: []string{"https://market.example"}}, logger)
	h.handler = server.Router()
	return h
}

// quietNotifier accepts every collaborator call.
func (h *apiHarness) quietNotifier() {
	h.notifier.EXPECT().Notify(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	h.notifier.EXPECT().IsConversationDone(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(false, nil).AnyTimes()
	h.notifier.EXPECT().MarkConversationDone(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
}

type testUser struct {
	user  *domainUser.User
	token string
}

func (u testUser) id() string { return u.user.UserID.String() }

// login creates a user with role and returns a bearer token for it.
func (h *apiHarness) login(t *testing.T, username string, role domainUser.Role) testUser {
	t.Helper()
	hash, err := domainUser.HashPassword("Secure12Pass")
	require.NoError(t, err)
	u := &domainUser.User{
		UserID:       uuid.New(),
		Username:     username,
		PasswordHash: hash,
		Role:         role,
		Status:       domainUser.StatusActive,
	}

	var sess *domainSession.Session
	h.users.EXPECT().GetByUsername(gomock.Any(), username).Return(u, nil)
	h.sessions.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, s *domainSession.Session) error {
		sess = s
		return nil
	})
	res, err := h.auth.Login(context.Background(), username, "Secure12Pass", nil, nil)
	require.NoError(t, err)

	h.sessions.EXPECT().GetByID(gomock.Any(), sess.SessionID).Return(sess, nil).AnyTimes()
	h.sessions.EXPECT().UpdateLastSeen(gomock.Any(), sess.SessionID).Return(nil).AnyTimes()
	h.users.EXPECT().GetByID(gomock.Any(), u.UserID).Return(u, nil).AnyTimes()
	return testUser{user: u, token: res.Token}
}

func (h *apiHarness) do(t *testing.T, method, path string, as *testUser, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if as != nil {
		req.Header.Set("Authorization", "Bearer "+as.token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v))
}

func TestHealthz(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK","sse_clients":0}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodGet, "/metrics", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "meetup_sse_connected_clients")
}

func TestRequireAuth(t *testing.T) {
	h := newAPIHarness(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token"},
		{name: "malformed token", token: "not-a-jwt"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/transactions", nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rec := httptest.NewRecorder()
			h.handler.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	h := newAPIHarness(t)

	req := httptest.NewRequest(http.MethodOptions, "/v1/meetups", nil)
	req.Header.Set("Origin", "https://market.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)

	assert.Equal(t, "https://market.example", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMe(t *testing.T) {
	h := newAPIHarness(t)
	ana := h.login(t, "ana.lee", domainUser.RoleStudent)

	rec := h.do(t, http.MethodGet, "/v1/auth/me", &ana, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var got domainUser.User
	decodeJSON(t, rec, &got)
	assert.Equal(t, ana.user.UserID, got.UserID)
	assert.NotContains(t, rec.Body.String(), "Secure12Pass")
}

func TestRegister_Validation(t *testing.T) {
	h := newAPIHarness(t)

	rec := h.do(t, http.MethodPost, "/v1/auth/register", nil, map[string]string{
		"username": "ana.lee",
		"email":    "not-an-email",
		"password": "Secure12Pass",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
