package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"mobiremote/internal/models"
	"mobiremote/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockOperators struct {
	identity  models.Identity
	verifyErr error

	registered  models.Operator
	registerErr error
	token       string
	signInErr   error

	lastBy    models.Identity
	lastRole  models.Role
	lastToken string
}

func (m *mockOperators) Register(_ context.Context, by models.Identity, username, _ string, role models.Role) (models.Operator, error) {
	m.lastBy = by
	m.lastRole = role
	if m.registerErr != nil {
		return models.Operator{}, m.registerErr
	}
	op := m.registered
	op.Username = username
	return op, nil
}

func (m *mockOperators) SignIn(context.Context, string, string) (string, error) {
	return m.token, m.signInErr
}

func (m *mockOperators) Verify(token string) (models.Identity, error) {
	m.lastToken = token
	return m.identity, m.verifyErr
}

func asOperator(id int) *mockOperators {
	return &mockOperators{identity: models.Identity{OperatorID: id, Role: models.RoleOperator}}
}

func asAdmin(id int) *mockOperators {
	return &mockOperators{identity: models.Identity{OperatorID: id, Role: models.RoleAdmin}}
}

type mockMonitoring struct {
	mu    sync.Mutex
	snap  models.Snapshot
	err   error
	calls int
}

func (m *mockMonitoring) GetStatus(ctx context.Context) (models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	return m.snap, m.err
}

type mockEventLog struct {
	resp     []models.ApplianceEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) Record(ctx context.Context, typ, description string, meta any) {}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.ApplianceEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockSubmitter struct {
	err       error
	submitted []models.Command
}

func (m *mockSubmitter) Submit(ctx context.Context, cmd models.Command) error {
	if m.err != nil {
		return m.err
	}
	m.submitted = append(m.submitted, cmd)
	return nil
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, sub CommandSubmitter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	if sub == nil {
		sub = &mockSubmitter{}
	}
	return NewHandler(s, sub, nil).InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}

func withAuth(req *http.Request, token string) *http.Request {
	for k, vv := range authHeader(token) {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	return req
}
