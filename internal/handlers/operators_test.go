package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"mobiremote/internal/models"
	"mobiremote/internal/service"
)

func postJSON(path, body, token string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	return withAuth(req, token)
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name     string
		ops      *mockOperators
		token    string
		body     string
		wantCode int
		wantBy   models.Identity
	}{
		{
			name:     "bootstrap without token",
			ops:      &mockOperators{registered: models.Operator{ID: 1, Role: models.RoleAdmin}},
			body:     `{"username":"installer","password":"correct horse"}`,
			wantCode: http.StatusCreated,
		},
		{
			name:     "admin token is passed on",
			ops:      &mockOperators{identity: models.Identity{OperatorID: 1, Role: models.RoleAdmin}, registered: models.Operator{ID: 2, Role: models.RoleOperator}},
			token:    "admin-token",
			body:     `{"username":"night-shift","password":"correct horse","role":"operator"}`,
			wantCode: http.StatusCreated,
			wantBy:   models.Identity{OperatorID: 1, Role: models.RoleAdmin},
		},
		{
			name:     "invalid token counts as anonymous",
			ops:      &mockOperators{verifyErr: service.ErrInvalidToken, registerErr: service.ErrForbidden},
			token:    "stale",
			body:     `{"username":"x","password":"correct horse"}`,
			wantCode: http.StatusForbidden,
		},
		{
			name:     "duplicate",
			ops:      &mockOperators{registerErr: service.ErrOperatorExists},
			body:     `{"username":"installer","password":"correct horse"}`,
			wantCode: http.StatusConflict,
		},
		{
			name:     "weak password",
			ops:      &mockOperators{registerErr: service.ErrWeakPassword},
			body:     `{"username":"installer","password":"short"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing password",
			ops:      &mockOperators{},
			body:     `{"username":"installer"}`,
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "storage failure",
			ops:      &mockOperators{registerErr: errors.New("disk I/O error")},
			body:     `{"username":"installer","password":"correct horse"}`,
			wantCode: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{Operators: tt.ops}, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, postJSON("/auth/register", tt.body, tt.token))

			if w.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.ops.lastBy != tt.wantBy {
				t.Fatalf("registered by %+v, want %+v", tt.ops.lastBy, tt.wantBy)
			}
			if w.Code != http.StatusCreated {
				return
			}
			var op models.Operator
			if err := json.Unmarshal(w.Body.Bytes(), &op); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if op.ID == 0 || op.Role == "" || op.Username == "" {
				t.Fatalf("response: %s", w.Body.String())
			}
			if bytes.Contains(w.Body.Bytes(), []byte("password")) {
				t.Fatalf("password hash leaked: %s", w.Body.String())
			}
		})
	}
}

func TestIssueToken(t *testing.T) {
	tests := []struct {
		name     string
		ops      *mockOperators
		body     string
		wantCode int
		wantBody string
	}{
		{name: "ok", ops: &mockOperators{token: "tok123"}, body: `{"username":"u","password":"p"}`, wantCode: http.StatusOK, wantBody: `{"token":"tok123"}`},
		{name: "bad credentials", ops: &mockOperators{signInErr: service.ErrBadCredentials}, body: `{"username":"u","password":"x"}`, wantCode: http.StatusUnauthorized, wantBody: `{"error":"invalid credentials"}`},
		{name: "bad body", ops: &mockOperators{}, body: `{"username":1}`, wantCode: http.StatusBadRequest},
		{name: "storage failure", ops: &mockOperators{signInErr: errors.New("database is locked")}, body: `{"username":"u","password":"p"}`, wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&service.Service{Operators: tt.ops}, nil)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, postJSON("/auth/token", tt.body, ""))

			if w.Code != tt.wantCode {
				t.Fatalf("status=%d, want %d, body=%s", w.Code, tt.wantCode, w.Body.String())
			}
			if tt.wantBody != "" && w.Body.String() != tt.wantBody {
				t.Fatalf("body=%s, want %s", w.Body.String(), tt.wantBody)
			}
		})
	}
}
