package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cidxb/rark/internal/config"
	"github.com/cidxb/rark/internal/kernel"
	"github.com/cidxb/rark/internal/runner"
	"github.com/cidxb/rark/internal/task"
)

type memStore struct {
	mu   sync.Mutex
	rows map[string]*task.Task
}

func newMemStore() *memStore { return &memStore{rows: map[string]*task.Task{}} }

func (m *memStore) Open(context.Context) error { return nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) Upsert(_ context.Context, t *task.Task) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *t
	m.rows[t.ID] = &cp
	return nil
}

func (m *memStore) LoadAll(context.Context) ([]*task.Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*task.Task, 0, len(m.rows))
	for _, t := range m.rows {
		cp := *t
		out = append(out, &cp)
	}
	return out, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	k := kernel.New(cfg, newMemStore(), nil)
	r := runner.New(k)
	require.NoError(t, k.Start(context.Background()))
	return New(cfg, r, nil)
}

func doRequest(s *Server, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpointReportsIdle(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out HealthOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, "ok", out.Status)
	assert.Nil(t, out.ActiveTask)
}

func TestSubmitThenGetTask(t *testing.T) {
	s := newTestServer(t)

	rec := doRequest(s, http.MethodPost, "/tasks", SubmitRequest{Name: "pour_water", Priority: 3})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var created TaskOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "pour_water", created.Name)
	assert.Equal(t, 3, created.Priority)
	assert.Equal(t, "pending", created.State)

	rec = doRequest(s, http.MethodGet, "/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var fetched TaskOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fetched))
	assert.Equal(t, created.ID, fetched.ID)
}

func TestSubmitDefaultsPriorityWhenUnset(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/tasks", SubmitRequest{Name: "scan_room"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var out TaskOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, defaultSubmitPriority, out.Priority)
}

func TestSubmitRejectsEmptyName(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/tasks", SubmitRequest{Priority: 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUnknownTaskReturns404(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodGet, "/tasks/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelUnknownTaskReturns404(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodDelete, "/tasks/does-not-exist", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestInterruptCreatesHighPriorityTask(t *testing.T) {
	s := newTestServer(t)
	rec := doRequest(s, http.MethodPost, "/interrupt", InterruptRequest{Name: "emergency_stop"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	var out TaskOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Equal(t, defaultInterruptPriority, out.Priority)
}

func TestListTasksReturnsSubmitted(t *testing.T) {
	s := newTestServer(t)
	doRequest(s, http.MethodPost, "/tasks", SubmitRequest{Name: "a", Priority: 1})
	doRequest(s, http.MethodPost, "/tasks", SubmitRequest{Name: "b", Priority: 2})

	rec := doRequest(s, http.MethodGet, "/tasks", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var out []TaskOut
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	assert.Len(t, out, 2)
}
