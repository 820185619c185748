package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/taskcal/adapter/api"
	"github.com/felixgeelhaar/taskcal/internal/productivity/domain/task"
	"github.com/felixgeelhaar/taskcal/internal/productivity/infrastructure/persistence"
	"github.com/felixgeelhaar/taskcal/pkg/observability"
)

var fixedNow = func() time.Time {
	return time.Date(2024, time.May, 2, 9, 0, 0, 0, time.Local)
}

type testServer struct {
	handler http.Handler
	gateway *persistence.MemoryGateway
	metrics *observability.InMemoryMetrics
	health  *observability.HealthRegistry
}

func newTestServer(t *testing.T, seed ...task.Record) *testServer {
	t.Helper()
	gw := persistence.NewMemoryGateway(seed...)
	metrics := observability.NewInMemoryMetrics()
	health := observability.NewHealthRegistry()
	srv := api.NewServer(
		api.DefaultServerConfig(),
		api.NewTaskHandler(gw, nil, fixedNow, nil),
		health,
		metrics,
		nil,
	)
	return &testServer{handler: srv.Handler(), gateway: gw, metrics: metrics, health: health}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestTasks_CRUD(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())

	rec = s.do(t, http.MethodPost, "/tasks", task.Record{
		Title:   "Write report",
		DueDate: "2024-05-02",
		Time:    "10:00",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decodeBody[struct{ ID string }](t, rec)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "/tasks/"+created.ID, rec.Header().Get("Location"))

	rec = s.do(t, http.MethodPatch, "/tasks/"+created.ID, `{"status":"completed","completedDate":"2024-05-02"}`)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodGet, "/tasks", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	records := decodeBody[[]task.Record](t, rec)
	require.Len(t, records, 1)
	assert.Equal(t, task.StatusCompleted, records[0].Status)
	assert.Equal(t, "2024-05-02", records[0].CompletedDate)

	rec = s.do(t, http.MethodPatch, "/tasks/"+created.ID, `{"status":"pending","completedDate":null}`)
	require.Equal(t, http.StatusNoContent, rec.Code)
	records, err := s.gateway.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records[0].CompletedDate)

	rec = s.do(t, http.MethodDelete, "/tasks/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = s.do(t, http.MethodDelete, "/tasks/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTasks_Create_Validation(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name  string
		body  string
		code  string
		field string
	}{
		{name: "empty body", body: "", code: "bad_request"},
		{name: "malformed json", body: "{", code: "bad_request"},
		{name: "blank title", body: `{"title":"  ","dueDate":"2024-05-02"}`, code: "invalid_field", field: "title"},
		{name: "bad date", body: `{"title":"x","dueDate":"2024-02-30"}`, code: "invalid_field", field: "dueDate"},
		{name: "bad time", body: `{"title":"x","dueDate":"2024-05-02","time":"25:00"}`, code: "invalid_field", field: "time"},
		{name: "bad priority", body: `{"title":"x","dueDate":"2024-05-02","priority":"urgent"}`, code: "invalid_field", field: "priority"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPost, "/tasks", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			apiErr := decodeBody[api.APIError](t, rec)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.field, apiErr.Field)
		})
	}

	records, err := s.gateway.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestTasks_Patch_Errors(t *testing.T) {
	s := newTestServer(t, task.Record{ID: "a", Title: "First", DueDate: "2024-05-01"})

	tests := []struct {
		name   string
		path   string
		body   string
		status int
		code   string
	}{
		{name: "missing task", path: "/tasks/missing", body: `{"title":"x"}`, status: http.StatusNotFound, code: "not_found"},
		{name: "empty patch", path: "/tasks/a", body: `{}`, status: http.StatusBadRequest, code: "empty_patch"},
		{name: "bad status", path: "/tasks/a", body: `{"status":"archived"}`, status: http.StatusBadRequest, code: "invalid_field"},
		{name: "non-string field", path: "/tasks/a", body: `{"title":5}`, status: http.StatusBadRequest, code: "invalid_field"},
		{name: "malformed json", path: "/tasks/a", body: `{"title"`, status: http.StatusBadRequest, code: "bad_request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, http.MethodPatch, tt.path, tt.body)
			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.code, decodeBody[api.APIError](t, rec).Code)
		})
	}
}

type failingGateway struct {
	*persistence.MemoryGateway
}

func (failingGateway) FetchAll(context.Context) ([]task.Record, error) {
	return nil, task.NewTransportError("fetch", errors.New("connection refused"))
}

func TestTasks_List_TransportFailure(t *testing.T) {
	srv := api.NewServer(api.DefaultServerConfig(),
		api.NewTaskHandler(failingGateway{persistence.NewMemoryGateway()}, nil, fixedNow, nil),
		nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "store_unavailable", decodeBody[api.APIError](t, rec).Code)
}

func TestDashboard(t *testing.T) {
	s := newTestServer(t,
		task.Record{ID: "a", Title: "Standup", DueDate: "2024-05-02", Time: "09:30"},
		task.Record{ID: "b", Title: "Report", DueDate: "2024-05-02", Time: "08:00", Status: task.StatusCompleted, CompletedDate: "2024-05-01"},
		task.Record{ID: "c", Title: "Dentist", DueDate: "2024-05-20", Time: "14:00"},
		task.Record{ID: "bad", Title: "", DueDate: "2024-05-03"},
	)

	rec := s.do(t, http.MethodGet, "/views/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Today       string
		Selected    string
		UndoneCount int
		Mission     []task.Record
		Day         []task.Record
		Month       struct {
			Month    string
			Label    string
			Weekdays []string
			Cells    []struct {
				Key       string
				Day       int
				Selected  bool
				HasEvents bool
			}
		}
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	assert.Equal(t, "2024-05-02", body.Today)
	assert.Equal(t, "2024-05-02", body.Selected)
	assert.Equal(t, 2, body.UndoneCount)

	require.Len(t, body.Mission, 2)
	assert.Equal(t, "a", body.Mission[0].ID)
	assert.Equal(t, "c", body.Mission[1].ID)

	require.Len(t, body.Day, 2)
	assert.Equal(t, "a", body.Day[0].ID)
	assert.Equal(t, "b", body.Day[1].ID)

	assert.Equal(t, "2024-05", body.Month.Month)
	assert.Equal(t, "May 2024", body.Month.Label)
	assert.Equal(t, []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}, body.Month.Weekdays)
	require.Len(t, body.Month.Cells, 35)
	assert.Empty(t, body.Month.Cells[0].Key)
	assert.Equal(t, "2024-05-01", body.Month.Cells[3].Key)
	assert.True(t, body.Month.Cells[4].Selected)
	assert.True(t, body.Month.Cells[4].HasEvents)
	assert.False(t, body.Month.Cells[5].HasEvents)
	assert.True(t, body.Month.Cells[3+19].HasEvents)
}

func TestDashboard_Params(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/views/dashboard?date=2024-02-29&month=2024-03", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Selected string
		Month    struct{ Month string }
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "2024-02-29", body.Selected)
	assert.Equal(t, "2024-03", body.Month.Month)

	rec = s.do(t, http.MethodGet, "/views/dashboard?date=2024-13-01", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(t, http.MethodGet, "/views/dashboard?month=May", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	s.health.Register("store", observability.PingHealthChecker("store", observability.HealthStatusUnhealthy, s.gateway.Ping))

	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decodeBody[observability.OverallHealth](t, rec)
	assert.Equal(t, observability.HealthStatusHealthy, health.Status)
	assert.Contains(t, health.Checks, "store")

	s.health.Register("broker", observability.PingHealthChecker("broker", observability.HealthStatusUnhealthy, func(context.Context) error {
		return errors.New("dial tcp: refused")
	}))
	rec = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCorrelationHeader(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/tasks", nil)
	req.Header.Set(api.CorrelationHeader, "corr-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, "corr-123", rec.Header().Get(api.CorrelationHeader))

	rec = s.do(t, http.MethodGet, "/tasks", nil)
	assert.NotEmpty(t, rec.Header().Get(api.CorrelationHeader))

	assert.Equal(t, int64(2), s.metrics.GetCounter(observability.MetricHTTPRequests,
		observability.T("method", http.MethodGet),
		observability.T("route", "/tasks"),
		observability.T(observability.StatusKey, "200"),
	))
}
