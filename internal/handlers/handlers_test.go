package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"teledash/internal/config"
	"teledash/internal/models"
	"teledash/internal/stats"
)

type fakeStore struct {
	net     []models.NetSample
	summary models.SummaryRow
	history []models.HistoryRow
	err     error

	historyCalls int
}

func (s *fakeStore) NetPage(context.Context, int, int) ([]models.NetSample, error) {
	return s.net, s.err
}
func (s *fakeStore) LatestCPU(context.Context, []string) ([]models.CPUSample, error) {
	return nil, s.err
}
func (s *fakeStore) LatestMem(context.Context, []string) ([]models.MemSample, error) {
	return nil, s.err
}
func (s *fakeStore) LatestSystem(context.Context, []string) ([]models.SystemSample, error) {
	return nil, s.err
}
func (s *fakeStore) StatsPage(context.Context, int, int) ([]models.HostRow, error) {
	return nil, s.err
}
func (s *fakeStore) Summary(context.Context, time.Time) (models.SummaryRow, error) {
	return s.summary, s.err
}
func (s *fakeStore) History(context.Context, string, string, int) ([]models.HistoryRow, error) {
	s.historyCalls++
	return s.history, s.err
}
func (s *fakeStore) PoolStats() models.PoolDiagnostics {
	return models.PoolDiagnostics{}
}

type fakeChecker struct{ err error }

func (c *fakeChecker) HealthCheck(context.Context) error { return c.err }

func newTestRouter(store *fakeStore, checker *fakeChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		PageSize:      10,
		HistoryPoints: 20,
		OnlineWindow:  5 * time.Minute,
	}
	h := New(stats.New(store, nil, cfg), checker)

	r := gin.New()
	r.GET("/health", h.HealthCheck)
	r.GET("/health/detailed", h.HealthCheckDetailed)
	r.GET("/api/stats", h.GetStats)
	r.GET("/api/history", h.GetHistory)
	return r
}

func doGet(t *testing.T, r *gin.Engine, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	r.ServeHTTP(w, req)
	return w
}

func TestGetStats(t *testing.T) {
	t.Run("Returns the stats envelope", func(t *testing.T) {
		store := &fakeStore{
			net:     []models.NetSample{{Host: "alpha", Time: time.Now()}},
			summary: models.SummaryRow{Total: 1, Online: 1},
		}
		w := doGet(t, newTestRouter(store, &fakeChecker{}), "/api/stats")

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}

		var resp models.StatsResponse
		if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Invalid JSON: %v", err)
		}
		if len(resp.Data) != 1 || resp.Data[0].Hostname != "alpha" {
			t.Errorf("Unexpected data: %+v", resp.Data)
		}
		if resp.Data[0].Status != "online" {
			t.Errorf("Expected online, got %s", resp.Data[0].Status)
		}
		if resp.Pagination.Page != 1 || resp.Pagination.Limit != 10 {
			t.Errorf("Unexpected pagination: %+v", resp.Pagination)
		}
	})

	t.Run("Garbage params fall back to defaults", func(t *testing.T) {
		store := &fakeStore{summary: models.SummaryRow{Total: 0}}
		w := doGet(t, newTestRouter(store, &fakeChecker{}), "/api/stats?page=abc&limit=-3")

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		var resp models.StatsResponse
		json.Unmarshal(w.Body.Bytes(), &resp)
		if resp.Pagination.Page != 1 || resp.Pagination.Limit != 10 {
			t.Errorf("Unexpected pagination: %+v", resp.Pagination)
		}
	})

	t.Run("Store failure returns 500 envelope", func(t *testing.T) {
		store := &fakeStore{err: errors.New("connection refused")}
		w := doGet(t, newTestRouter(store, &fakeChecker{}), "/api/stats")

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("Expected 500, got %d", w.Code)
		}
		var body map[string]any
		json.Unmarshal(w.Body.Bytes(), &body)
		if body["error"] != "Failed to fetch stats" {
			t.Errorf("Unexpected error body: %v", body)
		}
	})
}

func TestGetHistory(t *testing.T) {
	t.Run("Missing host is rejected before the store", func(t *testing.T) {
		store := &fakeStore{}
		w := doGet(t, newTestRouter(store, &fakeChecker{}), "/api/history")

		if w.Code != http.StatusBadRequest {
			t.Fatalf("Expected 400, got %d", w.Code)
		}
		if store.historyCalls != 0 {
			t.Error("Expected no store access for a missing host")
		}
	})

	t.Run("Unknown host returns empty array", func(t *testing.T) {
		store := &fakeStore{}
		w := doGet(t, newTestRouter(store, &fakeChecker{}), "/api/history?host=ghost")

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if w.Body.String() != "[]" {
			t.Errorf("Expected [], got %s", w.Body.String())
		}
	})

	t.Run("Returns chronological points", func(t *testing.T) {
		now := time.Now()
		store := &fakeStore{history: []models.HistoryRow{
			{Time: now, Value: fp(50)},
			{Time: now.Add(-time.Minute), Value: fp(40)},
		}}
		w := doGet(t, newTestRouter(store, &fakeChecker{}), "/api/history?host=alpha&type=memory")

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		var points []models.HistoryPoint
		if err := json.Unmarshal(w.Body.Bytes(), &points); err != nil {
			t.Fatalf("Invalid JSON: %v", err)
		}
		if len(points) != 2 || points[0].Usage != 40 || points[1].Usage != 50 {
			t.Errorf("Unexpected points: %+v", points)
		}
	})

	t.Run("Store failure returns 500", func(t *testing.T) {
		store := &fakeStore{err: errors.New("timeout")}
		w := doGet(t, newTestRouter(store, &fakeChecker{}), "/api/history?host=alpha")

		if w.Code != http.StatusInternalServerError {
			t.Fatalf("Expected 500, got %d", w.Code)
		}
	})
}

func TestHealth(t *testing.T) {
	t.Run("Basic health is plain OK", func(t *testing.T) {
		w := doGet(t, newTestRouter(&fakeStore{}, &fakeChecker{}), "/health")
		if w.Code != http.StatusOK || w.Body.String() != "OK" {
			t.Errorf("Expected 200 OK, got %d %q", w.Code, w.Body.String())
		}
	})

	t.Run("Detailed health reports database up", func(t *testing.T) {
		w := doGet(t, newTestRouter(&fakeStore{}, &fakeChecker{}), "/health/detailed")
		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		var body map[string]any
		json.Unmarshal(w.Body.Bytes(), &body)
		if body["status"] != "healthy" {
			t.Errorf("Expected healthy, got %v", body["status"])
		}
	})

	t.Run("Detailed health degrades on database failure", func(t *testing.T) {
		checker := &fakeChecker{err: errors.New("no route to host")}
		w := doGet(t, newTestRouter(&fakeStore{}, checker), "/health/detailed")
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("Expected 503, got %d", w.Code)
		}
		var body map[string]any
		json.Unmarshal(w.Body.Bytes(), &body)
		if body["status"] != "unhealthy" {
			t.Errorf("Expected unhealthy, got %v", body["status"])
		}
	})
}

func fp(v float64) *float64 { return &v }
