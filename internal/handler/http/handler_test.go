package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/aniladanir/lead-funnel/internal/cache/memory"
	"github.com/aniladanir/lead-funnel/internal/domain"
	"github.com/aniladanir/lead-funnel/internal/lifecycle"
	"github.com/aniladanir/lead-funnel/internal/persistant/sqlite"
	leadRepo "github.com/aniladanir/lead-funnel/internal/repository/lead"
	"github.com/aniladanir/lead-funnel/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const bookingURL = "https://cal.example.com/acme"

type recordingGateway struct {
	mtx  sync.Mutex
	sent []domain.OutboundMessage
}

func (g *recordingGateway) Send(_ context.Context, msg domain.OutboundMessage) (domain.Receipt, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	g.sent = append(g.sent, msg)
	return domain.Receipt{}, nil
}

func (g *recordingGateway) count() int {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	return len(g.sent)
}

type testServer struct {
	router http.Handler
	gw     *recordingGateway
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := sqlite.Initialize(filepath.Join(t.TempDir(), "leads.db"), leadRepo.Models())
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDb, err := db.DB(); err == nil {
			sqlDb.Close()
		}
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gw := &recordingGateway{}
	leads := service.NewLeadService(
		leadRepo.NewLeadRepository(db, memory.NewMemoryCache()),
		lifecycle.NewEngine(bookingURL, 240*time.Minute),
		gw,
		logger,
		service.Options{AdvanceOnSendFailure: true},
	)
	scheduler, err := service.NewNudgeScheduler(leads, logger, time.Hour, 50, nil)
	require.NoError(t, err)

	h := NewHttpHandler(":0", leads, scheduler, []string{"https://app.example.com"})
	return &testServer{router: h.server.Handler, gw: gw}
}

func (s *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestCreateAndGetLead(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/leads", map[string]string{"name": "Alice", "phone": "+15551234567", "source": "ads"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[LeadResponse](t, rec)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "new", created.Status)
	assert.Nil(t, created.Email)
	assert.Equal(t, 1, s.gw.count())

	rec = s.do(t, http.MethodGet, "/leads/"+strconv.Itoa(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[LeadResponse](t, rec)
	assert.Equal(t, created, got)
}

func TestCreateLead_Validation(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/leads", map[string]string{"email": "alice@example.com"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/leads", map[string]string{"name": "Alice", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, s.gw.count())
}

func TestGetLead_NotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/leads/42", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/leads/abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInboundWebhook(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/leads", map[string]string{"name": "Alice", "phone": "+15551234567"})
	require.Equal(t, http.StatusOK, rec.Code)
	lead := decode[LeadResponse](t, rec)

	rec = s.do(t, http.MethodPost, "/webhooks/inbound", map[string]any{"lead_id": lead.ID, "channel": "sms", "content": "book"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[OKResponse](t, rec).OK)
	assert.Equal(t, 2, s.gw.count())

	rec = s.do(t, http.MethodGet, "/leads/"+strconv.Itoa(lead.ID), nil)
	assert.Equal(t, "engaged", decode[LeadResponse](t, rec).Status)

	rec = s.do(t, http.MethodGet, "/leads/"+strconv.Itoa(lead.ID)+"/messages", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]domain.Message](t, rec), 3)
}

func TestInboundWebhook_Errors(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/webhooks/inbound", map[string]any{"lead_id": 1, "channel": "fax", "content": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/webhooks/inbound", map[string]any{"lead_id": 1, "channel": "sms", "content": ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPost, "/webhooks/inbound", map[string]any{"lead_id": 77, "channel": "sms", "content": "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestScheduledWebhook(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPost, "/leads", map[string]string{"name": "Alice", "email": "alice@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	lead := decode[LeadResponse](t, rec)

	// query parameters
	rec = s.do(t, http.MethodPost, "/webhooks/scheduled?lead_id="+strconv.Itoa(lead.ID)+"&meeting_url=https://meet.example.com/1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	ok := decode[OKResponse](t, rec)
	require.NotNil(t, ok.Version)
	assert.Equal(t, 1, *ok.Version)

	rec = s.do(t, http.MethodGet, "/leads/"+strconv.Itoa(lead.ID), nil)
	got := decode[LeadResponse](t, rec)
	assert.Equal(t, "scheduled", got.Status)
	require.NotNil(t, got.ScheduledURL)
	assert.Equal(t, "https://meet.example.com/1", *got.ScheduledURL)

	// JSON body, a reschedule without version conflicts
	rec = s.do(t, http.MethodPost, "/webhooks/scheduled", map[string]any{"lead_id": lead.ID, "meeting_url": "https://meet.example.com/2"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/webhooks/scheduled", map[string]any{"lead_id": lead.ID, "meeting_url": "https://meet.example.com/2", "version": 1})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, *decode[OKResponse](t, rec).Version)

	rec = s.do(t, http.MethodPost, "/webhooks/scheduled?lead_id=999&meeting_url=https://meet.example.com/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodPost, "/webhooks/scheduled?lead_id="+strconv.Itoa(lead.ID), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSchedulerControlAndHealth(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "stopped", decode[HealthResponse](t, rec).Scheduler)

	rec = s.do(t, http.MethodPost, "/scheduler/start", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, "running", decode[HealthResponse](t, rec).Scheduler)

	rec = s.do(t, http.MethodPost, "/scheduler/stop", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, "stopped", decode[HealthResponse](t, rec).Scheduler)
}

func TestCORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/leads", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodOptions, "/leads", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec = httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/leads/1", nil)

	rec := s.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}
