package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/MarcoPoloResearchLab/sketchroom/internal/activity"
	"github.com/MarcoPoloResearchLab/sketchroom/internal/history"
	"github.com/MarcoPoloResearchLab/sketchroom/internal/membership"
	"github.com/MarcoPoloResearchLab/sketchroom/internal/session"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type sequenceIDProvider struct {
	mu   sync.Mutex
	next int
}

func (p *sequenceIDProvider) NewID() (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	return fmt.Sprintf("conn-%d", p.next), nil
}

type stubActivityReader struct {
	events    []activity.RoomEvent
	err       error
	lastRoom  string
	lastLimit int
}

func (s *stubActivityReader) ListRoomEvents(_ context.Context, roomID string, limit int) ([]activity.RoomEvent, error) {
	s.lastRoom = roomID
	s.lastLimit = limit
	return s.events, s.err
}

type testServer struct {
	handler     http.Handler
	hub         *Hub
	coordinator *session.Coordinator
}

func newTestServer(t *testing.T, reader ActivityReader, logger *zap.Logger) testServer {
	t.Helper()
	return newTestServerWithOutbox(t, reader, logger, 64)
}

func newTestServerWithOutbox(t *testing.T, reader ActivityReader, logger *zap.Logger, outboxSize int) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	hub := NewHub(outboxSize, logger)
	coordinator, err := session.NewCoordinator(session.Config{
		Registry:  membership.NewRegistry(),
		History:   history.NewStore(history.StoreConfig{}),
		Transport: hub,
		Logger:    logger,
	})
	if err != nil {
		t.Fatalf("failed to construct coordinator: %v", err)
	}
	handler, err := NewHTTPHandler(Dependencies{
		Coordinator: coordinator,
		Hub:         hub,
		Activity:    reader,
		IDProvider:  &sequenceIDProvider{},
		Logger:      logger,
	})
	if err != nil {
		t.Fatalf("failed to construct http handler: %v", err)
	}
	return testServer{handler: handler, hub: hub, coordinator: coordinator}
}

func TestNewHTTPHandlerRequiresDependencies(t *testing.T) {
	if _, err := NewHTTPHandler(Dependencies{}); !errors.Is(err, errMissingCoordinator) {
		t.Fatalf("expected errMissingCoordinator, got %v", err)
	}
}

func TestHealthReportsConnectionsAndRooms(t *testing.T) {
	server := newTestServer(t, nil, zap.NewNop())
	_, cleanup := server.hub.register("conn-a")
	defer cleanup()
	server.coordinator.Connect("conn-a")
	server.coordinator.Join(context.Background(), "conn-a", "demo")

	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", recorder.Code)
	}
	var payload healthResponsePayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode health payload: %v", err)
	}
	if payload.Status != "ok" || payload.Connections != 1 || payload.Rooms != 1 {
		t.Fatalf("unexpected health payload: %+v", payload)
	}
}

func TestRoomActivityReturnsJournal(t *testing.T) {
	reader := &stubActivityReader{events: []activity.RoomEvent{
		{EventID: "event-2", RoomID: "demo", Kind: activity.KindUndo, Detail: "g2"},
		{EventID: "event-1", RoomID: "demo", Kind: activity.KindJoined},
	}}
	server := newTestServer(t, reader, zap.NewNop())

	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms/demo/activity?limit=5", http.NoBody))

	if recorder.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", recorder.Code)
	}
	if reader.lastRoom != "demo" || reader.lastLimit != 5 {
		t.Fatalf("unexpected query arguments: %q %d", reader.lastRoom, reader.lastLimit)
	}
	var payload activityResponsePayload
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode activity payload: %v", err)
	}
	if payload.RoomID != "demo" || len(payload.Events) != 2 || payload.Events[0].Detail != "g2" {
		t.Fatalf("unexpected activity payload: %+v", payload)
	}
}

func TestRoomActivityRejectsInvalidLimit(t *testing.T) {
	server := newTestServer(t, &stubActivityReader{}, zap.NewNop())

	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms/demo/activity?limit=abc", http.NoBody))

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, recorder.Code)
	}
}

func TestRoomActivityLogsQueryFailure(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	server := newTestServer(t, &stubActivityReader{err: errors.New("database locked")}, zap.New(core))

	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms/demo/activity", http.NoBody))

	if recorder.Code != http.StatusInternalServerError {
		t.Fatalf("expected status %d, got %d", http.StatusInternalServerError, recorder.Code)
	}
	entries := logs.FilterMessage("failed to list room activity").All()
	if len(entries) != 1 || entries[0].Level != zapcore.ErrorLevel {
		t.Fatalf("expected one error log entry, got %v", entries)
	}
}

func TestRoomActivityRouteAbsentWithoutJournal(t *testing.T) {
	server := newTestServer(t, nil, zap.NewNop())

	recorder := httptest.NewRecorder()
	server.handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/rooms/demo/activity", http.NoBody))

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, recorder.Code)
	}
}
