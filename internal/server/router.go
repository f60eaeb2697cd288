package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/MarcoPoloResearchLab/sketchroom/internal/activity"
	"github.com/MarcoPoloResearchLab/sketchroom/internal/session"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	errMissingCoordinator = errors.New("session coordinator dependency required")
	errMissingHub         = errors.New("hub dependency required")
	errMissingIDProvider  = errors.New("id provider dependency required")
)

// ActivityReader exposes the room activity journal.
type ActivityReader interface {
	ListRoomEvents(ctx context.Context, roomID string, limit int) ([]activity.RoomEvent, error)
}

// IDProvider issues connection identifiers.
type IDProvider interface {
	NewID() (string, error)
}

type Dependencies struct {
	Coordinator    *session.Coordinator
	Hub            *Hub
	Activity       ActivityReader
	IDProvider     IDProvider
	AllowedOrigins []string
	Logger         *zap.Logger
}

func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.Coordinator == nil {
		return nil, errMissingCoordinator
	}
	if deps.Hub == nil {
		return nil, errMissingHub
	}
	if deps.IDProvider == nil {
		return nil, errMissingIDProvider
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	allowedOrigins := deps.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(allowedOrigins))

	handler := &httpHandler{
		coordinator: deps.Coordinator,
		hub:         deps.Hub,
		activity:    deps.Activity,
		ids:         deps.IDProvider,
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(allowedOrigins, r.Header.Get("Origin"))
			},
		},
	}

	router.GET("/health", handler.handleHealth)
	router.GET("/ws", handler.handleWebSocket)
	if handler.activity != nil {
		router.GET("/rooms/:roomId/activity", handler.handleRoomActivity)
	}

	return router, nil
}

type httpHandler struct {
	coordinator *session.Coordinator
	hub         *Hub
	activity    ActivityReader
	ids         IDProvider
	logger      *zap.Logger
	upgrader    websocket.Upgrader
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	config := cors.Config{
		AllowMethods: []string{http.MethodGet, http.MethodOptions},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}
	if len(allowedOrigins) == 1 && allowedOrigins[0] == "*" {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = allowedOrigins
	}
	return cors.New(config)
}

type healthResponsePayload struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
	Rooms       int    `json:"rooms"`
}

func (h *httpHandler) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponsePayload{
		Status:      "ok",
		Connections: h.hub.ConnectionCount(),
		Rooms:       h.coordinator.RoomCount(),
	})
}

type activityResponsePayload struct {
	RoomID string               `json:"roomId"`
	Events []activity.RoomEvent `json:"events"`
}

func (h *httpHandler) handleRoomActivity(c *gin.Context) {
	roomID := c.Param("roomId")
	limit := 0
	if rawLimit := c.Query("limit"); rawLimit != "" {
		parsed, err := strconv.Atoi(rawLimit)
		if err != nil || parsed <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
			return
		}
		limit = parsed
	}

	events, err := h.activity.ListRoomEvents(c.Request.Context(), roomID, limit)
	if err != nil {
		h.logger.Error("failed to list room activity", zap.String("room_id", roomID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "activity_query_failed"})
		return
	}

	c.JSON(http.StatusOK, activityResponsePayload{RoomID: roomID, Events: events})
}
