package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestCORSMiddlewareAllowsConfiguredOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(corsMiddleware([]string{"https://board.example.com"}))
	router.OPTIONS("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	request := httptest.NewRequest(http.MethodOptions, "/health", http.NoBody)
	request.Header.Set("Origin", "https://board.example.com")
	request.Header.Set("Access-Control-Request-Method", http.MethodGet)

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected status %d, got %d", http.StatusNoContent, recorder.Code)
	}
	if got := recorder.Header().Get("Access-Control-Allow-Origin"); got != "https://board.example.com" {
		t.Fatalf("expected allowed origin to be echoed, got %q", got)
	}
}

func TestCORSMiddlewareRejectsUnknownOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)

	router := gin.New()
	router.Use(corsMiddleware([]string{"https://board.example.com"}))
	router.GET("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	request := httptest.NewRequest(http.MethodGet, "/health", http.NoBody)
	request.Header.Set("Origin", "https://evil.example.com")

	recorder := httptest.NewRecorder()
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d", http.StatusForbidden, recorder.Code)
	}
}

func TestOriginAllowed(t *testing.T) {
	if !originAllowed([]string{"https://a.example"}, "") {
		t.Fatalf("expected requests without origin to be allowed")
	}
	if !originAllowed([]string{"*"}, "https://anything.example") {
		t.Fatalf("expected wildcard to allow any origin")
	}
	if !originAllowed([]string{"https://A.example"}, "https://a.example") {
		t.Fatalf("expected case-insensitive match")
	}
	if originAllowed([]string{"https://a.example"}, "https://b.example") {
		t.Fatalf("expected unrelated origin to be rejected")
	}
}
