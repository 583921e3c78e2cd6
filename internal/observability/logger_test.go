package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestWithFieldsAccumulates(t *testing.T) {
	ctx := context.Background()
	ctx = WithFields(ctx, Field{"call_sid", "CA123"})
	ctx = WithFields(ctx, Field{"state", "listening"})

	fields := getObservabilityFields(ctx)
	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %d", len(fields))
	}
	if fields[0].Key != "call_sid" || fields[0].Value != "CA123" {
		t.Errorf("unexpected first field: %+v", fields[0])
	}
	if fields[1].Key != "state" || fields[1].Value != "listening" {
		t.Errorf("unexpected second field: %+v", fields[1])
	}
}

func TestMergeFieldsDeduplicates(t *testing.T) {
	ctx := WithFields(context.Background(), Field{"call_sid", "CA123"})

	merged := mergeFields(ctx, []MetricField{
		{"call_sid", "CA456"},
		{"status", 200},
	})

	if len(merged) != 2 {
		t.Fatalf("expected 2 merged fields, got %d", len(merged))
	}
}

func TestMiddlewareSetsRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := NewLogger()

	router := gin.New()
	router.Use(Middleware(logger))
	router.GET("/voice", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/voice", nil)
	router.ServeHTTP(w, req)

	if w.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestMiddlewarePreservesIncomingRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logger := NewLogger()

	router := gin.New()
	router.Use(Middleware(logger))
	router.GET("/voice", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/voice", nil)
	req.Header.Set("X-Request-ID", "req-existing")
	router.ServeHTTP(w, req)

	if got := w.Header().Get("X-Request-ID"); got != "req-existing" {
		t.Errorf("expected req-existing, got %q", got)
	}
}
