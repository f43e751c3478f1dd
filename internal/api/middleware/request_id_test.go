package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/breatheroute/dosecast/internal/api/middleware"
)

func serveRequestID(t *testing.T, incoming string) (contextID, headerID string) {
	t.Helper()
	handler := middleware.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = middleware.GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	if incoming != "" {
		req.Header.Set(middleware.RequestIDHeader, incoming)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return contextID, rec.Header().Get(middleware.RequestIDHeader)
}

func TestRequestID_GeneratesNewID(t *testing.T) {
	ctxID, headerID := serveRequestID(t, "")

	assert.True(t, strings.HasPrefix(ctxID, "req_"))
	assert.Equal(t, ctxID, headerID)
}

func TestRequestID_PreservesClientID(t *testing.T) {
	ctxID, headerID := serveRequestID(t, "dashboard-7f3a")

	assert.Equal(t, "dashboard-7f3a", ctxID)
	assert.Equal(t, "dashboard-7f3a", headerID)
}

func TestRequestID_ReplacesMalformedID(t *testing.T) {
	for _, bad := range []string{"has space", strings.Repeat("x", 200), "tab\there"} {
		ctxID, _ := serveRequestID(t, bad)
		assert.True(t, strings.HasPrefix(ctxID, "req_"), "client id %q should be replaced", bad)
	}
}

func TestRequestID_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, _ := serveRequestID(t, "")
		assert.False(t, seen[id], "duplicate request id %s", id)
		seen[id] = true
	}
}

func TestGetRequestID_MissingContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetRequestID(req.Context()))
}
