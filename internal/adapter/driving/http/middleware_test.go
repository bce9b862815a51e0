package httphandler

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecoveryMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))

	panicky := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil wizard")
	})
	h := requestIDMiddleware(loggingMiddleware(logger, recoveryMiddleware(logger, panicky)))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/wizards/x", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, rec.Body.String())
	assert.Contains(t, logs.String(), "panic recovered")
	assert.Contains(t, logs.String(), "status=500")
	assert.Contains(t, logs.String(), "request_id="+rec.Header().Get(requestIDHeader))
}

func TestRequestIDMiddleware_RejectsOversizedID(t *testing.T) {
	h := requestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, string(bytes.Repeat([]byte("x"), 200)))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Len(t, rec.Header().Get(requestIDHeader), 36)
}
