package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/fatura-itau/internal/logger"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestAPIKey(t *testing.T) {
	h := APIKey("s3cret", "/health")(http.HandlerFunc(ok))

	tests := []struct {
		name   string
		path   string
		header map[string]string
		want   int
	}{
		{name: "missing", path: "/api/jobs", want: http.StatusUnauthorized},
		{name: "wrong", path: "/api/jobs", header: map[string]string{"X-API-Key": "nope"}, want: http.StatusUnauthorized},
		{name: "header", path: "/api/jobs", header: map[string]string{"X-API-Key": "s3cret"}, want: http.StatusOK},
		{name: "bearer", path: "/api/jobs", header: map[string]string{"Authorization": "Bearer s3cret"}, want: http.StatusOK},
		{name: "open path", path: "/health", want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			for k, v := range tt.header {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestAPIKey_Disabled(t *testing.T) {
	rec := httptest.NewRecorder()
	APIKey("")(http.HandlerFunc(ok)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/jobs", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequestIDAndLogger(t *testing.T) {
	buf := &bytes.Buffer{}
	log := zerolog.New(buf)

	var seen string
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		log := logger.FromContext(r.Context())
		log.Info().Msg("inside")
		w.WriteHeader(http.StatusTeapot)
	})
	h := RequestID(Logger(log)(inner))

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", seen)
	assert.Equal(t, "req-42", rec.Header().Get(RequestIDHeader))
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, `"request_id":"req-42"`))
	assert.Contains(t, out, `"status":418`)
}

func TestRequestID_Generated(t *testing.T) {
	rec := httptest.NewRecorder()
	RequestID(http.HandlerFunc(ok)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)
}

func TestRecovery(t *testing.T) {
	h := Recovery(zerolog.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	require.NotPanics(t, func() { h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil)) })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	CORS(http.HandlerFunc(ok)).ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/api/convert", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
