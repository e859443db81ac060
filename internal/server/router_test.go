package server

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sevigo/code-pulse/internal/config"
	"github.com/sevigo/code-pulse/internal/coord/coordtest"
	"github.com/sevigo/code-pulse/internal/queue"
)

func TestRouter(t *testing.T) {
	store, _ := coordtest.NewStore(t)
	cfg := &config.Config{GitHub: config.GitHubConfig{WebhookSecret: "x"}}
	r := NewRouter(cfg, queue.NewSet(store), slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		method, path string
		wantCode     int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodPost, "/api/v1/webhook/github", http.StatusUnauthorized},
		{http.MethodGet, "/api/v1/webhook/github", http.StatusMethodNotAllowed},
		{http.MethodGet, "/nope", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}
