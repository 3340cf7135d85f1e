package errors_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	uierrors "github.com/dalemusser/storefront/internal/app/features/errors"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func TestFallbacks(t *testing.T) {
	h := uierrors.NewHandler(zap.NewNop())
	r := chi.NewRouter()
	r.NotFound(h.NotFound)
	r.MethodNotAllowed(h.MethodNotAllowed)
	r.Get("/api/things", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		method, path string
		want         int
	}{
		{"GET", "/api/nothing", http.StatusNotFound},
		{"DELETE", "/api/things", http.StatusMethodNotAllowed},
		{"GET", "/api/things", http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s: got %d, want %d", tt.method, tt.path, rec.Code, tt.want)
			continue
		}
		if tt.want != http.StatusOK {
			var body struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil || body.Error == "" {
				t.Errorf("%s %s: expected JSON error body, got %q", tt.method, tt.path, rec.Body.String())
			}
		}
	}
}
