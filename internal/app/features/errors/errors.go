// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"go.uber.org/zap"
)

// Handler answers requests no route matched.
type Handler struct {
	Log *zap.Logger
}

// NewHandler constructs an errors Handler.
func NewHandler(logger *zap.Logger) *Handler {
	return &Handler{Log: logger}
}

// NotFound is the router's fallback for unknown paths.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.Log.Debug("no route", zap.String("method", r.Method), zap.String("path", r.URL.Path))
	apierr.NotFound(w, "no such endpoint")
}

// MethodNotAllowed is the router's fallback when the path exists but the
// method does not.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	apierr.Write(w, http.StatusMethodNotAllowed, r.Method+" is not allowed on "+r.URL.Path)
}
