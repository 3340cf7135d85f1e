// Package apierr writes JSON error bodies of the form {"error": "..."}.
package apierr

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type body struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// Write sends status with {"error": msg}.
func Write(w http.ResponseWriter, status int, msg string) {
	write(w, status, body{Error: msg})
}

func write(w http.ResponseWriter, status int, b body) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(b)
}

// BadRequest is a 400.
func BadRequest(w http.ResponseWriter, msg string) { Write(w, http.StatusBadRequest, msg) }

// Invalid is a 400 carrying per-field messages.
func Invalid(w http.ResponseWriter, fields map[string]string) {
	write(w, http.StatusBadRequest, body{Error: "validation failed", Fields: fields})
}

// Unauthorized is a 401. It covers both "not signed in" and "not allowed".
func Unauthorized(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "unauthorized"
	}
	Write(w, http.StatusUnauthorized, msg)
}

// NotFound is a 404.
func NotFound(w http.ResponseWriter, msg string) {
	if msg == "" {
		msg = "not found"
	}
	Write(w, http.StatusNotFound, msg)
}

// ErrorLogger logs server-side failures and hides their details from clients.
type ErrorLogger struct {
	Log *zap.Logger
}

// NewErrorLogger wraps a zap logger.
func NewErrorLogger(log *zap.Logger) *ErrorLogger {
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorLogger{Log: log}
}

// LogServerError logs msg with err and the request, then writes a 500 with
// userMsg (or a generic message).
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.Log.Error(msg,
		zap.Error(err),
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())))
	if userMsg == "" {
		userMsg = "internal server error"
	}
	Write(w, http.StatusInternalServerError, userMsg)
}
