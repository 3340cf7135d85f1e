package apierr_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/storefront/internal/app/system/apierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestHelpers(t *testing.T) {
	tests := []struct {
		name   string
		fn     func(w http.ResponseWriter)
		status int
		msg    string
	}{
		{"bad request", func(w http.ResponseWriter) { apierr.BadRequest(w, "quantity must be at least 1") }, 400, "quantity must be at least 1"},
		{"unauthorized default", func(w http.ResponseWriter) { apierr.Unauthorized(w, "") }, 401, "unauthorized"},
		{"not found default", func(w http.ResponseWriter) { apierr.NotFound(w, "") }, 404, "not found"},
		{"not found custom", func(w http.ResponseWriter) { apierr.NotFound(w, "product not found") }, 404, "product not found"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tc.fn(rec)
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d", rec.Code, tc.status)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("Content-Type = %q", ct)
			}
			if got := decode(t, rec)["error"]; got != tc.msg {
				t.Errorf("error = %v, want %q", got, tc.msg)
			}
		})
	}
}

func TestInvalid_IncludesFields(t *testing.T) {
	rec := httptest.NewRecorder()
	apierr.Invalid(rec, map[string]string{"email": "email is required"})

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	fields, _ := decode(t, rec)["fields"].(map[string]any)
	if fields["email"] != "email is required" {
		t.Errorf("fields = %v", fields)
	}
}

func TestLogServerError_HidesDetails(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	el := apierr.NewErrorLogger(zap.New(core))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/orders", nil)
	el.LogServerError(rec, req, "find orders failed", errors.New("connection reset"), "")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d", rec.Code)
	}
	if got := decode(t, rec)["error"]; got != "internal server error" {
		t.Errorf("client saw %v", got)
	}
	if logs.Len() != 1 || logs.All()[0].Message != "find orders failed" {
		t.Errorf("expected one logged entry, got %v", logs.All())
	}
}
