package jsonutil

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type payload struct {
	Name string `json:"name"`
	Qty  int    `json:"qty"`
}

func TestDecode(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"ok", `{"name":"tee","qty":2}`, ""},
		{"empty", ``, "request body is empty"},
		{"syntax", `{"name":}`, "malformed JSON"},
		{"wrong type", `{"qty":"two"}`, `field "qty" has the wrong type`},
		{"unknown field", `{"nme":"x"}`, `unknown field "nme"`},
		{"two values", `{"name":"a"}{"name":"b"}`, "single JSON value"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/", strings.NewReader(tc.body))
			var p payload
			err := Decode(httptest.NewRecorder(), req, &p)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if p.Name != "tee" || p.Qty != 2 {
					t.Errorf("decoded %+v", p)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	rec := httptest.NewRecorder()
	Created(rec, payload{Name: "tee", Qty: 1})

	if rec.Code != http.StatusCreated {
		t.Errorf("status = %d", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"name":"tee","qty":1}` {
		t.Errorf("body = %s", got)
	}
}
