// Package health reports whether the storefront can serve traffic.
//
// Each dependency is a named Check. A failing critical check (the database)
// turns the response into a 503; a failing advisory check (a shared cache)
// only marks the service degraded, since requests still succeed without it.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/dalemusser/storefront/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Check probes one dependency.
type Check struct {
	Name     string
	Critical bool
	Probe    func(ctx context.Context) error
}

// MongoCheck pings the primary.
func MongoCheck(client *mongo.Client) Check {
	return Check{
		Name:     "database",
		Critical: true,
		Probe: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
	}
}

type Handler struct {
	Checks   []Check
	Payments string // configured gateway name, "none" when disabled
	Log      *zap.Logger
	started  time.Time
}

func NewHandler(payments string, logger *zap.Logger, checks ...Check) *Handler {
	return &Handler{
		Checks:   checks,
		Payments: payments,
		Log:      logger,
		started:  time.Now(),
	}
}

type report struct {
	Status   string            `json:"status"` // ok | degraded | error
	Payments string            `json:"payments,omitempty"`
	Uptime   string            `json:"uptime"`
	Checks   map[string]string `json:"checks,omitempty"` // name -> "ok" or the failure
}

// ServeReady handles GET /health. It runs every check under one ping timeout.
func (h *Handler) ServeReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	rep := report{
		Status:   "ok",
		Payments: h.Payments,
		Uptime:   time.Since(h.started).Truncate(time.Second).String(),
		Checks:   make(map[string]string, len(h.Checks)),
	}
	code := http.StatusOK
	for _, c := range h.Checks {
		err := c.Probe(ctx)
		if err == nil {
			rep.Checks[c.Name] = "ok"
			continue
		}
		rep.Checks[c.Name] = err.Error()
		if c.Critical {
			h.Log.Error("health check failed", zap.String("check", c.Name), zap.Error(err))
			rep.Status = "error"
			code = http.StatusServiceUnavailable
		} else {
			h.Log.Warn("health check degraded", zap.String("check", c.Name), zap.Error(err))
			if rep.Status == "ok" {
				rep.Status = "degraded"
			}
		}
	}
	writeJSON(w, code, rep)
}

// ServeLive handles GET /health/live: the process is up, dependencies aside.
func (h *Handler) ServeLive(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{
		Status: "ok",
		Uptime: time.Since(h.started).Truncate(time.Second).String(),
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
