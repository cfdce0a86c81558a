// Package health reports process liveness, readiness and uptime.
package health

import (
	"net/http"
	"time"

	"github.com/starford/mockbox/internal/api"
	"github.com/starford/mockbox/internal/models"
)

// Version is the service version reported by /health and the root endpoint.
// Override at build time with -ldflags "-X .../internal/health.Version=x.y.z".
var Version = "1.0.0"

// Status is the fixed-shape health record.
type Status struct {
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
	Uptime    float64 `json:"uptime"`
	Version   string  `json:"version"`
}

// Checker builds health records relative to its start time.
type Checker struct {
	started time.Time
	now     func() time.Time
	ready   func() bool
}

// NewChecker returns a Checker started now. ready reports whether the
// service can take traffic; nil means always ready.
func NewChecker(ready func() bool) *Checker {
	return newChecker(time.Now, ready)
}

func newChecker(now func() time.Time, ready func() bool) *Checker {
	if ready == nil {
		ready = func() bool { return true }
	}
	return &Checker{started: now(), now: now, ready: ready}
}

// Status returns the current health record. It always succeeds.
func (c *Checker) Status() Status {
	now := c.now()
	return Status{
		Status:    "ok",
		Timestamp: models.FormatTime(now),
		Uptime:    now.Sub(c.started).Seconds(),
		Version:   Version,
	}
}

// Handle serves GET /health.
func (c *Checker) Handle(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, http.StatusOK, c.Status())
}

// Live serves GET /health/live.
func (c *Checker) Live(w http.ResponseWriter, _ *http.Request) {
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready serves GET /health/ready.
func (c *Checker) Ready(w http.ResponseWriter, _ *http.Request) {
	if !c.ready() {
		api.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	api.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
