package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ignite/adreport-ingest/internal/pkg/httputil"
	"github.com/ignite/adreport-ingest/internal/storage"
)

// HealthStatus represents the overall health of the service.
type HealthStatus struct {
	Status  string                    `json:"status"` // "healthy", "degraded", "unhealthy"
	Version string                    `json:"version"`
	Uptime  string                    `json:"uptime"`
	Checks  map[string]ComponentCheck `json:"checks"`
}

// ComponentCheck represents the health of a single component.
type ComponentCheck struct {
	Status  string `json:"status"` // "up", "down", "degraded"
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthChecker probes the state backend. A nil KV reports "not configured".
type HealthChecker struct {
	kv        storage.KV
	startTime time.Time
}

func NewHealthChecker(kv storage.KV) *HealthChecker {
	return &HealthChecker{kv: kv, startTime: time.Now()}
}

const (
	healthVersion  = "1.0.0"
	healthProbeKey = "health:probe"
)

// HandleHealth always answers 200; the body carries the status.
//
//	GET /health
func (hc *HealthChecker) HandleHealth(w http.ResponseWriter, r *http.Request) {
	checks := map[string]ComponentCheck{"storage": hc.checkStorage(r.Context())}
	httputil.OK(w, HealthStatus{
		Status:  determineOverallStatus(checks),
		Version: healthVersion,
		Uptime:  formatUptime(time.Since(hc.startTime)),
		Checks:  checks,
	})
}

// checkStorage reads a probe key with a 3-second timeout. A missing key
// still proves the backend answered.
func (hc *HealthChecker) checkStorage(ctx context.Context) ComponentCheck {
	if hc.kv == nil {
		return ComponentCheck{Status: "down", Message: "not configured"}
	}

	probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	start := time.Now()
	_, err := hc.kv.Get(probeCtx, healthProbeKey)
	latency := time.Since(start)

	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return ComponentCheck{
			Status:  "down",
			Latency: latency.String(),
			Message: httputil.PublicMessage(err),
		}
	}

	status := "up"
	msg := "reachable"
	if latency > time.Second {
		status = "degraded"
		msg = fmt.Sprintf("slow response (%s)", latency)
	}
	return ComponentCheck{Status: status, Latency: latency.String(), Message: msg}
}

// determineOverallStatus: storage down is unhealthy, any degraded check
// is degraded.
func determineOverallStatus(checks map[string]ComponentCheck) string {
	if s, ok := checks["storage"]; ok && s.Status == "down" && s.Message != "not configured" {
		return "unhealthy"
	}
	for _, c := range checks {
		if c.Status == "degraded" {
			return "degraded"
		}
	}
	return "healthy"
}

func formatUptime(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	if minutes > 0 {
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	}
	return fmt.Sprintf("%ds", seconds)
}
