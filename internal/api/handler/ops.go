// Package handler provides the HTTP handlers of the dosecast API.
package handler

import (
	"net/http"
	"sort"
	"time"

	"github.com/breatheroute/dosecast/internal/api/models"
	"github.com/breatheroute/dosecast/internal/api/response"
	"github.com/breatheroute/dosecast/internal/forecast"
	"github.com/breatheroute/dosecast/internal/resilience"
)

// OpsHandler serves liveness, readiness and status.
type OpsHandler struct {
	version   string
	buildTime string
	forecast  *forecast.Service
	registry  *resilience.Registry
}

// NewOpsHandler creates an OpsHandler. registry may be nil when grids are
// read from local files.
func NewOpsHandler(version, buildTime string, svc *forecast.Service, registry *resilience.Registry) *OpsHandler {
	return &OpsHandler{
		version:   version,
		buildTime: buildTime,
		forecast:  svc,
		registry:  registry,
	}
}

// HealthCheck handles GET /v1/ops/health.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	})
}

// ReadinessCheck handles GET /v1/ops/ready. A cold cache is degraded but
// ready; it is not ready when nothing is cached and a remote source's
// circuit is open.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	status := h.status()
	code := http.StatusOK
	if status.Status == models.HealthStatusFail {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, models.Health{
		Status: status.Status,
		Time:   status.Time,
		Details: map[string]interface{}{
			"cachedLeadTimes": len(status.Cache.LeadTimes),
			"expired":         len(status.Cache.Expired),
		},
	})
}

// SystemStatus handles GET /v1/ops/status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, h.status())
}

func (h *OpsHandler) status() models.SystemStatus {
	out := models.SystemStatus{
		Status:  models.HealthStatusOK,
		Time:    models.Timestamp(time.Now()),
		Sources: []models.SourceStatus{},
	}
	if h.forecast == nil {
		out.Status = models.HealthStatusFail
		return out
	}

	cache := h.forecast.CacheStatus()
	sort.Ints(cache.LeadTimes)
	sort.Ints(cache.Expired)
	out.Cache = models.CacheStatus{
		Source:    cache.Source,
		LeadTimes: cache.LeadTimes,
		Expired:   cache.Expired,
	}
	if cache.LeadTimes == nil {
		out.Cache.LeadTimes = []int{}
	}
	if !cache.OldestAt.IsZero() {
		ts := models.Timestamp(cache.OldestAt)
		out.Cache.OldestAt = &ts
	}

	unhealthy := false
	if h.registry != nil {
		for _, src := range h.registry.All() {
			s := sourceStatus(src)
			if s.Status == models.HealthStatusFail {
				unhealthy = true
			}
			out.Sources = append(out.Sources, s)
		}
	}

	switch {
	case !cache.HasData() && unhealthy:
		out.Status = models.HealthStatusFail
	case !cache.HasData(), len(cache.Expired) > 0, unhealthy:
		out.Status = models.HealthStatusDegraded
	}
	return out
}

func sourceStatus(h resilience.Health) models.SourceStatus {
	s := models.SourceStatus{
		Name:         h.Name,
		CircuitState: h.State.String(),
	}
	switch h.Status() {
	case "healthy":
		s.Status = models.HealthStatusOK
	case "degraded":
		s.Status = models.HealthStatusDegraded
	default:
		s.Status = models.HealthStatusFail
	}
	if h.LastSuccessAt != nil {
		ts := models.Timestamp(*h.LastSuccessAt)
		s.LastSuccessAt = &ts
	}
	if h.LastFailureAt != nil {
		ts := models.Timestamp(*h.LastFailureAt)
		s.LastFailureAt = &ts
	}
	if h.LastError != "" {
		msg := h.LastError
		s.Message = &msg
	}
	return s
}
