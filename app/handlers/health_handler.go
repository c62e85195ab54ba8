package handlers

import (
	"context"
	"time"

	"github.com/amirphl/business-registry/utils"
	"github.com/gofiber/fiber/v3"
)

const probeTimeout = 3 * time.Second

// Probe reports whether one dependency is reachable
type Probe func(ctx context.Context) error

// HealthHandler serves liveness and dependency readiness
type HealthHandler struct {
	version string
	probes  map[string]Probe
}

// NewHealthHandler creates a health handler. Nil probes are skipped.
func NewHealthHandler(version string, probes map[string]Probe) *HealthHandler {
	active := make(map[string]Probe, len(probes))
	for name, p := range probes {
		if p != nil {
			active[name] = p
		}
	}
	return &HealthHandler{version: version, probes: active}
}

// Check returns 503 when any dependency probe fails
// @Summary Health check
// @Tags Health
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Failure 503 {object} dto.APIResponse
// @Router /api/v1/health [get]
func (h *HealthHandler) Check(c fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), probeTimeout)
	defer cancel()

	checks := make(fiber.Map, len(h.probes))
	healthy := true
	for name, probe := range h.probes {
		if err := probe(ctx); err != nil {
			checks[name] = err.Error()
			healthy = false
			continue
		}
		checks[name] = "ok"
	}

	data := fiber.Map{
		"status":    "ok",
		"timestamp": utils.UTCNow().Unix(),
		"version":   h.version,
		"service":   "business-registry",
		"checks":    checks,
	}
	if !healthy {
		data["status"] = "degraded"
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"success": false,
			"message": "Service is degraded",
			"data":    data,
		})
	}
	return SuccessResponse(c, fiber.StatusOK, "Service is healthy", data)
}
