package http

import (
	"context"
	"errors"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/smartcity/vehicle-counter/internal/domain"
	"github.com/smartcity/vehicle-counter/internal/service"
)

// LocationWriter stores the location id the counter should use next
type LocationWriter interface {
	Write(id string) error
}

// HealthChecker reports storage connectivity
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Handler contains all HTTP handlers
type Handler struct {
	engine   *service.Engine
	runner   *service.Runner
	location *service.LocationProvider
	writer   LocationWriter
	catalog  *service.Catalog
	store    HealthChecker
}

// NewHandler creates a new handler
func NewHandler(
	engine *service.Engine,
	runner *service.Runner,
	location *service.LocationProvider,
	writer LocationWriter,
	catalog *service.Catalog,
	store HealthChecker,
) *Handler {
	return &Handler{
		engine:   engine,
		runner:   runner,
		location: location,
		writer:   writer,
		catalog:  catalog,
		store:    store,
	}
}

// HealthCheck returns service health status
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	status := "ok"
	if h.store != nil {
		if err := h.store.Health(c.Context()); err != nil {
			log.Warnf("Health check: %v", err)
			status = "degraded"
		}
	}

	return c.JSON(fiber.Map{
		"status":  status,
		"service": "vehicle-counter",
		"version": "1.0.0",
	})
}

// GetCounters returns the running crossing totals
func (h *Handler) GetCounters(c *fiber.Ctx) error {
	counters := h.engine.Counters()

	return c.JSON(domain.CountersResponse{
		Data:       counters,
		Total:      counters.Total(),
		LocationID: h.location.Current(),
		Success:    true,
	})
}

// GetStats returns frame loop and engine state sizes
func (h *Handler) GetStats(c *fiber.Ctx) error {
	data := fiber.Map{
		"engine": h.engine.Stats(),
	}
	if h.runner != nil {
		data["runner"] = h.runner.Stats()
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// GetLocations returns the location catalog
func (h *Handler) GetLocations(c *fiber.Ctx) error {
	locations := h.catalog.All()

	return c.JSON(fiber.Map{
		"success": true,
		"data":    locations,
		"count":   len(locations),
	})
}

// GetLocation returns the location currently stamped on events
func (h *Handler) GetLocation(c *fiber.Ctx) error {
	id := h.location.Current()
	data := fiber.Map{
		"id":    id,
		"state": h.location.State().String(),
	}
	if l, err := h.catalog.Lookup(id); err == nil {
		data["name"] = l.Name
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    data,
	})
}

// SetLocation writes a new active location. The counter picks it up on its
// next location check.
func (h *Handler) SetLocation(c *fiber.Ctx) error {
	id, err := url.PathUnescape(c.Params("id"))
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid location id")
	}

	loc, err := h.catalog.Lookup(id)
	if errors.Is(err, domain.ErrUnknownLocation) {
		return fiber.NewError(fiber.StatusNotFound, "Location not found")
	}
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to look up location")
	}

	if err := h.writer.Write(loc.ID); err != nil {
		log.Errorf("Failed to write active location %q: %v", loc.ID, err)
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to update location")
	}
	log.Infof("Active location set to: %s", loc.ID)

	return c.JSON(fiber.Map{
		"success":           true,
		"data":              loc,
		"applies_within_ms": h.location.Interval().Milliseconds(),
	})
}
