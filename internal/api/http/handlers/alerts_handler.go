package handlers

import (
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/fieldops/workorder-service/internal/api/dto"
	"github.com/fieldops/workorder-service/internal/persistence"
	"github.com/fieldops/workorder-service/internal/service"
)

// AlertsHandler exposes the digest preview and manual alert runs.
type AlertsHandler struct {
	digests *service.DigestService
	alerts  *service.AlertService
	redis   *persistence.Redis
}

// NewAlertsHandler constructs handler.
func NewAlertsHandler(digests *service.DigestService, alerts *service.AlertService, redis *persistence.Redis) *AlertsHandler {
	return &AlertsHandler{digests: digests, alerts: alerts, redis: redis}
}

// Digest GET /alerts/digest.
func (h *AlertsHandler) Digest(c *fiber.Ctx) error {
	digest, err := h.digests.BuildDigest(c.UserContext(), time.Now())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromDigest(digest)})
}

// Run POST /alerts/run?dry_run=true.
func (h *AlertsHandler) Run(c *fiber.Ctx) error {
	dryRun := c.QueryBool("dry_run", false)

	result, err := h.alerts.ExecuteWeeklyAlerts(c.UserContext(), dryRun)
	if err != nil {
		return err
	}
	if !dryRun {
		if payload, marshalErr := json.Marshal(result); marshalErr == nil {
			_ = h.redis.StoreLastAlertRun(c.UserContext(), payload)
		}
	}
	return c.JSON(fiber.Map{"data": result})
}

// LastRun GET /alerts/last-run.
func (h *AlertsHandler) LastRun(c *fiber.Ctx) error {
	payload, err := h.redis.LastAlertRun(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": fiber.Map{
			"code":    "NOT_FOUND",
			"message": "no recorded alert run",
		}})
	}
	c.Set("Content-Type", "application/json")
	return c.Send([]byte(`{"data":` + string(payload) + `}`))
}
