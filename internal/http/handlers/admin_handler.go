package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/topicrally/backend/internal/http/dto"
	"github.com/topicrally/backend/internal/repositories"
	"github.com/topicrally/backend/internal/services"
)

type AdminHandler struct {
	sweeper   *services.Sweeper
	auditRepo *repositories.AuditRepo
	log       *zap.Logger
}

func NewAdminHandler(sweeper *services.Sweeper, auditRepo *repositories.AuditRepo, log *zap.Logger) *AdminHandler {
	return &AdminHandler{sweeper: sweeper, auditRepo: auditRepo, log: log}
}

// TriggerSweep runs one reconciliation pass over all due campaigns.
func (h *AdminHandler) TriggerSweep(c *fiber.Ctx) error {
	if err := h.sweeper.RunNow(c.Context()); err != nil {
		h.log.Error("manual sweep failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "sweep failed"})
	}
	return c.JSON(dto.SweepResponse{OK: true})
}

func (h *AdminHandler) ListAudit(c *fiber.Ctx) error {
	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	entries, err := h.auditRepo.ListRecent(c.Context(), limit)
	if err != nil {
		h.log.Error("failed to list audit log", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: entries})
}
