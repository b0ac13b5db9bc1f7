package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/topicrally/backend/internal/http/dto"
	"github.com/topicrally/backend/internal/services"
)

type ListenerHandler struct {
	listeners *services.ListenerService
	log       *zap.Logger
}

func NewListenerHandler(listeners *services.ListenerService, log *zap.Logger) *ListenerHandler {
	return &ListenerHandler{listeners: listeners, log: log}
}

func (h *ListenerHandler) SetupListener(c *fiber.Ctx) error {
	var req dto.SetupListenerRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}
	if req.TopicID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "topic_id is required"})
	}

	if err := h.listeners.Setup(c.Context(), req.TopicID); err != nil {
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.ListenerStatusResponse{
		TopicID:  req.TopicID,
		IsActive: true,
	}})
}

func (h *ListenerHandler) GetListenerStatus(c *fiber.Ctx) error {
	topicID := c.Params("topic_id")

	listener, err := h.listeners.Status(c.Context(), topicID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.ListenerStatusResponse{
		TopicID:  listener.TopicID,
		IsActive: listener.IsActive,
	}})
}
