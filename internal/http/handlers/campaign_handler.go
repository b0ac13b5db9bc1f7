package handlers

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/topicrally/backend/internal/http/dto"
	"github.com/topicrally/backend/internal/repositories"
	"github.com/topicrally/backend/internal/services"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
	campaignRepo    *repositories.CampaignRepo
	messageRepo     *repositories.TopicMessageRepo
	log             *zap.Logger
}

func NewCampaignHandler(
	campaignService *services.CampaignService,
	campaignRepo *repositories.CampaignRepo,
	messageRepo *repositories.TopicMessageRepo,
	log *zap.Logger,
) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
		campaignRepo:    campaignRepo,
		messageRepo:     messageRepo,
		log:             log,
	}
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "invalid request"})
	}

	if len(req.Message) == 0 || req.Signature == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Error: "message and signature are required"})
	}

	campaign, err := h.campaignService.VerifyAndCreate(c.Context(), req.Message, req.Signature)
	if err != nil {
		if campaign != nil {
			// Campaign persisted but a follow-up step degraded; surface the row.
			h.log.Warn("campaign created with degraded setup", zap.String("topic_id", campaign.TopicID), zap.Error(err))
			return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.CampaignResponse{
				Campaign: campaign,
				Status:   campaign.StatusAt(time.Now().UTC()),
			}})
		}
		return writeError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(dto.SuccessResponse{OK: true, Data: dto.CampaignResponse{
		Campaign: campaign,
		Status:   campaign.StatusAt(time.Now().UTC()),
	}})
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	topicID := c.Params("topic_id")

	campaign, err := h.campaignRepo.GetByTopicID(c.Context(), topicID)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(dto.SuccessResponse{OK: true, Data: dto.CampaignResponse{
		Campaign: campaign,
		Status:   campaign.StatusAt(time.Now().UTC()),
	}})
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	var filter repositories.CampaignFilter
	if v := c.Query("account_id"); v != "" {
		filter.AccountID = &v
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}
	if v := c.Query("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}

	campaigns, err := h.campaignRepo.List(c.Context(), filter)
	if err != nil {
		h.log.Error("failed to list campaigns", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}

	now := time.Now().UTC()
	out := make([]dto.CampaignResponse, 0, len(campaigns))
	for i := range campaigns {
		out = append(out, dto.CampaignResponse{
			Campaign: &campaigns[i],
			Status:   campaigns[i].StatusAt(now),
		})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: out})
}

// ListMessages returns the persisted broadcast history for a campaign topic,
// newest first.
func (h *CampaignHandler) ListMessages(c *fiber.Ctx) error {
	topicID := c.Params("topic_id")

	limit := 0
	if v := c.Query("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	messages, err := h.messageRepo.ListByTopic(c.Context(), topicID, limit)
	if err != nil {
		h.log.Error("failed to list topic messages", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Error: "internal server error"})
	}
	return c.JSON(dto.SuccessResponse{OK: true, Data: messages})
}
