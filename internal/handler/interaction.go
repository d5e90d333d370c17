package handler

import (
	"errors"

	"github.com/gofiber/fiber/v3"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/middleware"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/model"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/service"
)

type InteractionHandler struct {
	submitSvc *service.SubmitService
	statsSvc  *service.StatsService
}

func NewInteractionHandler(submitSvc *service.SubmitService, statsSvc *service.StatsService) *InteractionHandler {
	return &InteractionHandler{submitSvc: submitSvc, statsSvc: statsSvc}
}

// Submit handles POST /api/interactions
func (h *InteractionHandler) Submit(c fiber.Ctx) error {
	var req model.SubmitRequest
	if err := c.Bind().JSON(&req); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_BODY", "Invalid request body")
	}

	articleID, errMsg := middleware.ValidateArticleID(req.ArticleID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	blockID, errMsg := middleware.ValidateBlockID(req.BlockID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	deviceID, errMsg := middleware.ValidateDeviceID(req.DeviceID)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	engagementType := model.EngagementType(req.EngagementType)
	if !model.IsVotable(engagementType) {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "CONFIGURATION_MISSING",
			"engagementType must be one of: poll, quiz, slider, comparison, reaction, counter, thermometer, ranking")
	}

	option, value, errMsg := middleware.ValidatePayload(req.SelectedOption, req.Value)
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	in := model.Interaction{
		ArticleID:      articleID,
		BlockID:        blockID,
		EngagementType: engagementType,
		DeviceID:       deviceID,
		Data:           model.InteractionData{SelectedOption: option, Value: value},
	}

	outcome, err := h.submitSvc.Submit(c.Context(), in)
	if err != nil {
		var unknown service.ErrUnknownType
		if errors.As(err, &unknown) {
			return middleware.ErrorResponse(c, fiber.StatusBadRequest, "CONFIGURATION_MISSING", err.Error())
		}
		// Ambiguous by design: the write may or may not have landed.
		Metrics.InteractionsTotal.WithLabelValues(string(engagementType), outcome.String()).Inc()
		return middleware.ErrorResponse(c, fiber.StatusServiceUnavailable, "TRANSIENT", "Failed to record interaction, please try again")
	}

	Metrics.InteractionsTotal.WithLabelValues(string(engagementType), outcome.String()).Inc()

	return c.JSON(model.SubmitResponse{
		Outcome: outcome.String(),
		Stats:   h.statsSvc.GetStats(c.Context(), articleID, blockID),
	})
}

// GetStats handles GET /api/interactions/stats?articleId=&blockId=
func (h *InteractionHandler) GetStats(c fiber.Ctx) error {
	articleID, errMsg := middleware.ValidateArticleID(c.Query("articleId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	blockID, errMsg := middleware.ValidateBlockID(c.Query("blockId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	// GetStats never fails; storage trouble degrades to zero stats.
	return c.JSON(h.statsSvc.GetStats(c.Context(), articleID, blockID))
}

// GetStatus handles GET /api/interactions/status?articleId=&blockId=&deviceId=
func (h *InteractionHandler) GetStatus(c fiber.Ctx) error {
	articleID, errMsg := middleware.ValidateArticleID(c.Query("articleId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	blockID, errMsg := middleware.ValidateBlockID(c.Query("blockId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}
	deviceID, errMsg := middleware.ValidateDeviceID(c.Query("deviceId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	return c.JSON(model.StatusResponse{
		HasVoted: h.statsSvc.HasVoted(c.Context(), articleID, blockID, deviceID),
	})
}
