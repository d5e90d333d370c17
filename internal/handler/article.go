package handler

import (
	"github.com/gofiber/fiber/v3"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/middleware"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/model"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/service"
)

type ArticleHandler struct {
	statsSvc *service.StatsService
}

func NewArticleHandler(statsSvc *service.StatsService) *ArticleHandler {
	return &ArticleHandler{statsSvc: statsSvc}
}

// GetStats handles GET /api/articles/:articleId/stats
// Returns the stats of every engagement block in the article, so a page
// render needs a single round trip instead of one per block.
func (h *ArticleHandler) GetStats(c fiber.Ctx) error {
	articleID, errMsg := middleware.ValidateArticleID(c.Params("articleId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	blocks, err := h.statsSvc.GetArticleStats(c.Context(), articleID)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to fetch article statistics")
	}
	if blocks == nil {
		blocks = map[string]model.InteractionStats{}
	}

	return c.JSON(model.ArticleStatsResponse{
		ArticleID: articleID,
		Blocks:    blocks,
	})
}
