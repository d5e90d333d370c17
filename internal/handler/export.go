package handler

import (
	"bytes"
	"encoding/csv"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/middleware"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/internal/repository"
)

type ExportHandler struct {
	repo *repository.InteractionRepo
}

func NewExportHandler(repo *repository.InteractionRepo) *ExportHandler {
	return &ExportHandler{repo: repo}
}

// Export handles GET /api/export/interactions?articleId=
// Returns the raw interaction ledger of one article as a CSV attachment. Device
// identifiers are included — they are pseudo-anonymous dedup keys, not PII —
// so editors can audit suspicious voting patterns.
func (h *ExportHandler) Export(c fiber.Ctx) error {
	articleID, errMsg := middleware.ValidateArticleID(c.Query("articleId"))
	if errMsg != "" {
		return middleware.ErrorResponse(c, fiber.StatusBadRequest, "INVALID_FIELD", errMsg)
	}

	interactions, err := h.repo.ListArticleInteractions(c.Context(), articleID)
	if err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to export interactions")
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	_ = w.Write([]string{"id", "article_id", "block_id", "engagement_type", "device_id", "payload", "created_at"})
	for _, in := range interactions {
		_ = w.Write([]string{
			strconv.FormatInt(in.ID, 10),
			in.ArticleID,
			in.BlockID,
			string(in.EngagementType),
			in.DeviceID,
			in.Data.Key(),
			in.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return middleware.ErrorResponse(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "Failed to encode export")
	}

	c.Set("Content-Type", "text/csv")
	c.Set("Content-Disposition", "attachment; filename=interactions-"+articleID+".csv")
	return c.Send(buf.Bytes())
}
