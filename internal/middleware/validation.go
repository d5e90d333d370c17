package middleware

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v3"
)

// Field length limits matching database schema constraints.
const (
	MaxArticleIDLen = 64  // interactions.article_id VARCHAR(64)
	MaxBlockIDLen   = 64  // interactions.block_id VARCHAR(64)
	MaxDeviceIDLen  = 64  // interactions.user_identifier VARCHAR(64)
	MaxPayloadLen   = 200 // option labels and scalar values inside interaction_data
)

var (
	// idRe matches article and block identifiers: UUIDs, slugs, and the
	// editor's "block-<timestamp>" IDs. Alphanumeric, dash, underscore.
	idRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	// deviceIDRe matches device identifiers produced by the identity
	// provider: lowercase hex digests.
	deviceIDRe = regexp.MustCompile(`^[0-9a-f]+$`)
)

// ErrorResponse is a helper that returns a standard API error response.
func ErrorResponse(c fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    code,
			"message": message,
		},
	})
}

// ValidateArticleID checks that an article ID is well-formed and within DB limits.
func ValidateArticleID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "articleId is required"
	}
	if len(id) > MaxArticleIDLen {
		return "", "articleId must be at most 64 characters"
	}
	if !idRe.MatchString(id) {
		return "", "articleId contains invalid characters"
	}
	return id, ""
}

// ValidateBlockID checks that a block ID is well-formed and within DB limits.
func ValidateBlockID(id string) (string, string) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", "blockId is required"
	}
	if len(id) > MaxBlockIDLen {
		return "", "blockId must be at most 64 characters"
	}
	if !idRe.MatchString(id) {
		return "", "blockId contains invalid characters"
	}
	return id, ""
}

// ValidateDeviceID checks that a device ID is a valid hex digest.
func ValidateDeviceID(id string) (string, string) {
	id = strings.TrimSpace(strings.ToLower(id))
	if id == "" {
		return "", "deviceId is required"
	}
	if len(id) > MaxDeviceIDLen {
		return "", "deviceId must be at most 64 characters"
	}
	if !deviceIDRe.MatchString(id) {
		return "", "deviceId must be a hexadecimal digest"
	}
	return id, ""
}

// ValidatePayload trims and bounds the interaction payload. Exactly one of
// selectedOption or value must be present.
func ValidatePayload(selectedOption, value string) (option, scalar, errMsg string) {
	option = strings.TrimSpace(selectedOption)
	scalar = strings.TrimSpace(value)
	if option == "" && scalar == "" {
		return "", "", "selectedOption or value is required"
	}
	if option != "" && scalar != "" {
		return "", "", "selectedOption and value are mutually exclusive"
	}
	if len(option) > MaxPayloadLen || len(scalar) > MaxPayloadLen {
		return "", "", "payload must be at most 200 characters"
	}
	return option, scalar, ""
}
