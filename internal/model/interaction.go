package model

import "time"

// Interaction is one recorded reader engagement event. Rows are append-only;
// the ledger never updates or deletes them.
type Interaction struct {
	ID             int64           `json:"id"`
	ArticleID      string          `json:"articleId"`
	BlockID        string          `json:"blockId"`
	EngagementType EngagementType  `json:"engagementType"`
	DeviceID       string          `json:"-"`
	Data           InteractionData `json:"data"`
	CreatedAt      time.Time       `json:"createdAt"`
}

// InteractionData is the type-specific payload. Option types (poll, quiz,
// comparison, reaction, ranking) set SelectedOption; scalar and tick types
// (slider, thermometer, counter) set Value.
type InteractionData struct {
	Value          string `json:"value,omitempty"`
	SelectedOption string `json:"selectedOption,omitempty"`
}

// Key returns the value interactions are aggregated under.
func (d InteractionData) Key() string {
	if d.SelectedOption != "" {
		return d.SelectedOption
	}
	return d.Value
}

// InteractionStats is the derived distribution for one block. The invariant
// total == sum(distribution values) holds on every read path.
type InteractionStats struct {
	Total        int64            `json:"total"`
	Distribution map[string]int64 `json:"distribution"`
}

// ZeroStats returns an empty, non-nil stats value. Read paths degrade to
// this instead of returning errors.
func ZeroStats() InteractionStats {
	return InteractionStats{Distribution: map[string]int64{}}
}

// SubmitRequest is the API request body for recording an interaction.
type SubmitRequest struct {
	ArticleID      string `json:"articleId"`
	BlockID        string `json:"blockId"`
	EngagementType string `json:"engagementType"`
	DeviceID       string `json:"deviceId"`
	Value          string `json:"value,omitempty"`
	SelectedOption string `json:"selectedOption,omitempty"`
}

// SubmitResponse is the API response after a submission attempt. Outcome is
// "accepted" or "duplicate"; transient failures are reported via the error
// envelope instead.
type SubmitResponse struct {
	Outcome string           `json:"outcome"`
	Stats   InteractionStats `json:"stats"`
}

// StatusResponse reports whether a device already interacted with a block.
type StatusResponse struct {
	HasVoted bool `json:"hasVoted"`
}

// ArticleStatsResponse maps block IDs to their current stats.
type ArticleStatsResponse struct {
	ArticleID string                      `json:"articleId"`
	Blocks    map[string]InteractionStats `json:"blocks"`
}
