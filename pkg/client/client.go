// Package client is a small Go consumer of the engagement API, used by
// kiosk builds and integration tooling. It wires the device identity
// provider and the reconcile state machine to the HTTP surface.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/pkg/identity"
	"github.com/cordeirinhocaleb-stack/lagoaformosanomomento-sub002/engage-go/pkg/reconcile"
)

// Client calls the engagement API on behalf of one device.
type Client struct {
	baseURL  string
	http     *http.Client
	provider *identity.Provider
}

func New(baseURL string, provider *identity.Provider) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		provider: provider,
	}
}

type submitRequest struct {
	ArticleID      string `json:"articleId"`
	BlockID        string `json:"blockId"`
	EngagementType string `json:"engagementType"`
	DeviceID       string `json:"deviceId"`
	Value          string `json:"value,omitempty"`
	SelectedOption string `json:"selectedOption,omitempty"`
}

type submitResponse struct {
	Outcome string `json:"outcome"`
}

type statsResponse struct {
	Total        int64            `json:"total"`
	Distribution map[string]int64 `json:"distribution"`
}

type statusResponse struct {
	HasVoted bool `json:"hasVoted"`
}

// Submit posts one interaction and maps the server's answer onto the
// machine's outcome taxonomy. Network and 5xx failures are transient.
func (c *Client) Submit(ctx context.Context, articleID, blockID, engagementType, payload string, scalar bool) (reconcile.Outcome, error) {
	req := submitRequest{
		ArticleID:      articleID,
		BlockID:        blockID,
		EngagementType: engagementType,
		DeviceID:       c.provider.DeviceID(),
	}
	if scalar {
		req.Value = payload
	} else {
		req.SelectedOption = payload
	}

	body, err := json.Marshal(req)
	if err != nil {
		return reconcile.TransientFailure, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/interactions", bytes.NewReader(body))
	if err != nil {
		return reconcile.TransientFailure, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Device-ID", req.DeviceID)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return reconcile.TransientFailure, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return reconcile.TransientFailure, fmt.Errorf("submit: server returned %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return reconcile.TransientFailure, fmt.Errorf("submit: rejected with %d", resp.StatusCode)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return reconcile.TransientFailure, err
	}
	if out.Outcome == "duplicate" {
		return reconcile.Duplicate, nil
	}
	return reconcile.Accepted, nil
}

// Stats fetches the authoritative distribution for a block.
func (c *Client) Stats(ctx context.Context, articleID, blockID string) (reconcile.Stats, error) {
	u := fmt.Sprintf("%s/api/interactions/stats?articleId=%s&blockId=%s",
		c.baseURL, url.QueryEscape(articleID), url.QueryEscape(blockID))

	var out statsResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return reconcile.Stats{}, err
	}
	if out.Distribution == nil {
		out.Distribution = map[string]int64{}
	}
	return reconcile.Stats{Total: out.Total, Distribution: out.Distribution}, nil
}

// HasVoted checks whether this device already interacted with a block.
func (c *Client) HasVoted(ctx context.Context, articleID, blockID string) (bool, error) {
	u := fmt.Sprintf("%s/api/interactions/status?articleId=%s&blockId=%s&deviceId=%s",
		c.baseURL, url.QueryEscape(articleID), url.QueryEscape(blockID), url.QueryEscape(c.provider.DeviceID()))

	var out statusResponse
	if err := c.getJSON(ctx, u, &out); err != nil {
		return false, err
	}
	return out.HasVoted, nil
}

// NewMachine builds a reconcile.Machine bound to one block through this
// client. scalar selects the value payload field (slider, thermometer,
// counter) over selectedOption.
func (c *Client) NewMachine(articleID, blockID, engagementType string, repeatable, scalar bool, onNotice func(string)) *reconcile.Machine {
	return reconcile.NewMachine(reconcile.Config{
		Repeatable: repeatable,
		OnNotice:   onNotice,
		Submit: func(ctx context.Context, payload string) (reconcile.Outcome, error) {
			return c.Submit(ctx, articleID, blockID, engagementType, payload, scalar)
		},
		Fetch: func(ctx context.Context) (reconcile.Stats, error) {
			return c.Stats(ctx, articleID, blockID)
		},
		CheckVoted: func(ctx context.Context) (bool, error) {
			return c.HasVoted(ctx, articleID, blockID)
		},
	})
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("get %s: status %d", u, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
