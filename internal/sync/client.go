package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ourday-app/ourday/internal/model"
)

// ErrUnavailable marks the permanent "store not configured" condition
// (HTTP 503 from the state endpoint). The engine degrades to
// local-only mode and tells the user once, instead of retry-spamming.
var ErrUnavailable = errors.New("sync server has no store configured")

// StatePayload is the wire shape pushed to the shared document store:
// the full days map plus the shared settings, replacing the remote
// document wholesale.
type StatePayload struct {
	Days     map[string]*model.DayRecord `json:"days"`
	Settings Settings                    `json:"settings"`
}

// Settings is the synced slice of preferences.
type Settings struct {
	MorningReminderTimes map[model.UserID]string `json:"morningReminderTimes"`
}

// Client talks to the shared-state endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient returns a client for the server at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Fetch GETs the remote document. The result is the decoded JSON
// value, not a typed struct: remote shapes are never trusted before
// normalization, and the legacy bare-days-map shape must pass through.
func (c *Client) Fetch(ctx context.Context) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/state", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("state fetch failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return decodeStateResponse(resp)
}

// Push POSTs the full local payload and returns the decoded post-write
// snapshot the server echoes back.
func (c *Client) Push(ctx context.Context, payload StatePayload) (any, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal state: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/state", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("state push failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	return decodeStateResponse(resp)
}

func decodeStateResponse(resp *http.Response) (any, error) {
	if resp.StatusCode == http.StatusServiceUnavailable {
		return nil, ErrUnavailable
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server error %d: %s", resp.StatusCode, string(respBody))
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode state response: %w", err)
	}
	return payload, nil
}

// RemoteDays extracts the days value from a decoded remote payload.
// A payload with a "days" key yields that value (malformed days become
// an empty map); a bare object is itself the legacy days map. Returns
// nil when the payload carries no day data at all.
func RemoteDays(payload any) any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}

	if days, present := obj["days"]; present {
		if _, ok := days.(map[string]any); !ok {
			return map[string]any{}
		}
		return days
	}
	return obj
}

// RemoteReminderTimes extracts settings.morningReminderTimes from a
// decoded remote payload, or nil when absent.
func RemoteReminderTimes(payload any) any {
	obj, ok := payload.(map[string]any)
	if !ok {
		return nil
	}

	settings, ok := obj["settings"].(map[string]any)
	if !ok {
		return nil
	}

	times, ok := settings["morningReminderTimes"].(map[string]any)
	if !ok {
		return nil
	}
	return times
}
