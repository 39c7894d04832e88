// Package transport is the thin HTTP client for the questforge sync service.
// All calls short-circuit to empty results while offline, except quest
// validation, which is attempted regardless so its error path can drive the
// local fallback.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/kverlaine/questforge/internal/models"
)

// ErrOffline is returned when a required call is attempted without
// connectivity.
var ErrOffline = errors.New("remote service unreachable (offline)")

const defaultTimeout = 30 * time.Second

// ValidationRequest is the POST /agent/validate-quest body.
type ValidationRequest struct {
	QuestID   string      `json:"questId"`
	QuestData QuestData   `json:"questData"`
	Context   UserContext `json:"userContext"`
}

type QuestData struct {
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Subtasks    []models.Subtask `json:"subtasks,omitempty"`
}

// UserContext carries the performance metrics the remote reasoner grounds its
// suggestion on.
type UserContext struct {
	WeeklyVelocity     float64 `json:"weeklyVelocity"`
	MonthlyConsistency float64 `json:"monthlyConsistency"`
	AvgSessionQuality  float64 `json:"avgSessionQuality"`
	BurnoutRisk        string  `json:"burnoutRisk"`
	EstimatedHours     float64 `json:"estimatedHours"`
}

// ValidationResponse is the raw remote reply. SuggestedDifficulty may be
// absent, which callers must treat as a rejection.
type ValidationResponse struct {
	Status                string   `json:"status,omitempty"`
	SuggestedDifficulty   string   `json:"suggestedDifficulty,omitempty"`
	Confidence            float64  `json:"confidence"`
	Reasoning             string   `json:"reasoning,omitempty"`
	Recommendations       []string `json:"recommendations,omitempty"`
	SuggestedXPPerPomodoro int     `json:"suggestedXpPerPomodoro,omitempty"`
}

type suggestionsResponse struct {
	Suggestions []string `json:"suggestions"`
}

type publicQuestsResponse struct {
	Quests []models.Quest `json:"quests"`
}

// Client wraps the remote API. Connectivity is tracked as an atomic flag set
// by Ping or explicitly by the caller.
type Client struct {
	baseURL string
	token   string
	client  *http.Client
	online  atomic.Bool
}

func New(baseURL, token string) *Client {
	c := &Client{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	c.online.Store(true)
	return c
}

// Online reports the last known connectivity state.
func (c *Client) Online() bool {
	return c.online.Load()
}

// SetOnline overrides the connectivity state (used by the drain loop's
// probe and by tests).
func (c *Client) SetOnline(online bool) {
	c.online.Store(online)
}

// Ping probes the health endpoint and records the result as the new
// connectivity state. It returns the previous state so callers can detect
// offline-to-online transitions.
func (c *Client) Ping(ctx context.Context) (wasOnline, isOnline bool) {
	wasOnline = c.online.Load()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		c.online.Store(false)
		return wasOnline, false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.online.Store(false)
		return wasOnline, false
	}
	resp.Body.Close()

	isOnline = resp.StatusCode < 500
	c.online.Store(isOnline)
	return wasOnline, isOnline
}

// ValidateQuest posts the quest and user context for remote classification.
// Unlike the other calls it is attempted even when offline; the resulting
// error drives the caller's local fallback.
func (c *Client) ValidateQuest(ctx context.Context, req ValidationRequest) (ValidationResponse, error) {
	var out ValidationResponse
	if err := c.postJSON(ctx, "/agent/validate-quest", req, &out); err != nil {
		return ValidationResponse{}, err
	}
	return out, nil
}

// PushSession upserts a session record. Fire-and-forget: no response body
// processing beyond the status code.
func (c *Client) PushSession(ctx context.Context, session models.Session) error {
	if !c.Online() {
		return ErrOffline
	}
	return c.putJSON(ctx, "/sessions/"+session.ID, session)
}

// PushQuest upserts a quest record.
func (c *Client) PushQuest(ctx context.Context, quest models.Quest) error {
	if !c.Online() {
		return ErrOffline
	}
	return c.putJSON(ctx, "/quests/"+quest.ID, quest)
}

// PushUser upserts the user profile.
func (c *Client) PushUser(ctx context.Context, user models.UserProfile) error {
	if !c.Online() {
		return ErrOffline
	}
	return c.putJSON(ctx, "/users/"+user.ID, user)
}

// PublicQuests fetches shared quests. Soft-fail: offline or any error yields
// an empty list.
func (c *Client) PublicQuests(ctx context.Context, limit int) []models.Quest {
	if !c.Online() {
		return nil
	}
	var out publicQuestsResponse
	url := fmt.Sprintf("/quests?public=true&limit=%d", limit)
	if err := c.getJSON(ctx, url, &out); err != nil {
		return nil
	}
	return out.Quests
}

// GMSuggestions fetches coaching suggestions. Soft-fail like PublicQuests.
func (c *Client) GMSuggestions(ctx context.Context) []string {
	if !c.Online() {
		return nil
	}
	var out suggestionsResponse
	if err := c.getJSON(ctx, "/gm/suggestions", &out); err != nil {
		return nil
	}
	return out.Suggestions
}

func (c *Client) postJSON(ctx context.Context, path string, body, out interface{}) error {
	return c.doJSON(ctx, http.MethodPost, path, body, out)
}

func (c *Client) putJSON(ctx context.Context, path string, body interface{}) error {
	return c.doJSON(ctx, http.MethodPut, path, body, nil)
}

func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	return c.doJSON(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("remote API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
