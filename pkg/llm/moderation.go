package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// ModerationConfig represents the configuration for the safety filter.
type ModerationConfig struct {
	Model   string
	Token   string
	BaseURL string
	Timeout time.Duration
}

// ModerationClient is a minimal client for the OpenAI moderations endpoint.
type ModerationClient struct {
	config ModerationConfig
	client *http.Client
}

func NewModerationWithConfig(config ModerationConfig) *ModerationClient {
	if config.Model == "" {
		config.Model = "omni-moderation-latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "https://api.openai.com/v1"
	}
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}

	return &ModerationClient{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

// IsFlagged reports whether the text violates the usage policy.
func (m *ModerationClient) IsFlagged(ctx context.Context, text string) (bool, error) {
	body, err := json.Marshal(map[string]any{
		"model": m.config.Model,
		"input": text,
	})
	if err != nil {
		return false, fmt.Errorf("failed to encode moderation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.BaseURL+"/moderations", bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to build moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.config.Token)

	resp, err := m.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("moderation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return false, fmt.Errorf("moderation request failed: %s", resp.Status)
	}

	var out struct {
		Results []struct {
			Flagged bool `json:"flagged"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return false, fmt.Errorf("failed to decode moderation response: %w", err)
	}

	if len(out.Results) == 0 {
		return false, nil
	}
	return out.Results[0].Flagged, nil
}
