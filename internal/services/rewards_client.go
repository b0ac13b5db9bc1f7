package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/topicrally/backend/internal/models"
	"go.uber.org/zap"
)

// RewardsClient talks to the external reward distribution engine over its
// internal HTTP API. No retry here: a failed call leaves the campaign for the
// fallback sweep.
type RewardsClient struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewRewardsClient(baseURL string, timeout time.Duration, log *zap.Logger) *RewardsClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &RewardsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

type distributeRequest struct {
	TopicID string `json:"topic_id"`
}

type distributeResponse struct {
	OK         bool                  `json:"ok"`
	ResultTxID *string               `json:"result_tx_id,omitempty"`
	Results    []models.RewardResult `json:"results,omitempty"`
	Error      string                `json:"error,omitempty"`
}

func (c *RewardsClient) Distribute(ctx context.Context, topicID string) (*DistributionResult, error) {
	body, err := json.Marshal(distributeRequest{TopicID: topicID})
	if err != nil {
		return nil, err
	}

	url := c.baseURL + "/internal/distribute"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reward engine request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read reward engine response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("reward engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	var out distributeResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode reward engine response: %w", err)
	}
	if !out.OK {
		return nil, fmt.Errorf("reward engine failed: %s", out.Error)
	}

	return &DistributionResult{
		ResultTxID: out.ResultTxID,
		Results:    out.Results,
	}, nil
}
