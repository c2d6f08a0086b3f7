package rationale

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"daytrade-core/internal/strategy"
)

// Client asks a local LLM for a human-readable explanation of a decision.
// The text is advisory only: it is attached to the intent for the reviewer
// and never feeds back into any guardrail or sizing path. Any failure
// degrades to an empty rationale.
type Client struct {
	baseURL string
	model   string
	http    *http.Client
}

// NewClient points at an Ollama-compatible generate endpoint.
func NewClient(baseURL, model string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		model:   model,
		http:    &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Response string `json:"response"`
}

// Explain summarizes why the ensemble wants this trade.
func (c *Client) Explain(ctx context.Context, symbol string, d *strategy.Decision) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "In two sentences, explain this intraday long entry on %s. ", symbol)
	fmt.Fprintf(&sb, "Regime %s, 1h bias %s. %d of %d strategies agree, mean confidence %.0f. Lead signal: %s (%s).",
		d.Context.Regime, d.Context.Bias1H, d.Agreeing, d.Total, d.MeanConfidence,
		d.Lead.StrategyID, d.Lead.Reason)

	body, err := json.Marshal(generateRequest{Model: c.model, Prompt: sb.String()})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("rationale request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("rationale status %d", resp.StatusCode)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("rationale decode: %w", err)
	}
	return strings.TrimSpace(out.Response), nil
}
