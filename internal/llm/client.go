// Package llm is the text-completion gateway. It speaks the
// generative-language HTTP API directly and degrades to a deterministic
// offline placeholder when no API key is configured.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/emilalvaro25/vibe/internal/config"
)

type Request struct {
	Prompt      string
	System      string
	Temperature float64
	Model       string
}

type Response struct {
	Content string
	Model   string
}

// Gateway is the completion boundary the orchestrator depends on.
type Gateway interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

type Client struct {
	cfg    config.GatewayConfig
	client *http.Client
}

func NewClient(cfg config.GatewayConfig) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 2 * time.Minute
	}
	return &Client{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Generate sends one prompt to the completion backend. Without a configured
// key it returns a labeled placeholder instead of failing, so offline runs
// still thread a deterministic string through the pipeline.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	model := req.Model
	if model == "" {
		model = c.cfg.FlashModel
	}

	if c.cfg.APIKey == "" {
		return Response{
			Content: fmt.Sprintf("DEV MODE (no API key). System: %s\nYou asked: %s", req.System, req.Prompt),
			Model:   "dev-null",
		}, nil
	}

	body := generateRequest{
		Contents:         []content{{Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: &generationConfig{Temperature: req.Temperature},
	}
	if req.System != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.System}}}
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Response{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.cfg.BaseURL, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return Response{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Response{}, fmt.Errorf("completion request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Response{}, fmt.Errorf("completion backend returned %s: %s", resp.Status, snippet)
	}

	var decoded generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Response{}, fmt.Errorf("decode response: %w", err)
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return Response{}, fmt.Errorf("completion backend returned no candidates")
	}

	var text string
	for _, p := range decoded.Candidates[0].Content.Parts {
		text += p.Text
	}
	return Response{Content: text, Model: model}, nil
}
