package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultEndpoint = "https://api.openai.com/v1/chat/completions"

// Provider calls the OpenAI chat completions API.
type Provider struct {
	apiKey      string
	model       string
	endpoint    string
	maxTokens   int
	temperature float32
	client      *http.Client
}

// Options tune the generation request.
type Options struct {
	MaxTokens   int
	Temperature float32
}

// New builds an OpenAI provider. A missing API key is a hard precondition
// failure reported here, not per call.
func New(apiKey, model string, opts Options) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai API key missing")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	endpoint := defaultEndpoint
	if ep := os.Getenv("OPENAI_API_ENDPOINT"); ep != "" {
		endpoint = ep
	}

	if opts.MaxTokens == 0 {
		opts.MaxTokens = 500
	}

	return &Provider{
		apiKey:      apiKey,
		model:       model,
		endpoint:    endpoint,
		maxTokens:   opts.MaxTokens,
		temperature: opts.Temperature,
		client:      &http.Client{Timeout: 60 * time.Second},
	}, nil
}

func (p *Provider) Name() string { return "openai" }

// Generate sends a single user message and returns the first choice content.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"model":       p.model,
		"messages":    []map[string]string{{"role": "user", "content": prompt}},
		"temperature": p.temperature,
		"max_tokens":  p.maxTokens,
	}
	bb, _ := json.Marshal(body)

	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewReader(bb))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("openai http %d", resp.StatusCode)
	}

	var r struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", err
	}

	if len(r.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}

	return strings.TrimSpace(r.Choices[0].Message.Content), nil
}
