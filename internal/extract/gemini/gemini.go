package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

const defaultEndpoint = "https://generativelanguage.googleapis.com/v1beta"

// Provider calls the Google Generative Language API.
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

// New builds a Gemini provider. A missing API key is a hard precondition
// failure reported here, not per call.
func New(apiKey, model string, opts Options) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key missing")
	}
	if model == "" {
		model = "gemini-pro"
	}

	endpoint := defaultEndpoint
	if ep := os.Getenv("GEMINI_API_ENDPOINT"); ep != "" {
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

func (p *Provider) Name() string { return "gemini" }

// Generate sends a single-turn prompt and returns the first candidate text.
func (p *Provider) Generate(ctx context.Context, prompt string) (string, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]string{{"text": prompt}}},
		},
		"generationConfig": map[string]any{
			"temperature":     p.temperature,
			"maxOutputTokens": p.maxTokens,
		},
	}
	bb, _ := json.Marshal(body)

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", p.endpoint, p.model, p.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(bb))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("gemini http %d: %s", resp.StatusCode, truncate(string(b), 200))
	}

	var r struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", err
	}

	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("gemini: no candidates")
	}

	return strings.TrimSpace(r.Candidates[0].Content.Parts[0].Text), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
