// Package extract turns article text into structured financial intelligence
// through a generative-text provider, with bounded retries on provider
// failures and strict parsing of the response.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"

	"financial-news-intelligence/internal/interfaces"
	"financial-news-intelligence/internal/logger"
	"financial-news-intelligence/internal/trace"
	"financial-news-intelligence/internal/types"
)

const (
	// maxInputChars bounds how much article text goes into the prompt.
	maxInputChars = 3000

	// Retry shape for provider-call failures: 3 attempts total, exponential
	// backoff from 2s capped at 10s. Parse failures are never retried.
	maxAttempts     = 3
	initialInterval = 2 * time.Second
	maxInterval     = 10 * time.Second
)

const promptTemplate = `You are a financial intelligence expert. Extract structured information from the following news article.

ARTICLE TEXT:
%s

Extract and return ONLY valid JSON (no markdown, no extra text) with this exact structure:
{
    "company": "primary company mentioned (string or null)",
    "sector": "industry/sector (string or null)",
    "event_type": "one of: earnings, merger, acquisition, lawsuit, downgrade, upgrade, expansion, regulation, partnership, bankruptcy, other",
    "sentiment": "positive, neutral, or negative",
    "confidence_score": 0.0-1.0,
    "key_metrics": {
        "revenue": "if mentioned",
        "profit": "if mentioned",
        "growth_percent": "if mentioned",
        "loss": "if mentioned"
    },
    "summary": "brief 1-2 sentence summary"
}

Return ONLY the JSON object, nothing else.`

// requiredKeys must be present in the decoded response for it to count as an
// extraction at all.
var requiredKeys = []string{"company", "event_type", "sentiment"}

// Extractor drives one provider. The provider handle is initialized once and
// reused; the extractor itself holds no per-call state.
type Extractor struct {
	provider interfaces.Provider

	initialInterval time.Duration
	maxInterval     time.Duration
}

var _ interfaces.Extractor = (*Extractor)(nil)

// New builds an extractor over a provider.
func New(provider interfaces.Provider) *Extractor {
	return &Extractor{
		provider:        provider,
		initialInterval: initialInterval,
		maxInterval:     maxInterval,
	}
}

// Extract prompts the provider with up to maxInputChars of text and parses
// the response. It returns (nil, err) when the provider is unreachable after
// retries and (nil, nil) when the response fails to parse or lacks required
// keys; neither outcome aborts a batch.
func (e *Extractor) Extract(ctx context.Context, text string) (*types.Extraction, error) {
	prompt := BuildPrompt(text)

	raw, err := e.generateWithRetry(ctx, prompt)
	if err != nil {
		return nil, fmt.Errorf("provider %s: %w", e.provider.Name(), err)
	}

	ext := ParseResponse(raw)
	if ext == nil {
		logger.Warn(ctx, "Provider response did not parse", "provider", e.provider.Name(), "response_prefix", prefix(raw, 200))
		return nil, nil
	}
	return ext, nil
}

// BuildPrompt embeds at most maxInputChars characters of text into the fixed
// instruction template.
func BuildPrompt(text string) string {
	runes := []rune(text)
	if len(runes) > maxInputChars {
		text = string(runes[:maxInputChars])
	}
	return fmt.Sprintf(promptTemplate, text)
}

func (e *Extractor) generateWithRetry(ctx context.Context, prompt string) (string, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = e.initialInterval
	bo.MaxInterval = e.maxInterval
	bo.Multiplier = 2
	bo.RandomizationFactor = 0
	bo.MaxElapsedTime = 0

	attempt := 0
	var out string
	op := func() error {
		attempt++
		genCtx, span := trace.StartSpan(ctx, "provider-generate")
		defer span.End()

		resp, err := e.provider.Generate(genCtx, prompt)
		if err != nil {
			logger.Warn(ctx, "Provider call failed", "provider", e.provider.Name(), "attempt", attempt, "error", err)
			return err
		}
		out = resp
		return nil
	}

	err := backoff.Retry(op, backoff.WithContext(backoff.WithMaxRetries(bo, maxAttempts-1), ctx))
	if err != nil {
		return "", fmt.Errorf("generate failed after %d attempts: %w", attempt, err)
	}
	return out, nil
}

// ParseResponse strips an optional fenced code block, decodes the JSON object
// and checks the required keys. Any failure yields nil: malformed provider
// output is an extraction miss, never an error worth retrying.
func ParseResponse(raw string) *types.Extraction {
	cleaned := stripFence(raw)

	var data map[string]any
	if err := json.Unmarshal([]byte(cleaned), &data); err != nil {
		return nil
	}

	for _, k := range requiredKeys {
		if _, ok := data[k]; !ok {
			return nil
		}
	}

	ext := &types.Extraction{
		Company:   asString(data["company"]),
		Sector:    asString(data["sector"]),
		EventType: asString(data["event_type"]),
		Sentiment: asString(data["sentiment"]),
		Summary:   asString(data["summary"]),
		Raw:       data,
	}

	// Absent confidence defaults to zero; a present non-numeric value is
	// pushed out of range so semantic validation rejects it.
	if v, ok := data["confidence_score"]; ok {
		if f, isNum := v.(float64); isNum {
			ext.Confidence = f
		} else {
			ext.Confidence = -1
		}
	}

	if km, ok := data["key_metrics"].(map[string]any); ok {
		metrics := make(map[string]string, len(km))
		for k, v := range km {
			if v == nil {
				continue
			}
			if s, isStr := v.(string); isStr {
				if s != "" {
					metrics[k] = s
				}
				continue
			}
			metrics[k] = fmt.Sprint(v)
		}
		if len(metrics) > 0 {
			ext.KeyMetrics = metrics
		}
	}

	return ext
}

// stripFence removes a markdown code fence, with or without a language tag,
// around the JSON payload. Text outside the fence is discarded.
func stripFence(raw string) string {
	t := strings.TrimSpace(raw)
	if i := strings.Index(t, "```json"); i >= 0 {
		t = t[i+len("```json"):]
	} else if i := strings.Index(t, "```"); i >= 0 {
		t = t[i+3:]
	} else {
		return t
	}
	if j := strings.Index(t, "```"); j >= 0 {
		t = t[:j]
	}
	return strings.TrimSpace(t)
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
