package noop

import (
	"context"
	"errors"
)

// Provider is the fallback used when no generative backend is configured.
// Every call fails, so articles flow through the pipeline and are marked
// processed without producing events.
type Provider struct{}

// New returns a provider that never generates.
func New() *Provider {
	return &Provider{}
}

func (p *Provider) Name() string { return "noop" }

// Generate always reports that no backend is available.
func (p *Provider) Generate(context.Context, string) (string, error) {
	return "", errors.New("no generative provider configured")
}
