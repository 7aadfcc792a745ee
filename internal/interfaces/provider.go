package interfaces

import "context"

// Provider is a generative-text backend. Implementations wrap one vendor API
// and expose nothing beyond prompt-in, text-out.
type Provider interface {
	Name() string
	Generate(ctx context.Context, prompt string) (string, error)
}
