package cli

import (
	"context"

	"github.com/m-mizutani/chatmem/pkg/adapter"
)

var NewRootCommand = newRootCommand

// NewClaudeConfig returns a config selecting Claude for completion
func NewClaudeConfig(apiKey string) *config {
	return &config{completion: providerClaude, anthropicAPIKey: apiKey}
}

func (cfg *config) NewCompleter(ctx context.Context) (adapter.Completer, error) {
	return cfg.newCompleter(ctx)
}
