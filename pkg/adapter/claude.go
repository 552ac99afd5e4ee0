package adapter

import (
	"context"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/goerr/v2"
)

const claudeGateway = "claude"

// ClaudeClient is a completion-only gateway; Anthropic has no embedding API.
type ClaudeClient struct {
	client         *anthropic.Client
	requestOptions []option.RequestOption
	model          string
	maxTokens      int64
}

type ClaudeOption func(*ClaudeClient)

func WithClaudeModel(model string) ClaudeOption {
	return func(c *ClaudeClient) {
		c.model = model
	}
}

func WithClaudeMaxTokens(n int64) ClaudeOption {
	return func(c *ClaudeClient) {
		c.maxTokens = n
	}
}

// WithClaudeRequestOptions passes extra options (base URL, retries) to the SDK client
func WithClaudeRequestOptions(opts ...option.RequestOption) ClaudeOption {
	return func(c *ClaudeClient) {
		c.requestOptions = append(c.requestOptions, opts...)
	}
}

// NewClaude creates a new Claude API client
func NewClaude(apiKey string, opts ...ClaudeOption) *ClaudeClient {
	c := &ClaudeClient{
		requestOptions: []option.RequestOption{option.WithAPIKey(apiKey)},
		model:          "claude-sonnet-4-20250514",
		maxTokens:      1024,
	}
	for _, opt := range opts {
		opt(c)
	}

	client := anthropic.NewClient(c.requestOptions...)
	c.client = &client
	return c
}

func (c *ClaudeClient) Complete(ctx context.Context, messages []model.Message, temperature float32) (string, error) {
	msgs, system := toClaudeMessages(messages)
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		Messages:    msgs,
		Temperature: anthropic.Float(float64(temperature)),
	}
	if len(system) > 0 {
		params.System = system
	}

	resp, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", goerr.Wrap(model.NewGatewayError(claudeGateway, err), "failed to complete conversation",
			goerr.V("model", c.model))
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.AsText().Text)
		}
	}
	if text.Len() == 0 {
		return "", goerr.Wrap(model.NewGatewayError(claudeGateway, nil), "no text content returned",
			goerr.V("stop_reason", resp.StopReason))
	}

	return strings.TrimSpace(text.String()), nil
}

func toClaudeMessages(messages []model.Message) ([]anthropic.MessageParam, []anthropic.TextBlockParam) {
	var (
		msgs   []anthropic.MessageParam
		system []anthropic.TextBlockParam
	)

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, anthropic.TextBlockParam{Text: msg.Content})
		case model.RoleAssistant:
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(msg.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(msg.Content)))
		}
	}

	// the Messages API rejects an empty message list, so a system-only
	// window is sent as a single user turn instead
	if len(msgs) == 0 && len(system) > 0 {
		texts := make([]string, len(system))
		for i, block := range system {
			texts[i] = block.Text
		}
		return []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(strings.Join(texts, "\n\n"))),
		}, nil
	}

	return msgs, system
}
