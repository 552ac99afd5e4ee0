package adapter

import (
	"context"
	"strings"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const openaiGateway = "openai"

// OpenAIClient serves both embeddings and chat completions from the OpenAI API
type OpenAIClient struct {
	client         *openai.Client
	requestOptions []option.RequestOption
	chatModel      string
	embeddingModel string
	dimension      int
}

type OpenAIOption func(*OpenAIClient)

func WithOpenAIChatModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.chatModel = model
	}
}

func WithOpenAIEmbeddingModel(model string) OpenAIOption {
	return func(c *OpenAIClient) {
		c.embeddingModel = model
	}
}

// WithOpenAIEmbeddingDimension sets the expected vector length. Only the
// text-embedding-3 family can shorten its output; other models must match
// their native dimension.
func WithOpenAIEmbeddingDimension(dim int) OpenAIOption {
	return func(c *OpenAIClient) {
		c.dimension = dim
	}
}

// WithOpenAIRequestOptions passes extra options (base URL, HTTP client) to the SDK client
func WithOpenAIRequestOptions(opts ...option.RequestOption) OpenAIOption {
	return func(c *OpenAIClient) {
		c.requestOptions = append(c.requestOptions, opts...)
	}
}

func NewOpenAI(apiKey string, opts ...OpenAIOption) *OpenAIClient {
	c := &OpenAIClient{
		requestOptions: []option.RequestOption{option.WithAPIKey(apiKey)},
		chatModel:      "gpt-3.5-turbo",
		embeddingModel: "text-embedding-ada-002",
		dimension:      1536,
	}
	for _, opt := range opts {
		opt(c)
	}

	client := openai.NewClient(c.requestOptions...)
	c.client = &client
	return c
}

func (c *OpenAIClient) Dimension() int {
	return c.dimension
}

func (c *OpenAIClient) Embed(ctx context.Context, text string) ([]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model: openai.EmbeddingModel(c.embeddingModel),
	}
	if strings.HasPrefix(c.embeddingModel, "text-embedding-3") {
		params.Dimensions = openai.Int(int64(c.dimension))
	}

	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		return nil, goerr.Wrap(model.NewGatewayError(openaiGateway, err), "failed to embed text",
			goerr.V("model", c.embeddingModel))
	}

	if len(resp.Data) != 1 || len(resp.Data[0].Embedding) == 0 {
		return nil, goerr.Wrap(model.NewGatewayError(openaiGateway, nil), "unexpected embedding response shape",
			goerr.V("data", len(resp.Data)))
	}

	values := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		values[i] = float32(v)
	}
	return values, nil
}

func (c *OpenAIClient) Complete(ctx context.Context, messages []model.Message, temperature float32) (string, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages:    toOpenAIMessages(messages),
		Model:       openai.ChatModel(c.chatModel),
		Temperature: openai.Float(float64(temperature)),
	})
	if err != nil {
		return "", goerr.Wrap(model.NewGatewayError(openaiGateway, err), "failed to complete conversation",
			goerr.V("model", c.chatModel))
	}

	if len(resp.Choices) == 0 {
		return "", goerr.Wrap(model.NewGatewayError(openaiGateway, nil), "no choices returned")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func toOpenAIMessages(messages []model.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			out = append(out, openai.SystemMessage(msg.Content))
		case model.RoleAssistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			out = append(out, openai.UserMessage(msg.Content))
		}
	}
	return out
}
