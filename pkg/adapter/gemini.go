package adapter

import (
	"context"
	"strings"

	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

const geminiGateway = "gemini"

type Gemini interface {
	GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error)
}

type GeminiClient struct {
	client          Gemini
	generativeModel string
	embeddingModel  string
	dimension       int
}

type GeminiOption func(*GeminiClient)

func WithGenerativeModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.generativeModel = model
	}
}

func WithEmbeddingModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		g.embeddingModel = model
	}
}

// WithEmbeddingDimension sets the requested output dimensionality. It must
// match the dimension the vector index was provisioned with.
func WithEmbeddingDimension(dim int) GeminiOption {
	return func(g *GeminiClient) {
		g.dimension = dim
	}
}

// vertexClient calls Gemini through Vertex AI
type vertexClient struct {
	client *genai.Client
	g      *GeminiClient
}

func NewGemini(ctx context.Context, projectID, location string, opts ...GeminiOption) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, goerr.Wrap(model.NewGatewayError(geminiGateway, err), "failed to create genai client")
	}

	g := newGeminiClient(nil, opts...)
	g.client = &vertexClient{client: client, g: g}
	return g, nil
}

// NewGeminiFromClient builds a GeminiClient on top of an existing Gemini
// implementation, e.g. a mock in tests
func NewGeminiFromClient(client Gemini, opts ...GeminiOption) *GeminiClient {
	return newGeminiClient(client, opts...)
}

func newGeminiClient(client Gemini, opts ...GeminiOption) *GeminiClient {
	g := &GeminiClient{
		client:          client,
		generativeModel: "gemini-2.5-flash",
		embeddingModel:  "gemini-embedding-001",
		dimension:       768,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (v *vertexClient) GenerateContent(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	resp, err := v.client.Models.GenerateContent(ctx, v.g.generativeModel, contents, config)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to generate content", goerr.V("model", v.g.generativeModel))
	}
	return resp, nil
}

func (v *vertexClient) Embedding(ctx context.Context, text string) (*genai.EmbedContentResponse, error) {
	dim := int32(v.g.dimension)
	resp, err := v.client.Models.EmbedContent(ctx, v.g.embeddingModel, genai.Text(text), &genai.EmbedContentConfig{
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "failed to embed content", goerr.V("model", v.g.embeddingModel))
	}
	return resp, nil
}

func (g *GeminiClient) Dimension() int {
	return g.dimension
}

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Embedding(ctx, text)
	if err != nil {
		return nil, goerr.Wrap(model.NewGatewayError(geminiGateway, err), "failed to embed text")
	}

	values, err := geminiEmbeddingValues(resp)
	if err != nil {
		return nil, err
	}
	return values, nil
}

func (g *GeminiClient) Complete(ctx context.Context, messages []model.Message, temperature float32) (string, error) {
	contents, system := toGeminiContents(messages)
	config := &genai.GenerateContentConfig{
		Temperature: &temperature,
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, "")
	}

	resp, err := g.client.GenerateContent(ctx, contents, config)
	if err != nil {
		return "", goerr.Wrap(model.NewGatewayError(geminiGateway, err), "failed to complete conversation")
	}

	return geminiResponseText(resp)
}

// toGeminiContents converts messages to genai contents. System messages are
// lifted out and joined into one system instruction.
func toGeminiContents(messages []model.Message) ([]*genai.Content, string) {
	var (
		contents []*genai.Content
		system   []string
	)

	for _, msg := range messages {
		switch msg.Role {
		case model.RoleSystem:
			system = append(system, msg.Content)
		case model.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
		}
	}

	// a system-only window still needs one content to be a valid request
	if len(contents) == 0 && len(system) > 0 {
		return []*genai.Content{genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser)}, ""
	}

	return contents, strings.Join(system, "\n\n")
}

func geminiEmbeddingValues(resp *genai.EmbedContentResponse) ([]float32, error) {
	if resp == nil || len(resp.Embeddings) != 1 || resp.Embeddings[0] == nil {
		return nil, goerr.Wrap(model.NewGatewayError(geminiGateway, nil), "unexpected embedding response shape")
	}
	values := resp.Embeddings[0].Values
	if len(values) == 0 {
		return nil, goerr.Wrap(model.NewGatewayError(geminiGateway, nil), "empty embedding returned")
	}
	return values, nil
}

func geminiResponseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.Wrap(model.NewGatewayError(geminiGateway, nil), "no candidate returned")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
	}

	return strings.TrimSpace(text.String()), nil
}
