package cli

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/chatmem/pkg/adapter"
	"github.com/m-mizutani/chatmem/pkg/model"
	"github.com/m-mizutani/chatmem/pkg/repository"
	"github.com/m-mizutani/chatmem/pkg/usecase/memory"
	"github.com/m-mizutani/chatmem/pkg/usecase/rating"
	"github.com/m-mizutani/chatmem/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	indexFirestore = "firestore"
	indexChromem   = "chromem"

	providerGemini = "gemini"
	providerOpenAI = "openai"
	providerClaude = "claude"

	geminiDefaultDimension = 768
	openaiDefaultDimension = 1536
)

// config holds configuration values
type config struct {
	// Index
	index       string
	project     string
	database    string
	namespace   string
	chromemPath string

	// Adapters
	embedding            string
	completion           string
	geminiProject        string
	geminiLocation       string
	geminiModel          string
	geminiEmbeddingModel string
	embeddingDimension   int64
	openaiAPIKey         string
	openaiModel          string
	anthropicAPIKey      string
	claudeModel          string

	// Logging
	logLevel string

	repo      repository.Repository
	gemini    *adapter.GeminiClient
	completer adapter.Completer
}

// indexFlags returns flags selecting and locating the vector index
func indexFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "index",
			Usage:       "Vector index backend (firestore, chromem)",
			Value:       indexFirestore,
			Sources:     cli.EnvVars("CHATMEM_INDEX"),
			Destination: &cfg.index,
		},
		&cli.StringFlag{
			Name:        "project",
			Aliases:     []string{"p"},
			Usage:       "Google Cloud project ID",
			Sources:     cli.EnvVars("GOOGLE_CLOUD_PROJECT"),
			Destination: &cfg.project,
		},
		&cli.StringFlag{
			Name:        "database",
			Aliases:     []string{"d"},
			Usage:       "Firestore database ID",
			Value:       "(default)",
			Sources:     cli.EnvVars("FIRESTORE_DATABASE_ID"),
			Destination: &cfg.database,
		},
		&cli.StringFlag{
			Name:        "namespace",
			Usage:       "Collection holding the memories",
			Value:       repository.DefaultNamespace,
			Sources:     cli.EnvVars("CHATMEM_NAMESPACE"),
			Destination: &cfg.namespace,
		},
		&cli.StringFlag{
			Name:        "chromem-path",
			Usage:       "Directory persisting the chromem index (in-memory when empty)",
			Sources:     cli.EnvVars("CHATMEM_CHROMEM_PATH"),
			Destination: &cfg.chromemPath,
		},
	}
}

// llmFlags returns flags for LLM-related configuration with destination config
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "embedding",
			Usage:       "Embedding provider (gemini, openai)",
			Value:       providerGemini,
			Sources:     cli.EnvVars("CHATMEM_EMBEDDING"),
			Destination: &cfg.embedding,
		},
		&cli.StringFlag{
			Name:        "completion",
			Usage:       "Completion provider (gemini, openai, claude)",
			Value:       providerGemini,
			Sources:     cli.EnvVars("CHATMEM_COMPLETION"),
			Destination: &cfg.completion,
		},
		&cli.StringFlag{
			Name:        "gemini-project",
			Usage:       "Google Cloud project ID for Gemini (defaults to --project)",
			Sources:     cli.EnvVars("GEMINI_PROJECT_ID"),
			Destination: &cfg.geminiProject,
		},
		&cli.StringFlag{
			Name:        "gemini-location",
			Usage:       "Google Cloud location for Gemini",
			Value:       "us-central1",
			Sources:     cli.EnvVars("GEMINI_LOCATION"),
			Destination: &cfg.geminiLocation,
		},
		&cli.StringFlag{
			Name:        "gemini-model",
			Usage:       "Gemini generative model",
			Value:       "gemini-2.5-flash",
			Sources:     cli.EnvVars("GEMINI_MODEL"),
			Destination: &cfg.geminiModel,
		},
		&cli.StringFlag{
			Name:        "gemini-embedding-model",
			Usage:       "Gemini embedding model",
			Value:       "gemini-embedding-001",
			Sources:     cli.EnvVars("GEMINI_EMBEDDING_MODEL"),
			Destination: &cfg.geminiEmbeddingModel,
		},
		&cli.IntFlag{
			Name:        "embedding-dimension",
			Usage:       "Embedding dimension (768 for gemini, 1536 for openai when unset)",
			Sources:     cli.EnvVars("CHATMEM_EMBEDDING_DIMENSION"),
			Destination: &cfg.embeddingDimension,
		},
		&cli.StringFlag{
			Name:        "openai-api-key",
			Usage:       "OpenAI API key",
			Sources:     cli.EnvVars("OPENAI_API_KEY"),
			Destination: &cfg.openaiAPIKey,
		},
		&cli.StringFlag{
			Name:        "openai-model",
			Usage:       "OpenAI chat model",
			Value:       "gpt-3.5-turbo",
			Sources:     cli.EnvVars("OPENAI_MODEL"),
			Destination: &cfg.openaiModel,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "claude-model",
			Usage:       "Claude model",
			Value:       "claude-sonnet-4-20250514",
			Sources:     cli.EnvVars("CLAUDE_MODEL"),
			Destination: &cfg.claudeModel,
		},
	}
}

func logFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Aliases:     []string{"l"},
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("CHATMEM_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
	}
}

// commonFlags returns the flags shared by commands that touch the index and the LLMs
func commonFlags(cfg *config) []cli.Flag {
	var flags []cli.Flag
	flags = append(flags, indexFlags(cfg)...)
	flags = append(flags, llmFlags(cfg)...)
	flags = append(flags, logFlags(cfg)...)
	return flags
}

// newLogger installs the configured logger as default and into ctx
func (cfg *config) newLogger(ctx context.Context, w io.Writer) (context.Context, *slog.Logger) {
	logger := logging.New(cfg.logLevel, w)
	logging.SetDefault(logger)
	return logging.With(ctx, logger), logger
}

// dimension returns the embedding dimension for the selected provider
func (cfg *config) dimension() int {
	if cfg.embeddingDimension > 0 {
		return int(cfg.embeddingDimension)
	}
	if cfg.embedding == providerOpenAI {
		return openaiDefaultDimension
	}
	return geminiDefaultDimension
}

// newRepository creates a new repository instance. It is opened once per
// command and released by close.
func (cfg *config) newRepository(ctx context.Context) (repository.Repository, error) {
	if cfg.repo != nil {
		return cfg.repo, nil
	}

	repo, err := cfg.openRepository(ctx)
	if err != nil {
		return nil, err
	}
	cfg.repo = repo
	return repo, nil
}

func (cfg *config) openRepository(ctx context.Context) (repository.Repository, error) {
	switch cfg.index {
	case indexFirestore:
		if cfg.project == "" {
			return nil, goerr.Wrap(model.ErrInvalidArgument, "project is required")
		}
		if cfg.database == "" {
			return nil, goerr.Wrap(model.ErrInvalidArgument, "database is required")
		}

		repo, err := repository.NewFirestore(ctx, cfg.project, cfg.database, cfg.dimension(),
			repository.WithCollection(cfg.namespace))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create repository")
		}
		return repo, nil

	case indexChromem:
		if cfg.chromemPath == "" {
			logging.From(ctx).Warn("chromem-path is not set, memories are kept in memory only and lost at exit",
				"namespace", cfg.namespace)
		}
		repo, err := repository.NewChromem(cfg.chromemPath, cfg.dimension(),
			repository.WithChromemCollection(cfg.namespace))
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create repository")
		}
		return repo, nil
	}

	return nil, goerr.Wrap(model.ErrInvalidArgument, "unknown index backend", goerr.V("index", cfg.index))
}

// newGemini creates a new Gemini adapter instance, shared between embedding and completion
func (cfg *config) newGemini(ctx context.Context) (*adapter.GeminiClient, error) {
	if cfg.gemini != nil {
		return cfg.gemini, nil
	}

	project := cfg.geminiProject
	if project == "" {
		project = cfg.project
	}
	if project == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "gemini-project is required")
	}
	if cfg.geminiLocation == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "gemini-location is required")
	}

	client, err := adapter.NewGemini(ctx, project, cfg.geminiLocation,
		adapter.WithGenerativeModel(cfg.geminiModel),
		adapter.WithEmbeddingModel(cfg.geminiEmbeddingModel),
		adapter.WithEmbeddingDimension(cfg.dimension()),
	)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create gemini client")
	}

	cfg.gemini = client
	return client, nil
}

func (cfg *config) newOpenAI() (*adapter.OpenAIClient, error) {
	if cfg.openaiAPIKey == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "openai-api-key is required")
	}

	return adapter.NewOpenAI(cfg.openaiAPIKey,
		adapter.WithOpenAIChatModel(cfg.openaiModel),
		adapter.WithOpenAIEmbeddingDimension(cfg.dimension()),
	), nil
}

// newClaude creates a new Claude adapter instance
func (cfg *config) newClaude() (*adapter.ClaudeClient, error) {
	if cfg.anthropicAPIKey == "" {
		return nil, goerr.Wrap(model.ErrInvalidArgument, "anthropic-api-key is required")
	}
	return adapter.NewClaude(cfg.anthropicAPIKey, adapter.WithClaudeModel(cfg.claudeModel)), nil
}

func (cfg *config) newEmbedder(ctx context.Context) (adapter.Embedder, error) {
	switch cfg.embedding {
	case providerGemini:
		return cfg.newGemini(ctx)
	case providerOpenAI:
		return cfg.newOpenAI()
	}
	return nil, goerr.Wrap(model.ErrInvalidArgument, "unknown embedding provider", goerr.V("embedding", cfg.embedding))
}

// newCompleter returns the completion client shared by rating and chat replies
func (cfg *config) newCompleter(ctx context.Context) (adapter.Completer, error) {
	if cfg.completer != nil {
		return cfg.completer, nil
	}

	var (
		completer adapter.Completer
		err       error
	)
	switch cfg.completion {
	case providerGemini:
		completer, err = cfg.newGemini(ctx)
	case providerOpenAI:
		completer, err = cfg.newOpenAI()
	case providerClaude:
		completer, err = cfg.newClaude()
	default:
		return nil, goerr.Wrap(model.ErrInvalidArgument, "unknown completion provider", goerr.V("completion", cfg.completion))
	}
	if err != nil {
		return nil, err
	}

	cfg.completer = completer
	return completer, nil
}

// newMemory wires the index, the embedder and the rater into the memory store
func (cfg *config) newMemory(ctx context.Context) (*memory.UseCase, error) {
	repo, err := cfg.newRepository(ctx)
	if err != nil {
		return nil, err
	}

	embedder, err := cfg.newEmbedder(ctx)
	if err != nil {
		return nil, err
	}

	completer, err := cfg.newCompleter(ctx)
	if err != nil {
		return nil, err
	}

	return memory.New(repo, embedder, rating.New(completer)), nil
}

// close releases the repository opened by newRepository, if any
func (cfg *config) close(ctx context.Context) {
	if cfg.repo == nil {
		return
	}
	if err := cfg.repo.Close(); err != nil {
		logging.From(ctx).Warn("failed to close repository", "error", err)
	}
	cfg.repo = nil
}

func errWriter(c *cli.Command) io.Writer {
	if w := c.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
