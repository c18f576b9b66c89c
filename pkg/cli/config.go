package cli

import (
	"context"
	"io"
	"time"

	"github.com/m-mizutani/courseguide/pkg/adapter"
	"github.com/m-mizutani/courseguide/pkg/catalog"
	"github.com/m-mizutani/courseguide/pkg/metrics"
	"github.com/m-mizutani/courseguide/pkg/model"
	"github.com/m-mizutani/courseguide/pkg/prompt"
	"github.com/m-mizutani/courseguide/pkg/repository"
	"github.com/m-mizutani/courseguide/pkg/usecase/chat"
	"github.com/m-mizutani/courseguide/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/urfave/cli/v3"
)

const (
	providerGemini = "gemini"
	providerClaude = "claude"
)

// config holds configuration values
type config struct {
	// Logging
	logLevel  string
	logFormat string

	// Model provider
	provider        string
	geminiAPIKey    string
	anthropicAPIKey string
	modelName       string
	modelTimeout    time.Duration

	// Prompt and catalog
	catalogPath  string
	templatePath string

	// Conversation store
	maxConversations int64
}

// globalFlags returns flags shared by every command
func globalFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("COURSEGUIDE_LOG_LEVEL"),
			Destination: &cfg.logLevel,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console, json)",
			Value:       string(logging.FormatConsole),
			Sources:     cli.EnvVars("COURSEGUIDE_LOG_FORMAT"),
			Destination: &cfg.logFormat,
		},
		&cli.StringFlag{
			Name:        "catalog",
			Aliases:     []string{"c"},
			Usage:       "Course catalog file (YAML or JSON). Uses the built-in catalog if empty",
			Sources:     cli.EnvVars("COURSEGUIDE_CATALOG"),
			Destination: &cfg.catalogPath,
		},
		&cli.StringFlag{
			Name:        "instruction-template",
			Usage:       "File with the system instruction template. Uses the built-in template if empty",
			Sources:     cli.EnvVars("COURSEGUIDE_INSTRUCTION_TEMPLATE"),
			Destination: &cfg.templatePath,
		},
		&cli.IntFlag{
			Name:        "max-conversations",
			Usage:       "Maximum number of conversations kept in memory",
			Value:       repository.DefaultMaxConversations,
			Sources:     cli.EnvVars("COURSEGUIDE_MAX_CONVERSATIONS"),
			Destination: &cfg.maxConversations,
		},
	}
}

// llmFlags returns flags for the model provider
func llmFlags(cfg *config) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "provider",
			Usage:       "Model provider (gemini, claude)",
			Value:       providerGemini,
			Sources:     cli.EnvVars("COURSEGUIDE_PROVIDER"),
			Destination: &cfg.provider,
		},
		&cli.StringFlag{
			Name:        "gemini-api-key",
			Usage:       "Gemini API key",
			Sources:     cli.EnvVars("GEMINI_API_KEY"),
			Destination: &cfg.geminiAPIKey,
		},
		&cli.StringFlag{
			Name:        "anthropic-api-key",
			Usage:       "Anthropic API key",
			Sources:     cli.EnvVars("ANTHROPIC_API_KEY"),
			Destination: &cfg.anthropicAPIKey,
		},
		&cli.StringFlag{
			Name:        "model",
			Aliases:     []string{"m"},
			Usage:       "Model name. Defaults to " + adapter.DefaultGeminiModel + " or " + adapter.DefaultClaudeModel,
			Sources:     cli.EnvVars("COURSEGUIDE_MODEL"),
			Destination: &cfg.modelName,
		},
		&cli.DurationFlag{
			Name:        "model-timeout",
			Usage:       "Deadline for one model call, 0 for none",
			Sources:     cli.EnvVars("COURSEGUIDE_MODEL_TIMEOUT"),
			Destination: &cfg.modelTimeout,
		},
	}
}

// setupLogger builds the logger from flags, makes it the default and
// attaches it to ctx
func (cfg *config) setupLogger(ctx context.Context, w io.Writer) context.Context {
	logger := logging.New(cfg.logLevel, logging.ParseFormat(cfg.logFormat), w)
	logging.SetDefault(logger)
	return logging.With(ctx, logger)
}

// providerNames returns the display name and the credential variable of the
// selected provider
func (cfg *config) providerNames() (provider, credential string) {
	if cfg.provider == providerClaude {
		return "Claude", "ANTHROPIC_API_KEY"
	}
	return "Gemini", "GEMINI_API_KEY"
}

// newChatModel creates the selected provider. A missing credential returns
// an error tagged as a configuration error.
func (cfg *config) newChatModel(ctx context.Context) (adapter.ChatModel, error) {
	switch cfg.provider {
	case providerGemini, "":
		g, err := adapter.NewGemini(ctx, cfg.geminiAPIKey, adapter.WithGenerativeModel(cfg.modelName))
		if err != nil {
			return nil, err
		}
		return g, nil

	case providerClaude:
		c, err := adapter.NewClaude(cfg.anthropicAPIKey, adapter.WithClaudeModel(cfg.modelName))
		if err != nil {
			return nil, err
		}
		return c, nil

	default:
		return nil, goerr.New("unknown provider", goerr.V("provider", cfg.provider))
	}
}

// runtime bundles the objects shared by the serving commands
type runtime struct {
	instruction *prompt.Instruction
	store       *repository.Memory
	metrics     *metrics.Metrics
	chat        *chat.Service
}

// newRuntime loads catalog and template and wires the chat service around
// chatModel, which may be nil
func (cfg *config) newRuntime(ctx context.Context, chatModel adapter.ChatModel) (*runtime, error) {
	template, err := prompt.LoadTemplate(cfg.templatePath)
	if err != nil {
		return nil, err
	}

	catalogText := catalog.LoadText(ctx, cfg.catalogPath)
	instruction := prompt.NewInstruction(template, catalogText)

	logger := logging.From(ctx)
	m := metrics.New()
	store := repository.NewMemory(int(cfg.maxConversations),
		repository.WithEvictHook(func(id model.ConversationID) {
			m.IncEvictions()
			logger.Info("conversation evicted", "conversation_id", id)
		}),
	)

	svc := chat.New(chatModel, store, instruction,
		chat.WithRecorder(m),
		chat.WithTimeout(cfg.modelTimeout),
	)

	return &runtime{
		instruction: instruction,
		store:       store,
		metrics:     m,
		chat:        svc,
	}, nil
}
