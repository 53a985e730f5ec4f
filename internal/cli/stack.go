package cli

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/easeaico/context-agent/internal/config"
	"github.com/easeaico/context-agent/internal/fetch"
	"github.com/easeaico/context-agent/internal/hosting"
	"github.com/easeaico/context-agent/internal/llm"
	"github.com/easeaico/context-agent/internal/memory"
	"github.com/easeaico/context-agent/internal/resolve"
	"github.com/easeaico/context-agent/internal/service"
)

// stack holds every component built from one configuration. Commands take
// what they need and call close when done.
type stack struct {
	cfg    config.Config
	logger *zap.Logger

	store    memory.Store
	memory   *memory.Service
	resolver *resolve.Resolver
	fetcher  *fetch.Fetcher
}

func openStore(ctx context.Context, cfg config.Config) (memory.Store, error) {
	switch cfg.DBType {
	case "postgres":
		return memory.NewPostgresStore(ctx, cfg.DatabaseURL, memory.PostgresOptions{
			Collection:  cfg.Collection,
			MaxDistance: cfg.MaxDistance,
		})
	case "sqlite":
		return memory.NewSQLiteStore(ctx, cfg.DatabaseURL, memory.SQLiteOptions{
			Collection:  cfg.Collection,
			MaxDistance: cfg.MaxDistance,
		})
	default:
		return nil, fmt.Errorf("unsupported DB_TYPE: %s", cfg.DBType)
	}
}

// newStack builds the memory, resolver and fetcher components.
func newStack(ctx context.Context, cfg config.Config, logger *zap.Logger) (*stack, error) {
	embedder, err := llm.NewEmbedder(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open memory store: %w", err)
	}

	logger.Debug("memory store opened",
		zap.String("db_type", cfg.DBType),
		zap.String("collection", cfg.Collection),
		zap.String("embedder", cfg.EmbedProvider))

	return &stack{
		cfg:    cfg,
		logger: logger,
		store:  store,
		memory: memory.NewService(store, embedder, logger.Named("memory")),
		resolver: resolve.New(resolve.Hosts{
			Web:    cfg.GitHubWebHost,
			Raw:    cfg.GitHubRawHost,
			APIURL: cfg.GitHubAPIURL,
		}),
		fetcher: fetch.New(fetch.Options{
			Token:  cfg.GitHubToken,
			Logger: logger.Named("fetch"),
		}),
	}, nil
}

// agent builds the conversational pipeline on top of the stack.
func (s *stack) agent(ctx context.Context) (*service.Agent, error) {
	completer, err := llm.NewCompleter(ctx, s.cfg, s.logger.Named("llm"))
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}
	return service.NewAgent(s.memory, s.resolver, s.fetcher, completer, s.logger.Named("agent")), nil
}

func (s *stack) close() {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("failed to close memory store", zap.Error(err))
	}
	_ = s.logger.Sync()
}

// mustStack loads configuration and builds the stack, exiting on failure.
func mustStack(ctx context.Context) *stack {
	cfg, err := loadConfig()
	if err != nil {
		exitErr("config", err)
	}
	logger := newLogger(cfg)

	s, err := newStack(ctx, cfg, logger)
	if err != nil {
		exitErr("startup", err)
	}
	return s
}

// newCommands builds the repository write commands. They need no memory
// store or model.
func newCommands(cfg config.Config, logger *zap.Logger) *service.Commands {
	client := hosting.New(hosting.Options{
		Token:   cfg.GitHubToken,
		BaseURL: cfg.GitHubAPIURL,
		Logger:  logger.Named("hosting"),
	})
	return service.NewCommands(client, cfg.GitHubWebHost, logger)
}
