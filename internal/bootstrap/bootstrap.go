package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/askerfotball/club-assistant/internal/config"
	"github.com/askerfotball/club-assistant/internal/core/domain"
	"github.com/askerfotball/club-assistant/internal/core/ports"
	"github.com/askerfotball/club-assistant/internal/core/usecase"
	"github.com/askerfotball/club-assistant/internal/infrastructure/chunking"
	"github.com/askerfotball/club-assistant/internal/infrastructure/classify"
	"github.com/askerfotball/club-assistant/internal/infrastructure/index"
	"github.com/askerfotball/club-assistant/internal/infrastructure/ingest"
	"github.com/askerfotball/club-assistant/internal/infrastructure/llm/openai"
	"github.com/askerfotball/club-assistant/internal/infrastructure/queue/nats"
	"github.com/askerfotball/club-assistant/internal/infrastructure/registry/postgres"
	"github.com/askerfotball/club-assistant/internal/infrastructure/resilience"
	"github.com/askerfotball/club-assistant/internal/infrastructure/vector/sparse"
)

// clubNames are stripped from queries before synonym matching; almost
// every question names the club without narrowing the topic.
var clubNames = []string{"asker fotball", "asker fk", "føyka"}

type App struct {
	Config config.Config
	Log    *slog.Logger

	Queue    ports.MessageQueue
	Registry ports.BuildRegistry
	Store    ports.IndexStore
	Index    *index.Manager

	AnswerUC ports.QuestionAnswerer
	BuildUC  ports.IndexBuilder

	closeFn func()
}

func New(ctx context.Context, cfg config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	registry := postgres.NewBuildRegistry(db)
	if err := registry.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultPolicy(), log)

	queue, err := nats.Connect(cfg.NATSURL, nats.Options{
		Subject:  cfg.NATSSubject,
		Executor: executor,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("connect queue: %w", err)
	}

	var client *openai.Client
	if cfg.OpenAIAPIKey != "" {
		client = openai.NewClient(openai.Config{
			BaseURL:    cfg.OpenAIBaseURL,
			APIKey:     cfg.OpenAIAPIKey,
			ChatModel:  cfg.OpenAIChatModel,
			EmbedModel: cfg.OpenAIEmbedModel,
		}, executor, log)
	}

	mode := domain.IndexMode(cfg.IndexMode)
	var embedder ports.Embedder
	if mode == domain.ModeDense {
		embedder = client
	}
	var generator ports.AnswerGenerator
	if cfg.GenerationEnabled {
		generator = client
	}

	store := index.NewFSStore(cfg.DataDir)
	manager := index.NewManager(store, embedder, log)

	table := usecase.DefaultSynonymTable()
	if cfg.SynonymsPath != "" {
		table, err = usecase.LoadSynonymTable(cfg.SynonymsPath)
		if err != nil {
			return nil, fmt.Errorf("load synonyms: %w", err)
		}
	}
	expander := usecase.NewExpander(table, clubNames)

	params := usecase.RerankParams{
		CategoryBonus: cfg.CategoryBonus,
		TermBonus:     cfg.TermBonus,
		TermBonusCap:  cfg.TermBonusCap,
		MinScore:      cfg.MinScore,
	}
	answerUC := usecase.NewAnswerUseCase(manager, expander, generator, params, cfg.TopK)

	buildUC := usecase.NewBuildUseCase(
		ingest.NewLoader(cfg.KBDirs, log),
		chunking.NewSplitter(cfg.ChunkSize, cfg.ChunkOverlap),
		classify.NewKeywordClassifier(),
		sparse.NewVectorizer(cfg.MaxFeatures),
		embedder,
		store,
		registry,
		mode,
	)

	return &App{
		Config:   cfg,
		Log:      log,
		Queue:    queue,
		Registry: registry,
		Store:    store,
		Index:    manager,
		AnswerUC: answerUC,
		BuildUC:  buildUC,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
