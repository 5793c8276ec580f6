package cli

import (
	"context"
	"fmt"

	"github.com/PabloGalante/chatflow/internal/adapters/llm"
	firestorestore "github.com/PabloGalante/chatflow/internal/adapters/storage/firestore"
	memstore "github.com/PabloGalante/chatflow/internal/adapters/storage/memory"
	sqlitestore "github.com/PabloGalante/chatflow/internal/adapters/storage/sqlite"
	"github.com/PabloGalante/chatflow/internal/app/actions"
	"github.com/PabloGalante/chatflow/internal/app/agentflow"
	"github.com/PabloGalante/chatflow/internal/app/projections"
	"github.com/PabloGalante/chatflow/internal/config"
	"github.com/PabloGalante/chatflow/internal/domain"
)

// store is what every storage backend implements.
type store interface {
	domain.ChatReader
	domain.ChatWriter
	domain.ProjectionStore
	domain.ProjectionReader
}

// app holds the wired pipeline for one command run.
type app struct {
	store        store
	router       *agentflow.Router
	orchestrator *agentflow.Orchestrator
	projections  *projections.Service
	closers      []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{}

	s, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.store = s
	if c, ok := s.(interface{ Close() error }); ok {
		a.closers = append(a.closers, c.Close)
	}

	gen, err := newGenerator(ctx, cfg.AI, cfg.GCP)
	if err != nil {
		a.Close()
		return nil, err
	}

	// Handlers always need a generator; without AI they find nothing.
	handlerGen := gen
	if handlerGen == nil {
		handlerGen = llm.NewMockClient()
	}

	registry := actions.NewDefaultRegistry(handlerGen, a.store)
	a.router = agentflow.NewRouter(gen, registry)
	a.orchestrator = agentflow.NewOrchestrator(
		agentflow.NewContextFetcher(a.store),
		a.router,
		agentflow.NewExecutor(registry),
		agentflow.Options{
			HistoryDepth:  cfg.Pipeline.HistoryDepth,
			AdaptiveDepth: cfg.Pipeline.AdaptiveDepth,
		},
	)
	a.projections = projections.NewService(a.store)

	log.Info().
		Str("storage", cfg.Storage.Backend).
		Str("ai_provider", cfg.AI.Provider).
		Str("ai_fallback", cfg.AI.FallbackProvider).
		Strs("actions", actionNames(registry)).
		Msg("pipeline ready")

	return a, nil
}

// Close releases the storage backend.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store, error) {
	switch cfg.Storage.Backend {
	case "sqlite":
		s, err := sqlitestore.Open(cfg.Storage.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		log.Info().Str("path", cfg.Storage.SQLitePath).Msg("using SQLite storage")
		return s, nil
	case "firestore":
		s, err := firestorestore.NewStore(ctx, cfg.GCP.Project)
		if err != nil {
			return nil, fmt.Errorf("initializing firestore store: %w", err)
		}
		log.Info().Str("project", cfg.GCP.Project).Msg("using Firestore storage")
		return s, nil
	default:
		log.Info().Msg("using in-memory storage")
		return memstore.NewStore(), nil
	}
}

// newGenerator builds the routing model client. A nil Generator means AI is
// disabled and routing falls back to keywords.
func newGenerator(ctx context.Context, ai config.AIConfig, gcp config.GCPConfig) (domain.Generator, error) {
	if !ai.Enabled() {
		return nil, nil
	}

	primary, err := newProvider(ctx, ai.Provider, ai, gcp)
	if err != nil {
		return nil, err
	}

	var gen domain.Generator = primary.Generator
	if ai.FallbackProvider != "" {
		secondary, err := newProvider(ctx, ai.FallbackProvider, ai, gcp)
		if err != nil {
			return nil, err
		}
		gen = llm.NewFailoverClient(primary, secondary)
	}

	if ai.RequestsPerSecond > 0 {
		gen = llm.NewRateLimitedClient(gen, ai.RequestsPerSecond, ai.Burst)
	}
	return gen, nil
}

func newProvider(ctx context.Context, name string, ai config.AIConfig, gcp config.GCPConfig) (llm.Provider, error) {
	switch name {
	case "gemini", "vertex":
		c, err := llm.NewGenAIClient(ctx, llm.GenAIOptions{
			Backend:     llm.Backend(name),
			APIKey:      ai.APIKey,
			Project:     gcp.Project,
			Location:    gcp.Location,
			Model:       ai.Model,
			Temperature: float32(ai.Temperature),
		})
		if err != nil {
			return llm.Provider{}, fmt.Errorf("initializing %s client: %w", name, err)
		}
		return llm.Provider{Name: name, Generator: c}, nil
	case "openai":
		c := llm.NewOpenAIClient(ai.OpenAIAPIKey, ai.OpenAIModel, float32(ai.Temperature))
		return llm.Provider{Name: name, Generator: c}, nil
	default:
		return llm.Provider{}, fmt.Errorf("unknown ai provider %q", name)
	}
}

func actionNames(r *actions.Registry) []string {
	names := r.Names()
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = string(n)
	}
	return out
}
