// Package app wires configuration, storage, the job queue, and the AI
// services into one application instance shared by the CLI, the API server,
// and the worker.
package app

import (
	"context"
	"fmt"

	"tiletagger/internal/config"
	"tiletagger/internal/costtracker"
	"tiletagger/internal/services"
	"tiletagger/internal/store"
	"tiletagger/internal/store/sqlite"
	"tiletagger/pkg/tagger"

	"github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"
)

type App struct {
	Config *config.Config

	JobStore   store.JobStore
	CacheStore store.CacheStore
	UsageStore store.UsageStore
	JobClient  store.JobClient

	CostTracker costtracker.CostTracker
	Tagger      tagger.VisionTagger
	Taxonomy    tagger.Taxonomy

	AnalysisService *services.AnalysisService
	MapGenService   *services.MapGenService
	CostService     *services.CostService

	sqliteStore *sqlite.StoreImpl
}

func NewApp(cfg *config.Config) (*App, error) {
	ctx := context.Background()
	app := &App{Config: cfg, Taxonomy: tagger.DefaultTaxonomy()}

	if err := app.initStore(ctx); err != nil {
		return nil, err
	}
	if err := app.initJobClient(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initTagger(ctx); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}
	if err := app.initServices(); err != nil {
		app.cleanupPartialInit()
		return nil, err
	}

	log.Debug("Application initialization complete.")
	return app, nil
}

func (a *App) initStore(ctx context.Context) error {
	s, err := sqlite.NewStore(ctx, a.Config.Database.Path, a.Config.Cache.TTLSeconds, a.Config.Cache.MaxEntries)
	if err != nil {
		return fmt.Errorf("init store: %w", err)
	}
	a.sqliteStore = s
	a.JobStore = s
	a.UsageStore = s
	if a.Config.Cache.Enabled {
		a.CacheStore = s
	}
	a.CostTracker = costtracker.New(a.UsageStore)
	return nil
}

func (a *App) initJobClient() error {
	jc, err := store.NewAsynqJobClient(a.Config.Redis.Address, a.Config.Redis.Password, a.Config.Redis.DB, a.JobStore)
	if err != nil {
		return fmt.Errorf("init job client: %w", err)
	}
	a.JobClient = jc
	return nil
}

func (a *App) initTagger(ctx context.Context) error {
	cfg := a.Config

	var promptContent string
	if cfg.Tagging.PromptTemplate != "" {
		var err error
		promptContent, err = config.LoadPromptContent(cfg.Tagging.PromptTemplate, "tagging.txt")
		if err != nil {
			log.Warnf("Failed to load tagging prompt: %v. Falling back to the built-in prompt.", err)
			promptContent = ""
		}
	}

	switch cfg.Tagging.Provider {
	case "openai":
		if cfg.Tagging.OpenaiApiKey == "" {
			return fmt.Errorf("tagging provider is openai but no API key is configured (tagging.openai_api_key or OPENAI_API_KEY)")
		}
		client := openai.NewClient(cfg.Tagging.OpenaiApiKey)
		a.Tagger = tagger.NewOpenAITagger(client, cfg.Tagging.Model, promptContent, a.Taxonomy, cfg.Tagging.MaxAttempts, a.CostTracker, cfg.Pricing["openai"])
		log.Infof("OpenAI tagger initialized with model %s", cfg.Tagging.Model)
	case "gemini":
		gt, err := tagger.NewGeminiTagger(ctx, cfg.Tagging.GoogleApiKey, cfg.Tagging.Model, promptContent, a.Taxonomy, cfg.Tagging.MaxAttempts, a.CostTracker, cfg.Pricing["gemini"])
		if err != nil {
			return fmt.Errorf("init gemini tagger: %w", err)
		}
		a.Tagger = gt
	default:
		return fmt.Errorf("unknown tagging provider configured: %s", cfg.Tagging.Provider)
	}
	return nil
}

func (a *App) initServices() error {
	cfg := a.Config

	a.AnalysisService = services.NewAnalysisService(services.AnalysisServiceDeps{
		Tagger:            a.Tagger,
		Cache:             a.CacheStore,
		BatchSize:         cfg.Tagging.BatchSize,
		Threshold:         cfg.Tagging.ConfidenceThreshold,
		AdaptiveThreshold: cfg.Tagging.AdaptiveThreshold,
	})

	// Map generation always goes through OpenAI chat completions; it is a
	// text-only task so the vision provider choice does not apply.
	if cfg.Tagging.OpenaiApiKey != "" {
		var layoutPrompt string
		if cfg.MapGen.PromptTemplate != "" {
			var err error
			layoutPrompt, err = config.LoadPromptContent(cfg.MapGen.PromptTemplate, "layout.txt")
			if err != nil {
				log.Warnf("Failed to load layout prompt: %v. Falling back to the built-in prompt.", err)
				layoutPrompt = ""
			}
		}
		client := openai.NewClient(cfg.Tagging.OpenaiApiKey)
		a.MapGenService = services.NewMapGenService(client, cfg.MapGen.Model, layoutPrompt, cfg.MapGen.MaxAttempts, a.CostTracker, cfg.Pricing["openai"])
	} else {
		log.Warn("No OpenAI API key configured; map generation will be unavailable.")
		a.MapGenService = services.NewMapGenService(nil, cfg.MapGen.Model, "", cfg.MapGen.MaxAttempts, a.CostTracker, nil)
	}

	a.CostService = services.NewCostService(a.UsageStore)
	return nil
}

func (a *App) cleanupPartialInit() {
	if a.JobClient != nil {
		a.JobClient.Close()
	}
	if a.sqliteStore != nil {
		a.sqliteStore.Close()
	}
	if t, ok := a.Tagger.(interface{ Close() error }); ok && t != nil {
		if err := t.Close(); err != nil {
			log.Warnf("Error closing tagger: %v", err)
		}
	}
}

// Close releases the app's long-lived resources.
func (a *App) Close() {
	a.cleanupPartialInit()
}
