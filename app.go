package main

import (
	"context"
	"fmt"

	"github.com/fmuoria/candidate-ranker/internal/agent"
	"github.com/fmuoria/candidate-ranker/internal/config"
	"github.com/fmuoria/candidate-ranker/internal/llm"
	"github.com/fmuoria/candidate-ranker/internal/logging"
	"github.com/fmuoria/candidate-ranker/internal/metrics"
	"github.com/fmuoria/candidate-ranker/internal/scoring"
	"github.com/fmuoria/candidate-ranker/internal/store"
)

// app holds the components shared by every command
type app struct {
	cfg     *config.Config
	log     *logging.Logger
	metrics *metrics.Metrics
	repo    store.Repository
	llm     *llm.VertexAIClient
	agent   *agent.RankingAgent
}

// loadConfig reads the config file named by --config, or the default one
func loadConfig() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newApp wires storage, the optional Vertex AI scorer and the ranking agent
func newApp(ctx context.Context) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		log:     logging.New(cfg.LogLevel),
		metrics: metrics.New(),
	}

	if cfg.DatabaseURL != "" {
		a.repo, err = store.Connect(ctx, cfg.DatabaseURL)
	} else {
		a.repo, err = store.NewFileStore(cfg.DataPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open candidate store: %w", err)
	}

	var scorer scoring.Scorer
	if cfg.ScoringEnabled() {
		a.llm, err = llm.NewVertexAIClient(ctx, llm.Options{
			Project:         cfg.GoogleCloudProject,
			Location:        cfg.GoogleCloudLocation,
			Model:           cfg.Model,
			CredentialsPath: cfg.GoogleCredentialsPath,
		})
		if err != nil {
			a.repo.Close()
			return nil, err
		}
		scorer = scoring.NewBreakerScorer(scoring.NewLLMScorer(a.llm), cfg.Scoring.Breaker, a.log)
		a.log.Info("Scoring enabled", "project", cfg.GoogleCloudProject, "model", cfg.Model)
	} else {
		a.log.Warn("GOOGLE_CLOUD_PROJECT not set, scoring disabled")
	}

	a.agent = agent.NewRankingAgent(a.repo, scorer, agent.OptionsFromConfig(cfg.Scoring), a.log, a.metrics)
	return a, nil
}

func (a *app) Close() {
	if a.llm != nil {
		if err := a.llm.Close(); err != nil {
			a.log.Warn("Failed to close Vertex AI client", "error", err)
		}
	}
	if err := a.repo.Close(); err != nil {
		a.log.Warn("Failed to close candidate store", "error", err)
	}
	_ = a.log.Sync()
}
