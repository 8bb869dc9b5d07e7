package main

import (
	"context"
	"errors"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/audit"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/model"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/pipeline"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/reasoner"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/source"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/store"
	"github.com/AndrewUlloa/personal-project-radar-sub000/internal/tasks"
)

// appEnv holds the store, pipeline, scorer and task runner shared by the
// enrich/retry/rescore/batch/worker/serve commands.
type appEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
	Scorer   *pipeline.Scorer
	Runner   *tasks.Runner
}

// Close releases the store.
func (e *appEnv) Close() {
	if e.Store != nil {
		if err := e.Store.Close(); err != nil {
			zap.L().Warn("close store", zap.Error(err))
		}
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "radar.db"
		}
		return store.NewSQLite(dsn)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// closeStore closes st, logging rather than returning the error; it suits
// deferred cleanup in read-only commands.
func closeStore(st store.Store) {
	if err := st.Close(); err != nil {
		zap.L().Warn("close store", zap.Error(err))
	}
}

// openStore validates store settings, connects and migrates. Callers close
// the returned store.
func openStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate(""); err != nil {
		return nil, err
	}
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initEnv validates cfg for mode and wires every component. A missing
// scoring key is tolerated outside "score", "worker" and "serve": scoring
// attempts then fail and are audited as scoring_error.
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := openStore(ctx)
	if err != nil {
		return nil, err
	}

	rec := audit.NewRecorder(st)
	reg := source.NewRegistry(cfg.Enrich, source.NewClients(cfg))

	p := pipeline.New(st, rec, reg.Adapters(),
		pipeline.WithAdapterTimeout(cfg.Enrich.AdapterTimeout()),
		pipeline.WithConcurrency(cfg.Enrich.MaxConcurrentAdapters),
		pipeline.WithScoringDelay(cfg.Scoring.Delay()),
		pipeline.WithPreflight(reg.Preflight),
	)

	r, err := reasoner.New(cfg)
	if err != nil {
		if !errors.Is(err, reasoner.ErrNotConfigured) {
			_ = st.Close()
			return nil, eris.Wrap(err, "init reasoner")
		}
		zap.L().Warn("scoring provider not configured, scoring tasks will fail",
			zap.String("provider", cfg.Scoring.Provider),
			zap.Error(err),
		)
		r = nil
	}
	scorer := pipeline.NewScorer(st, rec, r)

	runner := tasks.NewRunner(st,
		tasks.WithWorkers(cfg.Tasks.Workers),
		tasks.WithPollInterval(cfg.Tasks.PollInterval()),
		tasks.WithBatchSize(cfg.Tasks.BatchSize),
	)
	runner.Handle(model.TaskScoreCompany, scorer)

	return &appEnv{
		Store:    st,
		Pipeline: p,
		Scorer:   scorer,
		Runner:   runner,
	}, nil
}
