package main

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/provider-cli/internal/config"
	"github.com/sells-group/provider-cli/internal/pipeline"
	"github.com/sells-group/provider-cli/internal/resilience"
	"github.com/sells-group/provider-cli/internal/store"
	anthropicpkg "github.com/sells-group/provider-cli/pkg/anthropic"
	"github.com/sells-group/provider-cli/pkg/nppes"
)

// envOptions select live or fixture-backed services.
type envOptions struct {
	Offline  bool
	Fixtures string
}

// pipelineEnv holds the store and pipeline used by process, validate, and
// serve.
type pipelineEnv struct {
	Store    store.Store
	Pipeline *pipeline.Pipeline
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	if pe.Store != nil {
		_ = pe.Store.Close()
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store)
}

// initPipeline validates config for mode, opens the store, and builds the
// pipeline. Callers should defer env.Close().
func initPipeline(ctx context.Context, mode string, opts envOptions) (*pipelineEnv, error) {
	if opts.Offline {
		mode = config.ModeOffline
	}
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	registry, registryGuard, text, err := initServices(opts)
	if err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	p := pipeline.New(registry, registryGuard, text, pipeline.PromptSettingsFromConfig(cfg.Anthropic),
		pipeline.WithStore(st),
		pipeline.WithPersistConcurrency(cfg.Batch.PersistConcurrency),
	)

	return &pipelineEnv{Store: st, Pipeline: p}, nil
}

// initServices returns the registry client, its guard, and the text
// generator. Offline mode uses fixtures and needs no credentials.
func initServices(opts envOptions) (nppes.Client, *resilience.Guard, pipeline.TextGenerator, error) {
	if opts.Offline {
		var fixtures *pipeline.Fixtures
		if opts.Fixtures != "" {
			f, err := pipeline.LoadFixtures(opts.Fixtures)
			if err != nil {
				return nil, nil, nil, err
			}
			fixtures = f
		}
		zap.L().Info("offline mode: using fixture registry and canned text replies",
			zap.String("fixtures", opts.Fixtures),
		)
		return pipeline.NewStubRegistry(fixtures), nil, pipeline.NewStubTextGenerator(fixtures), nil
	}

	retry := resilience.FromRetryConfig(cfg.Retry)
	circuit := resilience.FromCircuitConfig(cfg.Circuit)

	registry := nppes.NewClient(
		nppes.WithBaseURL(cfg.Registry.BaseURL),
		nppes.WithVersion(cfg.Registry.Version),
		nppes.WithTimeout(cfg.Registry.Timeout()),
		nppes.WithRateLimit(cfg.Registry.RequestsPerSecond),
	)
	registryGuard := resilience.NewGuard(pipeline.ServiceRegistry, retry, circuit)

	client := anthropicpkg.NewClient(cfg.Anthropic.Key,
		anthropicpkg.WithBaseURL(cfg.Anthropic.BaseURL),
		anthropicpkg.WithRequestTimeout(cfg.Anthropic.Timeout()),
	)
	text := pipeline.NewAnthropicGenerator(client, cfg.Anthropic.Model, cfg.Anthropic.Timeout(),
		resilience.NewGuard(pipeline.ServiceText, retry, circuit),
	).WithRateLimit(cfg.Anthropic.RequestsPerSecond)

	return registry, registryGuard, text, nil
}
