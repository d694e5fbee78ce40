package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jonwraymond/embedcache/cache"
	"github.com/jonwraymond/embedcache/config"
	"github.com/jonwraymond/embedcache/observe"
	"github.com/jonwraymond/embedcache/remote"
)

// computer is everything the commands need from the remote service.
type computer interface {
	cache.Embedder
	cache.BatchEmbedder
	cache.Generator
	Ping(ctx context.Context) error
}

// app carries the state shared by the commands of one invocation.
type app struct {
	configPath string
	dir        string
	op         string

	cfg   config.Config
	tel   *observe.Telemetry
	store cache.Store
	opts  []cache.Option

	// newComputer builds the remote adapter. Tests replace it.
	newComputer func(cfg config.Config) (computer, error)

	shutdown func(context.Context) error
}

func newApp() *app {
	return &app{
		newComputer: newRemote,
		shutdown:    func(context.Context) error { return nil },
	}
}

func newRemote(cfg config.Config) (computer, error) {
	return remote.New(remote.Config{
		APIKey:         cfg.Remote.APIKey,
		BaseURL:        cfg.Remote.BaseURL,
		EmbeddingModel: cfg.Remote.EmbeddingModel,
		Dimensions:     dimensionsFor(cfg),
		ChatModel:      cfg.Remote.ChatModel,
		SystemPrompt:   cfg.Remote.SystemPrompt,
		RequestTimeout: cfg.Remote.RequestTimeout,
	})
}

// dimensionsFor only requests shortened embeddings when the configured
// dimension differs from the model's native one.
func dimensionsFor(cfg config.Config) int {
	if cfg.Cache.Dimension == cache.DefaultDimension {
		return 0
	}
	return cfg.Cache.Dimension
}

// setup loads the configuration and builds telemetry, the store and the cache
// options. It runs before every command. Log lines go to logs.
func (a *app) setup(ctx context.Context, logs io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dir != "" {
		cfg.Cache.Dir = a.dir
	}
	cfg.Observe.Logging.Writer = logs
	a.cfg = cfg

	obs, err := observe.NewObserver(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	a.shutdown = obs.Shutdown

	tel, err := observe.TelemetryFromObserver(obs)
	if err != nil {
		return fmt.Errorf("observe: %w", err)
	}
	a.tel = tel
	a.store = cfg.Cache.NewStore(tel)
	a.opts = []cache.Option{
		cache.WithTelemetry(tel),
		cache.WithInvoker(cfg.Retry.Executor(tel)),
		cache.WithDimension(cfg.Cache.Dimension),
		cache.WithWorkers(cfg.Cache.Workers),
		cache.WithMapName(cfg.Cache.MapName),
	}
	return nil
}

// callOptions returns the per-call options selected by flags.
func (a *app) callOptions() []cache.CallOption {
	var opts []cache.CallOption
	if a.op != "" {
		opts = append(opts, cache.WithOp(a.op))
	}
	return opts
}

func (a *app) computer() (computer, error) {
	c, err := a.newComputer(a.cfg)
	if errors.Is(err, remote.ErrMissingAPIKey) {
		return nil, fmt.Errorf("%w: set %s or remote.api_key", err, config.EnvAPIKey)
	}
	return c, err
}

func (a *app) close(ctx context.Context) error {
	return a.shutdown(ctx)
}
