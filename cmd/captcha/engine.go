package main

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"textCaptchaAuth/internal/challenge"
	"textCaptchaAuth/internal/config"
	"textCaptchaAuth/internal/llm"
	"textCaptchaAuth/internal/metrics"
	"textCaptchaAuth/internal/ocr"
	"textCaptchaAuth/internal/render"
	"textCaptchaAuth/internal/solver"
	"textCaptchaAuth/internal/textgen"
)

// engine is everything both front ends share.
type engine struct {
	challenges *challenge.Service
	solver     *solver.Solver
	registry   *prometheus.Registry
	health     func(ctx context.Context) error
	close      func()
}

func buildEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*engine, error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	model, err := llm.New(ctx, cfg.LLM.Provider, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, err
	}
	client := llm.NewLimited(model, cfg.LLM.RatePerSecond, m)

	// Without a provider both consumers skip the model entirely.
	var (
		completer textgen.Completer
		vision    solver.Vision
	)
	if _, disabled := model.(llm.Disabled); disabled {
		logger.Warn("no model provider configured, using local text and OCR only")
	} else {
		completer, vision = client, client
	}

	store, health, closeStore, err := buildStore(ctx, cfg.Store)
	if err != nil {
		return nil, err
	}

	gen := textgen.New(completer, textgen.WithMetrics(m), textgen.WithLogger(logger.Named("textgen")))
	obf := render.New(render.DefaultConfig(), logger.Named("render"))
	svc := challenge.NewService(gen, obf, store, m, logger.Named("challenge"))

	sol := solver.New(
		vision,
		ocr.NewTesseract(cfg.OCR.Command, challenge.Alphabet),
		solver.AcceptancePolicy{MinLength: cfg.Solver.MinAILength},
		m,
		logger.Named("solver"),
	)

	logger.Info("engine ready",
		zap.String("model", client.Name()),
		zap.String("store", cfg.Store.Backend),
		zap.Duration("ttl", cfg.Store.TTL),
	)
	return &engine{
		challenges: svc,
		solver:     sol,
		registry:   reg,
		health:     health,
		close:      closeStore,
	}, nil
}

func buildStore(ctx context.Context, cfg config.StoreConfig) (challenge.Store, func(context.Context) error, func(), error) {
	if cfg.Backend != "redis" {
		store := challenge.NewMemoryStore(challenge.WithMemoryTTL(cfg.TTL))
		if cfg.TTL <= 0 {
			return store, nil, func() {}, nil
		}
		return store, nil, store.StartSweeper(sweepInterval(cfg.TTL)), nil
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("parse redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, nil, fmt.Errorf("redis ping failed: %w", err)
	}
	store := challenge.NewRedisStore(client, cfg.TTL)
	return store, store.Health, func() { _ = client.Close() }, nil
}

// sweepInterval runs the memory sweeper once per TTL, but no more often than
// every 10ms.
func sweepInterval(ttl time.Duration) time.Duration {
	return max(ttl, 10*time.Millisecond)
}
