package challenge

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"textCaptchaAuth/internal/metrics"
)

// TextSource produces challenge answers. It must always return a usable string.
type TextSource interface {
	Next(ctx context.Context) string
}

// Renderer turns an answer into a transport-ready image string.
type Renderer interface {
	RenderDataURI(text string) (string, error)
}

// Service issues and verifies challenges.
type Service struct {
	text    TextSource
	render  Renderer
	store   Store
	metrics *metrics.Metrics
	logger  *zap.Logger
	newID   func() string
}

// NewService wires a Service. metrics and logger may be nil.
func NewService(text TextSource, render Renderer, store Store, m *metrics.Metrics, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		text:    text,
		render:  render,
		store:   store,
		metrics: m,
		logger:  logger,
		newID:   func() string { return uuid.New().String() },
	}
}

// Create generates a new challenge and records its normalized answer.
// The only error it returns comes from the store.
func (s *Service) Create(ctx context.Context) (*Challenge, error) {
	text := s.text.Next(ctx)

	img, err := s.render.RenderDataURI(text)
	if err != nil {
		// Rendering only fails on PNG encoding; retry once with a fresh draw.
		s.logger.Warn("render failed, retrying", zap.Error(err))
		if img, err = s.render.RenderDataURI(text); err != nil {
			return nil, err
		}
	}

	id := s.newID()
	if err := s.store.Put(ctx, id, Normalize(text)); err != nil {
		return nil, err
	}
	s.metrics.IncChallengesCreated()
	s.logger.Debug("challenge created", zap.String("id", id), zap.String("answer", Normalize(text)))

	return &Challenge{ID: id, Text: text, Image: img}, nil
}

// Verify compares submitted against the stored answer for id. A match consumes
// the challenge; a miss or unknown id leaves the store untouched.
func (s *Service) Verify(ctx context.Context, id, submitted string) Result {
	ok, err := s.store.Consume(ctx, id, Normalize(submitted))
	if err != nil {
		s.logger.Error("verify failed", zap.String("id", id), zap.Error(err))
		ok = false
	}
	res := Wrong
	if ok {
		res = Correct
	}
	s.metrics.IncVerification(string(res))
	s.logger.Debug("challenge verified", zap.String("id", id), zap.String("result", string(res)))
	return res
}

// Lookup reports whether id is live, without consuming it.
func (s *Service) Lookup(ctx context.Context, id string) (bool, error) {
	_, err := s.store.Peek(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}
