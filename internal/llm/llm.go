// Package llm talks to the hosted text/vision models used to generate and
// read challenge text.
package llm

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"
)

var (
	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("model returned no text")
	// ErrDisabled is returned by the client used when no provider is configured.
	ErrDisabled = errors.New("no model provider configured")
)

// Client is a hosted model able to answer text prompts and read images.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
	Vision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
	Name() string
}

// Observer is told how long each upstream call took.
type Observer interface {
	ObserveUpstream(op string, took time.Duration)
}

// Disabled answers every call with ErrDisabled, sending callers straight to
// their local fallback.
type Disabled struct{}

func (Disabled) Complete(context.Context, string) (string, error) { return "", ErrDisabled }
func (Disabled) Vision(context.Context, string, []byte, string) (string, error) {
	return "", ErrDisabled
}
func (Disabled) Name() string { return "none" }

// Limited throttles calls to next and reports their latency.
type Limited struct {
	next    Client
	limiter *rate.Limiter
	obs     Observer
}

// NewLimited allows perSecond calls with a burst of the same size. A
// non-positive rate disables throttling. obs may be nil.
func NewLimited(next Client, perSecond float64, obs Observer) *Limited {
	lim := rate.NewLimiter(rate.Inf, 0)
	if perSecond > 0 {
		burst := int(perSecond)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
	return &Limited{next: next, limiter: lim, obs: obs}
}

func (l *Limited) Complete(ctx context.Context, prompt string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	start := time.Now()
	out, err := l.next.Complete(ctx, prompt)
	l.observe("complete", start)
	return out, err
}

func (l *Limited) Vision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	start := time.Now()
	out, err := l.next.Vision(ctx, prompt, image, mimeType)
	l.observe("vision", start)
	return out, err
}

func (l *Limited) Name() string { return l.next.Name() }

func (l *Limited) observe(op string, start time.Time) {
	if l.obs != nil {
		l.obs.ObserveUpstream(op, time.Since(start))
	}
}
