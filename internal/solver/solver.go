// Package solver attempts to read a rendered challenge without knowing its
// answer: a vision model guesses first, OCR is the fallback.
package solver

import (
	"context"
	"fmt"
	"image"
	"time"

	"go.uber.org/zap"

	"textCaptchaAuth/internal/challenge"
	"textCaptchaAuth/internal/metrics"
	"textCaptchaAuth/internal/ocr"
	"textCaptchaAuth/internal/render"
)

// Source names the strategy that produced a guess.
type Source string

const (
	SourceAI    Source = "AI"
	SourceOCR   Source = "OCR"
	SourceError Source = "Error"
)

// ErrorGuess is reported when no strategy produced text.
const ErrorGuess = "Error"

const visionPrompt = "This image is a CAPTCHA with distorted alphanumeric characters on a noisy background. " +
	"Read it and reply with your best single guess of the characters only, no spaces or explanation."

// Result is what Solve returns.
type Result struct {
	Guess  string `json:"guess"`
	Source Source `json:"source"`
}

// Vision is the image-reading half of the upstream model.
type Vision interface {
	Vision(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// AcceptancePolicy decides whether a sanitized model guess is trusted.
type AcceptancePolicy struct {
	MinLength int
}

// DefaultPolicy trusts guesses of at least 4 characters.
var DefaultPolicy = AcceptancePolicy{MinLength: 4}

// Accept reports whether guess is confident enough to skip OCR.
func (p AcceptancePolicy) Accept(guess string) bool {
	return guess != "" && len(guess) >= p.MinLength
}

// Solver runs the two-step pipeline.
type Solver struct {
	vision  Vision
	ocr     ocr.Engine
	policy  AcceptancePolicy
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// New builds a Solver. vision may be nil to go straight to OCR.
func New(vision Vision, engine ocr.Engine, policy AcceptancePolicy, m *metrics.Metrics, logger *zap.Logger) *Solver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solver{vision: vision, ocr: engine, policy: policy, metrics: m, logger: logger}
}

// Solve reads the data-URI (or bare base64) image. It never returns an error;
// failures are reported as {Error, Error}.
func (s *Solver) Solve(ctx context.Context, imageData string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("solver panicked", zap.Any("panic", r))
			res = Result{Guess: ErrorGuess, Source: SourceError}
		}
		s.metrics.IncSolve(string(res.Source))
	}()

	img, raw, mime, err := render.DecodeImage(imageData)
	if err != nil {
		s.logger.Warn("cannot decode challenge image", zap.Error(err))
		return Result{Guess: ErrorGuess, Source: SourceError}
	}

	if guess := s.askModel(ctx, raw, mime); s.policy.Accept(guess) {
		return Result{Guess: guess, Source: SourceAI}
	}

	guess, err := s.readOCR(ctx, img)
	if err != nil {
		s.logger.Warn("ocr failed", zap.Error(err))
		return Result{Guess: ErrorGuess, Source: SourceError}
	}
	if guess == "" {
		guess = ErrorGuess
	}
	return Result{Guess: guess, Source: SourceOCR}
}

// askModel returns the sanitized model guess, or "" when the model is absent
// or fails. A failed call is treated like a low-confidence answer.
func (s *Solver) askModel(ctx context.Context, raw []byte, mime string) string {
	if s.vision == nil {
		return ""
	}
	out, err := s.vision.Vision(ctx, visionPrompt, raw, mime)
	if err != nil {
		s.logger.Warn("vision model failed, falling back to ocr", zap.Error(err))
		return ""
	}
	guess := challenge.Sanitize(out)
	if !s.policy.Accept(guess) {
		s.logger.Debug("model guess rejected", zap.String("guess", guess), zap.Int("min_length", s.policy.MinLength))
	}
	return guess
}

func (s *Solver) readOCR(ctx context.Context, img image.Image) (string, error) {
	if s.ocr == nil {
		return "", fmt.Errorf("%w: no engine configured", ocr.ErrUnavailable)
	}
	start := time.Now()
	out, err := s.ocr.Recognize(ctx, ocr.Grayscale(img))
	s.metrics.ObserveUpstream("ocr", time.Since(start))
	if err != nil {
		return "", err
	}
	return challenge.Sanitize(out), nil
}
