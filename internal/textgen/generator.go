// Package textgen produces challenge answers, asking a language model first
// and falling back to local randomness.
package textgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"go.uber.org/zap"

	"textCaptchaAuth/internal/challenge"
	"textCaptchaAuth/internal/metrics"
)

// DefaultAttempts bounds the number of model requests per Next call.
const DefaultAttempts = 5

// recentInPrompt caps how many previous answers are quoted back to the model.
const recentInPrompt = 20

// Completer is the text half of the upstream language model.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Generator hands out 6-character alphanumeric answers.
//
// Answers accepted from the model are remembered for the life of the
// process and never accepted again. Locally generated answers bypass that
// memory, so they can repeat.
type Generator struct {
	llm      Completer
	attempts int
	metrics  *metrics.Metrics
	logger   *zap.Logger

	mu     sync.Mutex
	seen   map[string]struct{}
	recent []string
	rng    *rand.Rand
}

type Option func(*Generator)

// WithAttempts overrides DefaultAttempts.
func WithAttempts(n int) Option {
	return func(g *Generator) { g.attempts = n }
}

// WithRand makes the local fallback draw from r.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Generator) { g.metrics = m }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// New builds a Generator. llm may be nil, in which case every answer is local.
func New(llm Completer, opts ...Option) *Generator {
	g := &Generator{
		llm:      llm,
		attempts: DefaultAttempts,
		logger:   zap.NewNop(),
		seen:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Next returns a fresh answer. It never fails.
func (g *Generator) Next(ctx context.Context) string {
	if g.llm != nil {
		for i := 0; i < g.attempts; i++ {
			text, err := g.llm.Complete(ctx, g.prompt())
			if err != nil {
				g.logger.Warn("text generation failed, using local fallback",
					zap.Int("attempt", i+1), zap.Error(err))
				break
			}
			text = challenge.Clean(text)
			if len(text) != challenge.AnswerLength {
				g.logger.Debug("discarding short model answer", zap.String("text", text))
				continue
			}
			if g.remember(text) {
				g.metrics.IncTextSource("ai")
				return text
			}
			g.logger.Debug("model repeated a recent answer", zap.String("text", text))
		}
	}
	g.metrics.IncTextSource("local")
	return g.Local()
}

// Local draws AnswerLength characters uniformly from the alphabet.
func (g *Generator) Local() string {
	var b strings.Builder
	b.Grow(challenge.AnswerLength)
	g.mu.Lock()
	defer g.mu.Unlock()
	for i := 0; i < challenge.AnswerLength; i++ {
		b.WriteByte(challenge.Alphabet[g.intN(len(challenge.Alphabet))])
	}
	return b.String()
}

// Seen reports whether text was already handed out by the model path.
func (g *Generator) Seen(text string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.seen[challenge.Normalize(text)]
	return ok
}

// remember records text and reports whether it was new.
func (g *Generator) remember(text string) bool {
	key := challenge.Normalize(text)
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[key]; ok {
		return false
	}
	g.seen[key] = struct{}{}
	g.recent = append(g.recent, text)
	if len(g.recent) > recentInPrompt {
		g.recent = g.recent[len(g.recent)-recentInPrompt:]
	}
	return true
}

func (g *Generator) prompt() string {
	g.mu.Lock()
	recent := strings.Join(g.recent, ", ")
	g.mu.Unlock()

	p := fmt.Sprintf("Generate one random %d-character alphanumeric CAPTCHA string mixing upper-case letters, "+
		"lower-case letters and digits. Reply with the string only.", challenge.AnswerLength)
	if recent != "" {
		p += " It must differ from: " + recent + "."
	}
	return p
}

func (g *Generator) intN(n int) int {
	if g.rng != nil {
		return g.rng.IntN(n)
	}
	return rand.IntN(n)
}
