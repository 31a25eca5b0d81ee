package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoClient struct{}

func (echoClient) Complete(_ context.Context, prompt string) (string, error) { return prompt, nil }
func (echoClient) Vision(_ context.Context, prompt string, image []byte, mime string) (string, error) {
	return prompt + ":" + mime + ":" + string(image), nil
}
func (echoClient) Name() string { return "echo" }

type recordingObserver struct {
	mu  sync.Mutex
	ops []string
}

func (r *recordingObserver) ObserveUpstream(op string, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}

func TestLimitedPassesThroughAndObserves(t *testing.T) {
	obs := &recordingObserver{}
	l := NewLimited(echoClient{}, 0, obs)
	ctx := context.Background()

	out, err := l.Complete(ctx, "hi")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	out, err = l.Vision(ctx, "read", []byte("px"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "read:image/png:px", out)

	assert.Equal(t, []string{"complete", "vision"}, obs.ops)
	assert.Equal(t, "echo", l.Name())
}

func TestLimitedHonoursContext(t *testing.T) {
	l := NewLimited(echoClient{}, 0.001, nil)
	ctx := context.Background()

	_, err := l.Complete(ctx, "first")
	require.NoError(t, err, "the burst admits one call")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
	defer cancel()
	_, err = l.Complete(ctx, "second")
	assert.Error(t, err)
}

func TestDisabled(t *testing.T) {
	var c Client = Disabled{}
	_, err := c.Complete(context.Background(), "x")
	assert.True(t, errors.Is(err, ErrDisabled))
	_, err = c.Vision(context.Background(), "x", nil, "image/png")
	assert.True(t, errors.Is(err, ErrDisabled))
	assert.Equal(t, "none", c.Name())
}

func TestNewProvider(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, ProviderGemini, "", "")
	require.NoError(t, err)
	assert.IsType(t, Disabled{}, c, "no key means no provider")

	c, err = New(ctx, ProviderOpenAI, "sk-test", "")
	require.NoError(t, err)
	assert.Equal(t, "openai:"+DefaultOpenAIModel, c.Name())

	_, err = New(ctx, "mystery", "key", "")
	assert.Error(t, err)
}
