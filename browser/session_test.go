package browser

import (
	"context"
	"testing"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var _ Driver = (*Session)(nil)

// newStubSession builds a Session without a running browser. Close is safe:
// the cancel funcs are plain context cancels.
func newStubSession() *Session {
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		ctx:         ctx,
		cancel:      cancel,
		allocCtx:    ctx,
		allocCancel: cancel,
		config:      DefaultConfig(),
		logger:      zap.NewNop(),
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.True(t, cfg.Headless)
	assert.Equal(t, 1920, cfg.ViewportWidth)
	assert.Equal(t, 1080, cfg.ViewportHeight)
	assert.Equal(t, 30*time.Second, cfg.NavTimeout)
}

func TestMatchOption(t *testing.T) {
	// Query options are funcs, so assert presence rather than identity; an
	// unknown By falls back to CSS matching.
	var opts = []chromedp.QueryOption{
		matchOption(ByCSS),
		matchOption(ByXPath),
		matchOption(By("")),
	}
	for i, opt := range opts {
		assert.NotNil(t, opt, "option %d", i)
	}
}

func TestStepContext(t *testing.T) {
	s := newStubSession()
	defer s.Close()

	tctx, cancel := s.stepContext(10 * time.Millisecond)
	defer cancel()
	deadline, ok := tctx.Deadline()
	assert.True(t, ok)
	assert.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 50*time.Millisecond)

	// No timeout means the session context itself.
	uctx, cancel2 := s.stepContext(0)
	defer cancel2()
	_, ok = uctx.Deadline()
	assert.False(t, ok)
}

func TestLocationReturnsPromptly(t *testing.T) {
	// Location runs under the same NavTimeout bound as Navigate; on a dead
	// session it must surface an error instead of blocking.
	s := newStubSession()
	assert.NoError(t, s.Close())

	done := make(chan error, 1)
	go func() {
		_, err := s.Location(context.Background())
		done <- err
	}()

	select {
	case err := <-done:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("Location blocked on a closed session")
	}
}

func TestCloseCancelsContexts(t *testing.T) {
	s := newStubSession()
	assert.NoError(t, s.Close())

	select {
	case <-s.ctx.Done():
	default:
		t.Fatal("session context still live after Close")
	}
}
