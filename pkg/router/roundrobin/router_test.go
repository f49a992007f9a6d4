package roundrobin

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"testing"

	"github.com/unblurai/unblur/pkg/provider"
	"github.com/unblurai/unblur/pkg/router"
)

// mockCompleter is a configurable mock for testing
type mockCompleter struct {
	err      error
	response string
	calls    atomic.Int64
}

func (m *mockCompleter) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) iter.Seq2[*provider.Completion, error] {
	return func(yield func(*provider.Completion, error) bool) {
		m.calls.Add(1)

		if m.err != nil {
			yield(nil, m.err)
			return
		}

		yield(&provider.Completion{
			ID: "test",
			Message: &provider.Message{
				Role: provider.MessageRoleAssistant,
				Content: []provider.Content{
					{Text: m.response},
				},
			},
		}, nil)
	}
}

func TestNewCompleter(t *testing.T) {
	t.Run("requires at least one completer", func(t *testing.T) {
		_, err := NewCompleter()
		if err == nil {
			t.Error("expected error for empty completers")
		}
	})

	t.Run("creates completer with providers", func(t *testing.T) {
		c, err := NewCompleter(&mockCompleter{response: "hello"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c == nil {
			t.Error("expected non-nil completer")
		}
	})
}

func TestComplete(t *testing.T) {
	ctx := context.Background()
	messages := []provider.Message{provider.UserMessage("test")}

	t.Run("routes to available provider", func(t *testing.T) {
		c, _ := NewCompleter(&mockCompleter{response: "hello"})

		result, err := provider.Collect(c.Complete(ctx, messages, nil))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if result.Message.Text() != "hello" {
			t.Errorf("expected 'hello', got '%s'", result.Message.Text())
		}
	})

	t.Run("records failure on error", func(t *testing.T) {
		c, _ := NewCompleter(&mockCompleter{err: errors.New("provider error")})
		comp := c.(*Completer)

		for _, err := range c.Complete(ctx, messages, nil) {
			if err == nil {
				t.Error("expected error")
			}
		}

		_, failures := comp.stats[0].Counts()
		if failures != 1 {
			t.Errorf("expected 1 failure, got %d", failures)
		}
		if comp.stats[0].State() != router.CircuitClosed {
			t.Errorf("expected circuit closed after 1 failure")
		}
	})

	t.Run("opens circuit after threshold failures", func(t *testing.T) {
		c, _ := NewCompleter(&mockCompleter{err: errors.New("provider error")})
		comp := c.(*Completer)

		for i := 0; i < router.DefaultFailureThreshold; i++ {
			for range c.Complete(ctx, messages, nil) {
			}
		}

		if comp.stats[0].State() != router.CircuitOpen {
			t.Errorf("expected circuit open after %d failures", router.DefaultFailureThreshold)
		}
	})
}

func TestRotation(t *testing.T) {
	mock1 := &mockCompleter{response: "one"}
	mock2 := &mockCompleter{response: "two"}
	mock3 := &mockCompleter{response: "three"}

	c, _ := NewCompleter(mock1, mock2, mock3)

	ctx := context.Background()
	messages := []provider.Message{provider.UserMessage("test")}

	for i := 0; i < 30; i++ {
		for range c.Complete(ctx, messages, nil) {
		}
	}

	for i, calls := range []int64{mock1.calls.Load(), mock2.calls.Load(), mock3.calls.Load()} {
		if calls != 10 {
			t.Errorf("provider %d got %d calls, expected 10", i+1, calls)
		}
	}
}

func TestCircuitBreaker(t *testing.T) {
	failing := &mockCompleter{err: errors.New("error")}
	healthy := &mockCompleter{response: "ok"}

	c, _ := NewCompleter(failing, healthy)

	ctx := context.Background()
	messages := []provider.Message{provider.UserMessage("test")}

	for i := 0; i < 2*router.DefaultFailureThreshold; i++ {
		for range c.Complete(ctx, messages, nil) {
		}
	}

	failing.calls.Store(0)
	healthy.calls.Store(0)

	for i := 0; i < 10; i++ {
		for range c.Complete(ctx, messages, nil) {
		}
	}

	if failing.calls.Load() != 0 {
		t.Errorf("expected open circuit to be skipped, got %d calls", failing.calls.Load())
	}

	if healthy.calls.Load() != 10 {
		t.Errorf("expected healthy provider to get all calls, got %d", healthy.calls.Load())
	}
}
