package roundrobin

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"time"

	"github.com/unblurai/unblur/pkg/provider"
	"github.com/unblurai/unblur/pkg/router"
)

// Completer rotates recognition requests over several providers and skips
// providers whose circuit is open.
type Completer struct {
	completers []provider.Completer
	stats      []*router.ProviderStats

	next atomic.Uint64

	failureThreshold int
	recoveryTimeout  time.Duration
}

func NewCompleter(completers ...provider.Completer) (provider.Completer, error) {
	if len(completers) == 0 {
		return nil, errors.New("at least one completer is required")
	}

	stats := make([]*router.ProviderStats, len(completers))

	for i := range stats {
		stats[i] = router.NewProviderStats()
	}

	return &Completer{
		completers: completers,
		stats:      stats,

		failureThreshold: router.DefaultFailureThreshold,
		recoveryTimeout:  router.DefaultRecoveryTimeout,
	}, nil
}

func (c *Completer) Complete(ctx context.Context, messages []provider.Message, options *provider.CompleteOptions) iter.Seq2[*provider.Completion, error] {
	return func(yield func(*provider.Completion, error) bool) {
		index := c.selectProvider()

		var failed bool

		for completion, err := range c.completers[index].Complete(ctx, messages, options) {
			if err != nil {
				failed = true
			}

			if !yield(completion, err) {
				break
			}
		}

		if failed {
			c.stats[index].RecordFailure(c.failureThreshold)
		} else {
			c.stats[index].RecordSuccess()
		}
	}
}

func (c *Completer) selectProvider() int {
	start := int(c.next.Add(1)-1) % len(c.completers)

	for i := range c.completers {
		index := (start + i) % len(c.completers)

		if c.stats[index].IsAvailable(c.recoveryTimeout) {
			return index
		}
	}

	return c.fallbackProvider()
}

// fallbackProvider picks the least recently failed provider when every circuit is open
func (c *Completer) fallbackProvider() int {
	bestIndex := 0

	var oldestFailure time.Time

	for i, stat := range c.stats {
		lastFailure := stat.LastFailure()

		if i == 0 || lastFailure.Before(oldestFailure) {
			oldestFailure = lastFailure
			bestIndex = i
		}
	}

	c.stats[bestIndex].SetHalfOpen()

	return bestIndex
}
