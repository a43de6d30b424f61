package assistant

import (
	"context"
	"errors"
	"sync"
)

// ErrSuperseded is returned to a caller whose question was replaced by a
// newer one for the same key before it completed.
var ErrSuperseded = errors.New("question superseded by a newer request")

// Asker answers questions. *Service implements it.
type Asker interface {
	Ask(ctx context.Context, pc PlaceContext, question string) (Answer, error)
}

type inflight struct {
	seq    uint64
	cancel context.CancelFunc
}

// Coordinator allows one in-flight question per key. Starting a new question
// cancels the previous one for that key, and the previous caller receives
// ErrSuperseded instead of a stale answer.
type Coordinator struct {
	asker   Asker
	metrics *Metrics

	mu      sync.Mutex
	seq     uint64
	current map[string]inflight
}

// NewCoordinator wraps asker. metrics may be nil.
func NewCoordinator(asker Asker, metrics *Metrics) *Coordinator {
	return &Coordinator{
		asker:   asker,
		metrics: metrics,
		current: make(map[string]inflight),
	}
}

// Ask runs the question for key, superseding any earlier one.
func (c *Coordinator) Ask(ctx context.Context, key string, pc PlaceContext, question string) (Answer, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	c.mu.Lock()
	c.seq++
	seq := c.seq
	if prev, ok := c.current[key]; ok {
		prev.cancel()
	}
	c.current[key] = inflight{seq: seq, cancel: cancel}
	c.mu.Unlock()

	answer, err := c.asker.Ask(ctx, pc, question)

	c.mu.Lock()
	cur, ok := c.current[key]
	superseded := !ok || cur.seq != seq
	if !superseded {
		delete(c.current, key)
	}
	c.mu.Unlock()

	if superseded {
		c.metrics.incSuperseded()
		return Answer{}, ErrSuperseded
	}
	return answer, err
}

// InFlight returns the number of keys with a question in progress.
func (c *Coordinator) InFlight() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.current)
}
