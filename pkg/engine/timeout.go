package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/chazu/grove/pkg/graph"
)

// DefaultTimeout is the evaluation limit used when none is configured.
const DefaultTimeout = 5 * time.Second

// evalResult passes an evaluation outcome back from the worker goroutine.
// discard releases the modules of graph when nobody will use it.
type evalResult struct {
	graph   *graph.Graph
	errors  []EvalError
	err     error
	discard func()
}

func (r evalResult) release() {
	if r.discard != nil {
		r.discard()
	}
}

// pending hands one result from the worker to the waiter. Once the waiter
// has given up, results are released instead of delivered.
type pending struct {
	mu        sync.Mutex
	abandoned bool
	ch        chan evalResult
}

func newPending() *pending {
	return &pending{ch: make(chan evalResult, 1)}
}

// deliver passes res to the waiter, or releases it if the waiter is gone.
func (p *pending) deliver(res evalResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.abandoned {
		res.release()
		return
	}
	p.ch <- res
}

// abandon stops waiting. A result delivered but not yet received is
// released, as is any result delivered later.
func (p *pending) abandon() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.abandoned = true
	select {
	case res := <-p.ch:
		res.release()
	default:
	}
}

// waitWithTimeout waits for the result of p, returning a timeout error once
// timeout elapses. Results whose generation is no longer current are
// released and reported as superseded.
func waitWithTimeout(
	p *pending,
	timeout time.Duration,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (*graph.Graph, []EvalError, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-p.ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			res.release()
			return nil, nil, ErrSuperseded
		}
		return res.graph, res.errors, res.err

	case <-timer.C:
		p.abandon()
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
}
