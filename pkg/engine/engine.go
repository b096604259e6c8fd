// Package engine provides the Lisp graph loader. It evaluates zygomys source
// in a sandboxed environment whose builtins create modules, connections and
// entries, and returns the resulting graph.
package engine

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/grove/pkg/graph"
	"github.com/chazu/grove/pkg/kernel"
	"github.com/chazu/grove/pkg/modules"
	"github.com/chazu/grove/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

var (
	// ErrTimeout is returned when an evaluation exceeds the engine timeout.
	ErrTimeout = errors.New("evaluation timed out")

	// ErrSuperseded is returned when a newer evaluation started before this
	// one finished.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a runtime error in user code.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

// Option configures an Engine.
type Option func(*Engine)

// WithTimeout sets the hard limit for a single evaluation. Non-positive
// durations keep the default.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.timeout = d
		}
	}
}

// Engine wraps the zygomys interpreter. It is safe for concurrent use; each
// call to Evaluate creates a fresh sandboxed environment.
//
// Shapes created with the box and cylinder builtins are added to the store
// and stay there when the evaluation fails.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	kernel  kernel.Kernel
	store   *scene.Store
	timeout time.Duration
}

// NewEngine creates an Engine whose object modules use k and store. Either
// may be nil for sources that only build value modules.
func NewEngine(k kernel.Kernel, store *scene.Store, opts ...Option) *Engine {
	e := &Engine{kernel: k, store: store, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Timeout returns the evaluation limit.
func (e *Engine) Timeout() time.Duration {
	return e.timeout
}

func (e *Engine) env() modules.Env {
	env := modules.Env{Kernel: e.kernel}
	if e.store != nil {
		env.Repo = e.store
	}
	return env
}

// Evaluate takes Lisp source code and builds a new Graph.
//
// Return semantics:
//   - On success: returns graph + nil errors + nil error
//   - On parse/eval failure: returns nil graph + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*graph.Graph, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	p := newPending()
	go func() {
		p.deliver(e.evaluate(source))
	}()

	return waitWithTimeout(p, e.timeout, gen, &e.mu, &e.generation)
}

// evaluate performs the zygomys evaluation in a fresh sandbox. Modules of
// a failed evaluation are removed before it returns.
func (e *Engine) evaluate(source string) (res evalResult) {
	if strings.TrimSpace(source) == "" {
		return evalResult{graph: graph.New()}
	}

	var b *builder
	defer func() {
		if r := recover(); r != nil {
			if b != nil {
				b.discard()
			}
			res = evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
		}
	}()

	// Sandbox mode keeps user code away from the filesystem and syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	b = newBuilder(e.env(), e.store)
	registerBuiltins(env, b)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		b.discard()
		return evalResult{errors: parseZygomysError(err)}
	}
	if _, err := env.Run(); err != nil {
		b.discard()
		return evalResult{errors: parseZygomysError(err)}
	}
	return evalResult{graph: b.g, discard: b.discard}
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalError values,
// extracting the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()

	for _, p := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := p.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
