package engine

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestEvaluateEmptyString(t *testing.T) {
	eng := NewEngine(nil, nil)

	for _, src := range []string{"", "   \n\t  \n  "} {
		g, evalErrs, err := eng.Evaluate(src)
		if err != nil {
			t.Fatalf("unexpected fatal error: %v", err)
		}
		if len(evalErrs) > 0 {
			t.Fatalf("unexpected eval errors: %v", evalErrs)
		}
		if g == nil {
			t.Fatal("expected non-nil graph")
		}
		if g.Len() != 0 {
			t.Errorf("expected empty graph, got %d modules", g.Len())
		}
	}
}

func TestEvaluatePlainLisp(t *testing.T) {
	eng := NewEngine(nil, nil)

	source := `
(def x 10)
(def y 20)
(+ x y)
`
	g, evalErrs, err := eng.Evaluate(source)
	if err != nil {
		t.Fatalf("unexpected fatal error: %v", err)
	}
	if len(evalErrs) > 0 {
		t.Fatalf("unexpected eval errors: %v", evalErrs)
	}
	if g == nil || g.Len() != 0 {
		t.Fatalf("expected empty graph, got %v", g)
	}
}

func TestEvaluateSyntaxError(t *testing.T) {
	eng := NewEngine(nil, nil)

	g, evalErrs, err := eng.Evaluate("(+ 1 2)\n(+ 3")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil graph on syntax error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error")
	}
	if evalErrs[0].Message == "" {
		t.Error("eval error message should not be empty")
	}
}

func TestEvaluateUndefinedSymbol(t *testing.T) {
	eng := NewEngine(nil, nil)

	g, evalErrs, err := eng.Evaluate("(+ 1 undefined-symbol)")
	if err != nil {
		t.Fatalf("expected non-fatal eval error, got fatal: %v", err)
	}
	if g != nil {
		t.Fatal("expected nil graph on eval error")
	}
	if len(evalErrs) == 0 {
		t.Fatal("expected at least one eval error for undefined symbol")
	}
}

func TestEvalErrorString(t *testing.T) {
	e := EvalError{Line: 5, Message: "something went wrong"}
	if s := e.Error(); !strings.Contains(s, "line 5") || !strings.Contains(s, "something went wrong") {
		t.Errorf("Error() = %q", s)
	}
	if s := (EvalError{Message: "no location"}).Error(); strings.Contains(s, "line") {
		t.Errorf("Error() with no line should not mention a line, got %q", s)
	}
}

func TestEvaluateDeterministicNames(t *testing.T) {
	eng := NewEngine(nil, nil)

	for i := 0; i < 3; i++ {
		g, evalErrs, err := eng.Evaluate(`(constant 1) (constant 2)`)
		if err != nil || len(evalErrs) > 0 {
			t.Fatalf("iteration %d: %v %v", i, err, evalErrs)
		}
		if g.Lookup("constant-1") == nil || g.Lookup("constant-2") == nil {
			t.Errorf("iteration %d: generated names not restarted per evaluation", i)
		}
	}
}

func TestWithTimeout(t *testing.T) {
	if got := NewEngine(nil, nil).Timeout(); got != DefaultTimeout {
		t.Errorf("default timeout = %s, want %s", got, DefaultTimeout)
	}
	if got := NewEngine(nil, nil, WithTimeout(time.Second)).Timeout(); got != time.Second {
		t.Errorf("timeout = %s, want 1s", got)
	}
	if got := NewEngine(nil, nil, WithTimeout(-1)).Timeout(); got != DefaultTimeout {
		t.Errorf("negative timeout should keep the default, got %s", got)
	}
}

// releaseCounter counts calls to its discard func.
type releaseCounter struct {
	mu sync.Mutex
	n  int
}

func (c *releaseCounter) discard() {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
}

func (c *releaseCounter) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.n
}

func TestWaitTimesOut(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(1)
	p := newPending()

	_, _, err := waitWithTimeout(p, 10*time.Millisecond, 1, &mu, &gen)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	if !strings.Contains(err.Error(), "10ms") {
		t.Errorf("timeout error should name the limit, got %v", err)
	}

	// The worker finishes after the waiter gave up.
	var rc releaseCounter
	p.deliver(evalResult{discard: rc.discard})
	if rc.count() != 1 {
		t.Errorf("late result released %d times, want 1", rc.count())
	}
}

func TestAbandonReleasesUnreceivedResult(t *testing.T) {
	var rc releaseCounter
	p := newPending()
	p.deliver(evalResult{discard: rc.discard})
	p.abandon()
	if rc.count() != 1 {
		t.Errorf("queued result released %d times, want 1", rc.count())
	}
}

func TestWaitDiscardsStale(t *testing.T) {
	var mu sync.Mutex
	gen := uint64(2)

	var rc releaseCounter
	p := newPending()
	p.deliver(evalResult{discard: rc.discard})

	_, _, err := waitWithTimeout(p, time.Second, 1, &mu, &gen)
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("err = %v, want ErrSuperseded", err)
	}
	if rc.count() != 1 {
		t.Errorf("stale result released %d times, want 1", rc.count())
	}
}

func TestParseZygomysError(t *testing.T) {
	tests := []struct {
		name     string
		msg      string
		wantLine int
		wantMsg  string
	}{
		{"error on line format", "Error on line 5: unexpected token\n", 5, "unexpected token"},
		{"no line info", "some generic error", 0, "some generic error"},
		{"line format lowercase", "error on line 12: missing paren", 12, "missing paren"},
		{"short form", "line 3: bad keyword", 3, "bad keyword"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := parseZygomysError(errors.New(tt.msg))
			if len(errs) != 1 {
				t.Fatalf("got %d errors, want 1", len(errs))
			}
			if errs[0].Line != tt.wantLine {
				t.Errorf("line = %d, want %d", errs[0].Line, tt.wantLine)
			}
			if !strings.Contains(errs[0].Message, tt.wantMsg) {
				t.Errorf("message = %q, want containing %q", errs[0].Message, tt.wantMsg)
			}
		})
	}
}
