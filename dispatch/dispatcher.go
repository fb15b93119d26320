// Package dispatch routes a question to the capability or the pattern
// interpreter, falls back from the first to the second, and returns one
// normalized engine.QueryResult.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spektr-org/paylens/engine"
	"github.com/spektr-org/paylens/pattern"
	"github.com/spektr-org/paylens/plan"
	"github.com/spektr-org/paylens/schema"
	"github.com/spektr-org/paylens/translator"
)

// ============================================================================
// QUERY DISPATCHER
// ============================================================================
//   AWAITING_QUESTION ──table invalid──────────────────────────→ FAILED
//          │
//          ├─ mode CAPABILITY + configured → RUNNING_CAPABILITY ─ok→ DONE
//          │                                      │ any failure
//          │                                      ▼
//          └─ mode PATTERN / unconfigured ──→ RUNNING_PATTERN ─────→ DONE
//
// A pattern no-match is still DONE: the answer explains what was understood.
// ============================================================================

// DefaultTimeout bounds one capability attempt.
const DefaultTimeout = 30 * time.Second

// ErrNoDataset is returned when a Request carries neither Dataset nor Table.
var ErrNoDataset = errors.New("dispatch: request has no dataset")

// Fallback reasons recorded in Outcome.FallbackReason.
const (
	FallbackUnavailable = "capability_unavailable"
	FallbackTimeout     = "capability_timeout"
	FallbackMalformed   = "malformed_response"
	FallbackRejected    = "generated_code_rejected"
	FallbackExecution   = "capability_execution_failed"
)

// capabilityFailedNote prefixes a pattern no-match after a capability failure.
const capabilityFailedNote = "The AI interpreter could not answer this question."

// Capability is the part of translator.Interpreter the dispatcher uses.
type Capability interface {
	Configured() bool
	Interpret(ctx context.Context, ds *engine.Dataset, question string) (engine.QueryResult, error)
}

// Request is one question.
type Request struct {
	Question string
	Mode     engine.Mode // empty: capability when configured, else pattern

	// Exactly one of Dataset or Table. A Table is validated first.
	Dataset *engine.Dataset
	Table   *schema.Table
}

// Outcome is the dispatcher's answer plus how it got there.
type Outcome struct {
	Result         engine.QueryResult `json:"result"`
	Warnings       []schema.Warning   `json:"warnings,omitempty"`
	Transitions    []State            `json:"transitions"`
	FallbackReason string             `json:"fallbackReason,omitempty"`
	Dataset        *engine.Dataset    `json:"-"`
}

// Dispatcher answers questions. It is safe for concurrent use when its
// Capability is.
type Dispatcher struct {
	pattern    *pattern.Interpreter
	capability Capability
	timeout    time.Duration
	logger     *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCapability sets the capability interpreter. Nil leaves pattern only.
func WithCapability(c Capability) Option {
	return func(d *Dispatcher) { d.capability = c }
}

// WithPattern replaces the default pattern interpreter.
func WithPattern(p *pattern.Interpreter) Option {
	return func(d *Dispatcher) {
		if p != nil {
			d.pattern = p
		}
	}
}

// WithTimeout sets the capability deadline. Non-positive values are ignored.
func WithTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// New returns a Dispatcher. Without WithCapability every question runs on
// the pattern interpreter.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		pattern: pattern.New(),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CapabilityConfigured reports whether capability mode can run.
func (d *Dispatcher) CapabilityConfigured() bool {
	return d.capability != nil && d.capability.Configured()
}

// Dispatch answers req. The only errors are schema failures of req.Table,
// ErrNoDataset, and pattern failures other than no-match; every
// capability failure falls back instead.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (*Outcome, error) {
	m := newMachine(d.logger)
	out := &Outcome{}
	finish := func(err error) (*Outcome, error) {
		out.Transitions = m.recorded()
		return out, err
	}

	ds := req.Dataset
	if req.Table != nil {
		validated, warnings, err := schema.Validate(*req.Table, schema.WithLogger(d.logger))
		if err != nil {
			if terr := m.to(Failed); terr != nil {
				return finish(terr)
			}
			return finish(err)
		}
		ds, out.Warnings = validated, warnings
	}
	if ds == nil {
		if terr := m.to(Failed); terr != nil {
			return finish(terr)
		}
		return finish(ErrNoDataset)
	}
	out.Dataset = ds

	mode := req.Mode
	if mode == "" {
		mode = engine.ModeCapability
	}

	if mode == engine.ModeCapability {
		if d.CapabilityConfigured() {
			if err := m.to(RunningCapability); err != nil {
				return finish(err)
			}
			res, err := d.runCapability(ctx, ds, req.Question)
			if err == nil {
				out.Result = normalize(res, engine.ModeCapability)
				return finish(m.to(Done))
			}
			out.FallbackReason = fallbackReason(err)
			d.logger.Warn("capability interpreter failed, using pattern interpreter",
				"reason", out.FallbackReason, "error", err)
		} else if req.Mode == engine.ModeCapability {
			out.FallbackReason = FallbackUnavailable
			d.logger.Info("capability interpreter not configured, using pattern interpreter")
		}
	}

	if err := m.to(RunningPattern); err != nil {
		return finish(err)
	}
	res, err := d.pattern.Interpret(ds, req.Question)
	var nm *pattern.NoMatchError
	switch {
	case err == nil:
	case errors.As(err, &nm):
		res = nm.Result()
		if m.passed(RunningCapability) {
			res.AnswerText = capabilityFailedNote + " " + res.AnswerText
		}
	default:
		if terr := m.to(Failed); terr != nil {
			return finish(terr)
		}
		return finish(fmt.Errorf("pattern interpreter: %w", err))
	}
	out.Result = normalize(res, engine.ModePattern)
	return finish(m.to(Done))
}

// runCapability applies the capability deadline.
func (d *Dispatcher) runCapability(ctx context.Context, ds *engine.Dataset, question string) (engine.QueryResult, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.capability.Interpret(ctx, ds, question)
}

// fallbackReason names the failure class without exposing raw error text.
func fallbackReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return FallbackTimeout
	case errors.Is(err, plan.ErrGeneratedCodeRejected):
		return FallbackRejected
	case errors.Is(err, plan.ErrCapabilityExecution):
		return FallbackExecution
	case errors.Is(err, translator.ErrMalformedResponse):
		return FallbackMalformed
	}
	return FallbackUnavailable
}

// normalize fills the fields every consumer relies on.
func normalize(res engine.QueryResult, mode engine.Mode) engine.QueryResult {
	res.ModeUsed = mode
	if res.Columns == nil {
		res.Columns = []string{}
	}
	if res.Rows == nil {
		res.Rows = []engine.Row{}
	}
	return res
}
