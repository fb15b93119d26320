// Package translator is the capability interpreter: it asks a
// language-generation service for a query plan, has the plan package
// validate and evaluate it, and reduces the outcome to an
// engine.QueryResult.
package translator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spektr-org/paylens/engine"
	"github.com/spektr-org/paylens/plan"
	"github.com/spektr-org/paylens/schema"
)

// ============================================================================
// CAPABILITY INTERPRETER
// ============================================================================
// Flow per question:
//   Describe(dataset) → BuildPrompt → Provider.Complete → parsePlan
//   → plan.Eval (validates first) → QueryResult
//
// Every failure is a typed error; nothing panics out of Interpret.
// ============================================================================

// Interpreter answers questions through a Provider.
type Interpreter struct {
	provider Provider
	describe schema.DescribeOptions
	unit     string
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithSampleRows sets how many dataset rows the prompt may carry.
func WithSampleRows(n int) Option {
	return func(i *Interpreter) {
		if n >= 0 {
			i.describe.SampleRows = n
		}
	}
}

// WithRedactNames controls whether sample rows carry real names.
func WithRedactNames(redact bool) Option {
	return func(i *Interpreter) { i.describe.RedactNames = redact }
}

// WithUnit sets the currency suffix used in computed answers.
func WithUnit(unit string) Option {
	return func(i *Interpreter) { i.unit = unit }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Interpreter) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithClock sets the time source for the prompt's current date.
func WithClock(now func() time.Time) Option {
	return func(i *Interpreter) {
		if now != nil {
			i.now = now
		}
	}
}

// New returns an Interpreter using p. A nil p gives an unconfigured
// Interpreter whose Interpret returns ErrCapabilityUnavailable.
func New(p Provider, opts ...Option) *Interpreter {
	i := &Interpreter{
		provider: p,
		describe: schema.DefaultDescribeOptions(),
		unit:     "kr",
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Configured reports whether a provider is available.
func (i *Interpreter) Configured() bool {
	return i != nil && i.provider != nil
}

// Interpret answers question over ds. Errors wrap ErrCapabilityUnavailable,
// ErrMalformedResponse, plan.ErrGeneratedCodeRejected or
// plan.ErrCapabilityExecution.
func (i *Interpreter) Interpret(ctx context.Context, ds *engine.Dataset, question string) (engine.QueryResult, error) {
	if !i.Configured() {
		return engine.QueryResult{}, ErrCapabilityUnavailable
	}
	if ds == nil {
		ds = engine.NewDataset(nil, nil)
	}

	prompt := BuildPrompt(question, schema.Describe(ds, i.describe), i.now())
	name := i.provider.Name()
	i.logger.Info("capability request", "provider", name, "question", truncate(question, 80), "prompt_bytes", len(prompt))

	reply, err := i.provider.Complete(ctx, prompt)
	if err != nil {
		if !errors.Is(err, ErrCapabilityUnavailable) && !errors.Is(err, ErrMalformedResponse) {
			err = unavailable(name, err)
		}
		return engine.QueryResult{}, err
	}

	doc, err := parsePlan(name, reply)
	if err != nil {
		return engine.QueryResult{}, err
	}
	i.logger.Debug("capability plan", "provider", name, "plan", doc.String())

	tbl, err := plan.Eval(ctx, doc, ds, ds.Columns())
	if err != nil {
		return engine.QueryResult{}, err
	}
	return i.result(doc, tbl), nil
}

// result builds the QueryResult: the model's summary followed by a sentence
// computed from the table, so the numbers never come from the model.
func (i *Interpreter) result(doc *plan.Document, tbl *plan.Table) engine.QueryResult {
	res := engine.QueryResult{
		Columns:  tbl.Columns,
		Rows:     tbl.Rows,
		Trace:    doc.String(),
		ModeUsed: engine.ModeCapability,
	}
	if res.Rows == nil {
		res.Rows = []engine.Row{}
	}

	var computed string
	switch {
	case len(tbl.Rows) == 0:
		computed = "No rows matched."
	case len(tbl.Rows) == 1 && len(tbl.Columns) == 1 && tbl.Rows[0][tbl.Columns[0]].Numeric:
		col := tbl.Columns[0]
		v := tbl.Rows[0][col].Number
		res.Value = engine.Scalar(v)
		if countColumn(doc, col) {
			computed = fmt.Sprintf("Result: %s.", engine.FormatNumber(v))
		} else {
			computed = fmt.Sprintf("Result: %s.", engine.FormatAmount(v, i.unit))
		}
	case len(tbl.Rows) == 1:
		computed = "Returned 1 row."
	default:
		computed = fmt.Sprintf("Returned %s rows.", engine.FormatInt(len(tbl.Rows)))
	}

	summary := strings.TrimSpace(doc.Summary)
	switch {
	case summary == "":
		res.AnswerText = computed
	case strings.HasSuffix(summary, "."):
		res.AnswerText = summary + " " + computed
	default:
		res.AnswerText = summary + ". " + computed
	}
	return res
}

// countColumn reports whether col is the output of a count aggregate.
func countColumn(doc *plan.Document, col string) bool {
	for _, st := range doc.Steps {
		if st.Op == plan.OpAggregate && st.OutputName() == col {
			return st.Func == string(engine.AggCount)
		}
	}
	return false
}
