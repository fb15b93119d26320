// Package pattern answers salary questions by rule-based matching.
//
// The interpreter is pure and deterministic: the same Dataset and question
// always produce an identical QueryResult. It never contacts a network and
// never mutates the Dataset.
package pattern

import (
	"errors"
	"strings"

	"github.com/spektr-org/paylens/engine"
)

// DefaultUnit is the currency suffix used in answer texts.
const DefaultUnit = "kr"

// Interpreter is the rule-based question interpreter.
type Interpreter struct {
	unit string
}

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithUnit sets the currency suffix of amounts in answers ("" for none).
func WithUnit(unit string) Option {
	return func(p *Interpreter) { p.unit = unit }
}

// New returns an Interpreter.
func New(opts ...Option) *Interpreter {
	p := &Interpreter{unit: DefaultUnit}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Match is a classified question.
type Match struct {
	RuleID string
	Intent Intent
}

// Classify finds the first rule that recognizes question.
func (p *Interpreter) Classify(ds *engine.Dataset, questionText string) (Match, error) {
	if ds == nil {
		ds = engine.NewDataset(nil, nil)
	}
	q := newQuestion(questionText)
	if q.norm == "" {
		return Match{}, &NoMatchError{Question: questionText, Reason: ReasonEmpty}
	}

	vocab := buildVocabulary(ds)
	for _, r := range rules {
		if !r.match(q) {
			continue
		}
		e := r.extract(q, vocab)
		if e.unknown != "" {
			return Match{}, &NoMatchError{
				Question:  questionText,
				Reason:    ReasonUnknownEntity,
				RuleID:    r.id,
				Reference: e.unknown,
				Known:     vocab.depts,
			}
		}
		intent, ok := r.build(q, e)
		if !ok {
			continue
		}
		if e.stray != "" {
			return Match{}, &NoMatchError{
				Question:  questionText,
				Reason:    ReasonUnusedNumber,
				RuleID:    r.id,
				Reference: e.stray,
			}
		}
		return Match{RuleID: r.id, Intent: intent}, nil
	}
	return Match{}, &NoMatchError{Question: questionText, Reason: ReasonNoRule}
}

// Interpret answers question against ds. An unrecognized question or an
// unknown department/role yields a *NoMatchError.
func (p *Interpreter) Interpret(ds *engine.Dataset, questionText string) (engine.QueryResult, error) {
	if ds == nil {
		ds = engine.NewDataset(nil, nil)
	}
	m, err := p.Classify(ds, questionText)
	if err != nil {
		return engine.QueryResult{}, err
	}
	res := m.Intent.execute(ds, p.unit)
	res.Trace = m.RuleID + ": " + m.Intent.String()
	res.ModeUsed = engine.ModePattern
	if res.Columns == nil {
		res.Columns = []string{}
	}
	return res, nil
}

// Answer is Interpret with NoMatchError rendered as an explanatory result.
func (p *Interpreter) Answer(ds *engine.Dataset, questionText string) engine.QueryResult {
	res, err := p.Interpret(ds, questionText)
	if err == nil {
		return res
	}
	var nm *NoMatchError
	if errors.As(err, &nm) {
		return nm.Result()
	}
	return engine.QueryResult{
		AnswerText: strings.TrimSpace(err.Error()),
		Columns:    []string{},
		Rows:       []engine.Row{},
		Trace:      "error",
		ModeUsed:   engine.ModePattern,
	}
}
