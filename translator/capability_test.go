package translator

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/paylens/engine"
	"github.com/spektr-org/paylens/plan"
)

// ============================================================================
// FIXTURES
// ============================================================================

// fakeProvider returns a canned reply and records every prompt.
type fakeProvider struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.reply, f.err
}

// blockingProvider waits for the context to end.
type blockingProvider struct{}

func (blockingProvider) Name() string { return "blocking" }

func (blockingProvider) Complete(ctx context.Context, _ string) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func exampleDataset() *engine.Dataset {
	return engine.NewDataset([]engine.Record{
		{Name: "Anna Berg", Department: "IT", Role: "Developer", Salary: 60000},
		{Name: "Bo Ek", Department: "Finance", Role: "Analyst", Salary: 50000},
		{Name: "Cecilia Holm", Department: "IT", Role: "Support", Salary: 45000},
	}, nil)
}

func quietInterpreter(p Provider, opts ...Option) *Interpreter {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	fixed := func() time.Time { return time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC) }
	return New(p, append([]Option{WithLogger(logger), WithClock(fixed)}, opts...)...)
}

// ============================================================================
// INTERPRET
// ============================================================================

func TestInterpretGroupedPlan(t *testing.T) {
	p := &fakeProvider{reply: "```json\n" + `{"summary":"Average salary by department","steps":[
		{"op":"group_by","columns":["department"]},
		{"op":"aggregate","func":"mean","column":"salary","as":"mean_salary"},
		{"op":"sort","column":"mean_salary","order":"desc"}]}` + "\n```"}

	res, err := quietInterpreter(p).Interpret(context.Background(), exampleDataset(), "average salary per department")
	require.NoError(t, err)

	assert.Equal(t, engine.ModeCapability, res.ModeUsed)
	assert.Equal(t, "group_by(department) | aggregate(mean(salary) as mean_salary) | sort(mean_salary desc)", res.Trace)
	assert.Equal(t, "Average salary by department. Returned 2 rows.", res.AnswerText)
	assert.Equal(t, []string{"department", "mean_salary"}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "IT", res.Rows[0]["department"].String())
	assert.Equal(t, 52500.0, res.Rows[0]["mean_salary"].Number)
	assert.Nil(t, res.Value)
}

func TestInterpretScalarAnswerIsComputed(t *testing.T) {
	p := &fakeProvider{reply: `Here is the plan: {"summary":"Average salary in Finance.","steps":[
		{"op":"filter","column":"department","cmp":"==","value":"Finance"},
		{"op":"aggregate","func":"mean","column":"salary"}]}`}

	res, err := quietInterpreter(p).Interpret(context.Background(), exampleDataset(), "average salary Finance")
	require.NoError(t, err)
	assert.Equal(t, "Average salary in Finance. Result: 50,000 kr.", res.AnswerText)
	require.NotNil(t, res.Value)
	assert.Equal(t, 50000.0, *res.Value)
}

func TestInterpretCountHasNoUnit(t *testing.T) {
	p := &fakeProvider{reply: `{"steps":[
		{"op":"filter","column":"salary","cmp":">=","value":50000},
		{"op":"aggregate","func":"count","column":"name","as":"employees"}]}`}

	res, err := quietInterpreter(p).Interpret(context.Background(), exampleDataset(), "how many earn at least 50000")
	require.NoError(t, err)
	assert.Equal(t, "Result: 2.", res.AnswerText)
}

func TestInterpretEmptyResult(t *testing.T) {
	p := &fakeProvider{reply: `{"summary":"Nobody","steps":[{"op":"filter","column":"salary","cmp":">","value":1000000}]}`}

	res, err := quietInterpreter(p).Interpret(context.Background(), exampleDataset(), "who earns a million")
	require.NoError(t, err)
	assert.Equal(t, "Nobody. No rows matched.", res.AnswerText)
	assert.NotNil(t, res.Rows)
	assert.Empty(t, res.Rows)
}

func TestInterpretPromptCarriesNoFullDataset(t *testing.T) {
	p := &fakeProvider{reply: `{"steps":[{"op":"limit","n":1}]}`}
	_, err := quietInterpreter(p, WithSampleRows(1)).Interpret(context.Background(), exampleDataset(), "anyone")
	require.NoError(t, err)

	require.Len(t, p.prompts, 1)
	prompt := p.prompts[0]
	assert.Contains(t, prompt, "USER QUESTION: anyone")
	assert.Contains(t, prompt, "CURRENT DATE: 2025-03-14")
	assert.Contains(t, prompt, `DEPARTMENTS: ["IT", "Finance"]`)
	assert.Contains(t, prompt, "Employee 1")
	assert.NotContains(t, prompt, "Anna Berg")
	assert.NotContains(t, prompt, "Cecilia Holm")
	assert.NotContains(t, prompt, "45000")
}

func TestInterpretUnredactedSamples(t *testing.T) {
	p := &fakeProvider{reply: `{"steps":[{"op":"limit","n":1}]}`}
	_, err := quietInterpreter(p, WithSampleRows(1), WithRedactNames(false)).Interpret(context.Background(), exampleDataset(), "anyone")
	require.NoError(t, err)
	assert.Contains(t, p.prompts[0], "Anna Berg")
}

// ============================================================================
// FAILURES
// ============================================================================

func TestInterpretUnconfigured(t *testing.T) {
	i := New(nil)
	assert.False(t, i.Configured())

	_, err := i.Interpret(context.Background(), exampleDataset(), "who earns most")
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
}

func TestInterpretRejectsDisallowedColumn(t *testing.T) {
	p := &fakeProvider{reply: `{"steps":[{"op":"filter","column":"ssn","cmp":"==","value":"x"}]}`}

	res, err := quietInterpreter(p).Interpret(context.Background(), exampleDataset(), "show ssn")
	assert.ErrorIs(t, err, plan.ErrGeneratedCodeRejected)
	assert.Empty(t, res.Trace)
}

func TestInterpretRejectsUnknownOp(t *testing.T) {
	p := &fakeProvider{reply: `{"steps":[{"op":"python","code":"import os; os.remove('x')"}]}`}

	_, err := quietInterpreter(p).Interpret(context.Background(), exampleDataset(), "delete")
	var rej *plan.RejectedError
	require.ErrorAs(t, err, &rej)
	assert.Equal(t, plan.StageShape, rej.Stage)
}

func TestInterpretMalformedReply(t *testing.T) {
	for name, reply := range map[string]string{
		"prose":       "I'm sorry, I cannot help with that.",
		"broken json": `{"steps":[{"op":"limit",}`,
	} {
		t.Run(name, func(t *testing.T) {
			p := &fakeProvider{reply: reply}
			_, err := quietInterpreter(p).Interpret(context.Background(), exampleDataset(), "q")
			assert.ErrorIs(t, err, ErrMalformedResponse)
			assert.NotErrorIs(t, err, plan.ErrGeneratedCodeRejected)
		})
	}
}

func TestInterpretTransportFailure(t *testing.T) {
	boom := errors.New("connection reset")
	p := &fakeProvider{err: boom}

	_, err := quietInterpreter(p).Interpret(context.Background(), exampleDataset(), "q")
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
	assert.ErrorIs(t, err, boom)

	var callErr *CallError
	require.ErrorAs(t, err, &callErr)
	assert.Equal(t, "fake", callErr.Provider)
}

func TestInterpretTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := quietInterpreter(blockingProvider{}).Interpret(ctx, exampleDataset(), "q")
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

// ============================================================================
// PARSER
// ============================================================================

func TestExtractJSON(t *testing.T) {
	cases := map[string]string{
		`{"a":1}`:                         `{"a":1}`,
		"```json\n{\"a\":1}\n```":         `{"a":1}`,
		"```\n{\"a\":1}\n```":             `{"a":1}`,
		"Sure! {\"a\":{\"b\":2}} Enjoy.": `{"a":{"b":2}}`,
		"no json here":                    "",
		"} backwards {":                   "",
	}
	for in, want := range cases {
		assert.Equal(t, want, extractJSON(in), in)
	}
}
