package pattern

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spektr-org/paylens/engine"
)

// ErrNoMatch is the sentinel for every NoMatchError.
var ErrNoMatch = errors.New("no matching question pattern")

// NoMatchReason explains why a question was not interpreted.
type NoMatchReason string

const (
	ReasonEmpty         NoMatchReason = "empty_question"
	ReasonNoRule        NoMatchReason = "no_rule"
	ReasonUnknownEntity NoMatchReason = "unknown_entity"
	ReasonUnusedNumber  NoMatchReason = "unused_number"
)

// NoMatchError reports a question the pattern interpreter cannot answer.
type NoMatchError struct {
	Question  string
	Reason    NoMatchReason
	RuleID    string   // rule that matched before the entity check failed
	Reference string   // the unmatched word or number
	Known     []string // departments in the dataset
}

func (e *NoMatchError) Error() string {
	if e == nil {
		return ""
	}
	switch e.Reason {
	case ReasonUnknownEntity:
		return fmt.Sprintf("%s: unknown department, role or location %q", ErrNoMatch, e.Reference)
	case ReasonUnusedNumber:
		return fmt.Sprintf("%s: number %q is not tied to a salary comparison", ErrNoMatch, e.Reference)
	case ReasonEmpty:
		return fmt.Sprintf("%s: empty question", ErrNoMatch)
	}
	return fmt.Sprintf("%s: %q", ErrNoMatch, e.Question)
}

func (e *NoMatchError) Unwrap() error { return ErrNoMatch }

// exampleQuestions are offered when nothing matched.
var exampleQuestions = []string{
	"Who earns most in IT?",
	"All with salary over 50000",
	"How many work in Finance?",
	"Average salary per department",
	"Compare IT and Finance",
	"What percentage earn more than 40k?",
	"Vem tjänar mest?",
}

// Help returns the user-facing explanation.
func (e *NoMatchError) Help() string {
	switch e.Reason {
	case ReasonUnusedNumber:
		return fmt.Sprintf("I could not tell how %q applies. Try \"salary over %s\" or \"%s or more\".", e.Reference, e.Reference, e.Reference)
	case ReasonUnknownEntity:
		msg := fmt.Sprintf("No department, role or location found matching %q.", e.Reference)
		if len(e.Known) > 0 {
			msg += " Departments in this dataset: " + strings.Join(e.Known, ", ") + "."
		}
		return msg
	}
	return "I could not interpret that question. Try for example:\n  - " + strings.Join(exampleQuestions, "\n  - ")
}

// Result renders the error as an explanatory QueryResult with no rows.
func (e *NoMatchError) Result() engine.QueryResult {
	tr := "no_match(" + string(e.Reason) + ")"
	if e.RuleID != "" {
		tr = e.RuleID + ": " + tr
	}
	return engine.QueryResult{
		AnswerText: e.Help(),
		Columns:    []string{},
		Rows:       []engine.Row{},
		Trace:      tr,
		ModeUsed:   engine.ModePattern,
	}
}
