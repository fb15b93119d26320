package translator

import (
	"errors"
	"strings"

	"github.com/spektr-org/paylens/plan"
)

// ============================================================================
// RESPONSE PARSER — Extracts the plan from a model reply
// ============================================================================
// Models wrap JSON in ``` fences or add a sentence around it despite the
// instructions. extractJSON peels that off; plan.Parse does the rest.
// ============================================================================

// parsePlan extracts and parses the plan in response. A reply without a JSON
// document is a *CallError wrapping ErrMalformedResponse; a document of the
// wrong shape is a *plan.RejectedError.
func parsePlan(provider, response string) (*plan.Document, error) {
	body := extractJSON(response)
	if body == "" {
		return nil, malformed(provider, "reply contains no JSON object: %s", truncate(strings.TrimSpace(response), 80))
	}
	doc, err := plan.Parse([]byte(body))
	if errors.Is(err, plan.ErrInvalidJSON) {
		return nil, &CallError{Provider: provider, Kind: ErrMalformedResponse, Cause: err}
	}
	return doc, err
}

// extractJSON returns the outermost {...} of response, with any markdown
// fence removed. Empty when there is none.
func extractJSON(response string) string {
	s := strings.TrimSpace(response)
	if strings.HasPrefix(s, "```") {
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			s = s[nl+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		if end := strings.LastIndex(s, "```"); end >= 0 {
			s = s[:end]
		}
		s = strings.TrimSpace(s)
	}

	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return ""
	}
	return s[start : end+1]
}
