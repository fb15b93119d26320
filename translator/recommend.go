package translator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spektr-org/paylens/engine"
)

// ============================================================================
// RECOMMENDATIONS — HR actions from dataset statistics
// ============================================================================
// What the model sees: engine.ComputeStats output (counts, mean, median,
// range, per-department averages, outlier count). Never rows or names.
//
// What the model returns, one per line:
//   PRIORITY|CATEGORY|TEXT
// ============================================================================

// Priority of a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// Category of a recommendation.
type Category string

const (
	CategoryRetention  Category = "RETENTION"
	CategoryCost       Category = "COST"
	CategoryEquity     Category = "EQUITY"
	CategoryCompliance Category = "COMPLIANCE"
	CategoryMarket     Category = "MARKET"
	CategoryGeneral    Category = "GENERAL"
)

var knownCategories = map[Category]bool{
	CategoryRetention:  true,
	CategoryCost:       true,
	CategoryEquity:     true,
	CategoryCompliance: true,
	CategoryMarket:     true,
}

// Recommendation is one suggested action.
type Recommendation struct {
	Priority Priority `json:"priority"`
	Category Category `json:"category"`
	Text     string   `json:"text"`
}

// Recommend asks p for recommendations about ds.
func Recommend(ctx context.Context, p Provider, ds *engine.Dataset, unit string) ([]Recommendation, error) {
	if p == nil {
		return nil, ErrCapabilityUnavailable
	}
	if ds == nil || ds.Len() == 0 {
		return nil, fmt.Errorf("recommend: dataset is empty")
	}

	reply, err := p.Complete(ctx, BuildRecommendationPrompt(engine.ComputeStats(ds), unit))
	if err != nil {
		if !errors.Is(err, ErrCapabilityUnavailable) && !errors.Is(err, ErrMalformedResponse) {
			err = unavailable(p.Name(), err)
		}
		return nil, err
	}

	recs := ParseRecommendations(reply)
	if len(recs) == 0 {
		return nil, malformed(p.Name(), "no PRIORITY|CATEGORY|TEXT lines in reply")
	}
	return recs, nil
}

// BuildRecommendationPrompt renders the statistics-only prompt.
func BuildRecommendationPrompt(s engine.Stats, unit string) string {
	amount := func(v float64) string { return engine.FormatAmount(v, unit) }

	var b strings.Builder
	b.WriteString("You are an HR analytics expert. Analyze this salary data and provide 5-7 concrete, actionable recommendations.\n\n")

	b.WriteString("DATA SUMMARY:\n\nOVERALL METRICS:\n")
	fmt.Fprintf(&b, "- Total Employees: %s\n", engine.FormatInt(s.Employees))
	fmt.Fprintf(&b, "- Average Salary: %s\n", amount(s.Mean))
	fmt.Fprintf(&b, "- Median Salary: %s\n", amount(s.Median))
	fmt.Fprintf(&b, "- Salary Range: %s - %s\n", amount(s.Min), amount(s.Max))
	fmt.Fprintf(&b, "- Total Monthly Cost: %s\n", amount(s.Total))

	b.WriteString("\nDEPARTMENT BREAKDOWN:\n")
	for _, d := range s.ByDepartment {
		fmt.Fprintf(&b, "- %s: %s employees, avg %s\n", d.Department, engine.FormatInt(d.Count), amount(d.Mean))
	}
	if len(s.Outliers) > 0 {
		fmt.Fprintf(&b, "\nOUTLIERS:\n- %s salaries outside normal range (±%g std)\n", engine.FormatInt(len(s.Outliers)), engine.OutlierSigma)
	}

	b.WriteString(`
Provide recommendations in this EXACT format (one per line):
PRIORITY|CATEGORY|RECOMMENDATION

Where:
- PRIORITY: HIGH, MEDIUM, or LOW
- CATEGORY: RETENTION, COST, EQUITY, COMPLIANCE, or MARKET
- RECOMMENDATION: One clear, specific action (max 100 words)

Provide 5-7 recommendations now:
`)
	return b.String()
}

// ParseRecommendations reads PRIORITY|CATEGORY|TEXT lines. Lines without
// two separators are skipped; unknown priorities become MEDIUM and unknown
// categories GENERAL. TEXT may itself contain '|'.
func ParseRecommendations(text string) []Recommendation {
	var recs []Recommendation
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimLeft(strings.TrimSpace(line), "-*• ")
		parts := strings.SplitN(line, "|", 3)
		if len(parts) < 3 {
			continue
		}
		body := strings.TrimSpace(parts[2])
		if body == "" {
			continue
		}

		priority := Priority(strings.ToUpper(strings.TrimSpace(parts[0])))
		switch priority {
		case PriorityHigh, PriorityMedium, PriorityLow:
		default:
			priority = PriorityMedium
		}
		category := Category(strings.ToUpper(strings.TrimSpace(parts[1])))
		if !knownCategories[category] {
			category = CategoryGeneral
		}

		recs = append(recs, Recommendation{Priority: priority, Category: category, Text: body})
	}
	return recs
}
