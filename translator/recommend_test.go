package translator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spektr-org/paylens/engine"
)

func TestParseRecommendations(t *testing.T) {
	reply := `Here are my recommendations:
HIGH|RETENTION|IT salaries trail Finance. Review developer pay.
- low | equity | Publish salary bands.
URGENT|COST|Freeze hiring in Sales.
MEDIUM|PEOPLE|Run an engagement survey.
MEDIUM|MARKET|Compare with market data | focus on seniors.
MEDIUM|COST|
not a recommendation`

	got := ParseRecommendations(reply)
	want := []Recommendation{
		{PriorityHigh, CategoryRetention, "IT salaries trail Finance. Review developer pay."},
		{PriorityLow, CategoryEquity, "Publish salary bands."},
		{PriorityMedium, CategoryCost, "Freeze hiring in Sales."},
		{PriorityMedium, CategoryGeneral, "Run an engagement survey."},
		{PriorityMedium, CategoryMarket, "Compare with market data | focus on seniors."},
	}
	assert.Equal(t, want, got)
}

func TestRecommendSendsStatsOnly(t *testing.T) {
	p := &fakeProvider{reply: "HIGH|EQUITY|Close the gap between IT roles."}

	recs, err := Recommend(context.Background(), p, exampleDataset(), "kr")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, CategoryEquity, recs[0].Category)

	prompt := p.prompts[0]
	assert.Contains(t, prompt, "- Total Employees: 3")
	assert.Contains(t, prompt, "- Salary Range: 45,000 kr - 60,000 kr")
	assert.Contains(t, prompt, "- IT: 2 employees, avg 52,500 kr")
	assert.NotContains(t, prompt, "Anna Berg")
}

func TestRecommendFailures(t *testing.T) {
	_, err := Recommend(context.Background(), nil, exampleDataset(), "kr")
	assert.ErrorIs(t, err, ErrCapabilityUnavailable)

	_, err = Recommend(context.Background(), &fakeProvider{reply: "x"}, engine.NewDataset(nil, nil), "kr")
	assert.Error(t, err)

	_, err = Recommend(context.Background(), &fakeProvider{reply: "no lines here"}, exampleDataset(), "kr")
	assert.ErrorIs(t, err, ErrMalformedResponse)
}
