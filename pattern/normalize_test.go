package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spektr-org/paylens/engine"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"Vem tjänar MEST på Ekonomi?": "vem tjanar mest pa ekonomi",
		"salary >= 50000?":            "salary at least 50000",
		"salary<40000":                "salary less than 40000",
		"50% of staff":                "50 percent of staff",
		"  Löner   över 50 000 kr!! ": "loner over 50 000 kr",
		"R&D vs. Sales":               "r and d vs sales",
		"between 50,000 and 50.5k.":   "between 50,000 and 50.5k",
		"Genomsnittlig lön, per avd.": "genomsnittlig lon per avd",
		"50k+ earners":                "50k or more earners",
		"":                            "",
	}
	for in, want := range cases {
		assert.Equal(t, want, Normalize(in), "Normalize(%q)", in)
	}
}

func TestExtractBounds(t *testing.T) {
	cases := []struct {
		text string
		want []Bound
	}{
		{"over 50 000", []Bound{{engine.CmpGE, 50000}}},
		{"more than 50,000", []Bound{{engine.CmpGT, 50000}}},
		{"at least 50.5k", []Bound{{engine.CmpGE, 50500}}},
		{"max 40 tusen", []Bound{{engine.CmpLE, 40000}}},
		{"under 45k and over 30k", []Bound{{engine.CmpLE, 45000}, {engine.CmpGE, 30000}}},
		{"mellan 30 000 och 40 000", []Bound{{engine.CmpGE, 30000}, {engine.CmpLE, 40000}}},
		{"between 60000 and 40000", []Bound{{engine.CmpGE, 40000}, {engine.CmpLE, 60000}}},
		{"50000 or more", []Bound{{engine.CmpGE, 50000}}},
		{"50 000 kr and above", []Bound{{engine.CmpGE, 50000}}},
		{"50k+", []Bound{{engine.CmpGE, 50000}}},
		{"40 tusen eller mindre", []Bound{{engine.CmpLE, 40000}}},
		{"40k och nedåt", []Bound{{engine.CmpLE, 40000}}},
		{"50k and up to 60k", []Bound{{engine.CmpGE, 50000}, {engine.CmpLE, 60000}}},
		{"top 3 earners", nil},
		{"max salary", nil},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			assert.Equal(t, tc.want, extractBounds(Normalize(tc.text)))
		})
	}
}

func TestParseNumber(t *testing.T) {
	cases := []struct {
		digits, suffix string
		want           float64
	}{
		{"50000", "", 50000},
		{"50 000", "", 50000},
		{"50,000", "", 50000},
		{"1,250,000", "", 1250000},
		{"50,5", "", 50.5},
		{"50.5", "k", 50500},
		{"40", "tusen", 40000},
	}
	for _, tc := range cases {
		got, ok := parseNumber(tc.digits, tc.suffix)
		assert.True(t, ok, tc.digits)
		assert.Equal(t, tc.want, got, tc.digits)
	}
}

func TestRankCount(t *testing.T) {
	cases := map[string]int{
		"who earns most":       1,
		"top 5 earners":        5,
		"top three salaries":   3,
		"the 2 highest paid":   2,
		"top 50000 earners":    1,
		"de tre hogst betalda": 3,
		"visa topp":            1,
	}
	for q, want := range cases {
		assert.Equal(t, want, rankCount(newQuestion(q)), q)
	}
}
