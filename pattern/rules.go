package pattern

import (
	"regexp"
	"strings"

	"github.com/spektr-org/paylens/engine"
)

// ============================================================================
// RULES — Ordered (predicate, extractor, builder) tuples
// ============================================================================
// First match wins. A builder may decline (ok=false) and let later rules
// try, e.g. compare_departments with fewer than two departments named.
//
//   percentage → compare_departments → count → top_earner → lowest_earner
//   → aggregate → threshold → list_all
//
// Triggers are written against Normalize output: lowercase, no diacritics
// ("tjänar" is "tjanar", "över" is "over").
// ============================================================================

// question is a normalized question. plain is norm with salary bound
// phrases removed, so "tjanar minst 50000" (earns at least) does not read as
// "earns least".
type question struct {
	raw     string
	norm    string
	plain   string
	swedish bool
}

func newQuestion(raw string) question {
	n := Normalize(raw)
	plain := strings.Join(strings.Fields(stripBounds(n)), " ")
	return question{raw: raw, norm: n, plain: plain, swedish: hasAny(n, swedishMarkers...)}
}

type rule struct {
	id      string
	match   func(q question) bool
	extract func(q question, v vocabulary) entities
	build   func(q question, e entities) (Intent, bool)
}

var rules = []rule{
	{id: "percentage", match: matchAny(percentageRe), extract: extractEntities, build: buildPercentage},
	{id: "compare_departments", match: matchAny(compareRe), extract: extractEntities, build: buildComparison},
	{id: "count", match: matchAny(countRe), extract: extractEntities, build: buildCount},
	{id: "top_earner", match: matchPlain(topRes...), extract: extractEntities, build: buildTop(false)},
	{id: "lowest_earner", match: matchPlain(lowestRes...), extract: extractEntities, build: buildTop(true)},
	{id: "aggregate", match: matchAny(aggregateRe), extract: extractEntities, build: buildAggregate},
	{id: "threshold", match: matchAny(thresholdRe, postfixRe, betweenRe), extract: extractEntities, build: buildThreshold},
	{id: "list_all", match: matchAny(listRe), extract: extractEntities, build: buildList},
}

// ============================================================================
// TRIGGERS
// ============================================================================

var (
	percentageRe = regexp.MustCompile(`\b(percentage|percent|share|proportion|fraction|andel|andelen|procent|hur stor del)\b`)
	compareRe    = regexp.MustCompile(`\b(compare|comparing|comparison|vs|versus|against|difference between|jamfor|jamfora|jamforelse|skillnad mellan|skillnaden mellan)\b`)
	countRe      = regexp.MustCompile(`\b(how many|number of|count|headcount|head count|hur manga|antal|antalet)\b`)
	aggregateRe  = regexp.MustCompile(`\b(average|avg|mean|median|total|sum|payroll|genomsnitt|genomsnittlig|genomsnittliga|genomsnittslon|medel|medellon|medelvarde|snitt|snittlon|totalt|summa|medianlon|lonekostnad|lonekostnader)\b`)
	listRe       = regexp.MustCompile(`\b(show|list|display|visa|lista|everyone|everybody|all employees|alla anstallda|who works|vilka jobbar|vilka arbetar)\b`)

	salaryNouns = `(paid|salary|salaries|earner|earners|earning|income|wage|wages|pay|lon|loner|lonen|betald|betalda|inkomst)`

	topRes = []*regexp.Regexp{
		regexp.MustCompile(`\b(earn|earns|earning|earned|make|makes|making|paid|gets|get|tjanar|tjana|har) (the )?(most|mest)\b`),
		regexp.MustCompile(`\b(highest|biggest|largest|best|top|greatest|maximum|max|hogst|hogsta|storst|storsta|bast|basta) ([a-z]+ )?` + salaryNouns + `\b`),
		regexp.MustCompile(`\b(top|hogstbetalda|hogstbetald|richest)\b`),
		regexp.MustCompile(`\bwho (has|have|gets|is) the (highest|biggest|largest|best|top)\b`),
	}
	lowestRes = []*regexp.Regexp{
		regexp.MustCompile(`\b(earn|earns|earning|earned|make|makes|making|paid|gets|get|tjanar|tjana|har) (the )?(least|minst)\b`),
		regexp.MustCompile(`\b(lowest|smallest|least|worst|minimum|min|lagst|lagsta|minsta|samst|samsta) ([a-z]+ )?` + salaryNouns + `\b`),
		regexp.MustCompile(`\b(bottom|lagstbetalda|lagstbetald)\b`),
		regexp.MustCompile(`\bwho (has|have|gets|is) the (lowest|smallest|least|worst)\b`),
	}

	rankCountRe = regexp.MustCompile(`\b(?:top|bottom|highest|lowest|best|worst|first) (\d+|one|two|three|four|five|six|seven|eight|nine|ten|tva|tre|fyra|fem|tio)\b`)
	countRankRe = regexp.MustCompile(`\b(\d+|two|three|four|five|six|seven|eight|nine|ten|tva|tre|fyra|fem|tio) (?:highest|lowest|best|worst|top|bottom|most|least|hogst|lagst)\b`)
	highWordRe  = regexp.MustCompile(`\b(highest|most|best|top|biggest|largest|hogst|hogsta|mest|storst)\b`)
	lowWordRe   = regexp.MustCompile(`\b(lowest|least|worst|bottom|smallest|lagst|lagsta|minst)\b`)

	medianRe = regexp.MustCompile(`\b(median|medianlon)\b`)
	meanRe   = regexp.MustCompile(`\b(average|avg|mean|genomsnitt|genomsnittlig|genomsnittliga|genomsnittslon|medel|medellon|medelvarde|snitt|snittlon)\b`)
	sumRe    = regexp.MustCompile(`\b(total|sum|payroll|totalt|summa|lonekostnad|lonekostnader)\b`)

	groupRe = regexp.MustCompile(`\b(?:per|by|for each|for every|each|across|in each|inom varje|for varje|i varje|fordelat pa|uppdelat pa) ([a-z]+)\b`)
	whichRe = regexp.MustCompile(`\b(?:which|what|vilken|vilka) ([a-z]+)\b`)
)

// triggers are every phrase a rule or parameter reads. Words inside their
// matches are question grammar, never a department name.
var triggers = func() []*regexp.Regexp {
	out := []*regexp.Regexp{
		percentageRe, compareRe, countRe, aggregateRe, listRe,
		rankCountRe, countRankRe, highWordRe, lowWordRe, groupRe, whichRe,
		thresholdRe, postfixRe, betweenRe,
	}
	out = append(out, topRes...)
	return append(out, lowestRes...)
}()

// groupColumns maps group-by nouns to canonical columns.
var groupColumns = map[string]string{
	"department": engine.ColDepartment, "departments": engine.ColDepartment,
	"dept": engine.ColDepartment, "depts": engine.ColDepartment,
	"avdelning": engine.ColDepartment, "avdelningar": engine.ColDepartment,
	"role": engine.ColRole, "roles": engine.ColRole, "title": engine.ColRole,
	"titles": engine.ColRole, "position": engine.ColRole, "positions": engine.ColRole,
	"roll": engine.ColRole, "roller": engine.ColRole,
	"location": engine.ColLocation, "locations": engine.ColLocation,
	"city": engine.ColLocation, "cities": engine.ColLocation,
	"office": engine.ColLocation, "offices": engine.ColLocation,
	"ort": engine.ColLocation, "orter": engine.ColLocation,
	"level": engine.ColLevel, "levels": engine.ColLevel,
	"grade": engine.ColLevel, "grades": engine.ColLevel,
	"niva": engine.ColLevel, "nivaer": engine.ColLevel,
}

func matchAny(res ...*regexp.Regexp) func(q question) bool {
	return func(q question) bool { return anyMatch(q.norm, res) }
}

// matchPlain matches against the question without its salary bounds.
func matchPlain(res ...*regexp.Regexp) func(q question) bool {
	return func(q question) bool { return anyMatch(q.plain, res) }
}

func anyMatch(text string, res []*regexp.Regexp) bool {
	for _, re := range res {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}

// ============================================================================
// BUILDERS
// ============================================================================

func buildPercentage(_ question, e entities) (Intent, bool) {
	return Percentage{Scope: e.scope}, true
}

func buildComparison(q question, e entities) (Intent, bool) {
	if len(e.departments) < 2 {
		return nil, false
	}
	scope := e.scope
	scope.Departments = nil
	return CrossDepartmentComparison{Departments: e.departments, Agg: aggFuncFor(q), Scope: scope}, true
}

func buildCount(q question, e entities) (Intent, bool) {
	if col := groupColumn(q); col != "" {
		return AggregateByGroup{Agg: engine.AggCount, GroupBy: col, Scope: e.scope}, true
	}
	return Count{Scope: e.scope}, true
}

func buildTop(lowest bool) func(q question, e entities) (Intent, bool) {
	return func(q question, e entities) (Intent, bool) {
		// "highest average salary" is an aggregate question.
		if aggregateRe.MatchString(q.norm) {
			return nil, false
		}
		return TopN{N: rankCount(q), Lowest: lowest, Scope: e.scope}, true
	}
}

func buildAggregate(q question, e entities) (Intent, bool) {
	lowest := lowWordRe.MatchString(q.plain)
	return AggregateByGroup{
		Agg:     aggFuncFor(q),
		GroupBy: groupColumn(q),
		Lowest:  lowest,
		Ranked:  lowest || highWordRe.MatchString(q.plain),
		Scope:   e.scope,
	}, true
}

func buildThreshold(_ question, e entities) (Intent, bool) {
	if len(e.scope.Bounds) == 0 {
		return nil, false
	}
	return ThresholdFilter{Scope: e.scope}, true
}

func buildList(_ question, e entities) (Intent, bool) {
	return ListAll{Scope: e.scope}, true
}

// ============================================================================
// PARAMETERS
// ============================================================================

// maxRank bounds "top N"; larger numbers are read as salaries, not counts.
const maxRank = 100

// rankCount reads N from "top 3", "3 highest", "top three". Default 1.
func rankCount(q question) int {
	for _, re := range []*regexp.Regexp{rankCountRe, countRankRe} {
		if m := re.FindStringSubmatch(q.plain); m != nil {
			if n, ok := countWord(m[1]); ok && n <= maxRank {
				return n
			}
		}
	}
	return 1
}

// aggFuncFor picks the aggregate a question names. Mean unless median or a
// total is asked for.
func aggFuncFor(q question) engine.AggFunc {
	switch {
	case medianRe.MatchString(q.norm):
		return engine.AggMedian
	case meanRe.MatchString(q.norm):
		return engine.AggMean
	case sumRe.MatchString(q.norm):
		return engine.AggSum
	}
	return engine.AggMean
}

// groupColumn returns the column after "per"/"by"/"for each" or in "which
// department", or "".
func groupColumn(q question) string {
	for _, re := range []*regexp.Regexp{groupRe, whichRe} {
		for _, m := range re.FindAllStringSubmatch(q.norm, -1) {
			if col, ok := groupColumns[strings.TrimSpace(m[1])]; ok {
				return col
			}
		}
	}
	return ""
}
