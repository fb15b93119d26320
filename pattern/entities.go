package pattern

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/spektr-org/paylens/engine"
)

// ============================================================================
// ENTITY EXTRACTION — Departments, roles, locations and salary bounds
// ============================================================================
// Vocabulary comes from the dataset itself, so "Ekonomi" works for a
// Swedish payroll file and "Finance" for an English one without any
// configuration. Matching is longest-first on whole words; a matched span is
// masked so "Senior Developer" does not also count as "Developer".
// ============================================================================

// term is one vocabulary entry.
type term struct {
	column    string
	canonical string // value as written in the dataset
	norm      string // Normalize(canonical)
}

// vocabulary holds the dataset's matchable values.
type vocabulary struct {
	terms []term          // longest norm first
	known map[string]bool // every normalized token of every value, level included
	depts []string        // canonical departments, dataset order
}

func buildVocabulary(ds *engine.Dataset) vocabulary {
	v := vocabulary{known: make(map[string]bool), depts: ds.Departments()}
	add := func(column string, values []string) {
		for _, val := range values {
			n := Normalize(val)
			if n == "" {
				continue
			}
			v.terms = append(v.terms, term{column: column, canonical: val, norm: n})
			for _, tok := range strings.Fields(n) {
				v.known[tok] = true
			}
		}
	}
	add(engine.ColDepartment, ds.Departments())
	add(engine.ColRole, ds.Roles())
	if ds.HasColumn(engine.ColLocation) {
		add(engine.ColLocation, engine.UniqueValues(ds, engine.ColLocation))
	}
	if ds.HasColumn(engine.ColLevel) {
		for _, lvl := range engine.UniqueValues(ds, engine.ColLevel) {
			for _, tok := range strings.Fields(Normalize(lvl)) {
				v.known[tok] = true
			}
		}
	}
	// Departments before roles on equal length: a value that is both is
	// read as a department.
	sort.SliceStable(v.terms, func(i, j int) bool {
		return len(v.terms[i].norm) > len(v.terms[j].norm)
	})
	return v
}

// ============================================================================
// SCOPE
// ============================================================================

// Bound is a salary threshold.
type Bound struct {
	Op    engine.Comparison
	Value float64
}

func (b Bound) String() string {
	return engine.ColSalary + " " + string(b.Op) + " " + formatArg(b.Value)
}

// Scope narrows an intent to departments, a role, a location and salary
// bounds. Several departments are a union ("in Finance and IT").
// Zero value = the whole dataset.
type Scope struct {
	Departments []string
	Role        string
	Location    string
	Bounds      []Bound
}

// apply returns the records of view inside the scope, in original order.
func (s Scope) apply(view engine.RecordView) engine.RecordView {
	filters := engine.Filters{Dimensions: map[string][]string{}}
	if len(s.Departments) > 0 {
		filters.Dimensions[engine.ColDepartment] = s.Departments
	}
	if s.Role != "" {
		filters.Dimensions[engine.ColRole] = []string{s.Role}
	}
	if s.Location != "" {
		filters.Dimensions[engine.ColLocation] = []string{s.Location}
	}
	out := engine.ApplyFilters(view, filters)
	for _, b := range s.Bounds {
		in := out
		out = engine.FilterFunc(in, func(i int) bool {
			return b.Op.Holds(in.Measure(i, engine.ColSalary), b.Value)
		})
	}
	return out
}

// withoutBounds drops the salary bounds.
func (s Scope) withoutBounds() Scope {
	s.Bounds = nil
	return s
}

// args renders the scope for traces: "department=IT", "salary >= 50000".
func (s Scope) args() []string {
	var out []string
	if len(s.Departments) > 0 {
		out = append(out, engine.ColDepartment+"="+strings.Join(s.Departments, "|"))
	}
	if s.Role != "" {
		out = append(out, engine.ColRole+"="+s.Role)
	}
	if s.Location != "" {
		out = append(out, engine.ColLocation+"="+s.Location)
	}
	for _, b := range s.Bounds {
		out = append(out, b.String())
	}
	return out
}

// place renders the non-salary part of the scope: " in IT with role Developer".
func (s Scope) place() string {
	var parts []string
	if len(s.Departments) > 0 {
		parts = append(parts, "in "+joinAnd(s.Departments))
	}
	if s.Role != "" {
		parts = append(parts, "with role "+s.Role)
	}
	if s.Location != "" {
		parts = append(parts, "located in "+s.Location)
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}

// salaryPhrase renders the bounds: "with salary at least 50,000 kr".
func (s Scope) salaryPhrase(unit string) string {
	if len(s.Bounds) == 0 {
		return ""
	}
	parts := make([]string, len(s.Bounds))
	for i, b := range s.Bounds {
		parts[i] = b.Op.Phrase() + " " + engine.FormatAmount(b.Value, unit)
	}
	return " with salary " + strings.Join(parts, " and ")
}

// ============================================================================
// EXTRACTION
// ============================================================================

// entities is what the extractor found in one question.
type entities struct {
	scope       Scope
	departments []string // every department mentioned, in question order
	unknown     string   // first word that names no department, role or location
	stray       string   // salary-sized number no bound phrase claims
}

type mention struct {
	pos  int
	term term
}

// entityPrepositions introduce a department, role or location.
var entityPrepositions = map[string]bool{
	"in": true, "at": true, "from": true, "within": true, "inside": true,
	"pa": true, "inom": true, "hos": true, "fran": true,
}

// articles are skipped between a preposition and its noun.
var articles = map[string]bool{
	"the": true, "a": true, "an": true, "our": true, "my": true, "this": true,
	"that": true, "those": true, "these": true, "its": true, "their": true,
	"var": true, "vara": true, "den": true, "det": true,
}

// stopWords may follow a preposition without naming an entity.
var stopWords = map[string]bool{
	"total": true, "all": true, "each": true, "every": true, "general": true,
	"company": true, "companies": true, "firm": true, "business": true,
	"organization": true, "organisation": true, "org": true, "group": true,
	"team": true, "teams": true, "department": true, "departments": true,
	"dept": true, "role": true, "roles": true, "position": true,
	"positions": true, "location": true, "locations": true, "level": true,
	"levels": true, "office": true, "offices": true, "dataset": true,
	"data": true, "file": true, "list": true, "table": true, "salary": true,
	"salaries": true, "pay": true, "payroll": true, "terms": true,
	"percent": true, "kr": true, "sek": true, "usd": true, "eur": true,
	"people": true, "employees": true, "employee": true, "staff": true,
	"workers": true, "everyone": true, "anyone": true, "someone": true,
	"order": true, "range": true, "between": true, "which": true,
	"what": true, "there": true, "here": true, "it": true, "least": true,
	"most": true, "more": true, "less": true, "over": true, "under": true,
	"above": true, "below": true, "month": true, "year": true,
	"foretaget": true, "bolaget": true, "firman": true, "alla": true,
	"varje": true, "totalt": true, "avdelning": true, "avdelningen": true,
	"avdelningar": true, "roll": true, "rollen": true, "ort": true,
	"personer": true, "anstallda": true, "lon": true, "loner": true,
	"manaden": true, "manad": true, "ar": true,
}

// commonWords are words that must not match a vocabulary value of the same
// spelling unless the question uses the dataset's casing ("IT" vs "it").
var commonWords = map[string]bool{
	"it": true, "i": true, "a": true, "an": true, "in": true, "at": true,
	"on": true, "is": true, "or": true, "and": true, "as": true, "us": true,
	"all": true, "pa": true, "och": true, "en": true, "ett": true,
}

// swedishMarkers identify questions in which "i" is the preposition "in".
var swedishMarkers = []string{
	"hur", "vem", "vilka", "vilken", "visa", "lista", "jobbar", "arbetar",
	"tjanar", "lon", "manga", "alla", "antal", "snitt", "genomsnitt",
	"andel", "medellon", "snittlon", "genomsnittlig",
}

// extractEntities finds scope, mentioned departments, and unmatched
// references in q.
func extractEntities(q question, v vocabulary) entities {
	var e entities

	padded := []byte(" " + q.norm + " ")
	var found []mention
	for _, t := range v.terms {
		needle := " " + t.norm + " "
		from := 0
		for {
			idx := strings.Index(string(padded[from:]), needle)
			if idx < 0 {
				break
			}
			at := from + idx
			from = at + 1
			if commonWords[t.norm] && !strings.Contains(q.raw, t.canonical) && !afterPreposition(padded, at, q.swedish) {
				continue
			}
			found = append(found, mention{pos: at, term: t})
			for k := at + 1; k < at+len(needle)-1; k++ {
				padded[k] = 0
			}
			break
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].pos < found[j].pos })

	seenDept := make(map[string]bool)
	for _, m := range found {
		switch m.term.column {
		case engine.ColDepartment:
			if !seenDept[m.term.canonical] {
				seenDept[m.term.canonical] = true
				e.departments = append(e.departments, m.term.canonical)
			}
		case engine.ColRole:
			if e.scope.Role == "" {
				e.scope.Role = m.term.canonical
			}
		case engine.ColLocation:
			if e.scope.Location == "" {
				e.scope.Location = m.term.canonical
			}
		}
	}

	e.scope.Departments = e.departments
	e.scope.Bounds = extractBounds(q.norm)
	e.unknown = unmatchedReference(string(padded), v, q.swedish)
	if e.unknown == "" {
		e.unknown = capitalizedReference(q, v)
	}
	e.stray = strayNumber(string(padded))
	return e
}

// joinAnd renders "IT", "Finance and IT", "HR, Finance and IT".
func joinAnd(items []string) string {
	if len(items) < 2 {
		return strings.Join(items, "")
	}
	return strings.Join(items[:len(items)-1], ", ") + " and " + items[len(items)-1]
}

// afterPreposition reports whether the word starting at pos+1 in padded
// follows an entity preposition.
func afterPreposition(padded []byte, pos int, swedish bool) bool {
	prev := strings.Fields(string(padded[:pos]))
	if len(prev) == 0 {
		return false
	}
	last := prev[len(prev)-1]
	return entityPrepositions[last] || (swedish && last == "i")
}

// unmatchedReference scans the masked question for a preposition followed by
// a word that is not vocabulary, a stop word, or a number.
func unmatchedReference(masked string, v vocabulary, swedish bool) string {
	tokens := strings.Fields(masked)
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if !entityPrepositions[tok] && !(swedish && tok == "i") {
			continue
		}
		j := i + 1
		for j < len(tokens) && articles[tokens[j]] {
			j++
		}
		if j >= len(tokens) {
			continue
		}
		next := tokens[j]
		switch {
		case next[0] == 0:
			// masked vocabulary
		case stopWords[next], v.known[next], groupColumns[next] != "":
		case numberRe.MatchString(next):
		default:
			return next
		}
	}
	return ""
}

// rawWord is a word of the question as typed.
type rawWord struct {
	text    string
	initial bool // first word of a sentence
}

func rawWords(s string) []rawWord {
	var out []rawWord
	initial, start := true, -1
	for i, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			out = append(out, rawWord{s[start:i], initial})
			start, initial = -1, false
		}
		if strings.ContainsRune(".?!:;", r) {
			initial = true
		}
	}
	if start >= 0 {
		out = append(out, rawWord{s[start:], initial})
	}
	return out
}

// capitalizedReference finds a word the asker wrote as a name that the
// dataset does not contain: "average salary Marketing", or "IT" when there
// is no IT department. A question typed entirely in capitals carries no
// such signal and is skipped.
func capitalizedReference(q question, v vocabulary) string {
	if strings.IndexFunc(q.raw, unicode.IsLower) < 0 {
		return ""
	}
	grammar := make(map[string]bool)
	for _, re := range triggers {
		for _, m := range re.FindAllString(q.norm, -1) {
			for _, w := range strings.Fields(m) {
				grammar[w] = true
			}
		}
	}

	for _, w := range rawWords(q.raw) {
		if strings.IndexFunc(w.text, unicode.IsDigit) >= 0 {
			continue
		}
		n := Normalize(w.text)
		acronym := len([]rune(w.text)) > 1 && strings.IndexFunc(w.text, unicode.IsLower) < 0
		first := []rune(w.text)[0]
		switch {
		case n == "" || v.known[n]:
		case acronym && commonWords[n]:
			return w.text
		case w.initial || !unicode.IsUpper(first):
		case stopWords[n], commonWords[n], articles[n], entityPrepositions[n]:
		case groupColumns[n] != "", grammar[n]:
		default:
			return w.text
		}
	}
	return ""
}

// ============================================================================
// SALARY BOUNDS
// ============================================================================

// opPhrase is a normalized operator phrase and the comparison it means.
type opPhrase struct {
	phrase string
	op     engine.Comparison
}

// thresholdPhrases precede the number. "more than" is exclusive; "over" and
// "above" are inclusive.
var thresholdPhrases = []opPhrase{
	{"more than", engine.CmpGT},
	{"greater than", engine.CmpGT},
	{"higher than", engine.CmpGT},
	{"bigger than", engine.CmpGT},
	{"exceeding", engine.CmpGT},
	{"exceeds", engine.CmpGT},
	{"mer an", engine.CmpGT},
	{"hogre an", engine.CmpGT},
	{"storre an", engine.CmpGT},
	{"overstiger", engine.CmpGT},
	{"at least", engine.CmpGE},
	{"over", engine.CmpGE},
	{"above", engine.CmpGE},
	{"minst", engine.CmpGE},
	{"less than", engine.CmpLT},
	{"fewer than", engine.CmpLT},
	{"lower than", engine.CmpLT},
	{"smaller than", engine.CmpLT},
	{"mindre an", engine.CmpLT},
	{"lagre an", engine.CmpLT},
	{"at most", engine.CmpLE},
	{"up to", engine.CmpLE},
	{"under", engine.CmpLE},
	{"below", engine.CmpLE},
	{"max", engine.CmpLE},
	{"maximum", engine.CmpLE},
	{"hogst", engine.CmpLE},
	{"upp till", engine.CmpLE},
}

// postfixPhrases follow the number: "50000 or more", "40k och nedat".
// "50000+" reaches here as "50000 or more" through Normalize. All inclusive.
var postfixPhrases = []opPhrase{
	{"or more", engine.CmpGE},
	{"or above", engine.CmpGE},
	{"or higher", engine.CmpGE},
	{"or greater", engine.CmpGE},
	{"or over", engine.CmpGE},
	{"and above", engine.CmpGE},
	{"and over", engine.CmpGE},
	{"and up", engine.CmpGE},
	{"eller mer", engine.CmpGE},
	{"eller mera", engine.CmpGE},
	{"eller hogre", engine.CmpGE},
	{"eller over", engine.CmpGE},
	{"och mer", engine.CmpGE},
	{"och over", engine.CmpGE},
	{"och uppat", engine.CmpGE},
	{"or less", engine.CmpLE},
	{"or below", engine.CmpLE},
	{"or lower", engine.CmpLE},
	{"or under", engine.CmpLE},
	{"and below", engine.CmpLE},
	{"and under", engine.CmpLE},
	{"and less", engine.CmpLE},
	{"eller mindre", engine.CmpLE},
	{"eller lagre", engine.CmpLE},
	{"eller under", engine.CmpLE},
	{"och mindre", engine.CmpLE},
	{"och under", engine.CmpLE},
	{"och nedat", engine.CmpLE},
}

var (
	thresholdRe = regexp.MustCompile(`\b(` + phraseAlternation(thresholdPhrases) + `) (?:a |an )?(?:salary |monthly salary |lon |of )?` + numberPattern + `\b`)
	postfixRe   = regexp.MustCompile(`\b` + numberPattern + `(?: kr| sek)? (` + phraseAlternation(postfixPhrases) + `)\b`)
	betweenRe   = regexp.MustCompile(`\b(?:between|mellan) (?:salary |lon )?` + numberPattern + ` (?:and|och) ` + numberPattern + `\b`)
)

// phraseAlternation joins phrases longest first so "more than" wins over
// a shorter prefix.
func phraseAlternation(list []opPhrase) string {
	phrases := make([]string, len(list))
	for i, p := range list {
		phrases[i] = regexp.QuoteMeta(p.phrase)
	}
	sort.SliceStable(phrases, func(i, j int) bool { return len(phrases[i]) > len(phrases[j]) })
	return strings.Join(phrases, "|")
}

func opFor(list []opPhrase, phrase string) (engine.Comparison, bool) {
	for _, p := range list {
		if p.phrase == phrase {
			return p.op, true
		}
	}
	return "", false
}

// submatch returns capture n of a FindAllStringSubmatchIndex match, or "".
func submatch(text string, idx []int, n int) string {
	if idx[2*n] < 0 {
		return ""
	}
	return text[idx[2*n]:idx[2*n+1]]
}

// boundMatch is one bound and the span of text that states it.
type boundMatch struct {
	start, end int
	bound      Bound
}

// findBounds locates salary bounds in normalized text, in question order. A
// "between" range yields two inclusive bounds. A number already claimed by
// an earlier phrase is not read again, so in "under 45k and over 30k" the
// "45k and over" reading loses to "under 45k".
func findBounds(text string) []boundMatch {
	var found []boundMatch
	claimed := func(from, to int) bool {
		for _, m := range found {
			if m.start <= from && to <= m.end {
				return true
			}
		}
		return false
	}

	for _, idx := range betweenRe.FindAllStringSubmatchIndex(text, -1) {
		lo, ok1 := parseNumber(submatch(text, idx, 1), submatch(text, idx, 2))
		hi, ok2 := parseNumber(submatch(text, idx, 3), submatch(text, idx, 4))
		if !ok1 || !ok2 {
			continue
		}
		if lo > hi {
			lo, hi = hi, lo
		}
		found = append(found,
			boundMatch{idx[0], idx[1], Bound{Op: engine.CmpGE, Value: lo}},
			boundMatch{idx[0], idx[1], Bound{Op: engine.CmpLE, Value: hi}})
	}
	for _, idx := range thresholdRe.FindAllStringSubmatchIndex(text, -1) {
		if claimed(idx[4], idx[5]) {
			continue
		}
		v, ok := parseNumber(submatch(text, idx, 2), submatch(text, idx, 3))
		op, known := opFor(thresholdPhrases, submatch(text, idx, 1))
		if ok && known {
			found = append(found, boundMatch{idx[0], idx[1], Bound{Op: op, Value: v}})
		}
	}
	for _, idx := range postfixRe.FindAllStringSubmatchIndex(text, -1) {
		if claimed(idx[2], idx[3]) {
			continue
		}
		v, ok := parseNumber(submatch(text, idx, 1), submatch(text, idx, 2))
		op, known := opFor(postfixPhrases, submatch(text, idx, 3))
		if ok && known {
			found = append(found, boundMatch{idx[0], idx[1], Bound{Op: op, Value: v}})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].start < found[j].start })
	return found
}

// extractBounds returns the salary bounds of normalized text.
func extractBounds(text string) []Bound {
	var bounds []Bound
	for _, m := range findBounds(text) {
		bounds = append(bounds, m.bound)
	}
	return bounds
}

// stripBounds blanks every bound phrase out of text.
func stripBounds(text string) string {
	b := []byte(text)
	for _, m := range findBounds(text) {
		for k := m.start; k < m.end; k++ {
			b[k] = ' '
		}
	}
	return string(b)
}

// strayNumber returns the first salary-sized number in the masked question
// that no bound phrase claims, so "how many earn 50000" is not answered as
// if the number were absent.
func strayNumber(masked string) string {
	rest := stripBounds(strings.ReplaceAll(masked, "\x00", " "))
	for _, m := range numberRe.FindAllStringSubmatch(rest, -1) {
		if v, ok := parseNumber(m[1], m[2]); ok && v > maxRank {
			return m[0]
		}
	}
	return ""
}
