package pattern

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// ============================================================================
// NORMALIZATION — Locale-insensitive question text
// ============================================================================
// Questions and dataset vocabulary go through the same folding, so "Över",
// "over" and "OVER" all compare equal and "Ekonomi & Lön" matches
// "ekonomi lon".
//
//   1. NFD decompose, drop combining marks, NFC recompose (å → a, ö → o)
//   2. Lowercase
//   3. Comparison symbols become words (">=" → "at least", "50k+" →
//      "50k or more"), "%" → "percent"
//   4. Anything that is not a letter or digit becomes a space, except "."
//      and "," between digits (kept for numbers like 50,000 or 50.5k)
//   5. Collapse whitespace
// ============================================================================

// Normalize folds text for matching.
func Normalize(s string) string {
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(fold, s)
	if err != nil {
		folded = s
	}
	folded = strings.ToLower(folded)
	folded = symbolWords.Replace(folded)

	rs := []rune(folded)
	var b strings.Builder
	b.Grow(len(folded))
	for i, r := range rs {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case (r == '.' || r == ',') && i > 0 && i+1 < len(rs) && unicode.IsDigit(rs[i-1]) && unicode.IsDigit(rs[i+1]):
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

var symbolWords = strings.NewReplacer(
	">=", " at least ",
	"<=", " at most ",
	">", " more than ",
	"<", " less than ",
	"%", " percent ",
	"+", " or more ",
	"&", " and ",
)

// ============================================================================
// NUMBERS
// ============================================================================

// numberPattern matches a number in normalized text: 50000, 50 000, 50,000,
// 50.5, 50k, 50 tkr, 50 thousand.
var numberPattern = `(\d{1,3}(?:[ ,]\d{3})+(?:\.\d+)?|\d+(?:[.,]\d+)?)(?: ?(k|tkr|thousand|tusen))?`

var numberRe = regexp.MustCompile(`\b` + numberPattern + `\b`)

// parseNumber converts the captures of numberPattern to a float.
func parseNumber(digits, suffix string) (float64, bool) {
	s := strings.ReplaceAll(digits, " ", "")
	switch {
	case strings.Count(s, ",") >= 1 && groupedComma.MatchString(s):
		s = strings.ReplaceAll(s, ",", "")
	case strings.Contains(s, ","):
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if suffix != "" {
		v *= 1000
	}
	return v, true
}

var groupedComma = regexp.MustCompile(`^\d{1,3}(,\d{3})+(\.\d+)?$`)

// smallNumbers maps number words used in "top three" style questions.
var smallNumbers = map[string]int{
	"one": 1, "two": 2, "three": 3, "four": 4, "five": 5,
	"six": 6, "seven": 7, "eight": 8, "nine": 9, "ten": 10,
	"en": 1, "ett": 1, "tva": 2, "tre": 3, "fyra": 4, "fem": 5, "tio": 10,
}

// countWord parses "3" or "three".
func countWord(s string) (int, bool) {
	if n, ok := smallNumbers[s]; ok {
		return n, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// hasPhrase reports whether the normalized text contains phrase as whole words.
func hasPhrase(text, phrase string) bool {
	return strings.Contains(" "+text+" ", " "+phrase+" ")
}

// hasAny reports whether text contains any phrase as whole words.
func hasAny(text string, phrases ...string) bool {
	for _, p := range phrases {
		if hasPhrase(text, p) {
			return true
		}
	}
	return false
}
