// Package normalize defines when two observed values count as the same value.
//
// Numbers compare at cent precision, so 125000, "125,000" and "$125,000.00"
// agree. Text compares after Unicode NFKC folding, case folding, trimming and
// whitespace collapsing; abbreviations are not expanded ("Ave" and "Avenue"
// disagree). A text value that is a clean money or number literal is compared
// as a number.
package normalize

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/reconcile-cli/internal/model"
)

const (
	numericPrefix = "n:"
	textPrefix    = "t:"
)

// numberRe matches an optional sign, an optional currency marker, and a
// decimal number with optional thousands separators. Integers with leading
// zeros are identifiers, not numbers.
var numberRe = regexp.MustCompile(
	`^([+-])?\s*(?:[$€£]|(?:CAD|USD)\s*)?\s*((?:[1-9]\d{0,2}(?:,\d{3})+|[1-9]\d*|0)(?:\.\d+)?|\.\d+)\s*(?:CAD|USD)?$`)

// Key returns the comparison key of a value. Two values agree iff their keys are equal.
func Key(v model.Value) string {
	if v.IsNumeric() {
		return numberKey(*v.Parsed)
	}
	if f, ok := ParseNumber(v.Raw); ok {
		return numberKey(f)
	}
	return textPrefix + Text(v.Raw)
}

// Text folds a string for case- and whitespace-insensitive comparison.
func Text(s string) string {
	s = norm.NFKC.String(s)
	s = cases.Fold().String(s)
	return strings.Join(strings.Fields(s), " ")
}

// Label folds an OCR field label so "Legal Business Name" and
// "legal  business name" index together.
func Label(s string) string {
	return Text(s)
}

// ParseNumber parses a money or number literal such as "-$1,250.50".
func ParseNumber(raw string) (float64, bool) {
	m := numberRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(raw)))
	if m == nil {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[2], ",", ""), 64)
	if err != nil {
		return 0, false
	}
	if m[1] == "-" {
		f = -f
	}
	return f, true
}

// Distinct counts the distinct comparison keys among values.
func Distinct(values []model.Value) int {
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		seen[Key(v)] = struct{}{}
	}
	return len(seen)
}

func numberKey(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return numericPrefix + strconv.FormatFloat(f, 'f', -1, 64)
	}
	// Scaling by 100 overflows near the float64 limit; such values have no
	// cent component anyway.
	if math.Abs(f) > 1e15 {
		return numericPrefix + strconv.FormatFloat(f, 'g', -1, 64)
	}
	r := math.Round(f*100) / 100
	if r == 0 {
		r = 0 // collapse -0
	}
	return numericPrefix + strconv.FormatFloat(r, 'f', 2, 64)
}
