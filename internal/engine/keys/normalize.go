package keys

import (
	"regexp"
	"strings"
)

// Normalized is the canonical form of a query after literal values are
// replaced with placeholders. The pattern groups structurally identical
// queries; the extracted literals keep key identity exact.
type Normalized struct {
	// Pattern is the lower-cased, whitespace-collapsed text with string and
	// numeric literals, IN lists and LIMIT/OFFSET counts replaced by "?".
	Pattern string

	// Literals are the replaced values in order of appearance. They are
	// hashed into the cache key so queries sharing a pattern but differing
	// in an inlined literal stay distinct.
	Literals []string
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// stringLitRe matches single-quoted SQL string literals, with ''
	// escaping.
	stringLitRe = regexp.MustCompile(`'(?:[^']|'')*'`)
	numberRe    = regexp.MustCompile(`\b\d+(?:\.\d+)?\b`)
	inListRe    = regexp.MustCompile(`\bin\s*\(\s*\?(?:\s*,\s*\?)*\s*\)`)
)

// Fold lower-cases the query text and collapses runs of whitespace. It is
// the literal-preserving half of Normalize.
func Fold(text string) string {
	return whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(text)), " ")
}

// Normalize canonicalizes query text: lower-casing, whitespace collapsing,
// and substitution of literals with placeholders.
func Normalize(text string) Normalized {
	pattern := Fold(text)

	var literals []string
	capture := func(match string) string {
		literals = append(literals, match)
		return "?"
	}

	pattern = stringLitRe.ReplaceAllStringFunc(pattern, capture)
	pattern = numberRe.ReplaceAllStringFunc(pattern, capture)

	// Collapse parameterized IN lists so membership checks of any arity
	// share one pattern. The member literals were captured above.
	pattern = inListRe.ReplaceAllString(pattern, "in (?)")

	pattern = collapseOrderBy(pattern, &literals)

	return Normalized{Pattern: pattern, Literals: literals}
}

// orderByTerminators are the clauses that may follow ORDER BY.
var orderByTerminators = []string{" limit ", " offset ", " fetch ", ")"}

// collapseOrderBy replaces the column list of each ORDER BY clause with a
// placeholder, keeping the original list as a literal.
func collapseOrderBy(pattern string, literals *[]string) string {
	const marker = "order by "

	var out strings.Builder
	rest := pattern
	for {
		idx := strings.Index(rest, marker)
		if idx < 0 {
			out.WriteString(rest)
			return out.String()
		}

		out.WriteString(rest[:idx+len(marker)])
		rest = rest[idx+len(marker):]

		end := len(rest)
		for _, term := range orderByTerminators {
			if i := strings.Index(rest, term); i >= 0 && i < end {
				end = i
			}
		}

		clause := strings.TrimSpace(rest[:end])
		if clause != "" && clause != "?" {
			*literals = append(*literals, clause)
		}
		out.WriteString("?")
		rest = rest[end:]
	}
}
