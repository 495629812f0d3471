package query

import "strings"

// mutatingPrefixes are the statement shapes that change data or schema.
// Their results are never cached and their execution always reaches the
// executor.
var mutatingPrefixes = []string{
	"insert ",
	"update ",
	"delete ",
	"merge ",
	"replace ",
	"upsert ",
	"create ",
	"drop ",
	"alter ",
	"truncate ",
	"grant ",
	"revoke ",
	"set ",
	"begin",
	"commit",
	"rollback",
}

// volatileTokens are function calls whose value changes between executions.
// A query containing any of them is not referentially transparent.
var volatileTokens = []string{
	"now()",
	"current_timestamp",
	"current_date",
	"current_time",
	"localtimestamp",
	"sysdate",
	"random(",
	"rand(",
	"uuid(",
	"gen_random_uuid(",
	"newid(",
}

// cacheable reports whether the lower-cased query text is safe to cache:
// read-only and free of non-deterministic function calls. Detection is a
// fixed textual check, not a parse; anything unrecognized stays cacheable
// and relies on TTL for staleness.
func cacheable(lowered string) bool {
	trimmed := strings.TrimSpace(lowered)
	for _, prefix := range mutatingPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return false
		}
	}
	for _, token := range volatileTokens {
		if strings.Contains(trimmed, token) {
			return false
		}
	}
	return true
}
