package query

import (
	"regexp"
	"sort"
	"sync"
)

// tablePrefix namespaces table references in entry dependency metadata.
const tablePrefix = "table:"

// tableRefRe captures the identifier following a table-introducing keyword.
// Subqueries open with "(" and are skipped; the inner query's own keywords
// are matched independently.
var tableRefRe = regexp.MustCompile(`\b(?:from|join|into|update)\s+([a-z_][a-z0-9_.]*)`)

// extractTables returns the sorted, deduplicated table names referenced by
// the lower-cased query text. Extraction is best-effort textual matching,
// good enough for invalidation scoping.
func extractTables(lowered string) []string {
	matches := tableRefRe.FindAllStringSubmatch(lowered, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		name := m[1]
		if name == "select" {
			continue
		}
		seen[name] = struct{}{}
	}

	tables := make([]string, 0, len(seen))
	for name := range seen {
		tables = append(tables, name)
	}
	sort.Strings(tables)
	return tables
}

// tableDependencies renders table names as dependency references for entry
// metadata.
func tableDependencies(tables []string) []string {
	if len(tables) == 0 {
		return nil
	}
	deps := make([]string, len(tables))
	for i, name := range tables {
		deps[i] = tablePrefix + name
	}
	return deps
}

// tableIndex maps table names to the cache keys whose results read them.
// Entries that expire in the store leave a stale index reference behind;
// deleting an already-gone key during invalidation is harmless.
type tableIndex struct {
	mu   sync.Mutex
	keys map[string]map[string]struct{}
}

func newTableIndex() *tableIndex {
	return &tableIndex{keys: make(map[string]map[string]struct{})}
}

// record registers key against each table.
func (ti *tableIndex) record(key string, tables []string) {
	if len(tables) == 0 {
		return
	}
	ti.mu.Lock()
	defer ti.mu.Unlock()
	for _, name := range tables {
		set, ok := ti.keys[name]
		if !ok {
			set = make(map[string]struct{})
			ti.keys[name] = set
		}
		set[key] = struct{}{}
	}
}

// take removes and returns every key recorded against table.
func (ti *tableIndex) take(table string) []string {
	ti.mu.Lock()
	set := ti.keys[table]
	delete(ti.keys, table)
	ti.mu.Unlock()

	if len(set) == 0 {
		return nil
	}
	taken := make([]string, 0, len(set))
	for key := range set {
		taken = append(taken, key)
	}
	// Remove the taken keys from every other table's set too, so a key
	// invalidated through one table is not re-deleted through another.
	ti.mu.Lock()
	for _, other := range ti.keys {
		for _, key := range taken {
			delete(other, key)
		}
	}
	ti.mu.Unlock()
	return taken
}
