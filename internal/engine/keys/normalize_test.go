package keys_test

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"go.trai.ch/memo/internal/engine/keys"
)

func TestNormalize_Patterns(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		query       string
		wantPattern string
		wantLiteral []string
	}{
		{
			name:        "numeric literal",
			query:       "SELECT * FROM users WHERE id = 42",
			wantPattern: "select * from users where id = ?",
			wantLiteral: []string{"42"},
		},
		{
			name:        "string literal and limit",
			query:       "SELECT name FROM users WHERE email = 'a@b.c'  LIMIT 10",
			wantPattern: "select name from users where email = ? limit ?",
			wantLiteral: []string{"'a@b.c'", "10"},
		},
		{
			name:        "in list collapses",
			query:       "select id from files where lang in (1, 2, 3)",
			wantPattern: "select id from files where lang in (?)",
			wantLiteral: []string{"1", "2", "3"},
		},
		{
			name:        "order by clause",
			query:       "SELECT a, b FROM t ORDER BY a DESC, b ASC LIMIT 5",
			wantPattern: "select a, b from t order by ? limit ?",
			wantLiteral: []string{"5", "a desc, b asc"},
		},
		{
			name:        "order by in subquery",
			query:       "SELECT * FROM (SELECT id FROM t ORDER BY id) s",
			wantPattern: "select * from (select id from t order by ?) s",
			wantLiteral: []string{"id"},
		},
		{
			name:        "no literals",
			query:       "select count(*) from symbols",
			wantPattern: "select count(*) from symbols",
			wantLiteral: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := keys.Normalize(tt.query)
			assert.Equal(t, tt.wantPattern, n.Pattern)
			assert.Equal(t, tt.wantLiteral, n.Literals)
		})
	}
}

func TestNormalize_EquivalentQueriesShareAPattern(t *testing.T) {
	t.Parallel()

	a := keys.Normalize("SELECT * FROM users WHERE id = 1")
	b := keys.Normalize("select *  from users\nwhere id = 999")

	assert.Equal(t, a.Pattern, b.Pattern)
	assert.NotEqual(t, a.Literals, b.Literals)
}

func TestNormalize_Golden(t *testing.T) {
	queries := []string{
		"SELECT * FROM users WHERE id = 42",
		"SELECT name FROM users WHERE email = 'a@b.c' LIMIT 10",
		"select id from files where lang in (1, 2, 3)",
		"SELECT a, b FROM t ORDER BY a DESC, b ASC LIMIT 5",
	}

	var buf bytes.Buffer
	for _, q := range queries {
		n := keys.Normalize(q)
		fmt.Fprintf(&buf, "%s\n=> %s\n", q, n.Pattern)
	}

	g := goldie.New(t)
	g.Assert(t, "normalize", buf.Bytes())
}
