package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCacheableStatements(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		want  bool
	}{
		{"select", "select * from users", true},
		{"with cte", "with recent as (select 1) select * from recent", true},
		{"insert", "insert into users values (1)", false},
		{"update", "update users set name = 'x'", false},
		{"delete", "delete from users where id = 1", false},
		{"drop", "drop table users", false},
		{"truncate", "truncate users", false},
		{"transaction control", "commit", false},
		{"now call", "select * from events where ts > now()", false},
		{"current_timestamp", "select current_timestamp", false},
		{"random", "select random()", false},
		{"uuid generation", "select gen_random_uuid()", false},
		{"column named updated", "select updated_at from users", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, cacheable(tt.query))
		})
	}
}
