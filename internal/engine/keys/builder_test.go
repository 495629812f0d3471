package keys_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/engine/keys"
)

func TestBuilder_AnalysisKeyDeterminism(t *testing.T) {
	t.Parallel()

	b := keys.NewBuilder("memo")
	fp := domain.Fingerprint{ContentHash: "abc123"}

	k1 := b.AnalysisKey("/src/a.ts", "ast", fp, "1")
	k2 := b.AnalysisKey("/src/a.ts", "ast", fp, "1")
	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "memo:analysis:ast:v1:"))
}

func TestBuilder_AnalysisKeyChangesWithInputs(t *testing.T) {
	t.Parallel()

	b := keys.NewBuilder("memo")
	base := b.AnalysisKey("/src/a.ts", "ast", domain.Fingerprint{ContentHash: "h1"}, "1")

	t.Run("content change", func(t *testing.T) {
		t.Parallel()
		k := b.AnalysisKey("/src/a.ts", "ast", domain.Fingerprint{ContentHash: "h2"}, "1")
		assert.NotEqual(t, base, k)
	})

	t.Run("version change", func(t *testing.T) {
		t.Parallel()
		k := b.AnalysisKey("/src/a.ts", "ast", domain.Fingerprint{ContentHash: "h1"}, "2")
		assert.NotEqual(t, base, k)
	})

	t.Run("path change", func(t *testing.T) {
		t.Parallel()
		k := b.AnalysisKey("/src/b.ts", "ast", domain.Fingerprint{ContentHash: "h1"}, "1")
		assert.NotEqual(t, base, k)
	})
}

func TestBuilder_QueryKeyParamsOrderIndependent(t *testing.T) {
	t.Parallel()

	b := keys.NewBuilder("memo")
	n := keys.Normalize("select * from users where id = :id and org = :org")

	k1 := b.QueryKey(n, map[string]any{"id": 1, "org": "a"}, "1")
	k2 := b.QueryKey(n, map[string]any{"org": "a", "id": 1}, "1")
	assert.Equal(t, k1, k2)

	k3 := b.QueryKey(n, map[string]any{"id": 2, "org": "a"}, "1")
	assert.NotEqual(t, k1, k3)
}

func TestBuilder_InlinedLiteralsKeepKeysDistinct(t *testing.T) {
	t.Parallel()

	b := keys.NewBuilder("memo")

	n1 := keys.Normalize("SELECT * FROM users WHERE id = 1")
	n2 := keys.Normalize("SELECT * FROM users WHERE id = 2")

	// Same pattern for similarity grouping, different keys for identity.
	assert.Equal(t, n1.Pattern, n2.Pattern)
	assert.NotEqual(t,
		b.QueryKey(n1, nil, "1"),
		b.QueryKey(n2, nil, "1"),
	)
}

func TestBuilder_EmptyPrefixDefaults(t *testing.T) {
	t.Parallel()

	b := keys.NewBuilder("")
	k := b.AnalysisKey("/src/a.ts", "ast", domain.Fingerprint{ContentHash: "h"}, "1")
	assert.True(t, strings.HasPrefix(k, "memo:"))
}
