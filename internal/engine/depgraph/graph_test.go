package depgraph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/memo/internal/engine/depgraph"
)

func TestGraph_RecordAndDependents(t *testing.T) {
	t.Parallel()

	g := depgraph.New()
	g.Record("/src/a.ts", []string{"/src/b.ts", "/src/c.ts"})
	g.Record("/src/d.ts", []string{"/src/b.ts"})

	deps := g.Dependents("/src/b.ts", 5)
	assert.ElementsMatch(t, []string{"/src/a.ts", "/src/d.ts"}, deps)

	assert.ElementsMatch(t, []string{"/src/b.ts", "/src/c.ts"}, g.Dependencies("/src/a.ts"))
}

func TestGraph_RecordReplacesWholesale(t *testing.T) {
	t.Parallel()

	g := depgraph.New()
	g.Record("/src/a.ts", []string{"/src/b.ts"})
	g.Record("/src/a.ts", []string{"/src/c.ts"})

	assert.Empty(t, g.Dependents("/src/b.ts", 5))
	assert.Equal(t, []string{"/src/a.ts"}, g.Dependents("/src/c.ts", 5))
}

func TestGraph_TransitiveDependents(t *testing.T) {
	t.Parallel()

	// c depends on b, b depends on a: invalidating a cascades to both.
	g := depgraph.New()
	g.Record("/src/b.ts", []string{"/src/a.ts"})
	g.Record("/src/c.ts", []string{"/src/b.ts"})

	assert.ElementsMatch(t, []string{"/src/b.ts", "/src/c.ts"}, g.Dependents("/src/a.ts", 5))
}

func TestGraph_MaxDepthBound(t *testing.T) {
	t.Parallel()

	g := depgraph.New()
	g.Record("/src/b.ts", []string{"/src/a.ts"})
	g.Record("/src/c.ts", []string{"/src/b.ts"})
	g.Record("/src/d.ts", []string{"/src/c.ts"})

	assert.ElementsMatch(t, []string{"/src/b.ts", "/src/c.ts"}, g.Dependents("/src/a.ts", 2))
}

func TestGraph_CycleTerminatesAndCoversEachOnce(t *testing.T) {
	t.Parallel()

	// a and b mutually declare each other as dependencies.
	g := depgraph.New()
	g.Record("/src/a.ts", []string{"/src/b.ts"})
	g.Record("/src/b.ts", []string{"/src/a.ts"})

	set := g.CascadeSet("/src/a.ts", 10)
	assert.ElementsMatch(t, []string{"/src/a.ts", "/src/b.ts"}, set)
}

func TestGraph_NoDependenciesNoCascade(t *testing.T) {
	t.Parallel()

	g := depgraph.New()
	assert.Equal(t, []string{"/src/lonely.ts"}, g.CascadeSet("/src/lonely.ts", 5))
}

func TestGraph_RemoveDropsForwardEdges(t *testing.T) {
	t.Parallel()

	g := depgraph.New()
	g.Record("/src/a.ts", []string{"/src/b.ts"})
	g.Remove("/src/a.ts")

	assert.Empty(t, g.Dependents("/src/b.ts", 5))
	assert.Empty(t, g.Dependencies("/src/a.ts"))
}

func TestGraph_SelfReferenceIgnored(t *testing.T) {
	t.Parallel()

	g := depgraph.New()
	g.Record("/src/a.ts", []string{"/src/a.ts"})

	assert.Empty(t, g.Dependencies("/src/a.ts"))
	assert.Empty(t, g.Dependents("/src/a.ts", 5))
}
