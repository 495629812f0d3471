// Package depgraph maintains subject dependency edges and computes
// cycle-safe, depth-bounded cascading invalidation sets.
package depgraph

import "sync"

// Graph holds directed subject -> dependsOn edges together with the derived
// reverse index, so cascades can be looked up in either direction.
type Graph struct {
	mu      sync.RWMutex
	forward map[string]map[string]struct{}
	reverse map[string]map[string]struct{}
}

// New creates an empty Graph.
func New() *Graph {
	return &Graph{
		forward: make(map[string]map[string]struct{}),
		reverse: make(map[string]map[string]struct{}),
	}
}

// Record replaces the prior dependency set for subject wholesale and
// updates the reverse index. Stale edges from a prior analysis are
// discarded.
func (g *Graph) Record(subject string, dependencies []string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for dep := range g.forward[subject] {
		g.removeReverse(dep, subject)
	}

	next := make(map[string]struct{}, len(dependencies))
	for _, dep := range dependencies {
		if dep == "" || dep == subject {
			continue
		}
		next[dep] = struct{}{}
		if g.reverse[dep] == nil {
			g.reverse[dep] = make(map[string]struct{})
		}
		g.reverse[dep][subject] = struct{}{}
	}

	if len(next) == 0 {
		delete(g.forward, subject)
		return
	}
	g.forward[subject] = next
}

// Remove drops the subject's own dependency declarations. Edges from other
// subjects that depend on it are kept; they are replaced when their owners
// are next analyzed.
func (g *Graph) Remove(subject string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for dep := range g.forward[subject] {
		g.removeReverse(dep, subject)
	}
	delete(g.forward, subject)
}

// Dependencies returns the direct dependency set recorded for subject.
func (g *Graph) Dependencies(subject string) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	deps := make([]string, 0, len(g.forward[subject]))
	for dep := range g.forward[subject] {
		deps = append(deps, dep)
	}
	return deps
}

// Dependents returns the transitive closure of reverse edges from subject,
// up to maxDepth hops. A visited set guarantees termination even when
// declared dependencies form a cycle. The subject itself is not included.
func (g *Graph) Dependents(subject string, maxDepth int) []string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	visited := map[string]struct{}{subject: {}}
	var result []string

	frontier := []string{subject}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []string
		for _, current := range frontier {
			for dependent := range g.reverse[current] {
				if _, seen := visited[dependent]; seen {
					continue
				}
				visited[dependent] = struct{}{}
				result = append(result, dependent)
				next = append(next, dependent)
			}
		}
		frontier = next
	}
	return result
}

// CascadeSet computes the full invalidation set for subject: the subject
// itself plus its transitive dependents. The set is computed once so the
// cascade is applied without repeated re-invalidation.
func (g *Graph) CascadeSet(subject string, maxDepth int) []string {
	return append([]string{subject}, g.Dependents(subject, maxDepth)...)
}

// removeReverse drops subject from dep's reverse set. Caller holds the lock.
func (g *Graph) removeReverse(dep, subject string) {
	set, ok := g.reverse[dep]
	if !ok {
		return
	}
	delete(set, subject)
	if len(set) == 0 {
		delete(g.reverse, dep)
	}
}
