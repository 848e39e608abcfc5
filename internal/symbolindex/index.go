// Package symbolindex implements the Symbol & Name Index (C3): in-memory
// maps from (file, name) to entity id, and name to candidate entities, used
// to promote placeholder targets to concrete ids during and after a scan.
package symbolindex

import (
	"sync"

	"github.com/codegraph/knowledgegraph/internal/model"
)

// Candidate is one entity reachable under a bare name in the global index.
type Candidate struct {
	EntityID string
	Kind     model.EntityKind
	File     string
}

// Index is the shared, mutex-guarded global symbol/name index described in
// §5's shared-resource policy: built once per scan pass, read-only during
// builder execution, rebuilt only with exclusive access.
type Index struct {
	mu sync.RWMutex

	// byFileName maps "<relPath>:<name>" -> entity id, i.e. localIndex
	// materialized globally (§6.1).
	byFileName map[string]string

	// byName maps a bare name to every candidate entity sharing it,
	// supporting nameIndex lookups for ambiguity detection (throws,
	// overrides).
	byName map[string][]Candidate
}

// New builds an empty Index.
func New() *Index {
	return &Index{
		byFileName: make(map[string]string),
		byName:     make(map[string][]Candidate),
	}
}

// Reset clears the index for a fresh scan pass. Callers must hold no
// concurrent readers across Reset; it takes the exclusive lock itself.
func (idx *Index) Reset() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.byFileName = make(map[string]string)
	idx.byName = make(map[string][]Candidate)
}

// Put registers a symbol's file-qualified name and bare name.
func (idx *Index) Put(file, name, entityID string, kind model.EntityKind) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	key := file + ":" + name
	idx.byFileName[key] = entityID
	idx.byName[name] = append(idx.byName[name], Candidate{EntityID: entityID, Kind: kind, File: file})
}

// LookupLocal resolves a file-qualified name to an entity id ("localIndex"
// hit in builder terms).
func (idx *Index) LookupLocal(file, name string) (string, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	id, ok := idx.byFileName[file+":"+name]
	return id, ok
}

// LookupByName returns every candidate entity registered under name
// ("nameIndex" lookups for placeholder promotion and ambiguity detection).
func (idx *Index) LookupByName(name string) []Candidate {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	c := idx.byName[name]
	out := make([]Candidate, len(c))
	copy(out, c)
	return out
}

// Promote resolves a placeholder Target to a concrete entity id if exactly
// one candidate exists in the global index under the placeholder's name,
// per the promotion rule in §9: perform the read-through at emission time
// and again at write time so late-parsed files close the loop.
func (idx *Index) Promote(t model.Target) (model.Target, bool) {
	if t.Kind() != model.TargetPlaceholder && t.Kind() != model.TargetExternal {
		return t, false
	}
	name := t.Name
	candidates := idx.LookupByName(name)
	if len(candidates) != 1 {
		return t, false
	}
	return model.EntityRef(candidates[0].EntityID), true
}

// TypeCheckerBudget is a bounded counter limiting expensive semantic
// resolution calls per scan (§5, §9 "Type-checker budget").
type TypeCheckerBudget struct {
	mu        sync.Mutex
	remaining int
}

// NewTypeCheckerBudget creates a budget with the given initial allowance.
func NewTypeCheckerBudget(n int) *TypeCheckerBudget {
	return &TypeCheckerBudget{remaining: n}
}

// Take consumes one unit of budget, returning false when exhausted; callers
// must gracefully degrade to heuristic resolution on false.
func (b *TypeCheckerBudget) Take() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.remaining <= 0 {
		return false
	}
	b.remaining--
	return true
}

// Remaining reports the current allowance for diagnostics.
func (b *TypeCheckerBudget) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remaining
}

// Reset replenishes the budget to n, e.g. at the start of a new scan.
func (b *TypeCheckerBudget) Reset(n int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.remaining = n
}
