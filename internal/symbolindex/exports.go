package symbolindex

import "sync"

// ExportBinding is one name a module exposes, either declared locally
// (EntityID set, ReExportPath empty) or re-exported from another module
// (ReExportPath/ReExportName set, walked one more hop by Resolve).
type ExportBinding struct {
	EntityID     string
	ReExportPath string
	ReExportName string
}

// ExportIndex is the transitive export map described in §4.2.1: per-module
// name -> binding, walked hop by hop to resolve a named import through a
// chain of re-exports up to a caller-supplied depth bound.
type ExportIndex struct {
	mu  sync.RWMutex
	mod map[string]map[string]ExportBinding
}

// NewExportIndex builds an empty ExportIndex.
func NewExportIndex() *ExportIndex {
	return &ExportIndex{mod: make(map[string]map[string]ExportBinding)}
}

// Put registers modulePath's export of name.
func (x *ExportIndex) Put(modulePath, name string, b ExportBinding) {
	x.mu.Lock()
	defer x.mu.Unlock()
	m := x.mod[modulePath]
	if m == nil {
		m = make(map[string]ExportBinding)
		x.mod[modulePath] = m
	}
	m[name] = b
}

func (x *ExportIndex) lookup(modulePath, name string) (ExportBinding, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	b, ok := x.mod[modulePath][name]
	return b, ok
}

// Resolve walks modulePath's export map for name, following re-exports up
// to maxDepth hops. depth is the number of hops actually taken (1 for a
// direct local export). truncated reports whether maxDepth was reached, or
// a re-export cycle was found, without landing on a local declaration --
// callers should mark the edge
// resolutionState=partial in that case. A genuinely missing binding (not a
// depth exhaustion) reports entityID="", truncated=false.
func (x *ExportIndex) Resolve(modulePath, name string, maxDepth int) (entityID string, depth int, truncated bool) {
	seen := map[string]bool{}
	path, sym := modulePath, name

	for depth = 1; depth <= maxDepth; depth++ {
		key := path + "#" + sym
		if seen[key] {
			return "", depth, true
		}
		seen[key] = true

		b, ok := x.lookup(path, sym)
		if !ok {
			return "", depth, false
		}
		if b.ReExportPath == "" {
			return b.EntityID, depth, false
		}
		path, sym = b.ReExportPath, b.ReExportName
	}

	return "", maxDepth, true
}
