package builders

import (
	"go/token"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/model"
	"github.com/codegraph/knowledgegraph/internal/normalize"
	"github.com/codegraph/knowledgegraph/internal/parserapi"
	"github.com/codegraph/knowledgegraph/internal/parserapi/goast"
	"github.com/codegraph/knowledgegraph/internal/scoring"
)

// loadFixture parses every file in dir through the goast reference
// provider and returns them keyed by relative path.
func loadFixture(t *testing.T, dir string, files []string) map[string]*parserapi.SourceFile {
	t.Helper()
	provider := goast.New(dir, files)
	sfs, err := provider.Files()
	require.NoError(t, err)

	out := make(map[string]*parserapi.SourceFile, len(sfs))
	for _, sf := range sfs {
		out[sf.File.Identity().Path] = sf
	}
	return out
}

// runPipeline indexes every fixture file's symbols and export map, then runs
// the full builder pass over each, per §5's "index once, build per file"
// two-phase flow.
func runPipeline(t *testing.T, cfg config.BuilderConfig, sfs map[string]*parserapi.SourceFile) map[string][]model.Relationship {
	t.Helper()
	p := NewPipeline(cfg, scoring.Config{}, normalize.NewNormalizer(false))
	for _, sf := range sfs {
		p.IndexFile(sf)
		p.IndexExports(sf)
	}

	out := make(map[string][]model.Relationship, len(sfs))
	for path, sf := range sfs {
		fset, ok := sf.FileSet.(*token.FileSet)
		require.True(t, ok)
		out[path] = p.RunFile(sf, path, fset)
	}
	return out
}

func importEdges(rels []model.Relationship) []model.Relationship {
	var out []model.Relationship
	for _, r := range rels {
		if r.Type == model.RelImports {
			out = append(out, r)
		}
	}
	return out
}

// S1: a named import resolves through the export map to the declaration it
// binds to, one hop away.
func TestBuildImportsResolvesNamedImportThroughExportMap(t *testing.T) {
	sfs := loadFixture(t, "testdata/s1", []string{"a.go", "b.go"})
	out := runPipeline(t, config.DefaultConfig().Builders, sfs)

	imports := importEdges(out["a.go"])
	require.Len(t, imports, 1)
	rel := imports[0]

	assert.Equal(t, "Foo", rel.ImportAlias)
	assert.Equal(t, model.ImportNamed, rel.ImportType)
	assert.Equal(t, 1, rel.ImportDepth)
	assert.Equal(t, model.TargetEntity, rel.ToRef.Kind())
	assert.Equal(t, "sym:b.go:Foo", rel.ToEntityID)
	assert.True(t, rel.Resolved)
	assert.Equal(t, model.ResolutionStateResolved, rel.ResolutionState)
	assert.Equal(t, 0.90, rel.Confidence)
}

// A named import chained through a Go type-alias re-export resolves
// transitively, with importDepth reflecting the real hop count (§4.2.1).
func TestBuildImportsResolvesTransitiveReExportChain(t *testing.T) {
	sfs := loadFixture(t, "testdata/s1reexport", []string{"entry.go", "mid.go", "leaf.go"})
	out := runPipeline(t, config.DefaultConfig().Builders, sfs)

	imports := importEdges(out["entry.go"])
	require.Len(t, imports, 1)
	rel := imports[0]

	assert.Equal(t, 2, rel.ImportDepth)
	assert.Equal(t, model.TargetEntity, rel.ToRef.Kind())
	assert.Equal(t, "sym:leaf.go:Target", rel.ToEntityID)
	assert.True(t, rel.Resolved)
	assert.Equal(t, model.ResolutionStateResolved, rel.ResolutionState)
}

// When the re-export chain is longer than Cfg.MaxImportDepth, resolution
// stops at the bound and the edge is left resolutionState=partial rather
// than reporting a false depth of 1.
func TestBuildImportsMarksPartialWhenReExportChainExceedsMaxDepth(t *testing.T) {
	sfs := loadFixture(t, "testdata/s1reexport", []string{"entry.go", "mid.go", "leaf.go"})
	cfg := config.DefaultConfig().Builders
	cfg.MaxImportDepth = 1
	out := runPipeline(t, cfg, sfs)

	imports := importEdges(out["entry.go"])
	require.Len(t, imports, 1)
	rel := imports[0]

	assert.Equal(t, 1, rel.ImportDepth)
	assert.NotEqual(t, model.TargetEntity, rel.ToRef.Kind())
	assert.False(t, rel.Resolved)
	assert.Equal(t, model.ResolutionStatePartial, rel.ResolutionState)
	assert.Equal(t, 0.60, rel.Confidence)
}
