package builders

import (
	"go/token"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/model"
	"github.com/codegraph/knowledgegraph/internal/normalize"
	"github.com/codegraph/knowledgegraph/internal/parserapi"
	"github.com/codegraph/knowledgegraph/internal/scoring"
	"github.com/codegraph/knowledgegraph/internal/symbolindex"
)

// Pipeline runs the full C4 data flow for one scan pass: index the file's
// symbols into the shared Index, run the four builders per file, normalize
// the structural edges, then promote any remaining placeholder targets
// against the now-complete global index (§9 "perform it at emission time
// and again at write time so late-parsed files close the loop").
type Pipeline struct {
	Symbols  *symbolindex.Index
	Exports  *symbolindex.ExportIndex
	Budget   *symbolindex.TypeCheckerBudget
	Cfg      config.BuilderConfig
	ScoreCfg scoring.Config
	Norm     *normalize.Normalizer
}

// NewPipeline builds a Pipeline with a fresh symbol index and type-checker
// budget sized per config.
func NewPipeline(cfg config.BuilderConfig, scoreCfg scoring.Config, norm *normalize.Normalizer) *Pipeline {
	return &Pipeline{
		Symbols:  symbolindex.New(),
		Exports:  symbolindex.NewExportIndex(),
		Budget:   symbolindex.NewTypeCheckerBudget(cfg.TypeCheckerBudget),
		Cfg:      cfg,
		ScoreCfg: scoreCfg,
		Norm:     norm,
	}
}

// IndexFile registers every symbol in sf into the shared index, the
// "built once per scan pass" step preceding builder execution (§5).
func (p *Pipeline) IndexFile(sf *parserapi.SourceFile) {
	for _, sym := range sf.Symbols {
		base := sym.Entity.Identity()
		p.Symbols.Put(base.Path, nameOf(sym.Entity), base.ID, sym.Entity.Kind())
	}
}

// IndexExports registers sf's export map under its own file path, so other
// files' named imports can resolve through it during BuildImports (§4.2.1).
func (p *Pipeline) IndexExports(sf *parserapi.SourceFile) {
	modulePath := sf.File.Identity().Path
	for name, binding := range sf.ExportMap {
		p.Exports.Put(modulePath, name, symbolindex.ExportBinding{
			EntityID:     binding.EntityID,
			ReExportPath: binding.ReExportPath,
			ReExportName: binding.ReExportName,
		})
	}
}

func nameOf(e model.Entity) string {
	switch v := e.(type) {
	case *model.FunctionSymbol:
		return v.Name
	case *model.ClassSymbol:
		return v.Name
	case *model.InterfaceSymbol:
		return v.Name
	case *model.TypeAliasSymbol:
		return v.Name
	default:
		return ""
	}
}

// RunFile runs all four builders over sf, returning normalized structural
// edges plus scored code/type edges, ready for C6/C7 persistence.
func (p *Pipeline) RunFile(sf *parserapi.SourceFile, relPath string, fset *token.FileSet) []model.Relationship {
	ctx := NewContext(sf, relPath, fset, p.Symbols, p.Exports, p.Budget, p.Cfg, p.ScoreCfg)

	var out []model.Relationship

	for _, rel := range BuildImports(ctx) {
		out = append(out, p.Norm.Normalize(rel))
	}

	out = append(out, BuildCalls(ctx)...)
	out = append(out, BuildThrows(ctx)...)
	out = append(out, BuildOverrides(ctx)...)
	out = append(out, BuildReferences(ctx)...)
	out = append(out, BuildTypes(ctx)...)

	for i := range out {
		promotePlaceholder(&out[i], p.Symbols)
	}

	return out
}

// promotePlaceholder re-attempts resolution of an edge's toRef against the
// now-complete global index, closing the loop for files parsed earlier in
// the scan (§9).
func promotePlaceholder(rel *model.Relationship, idx *symbolindex.Index) {
	if promoted, ok := idx.Promote(rel.ToRef); ok {
		rel.ToRef = promoted
		rel.ToEntityID = promoted.CanonicalString()
		rel.Resolved = true
		rel.Inferred = false
	}
}
