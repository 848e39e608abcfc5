// Package builders implements the four Relationship Builders (C4): Import/
// Export, Call/Override/Throws, Reference, and Type builders, per §4.2.
// Each walks AST nodes supplied by a parserapi.SourceProvider and emits raw
// (pre-normalization, pre-scoring) relationships.
package builders

import (
	"go/ast"
	"go/token"
	"time"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/model"
	"github.com/codegraph/knowledgegraph/internal/parserapi"
	"github.com/codegraph/knowledgegraph/internal/scoring"
	"github.com/codegraph/knowledgegraph/internal/symbolindex"
)

// Context bundles the shared services and per-file state every builder
// needs: the file's import/local maps, the global symbol index, the
// type-checker budget, and tuning knobs (§4.2, §5).
type Context struct {
	File      *parserapi.SourceFile
	RelPath   string
	FileSet   *token.FileSet
	Symbols   *symbolindex.Index
	Exports   *symbolindex.ExportIndex
	Budget    *symbolindex.TypeCheckerBudget
	Cfg       config.BuilderConfig
	ScoreCfg  scoring.Config
	stopNames map[string]bool
}

// NewContext builds a Context for one file, precomputing the stop-name set.
func NewContext(sf *parserapi.SourceFile, relPath string, fset *token.FileSet, idx *symbolindex.Index, exports *symbolindex.ExportIndex, budget *symbolindex.TypeCheckerBudget, cfg config.BuilderConfig, scoreCfg scoring.Config) *Context {
	stop := make(map[string]bool, len(cfg.StopNames))
	for _, n := range cfg.StopNames {
		stop[n] = true
	}
	return &Context{
		File: sf, RelPath: relPath, FileSet: fset,
		Symbols: idx, Exports: exports, Budget: budget, Cfg: cfg, ScoreCfg: scoreCfg,
		stopNames: stop,
	}
}

// isNoise applies the §4.2.2/§4.2.3/§4.2.4 noise filter: short or
// stop-listed names are skipped entirely.
func (c *Context) isNoise(name string) bool {
	minLen := c.Cfg.ASTMinNameLength
	if minLen <= 0 {
		minLen = 3
	}
	return len(name) < minLen || c.stopNames[name]
}

func (c *Context) pos(n ast.Node) model.Location {
	if c.FileSet == nil {
		return model.Location{}
	}
	p := c.FileSet.Position(n.Pos())
	e := c.FileSet.Position(n.End())
	return model.Location{Line: p.Line, Column: p.Column, Start: p.Offset, End: e.Offset}
}

// occKey identifies one aggregation bucket: a (from,to,type) triple.
type occKey struct {
	from string
	to   string
	typ  model.RelationshipType
}

// occurrence accumulates the repeated-emission bookkeeping described in
// §4.2.2/§4.2.3: count plus earliest line, merged across the scan.
type occurrence struct {
	count     int
	firstLine int
	firstCol  int
	proto     model.Relationship // carries all the non-aggregated attributes from the first observation
}

// aggregator merges raw per-node observations into one edge per
// (from,to,type), keeping the earliest location and a running
// occurrencesScan count (Invariant 7, Testable Property 3).
type aggregator struct {
	m map[occKey]*occurrence
}

func newAggregator() *aggregator {
	return &aggregator{m: make(map[occKey]*occurrence)}
}

func (a *aggregator) observe(rel model.Relationship) {
	k := occKey{from: rel.FromEntityID, to: rel.ToEntityID, typ: rel.Type}
	existing, ok := a.m[k]
	if !ok {
		a.m[k] = &occurrence{count: 1, firstLine: rel.Location.Line, firstCol: rel.Location.Column, proto: rel}
		return
	}
	existing.count++
	if rel.Location.Line > 0 && (existing.firstLine == 0 || rel.Location.Line < existing.firstLine) {
		existing.firstLine = rel.Location.Line
		existing.firstCol = rel.Location.Column
	}
}

func (a *aggregator) flush() []model.Relationship {
	out := make([]model.Relationship, 0, len(a.m))
	for _, o := range a.m {
		rel := o.proto
		rel.OccurrencesScan = o.count
		rel.Location.Line = o.firstLine
		rel.Location.Column = o.firstCol
		out = append(out, rel)
	}
	return out
}

// resolution is the outcome of the shared name-resolution cascade used by
// calls/references/types: (a) via import map, (b) local index, (c) budgeted
// type-checker, (d) external fallback.
type resolution struct {
	target          model.Target
	resolutionKind  model.Resolution
	scope           model.Scope
	usedTypeChecker bool
	importDepth     int
}

// resolveName runs the shared cascade for a (possibly dotted) name rooted at
// rootName, with simpleName the final segment used for local/external
// lookups. tcResolve is consulted only when budget allows.
func (c *Context) resolveName(rootName, simpleName string, tcResolve func() (string, bool)) resolution {
	if binding, ok := c.File.ImportMap[rootName]; ok {
		tgt := model.FileSymbolRef(moduleFileGuess(binding.ModulePath), simpleName)
		if binding.Target.Kind() == model.TargetPlaceholder {
			tgt = model.PlaceholderRef("import", binding.ModulePath+":"+simpleName)
		}
		return resolution{target: tgt, resolutionKind: model.ResolutionViaImport, scope: model.ScopeImported, importDepth: 1}
	}

	if id, ok := c.File.LocalIndex[c.RelPath+":"+simpleName]; ok {
		return resolution{target: model.EntityRef(id), resolutionKind: model.ResolutionDirect, scope: model.ScopeLocal}
	}

	if c.Budget != nil && c.Budget.Take() && tcResolve != nil {
		if id, ok := tcResolve(); ok {
			return resolution{
				target:          model.FileSymbolRef(c.RelPath, id),
				resolutionKind:  model.ResolutionTypeChecker,
				scope:           model.ScopeImported,
				usedTypeChecker: true,
			}
		}
	}

	return resolution{target: model.ExternalRef(simpleName), resolutionKind: model.ResolutionHeuristic, scope: model.ScopeExternal}
}

func moduleFileGuess(modulePath string) string {
	return modulePath
}

// dottedRoot splits "a.b.c" into root="a", simple="c".
func dottedRoot(expr ast.Expr) (root, simple string, dotted string, isMethod bool) {
	switch v := expr.(type) {
	case *ast.Ident:
		return v.Name, v.Name, v.Name, false
	case *ast.SelectorExpr:
		base := exprToString(v.X)
		r := base
		if sel, ok := v.X.(*ast.SelectorExpr); ok {
			r, _, _, _ = dottedRoot(sel)
		} else if id, ok := v.X.(*ast.Ident); ok {
			r = id.Name
		}
		return r, v.Sel.Name, base + "." + v.Sel.Name, true
	default:
		return "", "", "", false
	}
}

func exprToString(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.SelectorExpr:
		return exprToString(v.X) + "." + v.Sel.Name
	case *ast.StarExpr:
		return "*" + exprToString(v.X)
	case *ast.CallExpr:
		return exprToString(v.Fun) + "(...)"
	default:
		return ""
	}
}

// newEdge starts a relationship with the common fields every emitted edge
// carries.
func newEdge(fromID string, rt model.RelationshipType, fromRef model.Target) model.Relationship {
	now := time.Now()
	return model.Relationship{
		FromEntityID: fromID,
		Type:         rt,
		Created:      now,
		LastModified: now,
		ValidFrom:    now,
		Active:       true,
		FirstSeenAt:  now,
		LastSeenAt:   now,
		FromRef:      fromRef,
		Source:       model.SourceAST,
	}
}

// finalizeTarget applies the resolution outcome to rel's To fields.
func finalizeTarget(rel *model.Relationship, r resolution) {
	rel.ToRef = r.target
	rel.ToEntityID = r.target.CanonicalString()
	rel.Resolution = r.resolutionKind
	rel.Scope = r.scope
	rel.UsedTypeChecker = r.usedTypeChecker
	rel.ImportDepth = r.importDepth
	rel.Inferred = r.target.Kind() != model.TargetEntity
	rel.Resolved = r.target.Kind() == model.TargetEntity || r.target.Kind() == model.TargetFileSymbol
}

// scoreAndGate computes confidence for an inferred edge and reports whether
// it clears the configured floor (§4.2.3 "Confidence gate", §4.3). name is
// the resolved identifier or type name driving the edge, not necessarily
// rel.Callee (only CALLS edges populate that field).
func (c *Context) scoreAndGate(rel *model.Relationship, isExported bool, name string) bool {
	if !rel.Inferred {
		rel.Confidence = 0.9
		return true
	}
	s := scoring.Score(scoring.Signals{
		RelationType:    rel.Type,
		UsedTypeChecker: rel.UsedTypeChecker,
		IsExported:      isExported,
		NameLength:      len(name),
		ToID:            rel.ToEntityID,
		ImportDepth:     rel.ImportDepth,
	})
	rel.Confidence = s
	return scoring.PassesFloor(s, c.ScoreCfg)
}
