package builders

import (
	"go/ast"

	"github.com/codegraph/knowledgegraph/internal/model"
)

// mutatingMethods is the closed set of mutating-method names that, beyond
// the CALLS edge, also synthesize a WRITES edge on their receiver (§4.2.2
// item 4).
var mutatingMethods = map[string]bool{
	"push": true, "pop": true, "shift": true, "unshift": true, "splice": true,
	"sort": true, "reverse": true, "copyWithin": true, "fill": true,
	"set": true, "delete": true, "clear": true, "add": true,
}

// BuildCalls implements the Call/Override/Throws Builder (§4.2.2): for each
// function/method symbol, walks call expressions inside its body and emits
// CALLS/REFERENCES/DEPENDS_ON/WRITES edges. OVERRIDES and THROWS edges are
// emitted separately by BuildOverrides and BuildThrows.
func BuildCalls(c *Context) []model.Relationship {
	agg := newAggregator()
	var direct []model.Relationship

	for _, sym := range c.File.Symbols {
		fn, ok := sym.Entity.(*model.FunctionSymbol)
		if !ok || sym.Node == nil {
			continue
		}
		fromID := fn.ID
		body := funcBody(sym.Node)
		if body == nil {
			continue
		}

		ast.Inspect(body, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.CallExpr:
				c.handleCall(fromID, node, agg, &direct)
			}
			return true
		})
	}

	out := agg.flush()
	out = append(out, direct...)
	return out
}

func funcBody(n ast.Node) *ast.BlockStmt {
	switch v := n.(type) {
	case *ast.FuncDecl:
		return v.Body
	case *ast.FuncLit:
		return v.Body
	default:
		return nil
	}
}

func (c *Context) handleCall(fromID string, call *ast.CallExpr, agg *aggregator, direct *[]model.Relationship) {
	root, simple, dotted, isMethod := dottedRoot(call.Fun)
	if simple == "" || c.isNoise(simple) {
		return
	}
	arity := len(call.Args)
	awaited := false // Go has no await; kept for cross-language parity with §3.2's "awaited" attribute.

	res := c.resolveName(root, simple, nil)

	callRel := newEdge(fromID, model.RelCalls, model.EntityRef(fromID))
	finalizeTarget(&callRel, res)
	callRel.EdgeKind = model.KindCall
	callRel.AccessPath = dotted
	callRel.Callee = simple
	callRel.Arity = arity
	callRel.Awaited = awaited
	callRel.IsMethod = isMethod
	callRel.Location = c.pos(call)
	if !c.scoreAndGate(&callRel, false, simple) {
		return
	}
	agg.observe(callRel)

	refRel := newEdge(fromID, model.RelReferences, model.EntityRef(fromID))
	finalizeTarget(&refRel, res)
	refRel.AccessPath = dotted
	refRel.Location = c.pos(call)
	if refRel.Metadata == nil {
		refRel.Metadata = map[string]interface{}{}
	}
	refRel.Metadata["via"] = string(model.KindCall)
	if c.scoreAndGate(&refRel, false, simple) {
		agg.observe(refRel)
	}

	if res.scope == model.ScopeImported {
		depRel := newEdge(fromID, model.RelDependsOn, model.EntityRef(fromID))
		finalizeTarget(&depRel, res)
		depRel.EdgeKind = model.KindDependency
		depRel.Inferred = true
		depRel.Location = c.pos(call)
		if c.scoreAndGate(&depRel, false, simple) {
			agg.observe(depRel)
		}
	}

	if isMethod && mutatingMethods[simple] {
		baseRes := c.resolveName(root, root, nil)
		writeRel := newEdge(fromID, model.RelWrites, model.EntityRef(fromID))
		finalizeTarget(&writeRel, baseRes)
		writeRel.EdgeKind = model.KindWrite
		writeRel.Operator = "mutate"
		writeRel.AccessPath = dotted
		writeRel.Location = c.pos(call)
		if c.scoreAndGate(&writeRel, false, root) {
			*direct = append(*direct, writeRel)
		}
	}
}

// BuildThrows walks every function body for panic() calls -- Go's nearest
// analogue to a throw statement -- and emits THROWS edges.
func BuildThrows(c *Context) []model.Relationship {
	var out []model.Relationship
	for _, sym := range c.File.Symbols {
		fn, ok := sym.Entity.(*model.FunctionSymbol)
		if !ok || sym.Node == nil {
			continue
		}
		body := funcBody(sym.Node)
		if body == nil {
			continue
		}
		ast.Inspect(body, func(n ast.Node) bool {
			call, ok := n.(*ast.CallExpr)
			if !ok {
				return true
			}
			ident, ok := call.Fun.(*ast.Ident)
			if !ok || ident.Name != "panic" || len(call.Args) == 0 {
				return true
			}
			simple := throwArgName(call.Args[0])
			if simple == "" || c.isNoise(simple) {
				return true
			}
			candidates := c.Symbols.LookupByName(simple)
			rel := newEdge(fn.ID, model.RelThrows, model.EntityRef(fn.ID))
			rel.EdgeKind = model.KindThrow
			rel.Location = c.pos(call)
			switch len(candidates) {
			case 0:
				res := c.resolveName(simple, simple, nil)
				finalizeTarget(&rel, res)
			case 1:
				finalizeTarget(&rel, resolution{target: model.EntityRef(candidates[0].EntityID), resolutionKind: model.ResolutionDirect, scope: model.ScopeLocal})
			default:
				rel.Ambiguous = true
				rel.CandidateCount = len(candidates)
				finalizeTarget(&rel, resolution{target: model.PlaceholderRef("class", simple), resolutionKind: model.ResolutionHeuristic, scope: model.ScopeUnknown})
			}
			if c.scoreAndGate(&rel, false, simple) {
				out = append(out, rel)
			}
			return true
		})
	}
	return out
}

func throwArgName(e ast.Expr) string {
	root, simple, _, _ := dottedRoot(e)
	if simple != "" {
		return simple
	}
	_ = root
	return ""
}

// BuildOverrides emits OVERRIDES edges for methods redeclared on a class
// that extends a base with the same method name (§4.2.2 "Overrides").
func BuildOverrides(c *Context) []model.Relationship {
	var out []model.Relationship
	classes := map[string]*model.ClassSymbol{}
	for _, sym := range c.File.Symbols {
		if cls, ok := sym.Entity.(*model.ClassSymbol); ok {
			classes[cls.Name] = cls
		}
	}
	for _, sym := range c.File.Symbols {
		fn, ok := sym.Entity.(*model.FunctionSymbol)
		if !ok {
			continue
		}
		for _, cls := range classes {
			if len(cls.Extends) == 0 || !containsMethod(cls.Methods, fn.Name) {
				continue
			}
			for _, base := range cls.Extends {
				candidates := c.Symbols.LookupByName(fn.Name)
				rel := newEdge(fn.ID, model.RelOverrides, model.EntityRef(fn.ID))
				rel.EdgeKind = model.KindOverride
				if len(candidates) == 1 {
					finalizeTarget(&rel, resolution{target: model.EntityRef(candidates[0].EntityID), resolutionKind: model.ResolutionTypeChecker, scope: model.ScopeLocal, usedTypeChecker: true})
				} else {
					finalizeTarget(&rel, resolution{target: model.FileSymbolRef(base, fn.Name), resolutionKind: model.ResolutionHeuristic, scope: model.ScopeUnknown})
				}
				if c.scoreAndGate(&rel, fn.IsExported, fn.Name) {
					out = append(out, rel)
				}
			}
		}
	}
	return out
}

func containsMethod(methods []string, name string) bool {
	for _, m := range methods {
		if m == name {
			return true
		}
	}
	return false
}
