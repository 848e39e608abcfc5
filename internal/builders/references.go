package builders

import (
	"go/ast"
	"go/token"

	"github.com/codegraph/knowledgegraph/internal/model"
)

var assignOps = map[token.Token]bool{
	token.ASSIGN: true, token.ADD_ASSIGN: true, token.SUB_ASSIGN: true,
	token.MUL_ASSIGN: true, token.QUO_ASSIGN: true, token.REM_ASSIGN: true,
	token.SHL_ASSIGN: true, token.SHR_ASSIGN: true,
	token.AND_ASSIGN: true, token.OR_ASSIGN: true, token.XOR_ASSIGN: true,
}

// BuildReferences implements the Reference Builder (§4.2.3): instantiations,
// identifier references, and assignment-driven READS/WRITES, each tagged
// with a dataFlowId correlating same-binding reads and writes.
func BuildReferences(c *Context) []model.Relationship {
	agg := newAggregator()

	for _, sym := range c.File.Symbols {
		fn, ok := sym.Entity.(*model.FunctionSymbol)
		if !ok || sym.Node == nil {
			continue
		}
		body := funcBody(sym.Node)
		if body == nil {
			continue
		}
		fromID := fn.ID

		callExprs := map[*ast.Ident]bool{} // identifiers that are the callee of a call, excluded from bare references
		ast.Inspect(body, func(n ast.Node) bool {
			if call, ok := n.(*ast.CallExpr); ok {
				if id, ok := call.Fun.(*ast.Ident); ok {
					callExprs[id] = true
				}
			}
			return true
		})

		ast.Inspect(body, func(n ast.Node) bool {
			switch node := n.(type) {
			case *ast.CallExpr:
				c.handleInstantiation(fromID, node, agg)
			case *ast.AssignStmt:
				c.handleAssign(fromID, node, agg)
			case *ast.Ident:
				if callExprs[node] {
					return true
				}
				c.handleIdentifierRef(fromID, node, agg)
			}
			return true
		})
	}

	out := agg.flush()

	// Synthesize one DEPENDS_ON per imported-scope (from,to) among this
	// builder's edges, skipping pairs that already have a DEPENDS_ON in out.
	// Edges emitted by the call builder are not consulted.
	seen := map[occKey]bool{}
	for _, r := range out {
		if r.Type == model.RelDependsOn {
			seen[occKey{from: r.FromEntityID, to: r.ToEntityID, typ: model.RelDependsOn}] = true
		}
	}
	var synthesized []model.Relationship
	for _, r := range out {
		if r.Scope != model.ScopeImported {
			continue
		}
		k := occKey{from: r.FromEntityID, to: r.ToEntityID, typ: model.RelDependsOn}
		if seen[k] {
			continue
		}
		seen[k] = true
		dep := newEdge(r.FromEntityID, model.RelDependsOn, r.FromRef)
		dep.ToRef = r.ToRef
		dep.ToEntityID = r.ToEntityID
		dep.Scope = r.Scope
		dep.Resolution = r.Resolution
		dep.EdgeKind = model.KindDependency
		dep.Inferred = true
		dep.Confidence = 0.6
		synthesized = append(synthesized, dep)
	}

	return append(out, synthesized...)
}

func (c *Context) handleInstantiation(fromID string, call *ast.CallExpr, agg *aggregator) {
	comp, ok := call.Fun.(*ast.Ident)
	isType := false
	if ok {
		candidates := c.Symbols.LookupByName(comp.Name)
		for _, cand := range candidates {
			if cand.Kind == model.KindClassSymbol {
				isType = true
				break
			}
		}
	}
	if !isType {
		return
	}
	root, simple, dotted, _ := dottedRoot(call.Fun)
	if simple == "" || c.isNoise(simple) {
		return
	}
	res := c.resolveName(root, simple, nil)
	rel := newEdge(fromID, model.RelReferences, model.EntityRef(fromID))
	finalizeTarget(&rel, res)
	rel.EdgeKind = model.KindInstantiation
	rel.AccessPath = dotted
	rel.Location = c.pos(call)
	if c.scoreAndGate(&rel, false, simple) {
		agg.observe(rel)
	}
}

func (c *Context) handleIdentifierRef(fromID string, id *ast.Ident, agg *aggregator) {
	name := id.Name
	if name == "" || c.isNoise(name) || name == "_" {
		return
	}
	res := c.resolveName(name, name, nil)
	rel := newEdge(fromID, model.RelReferences, model.EntityRef(fromID))
	finalizeTarget(&rel, res)
	rel.AccessPath = name
	rel.Location = c.pos(id)
	if c.scoreAndGate(&rel, false, name) {
		agg.observe(rel)
	}
}

func (c *Context) handleAssign(fromID string, assign *ast.AssignStmt, agg *aggregator) {
	if !assignOps[assign.Tok] {
		return
	}
	for i, lhs := range assign.Lhs {
		c.emitWrite(fromID, lhs, agg)
		if i < len(assign.Rhs) {
			c.emitReads(fromID, assign.Rhs[i], agg)
		}
	}
}

func (c *Context) emitWrite(fromID string, lhs ast.Expr, agg *aggregator) {
	switch v := lhs.(type) {
	case *ast.Ident:
		if v.Name == "_" || c.isNoise(v.Name) {
			return
		}
		res := c.resolveName(v.Name, v.Name, nil)
		rel := newEdge(fromID, model.RelWrites, model.EntityRef(fromID))
		finalizeTarget(&rel, res)
		rel.EdgeKind = model.KindWrite
		rel.AccessPath = v.Name
		rel.DataFlowID = model.DataFlowID(c.RelPath, fromID, v.Name)
		rel.Location = c.pos(v)
		if c.scoreAndGate(&rel, false, v.Name) {
			agg.observe(rel)
		}
	case *ast.SelectorExpr:
		root, simple, dotted, _ := dottedRoot(v)
		if simple == "" || c.isNoise(simple) {
			return
		}
		res := c.resolveName(root, simple, nil)
		rel := newEdge(fromID, model.RelWrites, model.EntityRef(fromID))
		finalizeTarget(&rel, res)
		rel.EdgeKind = model.KindWrite
		rel.AccessPath = dotted
		rel.DataFlowID = model.DataFlowID(c.RelPath, fromID, dotted)
		rel.Location = c.pos(v)
		if c.scoreAndGate(&rel, false, simple) {
			agg.observe(rel)
		}
	case *ast.CompositeLit:
		for _, elt := range v.Elts {
			if kv, ok := elt.(*ast.KeyValueExpr); ok {
				c.emitWrite(fromID, kv.Value, agg)
			}
		}
	}
}

func (c *Context) emitReads(fromID string, rhs ast.Expr, agg *aggregator) {
	ast.Inspect(rhs, func(n ast.Node) bool {
		switch v := n.(type) {
		case *ast.Ident:
			if v.Name == "_" || c.isNoise(v.Name) {
				return true
			}
			res := c.resolveName(v.Name, v.Name, nil)
			rel := newEdge(fromID, model.RelReads, model.EntityRef(fromID))
			finalizeTarget(&rel, res)
			rel.EdgeKind = model.KindRead
			rel.AccessPath = v.Name
			rel.DataFlowID = model.DataFlowID(c.RelPath, fromID, v.Name)
			rel.Location = c.pos(v)
			if c.scoreAndGate(&rel, false, v.Name) {
				agg.observe(rel)
			}
		case *ast.SelectorExpr:
			root, simple, dotted, _ := dottedRoot(v)
			if simple == "" || c.isNoise(simple) {
				return false
			}
			res := c.resolveName(root, simple, nil)
			rel := newEdge(fromID, model.RelReads, model.EntityRef(fromID))
			finalizeTarget(&rel, res)
			rel.EdgeKind = model.KindRead
			rel.AccessPath = dotted
			rel.DataFlowID = model.DataFlowID(c.RelPath, fromID, dotted)
			rel.Location = c.pos(v)
			if c.scoreAndGate(&rel, false, simple) {
				agg.observe(rel)
			}
			return false
		}
		return true
	})
}
