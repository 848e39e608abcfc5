package builders

import (
	"go/ast"
	"strings"

	"github.com/codegraph/knowledgegraph/internal/model"
)

// depthConfidence is the §4.2.4 per-scope confidence default for the
// PARAM_TYPE-accompanying DEPENDS_ON edge.
var depthConfidence = map[model.Scope]float64{
	model.ScopeLocal:    0.9,
	model.ScopeImported: 0.6,
	model.ScopeExternal: 0.4,
}

// BuildTypes implements the Type Builder (§4.2.4): EXTENDS/IMPLEMENTS for
// inheritance clauses, PARAM_TYPE/RETURNS_TYPE (with accompanying
// DEPENDS_ON) for function signatures.
func BuildTypes(c *Context) []model.Relationship {
	var out []model.Relationship

	for _, sym := range c.File.Symbols {
		switch v := sym.Entity.(type) {
		case *model.ClassSymbol:
			out = append(out, c.buildInheritance(v.ID, v.Extends, model.RelExtends, "class")...)
			out = append(out, c.buildInheritance(v.ID, v.Implements, model.RelImplements, "interface")...)
		case *model.InterfaceSymbol:
			out = append(out, c.buildInheritance(v.ID, v.Extends, model.RelExtends, "interface")...)
		case *model.FunctionSymbol:
			out = append(out, c.buildSignatureEdges(v)...)
		}
	}

	return out
}

func (c *Context) buildInheritance(fromID string, names []string, rt model.RelationshipType, placeholderKind string) []model.Relationship {
	var out []model.Relationship
	for _, name := range names {
		if name == "" || c.isNoise(name) {
			continue
		}
		res := c.resolveName(name, name, nil)
		if res.target.Kind() == model.TargetExternal {
			if candidates := c.Symbols.LookupByName(name); len(candidates) == 1 {
				res = resolution{target: model.EntityRef(candidates[0].EntityID), resolutionKind: model.ResolutionDirect, scope: model.ScopeLocal}
			} else {
				res.target = model.PlaceholderRef(placeholderKind, name)
			}
		}
		rel := newEdge(fromID, rt, model.EntityRef(fromID))
		finalizeTarget(&rel, res)
		rel.EdgeKind = model.KindInheritance
		if c.scoreAndGate(&rel, false, name) {
			out = append(out, rel)
		}
	}
	return out
}

func (c *Context) buildSignatureEdges(fn *model.FunctionSymbol) []model.Relationship {
	var out []model.Relationship

	for _, p := range fn.Parameters {
		typeName := simpleTypeName(p.Type)
		if typeName == "" || c.isNoise(typeName) {
			continue
		}
		res := c.resolveName(typeName, typeName, nil)
		rel := newEdge(fn.ID, model.RelParamType, model.EntityRef(fn.ID))
		finalizeTarget(&rel, res)
		rel.EdgeKind = model.KindParam
		if rel.Metadata == nil {
			rel.Metadata = map[string]interface{}{}
		}
		rel.Metadata["param"] = p.Name
		if c.scoreAndGate(&rel, fn.IsExported, typeName) {
			out = append(out, rel)
		}

		dep := newEdge(fn.ID, model.RelDependsOn, model.EntityRef(fn.ID))
		finalizeTarget(&dep, res)
		dep.EdgeKind = model.KindDependency
		dep.Inferred = true
		dep.Confidence = depthConfidence[res.scope]
		out = append(out, dep)
	}

	if fn.ReturnType != "" {
		typeName := simpleTypeName(fn.ReturnType)
		if typeName != "" && !c.isNoise(typeName) {
			res := c.resolveName(typeName, typeName, nil)
			rel := newEdge(fn.ID, model.RelReturnsType, model.EntityRef(fn.ID))
			finalizeTarget(&rel, res)
			rel.EdgeKind = model.KindReturn
			if c.scoreAndGate(&rel, fn.IsExported, typeName) {
				out = append(out, rel)
			}
		}
	}

	return out
}

// simpleTypeName strips generics, unions, intersections and pointer/slice
// decorations from a declared or inferred type string, per §4.2.4's
// "stripping generics (<), unions, and intersections before lookup".
func simpleTypeName(t string) string {
	t = strings.TrimSpace(t)
	if idx := strings.IndexAny(t, "<|&"); idx >= 0 {
		t = t[:idx]
	}
	t = strings.TrimLeft(t, "*[]")
	if idx := strings.LastIndexByte(t, '.'); idx >= 0 {
		t = t[idx+1:]
	}
	return strings.TrimSpace(t)
}

// funcDeclDecorators is a placeholder hook for decorator-style edges
// (§4.2.4 "Decorators"); Go has no decorator syntax, so this returns nil --
// kept as the named extension point a future language adapter would use.
func (c *Context) funcDeclDecorators(fn *model.FunctionSymbol, node ast.Node) []model.Relationship {
	return nil
}
