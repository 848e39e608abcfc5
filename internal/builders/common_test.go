package builders

import (
	"go/ast"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codegraph/knowledgegraph/internal/model"
)

func relAt(from, to string, rt model.RelationshipType, line, col int) model.Relationship {
	return model.Relationship{
		FromEntityID: from, ToEntityID: to, Type: rt,
		Location: model.Location{Line: line, Column: col},
	}
}

func TestAggregatorMergesRepeatedOccurrencesIntoOneEdge(t *testing.T) {
	a := newAggregator()
	a.observe(relAt("f1", "f2", model.RelCalls, 10, 2))
	a.observe(relAt("f1", "f2", model.RelCalls, 20, 4))
	a.observe(relAt("f1", "f2", model.RelCalls, 5, 1))

	out := a.flush()
	assert.Len(t, out, 1)
	assert.Equal(t, 3, out[0].OccurrencesScan)
	assert.Equal(t, 5, out[0].Location.Line)
	assert.Equal(t, 1, out[0].Location.Column)
}

func TestAggregatorKeepsDistinctEdgesSeparate(t *testing.T) {
	a := newAggregator()
	a.observe(relAt("f1", "f2", model.RelCalls, 1, 1))
	a.observe(relAt("f1", "f3", model.RelCalls, 1, 1))
	a.observe(relAt("f1", "f2", model.RelReferences, 1, 1))

	out := a.flush()
	assert.Len(t, out, 3)
}

func TestDottedRootHandlesBareIdent(t *testing.T) {
	root, simple, dotted, isMethod := dottedRoot(&ast.Ident{Name: "pkg"})
	assert.Equal(t, "pkg", root)
	assert.Equal(t, "pkg", simple)
	assert.Equal(t, "pkg", dotted)
	assert.False(t, isMethod)
}

func TestDottedRootHandlesSelectorExpr(t *testing.T) {
	expr := &ast.SelectorExpr{X: &ast.Ident{Name: "pkg"}, Sel: &ast.Ident{Name: "Func"}}
	root, simple, dotted, isMethod := dottedRoot(expr)
	assert.Equal(t, "pkg", root)
	assert.Equal(t, "Func", simple)
	assert.Equal(t, "pkg.Func", dotted)
	assert.True(t, isMethod)
}
