package symbolindex

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codegraph/knowledgegraph/internal/model"
)

func TestPutAndLookupLocal(t *testing.T) {
	idx := New()
	idx.Put("a.ts", "doThing", "file:a.ts#doThing", model.KindFunctionSymbol)

	id, ok := idx.LookupLocal("a.ts", "doThing")
	assert.True(t, ok)
	assert.Equal(t, "file:a.ts#doThing", id)

	_, ok = idx.LookupLocal("b.ts", "doThing")
	assert.False(t, ok)
}

func TestLookupByNameReturnsAllCandidates(t *testing.T) {
	idx := New()
	idx.Put("a.ts", "run", "file:a.ts#run", model.KindFunctionSymbol)
	idx.Put("b.ts", "run", "file:b.ts#run", model.KindFunctionSymbol)

	candidates := idx.LookupByName("run")
	assert.Len(t, candidates, 2)
}

func TestLookupByNameReturnsDefensiveCopy(t *testing.T) {
	idx := New()
	idx.Put("a.ts", "run", "file:a.ts#run", model.KindFunctionSymbol)

	got := idx.LookupByName("run")
	got[0].EntityID = "mutated"

	fresh := idx.LookupByName("run")
	assert.Equal(t, "file:a.ts#run", fresh[0].EntityID)
}

func TestResetClearsIndex(t *testing.T) {
	idx := New()
	idx.Put("a.ts", "run", "file:a.ts#run", model.KindFunctionSymbol)
	idx.Reset()

	_, ok := idx.LookupLocal("a.ts", "run")
	assert.False(t, ok)
	assert.Empty(t, idx.LookupByName("run"))
}

func TestPromoteResolvesUniqueCandidate(t *testing.T) {
	idx := New()
	idx.Put("a.ts", "helper", "file:a.ts#helper", model.KindFunctionSymbol)

	promoted, ok := idx.Promote(model.ExternalRef("helper"))
	assert.True(t, ok)
	assert.Equal(t, model.TargetEntity, promoted.Kind())
	assert.Equal(t, "file:a.ts#helper", promoted.EntityID)
}

func TestPromoteFailsOnAmbiguousName(t *testing.T) {
	idx := New()
	idx.Put("a.ts", "helper", "file:a.ts#helper", model.KindFunctionSymbol)
	idx.Put("b.ts", "helper", "file:b.ts#helper", model.KindFunctionSymbol)

	_, ok := idx.Promote(model.ExternalRef("helper"))
	assert.False(t, ok)
}

func TestPromoteIgnoresAlreadyResolvedTargets(t *testing.T) {
	idx := New()
	target := model.EntityRef("file:a.ts#helper")
	out, ok := idx.Promote(target)
	assert.False(t, ok)
	assert.Equal(t, target, out)
}

func TestTypeCheckerBudgetExhaustsAndReplenishes(t *testing.T) {
	b := NewTypeCheckerBudget(2)
	assert.True(t, b.Take())
	assert.True(t, b.Take())
	assert.False(t, b.Take())
	assert.Equal(t, 0, b.Remaining())

	b.Reset(1)
	assert.Equal(t, 1, b.Remaining())
	assert.True(t, b.Take())
	assert.False(t, b.Take())
}
