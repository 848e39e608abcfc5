package builders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/model"
)

func findOne(rels []model.Relationship, pred func(model.Relationship) bool) (model.Relationship, bool) {
	var found model.Relationship
	n := 0
	for _, r := range rels {
		if pred(r) {
			found = r
			n++
		}
	}
	return found, n == 1
}

// S2: a call through an imported namespace alias ("U.doIt()") emits one
// CALLS, one REFERENCES, and one DEPENDS_ON edge, all scoped as imported and
// resolved via-import, with the call's access path, callee and arity
// carried through.
func TestBuildCallsHandlesCallThroughImportedAlias(t *testing.T) {
	sfs := loadFixture(t, "testdata/s2", []string{"caller.go", "util.go"})
	out := runPipeline(t, config.DefaultConfig().Builders, sfs)
	rels := out["caller.go"]

	callRel, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelCalls && r.Callee == "doIt"
	})
	require.True(t, ok, "expected exactly one CALLS edge for doIt")
	assert.Equal(t, model.ScopeImported, callRel.Scope)
	assert.Equal(t, model.ResolutionViaImport, callRel.Resolution)
	assert.Equal(t, "U.doIt", callRel.AccessPath)
	assert.Equal(t, 0, callRel.Arity)
	assert.False(t, callRel.Awaited)
	assert.True(t, callRel.IsMethod)

	refRel, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelReferences && r.AccessPath == "U.doIt"
	})
	require.True(t, ok, "expected exactly one REFERENCES edge for U.doIt")
	assert.Equal(t, model.ScopeImported, refRel.Scope)
	assert.Equal(t, model.ResolutionViaImport, refRel.Resolution)

	depRel, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelDependsOn && r.ToEntityID == callRel.ToEntityID
	})
	require.True(t, ok, "expected exactly one DEPENDS_ON edge to doIt's target")
	assert.Equal(t, model.ScopeImported, depRel.Scope)
	assert.Equal(t, model.ResolutionViaImport, depRel.Resolution)
}

// S3: a mutating-method call on a local slice ("items.push(x)") emits a
// CALLS edge for the method plus a WRITES edge on the receiver, tagged
// operator=mutate (§4.2.2 item 4).
func TestBuildCallsEmitsWriteEdgeForMutatingMethod(t *testing.T) {
	sfs := loadFixture(t, "testdata/s3", []string{"mutate.go"})
	out := runPipeline(t, config.DefaultConfig().Builders, sfs)
	rels := out["mutate.go"]

	callRel, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelCalls && r.Callee == "push"
	})
	require.True(t, ok, "expected exactly one CALLS edge for push")
	assert.Equal(t, "items.push", callRel.AccessPath)

	writeRel, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelWrites && r.EdgeKind == model.KindWrite
	})
	require.True(t, ok, "expected exactly one WRITES edge for the mutated receiver")
	assert.Equal(t, "mutate", writeRel.Operator)
	assert.Equal(t, "items.push", writeRel.AccessPath)
	assert.Equal(t, callRel.FromEntityID, writeRel.FromEntityID)
}
