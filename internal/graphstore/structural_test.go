package graphstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codegraph/knowledgegraph/internal/model"
)

func TestComputeBackfillNoopWhenUnchanged(t *testing.T) {
	snapshot := StructuralFields{Confidence: 0.8, Resolution: "resolved"}
	result, changed := ComputeBackfill(snapshot, snapshot)
	assert.False(t, changed)
	assert.Equal(t, snapshot, result)
}

func TestComputeBackfillFlagsDivergence(t *testing.T) {
	existing := StructuralFields{Confidence: 0.5}
	recomputed := StructuralFields{Confidence: 0.9}

	result, changed := ComputeBackfill(existing, recomputed)
	assert.True(t, changed)
	assert.Equal(t, recomputed, result)
}

func TestExtractStructuralFieldsCapturesTimestampsOnlyWhenSet(t *testing.T) {
	r := model.Relationship{Confidence: 0.7, Scope: model.ScopeImported}
	f := ExtractStructuralFields(r)
	assert.Equal(t, "", f.LastSeenAt)
	assert.Equal(t, "", f.ValidFrom)
	assert.Equal(t, 0.7, f.Confidence)
	assert.Equal(t, string(model.ScopeImported), f.Scope)
}

func TestStructuralFieldsToParamsIncludesAccessPathFromRelationship(t *testing.T) {
	r := model.Relationship{AccessPath: "U.doIt", Callee: "doIt", Arity: 2}
	f := ExtractStructuralFields(r)
	params := structuralFieldsToParams(f, r)

	assert.Equal(t, "U.doIt", params["accessPath"])
	assert.Equal(t, "doIt", params["callee"])
	assert.Equal(t, 2, params["arity"])
}
