package builders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/model"
)

// A parameter/return type that resolves to a locally-declared struct emits
// PARAM_TYPE/RETURNS_TYPE edges at the non-inferred default confidence,
// plus an accompanying DEPENDS_ON edge at the local-scope default (§4.2.4).
func TestBuildTypesResolvesLocalSignatureTypes(t *testing.T) {
	sfs := loadFixture(t, "testdata/types", []string{"sig.go"})
	out := runPipeline(t, config.DefaultConfig().Builders, sfs)
	rels := out["sig.go"]

	param, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelParamType && r.FromEntityID == "sym:sig.go:Run"
	})
	require.True(t, ok, "expected exactly one PARAM_TYPE edge for Run")
	assert.Equal(t, model.KindParam, param.EdgeKind)
	assert.True(t, param.Resolved)
	assert.Equal(t, 0.9, param.Confidence)
	assert.Equal(t, "w", param.Metadata["param"])

	dep, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelDependsOn && r.FromEntityID == "sym:sig.go:Run" && r.ToEntityID == param.ToEntityID
	})
	require.True(t, ok, "expected exactly one DEPENDS_ON edge accompanying the param type")
	assert.InDelta(t, 0.9, dep.Confidence, 1e-9)

	ret, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelReturnsType && r.FromEntityID == "sym:sig.go:Run"
	})
	require.True(t, ok, "expected exactly one RETURNS_TYPE edge for Run")
	assert.Equal(t, model.KindReturn, ret.EdgeKind)
	assert.True(t, ret.Resolved)
}

// A signature type that names no local or imported declaration falls back
// to an external, inferred edge scored through the normal gate.
func TestBuildTypesFallsBackToExternalForUnknownType(t *testing.T) {
	sfs := loadFixture(t, "testdata/types", []string{"sig.go"})
	out := runPipeline(t, config.DefaultConfig().Builders, sfs)
	rels := out["sig.go"]

	param, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelParamType && r.FromEntityID == "sym:sig.go:RunExternal"
	})
	require.True(t, ok, "expected exactly one PARAM_TYPE edge for RunExternal")
	assert.Equal(t, model.TargetExternal, param.ToRef.Kind())
	assert.True(t, param.Inferred)
	assert.InDelta(t, 0.75, param.Confidence, 1e-9)

	dep, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelDependsOn && r.FromEntityID == "sym:sig.go:RunExternal"
	})
	require.True(t, ok, "expected exactly one DEPENDS_ON edge accompanying the unresolved param type")
	assert.InDelta(t, 0.4, dep.Confidence, 1e-9)
}
