package builders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/model"
)

// An assignment's WRITES edge and the READS edges for identifiers on its
// right-hand side share one dataFlowId, correlating the write with the
// reads that fed it (§4.2.3).
func TestBuildReferencesCorrelatesReadsAndWritesByDataFlowID(t *testing.T) {
	sfs := loadFixture(t, "testdata/references", []string{"assign.go"})
	out := runPipeline(t, config.DefaultConfig().Builders, sfs)
	rels := out["assign.go"]

	writeRel, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelWrites && r.AccessPath == "value"
	})
	require.True(t, ok, "expected exactly one WRITES edge for value")

	readRel, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelReads && r.AccessPath == "value"
	})
	require.True(t, ok, "expected exactly one READS edge for value")

	assert.NotEmpty(t, writeRel.DataFlowID)
	assert.Equal(t, writeRel.DataFlowID, readRel.DataFlowID)
	assert.Equal(t, model.KindWrite, writeRel.EdgeKind)
	assert.Equal(t, model.KindRead, readRel.EdgeKind)
}

// A call to a known class/struct constructor is recorded as an
// instantiation REFERENCES edge, distinct from a plain CALLS edge.
func TestBuildReferencesEmitsInstantiationEdgeForConstructorCall(t *testing.T) {
	sfs := loadFixture(t, "testdata/references", []string{"assign.go"})
	out := runPipeline(t, config.DefaultConfig().Builders, sfs)
	rels := out["assign.go"]

	rel, ok := findOne(rels, func(r model.Relationship) bool {
		return r.Type == model.RelReferences && r.EdgeKind == model.KindInstantiation
	})
	require.True(t, ok, "expected exactly one instantiation REFERENCES edge")
	assert.Equal(t, "Thing", rel.AccessPath)
	assert.True(t, rel.Resolved)
}
