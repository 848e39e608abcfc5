package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codegraph/knowledgegraph/internal/model"
)

func TestUnsupportedForGraphStoreEmptyForPlainCodeQuery(t *testing.T) {
	q := model.RelationshipQuery{FromEntityID: "file:a.ts", Type: model.RelCalls}
	assert.Empty(t, q.UnsupportedForGraphStore())
}

func TestUnsupportedForGraphStoreFlagsToRefFields(t *testing.T) {
	q := model.RelationshipQuery{ToRefKind: model.TargetFileSymbol, ToRefFile: "b.ts"}
	assert.ElementsMatch(t, []string{"toRefKind", "toRefFile"}, q.UnsupportedForGraphStore())
}

func TestUnsupportedForGraphStoreFlagsPerformanceAndSessionFields(t *testing.T) {
	min := int64(1)
	q := model.RelationshipQuery{
		MetricID:          "p95_latency",
		SessionID:         "sess-1",
		SequenceNumberMin: &min,
	}
	bad := q.UnsupportedForGraphStore()
	assert.Contains(t, bad, "metricId")
	assert.Contains(t, bad, "sessionId")
	assert.Contains(t, bad, "sequenceNumberMin")
}
