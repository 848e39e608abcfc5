package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codegraph/knowledgegraph/internal/model"
)

func TestCanonicalIDIdempotent(t *testing.T) {
	id1 := model.CanonicalID("a", "b", model.RelCalls, "ref")
	id2 := model.CanonicalID("a", "b", model.RelCalls, "ref")
	assert.Equal(t, id1, id2)

	other := model.CanonicalID("a", "c", model.RelCalls, "ref")
	assert.NotEqual(t, id1, other)
}

func TestSiteHashDeterministic(t *testing.T) {
	loc := model.SiteLocation{Path: "a.ts", Line: 3, Column: 5}
	h1 := model.SiteHash("e1", "e2", model.RelCalls, loc, "U.doIt")
	h2 := model.SiteHash("e1", "e2", model.RelCalls, loc, "U.doIt")
	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 32) // 16 bytes hex-encoded

	loc.Line = 4
	h3 := model.SiteHash("e1", "e2", model.RelCalls, loc, "U.doIt")
	assert.NotEqual(t, h1, h3)
}

func TestValidRelationshipTypeIncludesTemporalAndCheckpointEdges(t *testing.T) {
	assert.True(t, model.ValidRelationshipType(model.RelVersionOf))
	assert.True(t, model.ValidRelationshipType(model.RelCreatedCheckpoint))
	assert.True(t, model.ValidRelationshipType(model.RelPreviousVersion))
	assert.False(t, model.ValidRelationshipType(model.RelationshipType("NOT_A_REAL_EDGE")))
}

func TestErrorKindOfUnwrapsWrappedError(t *testing.T) {
	base := model.NewError(model.ErrQueryFailed, "boom")
	wrapped := model.WrapError(model.ErrTimeout, "outer", base)
	assert.Equal(t, model.ErrTimeout, model.KindOf(wrapped))
}
