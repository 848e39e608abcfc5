package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codegraph/knowledgegraph/internal/model"
)

func TestScoreIsPureForIdenticalSignals(t *testing.T) {
	s := Signals{RelationType: model.RelCalls, UsedTypeChecker: true, IsExported: true, NameLength: 8, ToID: "file:a.ts", ImportDepth: 1}
	assert.Equal(t, Score(s), Score(s))
}

func TestScoreAppliesBaseAndBonusesAdditively(t *testing.T) {
	s := Signals{RelationType: model.RelCalls, UsedTypeChecker: true, IsExported: true, NameLength: 8, ToID: "file:a.ts", ImportDepth: 1}
	// base 0.85 + 0.15 + 0.05 + 0.05(nameLen>=5) + 0.05(file:) + 0.05(depth1) = 1.20 clamped to 1.0
	assert.Equal(t, 1.0, Score(s))
}

func TestScoreUnknownRelationTypeUsesDefaultBase(t *testing.T) {
	s := Signals{RelationType: model.RelationshipType("NOT_A_TYPE"), NameLength: 4, ToID: ""}
	assert.Equal(t, defaultBase, Score(s))
}

func TestScorePenalizesShortNamesAndExternalTargets(t *testing.T) {
	s := Signals{RelationType: model.RelReferences, NameLength: 2, ToID: "external:lodash", ImportDepth: 5}
	// base 0.6 - 0.15(short name) - 0.10(external) - 0.05(depth>=3)
	assert.InDelta(t, 0.3, Score(s), 1e-9)
}

func TestScoreRewardsResolvedEntityTarget(t *testing.T) {
	s := Signals{RelationType: model.RelDependsOn, NameLength: 4, ToID: "resolved-entity-id-123", ImportDepth: 2}
	assert.InDelta(t, 0.65, Score(s), 1e-9)
}

func TestPassesFloorUsesDefaultWhenUnconfigured(t *testing.T) {
	assert.True(t, PassesFloor(0.4, Config{}))
	assert.False(t, PassesFloor(0.39, Config{}))
}

func TestPassesFloorHonorsConfiguredFloor(t *testing.T) {
	cfg := Config{MinInferredConfidence: 0.7}
	assert.True(t, PassesFloor(0.7, cfg))
	assert.False(t, PassesFloor(0.69, cfg))
}
