package graphstore

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codegraph/knowledgegraph/internal/model"
)

func TestBuildQueryCypherAppliesCoreFilters(t *testing.T) {
	cypher, params := buildQueryCypher(model.RelationshipQuery{
		FromEntityID: "file:a.ts",
		ToEntityID:   "file:b.ts",
		Type:         model.RelCalls,
		Limit:        10,
	})

	assert.Contains(t, cypher, "a.id = $fromId")
	assert.Contains(t, cypher, "b.id = $toId")
	assert.Contains(t, cypher, "type(rel) = $type")
	assert.Contains(t, cypher, "LIMIT $limit")
	assert.Equal(t, "file:a.ts", params["fromId"])
	assert.Equal(t, "file:b.ts", params["toId"])
	assert.Equal(t, "CALLS", params["type"])
	assert.Equal(t, 10, params["limit"])
}

func TestBuildQueryCypherOmitsUnsetFilters(t *testing.T) {
	cypher, params := buildQueryCypher(model.RelationshipQuery{})
	assert.Equal(t, "MATCH (a:Entity)-[rel]->(b:Entity) WHERE 1=1 RETURN a.id as fromId, b.id as toId, type(rel) as relType, rel as rel", cypher)
	assert.Empty(t, params)
}

func TestBuildQueryCypherAppliesConfidenceBounds(t *testing.T) {
	min, max := 0.5, 0.9
	cypher, params := buildQueryCypher(model.RelationshipQuery{ConfidenceMin: &min, ConfidenceMax: &max})
	assert.Contains(t, cypher, "rel.confidence >= $confidenceMin")
	assert.Contains(t, cypher, "rel.confidence <= $confidenceMax")
	assert.Equal(t, 0.5, params["confidenceMin"])
	assert.Equal(t, 0.9, params["confidenceMax"])
}

func TestBuildQueryCypherAppliesImportDepthBounds(t *testing.T) {
	min := 2
	cypher, params := buildQueryCypher(model.RelationshipQuery{ImportDepthMin: &min})
	assert.Contains(t, cypher, "rel.importDepth >= $importDepthMin")
	assert.Equal(t, 2, params["importDepthMin"])
}

func TestBuildQueryCypherAppliesBooleanFlags(t *testing.T) {
	inferred := true
	cypher, params := buildQueryCypher(model.RelationshipQuery{Inferred: &inferred})
	assert.Contains(t, cypher, "rel.inferred = $inferred")
	assert.Equal(t, true, params["inferred"])
}

func TestBuildQueryCypherAppliesTypesAndEntityTypes(t *testing.T) {
	cypher, params := buildQueryCypher(model.RelationshipQuery{
		Types:       []model.RelationshipType{model.RelCalls, model.RelReferences},
		EntityTypes: []model.EntityKind{model.KindFunctionSymbol},
	})
	assert.Contains(t, cypher, "type(rel) IN $types")
	assert.Contains(t, cypher, "a.type IN $entityTypes OR b.type IN $entityTypes")
	assert.ElementsMatch(t, []string{"CALLS", "REFERENCES"}, params["types"])
}

func TestBuildQueryCypherAppliesOffsetBeforeLimit(t *testing.T) {
	cypher, _ := buildQueryCypher(model.RelationshipQuery{Offset: 5, Limit: 10})
	skipIdx := indexOf(cypher, "SKIP")
	limitIdx := indexOf(cypher, "LIMIT")
	assert.True(t, skipIdx >= 0 && limitIdx > skipIdx)
}

func indexOf(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return i
		}
	}
	return -1
}
