package graphstore

import (
	"context"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/codegraph/knowledgegraph/internal/logging"
	"github.com/codegraph/knowledgegraph/internal/model"
)

// VectorHit is one scored result from a vector similarity search.
type VectorHit struct {
	EntityID string
	Score    float64
}

// UpsertVector attaches an embedding to an entity node so it participates
// in the named vector index (§4.4 "Vector index lifecycle").
func (s *Store) UpsertVector(ctx context.Context, index string, entityID string, embedding []float64) error {
	if _, ok := vectorIndexLabels[index]; !ok {
		return model.NewError(model.ErrInvalidParameter, "unknown vector index "+index)
	}
	timer := logging.StartTimer(logging.CategoryGraphStore, "UpsertVector")
	defer timer.Stop()

	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, `
			MATCH (n:Entity {id: $id})
			CALL db.create.setNodeVectorProperty(n, 'embedding', $embedding)
			RETURN n
		`, map[string]interface{}{"id": entityID, "embedding": embedding})
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "upsert vector for "+entityID, err)
	}
	return nil
}

// DeleteVector clears an entity's embedding, removing it from similarity
// search results without deleting the node itself.
func (s *Store) DeleteVector(ctx context.Context, entityID string) error {
	timer := logging.StartTimer(logging.CategoryGraphStore, "DeleteVector")
	defer timer.Stop()

	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, `MATCH (n:Entity {id: $id}) REMOVE n.embedding`, map[string]interface{}{"id": entityID})
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "delete vector for "+entityID, err)
	}
	return nil
}

// SearchVector runs a cosine-similarity k-NN query against the named index
// (§6.3 "three 1536-dim cosine vector indexes").
func (s *Store) SearchVector(ctx context.Context, index string, embedding []float64, topK int) ([]VectorHit, error) {
	if _, ok := vectorIndexLabels[index]; !ok {
		return nil, model.NewError(model.ErrInvalidParameter, "unknown vector index "+index)
	}
	if topK <= 0 {
		topK = 10
	}
	timer := logging.StartTimer(logging.CategoryGraphStore, "SearchVector")
	defer timer.Stop()

	sess := s.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	result, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `
			CALL db.index.vector.queryNodes($index, $topK, $embedding)
			YIELD node, score
			RETURN node.id as id, score
		`, map[string]interface{}{"index": index, "topK": topK, "embedding": embedding})
		if err != nil {
			return nil, err
		}
		var hits []VectorHit
		for res.Next(ctx) {
			rec := res.Record()
			var hit VectorHit
			if v, ok := rec.Get("id"); ok {
				hit.EntityID, _ = v.(string)
			}
			if v, ok := rec.Get("score"); ok {
				hit.Score, _ = v.(float64)
			}
			hits = append(hits, hit)
		}
		return hits, res.Err()
	})
	if err != nil {
		return nil, model.WrapError(model.ErrQueryFailed, "vector search on "+index, err)
	}
	return result.([]VectorHit), nil
}

// ScrollVectors pages through all entities in a vector index's backing
// label.
func (s *Store) ScrollVectors(ctx context.Context, index string, afterID string, limit int) ([]string, error) {
	label, ok := vectorIndexLabels[index]
	if !ok {
		return nil, model.NewError(model.ErrInvalidParameter, "unknown vector index "+index)
	}
	if limit <= 0 {
		limit = 100
	}
	timer := logging.StartTimer(logging.CategoryGraphStore, "ScrollVectors")
	defer timer.Stop()

	sess := s.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	cypher := "MATCH (n:" + label + ") WHERE n.id > $after RETURN n.id as id ORDER BY n.id LIMIT $limit"
	result, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, cypher, map[string]interface{}{"after": afterID, "limit": limit})
		if err != nil {
			return nil, err
		}
		var ids []string
		for res.Next(ctx) {
			if v, ok := res.Record().Get("id"); ok {
				if s, ok := v.(string); ok {
					ids = append(ids, s)
				}
			}
		}
		return ids, res.Err()
	})
	if err != nil {
		return nil, model.WrapError(model.ErrQueryFailed, "scroll vectors on "+index, err)
	}
	return result.([]string), nil
}
