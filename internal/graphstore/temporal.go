package graphstore

import (
	"context"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/codegraph/knowledgegraph/internal/logging"
	"github.com/codegraph/knowledgegraph/internal/model"
)

// VersionRow is one row of an entity's version timeline, ordered ascending
// by Timestamp, as consumed by the Temporal History Validator (C10, §4.8).
type VersionRow struct {
	ID                string
	EntityID          string
	Timestamp         time.Time
	PreviousVersionID string // "" when absent
}

// MostRecentVersion returns the latest Version node for entityID prior to
// before (or now, if before is zero), or ("", false) if none exists. Used
// by appendVersion (§4.6) to link PREVIOUS_VERSION.
func (s *Store) MostRecentVersion(ctx context.Context, entityID string, before time.Time) (VersionRow, bool, error) {
	timer := logging.StartTimer(logging.CategoryGraphStore, "MostRecentVersion")
	defer timer.Stop()

	sess := s.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	cutoff := before
	if cutoff.IsZero() {
		cutoff = time.Now()
	}

	result, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `
			MATCH (v:Version {entityId: $entityId})
			WHERE v.timestamp < $cutoff
			RETURN v.id as id, v.entityId as entityId, v.timestamp as ts
			ORDER BY v.timestamp DESC
			LIMIT 1
		`, map[string]interface{}{"entityId": entityID, "cutoff": cutoff.Format(time.RFC3339Nano)})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			rec := res.Record()
			row := VersionRow{}
			if v, ok := rec.Get("id"); ok {
				row.ID, _ = v.(string)
			}
			if v, ok := rec.Get("entityId"); ok {
				row.EntityID, _ = v.(string)
			}
			return &row, res.Err()
		}
		return nil, res.Err()
	})
	if err != nil {
		return VersionRow{}, false, model.WrapError(model.ErrQueryFailed, "most recent version for "+entityID, err)
	}
	if result == nil {
		return VersionRow{}, false, nil
	}
	return *(result.(*VersionRow)), true, nil
}

// VersionTimeline returns up to limit Version rows for entityID in
// ascending timestamp order, with each row's PREVIOUS_VERSION target (if
// any), for the validator's timeline scan (§4.8).
func (s *Store) VersionTimeline(ctx context.Context, entityID string, limit int) ([]VersionRow, error) {
	timer := logging.StartTimer(logging.CategoryGraphStore, "VersionTimeline")
	defer timer.Stop()

	if limit <= 0 {
		limit = 200
	}

	sess := s.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	result, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `
			MATCH (v:Version {entityId: $entityId})
			OPTIONAL MATCH (v)-[:PREVIOUS_VERSION]->(p:Version)
			RETURN v.id as id, v.timestamp as ts, p.id as prevId
			ORDER BY v.timestamp ASC
			LIMIT $limit
		`, map[string]interface{}{"entityId": entityID, "limit": limit})
		if err != nil {
			return nil, err
		}
		var rows []VersionRow
		for res.Next(ctx) {
			rec := res.Record()
			row := VersionRow{EntityID: entityID}
			if v, ok := rec.Get("id"); ok {
				row.ID, _ = v.(string)
			}
			if v, ok := rec.Get("ts"); ok {
				if ts, ok := v.(string); ok {
					row.Timestamp, _ = time.Parse(time.RFC3339Nano, ts)
				}
			}
			if v, ok := rec.Get("prevId"); ok && v != nil {
				row.PreviousVersionID, _ = v.(string)
			}
			rows = append(rows, row)
		}
		return rows, res.Err()
	})
	if err != nil {
		return nil, model.WrapError(model.ErrQueryFailed, "version timeline for "+entityID, err)
	}
	return result.([]VersionRow), nil
}

// LinkVersion emits VERSION_OF → entity and, if prevID is non-empty,
// PREVIOUS_VERSION → priorVersion (§4.6 appendVersion).
func (s *Store) LinkVersion(ctx context.Context, versionID, entityID, prevID string) error {
	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		_, err := tx.Run(ctx, `
			MATCH (v:Version {id: $versionId}), (e:Entity {id: $entityId})
			MERGE (v)-[:VERSION_OF]->(e)
		`, map[string]interface{}{"versionId": versionID, "entityId": entityID})
		if err != nil {
			return nil, err
		}
		if prevID == "" {
			return nil, nil
		}
		return tx.Run(ctx, `
			MATCH (v:Version {id: $versionId}), (p:Version {id: $prevId})
			MERGE (v)-[:PREVIOUS_VERSION]->(p)
		`, map[string]interface{}{"versionId": versionID, "prevId": prevID})
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "link version "+versionID, err)
	}
	return nil
}

// OpenEdge sets validFrom on the active edge of the (from,to,type) triple,
// creating it if none exists, and tags it with changeSetID (§4.6 openEdge).
func (s *Store) OpenEdge(ctx context.Context, fromID, toID string, rt model.RelationshipType, ts time.Time, changeSetID string) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	q := `
		MATCH (a:Entity {id: $fromId}), (b:Entity {id: $toId})
		MERGE (a)-[rel:` + string(rt) + ` {active: true}]->(b)
		ON CREATE SET rel.validFrom = $ts, rel.changeSetId = $changeSetId, rel.active = true
		ON MATCH SET rel.validFrom = $ts, rel.changeSetId = $changeSetId
	`
	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, q, map[string]interface{}{
			"fromId": fromID, "toId": toID, "ts": ts.Format(time.RFC3339Nano), "changeSetId": changeSetID,
		})
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "open edge", err)
	}
	return nil
}

// CloseEdge sets validTo and active=false on the matching active edge
// (§4.6 closeEdge).
func (s *Store) CloseEdge(ctx context.Context, fromID, toID string, rt model.RelationshipType, ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	q := `
		MATCH (a:Entity {id: $fromId})-[rel:` + string(rt) + ` {active: true}]->(b:Entity {id: $toId})
		SET rel.validTo = $ts, rel.active = false
	`
	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, q, map[string]interface{}{
			"fromId": fromID, "toId": toID, "ts": ts.Format(time.RFC3339Nano),
		})
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "close edge", err)
	}
	return nil
}

// CloseInactiveEdgesSince closes every active edge whose lastSeenAt < scanStart
// (§4.6 markInactiveEdgesNotSeenSince), returning the count closed.
func (s *Store) CloseInactiveEdgesSince(ctx context.Context, scanStart time.Time) (int64, error) {
	timer := logging.StartTimer(logging.CategoryGraphStore, "CloseInactiveEdgesSince")
	defer timer.Stop()

	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	result, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `
			MATCH ()-[rel {active: true}]->()
			WHERE rel.lastSeenAt < $cutoff
			SET rel.validTo = $cutoff, rel.active = false
			RETURN count(rel) as n
		`, map[string]interface{}{"cutoff": scanStart.Format(time.RFC3339Nano)})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			if v, ok := res.Record().Get("n"); ok {
				if n, ok := v.(int64); ok {
					return n, res.Err()
				}
			}
		}
		return int64(0), res.Err()
	})
	if err != nil {
		return 0, model.WrapError(model.ErrQueryFailed, "close inactive edges", err)
	}
	return result.(int64), nil
}

// ReachableWithinHops performs a bounded-hop traversal from seeds along
// code/structural relationships, for createCheckpoint (§4.6).
func (s *Store) ReachableWithinHops(ctx context.Context, seeds []string, hops int) ([]string, error) {
	if hops <= 0 {
		hops = 2
	}
	sess := s.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	const codeAndStructural = "CONTAINS|DEFINES|EXPORTS|IMPORTS|CALLS|REFERENCES|IMPLEMENTS|EXTENDS|" +
		"DEPENDS_ON|OVERRIDES|READS|WRITES|THROWS|TYPE_USES|RETURNS_TYPE|PARAM_TYPE"
	q := `
		MATCH (seed:Entity) WHERE seed.id IN $seeds
		MATCH path = (seed)-[:` + codeAndStructural + `*0..` + itoaHop(hops) + `]-(reached:Entity)
		RETURN DISTINCT reached.id as id
	`
	result, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, q, map[string]interface{}{"seeds": seeds})
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
		return nil, model.WrapError(model.ErrQueryFailed, "reachable within hops", err)
	}
	return result.([]string), nil
}

func itoaHop(n int) string {
	if n <= 0 {
		return "0"
	}
	digits := []byte{}
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}

// CreateCheckpointEdges emits CHECKPOINT_INCLUDES edges from the checkpoint
// node to every reached entity (§4.6 createCheckpoint).
func (s *Store) CreateCheckpointEdges(ctx context.Context, checkpointID string, reachedIDs []string) error {
	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, `
			MATCH (c:Checkpoint {id: $checkpointId})
			UNWIND $reached as rid
			MATCH (e:Entity {id: rid})
			MERGE (c)-[:CHECKPOINT_INCLUDES]->(e)
		`, map[string]interface{}{"checkpointId": checkpointID, "reached": reachedIDs})
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "create checkpoint edges", err)
	}
	return nil
}

// AnnotateSessionRelationships sets checkpointId/annotatedAt on either an
// explicit relationship id set, or every edge tagged changeSetId=sessionID
// (§4.6 annotateSessionRelationshipsWithCheckpoint).
func (s *Store) AnnotateSessionRelationships(ctx context.Context, sessionID, checkpointID string, relationshipIDs []string, ts time.Time) error {
	if ts.IsZero() {
		ts = time.Now()
	}
	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	var q string
	params := map[string]interface{}{"checkpointId": checkpointID, "ts": ts.Format(time.RFC3339Nano)}
	if len(relationshipIDs) > 0 {
		q = `
			MATCH ()-[rel]->() WHERE rel.canonicalId IN $ids
			SET rel.checkpointId = $checkpointId, rel.annotatedAt = $ts
		`
		params["ids"] = relationshipIDs
	} else {
		q = `
			MATCH ()-[rel {changeSetId: $sessionId}]->()
			SET rel.checkpointId = $checkpointId, rel.annotatedAt = $ts
		`
		params["sessionId"] = sessionID
	}

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, q, params)
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "annotate session relationships", err)
	}
	return nil
}

// CreateSessionCheckpointLink MERGEs session+checkpoint nodes and the
// CREATED_CHECKPOINT edge carrying job metadata (§4.6).
func (s *Store) CreateSessionCheckpointLink(ctx context.Context, sessionID, checkpointID string, metadata map[string]interface{}) error {
	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, `
			MERGE (s:Entity:Session {id: $sessionId})
			MERGE (c:Entity:Checkpoint {id: $checkpointId})
			MERGE (s)-[rel:CREATED_CHECKPOINT]->(c)
			SET rel += $metadata
		`, map[string]interface{}{"sessionId": sessionID, "checkpointId": checkpointID, "metadata": metadata})
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "create session checkpoint link", err)
	}
	return nil
}

// SetCheckpointLinkStatus updates the status property on an existing
// CREATED_CHECKPOINT edge, used when downgrading a link to
// manual_intervention (§4.7). Returns an error when no such edge exists.
func (s *Store) SetCheckpointLinkStatus(ctx context.Context, sessionID, checkpointID, status string) error {
	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	result, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `
			MATCH (:Session {id: $sessionId})-[rel:CREATED_CHECKPOINT]->(:Checkpoint {id: $checkpointId})
			SET rel.status = $status
			RETURN count(rel) as n
		`, map[string]interface{}{"sessionId": sessionID, "checkpointId": checkpointID, "status": status})
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			if v, ok := res.Record().Get("n"); ok {
				if n, ok := v.(int64); ok {
					return n, res.Err()
				}
			}
		}
		return int64(0), res.Err()
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "set checkpoint link status", err)
	}
	if result.(int64) == 0 {
		return model.NewError(model.ErrQueryFailed, "no CREATED_CHECKPOINT link for checkpoint "+checkpointID)
	}
	return nil
}

// DeleteOrphanCheckpoint removes a checkpoint node that never got a
// completed link (§4.7 dead-letter cleanup).
func (s *Store) DeleteOrphanCheckpoint(ctx context.Context, checkpointID string) error {
	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, `
			MATCH (c:Checkpoint {id: $checkpointId})
			DETACH DELETE c
		`, map[string]interface{}{"checkpointId": checkpointID})
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "delete orphan checkpoint", err)
	}
	return nil
}
