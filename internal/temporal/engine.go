// Package temporal implements the Temporal History Engine (C8) and the
// Temporal History Validator (C10): version chains, edge validity windows,
// checkpoint materialization, and the consistency scan that repairs broken
// version links, per spec §4.6/§4.8.
package temporal

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/codegraph/knowledgegraph/internal/graphstore"
	"github.com/codegraph/knowledgegraph/internal/logging"
	"github.com/codegraph/knowledgegraph/internal/model"
)

// Engine wraps a graph store with the temporal/versioning operations of
// §4.6.
type Engine struct {
	store *graphstore.Store
}

// New builds an Engine over an already-connected graph store.
func New(store *graphstore.Store) *Engine {
	return &Engine{store: store}
}

// AppendVersion creates a Version node for entity, links it VERSION_OF the
// entity, and PREVIOUS_VERSION to the prior version (if any). Returns the
// new version id.
func (e *Engine) AppendVersion(ctx context.Context, entityID, hash string) (string, error) {
	timer := logging.StartTimer(logging.CategoryTemporal, "AppendVersion")
	defer timer.Stop()

	now := time.Now()
	versionID := "ver_" + uuid.NewString()

	v := &model.VersionEntity{
		Base:      model.Base{ID: versionID, Hash: hash, Created: now, LastModified: now},
		EntityID:  entityID,
		Timestamp: now,
	}
	if err := e.store.UpsertEntity(ctx, v); err != nil {
		return "", err
	}

	prevID := ""
	if prior, ok, err := e.store.MostRecentVersion(ctx, entityID, now); err != nil {
		return "", err
	} else if ok {
		prevID = prior.ID
	}

	if err := e.store.LinkVersion(ctx, versionID, entityID, prevID); err != nil {
		return "", err
	}
	return versionID, nil
}

// OpenEdge sets validFrom on the active edge of (from,to,type), creating it
// if absent.
func (e *Engine) OpenEdge(ctx context.Context, from, to string, rt model.RelationshipType, ts time.Time, changeSetID string) error {
	return e.store.OpenEdge(ctx, from, to, rt, ts, changeSetID)
}

// CloseEdge sets validTo/active=false on the matching active edge.
func (e *Engine) CloseEdge(ctx context.Context, from, to string, rt model.RelationshipType, ts time.Time) error {
	return e.store.CloseEdge(ctx, from, to, rt, ts)
}

// MarkInactiveEdgesNotSeenSince closes every active edge whose lastSeenAt
// predates scanStart. Must run only after all scan writes for the pass
// have committed (§5 ordering guarantee).
func (e *Engine) MarkInactiveEdgesNotSeenSince(ctx context.Context, scanStart time.Time) (int64, error) {
	timer := logging.StartTimer(logging.CategoryTemporal, "MarkInactiveEdgesNotSeenSince")
	defer timer.Stop()
	return e.store.CloseInactiveEdgesSince(ctx, scanStart)
}

// CheckpointOptions configures createCheckpoint.
type CheckpointOptions struct {
	Reason model.CheckpointReason
	Hops   int
}

// CreateCheckpoint materializes a Checkpoint node, traverses up to Hops
// edges from each seed, and emits CHECKPOINT_INCLUDES edges to the reached
// set. Returns the new checkpoint id.
func (e *Engine) CreateCheckpoint(ctx context.Context, seedEntities []string, opts CheckpointOptions) (string, error) {
	timer := logging.StartTimer(logging.CategoryTemporal, "CreateCheckpoint")
	defer timer.Stop()

	if len(seedEntities) == 0 {
		return "", model.NewError(model.ErrInvalidParameter, "createCheckpoint requires at least one seed entity")
	}

	hops := opts.Hops
	if hops <= 0 {
		hops = 2
	}
	reason := opts.Reason
	if reason == "" {
		reason = model.CheckpointManual
	}

	now := time.Now()
	checkpointID := "chk_" + uuid.NewString()

	cp := &model.CheckpointEntity{
		Base:         model.Base{ID: checkpointID, Created: now, LastModified: now},
		CheckpointID: checkpointID,
		Reason:       reason,
		Hops:         hops,
		SeedEntities: append([]string(nil), seedEntities...),
		Timestamp:    now,
	}
	if err := e.store.UpsertEntity(ctx, cp); err != nil {
		return "", err
	}

	reached, err := e.store.ReachableWithinHops(ctx, seedEntities, hops)
	if err != nil {
		return "", err
	}
	if err := e.store.CreateCheckpointEdges(ctx, checkpointID, reached); err != nil {
		return "", err
	}

	return checkpointID, nil
}

// AnnotateSessionRelationshipsWithCheckpoint sets checkpointId/annotatedAt
// on the explicit edge set, or every edge tagged changeSetId=sessionID when
// relationshipIDs is empty.
func (e *Engine) AnnotateSessionRelationshipsWithCheckpoint(ctx context.Context, sessionID, checkpointID string, relationshipIDs []string, ts time.Time) error {
	return e.store.AnnotateSessionRelationships(ctx, sessionID, checkpointID, relationshipIDs, ts)
}

// SessionCheckpointLinkMetadata carries the CREATED_CHECKPOINT edge
// properties (§4.6).
type SessionCheckpointLinkMetadata struct {
	Reason       model.CheckpointReason
	Hops         int
	Attempts     int
	SeedEntities []string
	JobID        string
	Status       string
}

// CreateSessionCheckpointLink MERGEs the session+checkpoint nodes and the
// CREATED_CHECKPOINT edge.
func (e *Engine) CreateSessionCheckpointLink(ctx context.Context, sessionID, checkpointID string, meta SessionCheckpointLinkMetadata) error {
	return e.store.CreateSessionCheckpointLink(ctx, sessionID, checkpointID, map[string]interface{}{
		"reason":       string(meta.Reason),
		"hops":         meta.Hops,
		"attempts":     meta.Attempts,
		"seedEntities": meta.SeedEntities,
		"jobId":        meta.JobID,
		"status":       meta.Status,
	})
}

// SetCheckpointLinkStatus updates an existing CREATED_CHECKPOINT edge's
// status (used to downgrade to manual_intervention, §4.7).
func (e *Engine) SetCheckpointLinkStatus(ctx context.Context, sessionID, checkpointID, status string) error {
	return e.store.SetCheckpointLinkStatus(ctx, sessionID, checkpointID, status)
}

// DeleteOrphanCheckpoint removes a checkpoint that never completed linking.
func (e *Engine) DeleteOrphanCheckpoint(ctx context.Context, checkpointID string) error {
	return e.store.DeleteOrphanCheckpoint(ctx, checkpointID)
}

// RepairPreviousVersionLink finds the unique immediately-prior version of
// the same entity by (timestamp, id) order and creates a missing
// PREVIOUS_VERSION edge. Idempotent: a version that already has the
// correct link is left untouched.
func (e *Engine) RepairPreviousVersionLink(ctx context.Context, entityID, versionID string) (bool, error) {
	timer := logging.StartTimer(logging.CategoryTemporal, "RepairPreviousVersionLink")
	defer timer.Stop()

	rows, err := e.store.VersionTimeline(ctx, entityID, 0)
	if err != nil {
		return false, err
	}
	sortVersionRows(rows)

	idx := -1
	for i, r := range rows {
		if r.ID == versionID {
			idx = i
			break
		}
	}
	if idx <= 0 {
		// First version, or versionID not found: nothing to repair.
		return false, nil
	}

	prior := rows[idx-1]
	if rows[idx].PreviousVersionID == prior.ID {
		return false, nil // already correct
	}

	if err := e.store.LinkVersion(ctx, versionID, entityID, prior.ID); err != nil {
		return false, err
	}
	return true, nil
}

// sortVersionRows orders rows by (Timestamp, ID) ascending, the deterministic
// tiebreaker decided for repairPreviousVersionLink (§9 Open Question (a)).
func sortVersionRows(rows []graphstore.VersionRow) {
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].Timestamp.Before(rows[j].Timestamp)
		}
		return rows[i].ID < rows[j].ID
	})
}

// TimeTravelActive reports whether a relationship was active at instant t,
// applying the validFrom ≤ t < validTo filter (with a nil ValidTo meaning
// "still open") described in §4.6.
func TimeTravelActive(r model.Relationship, t time.Time) bool {
	if r.ValidFrom.After(t) {
		return false
	}
	if r.ValidTo != nil && !r.ValidTo.After(t) {
		return false
	}
	return true
}
