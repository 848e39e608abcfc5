// Package facade is the thin pass-through layer (C11) that composes the
// graph store, relational store, temporal engine, validator, and checkpoint
// runner behind a single entity/relationship/search/history/analysis
// surface, per spec §6.2.
package facade

import (
	"context"
	"strings"
	"time"

	"github.com/codegraph/knowledgegraph/internal/checkpoint"
	"github.com/codegraph/knowledgegraph/internal/graphstore"
	"github.com/codegraph/knowledgegraph/internal/logging"
	"github.com/codegraph/knowledgegraph/internal/model"
	"github.com/codegraph/knowledgegraph/internal/relstore"
	"github.com/codegraph/knowledgegraph/internal/temporal"
)

// Facade is the single entrypoint embedding applications use: it never
// holds business logic of its own, only delegation and the handful of
// BFS splits the underlying stores don't already provide.
type Facade struct {
	Graph     *graphstore.Store
	Rel       *relstore.Store
	Engine    *temporal.Engine
	Validator *temporal.Validator
	Runner    *checkpoint.Runner
}

// New composes an already-constructed set of subsystem handles. Each
// pointer is optional; callers that only need a subset (e.g. a read-only
// query service) may pass nil for the rest.
func New(graph *graphstore.Store, rel *relstore.Store, engine *temporal.Engine, validator *temporal.Validator, runner *checkpoint.Runner) *Facade {
	return &Facade{Graph: graph, Rel: rel, Engine: engine, Validator: validator, Runner: runner}
}

// UpsertEntity passes through to the graph store.
func (f *Facade) UpsertEntity(ctx context.Context, e model.Entity) error {
	return f.Graph.UpsertEntity(ctx, e)
}

// UpsertRelationship passes through to the graph store.
func (f *Facade) UpsertRelationship(ctx context.Context, r model.Relationship) error {
	return f.Graph.UpsertRelationship(ctx, r)
}

// BulkUpsertRelationships passes through to the graph store.
func (f *Facade) BulkUpsertRelationships(ctx context.Context, rels []model.Relationship, continueOnError bool, queueDepth int) ([]error, error) {
	return f.Graph.BulkUpsertRelationships(ctx, rels, continueOnError, queueDepth)
}

// Query passes through to the graph store's relationship query surface.
// RelationshipQuery also carries filters owned by the relational store's
// performance/session tables and by to-ref/domain attributes the graph
// store never persists (§4.5, §6.2); rather than silently ignore those and
// return an over-broad result, a query naming any of them is rejected here,
// before it ever reaches the graph store.
func (f *Facade) Query(ctx context.Context, q model.RelationshipQuery) ([]model.Relationship, error) {
	if bad := q.UnsupportedForGraphStore(); len(bad) > 0 {
		return nil, model.NewError(model.ErrInvalidParameter, "RelationshipQuery fields not supported by the graph store: "+strings.Join(bad, ", "))
	}
	return f.Graph.Query(ctx, q)
}

// FindPath passes through to the graph store's path search.
func (f *Facade) FindPath(ctx context.Context, q model.PathQuery) (*model.PathResult, error) {
	return f.Graph.TraversePath(ctx, q)
}

// Traverse performs a bounded-hop BFS expansion from the seed set,
// composed from repeated Query calls rather than a dedicated Cypher
// traversal, matching the facade's thin-pass-through charter (§6.2
// TraversalQuery).
func (f *Facade) Traverse(ctx context.Context, q model.TraversalQuery) ([]string, []model.Relationship, error) {
	maxHops := q.MaxHops
	if maxHops <= 0 {
		maxHops = 1
	}

	visited := map[string]bool{}
	for _, id := range q.SeedEntityIDs {
		visited[id] = true
	}
	frontier := append([]string(nil), q.SeedEntityIDs...)

	var allEdges []model.Relationship
	for hop := 0; hop < maxHops && len(frontier) > 0; hop++ {
		var next []string
		for _, seed := range frontier {
			edges, err := f.neighbors(ctx, seed, q.RelationshipTypes, q.Direction)
			if err != nil {
				return nil, nil, err
			}
			for _, e := range edges {
				allEdges = append(allEdges, e)
				other := e.ToEntityID
				if other == seed {
					other = e.FromEntityID
				}
				if other != "" && !visited[other] {
					visited[other] = true
					next = append(next, other)
				}
			}
		}
		frontier = next
	}

	out := make([]string, 0, len(visited))
	for id := range visited {
		out = append(out, id)
	}
	return out, allEdges, nil
}

// Impact runs a two-phase traversal and splits the result into direct
// (1-hop) versus cascading (further hops) effects (§6.2 ImpactQuery).
func (f *Facade) Impact(ctx context.Context, q model.ImpactQuery) (*model.ImpactResult, error) {
	maxHops := q.MaxHops
	if maxHops <= 0 {
		maxHops = 2
	}

	direct, directEdges, err := f.Traverse(ctx, model.TraversalQuery{
		SeedEntityIDs:     []string{q.ChangedEntityID},
		RelationshipTypes: q.RelationshipTypes,
		MaxHops:           1,
		Direction:         model.DirectionOutgoing,
	})
	if err != nil {
		return nil, err
	}

	all, allEdges, err := f.Traverse(ctx, model.TraversalQuery{
		SeedEntityIDs:     []string{q.ChangedEntityID},
		RelationshipTypes: q.RelationshipTypes,
		MaxHops:           maxHops,
		Direction:         model.DirectionOutgoing,
	})
	if err != nil {
		return nil, err
	}

	directSet := map[string]bool{q.ChangedEntityID: true}
	for _, id := range direct {
		directSet[id] = true
	}

	var cascading []string
	for _, id := range all {
		if !directSet[id] {
			cascading = append(cascading, id)
		}
	}

	return &model.ImpactResult{
		Direct:    direct,
		Cascading: cascading,
		Edges:     mergeEdges(directEdges, allEdges),
	}, nil
}

func mergeEdges(a, b []model.Relationship) []model.Relationship {
	seen := map[string]bool{}
	var out []model.Relationship
	for _, set := range [][]model.Relationship{a, b} {
		for _, e := range set {
			key := e.FromEntityID + "|" + e.ToEntityID + "|" + string(e.Type)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, e)
		}
	}
	return out
}

func (f *Facade) neighbors(ctx context.Context, entityID string, types []model.RelationshipType, dir model.Direction) ([]model.Relationship, error) {
	var out []model.Relationship
	typeFilters := types
	if len(typeFilters) == 0 {
		typeFilters = []model.RelationshipType{""}
	}

	queryOne := func(q model.RelationshipQuery) error {
		edges, err := f.Graph.Query(ctx, q)
		if err != nil {
			return err
		}
		out = append(out, edges...)
		return nil
	}

	for _, t := range typeFilters {
		if dir == model.DirectionIncoming || dir == model.DirectionBoth {
			if err := queryOne(model.RelationshipQuery{ToEntityID: entityID, Type: t}); err != nil {
				return nil, err
			}
		}
		if dir == "" || dir == model.DirectionOutgoing || dir == model.DirectionBoth {
			if err := queryOne(model.RelationshipQuery{FromEntityID: entityID, Type: t}); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}

// AppendVersion passes through to the temporal engine.
func (f *Facade) AppendVersion(ctx context.Context, entityID, hash string) (string, error) {
	return f.Engine.AppendVersion(ctx, entityID, hash)
}

// OpenEdge passes through to the temporal engine.
func (f *Facade) OpenEdge(ctx context.Context, from, to string, rt model.RelationshipType, ts time.Time, changeSetID string) error {
	return f.Engine.OpenEdge(ctx, from, to, rt, ts, changeSetID)
}

// CloseEdge passes through to the temporal engine.
func (f *Facade) CloseEdge(ctx context.Context, from, to string, rt model.RelationshipType, ts time.Time) error {
	return f.Engine.CloseEdge(ctx, from, to, rt, ts)
}

// MarkInactiveEdgesNotSeenSince passes through to the temporal engine.
func (f *Facade) MarkInactiveEdgesNotSeenSince(ctx context.Context, scanStart time.Time) (int64, error) {
	return f.Engine.MarkInactiveEdgesNotSeenSince(ctx, scanStart)
}

// RequestCheckpoint enqueues a checkpoint job through the runner rather
// than materializing it synchronously, so callers get at-least-once
// durability and retry for free (§4.7).
func (f *Facade) RequestCheckpoint(ctx context.Context, payload checkpoint.Payload) (string, error) {
	return f.Runner.Enqueue(ctx, payload)
}

// Validate passes through to the temporal history validator.
func (f *Facade) Validate(ctx context.Context, entityIDs []string, opts temporal.ValidateOptions) (temporal.Result, error) {
	return f.Validator.Validate(ctx, entityIDs, opts)
}

// SearchVector passes through to the graph store's vector index.
func (f *Facade) SearchVector(ctx context.Context, index string, embedding []float64, topK int) ([]graphstore.VectorHit, error) {
	return f.Graph.SearchVector(ctx, index, embedding, topK)
}

// UpsertVector passes through to the graph store's vector index.
func (f *Facade) UpsertVector(ctx context.Context, index, entityID string, embedding []float64) error {
	return f.Graph.UpsertVector(ctx, index, entityID, embedding)
}

// RecordTestResult passes through to the relational store.
func (f *Facade) RecordTestResult(ctx context.Context, r *relstore.TestResult) error {
	return f.Rel.UpsertTestResult(ctx, r)
}

// RecordChange passes through to the relational store.
func (f *Facade) RecordChange(ctx context.Context, c *relstore.Change) error {
	return f.Rel.RecordChange(ctx, c)
}

// Shutdown drains in-flight runner work up to timeout and closes the
// underlying stores. Logged, not fatal, on partial failure.
func (f *Facade) Shutdown(ctx context.Context, timeout time.Duration) {
	if f.Runner != nil {
		f.Runner.Shutdown()
		if !f.Runner.Idle(timeout) {
			logging.Warnf(logging.CategoryFacade, "shutdown: checkpoint runner still had in-flight work after %s", timeout)
		}
	}
	if f.Rel != nil {
		if err := f.Rel.Close(); err != nil {
			logging.Warnf(logging.CategoryFacade, "shutdown: close relational store: %v", err)
		}
	}
	if f.Graph != nil {
		if err := f.Graph.Close(ctx); err != nil {
			logging.Warnf(logging.CategoryFacade, "shutdown: close graph store: %v", err)
		}
	}
}
