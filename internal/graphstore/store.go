// Package graphstore implements the Graph Store Adapter (C6): idempotent
// property-graph persistence of entities and relationships over Neo4j,
// structural-field extraction/backfill, bulk-write telemetry, and vector
// index lifecycle management, per §4.4.
package graphstore

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/logging"
	"github.com/codegraph/knowledgegraph/internal/model"
	"github.com/codegraph/knowledgegraph/internal/telemetry"
)

// Store is the Neo4j-backed Graph Store Adapter.
type Store struct {
	driver neo4j.DriverWithContext
	db     string
	cfg    config.GraphStoreConfig
	writes *telemetry.BulkWriter
}

// New connects to Neo4j and verifies connectivity, following the teacher
// pack's connect-then-verify idiom.
func New(ctx context.Context, cfg config.GraphStoreConfig) (*Store, error) {
	driver, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.Username, cfg.Password, ""))
	if err != nil {
		return nil, model.WrapError(model.ErrNotInitialized, "create neo4j driver", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		return nil, model.WrapError(model.ErrNotInitialized, "connect to neo4j", err)
	}

	tcfg := telemetry.Config{
		SlowBatchThresholdMs:   cfg.SlowBatchThresholdMs,
		WarnOnLargeBatchSize:   cfg.WarnOnLargeBatchSize,
		QueueDepthWarningLimit: cfg.QueueDepthWarningLimit,
		HistoryLimit:           cfg.HistoryLimit,
	}
	if tcfg.HistoryLimit == 0 {
		tcfg = telemetry.DefaultConfig()
	}

	return &Store{driver: driver, db: cfg.Database, cfg: cfg, writes: telemetry.New(tcfg)}, nil
}

// Close releases the underlying driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// Telemetry exposes the running bulk-write metrics.
func (s *Store) Telemetry() telemetry.Metrics { return s.writes.Snapshot() }

// SubscribeTelemetry registers a bulk-write observer (§4.4).
func (s *Store) SubscribeTelemetry(sub telemetry.Subscriber) { s.writes.Subscribe(sub) }

func (s *Store) session(ctx context.Context, mode neo4j.AccessMode) neo4j.SessionWithContext {
	return s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: mode, DatabaseName: s.db})
}

// EnsureSchema creates the documented uniqueness constraints and indexes
// (§6.3). CREATE CONSTRAINT IF NOT EXISTS makes this idempotent; an
// "already exists" error is treated as success per §7.
func (s *Store) EnsureSchema(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryGraphStore, "EnsureSchema")
	defer timer.Stop()

	labels := []string{
		"Entity", "File", "Directory", "Module", "Symbol", "FunctionSymbol",
		"ClassSymbol", "InterfaceSymbol", "Test", "Specification", "Documentation",
		"Version", "Checkpoint", "Session", "SecurityIssue", "Vulnerability",
	}

	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	for _, label := range labels {
		q := fmt.Sprintf("CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE", label)
		if _, err := sess.Run(ctx, q, nil); err != nil {
			return model.WrapError(model.ErrQueryFailed, "create constraint for "+label, err)
		}
	}

	indexQueries := []string{
		"CREATE INDEX entity_path IF NOT EXISTS FOR (n:Entity) ON (n.path)",
		"CREATE INDEX entity_type IF NOT EXISTS FOR (n:Entity) ON (n.type)",
		"CREATE INDEX entity_last_modified IF NOT EXISTS FOR (n:Entity) ON (n.lastModified)",
	}
	for _, q := range indexQueries {
		if _, err := sess.Run(ctx, q, nil); err != nil {
			return model.WrapError(model.ErrQueryFailed, "create index", err)
		}
	}

	return s.ensureVectorIndexes(ctx, sess)
}

// ListEntityIDs returns every Entity id (only the first limit when limit > 0)
// from a single query, newest lastModified first.
// Used by the validator CLI when the operator doesn't supply an explicit
// entity list.
func (s *Store) ListEntityIDs(ctx context.Context, limit int) ([]string, error) {
	sess := s.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	cypher := "MATCH (n:Entity) RETURN n.id as id ORDER BY n.lastModified DESC"
	params := map[string]interface{}{}
	if limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = limit
	}

	result, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, cypher, params)
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
		return nil, model.WrapError(model.ErrQueryFailed, "list entity ids", err)
	}
	return result.([]string), nil
}

var vectorIndexNames = []string{"code_embeddings", "documentation_embeddings", "integration_test_embeddings"}
var vectorIndexLabels = map[string]string{
	"code_embeddings":             "Symbol",
	"documentation_embeddings":    "Documentation",
	"integration_test_embeddings": "Test",
}

func (s *Store) ensureVectorIndexes(ctx context.Context, sess neo4j.SessionWithContext) error {
	dims := s.cfg.VectorDimensions
	if dims == 0 {
		dims = 1536
	}
	for _, name := range vectorIndexNames {
		q := fmt.Sprintf(
			`CALL db.index.vector.createNodeIndex($name, $label, 'embedding', $dims, 'cosine')`,
		)
		_, err := sess.Run(ctx, q, map[string]interface{}{
			"name": name, "label": vectorIndexLabels[name], "dims": dims,
		})
		if err != nil && !isAlreadyExists(err) {
			return model.WrapError(model.ErrQueryFailed, "create vector index "+name, err)
		}
	}
	return nil
}

func isAlreadyExists(err error) bool {
	// Neo4j reports "already exists" failures with an EquivalentSchemaRuleAlreadyExists
	// or similar code; treated as success per §7 ("index-already-exists is
	// treated as success").
	return err != nil && containsFold(err.Error(), "already exists")
}

func containsFold(s, sub string) bool {
	return len(s) >= len(sub) && indexFold(s, sub) >= 0
}

func indexFold(s, sub string) int {
	ls, lsub := toLower(s), toLower(sub)
	for i := 0; i+len(lsub) <= len(ls); i++ {
		if ls[i:i+len(lsub)] == lsub {
			return i
		}
	}
	return -1
}

func toLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + ('a' - 'A')
		}
	}
	return string(b)
}

// UpsertEntity idempotently MERGEs an entity node by id (§4.4).
func (s *Store) UpsertEntity(ctx context.Context, e model.Entity) error {
	timer := logging.StartTimer(logging.CategoryGraphStore, "UpsertEntity")
	defer timer.Stop()

	base := e.Identity()
	label := string(e.Kind())

	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	q := fmt.Sprintf(`
		MERGE (n:Entity:%s {id: $id})
		SET n.path = $path, n.hash = $hash, n.language = $language,
		    n.created = $created, n.lastModified = $lastModified, n.type = $type
	`, label)
	params := map[string]interface{}{
		"id": base.ID, "path": base.Path, "hash": base.Hash, "language": base.Language,
		"created": base.Created.Format(time.RFC3339Nano), "lastModified": base.LastModified.Format(time.RFC3339Nano),
		"type": label,
	}
	if v, ok := e.(*model.VersionEntity); ok {
		q += `, n.entityId = $entityId, n.timestamp = $timestamp`
		params["entityId"] = v.EntityID
		params["timestamp"] = v.Timestamp.Format(time.RFC3339Nano)
	}

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, q, params)
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "upsert entity "+base.ID, err)
	}
	return nil
}

// UpsertRelationship idempotently MERGEs an edge by its canonical id,
// persisting the structural fields (§4.4) both as columns and inside a
// stable-stringified metadata blob.
func (s *Store) UpsertRelationship(ctx context.Context, r model.Relationship) error {
	timer := logging.StartTimer(logging.CategoryGraphStore, "UpsertRelationship")
	defer timer.Stop()

	fields := ExtractStructuralFields(r)

	sess := s.session(ctx, neo4j.AccessModeWrite)
	defer sess.Close(ctx)

	q := fmt.Sprintf(`
		MATCH (a:Entity {id: $fromId})
		MERGE (b:Entity {id: $toId})
		MERGE (a)-[rel:%s {canonicalId: $relId}]->(b)
		SET rel += $fields
	`, string(r.Type))

	params := map[string]interface{}{
		"fromId": r.FromEntityID,
		"toId":   r.ToEntityID,
		"relId":  r.ID,
		"fields": structuralFieldsToParams(fields, r),
	}

	_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		return tx.Run(ctx, q, params)
	})
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "upsert relationship "+r.ID, err)
	}
	return nil
}

// BulkUpsertRelationships writes a batch of relationships, timed and
// recorded via the shared telemetry wrapper (§4.4 "Transactional
// semantics"). continueOnError=false opens one transaction for the whole
// batch; true runs each edge independently and reports in-band errors.
func (s *Store) BulkUpsertRelationships(ctx context.Context, rels []model.Relationship, continueOnError bool, queueDepth int) ([]error, error) {
	mode := telemetry.ModeTransaction
	if continueOnError {
		mode = telemetry.ModeIndependent
	}
	handle := s.writes.Begin(len(rels), continueOnError, mode, queueDepth)

	if !continueOnError {
		sess := s.session(ctx, neo4j.AccessModeWrite)
		defer sess.Close(ctx)

		_, err := sess.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
			for _, r := range rels {
				if txErr := s.upsertInTx(ctx, tx, r); txErr != nil {
					return nil, txErr
				}
			}
			return nil, nil
		})
		handle.Finish(err == nil, len(rels), err)
		if err != nil {
			return nil, model.WrapError(model.ErrQueryFailed, "bulk upsert transaction", err)
		}
		return nil, nil
	}

	errs := make([]error, len(rels))
	var anyErr bool
	for i, r := range rels {
		if err := s.UpsertRelationship(ctx, r); err != nil {
			errs[i] = err
			anyErr = true
		}
	}
	handle.Finish(!anyErr, len(rels), nil)
	return errs, nil
}

func (s *Store) upsertInTx(ctx context.Context, tx neo4j.ManagedTransaction, r model.Relationship) error {
	fields := ExtractStructuralFields(r)
	q := fmt.Sprintf(`
		MATCH (a:Entity {id: $fromId})
		MERGE (b:Entity {id: $toId})
		MERGE (a)-[rel:%s {canonicalId: $relId}]->(b)
		SET rel += $fields
	`, string(r.Type))
	params := map[string]interface{}{
		"fromId": r.FromEntityID, "toId": r.ToEntityID, "relId": r.ID,
		"fields": structuralFieldsToParams(fields, r),
	}
	_, err := tx.Run(ctx, q, params)
	return err
}

// Query executes a RelationshipQuery against the graph. It applies every
// filter with a persisted Cypher analogue (§4.4's structural fields); the
// remaining documented filters belong to the relational store's own tables
// or to attributes the graph store never persists, and are the facade's
// responsibility to reject before a query reaches here.
func (s *Store) Query(ctx context.Context, q model.RelationshipQuery) ([]model.Relationship, error) {
	timer := logging.StartTimer(logging.CategoryGraphStore, "Query")
	defer timer.Stop()

	sess := s.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	cypher, params := buildQueryCypher(q)

	result, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		var out []model.Relationship
		for res.Next(ctx) {
			rec := res.Record()
			rel := relationshipFromRecord(rec)
			out = append(out, rel)
		}
		return out, res.Err()
	})
	if err != nil {
		return nil, model.WrapError(model.ErrQueryFailed, "relationship query", err)
	}
	return result.([]model.Relationship), nil
}

// buildQueryCypher renders q into a MATCH ... WHERE ... RETURN statement
// plus its bound parameters.
func buildQueryCypher(q model.RelationshipQuery) (string, map[string]interface{}) {
	cypher := "MATCH (a:Entity)-[rel]->(b:Entity) WHERE 1=1"
	params := map[string]interface{}{}

	eq := func(cond bool, clause, param string, value interface{}) {
		if cond {
			cypher += " AND " + clause
			params[param] = value
		}
	}

	eq(q.FromEntityID != "", "a.id = $fromId", "fromId", q.FromEntityID)
	eq(q.ToEntityID != "", "b.id = $toId", "toId", q.ToEntityID)
	eq(q.Type != "", "type(rel) = $type", "type", string(q.Type))
	if len(q.Types) > 0 {
		types := make([]string, len(q.Types))
		for i, t := range q.Types {
			types[i] = string(t)
		}
		cypher += " AND type(rel) IN $types"
		params["types"] = types
	}
	if len(q.EntityTypes) > 0 {
		kinds := make([]string, len(q.EntityTypes))
		for i, k := range q.EntityTypes {
			kinds[i] = string(k)
		}
		cypher += " AND (a.type IN $entityTypes OR b.type IN $entityTypes)"
		params["entityTypes"] = kinds
	}

	eq(!q.Since.IsZero(), "rel.lastSeenAt >= $since", "since", q.Since.Format(time.RFC3339Nano))
	eq(!q.Until.IsZero(), "rel.lastSeenAt <= $until", "until", q.Until.Format(time.RFC3339Nano))
	eq(!q.FirstSeenSince.IsZero(), "rel.firstSeenAt >= $firstSeenSince", "firstSeenSince", q.FirstSeenSince.Format(time.RFC3339Nano))
	eq(!q.LastSeenSince.IsZero(), "rel.lastSeenAt >= $lastSeenSince", "lastSeenSince", q.LastSeenSince.Format(time.RFC3339Nano))

	eq(q.Resolution != "", "rel.resolution = $resolution", "resolution", string(q.Resolution))
	eq(q.Scope != "", "rel.scope = $scope", "scope", string(q.Scope))
	eq(q.Source != "", "rel.source = $source", "source", string(q.Source))
	eq(q.EdgeKind != "", "rel.kind = $edgeKind", "edgeKind", string(q.EdgeKind))

	eq(q.ConfidenceMin != nil, "rel.confidence >= $confidenceMin", "confidenceMin", derefFloat(q.ConfidenceMin))
	eq(q.ConfidenceMax != nil, "rel.confidence <= $confidenceMax", "confidenceMax", derefFloat(q.ConfidenceMax))

	eq(q.Inferred != nil, "rel.inferred = $inferred", "inferred", derefBool(q.Inferred))
	eq(q.Resolved != nil, "rel.resolved = $resolved", "resolved", derefBool(q.Resolved))
	eq(q.Active != nil, "rel.active = $active", "active", derefBool(q.Active))

	eq(q.ArityMin != nil, "rel.arity >= $arityMin", "arityMin", derefInt(q.ArityMin))
	eq(q.ArityMax != nil, "rel.arity <= $arityMax", "arityMax", derefInt(q.ArityMax))
	eq(q.Awaited != nil, "rel.awaited = $awaited", "awaited", derefBool(q.Awaited))
	eq(q.IsMethod != nil, "rel.isMethod = $isMethod", "isMethod", derefBool(q.IsMethod))
	eq(q.Callee != "", "rel.callee = $callee", "callee", q.Callee)

	eq(q.ImportDepthMin != nil, "rel.importDepth >= $importDepthMin", "importDepthMin", derefInt(q.ImportDepthMin))
	eq(q.ImportDepthMax != nil, "rel.importDepth <= $importDepthMax", "importDepthMax", derefInt(q.ImportDepthMax))
	eq(q.ImportAlias != "", "rel.importAlias = $importAlias", "importAlias", q.ImportAlias)
	eq(q.ImportType != "", "rel.importType = $importType", "importType", string(q.ImportType))
	eq(q.IsNamespace != nil, "rel.isNamespace = $isNamespace", "isNamespace", derefBool(q.IsNamespace))

	eq(q.Language != "", "rel.language = $language", "language", q.Language)
	eq(q.SymbolKind != "", "rel.symbolKind = $symbolKind", "symbolKind", q.SymbolKind)

	eq(q.ModulePath != "", "rel.modulePath = $modulePath", "modulePath", q.ModulePath)
	eq(q.ModulePathPrefix != "", "rel.modulePath STARTS WITH $modulePathPrefix", "modulePathPrefix", q.ModulePathPrefix)

	cypher += " RETURN a.id as fromId, b.id as toId, type(rel) as relType, rel as rel"
	if q.Offset > 0 {
		cypher += " SKIP $offset"
		params["offset"] = q.Offset
	}
	if q.Limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = q.Limit
	}

	return cypher, params
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefBool(p *bool) bool {
	if p == nil {
		return false
	}
	return *p
}

func relationshipFromRecord(rec *neo4j.Record) model.Relationship {
	var rel model.Relationship
	if v, ok := rec.Get("fromId"); ok {
		rel.FromEntityID, _ = v.(string)
	}
	if v, ok := rec.Get("toId"); ok {
		rel.ToEntityID, _ = v.(string)
	}
	if v, ok := rec.Get("relType"); ok {
		rel.Type, _ = v.(model.RelationshipType)
		if rel.Type == "" {
			if s, ok := v.(string); ok {
				rel.Type = model.RelationshipType(s)
			}
		}
	}
	return rel
}

// TraversePath runs a bounded-depth Cypher shortestPath query (§6.2
// PathQuery), mirroring the teacher's BFS-over-KnowledgeLink idiom but
// delegated to Neo4j's native path search.
func (s *Store) TraversePath(ctx context.Context, q model.PathQuery) (*model.PathResult, error) {
	timer := logging.StartTimer(logging.CategoryGraphStore, "TraversePath")
	defer timer.Stop()

	maxDepth := q.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 5
	}

	sess := s.session(ctx, neo4j.AccessModeRead)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf(
		`MATCH path = shortestPath((a:Entity {id: $start})-[*..%d]->(b:Entity {id: $end}))
		 RETURN [n in nodes(path) | n.id] as nodeIds, length(path) as len`, maxDepth)
	params := map[string]interface{}{"start": q.StartEntityID, "end": q.EndEntityID}

	result, err := sess.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		if res.Next(ctx) {
			rec := res.Record()
			var entities []string
			if v, ok := rec.Get("nodeIds"); ok {
				if list, ok := v.([]interface{}); ok {
					for _, e := range list {
						if s, ok := e.(string); ok {
							entities = append(entities, s)
						}
					}
				}
			}
			length := 0
			if v, ok := rec.Get("len"); ok {
				if n, ok := v.(int64); ok {
					length = int(n)
				}
			}
			return &model.PathResult{TotalLength: length, Entities: entities}, res.Err()
		}
		return nil, model.NewError(model.ErrQueryFailed, "no path found")
	})
	if err != nil {
		return nil, model.WrapError(model.ErrQueryFailed, "path traversal", err)
	}
	return result.(*model.PathResult), nil
}
