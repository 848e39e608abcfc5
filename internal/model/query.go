package model

import "time"

// RelationshipQuery is the filter surface exposed to downstream analyses
// (§6.2). Every field is optional; zero-value fields are not applied.
type RelationshipQuery struct {
	FromEntityID string
	ToEntityID   string

	Type        RelationshipType
	Types       []RelationshipType
	EntityTypes []EntityKind

	Since time.Time
	Until time.Time

	Limit  int
	Offset int

	Resolution Resolution
	Scope      Scope
	Source     EdgeSource
	EdgeKind   EdgeKind

	ConfidenceMin *float64
	ConfidenceMax *float64

	Inferred *bool
	Resolved *bool
	Active   *bool

	FirstSeenSince time.Time
	LastSeenSince  time.Time

	ToRefKind   TargetKind
	ToRefFile   string
	ToRefSymbol string
	ToRefName   string

	SiteHash string

	ArityMin *int
	ArityMax *int
	Awaited  *bool
	IsMethod *bool
	Operator string
	Callee   string

	ImportDepthMin *int
	ImportDepthMax *int
	ImportAlias    string
	ImportType     ImportType
	IsNamespace    *bool
	Language       string
	SymbolKind     string

	ModulePath       string
	ModulePathPrefix string
	DomainPath       string
	DomainPathPrefix string

	MetricID      string
	Environment   string
	Severity      Severity
	Trend         Trend
	DetectedSince time.Time
	DetectedUntil time.Time

	SessionID          string
	SequenceNumberMin  *int64
	SequenceNumberMax  *int64
	Actor              string
	ImpactSeverity     Severity
	StateTransitionTo  string
	SessionWindowSince time.Time
	SessionWindowUntil time.Time
}

// UnsupportedForGraphStore reports which of q's set filters have no
// representation in the graph store's persisted relationship properties --
// the to-ref fields, site hash, operator, domain path, and the
// performance/session fields that belong to the relational store's own
// tables (§4.5) rather than a code-relationship edge. Callers should reject
// a query listing any of these rather than silently dropping them.
func (q RelationshipQuery) UnsupportedForGraphStore() []string {
	var bad []string
	add := func(cond bool, name string) {
		if cond {
			bad = append(bad, name)
		}
	}

	add(q.ToRefKind != "", "toRefKind")
	add(q.ToRefFile != "", "toRefFile")
	add(q.ToRefSymbol != "", "toRefSymbol")
	add(q.ToRefName != "", "toRefName")
	add(q.SiteHash != "", "siteHash")
	add(q.Operator != "", "operator")
	add(q.DomainPath != "", "domainPath")
	add(q.DomainPathPrefix != "", "domainPathPrefix")

	add(q.MetricID != "", "metricId")
	add(q.Environment != "", "environment")
	add(q.Severity != "", "severity")
	add(q.Trend != "", "trend")
	add(!q.DetectedSince.IsZero(), "detectedSince")
	add(!q.DetectedUntil.IsZero(), "detectedUntil")

	add(q.SessionID != "", "sessionId")
	add(q.SequenceNumberMin != nil, "sequenceNumberMin")
	add(q.SequenceNumberMax != nil, "sequenceNumberMax")
	add(q.Actor != "", "actor")
	add(q.ImpactSeverity != "", "impactSeverity")
	add(q.StateTransitionTo != "", "stateTransitionTo")
	add(!q.SessionWindowSince.IsZero(), "sessionWindowSince")
	add(!q.SessionWindowUntil.IsZero(), "sessionWindowUntil")

	return bad
}

// Direction is the traversal direction for path and link queries.
type Direction string

const (
	DirectionOutgoing Direction = "outgoing"
	DirectionIncoming Direction = "incoming"
	DirectionBoth     Direction = "both"
)

// PathQuery requests a path between two entities.
type PathQuery struct {
	StartEntityID     string
	EndEntityID       string
	RelationshipTypes []RelationshipType
	MaxDepth          int
	Direction         Direction
}

// PathResult is the outcome of a PathQuery.
type PathResult struct {
	Path              []Relationship
	TotalLength       int
	RelationshipTypes []RelationshipType
	Entities          []string
}

// TraversalQuery requests a bounded-hop expansion from a seed set.
type TraversalQuery struct {
	SeedEntityIDs     []string
	RelationshipTypes []RelationshipType
	MaxHops           int
	Direction         Direction
}

// ImpactResult splits a traversal into direct (1-hop) and cascading
// (further hops) effects, the shape consumed by downstream impact analysis
// (§6.2).
type ImpactResult struct {
	Direct    []string
	Cascading []string
	Edges     []Relationship
}

// ImpactQuery requests an impact analysis starting from a changed entity.
type ImpactQuery struct {
	ChangedEntityID   string
	RelationshipTypes []RelationshipType
	MaxHops           int
}
