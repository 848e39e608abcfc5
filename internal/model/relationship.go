package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// RelationshipType is the closed set of edge labels from §3.2.
type RelationshipType string

// Structural group.
const (
	RelContains RelationshipType = "CONTAINS"
	RelDefines  RelationshipType = "DEFINES"
	RelExports  RelationshipType = "EXPORTS"
	RelImports  RelationshipType = "IMPORTS"
)

// Code group.
const (
	RelCalls       RelationshipType = "CALLS"
	RelReferences  RelationshipType = "REFERENCES"
	RelImplements  RelationshipType = "IMPLEMENTS"
	RelExtends     RelationshipType = "EXTENDS"
	RelDependsOn   RelationshipType = "DEPENDS_ON"
	RelOverrides   RelationshipType = "OVERRIDES"
	RelReads       RelationshipType = "READS"
	RelWrites      RelationshipType = "WRITES"
	RelThrows      RelationshipType = "THROWS"
	RelTypeUses    RelationshipType = "TYPE_USES"
	RelReturnsType RelationshipType = "RETURNS_TYPE"
	RelParamType   RelationshipType = "PARAM_TYPE"
)

// Test group.
const (
	RelTests    RelationshipType = "TESTS"
	RelValidates RelationshipType = "VALIDATES"
)

// Spec group.
const (
	RelRequires       RelationshipType = "REQUIRES"
	RelImpacts        RelationshipType = "IMPACTS"
	RelImplementsSpec RelationshipType = "IMPLEMENTS_SPEC"
)

// Temporal group.
const (
	RelVersionOf       RelationshipType = "VERSION_OF"
	RelPreviousVersion RelationshipType = "PREVIOUS_VERSION"
	RelModifiedBy      RelationshipType = "MODIFIED_BY"
	RelCreatedIn       RelationshipType = "CREATED_IN"
	RelModifiedIn      RelationshipType = "MODIFIED_IN"
	RelRemovedIn       RelationshipType = "REMOVED_IN"
	RelOf              RelationshipType = "OF"
)

// Documentation group.
const (
	RelDescribesDomain   RelationshipType = "DESCRIBES_DOMAIN"
	RelBelongsToDomain   RelationshipType = "BELONGS_TO_DOMAIN"
	RelDocumentedBy      RelationshipType = "DOCUMENTED_BY"
	RelClusterMember     RelationshipType = "CLUSTER_MEMBER"
	RelDomainRelated     RelationshipType = "DOMAIN_RELATED"
	RelGovernedBy        RelationshipType = "GOVERNED_BY"
	RelDocumentsSection  RelationshipType = "DOCUMENTS_SECTION"
)

// Security group.
const (
	RelHasSecurityIssue    RelationshipType = "HAS_SECURITY_ISSUE"
	RelDependsOnVulnerable RelationshipType = "DEPENDS_ON_VULNERABLE"
	RelSecurityImpacts     RelationshipType = "SECURITY_IMPACTS"
)

// Performance group.
const (
	RelPerformanceImpact     RelationshipType = "PERFORMANCE_IMPACT"
	RelPerformanceRegression RelationshipType = "PERFORMANCE_REGRESSION"
	RelCoverageProvides      RelationshipType = "COVERAGE_PROVIDES"
)

// Session group.
const (
	RelSessionModified    RelationshipType = "SESSION_MODIFIED"
	RelSessionImpacted    RelationshipType = "SESSION_IMPACTED"
	RelSessionCheckpoint  RelationshipType = "SESSION_CHECKPOINT"
	RelBrokeIn            RelationshipType = "BROKE_IN"
	RelFixedIn            RelationshipType = "FIXED_IN"
	RelDependsOnChange    RelationshipType = "DEPENDS_ON_CHANGE"
)

// Checkpoint group.
const (
	RelCheckpointIncludes RelationshipType = "CHECKPOINT_INCLUDES"
	RelCreatedCheckpoint  RelationshipType = "CREATED_CHECKPOINT"
)

var validRelationshipTypes = map[RelationshipType]bool{
	RelContains: true, RelDefines: true, RelExports: true, RelImports: true,
	RelCalls: true, RelReferences: true, RelImplements: true, RelExtends: true,
	RelDependsOn: true, RelOverrides: true, RelReads: true, RelWrites: true,
	RelThrows: true, RelTypeUses: true, RelReturnsType: true, RelParamType: true,
	RelTests: true, RelValidates: true,
	RelRequires: true, RelImpacts: true, RelImplementsSpec: true,
	RelVersionOf: true, RelPreviousVersion: true, RelModifiedBy: true, RelCreatedIn: true,
	RelModifiedIn: true, RelRemovedIn: true, RelOf: true,
	RelDescribesDomain: true, RelBelongsToDomain: true, RelDocumentedBy: true,
	RelClusterMember: true, RelDomainRelated: true, RelGovernedBy: true,
	RelDocumentsSection: true,
	RelHasSecurityIssue: true, RelDependsOnVulnerable: true, RelSecurityImpacts: true,
	RelPerformanceImpact: true, RelPerformanceRegression: true, RelCoverageProvides: true,
	RelSessionModified: true, RelSessionImpacted: true, RelSessionCheckpoint: true,
	RelBrokeIn: true, RelFixedIn: true, RelDependsOnChange: true,
	RelCheckpointIncludes: true, RelCreatedCheckpoint: true,
}

// ValidRelationshipType reports whether rt belongs to the closed set.
func ValidRelationshipType(rt RelationshipType) bool { return validRelationshipTypes[rt] }

var structuralTypes = map[RelationshipType]bool{
	RelContains: true, RelDefines: true, RelExports: true, RelImports: true,
}

// IsStructural reports whether rt is one of the four structural relationship
// types the Structural Normalizer (C2) canonicalizes.
func IsStructural(rt RelationshipType) bool { return structuralTypes[rt] }

// EdgeKind is the closed set of fine-grained code-edge kinds (§3.2).
type EdgeKind string

const (
	KindCall          EdgeKind = "call"
	KindIdentifier    EdgeKind = "identifier"
	KindInstantiation EdgeKind = "instantiation"
	KindTypeUse       EdgeKind = "type"
	KindRead          EdgeKind = "read"
	KindWrite         EdgeKind = "write"
	KindOverride      EdgeKind = "override"
	KindInheritance   EdgeKind = "inheritance"
	KindReturn        EdgeKind = "return"
	KindParam         EdgeKind = "param"
	KindDecorator     EdgeKind = "decorator"
	KindAnnotation    EdgeKind = "annotation"
	KindThrow         EdgeKind = "throw"
	KindDependency    EdgeKind = "dependency"
)

// EdgeSource is the closed provenance set for a code edge.
type EdgeSource string

const (
	SourceAST         EdgeSource = "ast"
	SourceTypeChecker EdgeSource = "type-checker"
	SourceHeuristic   EdgeSource = "heuristic"
	SourceIndex       EdgeSource = "index"
	SourceRuntime     EdgeSource = "runtime"
	SourceLSP         EdgeSource = "lsp"
)

// Resolution is the closed resolution-method set.
type Resolution string

const (
	ResolutionDirect      Resolution = "direct"
	ResolutionViaImport   Resolution = "via-import"
	ResolutionTypeChecker Resolution = "type-checker"
	ResolutionHeuristic   Resolution = "heuristic"
)

// Scope is the closed scope set for a resolved/unresolved target.
type Scope string

const (
	ScopeLocal    Scope = "local"
	ScopeImported Scope = "imported"
	ScopeExternal Scope = "external"
	ScopeUnknown  Scope = "unknown"
)

// ResolutionState is the closed structural-resolution set.
type ResolutionState string

const (
	ResolutionStateResolved   ResolutionState = "resolved"
	ResolutionStateUnresolved ResolutionState = "unresolved"
	ResolutionStatePartial    ResolutionState = "partial"
)

func ValidResolutionState(s ResolutionState) bool {
	switch s {
	case ResolutionStateResolved, ResolutionStateUnresolved, ResolutionStatePartial:
		return true
	}
	return false
}

func ValidScope(s Scope) bool {
	switch s {
	case ScopeLocal, ScopeImported, ScopeExternal, ScopeUnknown:
		return true
	}
	return false
}

// ImportType is the closed structural import-kind set (§3.2).
type ImportType string

const (
	ImportDefault    ImportType = "default"
	ImportNamed      ImportType = "named"
	ImportNamespace  ImportType = "namespace"
	ImportWildcard   ImportType = "wildcard"
	ImportSideEffect ImportType = "side-effect"
)

func ValidImportType(t ImportType) bool {
	switch t {
	case ImportDefault, ImportNamed, ImportNamespace, ImportWildcard, ImportSideEffect:
		return true
	}
	return false
}

// Severity is the closed severity set used by security/performance edges.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

func ValidSeverity(s Severity) bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Trend is the closed trend set used by performance edges.
type Trend string

const (
	TrendRegression Trend = "regression"
	TrendImprovement Trend = "improvement"
	TrendNeutral    Trend = "neutral"
)

func ValidTrend(t Trend) bool {
	switch t {
	case TrendRegression, TrendImprovement, TrendNeutral:
		return true
	}
	return false
}

// TargetKind discriminates the Target tagged union (§9 design notes).
type TargetKind string

const (
	TargetEntity      TargetKind = "entity"
	TargetFileSymbol  TargetKind = "fileSymbol"
	TargetExternal    TargetKind = "external"
	TargetPlaceholder TargetKind = "placeholder"
)

// Target is the tagged union a relationship endpoint resolves to. Exactly
// one of the Kind-specific fields is meaningful at a time; Kind decides
// which.
type Target struct {
	TKind      TargetKind `json:"kind"`
	EntityID   string     `json:"id,omitempty"`
	File       string     `json:"file,omitempty"`
	Symbol     string     `json:"symbol,omitempty"`
	Name       string     `json:"name,omitempty"`
	PlaceKind  string     `json:"placeholderKind,omitempty"`
}

func (t Target) Kind() TargetKind { return t.TKind }

// EntityRef builds a Target pointing at an already-materialized entity.
func EntityRef(id string) Target { return Target{TKind: TargetEntity, EntityID: id} }

// FileSymbolRef builds a Target pointing at a symbol by file+name, used
// when the file exists but the symbol hasn't been indexed by id yet.
func FileSymbolRef(file, symbol string) Target {
	return Target{TKind: TargetFileSymbol, File: file, Symbol: symbol}
}

// ExternalRef builds a Target for a name resolved outside the repository
// (e.g. a third-party package export).
func ExternalRef(name string) Target { return Target{TKind: TargetExternal, Name: name} }

// PlaceholderRef builds a synthetic not-yet-resolved Target, e.g.
// "import:./util:*" or "class:Base".
func PlaceholderRef(placeholderKind, name string) Target {
	return Target{TKind: TargetPlaceholder, PlaceKind: placeholderKind, Name: name}
}

// CanonicalString renders the Target the way canonical-id hashing and
// placeholder ids expect: "file:<rel>:<name>", "import:<mod>:<name>",
// "external:<name>", or the bare entity id.
func (t Target) CanonicalString() string {
	switch t.TKind {
	case TargetEntity:
		return t.EntityID
	case TargetFileSymbol:
		return "file:" + t.File + ":" + t.Symbol
	case TargetExternal:
		return "external:" + t.Name
	case TargetPlaceholder:
		return t.PlaceKind + ":" + t.Name
	default:
		return ""
	}
}

// Evidence is one corroborating observation backing a relationship.
type Evidence struct {
	Source   EdgeSource `json:"source"`
	Location Location   `json:"location"`
	Note     string     `json:"note,omitempty"`
}

// SiteLocation is a single reference/call site contributing to an edge.
type SiteLocation struct {
	Path   string `json:"path"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// Relationship is the single struct backing every edge type in the closed
// set; fields not applicable to a given Type are left zero-valued. The
// "code-relationship carried attributes" from §3.2 live directly on the
// struct rather than in Metadata so closed-set validation can run at
// construction time.
type Relationship struct {
	ID           string                 `json:"id"`
	FromEntityID string                 `json:"fromEntityId"`
	ToEntityID   string                 `json:"toEntityId"`
	Type         RelationshipType       `json:"type"`
	Created      time.Time              `json:"created"`
	LastModified time.Time              `json:"lastModified"`
	Version      int                    `json:"version"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`

	SiteID   string     `json:"siteId,omitempty"`
	SiteHash string     `json:"siteHash,omitempty"`
	Evidence []Evidence `json:"evidence,omitempty"`
	Locations []SiteLocation `json:"locations,omitempty"`
	Sites    []SiteLocation `json:"sites,omitempty"`

	ValidFrom time.Time  `json:"validFrom"`
	ValidTo   *time.Time `json:"validTo,omitempty"`

	// Code-relationship attributes (subset populated depending on Type).
	EdgeKind        EdgeKind        `json:"kind,omitempty"`
	Source          EdgeSource      `json:"source,omitempty"`
	Resolution      Resolution      `json:"resolution,omitempty"`
	Scope           Scope           `json:"scope,omitempty"`
	Confidence      float64         `json:"confidence"`
	Inferred        bool            `json:"inferred"`
	Resolved        bool            `json:"resolved"`
	Active          bool            `json:"active"`
	OccurrencesScan   int           `json:"occurrencesScan,omitempty"`
	OccurrencesTotal  int           `json:"occurrencesTotal,omitempty"`
	OccurrencesRecent int           `json:"occurrencesRecent,omitempty"`
	Location        Location        `json:"location,omitempty"`

	AccessPath      string  `json:"accessPath,omitempty"`
	Callee          string  `json:"callee,omitempty"`
	Operator        string  `json:"operator,omitempty"`
	Arity           int     `json:"arity,omitempty"`
	Awaited         bool    `json:"awaited,omitempty"`
	IsMethod        bool    `json:"isMethod,omitempty"`
	ReceiverType    string  `json:"receiverType,omitempty"`
	DynamicDispatch bool    `json:"dynamicDispatch,omitempty"`

	ImportType     ImportType `json:"importType,omitempty"`
	ImportDepth    int        `json:"importDepth,omitempty"`
	ImportAlias    string     `json:"importAlias,omitempty"`
	IsNamespace    bool       `json:"isNamespace,omitempty"`
	IsReExport     bool       `json:"isReExport,omitempty"`
	ReExportTarget string     `json:"reExportTarget,omitempty"`

	Language        string          `json:"language,omitempty"`
	SymbolKind      string          `json:"symbolKind,omitempty"`
	ModulePath      string          `json:"modulePath,omitempty"`
	ResolutionState ResolutionState `json:"resolutionState,omitempty"`

	DataFlowID     string `json:"dataFlowId,omitempty"`
	Ambiguous      bool   `json:"ambiguous,omitempty"`
	CandidateCount int    `json:"candidateCount,omitempty"`

	FromRef Target `json:"fromRef"`
	ToRef   Target `json:"toRef"`

	// UsedTypeChecker records whether type-checker resolution contributed
	// to this edge; consumed by the scorer (C5) as the usedTypeChecker
	// signal and surfaced in metadata/telemetry.
	UsedTypeChecker bool `json:"usedTypeChecker,omitempty"`

	// CheckpointStatus and ChangeSetID are used by SESSION_CHECKPOINT and
	// session-scoped edges respectively.
	CheckpointStatus string `json:"checkpointStatus,omitempty"`
	ChangeSetID      string `json:"changeSetId,omitempty"`
	AnnotatedAt      *time.Time `json:"annotatedAt,omitempty"`
	CheckpointID     string     `json:"checkpointId,omitempty"`

	// LastSeenAt drives markInactiveEdgesNotSeenSince (§4.6).
	LastSeenAt time.Time `json:"lastSeenAt"`
	FirstSeenAt time.Time `json:"firstSeenAt"`
}

// legacyAliasKeys are pruned from metadata during normalization (§4.1).
var legacyAliasKeys = []string{"alias", "module", "moduleSpecifier", "sourceModule", "importKind", "lang", "languageId", "reExport"}

// PruneLegacyAliases removes legacy metadata keys in place, returning the
// same map for chaining.
func PruneLegacyAliases(meta map[string]interface{}) map[string]interface{} {
	if meta == nil {
		return meta
	}
	for _, k := range legacyAliasKeys {
		delete(meta, k)
	}
	return meta
}

// CanonicalID computes the deterministic, collision-resistant relationship
// id from (fromEntityId, toEntityId, type, salient attributes), prefixed so
// the temporal layer can distinguish canonical structural/code relationship
// ids from version/checkpoint ids. Re-extracting the same logical edge
// always yields the same id (Testable Property 1).
func CanonicalID(fromEntityID, toEntityID string, rt RelationshipType, toRefCanonical string) string {
	h := sha256.New()
	h.Write([]byte(fromEntityID))
	h.Write([]byte{0})
	h.Write([]byte(rt))
	h.Write([]byte{0})
	h.Write([]byte(toEntityID))
	h.Write([]byte{0})
	h.Write([]byte(toRefCanonical))
	sum := h.Sum(nil)
	return "time-rel_" + hex.EncodeToString(sum[:16])
}

// SiteHash computes the deterministic site-correlation hash per §9 open
// question (b): a hash of (fromEntityId, toEntityId, type, location.path,
// location.line, location.column, accessPath).
func SiteHash(fromEntityID, toEntityID string, rt RelationshipType, loc SiteLocation, accessPath string) string {
	h := sha256.New()
	parts := []string{fromEntityID, toEntityID, string(rt), loc.Path, itoa(loc.Line), itoa(loc.Column), accessPath}
	h.Write([]byte(strings.Join(parts, "\x00")))
	sum := h.Sum(nil)
	return hex.EncodeToString(sum[:16])
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// DataFlowID computes the correlation key shared by reads/writes of the same
// local binding inside one enclosing symbol (§4.2.3).
func DataFlowID(filePath, enclosingSymbolID, varName string) string {
	h := sha256.New()
	h.Write([]byte(filePath))
	h.Write([]byte{'|'})
	h.Write([]byte(enclosingSymbolID))
	h.Write([]byte{'|'})
	h.Write([]byte(varName))
	sum := hex.EncodeToString(h.Sum(nil))
	return "df_" + sum[:12]
}

// ClampConfidence clamps c into [0,1].
func ClampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
