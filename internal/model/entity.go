// Package model defines the tagged-variant entity and relationship types
// that make up the code knowledge graph, along with the closed-set
// vocabularies and invariant-enforcing constructors the rest of the core
// depends on.
package model

import "time"

// EntityKind discriminates the Entity sum type.
type EntityKind string

const (
	KindFile            EntityKind = "File"
	KindDirectory       EntityKind = "Directory"
	KindModule          EntityKind = "Module"
	KindFunctionSymbol   EntityKind = "FunctionSymbol"
	KindClassSymbol      EntityKind = "ClassSymbol"
	KindInterfaceSymbol  EntityKind = "InterfaceSymbol"
	KindTypeAliasSymbol  EntityKind = "TypeAliasSymbol"
	KindSymbol          EntityKind = "Symbol" // variable/property/method/unknown kinds share this
	KindTest            EntityKind = "Test"
	KindSpecification   EntityKind = "Specification"
	KindDocumentation   EntityKind = "Documentation"
	KindSecurityIssue   EntityKind = "SecurityIssue"
	KindVulnerability   EntityKind = "Vulnerability"
	KindBusinessDomain  EntityKind = "BusinessDomain"
	KindSemanticCluster EntityKind = "SemanticCluster"
	KindVersion         EntityKind = "Version"
	KindCheckpoint      EntityKind = "Checkpoint"
	KindSession         EntityKind = "Session"
)

// SymbolKind is the closed set of symbol sub-kinds named in §3.1.
type SymbolKind string

const (
	SymbolFunction  SymbolKind = "function"
	SymbolClass     SymbolKind = "class"
	SymbolInterface SymbolKind = "interface"
	SymbolTypeAlias SymbolKind = "typeAlias"
	SymbolVariable  SymbolKind = "variable"
	SymbolProperty  SymbolKind = "property"
	SymbolMethod    SymbolKind = "method"
	SymbolUnknown   SymbolKind = "unknown"
)

// Visibility is the closed visibility set for symbols.
type Visibility string

const (
	VisibilityPublic    Visibility = "public"
	VisibilityPrivate   Visibility = "private"
	VisibilityProtected Visibility = "protected"
)

// Location pinpoints a symbol's source span.
type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
	Start  int `json:"start"`
	End    int `json:"end"`
}

// Base carries the fields every entity variant shares (§3.1).
type Base struct {
	ID           string                 `json:"id"`
	Path         string                 `json:"path"`
	Hash         string                 `json:"hash"`
	Language     string                 `json:"language"`
	Created      time.Time              `json:"created"`
	LastModified time.Time              `json:"lastModified"`
	Metadata     map[string]interface{} `json:"metadata,omitempty"`
}

// Entity is the sum type over every node kind the graph stores.
type Entity interface {
	Kind() EntityKind
	Identity() Base
}

// FileEntity is a source file node.
type FileEntity struct {
	Base
	Extension    string   `json:"extension"`
	Size         int64    `json:"size"`
	Lines        int      `json:"lines"`
	IsTest       bool     `json:"isTest"`
	IsConfig     bool     `json:"isConfig"`
	Dependencies []string `json:"dependencies,omitempty"`
}

func (e *FileEntity) Kind() EntityKind { return KindFile }
func (e *FileEntity) Identity() Base   { return e.Base }

// DirectoryEntity is a filesystem directory node.
type DirectoryEntity struct {
	Base
	Children []string `json:"children,omitempty"`
	Depth    int      `json:"depth"`
}

func (e *DirectoryEntity) Kind() EntityKind { return KindDirectory }
func (e *DirectoryEntity) Identity() Base   { return e.Base }

// ModuleEntity is a package/module manifest node.
type ModuleEntity struct {
	Base
	Name            string `json:"name"`
	Version         string `json:"version"`
	PackageManifest string `json:"packageManifest"`
	EntryPoint      string `json:"entryPoint"`
}

func (e *ModuleEntity) Kind() EntityKind { return KindModule }
func (e *ModuleEntity) Identity() Base   { return e.Base }

// SymbolCommon is embedded by every symbol variant.
type SymbolCommon struct {
	Base
	SymKind      SymbolKind `json:"symbolKind"`
	Name         string     `json:"name"`
	Signature    string     `json:"signature"`
	Docstring    string     `json:"docstring,omitempty"`
	Visibility   Visibility `json:"visibility"`
	IsExported   bool       `json:"isExported"`
	IsDeprecated bool       `json:"isDeprecated"`
	Location     Location   `json:"location"`
}

// Parameter describes one function/method parameter.
type Parameter struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	DefaultValue string `json:"defaultValue,omitempty"`
	Optional     bool   `json:"optional"`
}

// FunctionSymbol is a function or method declaration node.
type FunctionSymbol struct {
	SymbolCommon
	Parameters []Parameter `json:"parameters"`
	ReturnType string      `json:"returnType"`
	IsAsync    bool        `json:"isAsync"`
	IsGenerator bool       `json:"isGenerator"`
	Complexity int         `json:"complexity"`
	Calls      []string    `json:"calls,omitempty"`
}

func (e *FunctionSymbol) Kind() EntityKind { return KindFunctionSymbol }
func (e *FunctionSymbol) Identity() Base   { return e.Base }

// ClassSymbol is a class declaration node.
type ClassSymbol struct {
	SymbolCommon
	Extends    []string `json:"extends,omitempty"`
	Implements []string `json:"implements,omitempty"`
	Methods    []string `json:"methods,omitempty"`
	Properties []string `json:"properties,omitempty"`
	IsAbstract bool     `json:"isAbstract"`
}

func (e *ClassSymbol) Kind() EntityKind { return KindClassSymbol }
func (e *ClassSymbol) Identity() Base   { return e.Base }

// InterfaceSymbol is an interface declaration node.
type InterfaceSymbol struct {
	SymbolCommon
	Extends    []string `json:"extends,omitempty"`
	Methods    []string `json:"methods,omitempty"`
	Properties []string `json:"properties,omitempty"`
}

func (e *InterfaceSymbol) Kind() EntityKind { return KindInterfaceSymbol }
func (e *InterfaceSymbol) Identity() Base   { return e.Base }

// TypeAliasSymbol is a type-alias declaration node.
type TypeAliasSymbol struct {
	SymbolCommon
	AliasedType    string `json:"aliasedType"`
	IsUnion        bool   `json:"isUnion"`
	IsIntersection bool   `json:"isIntersection"`
}

func (e *TypeAliasSymbol) Kind() EntityKind { return KindTypeAliasSymbol }
func (e *TypeAliasSymbol) Identity() Base   { return e.Base }

// CoverageStats holds the four coverage dimensions tracked for a test.
type CoverageStats struct {
	Lines      float64 `json:"lines"`
	Branches   float64 `json:"branches"`
	Functions  float64 `json:"functions"`
	Statements float64 `json:"statements"`
}

// TestExecution is one historical run of a test.
type TestExecution struct {
	Timestamp time.Time `json:"timestamp"`
	Status    string    `json:"status"`
	DurationMs float64  `json:"durationMs"`
}

// TestEntity is a test-case node.
type TestEntity struct {
	Base
	TestType           string          `json:"testType"`
	TargetSymbol       string          `json:"targetSymbol"`
	Framework          string          `json:"framework"`
	Coverage           CoverageStats   `json:"coverage"`
	Status             string          `json:"status"`
	FlakyScore         float64         `json:"flakyScore"`
	ExecutionHistory   []TestExecution `json:"executionHistory,omitempty"`
	PerformanceMetrics map[string]float64 `json:"performanceMetrics,omitempty"`
}

func (e *TestEntity) Kind() EntityKind { return KindTest }
func (e *TestEntity) Identity() Base   { return e.Base }

// externalEntity covers the entity kinds fully defined by external
// collaborators (§3.1) -- the core only needs to carry, persist and
// reference them, not interpret their internals.
type externalEntity struct {
	Base
	kind EntityKind
}

func (e *externalEntity) Kind() EntityKind { return e.kind }
func (e *externalEntity) Identity() Base   { return e.Base }

// NewSpecification constructs a pass-through Specification node.
func NewSpecification(b Base) Entity { return &externalEntity{Base: b, kind: KindSpecification} }

// NewDocumentationNode constructs a pass-through Documentation node.
func NewDocumentationNode(b Base) Entity { return &externalEntity{Base: b, kind: KindDocumentation} }

// NewSecurityIssue constructs a pass-through SecurityIssue node.
func NewSecurityIssue(b Base) Entity { return &externalEntity{Base: b, kind: KindSecurityIssue} }

// NewVulnerability constructs a pass-through Vulnerability node.
func NewVulnerability(b Base) Entity { return &externalEntity{Base: b, kind: KindVulnerability} }

// NewBusinessDomain constructs a pass-through BusinessDomain node.
func NewBusinessDomain(b Base) Entity { return &externalEntity{Base: b, kind: KindBusinessDomain} }

// NewSemanticCluster constructs a pass-through SemanticCluster node.
func NewSemanticCluster(b Base) Entity { return &externalEntity{Base: b, kind: KindSemanticCluster} }

// VersionEntity records one historical snapshot of another entity.
type VersionEntity struct {
	Base
	EntityID  string    `json:"entityId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e *VersionEntity) Kind() EntityKind { return KindVersion }
func (e *VersionEntity) Identity() Base   { return e.Base }

// CheckpointReason is the closed set of reasons a checkpoint was created.
type CheckpointReason string

const (
	CheckpointDaily    CheckpointReason = "daily"
	CheckpointIncident CheckpointReason = "incident"
	CheckpointManual   CheckpointReason = "manual"
)

// CheckpointEntity is a materialized point-in-time subgraph.
type CheckpointEntity struct {
	Base
	CheckpointID string           `json:"checkpointId"`
	Reason       CheckpointReason `json:"reason"`
	Hops         int              `json:"hops"`
	SeedEntities []string         `json:"seedEntities"`
	Timestamp    time.Time        `json:"timestamp"`
}

func (e *CheckpointEntity) Kind() EntityKind { return KindCheckpoint }
func (e *CheckpointEntity) Identity() Base   { return e.Base }

// SessionStatus is the closed status set for a Session.
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCompleted SessionStatus = "completed"
	SessionFailed    SessionStatus = "failed"
)

// SessionEntity is a bounded unit of agent activity.
type SessionEntity struct {
	Base
	StartTime time.Time     `json:"startTime"`
	EndTime   *time.Time    `json:"endTime,omitempty"`
	AgentType string        `json:"agentType"`
	Status    SessionStatus `json:"status"`
	Changes   []string      `json:"changes,omitempty"`
	Specs     []string      `json:"specs,omitempty"`
}

func (e *SessionEntity) Kind() EntityKind { return KindSession }
func (e *SessionEntity) Identity() Base   { return e.Base }
