// Package parserapi models the parser front-end contract consumed by the
// Relationship Builders (§6.1). The front-end itself -- lexing/tokenizing
// and language-specific AST production -- is an external collaborator out
// of scope for this core; this package only defines the Go-native shape of
// what it must supply, plus (in the goast subpackage) a reference
// implementation over Go's own AST used to exercise and test the builders.
package parserapi

import (
	"go/ast"

	"github.com/codegraph/knowledgegraph/internal/model"
)

// DeclaredSymbol is one symbol the front-end discovered in a file, prior to
// relationship extraction.
type DeclaredSymbol struct {
	Entity   model.Entity
	NodeKind string
	Node     ast.Node // the declaring AST node, for builders that walk its body
}

// ImportBinding describes one local alias bound to a resolved or
// placeholder import target.
type ImportBinding struct {
	Alias      string
	Target     model.Target
	ImportType model.ImportType
	ModulePath string
}

// ExportBinding is one name this file exposes to importers: either a local
// declaration (EntityID set) or a re-export of a name from another module
// (ReExportPath/ReExportName set), per §4.2.1's export-map traversal.
type ExportBinding struct {
	EntityID     string
	ReExportPath string
	ReExportName string
}

// TypeCheckerResult is the outcome of a best-effort semantic resolution
// call.
type TypeCheckerResult struct {
	ResolvedID   string
	ReceiverType string
	Dynamic      bool
}

// TypeChecker exposes best-effort semantic resolution; any method may
// return ok=false when the front-end cannot answer, in which case builders
// degrade to heuristic resolution (§7 "Resolution degradation").
type TypeChecker interface {
	GetTypeAtLocation(node ast.Node) (typeName string, ok bool)
	ResolveCallTarget(node ast.Node) (TypeCheckerResult, bool)
}

// SourceFile is the per-file view builders operate over.
type SourceFile struct {
	File            model.Entity
	Symbols         []DeclaredSymbol
	ImportMap       map[string]ImportBinding // alias -> target file/module
	ImportSymbolMap map[string]string        // alias -> exported name
	LocalIndex      map[string]string        // "<relPath>:<name>" -> entity id
	ExportMap       map[string]ExportBinding // exported name -> local decl or re-export
	AST             *ast.File
	FileSet         interface{} // *token.FileSet, kept opaque to avoid import cycles in mocks
	TypeChecker     TypeChecker // nil when unavailable
}

// SourceProvider is the external parser front-end contract: for each file
// it yields the File entity, declared symbols, import maps, a local index,
// and on-demand AST access (§6.1).
type SourceProvider interface {
	Files() ([]*SourceFile, error)
}
