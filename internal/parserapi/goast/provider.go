// Package goast is the reference SourceProvider implementation used to
// exercise the Relationship Builders in tests: it walks Go source with the
// standard library's go/parser and go/ast, the same approach the teacher's
// world scanner used for its own (non-spec) CodeElement graph. It is not
// the production multi-language parser front-end -- that remains an
// external collaborator per §6.1 -- only a concrete, realistic fixture.
package goast

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"path/filepath"
	"strings"
	"time"

	"github.com/codegraph/knowledgegraph/internal/model"
	"github.com/codegraph/knowledgegraph/internal/parserapi"
)

// Provider parses a fixed set of Go source files relative to a root
// directory and exposes them through the SourceProvider contract.
type Provider struct {
	root  string
	files []string
	fset  *token.FileSet
}

// New builds a Provider over root, scanning the given repo-relative file
// paths (typically gathered by an external directory walker; the walk
// itself isn't this core's concern).
func New(root string, files []string) *Provider {
	return &Provider{root: root, files: files, fset: token.NewFileSet()}
}

// Files parses every configured file and returns its SourceProvider view.
func (p *Provider) Files() ([]*parserapi.SourceFile, error) {
	out := make([]*parserapi.SourceFile, 0, len(p.files))
	for _, rel := range p.files {
		sf, err := p.parseOne(rel)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", rel, err)
		}
		out = append(out, sf)
	}
	return out, nil
}

func (p *Provider) parseOne(rel string) (*parserapi.SourceFile, error) {
	full := filepath.Join(p.root, rel)
	astFile, err := parser.ParseFile(p.fset, full, nil, parser.ParseComments)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	fileID := "file:" + rel
	fileEntity := &model.FileEntity{
		Base: model.Base{
			ID:           fileID,
			Path:         rel,
			Language:     "go",
			Created:      now,
			LastModified: now,
		},
		Extension: filepath.Ext(rel),
		IsTest:    strings.HasSuffix(rel, "_test.go"),
	}

	sf := &parserapi.SourceFile{
		File:            fileEntity,
		ImportMap:       map[string]parserapi.ImportBinding{},
		ImportSymbolMap: map[string]string{},
		LocalIndex:      map[string]string{},
		ExportMap:       map[string]parserapi.ExportBinding{},
		AST:             astFile,
		FileSet:         p.fset,
	}

	for _, imp := range astFile.Imports {
		path := strings.Trim(imp.Path.Value, `"`)
		alias := pkgAlias(imp, path)
		sf.ImportMap[alias] = parserapi.ImportBinding{
			Alias:      alias,
			Target:     model.PlaceholderRef("import", path),
			ImportType: importKindOf(imp),
			ModulePath: path,
		}
	}

	for _, decl := range astFile.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			sym := p.funcSymbol(rel, fileID, d)
			sf.Symbols = append(sf.Symbols, parserapi.DeclaredSymbol{Entity: sym, NodeKind: "func", Node: d})
			sf.LocalIndex[rel+":"+sym.Name] = sym.ID
			if sym.IsExported {
				sf.ExportMap[sym.Name] = parserapi.ExportBinding{EntityID: sym.ID}
			}
		case *ast.GenDecl:
			for _, sym := range p.genDeclSymbols(rel, fileID, d) {
				sf.Symbols = append(sf.Symbols, sym)
				name := entityName(sym.Entity)
				id := sym.Entity.Identity().ID
				sf.LocalIndex[rel+":"+name] = id
				if ast.IsExported(name) {
					sf.ExportMap[name] = parserapi.ExportBinding{EntityID: id}
				}
			}
			// Go's nearest analogue to re-export syntax is a true alias decl
			// (type Foo = otherpkg.Bar); treat those as re-exports of the
			// aliased package's binding rather than a local declaration.
			for name, binding := range reExportBindings(d, sf.ImportMap) {
				sf.ExportMap[name] = binding
			}
		}
	}

	return sf, nil
}

// reExportBindings finds exported true-alias TypeSpecs in d (ts.Assign
// valid) whose aliased type is a selector into an imported package, and
// maps each such name to a re-export of the imported package's own export.
func reExportBindings(d *ast.GenDecl, importMap map[string]parserapi.ImportBinding) map[string]parserapi.ExportBinding {
	out := map[string]parserapi.ExportBinding{}
	for _, spec := range d.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok || !ts.Assign.IsValid() || !ast.IsExported(ts.Name.Name) {
			continue
		}
		sel, ok := ts.Type.(*ast.SelectorExpr)
		if !ok {
			continue
		}
		pkgIdent, ok := sel.X.(*ast.Ident)
		if !ok {
			continue
		}
		binding, ok := importMap[pkgIdent.Name]
		if !ok {
			continue
		}
		out[ts.Name.Name] = parserapi.ExportBinding{ReExportPath: binding.ModulePath, ReExportName: sel.Sel.Name}
	}
	return out
}

func pkgAlias(imp *ast.ImportSpec, path string) string {
	if imp.Name != nil {
		return imp.Name.Name
	}
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

func importKindOf(imp *ast.ImportSpec) model.ImportType {
	if imp.Name == nil {
		return model.ImportNamed
	}
	switch imp.Name.Name {
	case "_":
		return model.ImportSideEffect
	case ".":
		return model.ImportNamespace
	default:
		return model.ImportNamed
	}
}

func entityName(e model.Entity) string {
	switch v := e.(type) {
	case *model.FunctionSymbol:
		return v.Name
	case *model.ClassSymbol:
		return v.Name
	case *model.InterfaceSymbol:
		return v.Name
	case *model.TypeAliasSymbol:
		return v.Name
	default:
		return ""
	}
}

func (p *Provider) funcSymbol(rel, fileID string, d *ast.FuncDecl) *model.FunctionSymbol {
	now := time.Now()
	pos := p.fset.Position(d.Pos())
	end := p.fset.Position(d.End())
	name := d.Name.Name
	id := fmt.Sprintf("sym:%s:%s", rel, name)
	if d.Recv != nil && len(d.Recv.List) > 0 {
		id = fmt.Sprintf("sym:%s:%s.%s", rel, receiverTypeName(d.Recv.List[0].Type), name)
	}

	params := make([]model.Parameter, 0)
	if d.Type.Params != nil {
		for _, f := range d.Type.Params.List {
			typ := exprString(f.Type)
			if len(f.Names) == 0 {
				params = append(params, model.Parameter{Name: "_", Type: typ})
				continue
			}
			for _, n := range f.Names {
				params = append(params, model.Parameter{Name: n.Name, Type: typ})
			}
		}
	}

	var returnType string
	if d.Type.Results != nil && len(d.Type.Results.List) > 0 {
		parts := make([]string, 0, len(d.Type.Results.List))
		for _, f := range d.Type.Results.List {
			parts = append(parts, exprString(f.Type))
		}
		returnType = strings.Join(parts, ", ")
	}

	return &model.FunctionSymbol{
		SymbolCommon: model.SymbolCommon{
			Base: model.Base{
				ID: id, Path: rel, Language: "go",
				Created: now, LastModified: now,
			},
			SymKind:    model.SymbolFunction,
			Name:       name,
			Signature:  name + "(" + paramString(params) + ")",
			Visibility: visibilityOf(name),
			IsExported: ast.IsExported(name),
			Location: model.Location{
				Line: pos.Line, Column: pos.Column,
				Start: pos.Offset, End: end.Offset,
			},
		},
		Parameters: params,
		ReturnType: returnType,
	}
}

func (p *Provider) genDeclSymbols(rel, fileID string, d *ast.GenDecl) []parserapi.DeclaredSymbol {
	var out []parserapi.DeclaredSymbol
	for _, spec := range d.Specs {
		ts, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}
		now := time.Now()
		pos := p.fset.Position(ts.Pos())
		end := p.fset.Position(ts.End())
		name := ts.Name.Name
		common := model.SymbolCommon{
			Base: model.Base{
				ID: fmt.Sprintf("sym:%s:%s", rel, name), Path: rel, Language: "go",
				Created: now, LastModified: now,
			},
			Name:       name,
			Visibility: visibilityOf(name),
			IsExported: ast.IsExported(name),
			Location: model.Location{
				Line: pos.Line, Column: pos.Column,
				Start: pos.Offset, End: end.Offset,
			},
		}

		switch t := ts.Type.(type) {
		case *ast.InterfaceType:
			common.SymKind = model.SymbolInterface
			iface := &model.InterfaceSymbol{SymbolCommon: common}
			for _, m := range t.Methods.List {
				if len(m.Names) > 0 {
					iface.Methods = append(iface.Methods, m.Names[0].Name)
				}
			}
			out = append(out, parserapi.DeclaredSymbol{Entity: iface, NodeKind: "interface", Node: ts})
		case *ast.StructType:
			common.SymKind = model.SymbolClass
			cls := &model.ClassSymbol{SymbolCommon: common}
			for _, f := range t.Fields.List {
				for _, n := range f.Names {
					cls.Properties = append(cls.Properties, n.Name)
				}
			}
			out = append(out, parserapi.DeclaredSymbol{Entity: cls, NodeKind: "struct", Node: ts})
		default:
			common.SymKind = model.SymbolTypeAlias
			alias := &model.TypeAliasSymbol{SymbolCommon: common, AliasedType: exprString(ts.Type)}
			out = append(out, parserapi.DeclaredSymbol{Entity: alias, NodeKind: "type", Node: ts})
		}
	}
	return out
}

func receiverTypeName(expr ast.Expr) string {
	if star, ok := expr.(*ast.StarExpr); ok {
		return exprString(star.X)
	}
	return exprString(expr)
}

func exprString(e ast.Expr) string {
	switch v := e.(type) {
	case *ast.Ident:
		return v.Name
	case *ast.StarExpr:
		return "*" + exprString(v.X)
	case *ast.SelectorExpr:
		return exprString(v.X) + "." + v.Sel.Name
	case *ast.ArrayType:
		return "[]" + exprString(v.Elt)
	case *ast.MapType:
		return "map[" + exprString(v.Key) + "]" + exprString(v.Value)
	case *ast.InterfaceType:
		return "interface{}"
	case *ast.Ellipsis:
		return "..." + exprString(v.Elt)
	default:
		return ""
	}
}

func paramString(params []model.Parameter) string {
	parts := make([]string, 0, len(params))
	for _, p := range params {
		parts = append(parts, p.Name+" "+p.Type)
	}
	return strings.Join(parts, ", ")
}

func visibilityOf(name string) model.Visibility {
	if ast.IsExported(name) {
		return model.VisibilityPublic
	}
	return model.VisibilityPrivate
}
