package builders

import (
	"github.com/codegraph/knowledgegraph/internal/model"
	"github.com/codegraph/knowledgegraph/internal/parserapi"
)

// BuildImports implements the Import/Export Builder (§4.2.1): one IMPORTS
// edge per import binding discovered by the parser front-end, from the
// owning File entity to the resolved or placeholder target.
func BuildImports(c *Context) []model.Relationship {
	fromID := c.File.File.Identity().ID
	out := make([]model.Relationship, 0, len(c.File.ImportMap))

	for alias, binding := range c.File.ImportMap {
		rel := newEdge(fromID, model.RelImports, model.EntityRef(fromID))
		rel.ImportAlias = alias
		rel.ImportType = binding.ImportType
		rel.ModulePath = binding.ModulePath
		rel.ImportDepth = 1

		switch binding.ImportType {
		case model.ImportSideEffect:
			rel.ToRef = sideEffectTarget(binding)
		case model.ImportDefault:
			rel.ToRef = namedTarget(binding, "default")
		case model.ImportNamespace:
			rel.ToRef = namedTarget(binding, "*")
			rel.IsNamespace = true
		default: // named
			exported := c.File.ImportSymbolMap[alias]
			if exported == "" {
				exported = alias
			}
			c.resolveNamedImport(&rel, binding, exported)
		}

		rel.ToEntityID = rel.ToRef.CanonicalString()
		rel.Resolved = rel.ToRef.Kind() == model.TargetFileSymbol || rel.ToRef.Kind() == model.TargetEntity
		rel.Source = model.SourceAST
		out = append(out, rel)
	}

	return out
}

// resolveNamedImport walks the export map transitively through re-exports
// (§4.2.1) to find the declaration a named import ultimately binds to,
// bounded by Cfg.MaxImportDepth. When the bound is reached without landing
// on a declaration, the edge is left resolutionState=partial rather than
// silently reporting depth 1.
func (c *Context) resolveNamedImport(rel *model.Relationship, binding parserapi.ImportBinding, exported string) {
	if c.Exports == nil {
		rel.ToRef = namedTarget(binding, exported)
		return
	}

	maxDepth := c.Cfg.MaxImportDepth
	if maxDepth <= 0 {
		maxDepth = 8
	}

	entityID, depth, truncated := c.Exports.Resolve(binding.ModulePath, exported, maxDepth)
	rel.ImportDepth = depth
	if entityID != "" {
		rel.ToRef = model.EntityRef(entityID)
		return
	}

	rel.ToRef = namedTarget(binding, exported)
	if truncated {
		rel.ResolutionState = model.ResolutionStatePartial
	}
}

// resolvedFile returns the binding's already-resolved target file, or "" if
// the binding only carries a placeholder.
func resolvedFile(b parserapi.ImportBinding) string {
	if b.Target.Kind() == model.TargetFileSymbol {
		return b.Target.File
	}
	return ""
}

func sideEffectTarget(b parserapi.ImportBinding) model.Target {
	if f := resolvedFile(b); f != "" {
		return model.FileSymbolRef(f, f)
	}
	return model.PlaceholderRef("import", b.ModulePath+":*")
}

func namedTarget(b parserapi.ImportBinding, name string) model.Target {
	if f := resolvedFile(b); f != "" {
		return model.FileSymbolRef(f, name)
	}
	return model.PlaceholderRef("import", b.ModulePath+":"+name)
}
