// Package normalize implements the Structural Normalizer (C2): it takes a
// freshly built structural relationship (CONTAINS/DEFINES/EXPORTS/IMPORTS)
// and produces its canonical form, per spec §4.1.
package normalize

import (
	"strings"

	"github.com/codegraph/knowledgegraph/internal/logging"
	"github.com/codegraph/knowledgegraph/internal/model"
)

// importTypeSynonyms maps loosely-typed caller input onto the closed
// ImportType set (§4.1).
var importTypeSynonyms = map[string]model.ImportType{
	"type":            model.ImportNamed,
	"types":           model.ImportNamed,
	"star-import":     model.ImportNamespace,
	"namespace-import": model.ImportNamespace,
	"sideeffect":      model.ImportSideEffect,
	"side_effect":     model.ImportSideEffect,
	"*":               model.ImportWildcard,
	"all":             model.ImportWildcard,
}

// resolvedIDPrefixes classifies entity-id-shaped toRef strings as resolved.
var resolvedIDPrefixes = []string{"file:", "sym:", "dir:", "entity:"}

// unresolvedIDPrefixes classifies placeholder-shaped toRef strings as
// unresolved.
var unresolvedIDPrefixes = []string{"import:", "external:", "package:", "module:", "class:", "interface:", "function:", "typeAlias:"}

// Normalizer canonicalizes structural relationships, running registered
// LanguageAdapters in registration order.
type Normalizer struct {
	adapters []LanguageAdapter
	debug    bool
}

// NewNormalizer builds a Normalizer. debug controls whether adapter
// failures are logged (they are always swallowed, never fatal).
func NewNormalizer(debug bool, adapters ...LanguageAdapter) *Normalizer {
	return &Normalizer{adapters: adapters, debug: debug}
}

// Register appends a language adapter, preserving registration order.
func (n *Normalizer) Register(a LanguageAdapter) {
	n.adapters = append(n.adapters, a)
}

// Normalize returns the canonical form of r. Normalize is pure and
// idempotent: Normalize(Normalize(r)).ID == Normalize(r).ID (Testable
// Property 1).
func (n *Normalizer) Normalize(r model.Relationship) model.Relationship {
	if !model.IsStructural(r.Type) {
		return r
	}

	out := r
	out.Metadata = model.PruneLegacyAliases(cloneMeta(r.Metadata))

	if out.ModulePath != "" {
		out.ModulePath = normalizeModulePath(out.ModulePath)
	}

	out.ImportAlias = capString(strings.TrimSpace(out.ImportAlias), 256)

	out.ImportType = normalizeImportType(out.ImportType)

	if out.ImportType == model.ImportNamespace || strings.HasSuffix(out.ModulePath, "/*") {
		out.IsNamespace = true
	}

	if out.ReExportTarget != "" {
		out.IsReExport = true
	} else if explicitlyFalse(out.Metadata, "isReExport") {
		out.IsReExport = false
		out.ReExportTarget = ""
	}

	out.Language = strings.ToLower(out.Language)
	out.SymbolKind = strings.ToLower(out.SymbolKind)
	if out.ImportDepth < 0 {
		out.ImportDepth = 0
	}

	out.ResolutionState = resolveState(out)
	out.Confidence = model.ClampConfidence(defaultConfidence(out))

	for _, a := range n.adapters {
		func() {
			defer func() {
				if rec := recover(); rec != nil && n.debug {
					logging.Warnf(logging.CategoryNormalize, "language adapter %s panicked: %v", a.Name(), rec)
				}
			}()
			if err := a.Apply(&out); err != nil && n.debug {
				logging.Warnf(logging.CategoryNormalize, "language adapter %s failed: %v", a.Name(), err)
			}
		}()
	}

	out.ID = model.CanonicalID(out.FromEntityID, out.ToEntityID, out.Type, out.ToRef.CanonicalString())
	return out
}

func cloneMeta(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func explicitlyFalse(meta map[string]interface{}, key string) bool {
	if meta == nil {
		return false
	}
	v, ok := meta[key]
	if !ok {
		return false
	}
	b, ok := v.(bool)
	return ok && !b
}

// normalizeModulePath converts back-slashes to forward-slashes, collapses
// runs of "/", and strips a trailing slash except for the root path.
func normalizeModulePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	var b strings.Builder
	prevSlash := false
	for _, r := range p {
		if r == '/' {
			if prevSlash {
				continue
			}
			prevSlash = true
		} else {
			prevSlash = false
		}
		b.WriteRune(r)
	}
	out := b.String()
	if len(out) > 1 && strings.HasSuffix(out, "/") {
		out = strings.TrimSuffix(out, "/")
	}
	return out
}

func capString(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func normalizeImportType(t model.ImportType) model.ImportType {
	if model.ValidImportType(t) {
		return t
	}
	raw := strings.ToLower(strings.TrimSpace(string(t)))
	if syn, ok := importTypeSynonyms[raw]; ok {
		return syn
	}
	switch {
	case strings.Contains(raw, "namespace") || strings.Contains(raw, "star"):
		return model.ImportNamespace
	case strings.Contains(raw, "default"):
		return model.ImportDefault
	case strings.Contains(raw, "side"):
		return model.ImportSideEffect
	case strings.Contains(raw, "wild") || raw == "*":
		return model.ImportWildcard
	case strings.Contains(raw, "name"):
		return model.ImportNamed
	}
	return t
}

// resolveState computes resolutionState per the three-tier cascade in §4.1:
// explicit valid value, else classification of toRef.kind / id prefix, else
// a structural-type default.
func resolveState(r model.Relationship) model.ResolutionState {
	if model.ValidResolutionState(r.ResolutionState) {
		return r.ResolutionState
	}

	switch r.ToRef.Kind() {
	case model.TargetEntity, model.TargetFileSymbol:
		return model.ResolutionStateResolved
	case model.TargetExternal, model.TargetPlaceholder:
		return model.ResolutionStateUnresolved
	}

	id := r.ToEntityID
	for _, p := range resolvedIDPrefixes {
		if strings.HasPrefix(id, p) {
			return model.ResolutionStateResolved
		}
	}
	for _, p := range unresolvedIDPrefixes {
		if strings.HasPrefix(id, p) {
			return model.ResolutionStateUnresolved
		}
	}

	if r.Type == model.RelContains || r.Type == model.RelDefines {
		return model.ResolutionStateResolved
	}
	return model.ResolutionStateUnresolved
}

// defaultConfidence applies the documented per-state defaults unless the
// caller already supplied a (clamped) value.
func defaultConfidence(r model.Relationship) float64 {
	if r.Confidence != 0 {
		return r.Confidence
	}
	switch {
	case r.Type == model.RelContains || r.Type == model.RelDefines:
		return 0.95
	case r.ResolutionState == model.ResolutionStateResolved:
		return 0.90
	case r.ResolutionState == model.ResolutionStatePartial:
		return 0.60
	default:
		return 0.40
	}
}
