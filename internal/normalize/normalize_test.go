package normalize

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"

	"github.com/codegraph/knowledgegraph/internal/model"
)

func baseImport() model.Relationship {
	return model.Relationship{
		Type:         model.RelImports,
		FromEntityID: "file:a.ts",
		ToEntityID:   "external:lodash",
		ToRef:        model.ExternalRef("lodash"),
		ModulePath:   "lodash",
	}
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := NewNormalizer(false)
	r := baseImport()
	once := n.Normalize(r)
	twice := n.Normalize(once)
	assert.Equal(t, once.ID, twice.ID)

	if diff := cmp.Diff(once, twice); diff != "" {
		t.Errorf("normalizing an already-normalized relationship changed it (-once +twice):\n%s", diff)
	}
}

func TestNormalizeNonStructuralPassesThroughUnchanged(t *testing.T) {
	n := NewNormalizer(false)
	r := model.Relationship{Type: model.RelCalls, FromEntityID: "a", ToEntityID: "b"}
	out := n.Normalize(r)
	assert.Equal(t, r, out)
}

func TestNormalizeModulePathCollapsesSlashesAndBackslashes(t *testing.T) {
	assert.Equal(t, "a/b/c", normalizeModulePath(`a\b//c/`))
	assert.Equal(t, "/", normalizeModulePath("/"))
}

func TestNormalizeImportTypeResolvesSynonyms(t *testing.T) {
	assert.Equal(t, model.ImportNamespace, normalizeImportType(model.ImportType("star-import")))
	assert.Equal(t, model.ImportSideEffect, normalizeImportType(model.ImportType("sideeffect")))
	assert.Equal(t, model.ImportWildcard, normalizeImportType(model.ImportType("*")))
	assert.Equal(t, model.ImportNamed, normalizeImportType(model.ImportNamed))
}

func TestNormalizeImportTypeFallsBackToFuzzyMatch(t *testing.T) {
	assert.Equal(t, model.ImportDefault, normalizeImportType(model.ImportType("DefaultExport")))
}

func TestResolveStateUsesToRefKindWhenNoExplicitState(t *testing.T) {
	r := baseImport()
	assert.Equal(t, model.ResolutionStateUnresolved, resolveState(r))

	r.ToRef = model.EntityRef("file:b.ts")
	r.ToEntityID = "file:b.ts"
	assert.Equal(t, model.ResolutionStateResolved, resolveState(r))
}

func TestResolveStateDefaultsStructuralContainsToResolved(t *testing.T) {
	r := model.Relationship{Type: model.RelContains, ToEntityID: "mystery:thing", ToRef: model.Target{}}
	assert.Equal(t, model.ResolutionStateResolved, resolveState(r))
}

func TestDefaultConfidenceHonorsExplicitValue(t *testing.T) {
	r := baseImport()
	r.Confidence = 0.33
	assert.Equal(t, 0.33, defaultConfidence(r))
}

func TestDefaultConfidenceAppliesStateDefaults(t *testing.T) {
	r := model.Relationship{Type: model.RelContains}
	assert.Equal(t, 0.95, defaultConfidence(r))

	r = model.Relationship{Type: model.RelImports, ResolutionState: model.ResolutionStateResolved}
	assert.Equal(t, 0.90, defaultConfidence(r))

	r = model.Relationship{Type: model.RelImports, ResolutionState: model.ResolutionStatePartial}
	assert.Equal(t, 0.60, defaultConfidence(r))

	r = model.Relationship{Type: model.RelImports, ResolutionState: model.ResolutionStateUnresolved}
	assert.Equal(t, 0.40, defaultConfidence(r))
}
