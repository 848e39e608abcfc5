package normalize

import (
	"strings"

	"github.com/codegraph/knowledgegraph/internal/model"
)

// LanguageAdapter may set Language, SymbolKind and language-specific
// metadata based on extension candidates found in ModulePath/entity ids.
// Adapters run in registration order; a failing adapter is swallowed by the
// Normalizer and never aborts normalization.
type LanguageAdapter interface {
	Name() string
	Apply(r *model.Relationship) error
}

type extensionAdapter struct {
	name       string
	extensions map[string]bool
	language   string
	syntaxHint func(ext string) string
}

func (a *extensionAdapter) Name() string { return a.name }

func (a *extensionAdapter) Apply(r *model.Relationship) error {
	ext := candidateExtension(r)
	if ext == "" || !a.extensions[ext] {
		return nil
	}
	r.Language = a.language
	if a.syntaxHint != nil {
		if r.Metadata == nil {
			r.Metadata = map[string]interface{}{}
		}
		r.Metadata["syntax"] = a.syntaxHint(ext)
	}
	return nil
}

func candidateExtension(r *model.Relationship) string {
	candidates := []string{r.ModulePath, r.ToRef.File, r.ToEntityID}
	for _, c := range candidates {
		if idx := strings.LastIndexByte(c, '.'); idx >= 0 && idx < len(c)-1 {
			ext := strings.ToLower(c[idx:])
			if !strings.ContainsAny(ext, "/\\") {
				return ext
			}
		}
	}
	return ""
}

// NewTypeScriptAdapter tags .ts/.tsx imports with language="typescript" and
// a "ts"/"tsx" syntax hint.
func NewTypeScriptAdapter() LanguageAdapter {
	return &extensionAdapter{
		name:       "typescript",
		extensions: map[string]bool{".ts": true, ".tsx": true},
		language:   "typescript",
		syntaxHint: func(ext string) string { return strings.TrimPrefix(ext, ".") },
	}
}

// NewPythonAdapter tags .py imports with language="python".
func NewPythonAdapter() LanguageAdapter {
	return &extensionAdapter{
		name:       "python",
		extensions: map[string]bool{".py": true},
		language:   "python",
	}
}

// NewGoAdapter tags .go imports with language="go".
func NewGoAdapter() LanguageAdapter {
	return &extensionAdapter{
		name:       "go",
		extensions: map[string]bool{".go": true},
		language:   "go",
	}
}
