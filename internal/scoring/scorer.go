// Package scoring implements the Inferred-Edge Scorer (C5): a pure function
// assigning confidence to inferred edges from a fixed signal set, per §4.3.
package scoring

import "github.com/codegraph/knowledgegraph/internal/model"

// baseByType is the per-relationType base confidence (§4.3).
var baseByType = map[model.RelationshipType]float64{
	model.RelCalls:       0.85,
	model.RelReferences:  0.6,
	model.RelReads:       0.6,
	model.RelWrites:      0.6,
	model.RelDependsOn:   0.55,
	model.RelTypeUses:    0.75,
	model.RelReturnsType: 0.75,
	model.RelParamType:   0.75,
}

const defaultBase = 0.5

// Signals carries the inputs the scorer's additive rules consult. Every
// field corresponds directly to one bullet in §4.3.
type Signals struct {
	RelationType    model.RelationshipType
	UsedTypeChecker bool
	IsExported      bool
	NameLength      int
	ToID            string
	ImportDepth     int
}

// Config tunes the scorer's floor. MinInferredConfidence defaults to 0.4
// per spec but is deployment-configurable (§9 open question (c)).
type Config struct {
	MinInferredConfidence float64
}

// Score computes the scalar confidence in [0,1] for the given signals. Score
// is pure: identical Signals always yield the identical result (§4.3,
// Testable Property list item "Scorer is pure").
func Score(s Signals) float64 {
	base, ok := baseByType[s.RelationType]
	if !ok {
		base = defaultBase
	}

	score := base

	if s.UsedTypeChecker {
		score += 0.15
	}
	if s.IsExported {
		score += 0.05
	}
	switch {
	case s.NameLength >= 5:
		score += 0.05
	case s.NameLength < 3:
		score -= 0.15
	}

	switch {
	case hasPrefix(s.ToID, "external:"):
		score -= 0.10
	case hasPrefix(s.ToID, "file:"):
		score += 0.05
	case isResolvedEntityID(s.ToID):
		score += 0.10
	}

	switch s.ImportDepth {
	case 1:
		score += 0.05
	case 2:
		// no adjustment
	default:
		if s.ImportDepth >= 3 {
			score -= 0.05
		}
	}

	return model.ClampConfidence(score)
}

// PassesFloor reports whether confidence meets the configured floor; edges
// below it must never be persisted (Invariant 6, Testable Property 4).
func PassesFloor(confidence float64, cfg Config) bool {
	floor := cfg.MinInferredConfidence
	if floor == 0 {
		floor = 0.4
	}
	return confidence >= floor
}

func hasPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && s[:len(prefix)] == prefix
}

// isResolvedEntityID reports whether id looks like a concrete, already
// materialized entity id rather than a placeholder/external reference.
func isResolvedEntityID(id string) bool {
	for _, p := range []string{"external:", "import:", "class:", "interface:", "function:", "typeAlias:", "file:"} {
		if hasPrefix(id, p) {
			return false
		}
	}
	return id != ""
}
