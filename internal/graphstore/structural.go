package graphstore

import (
	"time"

	"github.com/codegraph/knowledgegraph/internal/model"
)

// StructuralFields is the flattened set of §4.4 "structural fields" kept as
// first-class edge properties (not buried in the metadata blob) so they can
// be indexed and filtered directly in Cypher.
type StructuralFields struct {
	Confidence      float64
	Inferred        bool
	Resolved        bool
	Active          bool
	Scope           string
	Resolution      string
	EdgeKind        string
	Source          string
	ResolutionState string
	ImportType      string
	ImportDepth     int
	ImportAlias     string
	IsNamespace     bool
	IsReExport      bool
	Language        string
	SymbolKind      string
	ModulePath      string
	DataFlowID      string
	Ambiguous       bool
	CandidateCount  int
	OccurrencesScan int
	OccurrencesTotal int
	LastSeenAt      string
	FirstSeenAt     string
	ValidFrom       string
	ValidTo         string
}

// ExtractStructuralFields reads the edge's structural attributes off a
// Relationship, per §4.4's "structural field extraction" step that runs
// before every upsert.
func ExtractStructuralFields(r model.Relationship) StructuralFields {
	f := StructuralFields{
		Confidence:       r.Confidence,
		Inferred:         r.Inferred,
		Resolved:         r.Resolved,
		Active:           r.Active,
		Scope:            string(r.Scope),
		Resolution:       string(r.Resolution),
		EdgeKind:         string(r.EdgeKind),
		Source:           string(r.Source),
		ResolutionState:  string(r.ResolutionState),
		ImportType:       string(r.ImportType),
		ImportDepth:      r.ImportDepth,
		ImportAlias:      r.ImportAlias,
		IsNamespace:      r.IsNamespace,
		IsReExport:       r.IsReExport,
		Language:         r.Language,
		SymbolKind:       r.SymbolKind,
		ModulePath:       r.ModulePath,
		DataFlowID:       r.DataFlowID,
		Ambiguous:        r.Ambiguous,
		CandidateCount:   r.CandidateCount,
		OccurrencesScan:  r.OccurrencesScan,
		OccurrencesTotal: r.OccurrencesTotal,
	}
	if !r.LastSeenAt.IsZero() {
		f.LastSeenAt = r.LastSeenAt.Format(time.RFC3339Nano)
	}
	if !r.FirstSeenAt.IsZero() {
		f.FirstSeenAt = r.FirstSeenAt.Format(time.RFC3339Nano)
	}
	if !r.ValidFrom.IsZero() {
		f.ValidFrom = r.ValidFrom.Format(time.RFC3339Nano)
	}
	if r.ValidTo != nil {
		f.ValidTo = r.ValidTo.Format(time.RFC3339Nano)
	}
	return f
}

// structuralFieldsToParams flattens the extracted fields plus the remaining
// scalar edge attributes into a Cypher SET map.
func structuralFieldsToParams(f StructuralFields, r model.Relationship) map[string]interface{} {
	p := map[string]interface{}{
		"confidence":       f.Confidence,
		"inferred":         f.Inferred,
		"resolved":         f.Resolved,
		"active":           f.Active,
		"scope":            f.Scope,
		"resolution":       f.Resolution,
		"kind":             f.EdgeKind,
		"source":           f.Source,
		"resolutionState":  f.ResolutionState,
		"importType":       f.ImportType,
		"importDepth":      f.ImportDepth,
		"importAlias":      f.ImportAlias,
		"isNamespace":      f.IsNamespace,
		"isReExport":       f.IsReExport,
		"language":         f.Language,
		"symbolKind":       f.SymbolKind,
		"modulePath":       f.ModulePath,
		"dataFlowId":       f.DataFlowID,
		"ambiguous":        f.Ambiguous,
		"candidateCount":   f.CandidateCount,
		"occurrencesScan":  f.OccurrencesScan,
		"occurrencesTotal": f.OccurrencesTotal,
		"lastSeenAt":       f.LastSeenAt,
		"firstSeenAt":      f.FirstSeenAt,
		"validFrom":        f.ValidFrom,
		"validTo":          f.ValidTo,
		"accessPath":       r.AccessPath,
		"callee":           r.Callee,
		"arity":            r.Arity,
		"awaited":          r.Awaited,
		"isMethod":         r.IsMethod,
		"receiverType":     r.ReceiverType,
		"usedTypeChecker":  r.UsedTypeChecker,
	}
	return p
}

// ComputeBackfill recomputes the structural fields for an edge that predates
// the current normalization rules, returning whether any field actually
// changed (Testable Property 11: "backfill is idempotent -- a second pass
// produces no further writes").
func ComputeBackfill(existing, recomputed StructuralFields) (StructuralFields, bool) {
	if existing == recomputed {
		return existing, false
	}
	return recomputed, true
}
