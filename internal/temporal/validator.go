package temporal

import (
	"context"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/graphstore"
	"github.com/codegraph/knowledgegraph/internal/logging"
)

// IssueKind is the closed set of version-chain defects the validator
// detects (§4.8).
type IssueKind string

const (
	IssueUnexpectedHead   IssueKind = "unexpected_head"
	IssueMissingPrevious  IssueKind = "missing_previous"
	IssueMisorderedPrevious IssueKind = "misordered_previous"
)

// Issue describes one detected defect, optionally annotated with repair
// outcome.
type Issue struct {
	EntityID  string
	VersionID string
	Kind      IssueKind
	Repaired  *bool // nil unless autoRepair was requested
}

// ValidateOptions configures one validation pass.
type ValidateOptions struct {
	BatchSize     int
	TimelineLimit int
	MaxEntities   int
	AutoRepair    bool
	DryRun        bool
}

// Result is the §4.8 summary returned from a validation pass.
type Result struct {
	ScannedEntities   int
	InspectedVersions int
	RepairedLinks     int
	Issues            []Issue
}

// Validator scans entity version timelines for chain defects, per C10.
type Validator struct {
	store *graphstore.Store
	repair *Engine
	cfg   config.ValidatorConfig
}

// NewValidator builds a Validator sharing the same store/engine as the
// temporal engine.
func NewValidator(store *graphstore.Store, engine *Engine, cfg config.ValidatorConfig) *Validator {
	return &Validator{store: store, repair: engine, cfg: cfg}
}

// Validate scans entities in pages and inspects each one's version
// timeline, applying the three detection rules of §4.8.
func (v *Validator) Validate(ctx context.Context, entityIDs []string, opts ValidateOptions) (Result, error) {
	timer := logging.StartTimer(logging.CategoryValidator, "Validate")
	defer timer.Stop()

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = v.cfg.BatchSize
	}
	if batchSize <= 0 {
		batchSize = 25
	}
	if batchSize > 100 {
		batchSize = 100
	}

	timelineLimit := opts.TimelineLimit
	if timelineLimit <= 0 {
		timelineLimit = v.cfg.TimelineLimit
	}
	if timelineLimit <= 0 {
		timelineLimit = 200
	}

	maxEntities := opts.MaxEntities
	if maxEntities <= 0 {
		maxEntities = v.cfg.MaxEntities
	}

	var result Result

	for i := 0; i < len(entityIDs); i += batchSize {
		if maxEntities > 0 && result.ScannedEntities >= maxEntities {
			break
		}
		end := i + batchSize
		if end > len(entityIDs) {
			end = len(entityIDs)
		}
		page := entityIDs[i:end]

		for _, entityID := range page {
			if maxEntities > 0 && result.ScannedEntities >= maxEntities {
				break
			}
			result.ScannedEntities++

			rows, err := v.store.VersionTimeline(ctx, entityID, timelineLimit)
			if err != nil {
				return result, err
			}
			sortVersionRows(rows)
			result.InspectedVersions += len(rows)

			issues := detectIssues(entityID, rows, timelineLimit)

			if opts.AutoRepair && !opts.DryRun {
				for idx := range issues {
					if issues[idx].Kind != IssueMissingPrevious && issues[idx].Kind != IssueMisorderedPrevious {
						continue
					}
					repaired, err := v.repair.RepairPreviousVersionLink(ctx, entityID, issues[idx].VersionID)
					ok := err == nil && repaired
					issues[idx].Repaired = &ok
					if ok {
						result.RepairedLinks++
					}
				}
			}

			result.Issues = append(result.Issues, issues...)
		}
	}

	return result, nil
}

// detectIssues applies the three §4.8 rules to one entity's ascending
// version timeline.
func detectIssues(entityID string, rows []graphstore.VersionRow, timelineLimit int) []Issue {
	var issues []Issue
	if len(rows) == 0 {
		return issues
	}

	truncated := len(rows) >= timelineLimit

	first := rows[0]
	if first.PreviousVersionID != "" && !truncated {
		issues = append(issues, Issue{EntityID: entityID, VersionID: first.ID, Kind: IssueUnexpectedHead})
	}

	for i := 1; i < len(rows); i++ {
		cur := rows[i]
		prior := rows[i-1]

		if cur.PreviousVersionID == "" {
			issues = append(issues, Issue{EntityID: entityID, VersionID: cur.ID, Kind: IssueMissingPrevious})
			continue
		}
		if cur.PreviousVersionID != prior.ID || cur.Timestamp.Before(prior.Timestamp) {
			issues = append(issues, Issue{EntityID: entityID, VersionID: cur.ID, Kind: IssueMisorderedPrevious})
		}
	}

	return issues
}
