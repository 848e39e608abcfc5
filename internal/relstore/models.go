// Package relstore implements the Relational Store Adapter (C7): the
// twelve §4.5 tables persisted via GORM over Postgres, sharing the bulk-
// write telemetry wrapper used by the Graph Store Adapter.
package relstore

import "time"

// Document is the generic document store (§4.5).
type Document struct {
	ID        string `gorm:"primaryKey"`
	Type      string `gorm:"index"`
	Content   string
	Metadata  JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Session tracks an agent work session.
type Session struct {
	ID        string `gorm:"primaryKey"`
	AgentType string
	UserID    string `gorm:"index"`
	StartTime time.Time
	EndTime   *time.Time
	Status    string `gorm:"index"` // active | completed | failed | timeout
	Metadata  JSONMap `gorm:"type:jsonb"`
	CreatedAt time.Time
}

// TestSuite is one test-framework run. Unique on (SuiteName, Timestamp)
// per §4.5, so repeated runs of the same suite at the same timestamp
// upsert rather than duplicate.
type TestSuite struct {
	ID           string `gorm:"primaryKey"`
	SuiteName    string `gorm:"uniqueIndex:idx_suite_ts"`
	Timestamp    time.Time `gorm:"uniqueIndex:idx_suite_ts"`
	Framework    string
	TotalTests   int
	PassedTests  int
	FailedTests  int
	SkippedTests int
	Duration     float64
	Status       string
	Coverage     float64
}

// TestResult is one test's outcome within a suite. Unique on (TestID, SuiteID).
type TestResult struct {
	ID          string `gorm:"primaryKey"`
	SuiteID     string `gorm:"uniqueIndex:idx_test_suite"`
	TestID      string `gorm:"uniqueIndex:idx_test_suite"`
	TestSuite   string
	TestName    string
	Status      string
	Duration    float64
	ErrorMessage string
	StackTrace  string
	Coverage    float64
	Performance float64
	Timestamp   time.Time
}

// TestCoverage is per-test coverage detail. Unique on (TestID, SuiteID).
type TestCoverage struct {
	ID        string `gorm:"primaryKey"`
	TestID    string `gorm:"uniqueIndex:idx_cov_test_suite"`
	SuiteID   string `gorm:"uniqueIndex:idx_cov_test_suite"`
	Lines     float64
	Branches  float64
	Functions float64
	Statements float64
}

// TestPerformance is per-test resource usage. Unique on (TestID, SuiteID).
type TestPerformance struct {
	ID              string `gorm:"primaryKey"`
	TestID          string `gorm:"uniqueIndex:idx_perf_test_suite"`
	SuiteID         string `gorm:"uniqueIndex:idx_perf_test_suite"`
	MemoryUsage     float64
	CPUUsage        float64
	NetworkRequests int
}

// FlakyTestAnalysis summarizes a test's observed flakiness, keyed by TestID.
type FlakyTestAnalysis struct {
	TestID         string `gorm:"primaryKey"`
	TestName       string
	FailureCount   int
	FlakyScore     float64
	TotalRuns      int
	FailureRate    float64
	SuccessRate    float64
	RecentFailures int
	Patterns       StringList `gorm:"type:jsonb"`
	Recommendations StringList `gorm:"type:jsonb"`
	AnalyzedAt     time.Time
}

// Change is one entity mutation recorded for audit/replay.
type Change struct {
	ID            string `gorm:"primaryKey"`
	ChangeType    string // create | update | delete | rename | move
	EntityType    string
	EntityID      string `gorm:"index"`
	Timestamp     time.Time
	Author        string
	CommitHash    string
	Diff          string
	PreviousState JSONMap `gorm:"type:jsonb"`
	NewState      JSONMap `gorm:"type:jsonb"`
	SessionID     string `gorm:"index"`
	SpecID        string
}

// SCMCommit is a single source-control commit and its linked test/validation
// results. Unique on CommitHash.
type SCMCommit struct {
	ID                string `gorm:"primaryKey"`
	CommitHash        string `gorm:"uniqueIndex"`
	Branch            string
	Title             string
	Description       string
	Author            string
	Metadata          JSONMap    `gorm:"type:jsonb"`
	Changes           StringList `gorm:"type:jsonb"`
	RelatedSpecID     string
	TestResults       StringList `gorm:"type:jsonb"`
	ValidationResults JSONMap    `gorm:"type:jsonb"`
	PRUrl             string
	Provider          string
	Status            string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PerformanceMetricSnapshot records one observation of a tracked metric
// against its baseline, per §4.5.
type PerformanceMetricSnapshot struct {
	ID             string `gorm:"primaryKey"`
	TestID         string `gorm:"index"`
	TargetID       string `gorm:"index"`
	MetricID       string `gorm:"index"`
	Scenario       string
	Environment    string
	Severity       string // critical | high | medium | low
	Trend          string // regression | improvement | neutral
	Unit           string
	BaselineValue  float64
	CurrentValue   float64
	Delta          float64
	PercentChange  float64
	SampleSize     int
	RiskScore      float64
	RunID          string
	DetectedAt     time.Time
	ResolvedAt     *time.Time
	Metadata       JSONMap    `gorm:"type:jsonb"`
	MetricsHistory FloatList  `gorm:"type:jsonb"` // capped at 50 entries, see AppendMetricHistory
}

// MaxMetricsHistory bounds PerformanceMetricSnapshot.MetricsHistory (§4.5 "≤50").
const MaxMetricsHistory = 50

// AppendMetricHistory appends a value, keeping only the most recent
// MaxMetricsHistory entries.
func AppendMetricHistory(history FloatList, v float64) FloatList {
	history = append(history, v)
	if len(history) > MaxMetricsHistory {
		history = history[len(history)-MaxMetricsHistory:]
	}
	return history
}

// CoverageHistory is one timestamped coverage reading for an entity.
type CoverageHistory struct {
	ID           string `gorm:"primaryKey"`
	EntityID     string `gorm:"index"`
	LinesCovered int
	LinesTotal   int
	Percentage   float64
	Timestamp    time.Time
}

// SessionCheckpointJob is the durable row backing the Checkpoint Job Runner
// (C9)'s at-least-once queue.
type SessionCheckpointJob struct {
	JobID     string `gorm:"primaryKey"`
	SessionID string `gorm:"index"`
	Payload   JSONMap `gorm:"type:jsonb"`
	Status    string  `gorm:"index"` // queued|pending|running|completed|failed|manual_intervention
	Attempts  int
	LastError string
	QueuedAt  time.Time
	UpdatedAt time.Time
}
