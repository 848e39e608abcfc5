package relstore

import (
	"context"
	"errors"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/codegraph/knowledgegraph/internal/config"
	"github.com/codegraph/knowledgegraph/internal/logging"
	"github.com/codegraph/knowledgegraph/internal/model"
	"github.com/codegraph/knowledgegraph/internal/telemetry"
)

// allModels is the AutoMigrate set for every §4.5 table, in dependency
// order (test_suites before the tables that reference it by suite id).
var allModels = []interface{}{
	&Document{}, &Session{}, &TestSuite{}, &TestResult{}, &TestCoverage{},
	&TestPerformance{}, &FlakyTestAnalysis{}, &Change{}, &SCMCommit{},
	&PerformanceMetricSnapshot{}, &CoverageHistory{}, &SessionCheckpointJob{},
}

// Store is the GORM-backed Relational Store Adapter (C7).
type Store struct {
	db     *gorm.DB
	writes *telemetry.BulkWriter
}

// New opens a Postgres connection pool per cfg.DSN, grounded in the
// teacher pack's gorm.Open(postgres.Open(dsn), ...) idiom.
func New(cfg config.RelStoreConfig) (*Store, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, model.WrapError(model.ErrNotInitialized, "open postgres connection", err)
	}

	tcfg := telemetry.Config{
		SlowBatchThresholdMs:   cfg.SlowBatchThresholdMs,
		WarnOnLargeBatchSize:   cfg.WarnOnLargeBatchSize,
		QueueDepthWarningLimit: cfg.QueueDepthWarningLimit,
		HistoryLimit:           cfg.HistoryLimit,
	}
	if tcfg.HistoryLimit == 0 {
		tcfg = telemetry.DefaultConfig()
	}

	return &Store{db: db, writes: telemetry.New(tcfg)}, nil
}

// Telemetry exposes the running bulk-write metrics.
func (s *Store) Telemetry() telemetry.Metrics { return s.writes.Snapshot() }

// SubscribeTelemetry registers a bulk-write observer.
func (s *Store) SubscribeTelemetry(sub telemetry.Subscriber) { s.writes.Subscribe(sub) }

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Migrate runs AutoMigrate across every model, additive-only per the
// teacher's PGMigrations idiom (new columns added, nothing dropped).
func (s *Store) Migrate(ctx context.Context) error {
	timer := logging.StartTimer(logging.CategoryRelStore, "Migrate")
	defer timer.Stop()

	if err := s.db.WithContext(ctx).AutoMigrate(allModels...); err != nil {
		return model.WrapError(model.ErrQueryFailed, "automigrate", err)
	}
	return nil
}

// withTx runs fn, recording the batch via the telemetry wrapper regardless
// of outcome.
func (s *Store) withTx(ctx context.Context, batchSize int, continueOnError bool, queueDepth int, fn func(tx *gorm.DB) error) error {
	mode := telemetry.ModeTransaction
	if continueOnError {
		mode = telemetry.ModeIndependent
	}
	handle := s.writes.Begin(batchSize, continueOnError, mode, queueDepth)

	err := s.db.WithContext(ctx).Transaction(fn)
	handle.Finish(err == nil, batchSize, err)
	if err != nil {
		return model.WrapError(model.ErrQueryFailed, "transactional bulk write", err)
	}
	return nil
}

// UpsertTestSuite implements §4.5's "fetch-by-unique-key, insert if absent"
// semantics so legacy ids remain stable across re-ingests of the same run.
func (s *Store) UpsertTestSuite(ctx context.Context, suite *TestSuite) error {
	timer := logging.StartTimer(logging.CategoryRelStore, "UpsertTestSuite")
	defer timer.Stop()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing TestSuite
		err := tx.Where("suite_name = ? AND timestamp = ?", suite.SuiteName, suite.Timestamp).
			First(&existing).Error
		if err == nil {
			suite.ID = existing.ID
			return tx.Model(&existing).Updates(suite).Error
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		return tx.Create(suite).Error
	})
}

// UpsertTestResult upserts by the (TestID, SuiteID) unique key.
func (s *Store) UpsertTestResult(ctx context.Context, r *TestResult) error {
	return s.db.WithContext(ctx).Clauses(onConflictUpdate("test_id", "suite_id")).Create(r).Error
}

// BulkUpsertTestResults writes a batch in one transaction (continueOnError=false)
// or independently per-row (continueOnError=true), mirroring the Graph Store
// Adapter's bulk contract (§4.4/§4.5).
func (s *Store) BulkUpsertTestResults(ctx context.Context, rows []TestResult, continueOnError bool, queueDepth int) []error {
	if !continueOnError {
		err := s.withTx(ctx, len(rows), false, queueDepth, func(tx *gorm.DB) error {
			for i := range rows {
				if err := tx.Clauses(onConflictUpdate("test_id", "suite_id")).Create(&rows[i]).Error; err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return []error{err}
		}
		return nil
	}

	mode := telemetry.ModeIndependent
	handle := s.writes.Begin(len(rows), true, mode, queueDepth)
	errs := make([]error, len(rows))
	var anyErr bool
	for i := range rows {
		if err := s.UpsertTestResult(ctx, &rows[i]); err != nil {
			errs[i] = err
			anyErr = true
		}
	}
	handle.Finish(!anyErr, len(rows), nil)
	return errs
}

// RecordChange inserts an audit row for one entity mutation.
func (s *Store) RecordChange(ctx context.Context, c *Change) error {
	if c.Timestamp.IsZero() {
		c.Timestamp = time.Now()
	}
	return s.db.WithContext(ctx).Create(c).Error
}

// UpsertSCMCommit upserts by the unique CommitHash.
func (s *Store) UpsertSCMCommit(ctx context.Context, c *SCMCommit) error {
	return s.db.WithContext(ctx).Clauses(onConflictUpdate("commit_hash")).Create(c).Error
}

// AppendCoverageHistory inserts one coverage reading.
func (s *Store) AppendCoverageHistory(ctx context.Context, h *CoverageHistory) error {
	return s.db.WithContext(ctx).Create(h).Error
}

// UpsertFlakyAnalysis upserts by the TestID primary key.
func (s *Store) UpsertFlakyAnalysis(ctx context.Context, a *FlakyTestAnalysis) error {
	return s.db.WithContext(ctx).Clauses(onConflictUpdate("test_id")).Create(a).Error
}

// AppendPerformanceSnapshot inserts a metric snapshot, capping MetricsHistory
// at MaxMetricsHistory.
func (s *Store) AppendPerformanceSnapshot(ctx context.Context, snap *PerformanceMetricSnapshot) error {
	if len(snap.MetricsHistory) > MaxMetricsHistory {
		snap.MetricsHistory = snap.MetricsHistory[len(snap.MetricsHistory)-MaxMetricsHistory:]
	}
	return s.db.WithContext(ctx).Create(snap).Error
}
