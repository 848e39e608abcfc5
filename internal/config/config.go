// Package config loads the knowledge graph core's YAML configuration into a
// typed Config tree, following the teacher's named-sub-struct-plus-
// DefaultConfig convention.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// GraphStoreConfig configures the Neo4j-backed property-graph adapter (C6).
type GraphStoreConfig struct {
	URI      string `yaml:"uri"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`

	// Bulk-write telemetry thresholds (§4.4).
	SlowBatchThresholdMs   int64 `yaml:"slow_batch_threshold_ms"`
	WarnOnLargeBatchSize   int   `yaml:"warn_on_large_batch_size"`
	QueueDepthWarningLimit int   `yaml:"queue_depth_warning_threshold"`
	HistoryLimit           int   `yaml:"history_limit"`

	VectorDimensions int           `yaml:"vector_dimensions"`
	Timeout          time.Duration `yaml:"timeout"`
}

// RelStoreConfig configures the Postgres/GORM-backed relational adapter (C7).
type RelStoreConfig struct {
	DSN     string        `yaml:"dsn"`
	Timeout time.Duration `yaml:"timeout"`

	SlowBatchThresholdMs   int64 `yaml:"slow_batch_threshold_ms"`
	WarnOnLargeBatchSize   int   `yaml:"warn_on_large_batch_size"`
	QueueDepthWarningLimit int   `yaml:"queue_depth_warning_threshold"`
	HistoryLimit           int   `yaml:"history_limit"`
}

// ScoringConfig tunes the Inferred-Edge Scorer (C5).
type ScoringConfig struct {
	MinInferredConfidence float64 `yaml:"min_inferred_confidence"`
}

// BuilderConfig tunes the Relationship Builders (C4).
type BuilderConfig struct {
	ASTMinNameLength int      `yaml:"ast_min_name_length"`
	StopNames        []string `yaml:"stop_names"`
	MaxImportDepth   int      `yaml:"max_import_depth"`
	TypeCheckerBudget int     `yaml:"type_checker_budget"`
}

// CheckpointConfig tunes the Checkpoint Job Runner (C9).
type CheckpointConfig struct {
	Concurrency   int           `yaml:"concurrency"`
	MaxAttempts   int           `yaml:"max_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	MinRetryDelay time.Duration `yaml:"min_retry_delay"`
	DefaultHops   int           `yaml:"default_hops"`
}

// ValidatorConfig tunes the Temporal History Validator (C10).
type ValidatorConfig struct {
	BatchSize     int `yaml:"batch_size"`
	TimelineLimit int `yaml:"timeline_limit"`
	MaxEntities   int `yaml:"max_entities"`
}

// RedisConfig configures the optional key-value coordination channel
// (§6.3/§6.4).
type RedisConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// LoggingConfig mirrors the logging package's tunables.
type LoggingConfig struct {
	DebugMode  bool            `yaml:"debug_mode"`
	Categories map[string]bool `yaml:"categories"`
	Verbose    bool            `yaml:"verbose"`
}

// Config is the root configuration tree for cmd/graphd.
type Config struct {
	GraphStore GraphStoreConfig  `yaml:"graph_store"`
	RelStore   RelStoreConfig    `yaml:"rel_store"`
	Scoring    ScoringConfig     `yaml:"scoring"`
	Builders   BuilderConfig     `yaml:"builders"`
	Checkpoint CheckpointConfig  `yaml:"checkpoint"`
	Validator  ValidatorConfig   `yaml:"validator"`
	Redis      RedisConfig       `yaml:"redis"`
	Logging    LoggingConfig     `yaml:"logging"`
}

// DefaultConfig returns the configuration the spec's documented defaults
// describe, suitable as a base before a YAML file is layered on top.
func DefaultConfig() *Config {
	return &Config{
		GraphStore: GraphStoreConfig{
			URI:                    "bolt://localhost:7687",
			Database:               "neo4j",
			SlowBatchThresholdMs:   2000,
			WarnOnLargeBatchSize:   500,
			QueueDepthWarningLimit: 50,
			HistoryLimit:           200,
			VectorDimensions:       1536,
			Timeout:                30 * time.Second,
		},
		RelStore: RelStoreConfig{
			Timeout:                30 * time.Second,
			SlowBatchThresholdMs:   2000,
			WarnOnLargeBatchSize:   500,
			QueueDepthWarningLimit: 50,
			HistoryLimit:           200,
		},
		Scoring: ScoringConfig{
			MinInferredConfidence: 0.4,
		},
		Builders: BuilderConfig{
			ASTMinNameLength: 3,
			StopNames: []string{
				"console", "log", "fmt", "print", "println", "error",
				"len", "cap", "make", "new", "append", "panic", "recover",
			},
			MaxImportDepth:    8,
			TypeCheckerBudget: 10000,
		},
		Checkpoint: CheckpointConfig{
			Concurrency:   1,
			MaxAttempts:   3,
			RetryDelay:    5 * time.Second,
			MinRetryDelay: 100 * time.Millisecond,
			DefaultHops:   2,
		},
		Validator: ValidatorConfig{
			BatchSize:     25,
			TimelineLimit: 200,
			MaxEntities:   0,
		},
		Redis: RedisConfig{
			Enabled: false,
			Addr:    "localhost:6379",
			Channel: "agent:events",
		},
		Logging: LoggingConfig{
			DebugMode: false,
		},
	}
}

// Load reads a YAML file at path and merges it over DefaultConfig.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
