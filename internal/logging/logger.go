// Package logging provides category-scoped structured logging for the
// knowledge graph core, backed by zap. Every subsystem logs through a
// Category so operators can tune verbosity per concern without touching
// call sites. Many store, temporal and validator methods wrap their bodies
// in a StartTimer latency span.
package logging

import (
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category identifies the subsystem emitting a log line.
type Category string

const (
	CategoryBoot       Category = "boot"
	CategoryNormalize  Category = "normalize"
	CategoryBuilders   Category = "builders"
	CategoryScoring    Category = "scoring"
	CategoryGraphStore Category = "graphstore"
	CategoryRelStore   Category = "relstore"
	CategoryTemporal   Category = "temporal"
	CategoryCheckpoint Category = "checkpoint"
	CategoryValidator  Category = "validator"
	CategoryFacade     Category = "facade"
	CategoryEvents     Category = "events"
)

var (
	mu      sync.RWMutex
	base    *zap.Logger
	enabled = map[Category]bool{}
	debug   bool
)

// Initialize installs the process-wide base logger. Safe to call more than
// once; the most recent call wins.
func Initialize(logger *zap.Logger, debugMode bool, categories map[Category]bool) {
	mu.Lock()
	defer mu.Unlock()
	base = logger
	debug = debugMode
	enabled = categories
}

func current() *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if base != nil {
		return base
	}
	l, _ := zap.NewProduction()
	return l
}

// IsCategoryEnabled reports whether Category logging is active. Absent
// entries default to enabled so a fresh deployment logs everything until
// explicitly quieted.
func IsCategoryEnabled(c Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	if enabled == nil {
		return true
	}
	v, ok := enabled[c]
	if !ok {
		return true
	}
	return v
}

// Get returns a zap.Logger scoped to the given category.
func Get(c Category) *zap.Logger {
	return current().With(zap.String("category", string(c)))
}

// Debugf logs a debug-level line for the category, honoring the debug flag.
func Debugf(c Category, format string, args ...interface{}) {
	mu.RLock()
	d := debug
	mu.RUnlock()
	if !d || !IsCategoryEnabled(c) {
		return
	}
	Get(c).Sugar().Debugf(format, args...)
}

// Infof logs an info-level line for the category.
func Infof(c Category, format string, args ...interface{}) {
	if !IsCategoryEnabled(c) {
		return
	}
	Get(c).Sugar().Infof(format, args...)
}

// Warnf logs a warn-level line for the category.
func Warnf(c Category, format string, args ...interface{}) {
	Get(c).Sugar().Warnf(format, args...)
}

// Errorf logs an error-level line for the category. Per the error-handling
// design, sensitive parameter values should only be interpolated here when
// debug mode is on at the call site.
func Errorf(c Category, format string, args ...interface{}) {
	Get(c).Sugar().Errorf(format, args...)
}

// Timer measures and logs the duration of one operation on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing op within category c.
func StartTimer(c Category, op string) *Timer {
	return &Timer{category: c, op: op, start: time.Now()}
}

// Stop logs the elapsed duration at debug level and returns it.
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	if IsCategoryEnabled(t.category) {
		Get(t.category).Debug("operation complete",
			zap.String("op", t.op),
			zap.Duration("duration", d),
		)
	}
	return d
}

// Sync flushes the base logger; call during graceful shutdown.
func Sync() {
	if l := current(); l != nil {
		_ = l.Sync()
	}
}

// NewCLILogger builds the zap.Logger used by cmd/graphd, mirroring the
// production-config-plus-debug-override idiom used at the CLI layer.
func NewCLILogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
