package logging

import (
	"context"
	"log"
	"strings"
	"sync/atomic"
)

var levels = map[string]int32{"info": 0, "warn": 1, "error": 2}

var minLevel atomic.Int32

// SetLevel drops lines below level. Unknown levels fall back to info.
func SetLevel(level string) {
	minLevel.Store(levels[strings.ToLower(strings.TrimSpace(level))])
}

type runIDKey struct{}

// WithRunID stores the analysis run id in ctx so every component logging for the
// run can tag its lines with it.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// RunID extracts the run id stored by WithRunID.
func RunID(ctx context.Context) string {
	if rid, ok := ctx.Value(runIDKey{}).(string); ok {
		return rid
	}
	return ""
}

// Logger provides structured key=value logging for a component
type Logger struct {
	component string
	runID     string
}

// New creates a logger that is not bound to a run
func New(component string) *Logger {
	return &Logger{component: component, runID: "-"}
}

// FromContext creates a logger tagged with the run id found in ctx
func FromContext(ctx context.Context, component string) *Logger {
	l := New(component)
	if rid := RunID(ctx); rid != "" {
		l.runID = rid
	}
	return l
}

// Error logs an error with context
func (l *Logger) Error(operation string, err error) {
	if !enabled("error") {
		return
	}
	log.Printf("[error] component=%s run_id=%s operation=%s error=%v", l.component, l.runID, operation, err)
}

// Errorf logs a formatted error with context
func (l *Logger) Errorf(operation string, format string, args ...interface{}) {
	l.printf("error", operation, format, args...)
}

// Infof logs a formatted info message with context
func (l *Logger) Infof(operation string, format string, args ...interface{}) {
	l.printf("info", operation, format, args...)
}

// Warnf logs a formatted warning with context
func (l *Logger) Warnf(operation string, format string, args ...interface{}) {
	l.printf("warn", operation, format, args...)
}

func (l *Logger) printf(level, operation, format string, args ...interface{}) {
	if !enabled(level) {
		return
	}
	log.Printf("[%s] component=%s run_id=%s operation=%s "+format,
		append([]interface{}{level, l.component, l.runID, operation}, args...)...)
}

func enabled(level string) bool {
	return levels[level] >= minLevel.Load()
}
