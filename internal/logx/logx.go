// Package logx provides the single configurable warning sink shared by the Loader,
// Lowerer, and Simulator: fatal errors abort with a descriptive line, non-fatal errors
// (malformed lines, degraded roles, out-of-range values) are logged and processing
// continues.
package logx

import (
	"fmt"
	"os"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Sink is the warning/fatal funnel used across the toolchain. A zero Sink is not
// usable; construct one with New or NewDebug. The Simulator drives Warnf/Debugf from
// every worker goroutine concurrently, so the warning count is tracked atomically.
type Sink struct {
	l     *zap.Logger
	count int64
}

// New builds a production Sink writing leveled, human-readable lines to stderr.
func New() *Sink {
	return newSink(zapcore.InfoLevel)
}

// NewDebug builds a Sink with debug-level tracing enabled (the toolchain's -debug flag).
func NewDebug() *Sink {
	return newSink(zapcore.DebugLevel)
}

func newSink(level zapcore.Level) *Sink {
	cfg := zap.NewDevelopmentEncoderConfig()
	cfg.TimeKey = ""
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(cfg), zapcore.Lock(os.Stderr), level)
	return &Sink{l: zap.New(core)}
}

// Warnf records a non-fatal warning (a malformed line, a degraded role, an
// out-of-range value). Processing continues after this call.
func (s *Sink) Warnf(format string, args ...interface{}) {
	atomic.AddInt64(&s.count, 1)
	s.l.Warn(fmt.Sprintf(format, args...))
}

// Debugf records a trace-level message, only visible when the sink was built with
// NewDebug.
func (s *Sink) Debugf(format string, args ...interface{}) {
	s.l.Debug(fmt.Sprintf(format, args...))
}

// Fatalf records a fatal error (unreadable input, a malformed document, a missing
// field) and terminates the process with the given exit code.
func (s *Sink) Fatalf(code int, format string, args ...interface{}) {
	s.l.Error(fmt.Sprintf(format, args...))
	_ = s.l.Sync()
	os.Exit(code)
}

// WarningCount reports how many warnings have been recorded so far.
func (s *Sink) WarningCount() int {
	return int(atomic.LoadInt64(&s.count))
}

// Sync flushes any buffered log entries.
func (s *Sink) Sync() error {
	return s.l.Sync()
}
