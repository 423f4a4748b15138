// Package log provides structured logging for ivm using zap.
package log

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger with ivm-specific field helpers.
type Logger struct {
	*zap.Logger
}

var (
	// L is the global logger instance.
	L    *Logger
	once sync.Once
)

// Init initializes the global logger with the given configuration. Safe to
// call multiple times; only the first call takes effect.
func Init(debug bool) {
	once.Do(func() {
		L = New(debug)
	})
}

// New creates a new Logger instance.
func New(debug bool) *Logger {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewNop()
	}

	return &Logger{Logger: logger}
}

// NewNop creates a no-op logger for testing.
func NewNop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

// WithRun returns a logger with a run-correlation id preset, so every line
// emitted during one CLI invocation can be grepped out of a shared log
// stream.
func (l *Logger) WithRun(runID string) *Logger {
	return &Logger{Logger: l.Logger.With(zap.String("run", runID))}
}

// CallID is a zap field for an extern call id.
func CallID(id uint64) zap.Field { return zap.Uint64("call_id", id) }

// MemIndex is a zap field for a memory pool offset.
func MemIndex(i int) zap.Field { return zap.Int("mem_index", i) }

// Hex formats a uint64 as a 0x-prefixed hex string for logging.
func Hex(v uint64) string {
	return "0x" + hexString(v)
}

func hexString(v uint64) string {
	const digits = "0123456789abcdef"
	if v == 0 {
		return "0"
	}
	buf := make([]byte, 16)
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = digits[v&0xf]
		v >>= 4
	}
	return string(buf[i:])
}

// StepResult records the outcome of one linear processing stage, the way a
// guard-check or compile pipeline reports each of its steps.
type StepResult struct {
	Step string
	Err  error
}

// RunSteps executes steps in order, logging each as it starts and
// completes, and stops at the first failing step. It returns the results
// for every step attempted, including the failing one.
func RunSteps(l *Logger, steps map[string]func() error, order []string) []StepResult {
	results := make([]StepResult, 0, len(order))
	for _, name := range order {
		fn, ok := steps[name]
		if !ok {
			continue
		}
		l.Debug("step starting", zap.String("step", name))
		err := fn()
		results = append(results, StepResult{Step: name, Err: err})
		if err != nil {
			l.Error("step failed", zap.String("step", name), zap.Error(err))
			return results
		}
		l.Debug("step complete", zap.String("step", name))
	}
	return results
}
