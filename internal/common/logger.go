/*
file: goredis/internal/common/logger.go

Wraps go.uber.org/zap behind the teacher repo's level vocabulary
(Info/Warn/Error/Debug) so call sites across the codebase don't touch
zap directly. The level is adjustable at runtime through an
AtomicLevel, set once at startup from --loglevel.
*/
package common

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Logger struct {
	level  zap.AtomicLevel
	sugar  *zap.SugaredLogger
}

// NewLogger builds a console-encoded zap logger at the given level
// name (debug, info, warning/warn, error). Unknown names fall back to
// info.
func NewLogger(levelName string) *Logger {
	level := parseLevel(levelName)
	atom := zap.NewAtomicLevelAt(level)

	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encoder := zapcore.NewConsoleEncoder(cfg)

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stderr)), atom)
	zl := zap.New(core)

	return &Logger{level: atom, sugar: zl.Sugar()}
}

func parseLevel(name string) zapcore.Level {
	switch strings.ToLower(name) {
	case "debug":
		return zapcore.DebugLevel
	case "warning", "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// SetLevel changes the active logging level at runtime.
func (l *Logger) SetLevel(levelName string) {
	l.level.SetLevel(parseLevel(levelName))
}

func (l *Logger) Info(format string, v ...interface{})  { l.sugar.Infof(format, v...) }
func (l *Logger) Warn(format string, v ...interface{})  { l.sugar.Warnf(format, v...) }
func (l *Logger) Error(format string, v ...interface{}) { l.sugar.Errorf(format, v...) }
func (l *Logger) Debug(format string, v ...interface{}) { l.sugar.Debugf(format, v...) }

func (l *Logger) Sync() { _ = l.sugar.Sync() }
