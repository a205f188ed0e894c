// Package logger builds the process zap logger and carries request-scoped
// children through contexts.
package logger

import (
	"context"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures the logger.
type Options struct {
	Level   string
	Format  string // "json" or "console"
	Service string

	// File enables a rotating log file next to stdout.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Writer replaces stdout, mostly for tests.
	Writer io.Writer
}

// New builds a logger from opt. Unknown levels fall back to info.
func New(opt Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.TrimSpace(opt.Level))
	if err != nil || opt.Level == "" {
		level = zapcore.InfoLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	if strings.EqualFold(opt.Format, "console") {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encCfg)
	}

	var out io.Writer = os.Stdout
	if opt.Writer != nil {
		out = opt.Writer
	}
	sinks := []zapcore.WriteSyncer{zapcore.AddSync(out)}
	if opt.File != "" {
		sinks = append(sinks, zapcore.AddSync(&lumberjack.Logger{
			Filename:   opt.File,
			MaxSize:    orDefault(opt.MaxSizeMB, 50),
			MaxBackups: orDefault(opt.MaxBackups, 5),
			MaxAge:     orDefault(opt.MaxAgeDays, 28),
			Compress:   true,
		}))
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(sinks...), zap.NewAtomicLevelAt(level))
	log := zap.New(core, zap.AddCaller())
	if opt.Service != "" {
		log = log.With(zap.String("service", opt.Service))
	}
	return log, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}

type ctxKey struct{}

// WithContext stores l in ctx.
func WithContext(ctx context.Context, l *zap.Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// C returns the logger stored in ctx, or the global zap logger.
func C(ctx context.Context) *zap.Logger {
	if ctx != nil {
		if l, ok := ctx.Value(ctxKey{}).(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return zap.L()
}
