package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Log is the process logger used by the command layer. Packages under
// internal/ take their logger as a constructor argument instead.
var Log = zap.NewNop()

type Options struct {
	Debug    bool
	Encoding string // "console" or "json"
}

func New(opts Options) (*zap.Logger, error) {
	var cfg zap.Config
	if opts.Debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	switch opts.Encoding {
	case "":
	case "console", "json":
		cfg.Encoding = opts.Encoding
	default:
		return nil, fmt.Errorf("unknown log encoding %q", opts.Encoding)
	}

	l, err := cfg.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return l, nil
}

func Init(opts Options) error {
	l, err := New(opts)
	if err != nil {
		return err
	}

	Log = l
	return nil
}

func Sync() {
	_ = Log.Sync()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}

	return l
}
