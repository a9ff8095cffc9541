// Package logger builds the process-wide zap logger.
package logger

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config configures the logger.
type Config struct {
	Level      string // debug, info, warn, error
	Encoding   string // json or console
	OutputPath string // empty = stdout
	Service    string // added to every entry as "service"
	Env        string // added to every entry as "env"
	// Development adds caller info and stack traces on errors.
	Development bool
}

// ParseLevel maps a level name to a zap level. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	if strings.TrimSpace(name) == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(strings.TrimSpace(name)))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", name)
	}
	return lvl, nil
}

func encoderConfig(console bool) zapcore.EncoderConfig {
	enc := zap.NewProductionEncoderConfig()
	enc.TimeKey = "timestamp"
	enc.EncodeTime = zapcore.ISO8601TimeEncoder
	enc.EncodeDuration = zapcore.MillisDurationEncoder
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	if console {
		enc.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc.ConsoleSeparator = "  "
	}
	return enc
}

// New builds a logger from cfg. An unknown level falls back to info and is
// reported through the new logger; unknown encodings fall back to json.
func New(cfg Config) (*zap.Logger, error) {
	lvl, levelErr := ParseLevel(cfg.Level)

	console := strings.EqualFold(cfg.Encoding, "console")
	var encoder zapcore.Encoder
	if console {
		encoder = zapcore.NewConsoleEncoder(encoderConfig(true))
	} else {
		encoder = zapcore.NewJSONEncoder(encoderConfig(false))
	}

	out := cfg.OutputPath
	if out == "" {
		out = "stdout"
	}
	sink, closeSink, err := zap.Open(out)
	if err != nil {
		return nil, fmt.Errorf("failed to open log output %s: %w", out, err)
	}
	errSink, _, err := zap.Open("stderr")
	if err != nil {
		closeSink()
		return nil, fmt.Errorf("failed to open log error output: %w", err)
	}

	var core zapcore.Core = zapcore.NewCore(encoder, sink, zap.NewAtomicLevelAt(lvl))
	opts := []zap.Option{zap.ErrorOutput(errSink)}
	if cfg.Development {
		opts = append(opts, zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel), zap.Development())
	} else {
		// repeated identical entries (e.g. rate-limited requests) are sampled
		core = zapcore.NewSamplerWithOptions(core, time.Second, 100, 100)
	}

	var fields []zap.Field
	if cfg.Service != "" {
		fields = append(fields, zap.String("service", cfg.Service))
	}
	if cfg.Env != "" {
		fields = append(fields, zap.String("env", cfg.Env))
	}
	if len(fields) > 0 {
		opts = append(opts, zap.Fields(fields...))
	}

	log := zap.New(core, opts...)
	if levelErr != nil {
		log.Warn("Invalid log level, using info", zap.String("configured_level", cfg.Level), zap.Error(levelErr))
	}
	return log, nil
}
