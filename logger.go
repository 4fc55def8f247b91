package goAuthClient

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field keys that never reach a log sink, whatever logger the caller injects.
var redactedLogKeys = []string{"access_token", "refresh_token", "authorization", "password"}

// NewLogger builds a zap logger from cfg. Development mode writes colored console output,
// production mode writes JSON.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	level := zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	if cfg.Development {
		zapConfig := zap.NewDevelopmentConfig()
		zapConfig.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapConfig.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zapConfig.Level = level
		return zapConfig.Build()
	}

	zapConfig := zap.NewProductionConfig()
	zapConfig.Level = level
	return zapConfig.Build()
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func clientLogger(base *zap.Logger) *zap.Logger {
	if base == nil {
		return zap.NewNop()
	}
	return base.Named("goauthclient").WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return redactCore(core, redactedLogKeys...)
	}))
}

// redactCore drops fields whose key matches one of dropKeys, ignoring case, before writing
// to core.
func redactCore(core zapcore.Core, dropKeys ...string) zapcore.Core {
	drop := make(map[string]struct{}, len(dropKeys))
	for _, key := range dropKeys {
		if key != "" {
			drop[strings.ToLower(key)] = struct{}{}
		}
	}
	return redactingCore{Core: core, drop: drop}
}

type redactingCore struct {
	zapcore.Core
	drop map[string]struct{}
}

func (c redactingCore) With(fields []zapcore.Field) zapcore.Core {
	return redactingCore{
		Core: c.Core.With(c.filter(fields)),
		drop: c.drop,
	}
}

func (c redactingCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c redactingCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	return c.Core.Write(ent, c.filter(fields))
}

func (c redactingCore) filter(fields []zapcore.Field) []zapcore.Field {
	if len(fields) == 0 || len(c.drop) == 0 {
		return fields
	}
	out := make([]zapcore.Field, 0, len(fields))
	for _, field := range fields {
		if _, ok := c.drop[strings.ToLower(field.Key)]; ok {
			continue
		}
		out = append(out, field)
	}
	return out
}
