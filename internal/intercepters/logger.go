// Package intercepters holds the gRPC unary interceptors of the ledger
// server: zap logging, JWT identity and the trusted subnet guard.
package intercepters

import (
	"context"
	"fmt"

	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/logging"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// badKey names a trailing value that came without a key.
const badKey = "!BADKEY"

// InterceptorLogger adapts zap to the go-grpc-middleware logging interface.
// Levels unknown to zap are logged as errors.
func InterceptorLogger(l *zap.Logger) logging.Logger {
	l = l.WithOptions(zap.AddCallerSkip(1))

	return logging.LoggerFunc(func(_ context.Context, lvl logging.Level, msg string, kv ...any) {
		l.Log(zapLevel(lvl), msg, zapFields(kv)...)
	})
}

// LogOptions logs one line per finished call, payloads excluded.
func LogOptions() []logging.Option {
	return []logging.Option{
		logging.WithLogOnEvents(logging.FinishCall),
	}
}

func zapLevel(lvl logging.Level) zapcore.Level {
	switch lvl {
	case logging.LevelDebug:
		return zapcore.DebugLevel
	case logging.LevelInfo:
		return zapcore.InfoLevel
	case logging.LevelWarn:
		return zapcore.WarnLevel
	default:
		return zapcore.ErrorLevel
	}
}

func zapFields(kv []any) []zap.Field {
	fields := make([]zap.Field, 0, (len(kv)+1)/2)

	for i := 0; i < len(kv); i += 2 {
		if i+1 == len(kv) {
			fields = append(fields, zap.Any(badKey, kv[i]))
			break
		}

		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprint(kv[i])
		}
		fields = append(fields, zap.Any(key, kv[i+1]))
	}

	return fields
}
