// Package logging builds the process logger and the request logging middleware.
package logging

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rollbar/rollbar-go"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dsa-patterns/dsa-api/internal/config"
)

// New returns a zap logger. Error entries are forwarded to Rollbar when a token is configured.
func New(cfg *config.Config) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.IsProduction() {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	if lvl, err := zapcore.ParseLevel(cfg.LogLevel); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}

	var opts []zap.Option
	if cfg.RollbarToken != "" {
		rollbar.SetToken(cfg.RollbarToken)
		rollbar.SetEnvironment(cfg.Env)
		rollbar.SetServerRoot("github.com/dsa-patterns/dsa-api")
		opts = append(opts, zap.Hooks(rollbarHook))
	}
	return zc.Build(opts...)
}

func rollbarHook(e zapcore.Entry) error {
	switch e.Level {
	case zapcore.ErrorLevel:
		rollbar.Error(e.Message, map[string]interface{}{"caller": e.Caller.TrimmedPath()})
	case zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		rollbar.Critical(e.Message, map[string]interface{}{"caller": e.Caller.TrimmedPath()})
	}
	return nil
}

// Close flushes buffered log entries and pending Rollbar items.
func Close(l *zap.Logger) {
	_ = l.Sync()
	rollbar.Wait()
}

// RequestLogger logs one line per request with status, size and latency.
func RequestLogger(l *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("latency", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote", r.RemoteAddr),
				}
				switch {
				case ww.Status() >= 500:
					l.Error("request", fields...)
				case ww.Status() >= 400:
					l.Warn("request", fields...)
				default:
					l.Info("request", fields...)
				}
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
