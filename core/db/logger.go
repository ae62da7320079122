package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// slogLogger routes gorm's logging through slog so queries carry the
// trace and log fields attached to the request context.
type slogLogger struct {
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

func NewLogger(slowThreshold time.Duration) gormlogger.Interface {
	return &slogLogger{level: gormlogger.Warn, slowThreshold: slowThreshold}
}

func (l *slogLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *slogLogger) Info(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Info {
		slog.InfoContext(ctx, fmt.Sprintf(msg, args...), "component", "gorm")
	}
}

func (l *slogLogger) Warn(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Warn {
		slog.WarnContext(ctx, fmt.Sprintf(msg, args...), "component", "gorm")
	}
}

func (l *slogLogger) Error(ctx context.Context, msg string, args ...any) {
	if l.level >= gormlogger.Error {
		slog.ErrorContext(ctx, fmt.Sprintf(msg, args...), "component", "gorm")
	}
}

func (l *slogLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= gormlogger.Error:
		query, rows := fc()
		slog.ErrorContext(ctx, "query failed",
			"error", err,
			"query", query,
			"rows", rows,
			"duration_ms", elapsed.Milliseconds())
	case l.slowThreshold > 0 && elapsed > l.slowThreshold && l.level >= gormlogger.Warn:
		query, rows := fc()
		slog.WarnContext(ctx, "slow query",
			"query", query,
			"rows", rows,
			"duration_ms", elapsed.Milliseconds())
	case l.level >= gormlogger.Info:
		query, rows := fc()
		slog.DebugContext(ctx, "query",
			"query", query,
			"rows", rows,
			"duration_ms", elapsed.Milliseconds())
	}
}
