package infrastructure

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const slowQueryThreshold = 200 * time.Millisecond

// GormLogger forwards gorm's SQL logging to zap.
// Failed statements log at error, slow ones at warn, everything else at debug.
type GormLogger struct {
	log           *zap.Logger
	level         gormlogger.LogLevel
	slowThreshold time.Duration
}

// NewGormLogger creates a GormLogger at gorm's Warn level.
func NewGormLogger(l *zap.Logger, slowThreshold time.Duration) *GormLogger {
	return &GormLogger{
		log:           l,
		level:         gormlogger.Warn,
		slowThreshold: slowThreshold,
	}
}

// LogMode returns a copy of the logger at the given level.
func (g *GormLogger) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	cp := *g
	cp.level = level
	return &cp
}

// Info logs at info level.
func (g *GormLogger) Info(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Info {
		g.log.Sugar().Infof(msg, args...)
	}
}

// Warn logs at warn level.
func (g *GormLogger) Warn(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Warn {
		g.log.Sugar().Warnf(msg, args...)
	}
}

// Error logs at error level.
func (g *GormLogger) Error(_ context.Context, msg string, args ...interface{}) {
	if g.level >= gormlogger.Error {
		g.log.Sugar().Errorf(msg, args...)
	}
}

// Trace logs one executed statement.
func (g *GormLogger) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level <= gormlogger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && g.level >= gormlogger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		g.log.Error("SQL statement failed",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
			zap.Error(err),
		)
	case g.slowThreshold > 0 && elapsed > g.slowThreshold && g.level >= gormlogger.Warn:
		sql, rows := fc()
		g.log.Warn("Slow SQL statement",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", g.slowThreshold),
		)
	case g.level >= gormlogger.Info:
		sql, rows := fc()
		g.log.Debug("SQL statement",
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
		)
	}
}
