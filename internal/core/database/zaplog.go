package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

const slowSQL = 200 * time.Millisecond

type zapGorm struct {
	l     *zap.Logger
	level logger.LogLevel
	slow  time.Duration
}

// ZapLogger routes gorm's log into l under the "gorm" name. Failed
// statements go out at error level and statements slower than 200ms at
// warn. Every other statement is logged only when level is "info". Missing
// rows are not errors.
func ZapLogger(l *zap.Logger, level string) logger.Interface {
	return &zapGorm{l: l.Named("gorm"), level: logLevel(level), slow: slowSQL}
}

func (z *zapGorm) LogMode(level logger.LogLevel) logger.Interface {
	cp := *z
	cp.level = level
	return &cp
}

func (z *zapGorm) Info(_ context.Context, msg string, args ...any) {
	if z.level >= logger.Info {
		z.l.Info(fmt.Sprintf(msg, args...), zap.String("caller", utils.FileWithLineNum()))
	}
}

func (z *zapGorm) Warn(_ context.Context, msg string, args ...any) {
	if z.level >= logger.Warn {
		z.l.Warn(fmt.Sprintf(msg, args...), zap.String("caller", utils.FileWithLineNum()))
	}
}

func (z *zapGorm) Error(_ context.Context, msg string, args ...any) {
	if z.level >= logger.Error {
		z.l.Error(fmt.Sprintf(msg, args...), zap.String("caller", utils.FileWithLineNum()))
	}
}

func (z *zapGorm) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if z.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	fields := func() []zap.Field {
		sql, rows := fc()
		return []zap.Field{
			zap.String("sql", sql),
			zap.Int64("rows", rows),
			zap.Duration("elapsed", elapsed),
			zap.String("caller", utils.FileWithLineNum()),
		}
	}

	switch {
	case err != nil && z.level >= logger.Error && !errors.Is(err, gorm.ErrRecordNotFound):
		z.l.Error("sql failed", append(fields(), zap.Error(err))...)
	case z.slow > 0 && elapsed > z.slow && z.level >= logger.Warn:
		z.l.Warn("slow sql", append(fields(), zap.Duration("threshold", z.slow))...)
	case z.level >= logger.Info:
		z.l.Info("sql", fields()...)
	}
}
