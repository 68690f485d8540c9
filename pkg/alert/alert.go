// Package alert 运维错误通道：记录日志并上报 Sentry。
package alert

import (
	"time"

	"github.com/getsentry/sentry-go"
	"go.uber.org/zap"

	"watch-reserve/backend/config"
)

// Reporter 运维错误上报接口
type Reporter interface {
	Report(err error, msg string, tags map[string]string)
}

// Init 初始化 Sentry；DSN 为空时返回 false，不做任何上报
func Init(cfg *config.SentryConfig, logger *zap.Logger) bool {
	if cfg.DSN == "" {
		return false
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		SampleRate:       cfg.SampleRate,
		AttachStacktrace: true,
	}); err != nil {
		logger.Error("Sentry 初始化失败", zap.Error(err))
		return false
	}
	logger.Info("Sentry 已启用", zap.String("environment", cfg.Environment))
	return true
}

// Flush 等待缓冲中的事件发送完毕
func Flush() {
	sentry.Flush(2 * time.Second)
}

type sentryReporter struct {
	logger  *zap.Logger
	enabled bool
}

// NewReporter 创建上报器；enabled 为 false 时仅写日志
func NewReporter(logger *zap.Logger, enabled bool) Reporter {
	return &sentryReporter{logger: logger, enabled: enabled}
}

func (r *sentryReporter) Report(err error, msg string, tags map[string]string) {
	fields := make([]zap.Field, 0, len(tags)+1)
	fields = append(fields, zap.Error(err))
	for k, v := range tags {
		fields = append(fields, zap.String(k, v))
	}
	r.logger.Error(msg, fields...)

	if !r.enabled {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		scope.SetExtra("message", msg)
		sentry.CaptureException(err)
	})
}
