package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"watch-reserve/backend/config"
)

// NewLogger 根据配置初始化 Zap 日志实例。
// env 取自 sentry.environment，作为固定字段写入每条日志，便于与告警事件对照。
func NewLogger(cfg *config.LogConfig, env string) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("无效的日志级别 %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05.000")
	default:
		zapCfg = zap.NewProductionConfig()
		zapCfg.EncoderConfig.TimeKey = "ts"
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		// 状态写入高峰期同一条日志可能每秒数百次，超出部分抽样
		zapCfg.Sampling = &zap.SamplingConfig{Initial: 100, Thereafter: 20}
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	fields := []zap.Field{zap.String("service", "watch-reserve")}
	if env != "" {
		fields = append(fields, zap.String("env", env))
	}

	logger, err := zapCfg.Build(
		zap.Fields(fields...),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, fmt.Errorf("初始化日志器失败: %w", err)
	}

	return logger, nil
}
