package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// 默认给一个 Nop Logger，测试等场景不强制初始化
var Logger = zap.NewNop()

// InitLogger 初始化全局 zap Logger，logLevel 解析失败时回退到 info
func InitLogger(logLevel string) {
	config := zap.NewProductionConfig()
	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		level = zapcore.InfoLevel
	}
	config.Level.SetLevel(level)
	Logger, _ = config.Build()
}
