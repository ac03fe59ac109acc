package notify

import (
	"context"

	"somp/ordersync/pkg/logger"
)

// Sink 通知接收器
// 调和器把事件的操作人元数据转成文案后投递到这里；宿主可接 Toast、系统通知等
type Sink interface {
	Notify(ctx context.Context, text string)
}

// LoggerSink 日志通知实现（无 UI 宿主时的缺省）
type LoggerSink struct {
	log logger.Logger
}

// NewLoggerSink 创建日志通知接收器
func NewLoggerSink(log logger.Logger) *LoggerSink {
	return &LoggerSink{log: log}
}

// Notify 输出通知文案
func (s *LoggerSink) Notify(ctx context.Context, text string) {
	s.log.Infof(ctx, "[Notify] %s", text)
}

// NopSink 空通知实现（测试用）
type NopSink struct{}

// Notify 丢弃通知
func (NopSink) Notify(ctx context.Context, text string) {}
