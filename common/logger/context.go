package logger

import (
	"context"
)

type ctxKey int

const (
	traceIDKey ctxKey = iota
	sourceKey
)

// TraceID 取 context 中的 trace_id，没有则返回空串
func TraceID(ctx context.Context) string {
	return ctxString(ctx, traceIDKey)
}

// WithTraceID 注入 trace_id，*Ctx 日志函数会自动带上
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey, traceID)
}

// Source 开奖触发来源：schedule|http|cli
func Source(ctx context.Context) string {
	return ctxString(ctx, sourceKey)
}

func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey, source)
}

func ctxString(ctx context.Context, k ctxKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(k).(string)
	return v
}
