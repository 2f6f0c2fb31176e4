package llm

import (
	"context"
	"strings"
)

type providerCtxKey struct{}

// WithProvider 在上下文中标记本次调用使用的模型提供商，供回调打点使用
func WithProvider(ctx context.Context, provider string) context.Context {
	return context.WithValue(ctx, providerCtxKey{}, provider)
}

// ProviderFromContext 读取提供商名称，缺省为 unknown
func ProviderFromContext(ctx context.Context) string {
	if ctx == nil {
		return "unknown"
	}
	s, ok := ctx.Value(providerCtxKey{}).(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return strings.TrimSpace(s)
}
