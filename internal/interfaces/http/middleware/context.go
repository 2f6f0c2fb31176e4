// Package middleware 提供 HTTP 中间件
package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"np-blogger/pkg/logger"
)

// 响应头
const (
	RequestIDHeader = "X-Request-ID"
	TraceIDHeader   = "X-Trace-ID"
)

// gin.Context 中的键，dto 组装响应时读取
const (
	ContextRequestID    = "request_id"
	ContextTraceID      = "trace_id"
	ContextRepositoryID = "repository_id"
)

// RequestID 沿用调用方的 X-Request-ID，缺省时生成
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		c.Set(ContextRequestID, id)
		c.Header(RequestIDHeader, id)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), logger.RequestIDKey, id))
		c.Next()
	}
}

// Trace otelgin 链路追踪，span 以路由模板命名
func Trace(serviceName string) gin.HandlerFunc {
	return otelgin.Middleware(serviceName)
}

// TraceContext 将 trace/span id 写入日志上下文与响应头，并把请求 ID 记到 span 上
func TraceContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		span := trace.SpanFromContext(ctx)
		sc := span.SpanContext()
		if sc.IsValid() {
			traceID := sc.TraceID().String()
			c.Set(ContextTraceID, traceID)
			c.Header(TraceIDHeader, traceID)
			ctx = logger.WithContext(ctx, logger.TraceIDKey, traceID)
			ctx = logger.WithContext(ctx, logger.SpanIDKey, sc.SpanID().String())
			c.Request = c.Request.WithContext(ctx)
			if id := c.GetString(ContextRequestID); id != "" {
				span.SetAttributes(attribute.String("http.request_id", id))
			}
		}
		c.Next()
	}
}

// RepositoryContext 路由含 :id 时把仓库 ID 放入日志上下文与当前 span。
// 非法 ID 不在此拦截，由处理器返回 400。
func RepositoryContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Param("id")
		if raw == "" {
			c.Next()
			return
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			c.Next()
			return
		}
		c.Set(ContextRepositoryID, id)
		ctx := logger.WithContext(c.Request.Context(), logger.RepositoryIDKey, id)
		trace.SpanFromContext(ctx).SetAttributes(attribute.Int64("repository.id", id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
