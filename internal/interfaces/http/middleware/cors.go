package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"np-blogger/internal/config"
)

var (
	defaultCORSMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	defaultCORSHeaders = []string{"Origin", "Content-Type", "Accept", RequestIDHeader}
)

// CORS 按 security.cors 配置跨域。未列出来源时允许任意来源但不带凭证。
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods:  orDefault(cfg.AllowedMethods, defaultCORSMethods),
		AllowHeaders:  withHeader(orDefault(cfg.AllowedHeaders, defaultCORSHeaders), RequestIDHeader),
		ExposeHeaders: []string{RequestIDHeader, TraceIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || contains(cfg.AllowedOrigins, "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = true
	}
	return cors.New(c)
}

func orDefault(v, def []string) []string {
	if len(v) == 0 {
		return def
	}
	return v
}

// withHeader 保证请求 ID 头始终允许，客户端才能串联日志
func withHeader(headers []string, h string) []string {
	if contains(headers, h) {
		return headers
	}
	return append(append([]string{}, headers...), h)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
