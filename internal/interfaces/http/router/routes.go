package router

import (
	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由，未装配的处理器对应路由不注册
func RegisterV1Routes(v1 *gin.RouterGroup, h Handlers) {
	// 博客生成
	if h.Blog != nil {
		blog := v1.Group("/blog")
		{
			blog.POST("/generate", h.Blog.Generate)
			blog.GET("/repositories/:id/posts", h.Blog.ListPosts)
		}
	}

	// 仓库同步设置
	if h.Settings != nil {
		settings := v1.Group("/settings")
		{
			settings.GET("/repositories/:id", h.Settings.Get)
			settings.PUT("/repositories/:id", h.Settings.Update)
		}
	}

	// 手动同步
	if h.Sync != nil {
		v1.POST("/sync/repositories/:id", h.Sync.Trigger)
	}
}
