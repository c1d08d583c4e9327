// Package router 提供 HTTP 路由配置
package router

import (
	"chaptercraft-api/internal/interfaces/http/handler"

	"github.com/gin-gonic/gin"
)

// RegisterV1Routes 注册 v1 版本路由
func RegisterV1Routes(
	v1 *gin.RouterGroup,
	bookHandler *handler.BookHandler,
	jobHandler *handler.JobHandler,
) {
	// 文档生成
	books := v1.Group("/books")
	{
		books.POST("", bookHandler.CreateBook)
		books.GET("/:jid/progress", bookHandler.GetProgress)
	}

	// 任务管理
	jobs := v1.Group("/jobs")
	{
		jobs.GET("", jobHandler.ListJobs)
		jobs.GET("/stats", jobHandler.GetStats)
		jobs.GET("/:jid", jobHandler.GetJob)
		jobs.DELETE("/:jid", jobHandler.CancelJob)
	}
}
