package api

import (
	"github.com/fyerfyer/doc-convert-system/api/handler"
	"github.com/fyerfyer/doc-convert-system/api/middleware"
	"github.com/fyerfyer/doc-convert-system/api/model"
	"github.com/gin-gonic/gin"
)

// SetupRouter 设置API路由
// 配置所有的API端点并应用中间件
func SetupRouter(
	convertHandler *handler.ConvertHandler,
	jobHandler *handler.JobHandler,
	taskHandler *handler.TaskHandler,
) *gin.Engine {
	// 注册自定义校验规则
	if err := model.RegisterValidations(); err != nil {
		middleware.GetLogger().WithField("error", err.Error()).Warn("Failed to register custom validations")
	}

	// 创建默认的Gin路由引擎
	router := gin.Default()

	// 应用全局中间件
	router.Use(middleware.Logger())
	router.Use(middleware.ErrorMiddleware())
	router.Use(middleware.SetTraceID())

	// 在调试模式下记录请求体
	if gin.Mode() == gin.DebugMode {
		router.Use(middleware.RequestBodyLog())
	}

	// 创建API分组
	api := router.Group("/api")
	{
		// 单文档提取 - POST /api/extract
		api.POST("/extract", convertHandler.ExtractDocument)

		// 目录批量转换 - POST /api/convert
		api.POST("/convert", convertHandler.ConvertDirectory)

		// 目录合并 - POST /api/merge
		api.POST("/merge", convertHandler.MergeDirectory)

		// 作业管理API
		jobGroup := api.Group("/jobs")
		{
			// 获取作业列表 - GET /api/jobs
			jobGroup.GET("", jobHandler.ListJobs)

			// 获取作业状态 - GET /api/jobs/:id
			jobGroup.GET("/:id", jobHandler.GetJob)

			// 获取作业相关队列任务 - GET /api/jobs/:id/tasks
			if taskHandler != nil {
				jobGroup.GET("/:id/tasks", taskHandler.GetJobTasks)
			}

			// 删除作业 - DELETE /api/jobs/:id
			jobGroup.DELETE("/:id", jobHandler.DeleteJob)
		}

		// 队列任务API
		if taskHandler != nil {
			api.GET("/tasks/:id", taskHandler.GetTaskStatus)
		}

		// 健康检查API
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status": "ok",
			})
		})
	}

	return router
}

// Cors 跨域资源共享中间件
// 如果需要支持跨域请求，可以启用此中间件
func Cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Trace-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
