package app

import (
	"quiz_bot_backend/docs"
	"quiz_bot_backend/internal/config"
	"quiz_bot_backend/internal/middleware"
	"quiz_bot_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 公共路由(无需登录)
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/link", c.user.Link)
	}

	// 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg), middleware.ActivityMiddleware(repos.user))
	{
		authGroup.GET("/profile", c.user.Profile)

		// 测验会话
		session := authGroup.Group("/session")
		{
			session.POST("/start", c.session.Start)
			session.POST("/count", c.session.SupplyCount)
			session.POST("/answer/selection", c.session.SubmitSelection)
			session.POST("/answer/text", c.session.SubmitText)
			session.POST("/finish", c.session.Finish)
			session.GET("/ws", c.session.ServeWS)
		}

		// 题库管理
		questions := authGroup.Group("/questions")
		{
			questions.GET("", c.question.List)
			questions.POST("", c.question.Create)
			questions.POST("/import", c.question.Import)
			questions.GET("/:id", c.question.Get)
			questions.PUT("/:id", c.question.Update)
			questions.DELETE("/:id", c.question.Delete)
			questions.POST("/:id/solve", c.question.Solve)
		}

		// 测验历史
		authGroup.GET("/history", c.history.List)
	}
}
