package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"taskhub/internal/config"
	"taskhub/internal/microservices/gateway/facade"
	"taskhub/internal/microservices/gateway/middleware"
)

// NewRouter wires the public HTTP surface in front of the backend services
func NewRouter(cfg *config.Config, sender facade.CommandSender) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	auth := NewAuthHandler(facade.NewAuthClient(sender, cfg.AuthQueue))
	tasks := NewTaskHandler(facade.NewTasksClient(sender, cfg.TasksQueue))
	notifications := NewNotificationHandler(facade.NewNotificationsClient(sender, cfg.NotificationsQueue))

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", auth.Register)
		authGroup.POST("/login", auth.Login)
		authGroup.POST("/refresh", auth.Refresh)
	}

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(cfg.JWTSecret))
	{
		protected.GET("/users", auth.ListUsers)

		taskGroup := protected.Group("/tasks")
		{
			taskGroup.POST("", tasks.Create)
			taskGroup.GET("", tasks.List)
			taskGroup.GET("/:id", tasks.Get)
			taskGroup.PATCH("/:id", tasks.Update)
			taskGroup.DELETE("/:id", tasks.Delete)
			taskGroup.POST("/:id/comments", tasks.CreateComment)
			taskGroup.GET("/:id/comments", tasks.ListComments)
			taskGroup.GET("/:id/history", tasks.ListHistory)
		}

		notificationGroup := protected.Group("/notifications")
		{
			notificationGroup.GET("", notifications.List)
			notificationGroup.GET("/unread-count", notifications.CountUnread)
			notificationGroup.PATCH("/mark-as-read", notifications.MarkAsRead)
		}
	}

	return router
}
