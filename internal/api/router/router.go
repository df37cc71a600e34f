package router

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"

	"github.com/hospitalcore/notification-service/internal/api/handlers/notification"
	"github.com/hospitalcore/notification-service/internal/middlewares"
)

func New(handler *notification.Handler, serviceKey string) *ginext.Engine {
	e := ginext.New()
	e.Use(middlewares.CORSMiddleware())
	e.Use(ginext.Logger())
	e.Use(ginext.Recovery())

	e.GET("/health", func(c *ginext.Context) {
		c.JSON(http.StatusOK, map[string]string{"status": "OK"})
	})

	api := e.Group("/api/notifications")
	api.Use(middlewares.Auth(serviceKey))
	{
		api.POST("/", handler.Create)
		api.GET("/", handler.List)
		api.GET("/:id", handler.Get)
		api.GET("/:id/status", handler.GetStatus)
		api.DELETE("/:id", handler.Delete)
	}

	return e
}
