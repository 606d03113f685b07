package app

import (
	"github.com/gin-gonic/gin"

	"github.com/admitlens/core/internal/modules/contact"
	"github.com/admitlens/core/internal/modules/essay"
	"github.com/admitlens/core/internal/modules/health"
	"github.com/admitlens/core/internal/pkg/response"
)

func (a *App) registerRoutes(sessionRepo essay.Repository, adapter essay.Generator) {
	r := a.router

	r.NoRoute(func(c *gin.Context) {
		response.Error(c, response.NotFound(""))
	})

	r.GET("/", func(c *gin.Context) {
		response.OK(c, gin.H{
			"name":    "admitlens-core",
			"version": "1.0.0",
		})
	})

	api := r.Group("/api")

	health.RegisterRoutes(api, a.db)

	essaySvc := essay.NewService(sessionRepo, adapter, a.logger)
	essay.NewHandler(essaySvc, a.limiter).RegisterRoutes(api)

	contact.NewHandler(contact.NewMongoStore(a.db), a.limiter).RegisterRoutes(api)
}
