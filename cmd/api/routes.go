package main

import (
	"voiceagent-platform/internal/httpapi"
	"voiceagent-platform/internal/rbac"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhooks (public).
	// NOTE: These endpoints should be protected by provider signature
	// validation in production.
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/transfer", h.TransferWebhook)
		webhooks.POST("/call-status", h.CallStatusWebhook)
	}

	// AUTH routes (token issuance).
	// NOTE: Placeholder login route; real credential validation is not implemented.
	r.POST("/v1/auth/login", h.Login)

	// protected API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		callRoutes := v1.Group("/calls")
		callRoutes.Use(rbac.RequireAgency())
		callRoutes.Use(rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAgencyAdmin, rbac.RoleClientUser))
		{
			callRoutes.POST("/dial", h.DialCall)
			callRoutes.POST("/:call_id/control", h.ControlCall)
		}
	}
}
