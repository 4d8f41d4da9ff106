package routes

import (
	"github.com/gin-gonic/gin"

	"scipedia/internal/handlers"
)

// AppHandlers bundles the constructed handlers for registration.
type AppHandlers struct {
	AgentHandler   *handlers.AgentHandler
	UserHandler    *handlers.UserHandler
	GeneralHandler *handlers.GeneralHandler
}

// RegisterRoutes mounts the full HTTP surface. Paths are part of the public
// contract and must not change.
func RegisterRoutes(ginRouter *gin.Engine, appHandlers *AppHandlers) {
	appHandlers.AgentHandler.RegisterRoutes(ginRouter)
	appHandlers.UserHandler.RegisterRoutes(ginRouter)
	appHandlers.GeneralHandler.RegisterRoutes(ginRouter)
}
