package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/beamchat/beamchat-server/internal/auth"
	"github.com/beamchat/beamchat-server/internal/config"
	"github.com/beamchat/beamchat-server/internal/core"
	"github.com/beamchat/beamchat-server/internal/service/groups"
	"github.com/beamchat/beamchat-server/internal/service/messages"
	"github.com/beamchat/beamchat-server/internal/service/users"
)

// Deps bundles the services and coordination primitives the transport
// exposes.
type Deps struct {
	Auth     *auth.Service
	Users    *users.Service
	Messages *messages.Service
	Groups   *groups.Service

	Registry *core.Registry
	Rooms    *core.Rooms
	Relay    *core.Relay
}

// NewServer builds the HTTP server: REST API, health check and the
// WebSocket endpoint.
func NewServer(deps Deps, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", func(c *gin.Context) {
		c.String(stdhttp.StatusOK, "ok")
	})

	wsHandler := NewWSHandler(deps, logger)
	router.GET("/ws", func(c *gin.Context) {
		wsHandler.ServeHTTP(c.Writer, c.Request)
	})

	apiHandlers := NewAPIHandlers(deps.Auth, logger)
	userHandlers := NewUserHandlers(deps.Users, logger)
	messageHandlers := NewMessageHandlers(deps.Messages, logger)
	groupHandlers := NewGroupHandlers(deps.Groups, logger)

	api := router.Group("/api")
	api.POST("/auth/signup", apiHandlers.Signup)
	api.POST("/auth/login", apiHandlers.Login)
	api.POST("/auth/logout", apiHandlers.Logout)

	protected := api.Group("")
	protected.Use(AuthMiddleware(deps.Auth, logger))
	{
		protected.GET("/auth/check", apiHandlers.Check)
		protected.PUT("/auth/update-profile", userHandlers.UpdateProfile)

		protected.GET("/users/contacts", userHandlers.Contacts)
		protected.GET("/users/blocked", userHandlers.Blocked)
		protected.POST("/users/block/:id", userHandlers.Block)
		protected.POST("/users/unblock/:id", userHandlers.Unblock)

		protected.GET("/messages/:id", messageHandlers.Conversation)
		protected.POST("/messages/send/:id", messageHandlers.Send)
		protected.POST("/messages/clear/:id", messageHandlers.Clear)

		protected.POST("/groups", groupHandlers.Create)
		protected.GET("/groups", groupHandlers.List)
		protected.GET("/groups/:id", groupHandlers.Get)
		protected.GET("/groups/:id/messages", groupHandlers.Messages)
		protected.POST("/groups/:id/messages", groupHandlers.SendMessage)
		protected.POST("/groups/:id/clear", groupHandlers.Clear)
		protected.POST("/groups/:id/leave", groupHandlers.Leave)
	}

	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
