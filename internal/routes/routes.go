package routes

import (
	"github.com/gin-gonic/gin"

	"healthtracker/internal/handlers"
	"healthtracker/internal/middleware"
)

type Handlers struct {
	Auth         *handlers.AuthHandler
	Users        *handlers.UserHandler
	Profile      *handlers.ProfileHandler
	Measurements *handlers.MeasurementHandler
	Reports      *handlers.ReportHandler
	Health       gin.HandlerFunc
}

func SetupRoutes(r *gin.Engine, h Handlers, authorizer middleware.Authorizer) *gin.Engine {
	requireAuth := middleware.AuthMiddleware(authorizer)

	// ---- public
	r.GET("/healthz", h.Health)
	r.POST("/users", h.Auth.Register)

	authGroup := r.Group("/auth")
	{
		authGroup.POST("", h.Auth.Login)
		authGroup.POST("/resend-confirmation", h.Auth.ResendConfirmation)
		authGroup.GET("/confirmation/:token", h.Auth.Confirm)
		authGroup.PATCH("/tokens", h.Auth.RefreshTokens)
		authGroup.PATCH("/reset-password", h.Auth.RequestReset)
		authGroup.PATCH("/reset-password-confirm", h.Auth.ConfirmReset)

		// ---- protected
		authGroup.PATCH("", requireAuth, h.Auth.Logout)
		authGroup.PATCH("/credentials", requireAuth, h.Auth.UpdateCredentials)
		authGroup.GET("/sessions", requireAuth, h.Auth.Sessions)
	}

	users := r.Group("/users", requireAuth)
	{
		users.GET("/me", h.Users.Me)
		users.DELETE("/me", h.Users.DeleteMe)
	}

	profile := r.Group("/profile", requireAuth)
	{
		profile.GET("", h.Profile.Get)
		profile.PUT("", h.Profile.Put)
	}

	measurements := r.Group("/measurements", requireAuth)
	{
		measurements.POST("", h.Measurements.Create)
		measurements.GET("", h.Measurements.List)
		measurements.GET("/report", h.Reports.Measurements)
		measurements.GET("/:id", h.Measurements.Get)
		measurements.PUT("/:id", h.Measurements.Update)
		measurements.DELETE("/:id", h.Measurements.Delete)
	}

	return r
}
