package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xxxsen/accountd/internal/middleware"
)

type RouterDeps struct {
	Auth       *AuthHandler
	Otp        *OtpHandler
	Accounts   *AccountHandler
	JWTSecret  []byte
	AdminToken string
	OtpWindow  time.Duration
	OtpBurst   int
	KeyWindow  time.Duration
	KeyBurst   int
}

func RegisterRoutes(api *gin.RouterGroup, deps RouterDeps) {
	api.POST("/auth/transport-key", middleware.RateLimit(deps.KeyWindow, deps.KeyBurst), deps.Auth.TransportKey)
	api.POST("/auth/register", deps.Auth.Register)
	api.POST("/auth/login", deps.Auth.Login)
	api.POST("/auth/password/reset", deps.Auth.ResetPassword)

	api.POST("/otp/generate", middleware.RateLimit(deps.OtpWindow, deps.OtpBurst), deps.Otp.Generate)
	api.POST("/otp/verify", deps.Otp.Verify)

	authGroup := api.Group("/account")
	authGroup.Use(middleware.JWTAuth(deps.JWTSecret))
	authGroup.GET("/me", deps.Accounts.Me)
	authGroup.POST("/delete", deps.Accounts.DeleteSelf)

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.AdminAuth(deps.AdminToken))
	adminGroup.GET("/accounts", deps.Accounts.Get)
	adminGroup.POST("/accounts/soft-delete", deps.Accounts.SoftDelete)
	adminGroup.POST("/accounts/restore", deps.Accounts.Restore)
	adminGroup.POST("/accounts/enable", deps.Accounts.Enable)
	adminGroup.POST("/accounts/disable", deps.Accounts.Disable)
	adminGroup.POST("/accounts/hard-delete", deps.Accounts.HardDelete)
	adminGroup.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
