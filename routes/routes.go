package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"godispatch/internal/handlers"
	"godispatch/internal/middleware"
	"godispatch/internal/models"
	"godispatch/pkg/realtime"
)

// Handlers collects everything SetupRoutes mounts.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Jobs          *handlers.JobHandler
	Drivers       *handlers.DriverHandler
	Subscriptions *handlers.SubscriptionHandler
	Wallet        *handlers.WalletHandler
	Admin         *handlers.AdminHandler
	Realtime      *realtime.Handler
}

// SetupRoutes mounts the full API surface under /api/v1.
func SetupRoutes(engine *gin.Engine, h Handlers, jwtSecret string) {
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := engine.Group("/api/v1")

	auth := v1.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}

	// Public parcel tracking, no auth.
	v1.GET("/track/:code", h.Jobs.Track)

	authed := v1.Group("")
	authed.Use(middleware.AuthRequired(jwtSecret))
	{
		authed.PUT("/auth/device-token", h.Auth.UpdateDeviceToken)
		authed.GET("/ws", h.Realtime.HandleWebSocket)

		jobs := authed.Group("/jobs")
		{
			jobs.GET("/:id", h.Jobs.Get)
			jobs.GET("", h.Jobs.List)

			users := jobs.Group("")
			users.Use(middleware.RoleRequired(models.RoleUser))
			{
				users.POST("", h.Jobs.Create)
			}

			drivers := jobs.Group("")
			drivers.Use(middleware.RoleRequired(models.RoleDriver))
			{
				drivers.GET("/nearby", h.Jobs.Nearby)
				drivers.GET("/active", h.Jobs.Active)
				drivers.POST("/:id/accept", h.Jobs.Accept)
				drivers.POST("/:id/arrive", h.Jobs.Arrive)
				drivers.POST("/:id/start", h.Jobs.Start)
				drivers.POST("/:id/pickup", h.Jobs.Pickup)
				drivers.POST("/:id/transit", h.Jobs.InTransit)
				drivers.POST("/:id/complete", h.Jobs.Complete)
				drivers.POST("/:id/deliver", h.Jobs.Deliver)
			}

			jobs.POST("/:id/cancel", h.Jobs.Cancel)
			jobs.POST("/:id/rate", h.Jobs.Rate)
		}

		driverGroup := authed.Group("/drivers")
		{
			driverGroup.POST("/register", h.Drivers.Register)

			me := driverGroup.Group("")
			me.Use(middleware.RoleRequired(models.RoleDriver))
			{
				me.GET("/me", h.Drivers.Profile)
				me.POST("/online", h.Drivers.GoOnline)
				me.POST("/offline", h.Drivers.GoOffline)
				me.PUT("/location", h.Drivers.UpdateLocation)
				me.PUT("/search-radius", h.Drivers.SetSearchRadius)
			}
		}

		subs := authed.Group("/subscriptions")
		{
			subs.GET("/plans", h.Subscriptions.ListPlans)

			me := subs.Group("")
			me.Use(middleware.RoleRequired(models.RoleDriver))
			{
				me.POST("", h.Subscriptions.Purchase)
				me.GET("/current", h.Subscriptions.Current)
				me.GET("/history", h.Subscriptions.History)
				me.POST("/:id/cancel", h.Subscriptions.Cancel)
			}
		}

		wallet := authed.Group("/wallet")
		{
			wallet.GET("", h.Wallet.Balance)
			wallet.POST("/topup", h.Wallet.TopUp)
			wallet.GET("/transactions", h.Wallet.Transactions)
		}

		admin := authed.Group("/admin")
		admin.Use(middleware.RoleRequired(models.RoleAdmin))
		{
			admin.GET("/drivers", h.Admin.ListDrivers)
			admin.PUT("/drivers/:id/approval", h.Admin.SetDriverApproval)
			admin.GET("/users", h.Admin.ListUsers)
			admin.GET("/catalog", h.Admin.ListCatalog)
			admin.PUT("/catalog", h.Admin.UpsertCatalogEntry)
			admin.POST("/plans", h.Admin.CreatePlan)
			admin.POST("/promos", h.Admin.CreatePromo)
			admin.GET("/promos", h.Admin.ListPromos)
			admin.GET("/stats/jobs", h.Admin.JobStats)
		}
	}
}
