package router

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yeremiapane/restobooker/controllers"
	"github.com/yeremiapane/restobooker/middlewares"
	"github.com/yeremiapane/restobooker/services"
	"gorm.io/gorm"
)

// Deps is everything the HTTP layer needs, built once in main.
type Deps struct {
	DB                  *gorm.DB
	Window              services.OperatingWindow
	Notifier            services.Notifier
	Tokens              *services.SignedTokens
	Site                services.SiteInfo
	Clock               services.Clock
	Metrics             controllers.MetricsSource
	ReminderHoursBefore int
	CORSOrigins         []string
	MediaURL            string
	// RateLimit is requests per second per IP; zero disables the global limiter.
	RateLimit int
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	// Apply security middlewares
	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares(d.CORSOrigins))
	r.Use(middlewares.LoggerMiddleware())
	if d.RateLimit > 0 {
		r.Use(middlewares.NewRateLimiter(d.RateLimit, time.Second).RateLimit())
	}

	if d.Site.Location == nil {
		d.Site.Location = d.Window.Location
	}

	bookings := services.NewBookingService(d.DB, d.Window, d.Notifier)
	status := services.NewStatusService(d.DB, d.Notifier, d.ReminderHoursBefore)

	userCtrl := controllers.NewUserController(d.DB)
	tableCtrl := controllers.NewTableController(d.DB, d.MediaURL)
	availabilityCtrl := controllers.NewAvailabilityController(d.DB, d.Window)
	bookingCtrl := controllers.NewBookingController(d.DB, bookings, status, d.Tokens, d.Site, d.Clock)
	managerCtrl := controllers.NewManagerController(d.DB, status, d.Tokens, d.Site, d.Metrics)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": true, "message": "ok"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", middlewares.NewStrictRateLimiter(), userCtrl.Register)
		authGroup.POST("/login", middlewares.NewStrictRateLimiter(), userCtrl.Login)
		authGroup.POST("/logout", middlewares.AuthMiddleware(), userCtrl.Logout)
		authGroup.GET("/me", middlewares.AuthMiddleware(), userCtrl.GetProfile)
		authGroup.PATCH("/me", middlewares.AuthMiddleware(), userCtrl.UpdateProfile)
	}

	// Public
	api.GET("/availability", availabilityCtrl.GetAvailability)
	api.GET("/availability/slots", availabilityCtrl.GetSlots)
	api.GET("/layout/areas", tableCtrl.GetAreas)
	api.GET("/layout/tables", tableCtrl.GetTables)
	api.GET("/layout/table-types", tableCtrl.GetTableTypes)
	api.POST("/bookings", middlewares.OptionalAuth(), bookingCtrl.CreateBooking)
	api.GET("/ical", bookingCtrl.GetICalByToken)

	me := api.Group("/me")
	me.Use(middlewares.AuthMiddleware())
	{
		me.GET("/bookings-by-status", bookingCtrl.GetMyBookingsByStatus)
		me.GET("/bookings/:id", bookingCtrl.GetMyBooking)
		me.DELETE("/bookings/:id/cancel", bookingCtrl.CancelMyBooking)
		me.GET("/bookings/:id/ical", bookingCtrl.GetMyBookingICal)
	}

	manager := api.Group("/manager")
	manager.Use(middlewares.AuthMiddleware(), middlewares.StaffOnly(), middlewares.AuditLoggerMiddleware())
	{
		manager.GET("/bookings", managerCtrl.GetBookings)
		manager.GET("/bookings/:id", managerCtrl.GetBooking)
		manager.POST("/bookings/:id/confirm", managerCtrl.ConfirmBooking)
		manager.POST("/bookings/:id/cancel", managerCtrl.CancelBooking)
		manager.POST("/bookings/:id/status", managerCtrl.SetBookingStatus)
		manager.POST("/checkin", managerCtrl.CheckIn)
		manager.GET("/statuses", managerCtrl.GetStatuses)
		manager.GET("/notifications", managerCtrl.GetNotifications)

		manager.POST("/areas", tableCtrl.CreateArea)
		manager.PATCH("/areas/:id", tableCtrl.UpdateArea)
		manager.DELETE("/areas/:id", tableCtrl.DeleteArea)
		manager.POST("/tables", tableCtrl.CreateTable)
		manager.PATCH("/tables/:id", tableCtrl.UpdateTable)
		manager.DELETE("/tables/:id", tableCtrl.DeleteTable)
	}

	wsGroup := api.Group("/manager/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("", controllers.HubHandler)
	}

	return r
}
