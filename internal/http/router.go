package api

import (
	"log"
	stdhttp "net/http"

	intconfig "booker/internal/config"
	h "booker/internal/http/handlers"
	"booker/internal/http/middleware"

	"github.com/gin-gonic/gin"
)

// NewRouter mounts the API. metrics may be nil when scraping is disabled.
func NewRouter(env intconfig.Env, hs *h.Handlers, metrics stdhttp.Handler) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestID(), middleware.Logger(), gin.Recovery(), middleware.CORS(env.CORSAllowedOrigins))

	if err := r.SetTrustedProxies(nil); err != nil {
		log.Printf("warning: failed to set trusted proxies: %v", err)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(stdhttp.StatusNotFound, gin.H{
			"error":  "route tidak ditemukan",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	api := r.Group("/api")
	{
		api.GET("/health", h.Health)
		api.GET("/db-check", hs.DBCheck)
		api.GET("/routes", h.Routes)

		auth := api.Group("/auth")
		auth.POST("/login", hs.Login)
		auth.POST("/register", hs.Register)

		private := api.Group("")
		private.Use(middleware.AuthRequired(hs.JWTSecret))

		private.GET("/profile", hs.GetProfile)
		private.PUT("/profile", hs.PutProfile)

		tasks := private.Group("/tasks")
		tasks.POST("", hs.CreateTask)
		tasks.GET("", hs.ListTasks)
		tasks.GET("/:id", hs.GetTask)
		tasks.DELETE("/:id", hs.CancelTask)

		private.GET("/ws/tasks/:id", hs.TaskStatusWS)

		tickets := private.Group("/tickets")
		tickets.GET("", hs.ListTickets)
		tickets.GET("/:id/pdf", hs.TicketPDF)
		tickets.PUT("/:id/paid", hs.SetTicketPaid)

		bookings := private.Group("/bookings")
		bookings.POST("/search", hs.SearchNow)
		bookings.POST("/search/:session/book", hs.BookService)
	}

	h.SetRouter(r)
	return r
}
