package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.uber.org/zap"

	"github.com/Domenick1991/tourbooking/config"
)

type Handlers struct {
	Availability *AvailabilityHandler
	Bookings     *BookingHandler
	Calendar     *CalendarHandler
}

func NewRouter(cfg config.HTTPConfig, h Handlers, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(Recovery(logger))
	router.Use(RequestLogger(logger))
	router.Use(RateLimit(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst, logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	h.Availability.Register(v1.Group("/availability"))
	h.Bookings.Register(v1.Group("/bookings"))
	h.Calendar.Register(v1.Group("/calendar"))

	if cfg.SwaggerDir != "" {
		router.Static("/docs", cfg.SwaggerDir)
		router.GET("/swagger/*any", gin.WrapH(httpSwagger.Handler(httpSwagger.URL("/docs/openapi.json"))))
	}
	return router
}
