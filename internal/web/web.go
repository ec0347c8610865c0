package web

import (
	"net/http"
	"time"

	"bitbucket.org/crgw/rental-desk/internal/config"
	"bitbucket.org/crgw/rental-desk/internal/desk"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func SetupRouter(log *zerolog.Logger, cfg config.Config, registry *desk.Registry) (*gin.Engine, error) {
	startTime := time.Now()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.
		Use(StartRequest).
		Use(CorrelationId).
		Use(RegisterLogger(log)).
		Use(TraceLog).
		Use(PanicRecovery)

	if cfg.OpenapiValidation {
		doc, err := LoadOpenapi()
		if err != nil {
			return nil, err
		}

		validator, err := OpenapiValidator(doc)
		if err != nil {
			return nil, err
		}

		router.Use(validator)
	}

	router.GET("/status", func(c *gin.Context) {
		response := struct {
			Uptime   float64 `json:"uptime"`
			Sessions int     `json:"sessions"`
		}{
			Uptime:   time.Since(startTime).Seconds(),
			Sessions: registry.Len(),
		}

		c.JSON(http.StatusOK, response)
	})

	router.GET("/openapi.json", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", openApiContent)
	})

	pprof.Register(router)

	desk.RegisterRoutes(router, registry)

	return router, nil
}
