package middleware

import (
	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
)

// InitMetrics registers the Prometheus HTTP middleware and exposes /metrics.
func InitMetrics(app *fiber.App) {
	prom := fiberprometheus.New("streamlens")
	prom.RegisterAt(app, "/metrics")
	app.Use(prom.Middleware)
}
