package bootstrap

import (
	"github.com/eleven-am/presence-coach/internal/coach"
	"github.com/eleven-am/presence-coach/internal/health"
	"github.com/eleven-am/presence-coach/internal/realtime"
	"github.com/eleven-am/presence-coach/internal/vision"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
)

const version = "1.0.0"

func ProvideHealthHandler(
	redis *redis.Client,
	client *vision.Client,
	sessions *coach.Manager,
	publishers *realtime.Manager,
) *health.Handler {
	return health.NewHandler(
		redis,
		client,
		sessions,
		publishers,
		version,
	)
}

func metricsMiddleware(h *health.Handler) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h.IncrementRequests()
			h.IncrementConnections()
			defer h.DecrementConnections()
			return next(c)
		}
	}
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	e.Use(metricsMiddleware(h))
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)
