package bootstrap

import (
	"github.com/eleven-am/presence-coach/internal/coach"
	"github.com/eleven-am/presence-coach/internal/realtime"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"

	_ "github.com/eleven-am/presence-coach/docs"
)

type HandlerParams struct {
	fx.In

	CoachHandler  *coach.Handler
	CameraHandler *realtime.Handler
	Config        *Config
}

func RegisterRoutes(e *echo.Echo, params HandlerParams) {
	api := e.Group("/v1")

	params.CoachHandler.RegisterRoutes(api)
	if params.Config.CameraSource != CameraSourceLocal {
		params.CameraHandler.RegisterRoutes(api)
	}

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	e.GET("/swagger/*", echoSwagger.EchoWrapHandler())

	e.Static("/assets", params.Config.StaticDir)
	e.GET("/*", func(c echo.Context) error {
		return c.File(params.Config.IndexHTML)
	})
}

var HandlersModule = fx.Options(
	fx.Invoke(RegisterRoutes),
)
