package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/sanosuguru/go-show-reservation/internal/pkg/metrics"
)

// SetupMiddleware は共通ミドルウェアを設定する。m が nil ならHTTPメトリクスは収集しない
func SetupMiddleware(e *echo.Echo, m *metrics.Metrics) {
	// リクエストID
	e.Use(RequestIDMiddleware())

	// パニックリカバリー
	e.Use(middleware.Recover())

	// トレース
	e.Use(TracingMiddleware())

	// 構造化リクエストログ（zap）
	e.Use(RequestLogger())

	if m != nil {
		e.Use(PrometheusMiddleware(m))
	}

	// CORS
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{echo.GET, echo.HEAD, echo.PUT, echo.PATCH, echo.POST, echo.DELETE},
	}))
}
