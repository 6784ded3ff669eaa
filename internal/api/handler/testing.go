package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/sanosuguru/go-show-reservation/internal/api"
)

// NewTestEcho はテスト用のEchoインスタンスを作成する。
// ハンドラーが返したエラーは本番と同じエラーハンドラーで変換される
func NewTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	return e
}
