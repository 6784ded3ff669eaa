package api

import (
	"net/http"

	"github.com/cockroachdb/errors"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-reservation/internal/domain/apperr"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/logger"
)

// ErrorResponse はエラーレスポンスの統一フォーマット
type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      int               `json:"code,omitempty"`
	Kind      string            `json:"kind,omitempty"`
	Available *int              `json:"available,omitempty"`
	Requested *int              `json:"requested,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
}

// CustomHTTPErrorHandler はドメインエラーの種別をHTTPステータスに変換する
func CustomHTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code, resp := toResponse(err)

	if code >= 500 {
		logger.FromContext(c.Request().Context()).Error("サーバーエラー",
			zap.Int("status", code),
			zap.String("path", c.Request().URL.Path),
			zap.Error(err),
		)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(code)
	} else {
		err = c.JSON(code, resp)
	}
	if err != nil {
		logger.Error("エラーレスポンス送信失敗", zap.Error(err))
	}
}

func toResponse(err error) (int, ErrorResponse) {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg, ok := he.Message.(string)
		if !ok {
			msg = http.StatusText(he.Code)
		}
		return he.Code, ErrorResponse{Error: msg, Code: he.Code}
	}

	var ve *ValidationError
	if errors.As(err, &ve) {
		return http.StatusBadRequest, ErrorResponse{
			Error:  "入力値が不正です",
			Code:   http.StatusBadRequest,
			Kind:   string(apperr.KindInvalidInput),
			Fields: ve.Fields,
		}
	}

	kind := apperr.KindOf(err)
	code := statusOf(kind)
	resp := ErrorResponse{Error: err.Error(), Code: code, Kind: string(kind)}

	switch kind {
	case apperr.KindInsufficientInventory:
		if ise, ok := apperr.AsInsufficientSeats(err); ok {
			resp.Available = &ise.Available
			resp.Requested = &ise.Requested
		}
	case apperr.KindInternal:
		resp.Error = "内部サーバーエラー"
	}
	return code, resp
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindInvalidInput, apperr.KindAlreadyCancelled:
		return http.StatusBadRequest
	case apperr.KindInsufficientInventory, apperr.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
