package handler

import (
	"strconv"

	"github.com/sanosuguru/go-show-reservation/internal/domain/apperr"
)

// pathID はパスパラメータの正の整数IDを読む
func pathID(raw, name string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.InvalidInput(name + " は正の整数で指定してください")
	}
	return id, nil
}

// queryID は任意のクエリパラメータのIDを読む。空なら 0
func queryID(raw, name string) (int64, error) {
	if raw == "" {
		return 0, nil
	}
	return pathID(raw, name)
}
