package theatre

import "github.com/sanosuguru/go-show-reservation/internal/domain/apperr"

var (
	ErrTheatreNotFound     = apperr.New(apperr.ErrNotFound, "劇場が見つかりません")
	ErrTheatreNameRequired = apperr.New(apperr.ErrInvalidInput, "劇場名は必須です")
	ErrCityRequired        = apperr.New(apperr.ErrInvalidInput, "都市は必須です")
	ErrInvalidTotalSeats   = apperr.New(apperr.ErrInvalidInput, "総座席数は0以上である必要があります")
)
