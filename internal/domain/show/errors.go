package show

import "github.com/sanosuguru/go-show-reservation/internal/domain/apperr"

// Show ドメインのエラー定義
var (
	ErrShowNotFound           = apperr.New(apperr.ErrNotFound, "公演が見つかりません")
	ErrMovieTitleRequired     = apperr.New(apperr.ErrInvalidInput, "作品名は必須です")
	ErrTheatreIDRequired      = apperr.New(apperr.ErrInvalidInput, "劇場IDは必須です")
	ErrInvalidCapacity        = apperr.New(apperr.ErrInvalidInput, "定員は1以上である必要があります")
	ErrInvalidPrice           = apperr.New(apperr.ErrInvalidInput, "価格は0以上である必要があります")
	ErrInvalidSeatsAvailable  = apperr.New(apperr.ErrInvalidInput, "空席数は0以上かつ定員以下である必要があります")
	ErrCapacityBelowBooked    = apperr.New(apperr.ErrInvalidInput, "定員が予約済み座席数を下回っています")
	ErrShowHasBookings        = apperr.New(apperr.ErrInvalidInput, "確定予約が残っている公演は削除できません")
	ErrCapacityExceedsTheatre = apperr.New(apperr.ErrInvalidInput, "定員が劇場の総座席数を超えています")
	ErrSeatsOverflow          = apperr.New(apperr.ErrConflict, "空席数が定員を超えます")
	ErrSeatCountConflict      = apperr.New(apperr.ErrConflict, "空席数が同時に更新されました")
	ErrShowConflict           = apperr.New(apperr.ErrConflict, "公演が同時に更新されました")
)
