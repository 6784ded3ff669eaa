package booking

import "github.com/sanosuguru/go-show-reservation/internal/domain/apperr"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound         = apperr.New(apperr.ErrNotFound, "予約が見つかりません")
	ErrBookingAlreadyCancelled = apperr.New(apperr.ErrAlreadyCancelled, "予約は既にキャンセルされています")
	ErrBookingNotConfirmed     = apperr.New(apperr.ErrInvalidInput, "キャンセル済みの予約は変更できません")
	ErrInvalidSeatCount        = apperr.New(apperr.ErrInvalidInput, "座席数は1以上である必要があります")
	ErrUserIDRequired          = apperr.New(apperr.ErrInvalidInput, "ユーザーIDは必須です")
	ErrShowIDRequired          = apperr.New(apperr.ErrInvalidInput, "公演IDは必須です")
	ErrInvalidTotalPrice       = apperr.New(apperr.ErrInvalidInput, "合計金額は0以上である必要があります")
	ErrBookingConflict         = apperr.New(apperr.ErrConflict, "予約が同時に更新されました")
)
