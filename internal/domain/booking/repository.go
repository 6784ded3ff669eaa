package booking

import (
	"context"

	"github.com/sanosuguru/go-show-reservation/internal/domain/transaction"
)

// Filter は予約一覧の絞り込み条件。0 は未指定を表す
type Filter struct {
	UserID int64
	ShowID int64
}

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成し、採番したIDを設定する（トランザクション必須）
	Create(ctx context.Context, tx transaction.Tx, b *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id int64) (*Booking, error)

	// Update は予約を更新する。バージョンが一致しない場合は ErrBookingConflict（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, b *Booking) error

	// List は条件に一致する予約をID順で返す
	List(ctx context.Context, filter Filter) ([]*Booking, error)
}
