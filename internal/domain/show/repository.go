package show

import (
	"context"

	"github.com/sanosuguru/go-show-reservation/internal/domain/transaction"
)

// Filter は公演一覧の絞り込み条件
type Filter struct {
	TheatreID  int64  // 0 は未指定
	MovieTitle string // 部分一致、大文字小文字を区別しない
}

// Repository は公演リポジトリのインターフェース
type Repository interface {
	// Create は新しい公演を作成し、採番したIDを設定する
	Create(ctx context.Context, s *Show) error

	// GetByID はIDから公演を取得する
	GetByID(ctx context.Context, id int64) (*Show, error)

	// Exists は公演が存在するかを返す
	Exists(ctx context.Context, id int64) (bool, error)

	// List は条件に一致する公演を返す
	List(ctx context.Context, filter Filter) ([]*Show, error)

	// GetForUpdate は公演を排他ロック付きで取得する（トランザクション必須）
	GetForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*Show, error)

	// CompareAndSetSeats は空席数が expected の場合のみ next に更新する。
	// 一致しない場合は ErrSeatCountConflict（トランザクション必須）
	CompareAndSetSeats(ctx context.Context, tx transaction.Tx, id int64, expected, next int) error

	// Update は公演の属性と定員を更新する。バージョン不一致は ErrShowConflict（トランザクション必須）
	Update(ctx context.Context, tx transaction.Tx, s *Show) error

	// Delete は公演を削除する（トランザクション必須）
	Delete(ctx context.Context, tx transaction.Tx, id int64) error

	// ListInventory は全公演の在庫を一貫したスナップショットで返す
	ListInventory(ctx context.Context) ([]Inventory, error)
}
