package theatre

import "context"

// Repository は劇場リポジトリのインターフェース
type Repository interface {
	Create(ctx context.Context, t *Theatre) error
	GetByID(ctx context.Context, id int64) (*Theatre, error)
	Exists(ctx context.Context, id int64) (bool, error)
	// List は都市名（大文字小文字を区別しない）で絞り込む。空文字は全件
	List(ctx context.Context, city string) ([]*Theatre, error)
}
