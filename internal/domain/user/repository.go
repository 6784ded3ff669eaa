package user

import "context"

// Repository は利用者リポジトリのインターフェース
type Repository interface {
	// Create は利用者を作成する。メールアドレス重複は ErrEmailAlreadyExists
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context) ([]*User, error)
}
