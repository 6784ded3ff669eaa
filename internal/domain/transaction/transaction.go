package transaction

import (
	"context"

	"github.com/cockroachdb/errors"
)

// Tx はトランザクションを表すインターフェース
// ドメイン層がストア実装（sqlx やインメモリ）に依存しないための抽象化
type Tx interface {
	Commit() error
	Rollback() error
}

// Manager はトランザクションを管理するインターフェース
type Manager interface {
	Begin(ctx context.Context) (Tx, error)
}

// Run は fn をひとつのトランザクション内で実行する。
// fn がエラーを返した場合やコミットに失敗した場合は何も反映されない
func Run(ctx context.Context, m Manager, fn func(tx Tx) error) error {
	tx, err := m.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "トランザクション開始に失敗")
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.Wrap(err, "コミットに失敗")
	}
	return nil
}
