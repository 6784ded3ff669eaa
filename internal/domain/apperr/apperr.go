// Package apperr はドメイン共通のエラー種別を定義する。
// 各ドメインのセンチネルエラーは New でいずれかの種別に紐付けて作る。
package apperr

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Kind はエラー種別
type Kind string

const (
	KindNotFound              Kind = "not_found"
	KindInvalidInput          Kind = "invalid_input"
	KindInsufficientInventory Kind = "insufficient_inventory"
	KindAlreadyCancelled      Kind = "already_cancelled"
	KindConflict              Kind = "conflict"
	KindInternal              Kind = "internal"
)

// 種別ごとの基準エラー。メッセージは互いに重複してはならない（errors.Is がメッセージで比較するため）
var (
	ErrNotFound              = errors.New("対象が見つかりません")
	ErrInvalidInput          = errors.New("入力が不正です")
	ErrInsufficientInventory = errors.New("空席が不足しています")
	ErrAlreadyCancelled      = errors.New("既にキャンセル済みです")
	ErrConflict              = errors.New("同時更新が競合しました")
)

// Error は種別付きのドメインエラー
type Error struct {
	kind error
	msg  string
}

// New は kind に紐付いたドメインエラーを作る
func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

// Is は errors.Is から種別の基準エラーとの比較に使われる
func (e *Error) Is(target error) bool { return target == e.kind }

// InsufficientSeatsError は空席不足の詳細を保持する
type InsufficientSeatsError struct {
	Available int
	Requested int
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("空席が不足しています（空席: %d, 要求: %d）", e.Available, e.Requested)
}

func (e *InsufficientSeatsError) Is(target error) bool { return target == ErrInsufficientInventory }

// NewInsufficientSeats は InsufficientInventory 種別の空席不足エラーを返す
func NewInsufficientSeats(available, requested int) error {
	return errors.WithStack(&InsufficientSeatsError{Available: available, Requested: requested})
}

// AsInsufficientSeats はエラーチェーンから空席不足の詳細を取り出す
func AsInsufficientSeats(err error) (*InsufficientSeatsError, bool) {
	var ise *InsufficientSeatsError
	if errors.As(err, &ise) {
		return ise, true
	}
	return nil, false
}

// KindOf はエラーの種別を返す。どの種別にも該当しなければ KindInternal
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if _, ok := AsInsufficientSeats(err); ok {
		return KindInsufficientInventory
	}
	var de *Error
	if errors.As(err, &de) {
		return kindOfBase(de.kind)
	}
	return kindOfBase(err)
}

func kindOfBase(err error) Kind {
	switch {
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrInsufficientInventory):
		return KindInsufficientInventory
	case errors.Is(err, ErrAlreadyCancelled):
		return KindAlreadyCancelled
	case errors.Is(err, ErrConflict):
		return KindConflict
	default:
		return KindInternal
	}
}

// IsConflict は再試行可能な競合エラーかどうかを返す
func IsConflict(err error) bool {
	return KindOf(err) == KindConflict
}

// 以下はセンチネルを持たない場面で使う

// NotFound は NotFound 種別の新しいエラーを作る
func NotFound(msg string) error {
	return errors.Mark(errors.New(msg), ErrNotFound)
}

// InvalidInput は InvalidInput 種別の新しいエラーを作る
func InvalidInput(msg string) error {
	return errors.Mark(errors.New(msg), ErrInvalidInput)
}

// Conflict は Conflict 種別の新しいエラーを作る
func Conflict(msg string) error {
	return errors.Mark(errors.New(msg), ErrConflict)
}
