package user

import "github.com/sanosuguru/go-show-reservation/internal/domain/apperr"

var (
	ErrUserNotFound       = apperr.New(apperr.ErrNotFound, "利用者が見つかりません")
	ErrNameRequired       = apperr.New(apperr.ErrInvalidInput, "氏名は必須です")
	ErrEmailRequired      = apperr.New(apperr.ErrInvalidInput, "メールアドレスは必須です")
	ErrInvalidEmail       = apperr.New(apperr.ErrInvalidInput, "メールアドレスの形式が不正です")
	ErrEmailAlreadyExists = apperr.New(apperr.ErrInvalidInput, "メールアドレスは既に登録されています")
)
