package user

import (
	"net/mail"
	"time"
)

// User は利用者エンティティを表す
type User struct {
	ID        int64
	Name      string
	Email     string
	Phone     string
	CreatedAt time.Time
}

// NewUser は新しい利用者を作成する
func NewUser(name, email, phone string) *User {
	return &User{
		Name:      name,
		Email:     email,
		Phone:     phone,
		CreatedAt: time.Now(),
	}
}

// Validate は利用者の検証を行う
func (u *User) Validate() error {
	if u.Name == "" {
		return ErrNameRequired
	}
	if u.Email == "" {
		return ErrEmailRequired
	}
	if _, err := mail.ParseAddress(u.Email); err != nil {
		return ErrInvalidEmail
	}
	return nil
}
