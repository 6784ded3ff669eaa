package handler

import (
	"context"

	"github.com/sanosuguru/go-show-reservation/internal/application"
	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
)

// LedgerServiceInterface は予約台帳サービスのインターフェース
type LedgerServiceInterface interface {
	Reserve(ctx context.Context, in application.ReserveInput) (*booking.Booking, error)
	Release(ctx context.Context, bookingID int64) (*booking.Booking, error)
	Amend(ctx context.Context, in application.AmendInput) (*booking.Booking, error)
	GetBooking(ctx context.Context, id int64) (*booking.Booking, error)
	ListBookings(ctx context.Context, filter booking.Filter) ([]*booking.Booking, error)
	AuditInventory(ctx context.Context) ([]show.Inventory, error)
}

// ShowServiceInterface は公演サービスのインターフェース
type ShowServiceInterface interface {
	CreateShow(ctx context.Context, input application.CreateShowInput) (*show.Show, error)
	GetShow(ctx context.Context, id int64) (*show.Show, error)
	ListShows(ctx context.Context, filter show.Filter) ([]*show.Show, error)
	UpdateShow(ctx context.Context, input application.UpdateShowInput) (*show.Show, error)
	DeleteShow(ctx context.Context, id int64) error
	GetAvailability(ctx context.Context, id int64) (int, error)
}

// TheatreServiceInterface は劇場サービスのインターフェース
type TheatreServiceInterface interface {
	CreateTheatre(ctx context.Context, input application.CreateTheatreInput) (*theatre.Theatre, error)
	GetTheatre(ctx context.Context, id int64) (*theatre.Theatre, error)
	ListTheatres(ctx context.Context, city string) ([]*theatre.Theatre, error)
}

// UserServiceInterface はユーザーサービスのインターフェース
type UserServiceInterface interface {
	CreateUser(ctx context.Context, input application.CreateUserInput) (*user.User, error)
	GetUser(ctx context.Context, id int64) (*user.User, error)
	ListUsers(ctx context.Context) ([]*user.User, error)
}
