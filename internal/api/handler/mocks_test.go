package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-show-reservation/internal/application"
	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
)

// MockLedgerService はLedgerServiceInterfaceのモック
type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) Reserve(ctx context.Context, in application.ReserveInput) (*booking.Booking, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockLedgerService) Release(ctx context.Context, bookingID int64) (*booking.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockLedgerService) Amend(ctx context.Context, in application.AmendInput) (*booking.Booking, error) {
	args := m.Called(ctx, in)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockLedgerService) GetBooking(ctx context.Context, id int64) (*booking.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*booking.Booking), args.Error(1)
}

func (m *MockLedgerService) ListBookings(ctx context.Context, filter booking.Filter) ([]*booking.Booking, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*booking.Booking), args.Error(1)
}

func (m *MockLedgerService) AuditInventory(ctx context.Context) ([]show.Inventory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]show.Inventory), args.Error(1)
}

// MockShowService はShowServiceInterfaceのモック
type MockShowService struct {
	mock.Mock
}

func (m *MockShowService) CreateShow(ctx context.Context, input application.CreateShowInput) (*show.Show, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*show.Show), args.Error(1)
}

func (m *MockShowService) GetShow(ctx context.Context, id int64) (*show.Show, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*show.Show), args.Error(1)
}

func (m *MockShowService) ListShows(ctx context.Context, filter show.Filter) ([]*show.Show, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*show.Show), args.Error(1)
}

func (m *MockShowService) UpdateShow(ctx context.Context, input application.UpdateShowInput) (*show.Show, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*show.Show), args.Error(1)
}

func (m *MockShowService) DeleteShow(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockShowService) GetAvailability(ctx context.Context, id int64) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

// MockTheatreService はTheatreServiceInterfaceのモック
type MockTheatreService struct {
	mock.Mock
}

func (m *MockTheatreService) CreateTheatre(ctx context.Context, input application.CreateTheatreInput) (*theatre.Theatre, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*theatre.Theatre), args.Error(1)
}

func (m *MockTheatreService) GetTheatre(ctx context.Context, id int64) (*theatre.Theatre, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*theatre.Theatre), args.Error(1)
}

func (m *MockTheatreService) ListTheatres(ctx context.Context, city string) ([]*theatre.Theatre, error) {
	args := m.Called(ctx, city)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*theatre.Theatre), args.Error(1)
}

// MockUserService はUserServiceInterfaceのモック
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) CreateUser(ctx context.Context, input application.CreateUserInput) (*user.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) GetUser(ctx context.Context, id int64) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]*user.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*user.User), args.Error(1)
}
