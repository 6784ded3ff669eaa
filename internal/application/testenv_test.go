package application

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
	"github.com/sanosuguru/go-show-reservation/internal/infrastructure/memory"
)

// testEnv はインメモリストア上に組み立てたサービス一式
type testEnv struct {
	store    *memory.Store
	txm      *memory.TxManager
	shows    *memory.ShowRepository
	bookings *memory.BookingRepository
	users    *memory.UserRepository
	theatres *memory.TheatreRepository

	ledger    *LedgerService
	showSvc   *ShowService
	theatre   *TheatreService
	userSvc   *UserService
	theatreID int64
}

func newTestEnv(t *testing.T, opts ...LedgerOption) *testEnv {
	t.Helper()
	store := memory.NewStore()
	env := &testEnv{
		store:    store,
		txm:      memory.NewTxManager(store),
		shows:    memory.NewShowRepository(store),
		bookings: memory.NewBookingRepository(store),
		users:    memory.NewUserRepository(store),
		theatres: memory.NewTheatreRepository(store),
	}
	opts = append([]LedgerOption{WithRetryPolicy(RetryPolicy{MaxRetries: 20, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})}, opts...)
	env.ledger = NewLedgerService(env.txm, env.shows, env.bookings, env.users, opts...)
	env.showSvc = NewShowService(env.txm, env.shows, env.theatres)
	env.theatre = NewTheatreService(env.theatres)
	env.userSvc = NewUserService(env.users)

	th, err := env.theatre.CreateTheatre(context.Background(), CreateTheatreInput{
		Name: "シネマ新宿", City: "東京", Address: "新宿区1-1", TotalSeats: 0,
	})
	require.NoError(t, err)
	env.theatreID = th.ID
	return env
}

func (e *testEnv) createShow(t *testing.T, capacity int, price string) *show.Show {
	t.Helper()
	sh, err := e.showSvc.CreateShow(context.Background(), CreateShowInput{
		TheatreID:  e.theatreID,
		MovieTitle: "テスト上映",
		StartsAt:   time.Now().Add(24 * time.Hour),
		Price:      decimal.RequireFromString(price),
		Capacity:   capacity,
		Language:   "日本語",
		Screen:     "1",
	})
	require.NoError(t, err)
	return sh
}

func (e *testEnv) createUser(t *testing.T, email string) *user.User {
	t.Helper()
	u, err := e.userSvc.CreateUser(context.Background(), CreateUserInput{Name: "テスト利用者", Email: email})
	require.NoError(t, err)
	return u
}

func (e *testEnv) available(t *testing.T, showID int64) int {
	t.Helper()
	sh, err := e.shows.GetByID(context.Background(), showID)
	require.NoError(t, err)
	return sh.SeatsAvailable
}

// requireConsistent は全公演で「空席数＋確定座席数＝定員」が成り立つことを確認する
func (e *testEnv) requireConsistent(t *testing.T) {
	t.Helper()
	inv, err := e.ledger.AuditInventory(context.Background())
	require.NoError(t, err)
	for _, i := range inv {
		require.Truef(t, i.Consistent(), "公演 %d: 空席 %d + 確定 %d != 定員 %d", i.ShowID, i.SeatsAvailable, i.ConfirmedSeats, i.Capacity)
	}
}

// === Mock implementations ===

// MockAvailabilityCache implements AvailabilityCache
type MockAvailabilityCache struct {
	mock.Mock
}

func (m *MockAvailabilityCache) GetAvailable(ctx context.Context, showID int64) (int, bool, error) {
	args := m.Called(ctx, showID)
	return args.Int(0), args.Bool(1), args.Error(2)
}

func (m *MockAvailabilityCache) SetAvailable(ctx context.Context, showID int64, seats int, ttl time.Duration) error {
	return m.Called(ctx, showID, seats, ttl).Error(0)
}

func (m *MockAvailabilityCache) Invalidate(ctx context.Context, showID int64) error {
	return m.Called(ctx, showID).Error(0)
}

// MockEventPublisher implements booking.EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(ctx context.Context, e booking.Event) error {
	return m.Called(ctx, e).Error(0)
}

// flakyShowRepository は最初の failures 回だけ空席数の更新を競合させる
type flakyShowRepository struct {
	*memory.ShowRepository
	failures int
	calls    int
}

func (r *flakyShowRepository) CompareAndSetSeats(ctx context.Context, tx transaction.Tx, id int64, expected, next int) error {
	r.calls++
	if r.calls <= r.failures {
		return show.ErrSeatCountConflict
	}
	return r.ShowRepository.CompareAndSetSeats(ctx, tx, id, expected, next)
}
