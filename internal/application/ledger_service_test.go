package application

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-show-reservation/internal/domain/apperr"
	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
)

func TestLedgerService_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("空席を確保して確定予約を作成", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 10, "1500.50")
		u := env.createUser(t, "tanaka@example.com")

		b, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 3})
		require.NoError(t, err)
		assert.NotZero(t, b.ID)
		assert.Equal(t, booking.StatusConfirmed, b.Status)
		assert.True(t, decimal.RequireFromString("4501.50").Equal(b.TotalPrice))
		assert.Equal(t, 7, env.available(t, sh.ID))
		env.requireConsistent(t)
	})

	t.Run("空席不足なら予約は作られない", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 2, "1000")
		u := env.createUser(t, "sato@example.com")

		_, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 3})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrInsufficientInventory)
		ins, ok := apperr.AsInsufficientSeats(err)
		require.True(t, ok)
		assert.Equal(t, 2, ins.Available)
		assert.Equal(t, 3, ins.Requested)

		assert.Equal(t, 2, env.available(t, sh.ID))
		list, err := env.ledger.ListBookings(ctx, booking.Filter{ShowID: sh.ID})
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("入力検証", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 5, "1000")
		u := env.createUser(t, "valid@example.com")

		_, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 0})
		assert.ErrorIs(t, err, booking.ErrInvalidSeatCount)
		_, err = env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: -1})
		assert.ErrorIs(t, err, booking.ErrInvalidSeatCount)
		_, err = env.ledger.Reserve(ctx, ReserveInput{UserID: 999, ShowID: sh.ID, Seats: 1})
		assert.ErrorIs(t, err, user.ErrUserNotFound)
		_, err = env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: 999, Seats: 1})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.Equal(t, 5, env.available(t, sh.ID))
	})

	t.Run("ちょうど空席数なら成功し空席は0", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 4, "800")
		u := env.createUser(t, "exact@example.com")

		_, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 4})
		require.NoError(t, err)
		assert.Equal(t, 0, env.available(t, sh.ID))
	})
}

func TestLedgerService_ConcurrentReserve(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	const capacity = 10
	const numUsers = 30
	sh := env.createShow(t, capacity, "2000")

	users := make([]int64, numUsers)
	for i := range users {
		users[i] = env.createUser(t, fmt.Sprintf("user%02d@example.com", i)).ID
	}

	var successCount, insufficientCount, otherErrorCount int32
	var wg sync.WaitGroup
	for i := 0; i < numUsers; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			_, err := env.ledger.Reserve(ctx, ReserveInput{UserID: userID, ShowID: sh.ID, Seats: 1})
			switch {
			case err == nil:
				atomic.AddInt32(&successCount, 1)
			case errors.Is(err, apperr.ErrInsufficientInventory):
				atomic.AddInt32(&insufficientCount, 1)
			default:
				atomic.AddInt32(&otherErrorCount, 1)
			}
		}(users[i])
	}
	wg.Wait()

	assert.Equal(t, int32(capacity), successCount, "定員分だけ成功")
	assert.Equal(t, int32(numUsers-capacity), insufficientCount, "残りは空席不足")
	assert.Zero(t, otherErrorCount)
	assert.Equal(t, 0, env.available(t, sh.ID))
	env.requireConsistent(t)
}

func TestLedgerService_Release(t *testing.T) {
	ctx := context.Background()

	t.Run("キャンセルで座席が戻り、二重キャンセルは拒否", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 5, "1000")
		u := env.createUser(t, "cancel@example.com")

		b, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 2})
		require.NoError(t, err)
		assert.Equal(t, 3, env.available(t, sh.ID))

		released, err := env.ledger.Release(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, booking.StatusCancelled, released.Status)
		assert.Equal(t, 5, env.available(t, sh.ID))

		_, err = env.ledger.Release(ctx, b.ID)
		assert.ErrorIs(t, err, booking.ErrBookingAlreadyCancelled)
		assert.Equal(t, apperr.KindAlreadyCancelled, apperr.KindOf(err))
		assert.Equal(t, 5, env.available(t, sh.ID))
		env.requireConsistent(t)
	})

	t.Run("存在しない予約", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.ledger.Release(ctx, 42)
		assert.ErrorIs(t, err, booking.ErrBookingNotFound)
	})

	t.Run("同じ予約への同時キャンセルは1件だけ成功", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 5, "1000")
		u := env.createUser(t, "race@example.com")
		b, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 3})
		require.NoError(t, err)

		var ok, cancelled int32
		var wg sync.WaitGroup
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := env.ledger.Release(ctx, b.ID)
				switch {
				case err == nil:
					atomic.AddInt32(&ok, 1)
				case errors.Is(err, booking.ErrBookingAlreadyCancelled):
					atomic.AddInt32(&cancelled, 1)
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, int32(1), ok)
		assert.Equal(t, int32(9), cancelled)
		assert.Equal(t, 5, env.available(t, sh.ID))
		env.requireConsistent(t)
	})
}

func TestLedgerService_Amend(t *testing.T) {
	ctx := context.Background()

	t.Run("同一公演で座席数を増減", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 10, "1000")
		u := env.createUser(t, "amend@example.com")
		b, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 2})
		require.NoError(t, err)

		amended, err := env.ledger.Amend(ctx, AmendInput{BookingID: b.ID, ShowID: sh.ID, Seats: 5})
		require.NoError(t, err)
		assert.Equal(t, 5, amended.Seats)
		assert.True(t, decimal.NewFromInt(5000).Equal(amended.TotalPrice))
		assert.Equal(t, 5, env.available(t, sh.ID))

		amended, err = env.ledger.Amend(ctx, AmendInput{BookingID: b.ID, ShowID: sh.ID, Seats: 1})
		require.NoError(t, err)
		assert.Equal(t, 1, amended.Seats)
		assert.Equal(t, 9, env.available(t, sh.ID))
		env.requireConsistent(t)
	})

	t.Run("同一公演で空席を超える増席は不足エラー", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 5, "1000")
		u := env.createUser(t, "over@example.com")
		b, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 3})
		require.NoError(t, err)

		_, err = env.ledger.Amend(ctx, AmendInput{BookingID: b.ID, ShowID: sh.ID, Seats: 6})
		require.Error(t, err)
		ins, ok := apperr.AsInsufficientSeats(err)
		require.True(t, ok)
		assert.Equal(t, 2, ins.Available)
		assert.Equal(t, 3, ins.Requested)

		got, err := env.ledger.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Seats)
		assert.Equal(t, 2, env.available(t, sh.ID))
	})

	t.Run("別公演への移動は旧公演に座席を戻す", func(t *testing.T) {
		env := newTestEnv(t)
		from := env.createShow(t, 10, "1000")
		to := env.createShow(t, 10, "1800")
		u := env.createUser(t, "move@example.com")
		b, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: from.ID, Seats: 4})
		require.NoError(t, err)

		amended, err := env.ledger.Amend(ctx, AmendInput{BookingID: b.ID, ShowID: to.ID, Seats: 3})
		require.NoError(t, err)
		assert.Equal(t, to.ID, amended.ShowID)
		assert.True(t, decimal.NewFromInt(5400).Equal(amended.TotalPrice))
		assert.Equal(t, 10, env.available(t, from.ID))
		assert.Equal(t, 7, env.available(t, to.ID))
		env.requireConsistent(t)
	})

	t.Run("移動先が空席不足なら旧公演も予約も変わらない", func(t *testing.T) {
		env := newTestEnv(t)
		from := env.createShow(t, 10, "1000")
		to := env.createShow(t, 1, "1000")
		u := env.createUser(t, "atomic@example.com")
		other := env.createUser(t, "other@example.com")

		_, err := env.ledger.Reserve(ctx, ReserveInput{UserID: other.ID, ShowID: from.ID, Seats: 5})
		require.NoError(t, err)
		b, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: from.ID, Seats: 2})
		require.NoError(t, err)
		_, err = env.ledger.Reserve(ctx, ReserveInput{UserID: other.ID, ShowID: to.ID, Seats: 1})
		require.NoError(t, err)
		require.Equal(t, 3, env.available(t, from.ID))
		require.Equal(t, 0, env.available(t, to.ID))

		_, err = env.ledger.Amend(ctx, AmendInput{BookingID: b.ID, ShowID: to.ID, Seats: 2})
		require.Error(t, err)
		assert.ErrorIs(t, err, apperr.ErrInsufficientInventory)

		assert.Equal(t, 3, env.available(t, from.ID))
		assert.Equal(t, 0, env.available(t, to.ID))
		got, err := env.ledger.GetBooking(ctx, b.ID)
		require.NoError(t, err)
		assert.Equal(t, from.ID, got.ShowID)
		assert.Equal(t, 2, got.Seats)
		env.requireConsistent(t)
	})

	t.Run("キャンセル済みの予約は変更できない", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 5, "1000")
		u := env.createUser(t, "amendcancel@example.com")
		b, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 2})
		require.NoError(t, err)
		_, err = env.ledger.Release(ctx, b.ID)
		require.NoError(t, err)

		_, err = env.ledger.Amend(ctx, AmendInput{BookingID: b.ID, ShowID: sh.ID, Seats: 1})
		assert.ErrorIs(t, err, booking.ErrBookingNotConfirmed)
		assert.Equal(t, 5, env.available(t, sh.ID))
	})

	t.Run("移動先の公演が存在しない", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 5, "1000")
		u := env.createUser(t, "missing@example.com")
		b, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 2})
		require.NoError(t, err)

		_, err = env.ledger.Amend(ctx, AmendInput{BookingID: b.ID, ShowID: 999, Seats: 1})
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
		assert.Equal(t, 3, env.available(t, sh.ID))
	})

	t.Run("公演をまたぐ同時変更でもデッドロックしない", func(t *testing.T) {
		env := newTestEnv(t)
		a := env.createShow(t, 50, "1000")
		b := env.createShow(t, 50, "1000")

		var ids []int64
		for i := 0; i < 20; i++ {
			u := env.createUser(t, fmt.Sprintf("swap%02d@example.com", i))
			showID := a.ID
			if i%2 == 1 {
				showID = b.ID
			}
			bk, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: showID, Seats: 1})
			require.NoError(t, err)
			ids = append(ids, bk.ID)
		}

		var wg sync.WaitGroup
		for i, id := range ids {
			target := b.ID
			if i%2 == 1 {
				target = a.ID
			}
			wg.Add(1)
			go func(id, target int64) {
				defer wg.Done()
				_, err := env.ledger.Amend(ctx, AmendInput{BookingID: id, ShowID: target, Seats: 2})
				assert.NoError(t, err)
			}(id, target)
		}
		wg.Wait()

		assert.Equal(t, 30, env.available(t, a.ID))
		assert.Equal(t, 30, env.available(t, b.ID))
		env.requireConsistent(t)
	})
}

// TestLedgerService_Scenario は予約・変更・キャンセルを重ねても在庫が整合することを確認する
func TestLedgerService_Scenario(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	sh := env.createShow(t, 50, "1200")

	var bookings []*booking.Booking
	for i := 0; i < 10; i++ {
		u := env.createUser(t, fmt.Sprintf("scenario%02d@example.com", i))
		b, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 3})
		require.NoError(t, err)
		bookings = append(bookings, b)
	}
	assert.Equal(t, 20, env.available(t, sh.ID))

	for _, b := range bookings[:4] {
		_, err := env.ledger.Release(ctx, b.ID)
		require.NoError(t, err)
	}
	assert.Equal(t, 32, env.available(t, sh.ID))

	_, err := env.ledger.Amend(ctx, AmendInput{BookingID: bookings[5].ID, ShowID: sh.ID, Seats: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, env.available(t, sh.ID))

	mine, err := env.ledger.ListBookings(ctx, booking.Filter{UserID: bookings[5].UserID})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, 10, mine[0].Seats)

	env.requireConsistent(t)
}

func TestLedgerService_RetryOnConflict(t *testing.T) {
	ctx := context.Background()

	t.Run("競合は再試行されて成功", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 5, "1000")
		u := env.createUser(t, "retry@example.com")

		flaky := &flakyShowRepository{ShowRepository: env.shows, failures: 2}
		ledger := NewLedgerService(env.txm, flaky, env.bookings, env.users,
			WithRetryPolicy(RetryPolicy{MaxRetries: 3, InitialInterval: 1, MaxInterval: 1}))

		_, err := ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 1})
		require.NoError(t, err)
		assert.Equal(t, 3, flaky.calls)
		assert.Equal(t, 4, env.available(t, sh.ID))
	})

	t.Run("再試行回数を超えると競合エラー", func(t *testing.T) {
		env := newTestEnv(t)
		sh := env.createShow(t, 5, "1000")
		u := env.createUser(t, "giveup@example.com")

		flaky := &flakyShowRepository{ShowRepository: env.shows, failures: 100}
		ledger := NewLedgerService(env.txm, flaky, env.bookings, env.users,
			WithRetryPolicy(RetryPolicy{MaxRetries: 2, InitialInterval: 1, MaxInterval: 1}))

		_, err := ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 1})
		require.Error(t, err)
		assert.True(t, apperr.IsConflict(err))
		assert.Equal(t, 3, flaky.calls)
		assert.Equal(t, 5, env.available(t, sh.ID))
	})
}

func TestLedgerService_SideEffects(t *testing.T) {
	ctx := context.Background()

	t.Run("コミット後にキャッシュ無効化とイベント配信", func(t *testing.T) {
		cache := new(MockAvailabilityCache)
		pub := new(MockEventPublisher)
		env := newTestEnv(t, WithAvailabilityCache(cache), WithEventPublisher(pub))
		from := env.createShow(t, 5, "1000")
		to := env.createShow(t, 5, "1000")
		u := env.createUser(t, "events@example.com")

		cache.On("Invalidate", mock.Anything, from.ID).Return(nil)
		cache.On("Invalidate", mock.Anything, to.ID).Return(nil)
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e booking.Event) bool {
			return e.Type == booking.EventConfirmed && e.ShowID == from.ID
		})).Return(nil).Once()
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e booking.Event) bool {
			return e.Type == booking.EventAmended && e.ShowID == to.ID && e.PreviousShowID == from.ID
		})).Return(nil).Once()
		pub.On("Publish", mock.Anything, mock.MatchedBy(func(e booking.Event) bool {
			return e.Type == booking.EventCancelled && e.Status == booking.StatusCancelled
		})).Return(nil).Once()

		b, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: from.ID, Seats: 2})
		require.NoError(t, err)
		_, err = env.ledger.Amend(ctx, AmendInput{BookingID: b.ID, ShowID: to.ID, Seats: 2})
		require.NoError(t, err)
		_, err = env.ledger.Release(ctx, b.ID)
		require.NoError(t, err)

		pub.AssertExpectations(t)
		cache.AssertNumberOfCalls(t, "Invalidate", 4)
	})

	t.Run("配信やキャッシュの失敗は操作を失敗させない", func(t *testing.T) {
		cache := new(MockAvailabilityCache)
		pub := new(MockEventPublisher)
		env := newTestEnv(t, WithAvailabilityCache(cache), WithEventPublisher(pub))
		sh := env.createShow(t, 5, "1000")
		u := env.createUser(t, "sidefail@example.com")

		cache.On("Invalidate", mock.Anything, sh.ID).Return(errors.New("redis down"))
		pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("broker down"))

		_, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 1})
		require.NoError(t, err)
		assert.Equal(t, 4, env.available(t, sh.ID))
	})

	t.Run("失敗した操作ではイベントを配信しない", func(t *testing.T) {
		pub := new(MockEventPublisher)
		env := newTestEnv(t, WithEventPublisher(pub))
		sh := env.createShow(t, 1, "1000")
		u := env.createUser(t, "nopub@example.com")

		_, err := env.ledger.Reserve(ctx, ReserveInput{UserID: u.ID, ShowID: sh.ID, Seats: 2})
		require.Error(t, err)
		pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	})
}
