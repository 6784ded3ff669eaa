package memory

import (
	"context"
	"sort"
	"time"

	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-reservation/internal/domain/transaction"
)

// BookingRepository はインメモリの予約リポジトリ
type BookingRepository struct {
	store *Store
}

func NewBookingRepository(store *Store) *BookingRepository {
	return &BookingRepository{store: store}
}

func (r *BookingRepository) Create(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	t, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	b.ID = r.store.nextBookingID()
	b.Version = 1

	t.mu.Lock()
	t.newBookings[b.ID] = cloneBooking(b)
	t.mu.Unlock()
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*booking.Booking, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return cloneBooking(b), nil
}

// Update はバージョンが一致する場合のみ更新を積む。コミット時にも再確認される
func (r *BookingRepository) Update(ctx context.Context, tx transaction.Tx, b *booking.Booking) error {
	t, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if staged, ok := t.newBookings[b.ID]; ok {
		if staged.Version != b.Version {
			return booking.ErrBookingConflict
		}
		b.Version++
		b.UpdatedAt = time.Now()
		t.newBookings[b.ID] = cloneBooking(b)
		return nil
	}

	current, staged := t.updBookings[b.ID]
	if !staged {
		s := r.store
		s.mu.RLock()
		committed, ok := s.bookings[b.ID]
		s.mu.RUnlock()
		if !ok {
			return booking.ErrBookingNotFound
		}
		current = committed
		t.bookingBase[b.ID] = committed.Version
	}
	if current.Version != b.Version {
		return booking.ErrBookingConflict
	}
	b.Version++
	b.UpdatedAt = time.Now()
	t.updBookings[b.ID] = cloneBooking(b)
	return nil
}

func (r *BookingRepository) List(ctx context.Context, filter booking.Filter) ([]*booking.Booking, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	bookings := make([]*booking.Booking, 0)
	for _, b := range s.bookings {
		if filter.UserID != 0 && b.UserID != filter.UserID {
			continue
		}
		if filter.ShowID != 0 && b.ShowID != filter.ShowID {
			continue
		}
		bookings = append(bookings, cloneBooking(b))
	}
	sort.Slice(bookings, func(i, j int) bool { return bookings[i].ID < bookings[j].ID })
	return bookings, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
