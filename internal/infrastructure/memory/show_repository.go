package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/transaction"
)

// ShowRepository はインメモリの公演リポジトリ
type ShowRepository struct {
	store *Store
}

func NewShowRepository(store *Store) *ShowRepository {
	return &ShowRepository{store: store}
}

func (r *ShowRepository) Create(ctx context.Context, sh *show.Show) error {
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.theatres[sh.TheatreID]; !ok {
		return theatre.ErrTheatreNotFound
	}
	s.showSeq++
	sh.ID = s.showSeq
	sh.Version = 1
	s.shows[sh.ID] = cloneShow(sh)
	return nil
}

func (r *ShowRepository) GetByID(ctx context.Context, id int64) (*show.Show, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shows[id]
	if !ok {
		return nil, show.ErrShowNotFound
	}
	return cloneShow(sh), nil
}

func (r *ShowRepository) Exists(ctx context.Context, id int64) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.shows[id]
	return ok, nil
}

func (r *ShowRepository) List(ctx context.Context, filter show.Filter) ([]*show.Show, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	title := strings.ToLower(filter.MovieTitle)
	shows := make([]*show.Show, 0, len(s.shows))
	for _, sh := range s.shows {
		if filter.TheatreID != 0 && sh.TheatreID != filter.TheatreID {
			continue
		}
		if title != "" && !strings.Contains(strings.ToLower(sh.MovieTitle), title) {
			continue
		}
		shows = append(shows, cloneShow(sh))
	}
	sort.Slice(shows, func(i, j int) bool {
		if !shows[i].StartsAt.Equal(shows[j].StartsAt) {
			return shows[i].StartsAt.Before(shows[j].StartsAt)
		}
		return shows[i].ID < shows[j].ID
	})
	return shows, nil
}

// GetForUpdate は公演ロックを取得し、トランザクション内の作業コピーを返す
func (r *ShowRepository) GetForUpdate(ctx context.Context, tx transaction.Tx, id int64) (*show.Show, error) {
	t, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}
	if ok, _ := r.Exists(ctx, id); !ok {
		return nil, show.ErrShowNotFound
	}
	if err := t.lock(ctx, id); err != nil {
		return nil, err
	}
	sh, err := r.working(t, id)
	if err != nil {
		return nil, err
	}
	return cloneShow(sh), nil
}

// working はトランザクション内の作業コピーを返す。ロック取得後に呼ぶこと
func (r *ShowRepository) working(t *Tx, id int64) (*show.Show, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.deletedShows[id] {
		return nil, show.ErrShowNotFound
	}
	if sh, ok := t.shows[id]; ok {
		return sh, nil
	}
	s := t.store
	s.mu.RLock()
	committed, ok := s.shows[id]
	s.mu.RUnlock()
	if !ok {
		return nil, show.ErrShowNotFound
	}
	sh := cloneShow(committed)
	t.shows[id] = sh
	return sh, nil
}

func (r *ShowRepository) CompareAndSetSeats(ctx context.Context, tx transaction.Tx, id int64, expected, next int) error {
	t, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, id); err != nil {
		return err
	}
	sh, err := r.working(t, id)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if sh.SeatsAvailable != expected {
		return show.ErrSeatCountConflict
	}
	if next < 0 || next > sh.Capacity {
		return show.ErrInvalidSeatsAvailable
	}
	sh.SeatsAvailable = next
	sh.Version++
	sh.UpdatedAt = time.Now()
	return nil
}

func (r *ShowRepository) Update(ctx context.Context, tx transaction.Tx, in *show.Show) error {
	t, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, in.ID); err != nil {
		return err
	}
	sh, err := r.working(t, in.ID)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if sh.Version != in.Version {
		return show.ErrShowConflict
	}
	if in.SeatsAvailable < 0 || in.SeatsAvailable > in.Capacity {
		return show.ErrInvalidSeatsAvailable
	}
	updated := cloneShow(in)
	updated.Version++
	updated.UpdatedAt = time.Now()
	t.shows[in.ID] = updated
	in.Version = updated.Version
	in.UpdatedAt = updated.UpdatedAt
	return nil
}

// Delete は公演と関連する予約を削除する
func (r *ShowRepository) Delete(ctx context.Context, tx transaction.Tx, id int64) error {
	t, err := unwrapTx(tx)
	if err != nil {
		return err
	}
	if err := t.lock(ctx, id); err != nil {
		return err
	}
	if _, err := r.working(t, id); err != nil {
		return err
	}
	t.mu.Lock()
	t.deletedShows[id] = true
	t.mu.Unlock()
	return nil
}

func (r *ShowRepository) ListInventory(ctx context.Context) ([]show.Inventory, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	confirmed := make(map[int64]int, len(s.shows))
	for _, b := range s.bookings {
		if b.IsConfirmed() {
			confirmed[b.ShowID] += b.Seats
		}
	}
	inv := make([]show.Inventory, 0, len(s.shows))
	for id, sh := range s.shows {
		inv = append(inv, show.Inventory{
			ShowID:         id,
			Capacity:       sh.Capacity,
			SeatsAvailable: sh.SeatsAvailable,
			ConfirmedSeats: confirmed[id],
		})
	}
	sort.Slice(inv, func(i, j int) bool { return inv[i].ShowID < inv[j].ShowID })
	return inv, nil
}

var _ show.Repository = (*ShowRepository)(nil)
