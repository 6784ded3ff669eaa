package memory

import (
	"context"

	"github.com/sanosuguru/go-show-reservation/internal/seed"
)

// SeedStore はインメモリストアへの初期データ投入
type SeedStore struct {
	store *Store
}

func NewSeedStore(store *Store) *SeedStore {
	return &SeedStore{store: store}
}

func (r *SeedStore) HasUsers(ctx context.Context) (bool, error) {
	s := r.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users) > 0, nil
}

// Import はストア全体のロック下で投入するため、途中状態は外から見えない
func (r *SeedStore) Import(ctx context.Context, ds *seed.Dataset) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s := r.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range ds.Users {
		c := *u
		s.users[u.ID] = &c
		s.userSeq = max(s.userSeq, u.ID)
	}
	for _, th := range ds.Theatres {
		c := *th
		s.theatres[th.ID] = &c
		s.theatreSeq = max(s.theatreSeq, th.ID)
	}
	for _, sh := range ds.Shows {
		s.shows[sh.ID] = cloneShow(sh)
		s.showSeq = max(s.showSeq, sh.ID)
	}
	for _, b := range ds.Bookings {
		s.bookings[b.ID] = cloneBooking(b)
		s.bookingSeq = max(s.bookingSeq, b.ID)
	}
	return nil
}

var _ seed.Store = (*SeedStore)(nil)
