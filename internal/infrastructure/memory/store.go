// Package memory は単一プロセス向けのインメモリストア実装。
// 公演行ロックはトランザクションのコミット／ロールバックまで保持され、
// 書き込みはトランザクション上に積まれてコミット時にまとめて反映される。
package memory

import (
	"context"
	"sync"

	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
)

// Store は全エンティティのコミット済み状態を保持する
type Store struct {
	mu sync.RWMutex

	users    map[int64]*user.User
	theatres map[int64]*theatre.Theatre
	shows    map[int64]*show.Show
	bookings map[int64]*booking.Booking

	// 公演ごとの行ロック（容量1のセマフォ）
	showLocks map[int64]chan struct{}

	userSeq, theatreSeq, showSeq, bookingSeq int64
}

// NewStore は空のストアを作成する
func NewStore() *Store {
	return &Store{
		users:     make(map[int64]*user.User),
		theatres:  make(map[int64]*theatre.Theatre),
		shows:     make(map[int64]*show.Show),
		bookings:  make(map[int64]*booking.Booking),
		showLocks: make(map[int64]chan struct{}),
	}
}

func (s *Store) showLock(id int64) chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.showLocks[id]
	if !ok {
		ch = make(chan struct{}, 1)
		s.showLocks[id] = ch
	}
	return ch
}

// lockShow は公演の行ロックを取得する。ctx がキャンセルされたら諦める
func (s *Store) lockShow(ctx context.Context, id int64) error {
	select {
	case s.showLock(id) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) unlockShow(id int64) {
	<-s.showLock(id)
}

func (s *Store) nextBookingID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookingSeq++
	return s.bookingSeq
}

func cloneShow(sh *show.Show) *show.Show {
	c := *sh
	return &c
}

func cloneBooking(b *booking.Booking) *booking.Booking {
	c := *b
	return &c
}
