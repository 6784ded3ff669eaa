package memory

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-reservation/internal/domain/transaction"
)

// ErrTxDone はコミット／ロールバック済みのトランザクションを使った場合のエラー
var ErrTxDone = errors.New("トランザクションは既に終了しています")

// Tx はインメモリストアのトランザクション
type Tx struct {
	store *Store
	ctx   context.Context

	mu     sync.Mutex
	done   bool
	locked map[int64]bool

	shows        map[int64]*show.Show // ロック中の公演の作業コピー
	deletedShows map[int64]bool
	newBookings  map[int64]*booking.Booking
	updBookings  map[int64]*booking.Booking
	// 更新予約ごとの読み取り時点のバージョン
	bookingBase map[int64]int
}

// TxManager はインメモリストアのトランザクションマネージャー
type TxManager struct {
	store *Store
}

// NewTxManager は新しい TxManager を作成する
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin は新しいトランザクションを開始する
func (m *TxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{
		store:        m.store,
		ctx:          ctx,
		locked:       make(map[int64]bool),
		shows:        make(map[int64]*show.Show),
		deletedShows: make(map[int64]bool),
		newBookings:  make(map[int64]*booking.Booking),
		updBookings:  make(map[int64]*booking.Booking),
		bookingBase:  make(map[int64]int),
	}, nil
}

func unwrapTx(tx transaction.Tx) (*Tx, error) {
	t, ok := tx.(*Tx)
	if !ok || t == nil {
		return nil, errors.New("インメモリストアのトランザクションではありません")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil, ErrTxDone
	}
	return t, nil
}

// lock は公演の行ロックを取得する。同じトランザクション内では再入可能
func (t *Tx) lock(ctx context.Context, id int64) error {
	t.mu.Lock()
	held := t.locked[id]
	t.mu.Unlock()
	if held {
		return nil
	}
	if err := t.store.lockShow(ctx, id); err != nil {
		return errors.Wrap(err, "公演ロック待ちを中断")
	}
	t.mu.Lock()
	t.locked[id] = true
	t.mu.Unlock()
	return nil
}

// Commit は積まれた書き込みをまとめて反映し、ロックを解放する
func (t *Tx) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return ErrTxDone
	}
	t.done = true
	defer t.releaseLocked()

	if err := t.ctx.Err(); err != nil {
		return errors.Wrap(err, "コミット前にコンテキストが終了")
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	// 予約はロックされないため、読み取り後に他者がコミットしていないかここで確認する
	for id, base := range t.bookingBase {
		cur, ok := s.bookings[id]
		if !ok {
			return booking.ErrBookingNotFound
		}
		if cur.Version != base {
			return booking.ErrBookingConflict
		}
	}

	for id, sh := range t.shows {
		if t.deletedShows[id] {
			continue
		}
		s.shows[id] = sh
	}
	for id := range t.deletedShows {
		delete(s.shows, id)
		for bid, b := range s.bookings {
			if b.ShowID == id {
				delete(s.bookings, bid)
			}
		}
	}
	for id, b := range t.newBookings {
		s.bookings[id] = b
	}
	for id, b := range t.updBookings {
		s.bookings[id] = b
	}
	return nil
}

// Rollback は積まれた書き込みを破棄し、ロックを解放する。終了済みなら何もしない
func (t *Tx) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	t.releaseLocked()
	return nil
}

func (t *Tx) releaseLocked() {
	for id := range t.locked {
		t.store.unlockShow(id)
	}
	t.locked = map[int64]bool{}
}

var _ transaction.Manager = (*TxManager)(nil)
