package application

import (
	"context"
	"sort"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-reservation/internal/domain/apperr"
	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-show-reservation/internal/domain/user"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/metrics"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/tracing"
)

const (
	opReserve = "reserve"
	opAmend   = "amend"
	opRelease = "release"
)

// AvailabilityCache は公演の空席数キャッシュ。GetAvailable の ok=false はキャッシュミス
type AvailabilityCache interface {
	GetAvailable(ctx context.Context, showID int64) (seats int, ok bool, err error)
	SetAvailable(ctx context.Context, showID int64, seats int, ttl time.Duration) error
	Invalidate(ctx context.Context, showID int64) error
}

// RetryPolicy は競合時の再試行設定
type RetryPolicy struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetryPolicy は既定の再試行設定
var DefaultRetryPolicy = RetryPolicy{MaxRetries: 5, InitialInterval: 10 * time.Millisecond, MaxInterval: 200 * time.Millisecond}

// LedgerOption は LedgerService の任意の依存を設定する
type LedgerOption func(*LedgerService)

func WithAvailabilityCache(c AvailabilityCache) LedgerOption {
	return func(s *LedgerService) { s.cache = c }
}

func WithEventPublisher(p booking.EventPublisher) LedgerOption {
	return func(s *LedgerService) { s.publisher = p }
}

func WithMetrics(m *metrics.Metrics) LedgerOption {
	return func(s *LedgerService) { s.metrics = m }
}

func WithRetryPolicy(p RetryPolicy) LedgerOption {
	return func(s *LedgerService) { s.retryPolicy = p }
}

// LedgerService は公演の空席数と予約記録の整合を保つ予約台帳
type LedgerService struct {
	txManager   transaction.Manager
	showRepo    show.Repository
	bookingRepo booking.Repository
	userRepo    user.Repository

	cache       AvailabilityCache
	publisher   booking.EventPublisher
	metrics     *metrics.Metrics
	retryPolicy RetryPolicy
	tracer      trace.Tracer
}

// NewLedgerService は新しい LedgerService を作成する
func NewLedgerService(
	txManager transaction.Manager,
	showRepo show.Repository,
	bookingRepo booking.Repository,
	userRepo user.Repository,
	opts ...LedgerOption,
) *LedgerService {
	s := &LedgerService{
		txManager:   txManager,
		showRepo:    showRepo,
		bookingRepo: bookingRepo,
		userRepo:    userRepo,
		retryPolicy: DefaultRetryPolicy,
		tracer:      tracing.Tracer("ledger"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReserveInput は予約作成の入力
type ReserveInput struct {
	UserID int64
	ShowID int64
	Seats  int
}

// AmendInput は予約変更の入力
type AmendInput struct {
	BookingID int64
	ShowID    int64
	Seats     int
}

// Reserve は公演の空席を確保し、確定済みの予約を作成する
func (s *LedgerService) Reserve(ctx context.Context, in ReserveInput) (_ *booking.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Reserve", trace.WithAttributes(
		attribute.Int64("user.id", in.UserID),
		attribute.Int64("show.id", in.ShowID),
		attribute.Int("seats", in.Seats),
	))
	started := time.Now()
	defer func() { s.finish(ctx, span, opReserve, started, err) }()

	switch {
	case in.Seats <= 0:
		return nil, booking.ErrInvalidSeatCount
	case in.UserID <= 0:
		return nil, booking.ErrUserIDRequired
	case in.ShowID <= 0:
		return nil, booking.ErrShowIDRequired
	}

	exists, err := s.userRepo.Exists(ctx, in.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "利用者の確認に失敗")
	}
	if !exists {
		return nil, user.ErrUserNotFound
	}

	var created *booking.Booking
	err = s.retry(ctx, opReserve, func() error {
		return transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
			sh, err := s.showRepo.GetForUpdate(ctx, tx, in.ShowID)
			if err != nil {
				return err
			}
			before := sh.SeatsAvailable
			if err := sh.Take(in.Seats); err != nil {
				return err
			}
			if err := s.showRepo.CompareAndSetSeats(ctx, tx, sh.ID, before, sh.SeatsAvailable); err != nil {
				return err
			}

			b := booking.NewBooking(in.UserID, sh.ID, in.Seats, sh.Price)
			if err := s.bookingRepo.Create(ctx, tx, b); err != nil {
				return err
			}
			created = b
			return nil
		})
	})
	if err != nil {
		return nil, wrapInternal(err, "予約作成に失敗")
	}

	s.afterCommit(ctx, booking.EventConfirmed, created, created.ShowID, created.ShowID)
	return created, nil
}

// Release は予約をキャンセルし、座席を公演の空席に戻す。キャンセル済みなら ErrBookingAlreadyCancelled
func (s *LedgerService) Release(ctx context.Context, bookingID int64) (_ *booking.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Release", trace.WithAttributes(attribute.Int64("booking.id", bookingID)))
	started := time.Now()
	defer func() { s.finish(ctx, span, opRelease, started, err) }()

	var released *booking.Booking
	err = s.retry(ctx, opRelease, func() error {
		b, err := s.bookingRepo.GetByID(ctx, bookingID)
		if err != nil {
			return err
		}
		if !b.IsConfirmed() {
			return booking.ErrBookingAlreadyCancelled
		}

		return transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
			sh, err := s.showRepo.GetForUpdate(ctx, tx, b.ShowID)
			if err != nil {
				return err
			}
			before := sh.SeatsAvailable
			if err := sh.Give(b.Seats); err != nil {
				return err
			}
			if err := s.showRepo.CompareAndSetSeats(ctx, tx, sh.ID, before, sh.SeatsAvailable); err != nil {
				return err
			}

			if err := b.Cancel(); err != nil {
				return err
			}
			if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
				return err
			}
			released = b
			return nil
		})
	})
	if err != nil {
		return nil, wrapInternal(err, "予約キャンセルに失敗")
	}

	s.afterCommit(ctx, booking.EventCancelled, released, released.ShowID, released.ShowID)
	return released, nil
}

// Amend は予約の座席数または公演を変更する。
// 公演が変わる場合は旧公演に座席を戻してから新公演で確保し、確保できなければ全体を取り消す
func (s *LedgerService) Amend(ctx context.Context, in AmendInput) (_ *booking.Booking, err error) {
	ctx, span := s.tracer.Start(ctx, "ledger.Amend", trace.WithAttributes(
		attribute.Int64("booking.id", in.BookingID),
		attribute.Int64("show.id", in.ShowID),
		attribute.Int("seats", in.Seats),
	))
	started := time.Now()
	defer func() { s.finish(ctx, span, opAmend, started, err) }()

	switch {
	case in.Seats <= 0:
		return nil, booking.ErrInvalidSeatCount
	case in.ShowID <= 0:
		return nil, booking.ErrShowIDRequired
	}

	var (
		amended        *booking.Booking
		previousShowID int64
	)
	err = s.retry(ctx, opAmend, func() error {
		b, err := s.bookingRepo.GetByID(ctx, in.BookingID)
		if err != nil {
			return err
		}
		if !b.IsConfirmed() {
			return booking.ErrBookingNotConfirmed
		}
		oldShowID, oldSeats := b.ShowID, b.Seats

		return transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
			locked, err := s.lockShows(ctx, tx, oldShowID, in.ShowID)
			if err != nil {
				return err
			}

			target := locked[in.ShowID]
			if oldShowID == in.ShowID {
				if err := s.adjustSeats(ctx, tx, target, in.Seats-oldSeats); err != nil {
					return err
				}
			} else {
				source := locked[oldShowID]
				sourceBefore, targetBefore := source.SeatsAvailable, target.SeatsAvailable
				if err := source.Give(oldSeats); err != nil {
					return err
				}
				if err := target.Take(in.Seats); err != nil {
					return err
				}
				if err := s.showRepo.CompareAndSetSeats(ctx, tx, source.ID, sourceBefore, source.SeatsAvailable); err != nil {
					return err
				}
				if err := s.showRepo.CompareAndSetSeats(ctx, tx, target.ID, targetBefore, target.SeatsAvailable); err != nil {
					return err
				}
			}

			if err := b.Amend(target.ID, in.Seats, target.Price); err != nil {
				return err
			}
			if err := s.bookingRepo.Update(ctx, tx, b); err != nil {
				return err
			}
			amended, previousShowID = b, oldShowID
			return nil
		})
	})
	if err != nil {
		return nil, wrapInternal(err, "予約変更に失敗")
	}

	s.afterCommit(ctx, booking.EventAmended, amended, previousShowID, previousShowID, amended.ShowID)
	return amended, nil
}

// adjustSeats は同一公演内で座席数の差分を反映する。diff > 0 は追加確保
func (s *LedgerService) adjustSeats(ctx context.Context, tx transaction.Tx, sh *show.Show, diff int) error {
	if diff == 0 {
		return nil
	}
	before := sh.SeatsAvailable
	if diff > 0 {
		if err := sh.Take(diff); err != nil {
			return err
		}
	} else if err := sh.Give(-diff); err != nil {
		return err
	}
	return s.showRepo.CompareAndSetSeats(ctx, tx, sh.ID, before, sh.SeatsAvailable)
}

// lockShows は公演をID昇順でロックする。順序を固定することで公演をまたぐ変更同士のデッドロックを防ぐ
func (s *LedgerService) lockShows(ctx context.Context, tx transaction.Tx, ids ...int64) (map[int64]*show.Show, error) {
	unique := make([]int64, 0, len(ids))
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			unique = append(unique, id)
		}
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i] < unique[j] })

	locked := make(map[int64]*show.Show, len(unique))
	for _, id := range unique {
		sh, err := s.showRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = sh
	}
	return locked, nil
}

// GetBooking はIDから予約を取得する
func (s *LedgerService) GetBooking(ctx context.Context, id int64) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(err, "予約取得に失敗")
	}
	return b, nil
}

// ListBookings は予約一覧を返す。filter のゼロ値は全件
func (s *LedgerService) ListBookings(ctx context.Context, filter booking.Filter) ([]*booking.Booking, error) {
	bookings, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "予約一覧取得に失敗")
	}
	return bookings, nil
}

// AuditInventory は全公演について「空席数＋確定座席数＝定員」を検査するためのスナップショットを返す
func (s *LedgerService) AuditInventory(ctx context.Context) ([]show.Inventory, error) {
	inv, err := s.showRepo.ListInventory(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "在庫監査に失敗")
	}
	return inv, nil
}

// retry は競合エラーの場合のみ fn を指数バックオフで再実行する
func (s *LedgerService) retry(ctx context.Context, op string, fn func() error) error {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = s.retryPolicy.InitialInterval
	eb.MaxInterval = s.retryPolicy.MaxInterval
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(max(s.retryPolicy.MaxRetries, 0))), ctx)

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		if attempt > 1 {
			s.metrics.IncLedgerRetry(op)
			logger.FromContext(ctx).Debug("競合のため再試行", zap.String("operation", op), zap.Int("attempt", attempt))
		}
		err := fn()
		if err == nil || apperr.IsConflict(err) {
			return err
		}
		return backoff.Permanent(err)
	}, policy)
}

// afterCommit はコミット後の副作用（キャッシュ無効化、イベント配信）を行う。失敗しても操作は成功扱い
func (s *LedgerService) afterCommit(ctx context.Context, t booking.EventType, b *booking.Booking, previousShowID int64, touched ...int64) {
	log := logger.FromContext(ctx)

	if s.cache != nil {
		for _, id := range uniqueIDs(touched) {
			if err := s.cache.Invalidate(ctx, id); err != nil {
				log.Warn("空席キャッシュの無効化に失敗", zap.Int64("show_id", id), zap.Error(err))
			}
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, booking.NewEvent(t, b, previousShowID)); err != nil {
			log.Warn("予約イベントの配信に失敗", zap.String("type", string(t)), zap.Int64("booking_id", b.ID), zap.Error(err))
		}
	}

	log.Info("予約台帳を更新",
		zap.String("event", string(t)),
		zap.Int64("booking_id", b.ID),
		zap.Int64("show_id", b.ShowID),
		zap.Int("seats", b.Seats),
		zap.String("status", string(b.Status)),
	)
}

func (s *LedgerService) finish(ctx context.Context, span trace.Span, op string, started time.Time, err error) {
	defer span.End()

	result := "success"
	if err != nil {
		kind := apperr.KindOf(err)
		result = string(kind)
		span.RecordError(err)
		span.SetStatus(codes.Error, string(kind))
		if kind == apperr.KindInternal {
			logger.FromContext(ctx).Error("予約台帳の操作に失敗", zap.String("operation", op), zap.Error(err))
		}
	}
	s.metrics.ObserveLedger(op, result, started)
}

// wrapInternal はドメイン種別を持たないエラーにだけ文脈を付ける
func wrapInternal(err error, msg string) error {
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}
	return errors.Wrap(err, msg)
}

func uniqueIDs(ids []int64) []int64 {
	out := ids[:0:0]
	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if id > 0 && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
