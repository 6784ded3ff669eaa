package application

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-show-reservation/internal/domain/show"
	"github.com/sanosuguru/go-show-reservation/internal/domain/theatre"
	"github.com/sanosuguru/go-show-reservation/internal/domain/transaction"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/logger"
	"github.com/sanosuguru/go-show-reservation/internal/pkg/metrics"
)

const defaultAvailabilityTTL = 30 * time.Second

// ShowService は公演の管理操作と空席数の参照を提供する
type ShowService struct {
	txManager   transaction.Manager
	showRepo    show.Repository
	theatreRepo theatre.Repository
	cache       AvailabilityCache
	cacheTTL    time.Duration
	metrics     *metrics.Metrics
}

func NewShowService(txm transaction.Manager, sr show.Repository, tr theatre.Repository) *ShowService {
	return &ShowService{txManager: txm, showRepo: sr, theatreRepo: tr, cacheTTL: defaultAvailabilityTTL}
}

// UseCache は空席数の読み取りキャッシュを設定する
func (s *ShowService) UseCache(cache AvailabilityCache, ttl time.Duration, m *metrics.Metrics) *ShowService {
	s.cache = cache
	if ttl > 0 {
		s.cacheTTL = ttl
	}
	s.metrics = m
	return s
}

type CreateShowInput struct {
	TheatreID  int64
	MovieTitle string
	StartsAt   time.Time
	Price      decimal.Decimal
	Capacity   int
	Language   string
	Screen     string
}

func (s *ShowService) CreateShow(ctx context.Context, input CreateShowInput) (*show.Show, error) {
	th, err := s.theatreRepo.GetByID(ctx, input.TheatreID)
	if err != nil {
		return nil, wrapInternal(err, "劇場取得に失敗")
	}
	if th.TotalSeats > 0 && input.Capacity > th.TotalSeats {
		return nil, show.ErrCapacityExceedsTheatre
	}

	sh := show.NewShow(input.TheatreID, input.MovieTitle, input.StartsAt, input.Price, input.Capacity, input.Language, input.Screen)
	if err := sh.Validate(); err != nil {
		return nil, err
	}
	if err := s.showRepo.Create(ctx, sh); err != nil {
		return nil, wrapInternal(err, "公演作成に失敗")
	}
	return sh, nil
}

func (s *ShowService) GetShow(ctx context.Context, id int64) (*show.Show, error) {
	sh, err := s.showRepo.GetByID(ctx, id)
	if err != nil {
		return nil, wrapInternal(err, "公演取得に失敗")
	}
	return sh, nil
}

func (s *ShowService) ListShows(ctx context.Context, filter show.Filter) ([]*show.Show, error) {
	shows, err := s.showRepo.List(ctx, filter)
	if err != nil {
		return nil, errors.Wrap(err, "公演一覧取得に失敗")
	}
	return shows, nil
}

type UpdateShowInput struct {
	ID         int64
	TheatreID  int64
	MovieTitle string
	StartsAt   time.Time
	Price      decimal.Decimal
	Capacity   int
	Language   string
	Screen     string
}

// UpdateShow は公演の属性と定員を更新する。空席数は「定員−確定座席数」に再計算される
func (s *ShowService) UpdateShow(ctx context.Context, input UpdateShowInput) (*show.Show, error) {
	th, err := s.theatreRepo.GetByID(ctx, input.TheatreID)
	if err != nil {
		return nil, wrapInternal(err, "劇場取得に失敗")
	}
	if th.TotalSeats > 0 && input.Capacity > th.TotalSeats {
		return nil, show.ErrCapacityExceedsTheatre
	}

	var updated *show.Show
	err = transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		sh, err := s.showRepo.GetForUpdate(ctx, tx, input.ID)
		if err != nil {
			return err
		}
		if err := sh.Resize(input.Capacity); err != nil {
			return err
		}
		sh.TheatreID = input.TheatreID
		sh.MovieTitle = input.MovieTitle
		sh.StartsAt = input.StartsAt
		sh.Price = input.Price
		sh.Language = input.Language
		sh.Screen = input.Screen
		if err := sh.Validate(); err != nil {
			return err
		}
		if err := s.showRepo.Update(ctx, tx, sh); err != nil {
			return err
		}
		updated = sh
		return nil
	})
	if err != nil {
		return nil, wrapInternal(err, "公演更新に失敗")
	}

	s.invalidate(ctx, input.ID)
	return updated, nil
}

// DeleteShow は公演を削除する。確定予約が座席を保持している間は削除できない
func (s *ShowService) DeleteShow(ctx context.Context, id int64) error {
	err := transaction.Run(ctx, s.txManager, func(tx transaction.Tx) error {
		sh, err := s.showRepo.GetForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if sh.HeldSeats() > 0 {
			return show.ErrShowHasBookings
		}
		return s.showRepo.Delete(ctx, tx, id)
	})
	if err != nil {
		return wrapInternal(err, "公演削除に失敗")
	}
	s.invalidate(ctx, id)
	return nil
}

// GetAvailability は公演の空席数を返す。キャッシュがあれば先に参照し、障害時はストアから読む
func (s *ShowService) GetAvailability(ctx context.Context, id int64) (int, error) {
	if s.cache != nil {
		seats, ok, err := s.cache.GetAvailable(ctx, id)
		switch {
		case err != nil:
			s.metrics.IncCache("error")
			logger.Warn("キャッシュ取得エラー", zap.Int64("show_id", id), zap.Error(err))
		case ok:
			s.metrics.IncCache("hit")
			logger.Debug("キャッシュヒット", zap.Int64("show_id", id), zap.Int("seats", seats))
			return seats, nil
		default:
			s.metrics.IncCache("miss")
		}
	}

	sh, err := s.showRepo.GetByID(ctx, id)
	if err != nil {
		return 0, wrapInternal(err, "公演取得に失敗")
	}

	if s.cache != nil {
		if err := s.cache.SetAvailable(ctx, id, sh.SeatsAvailable, s.cacheTTL); err != nil {
			logger.Warn("キャッシュ保存エラー", zap.Int64("show_id", id), zap.Error(err))
		}
	}
	return sh.SeatsAvailable, nil
}

func (s *ShowService) invalidate(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.Int64("show_id", id), zap.Error(err))
	}
}
