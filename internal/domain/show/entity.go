package show

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/sanosuguru/go-show-reservation/internal/domain/apperr"
)

// Show は公演エンティティを表す
type Show struct {
	ID             int64
	TheatreID      int64
	MovieTitle     string
	StartsAt       time.Time
	Price          decimal.Decimal
	Capacity       int
	SeatsAvailable int
	Language       string
	Screen         string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int // 楽観的ロック用
}

// NewShow は新しい公演を作成する。空席数は定員で初期化される
func NewShow(theatreID int64, movieTitle string, startsAt time.Time, price decimal.Decimal, capacity int, language, screen string) *Show {
	now := time.Now()
	return &Show{
		TheatreID:      theatreID,
		MovieTitle:     movieTitle,
		StartsAt:       startsAt,
		Price:          price,
		Capacity:       capacity,
		SeatsAvailable: capacity,
		Language:       language,
		Screen:         screen,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// Validate は公演の検証を行う
func (s *Show) Validate() error {
	if s.MovieTitle == "" {
		return ErrMovieTitleRequired
	}
	if s.TheatreID <= 0 {
		return ErrTheatreIDRequired
	}
	if s.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if s.Price.IsNegative() {
		return ErrInvalidPrice
	}
	if s.SeatsAvailable < 0 || s.SeatsAvailable > s.Capacity {
		return ErrInvalidSeatsAvailable
	}
	return nil
}

// HeldSeats は確定予約が保持している座席数を返す
func (s *Show) HeldSeats() int {
	return s.Capacity - s.SeatsAvailable
}

// Take は空席から n 席を差し引く。不足している場合は何も変更しない
func (s *Show) Take(n int) error {
	if n > s.SeatsAvailable {
		return apperr.NewInsufficientSeats(s.SeatsAvailable, n)
	}
	s.SeatsAvailable -= n
	return nil
}

// Give は n 席を空席に戻す
func (s *Show) Give(n int) error {
	if s.SeatsAvailable+n > s.Capacity {
		return ErrSeatsOverflow
	}
	s.SeatsAvailable += n
	return nil
}

// Resize は定員を変更する。確定予約の座席数を下回る定員は拒否する
func (s *Show) Resize(capacity int) error {
	if capacity <= 0 {
		return ErrInvalidCapacity
	}
	held := s.HeldSeats()
	if capacity < held {
		return ErrCapacityBelowBooked
	}
	s.Capacity = capacity
	s.SeatsAvailable = capacity - held
	return nil
}

// Inventory は公演ごとの在庫監査結果
type Inventory struct {
	ShowID         int64
	Capacity       int
	SeatsAvailable int
	ConfirmedSeats int
}

// Drift は定員と（空席＋確定座席）の差を返す。整合していれば 0
func (i Inventory) Drift() int {
	return i.Capacity - i.SeatsAvailable - i.ConfirmedSeats
}

// Consistent は在庫が整合しているかを返す
func (i Inventory) Consistent() bool {
	return i.Drift() == 0
}
