package booking

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status は予約の状態を表す
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Booking は予約エンティティを表す
type Booking struct {
	ID         int64
	UserID     int64
	ShowID     int64
	Seats      int
	TotalPrice decimal.Decimal
	Status     Status
	BookedAt   time.Time
	UpdatedAt  time.Time
	Version    int // 楽観的ロック用
}

// NewBooking は確定状態の新しい予約を作成する
func NewBooking(userID, showID int64, seats int, unitPrice decimal.Decimal) *Booking {
	now := time.Now()
	return &Booking{
		UserID:     userID,
		ShowID:     showID,
		Seats:      seats,
		TotalPrice: PriceFor(unitPrice, seats),
		Status:     StatusConfirmed,
		BookedAt:   now,
		UpdatedAt:  now,
	}
}

// PriceFor は単価×座席数の合計金額を返す
func PriceFor(unitPrice decimal.Decimal, seats int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(seats)))
}

// IsConfirmed は予約が確定状態かを返す
func (b *Booking) IsConfirmed() bool {
	return b.Status == StatusConfirmed
}

// Cancel は予約をキャンセルする。キャンセル済みの予約は元に戻せない
func (b *Booking) Cancel() error {
	if b.Status == StatusCancelled {
		return ErrBookingAlreadyCancelled
	}
	b.Status = StatusCancelled
	b.UpdatedAt = time.Now()
	return nil
}

// Amend は公演と座席数を変更し、合計金額を再計算する
func (b *Booking) Amend(showID int64, seats int, unitPrice decimal.Decimal) error {
	if !b.IsConfirmed() {
		return ErrBookingNotConfirmed
	}
	if seats <= 0 {
		return ErrInvalidSeatCount
	}
	b.ShowID = showID
	b.Seats = seats
	b.TotalPrice = PriceFor(unitPrice, seats)
	b.UpdatedAt = time.Now()
	return nil
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.UserID <= 0 {
		return ErrUserIDRequired
	}
	if b.ShowID <= 0 {
		return ErrShowIDRequired
	}
	if b.Seats <= 0 {
		return ErrInvalidSeatCount
	}
	if b.TotalPrice.IsNegative() {
		return ErrInvalidTotalPrice
	}
	return nil
}
