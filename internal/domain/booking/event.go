package booking

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// EventType は予約イベントの種類（メッセージのルーティングキーを兼ねる）
type EventType string

const (
	EventConfirmed EventType = "booking.confirmed"
	EventAmended   EventType = "booking.amended"
	EventCancelled EventType = "booking.cancelled"
)

// Event はコミット済みの予約変更を表す
type Event struct {
	Type           EventType       `json:"type"`
	BookingID      int64           `json:"bookingId"`
	UserID         int64           `json:"userId"`
	ShowID         int64           `json:"showId"`
	PreviousShowID int64           `json:"previousShowId,omitempty"`
	Seats          int             `json:"seats"`
	TotalPrice     decimal.Decimal `json:"totalPrice"`
	Status         Status          `json:"status"`
	OccurredAt     time.Time       `json:"occurredAt"`
}

// NewEvent は予約の現在の状態からイベントを作る
func NewEvent(t EventType, b *Booking, previousShowID int64) Event {
	e := Event{
		Type:       t,
		BookingID:  b.ID,
		UserID:     b.UserID,
		ShowID:     b.ShowID,
		Seats:      b.Seats,
		TotalPrice: b.TotalPrice,
		Status:     b.Status,
		OccurredAt: time.Now(),
	}
	if previousShowID != b.ShowID {
		e.PreviousShowID = previousShowID
	}
	return e
}

// EventPublisher は予約イベントの配信先
type EventPublisher interface {
	Publish(ctx context.Context, e Event) error
}
