package rabbitmq

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable).Error(0)
}

func (m *MockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, msg).Error(0)
}

func (m *MockChannel) Close() error {
	return m.Called().Error(0)
}

func TestPublisher_Publish(t *testing.T) {
	ctx := context.Background()
	b := &booking.Booking{
		ID: 7, UserID: 3, ShowID: 11, Seats: 2,
		TotalPrice: decimal.RequireFromString("501.00"), Status: booking.StatusConfirmed,
	}

	t.Run("種別をルーティングキーにして永続メッセージで配信", func(t *testing.T) {
		ch := new(MockChannel)
		ch.On("ExchangeDeclare", "bookings", amqp.ExchangeTopic, true).Return(nil)
		ch.On("PublishWithContext", "bookings", "booking.amended", mock.MatchedBy(func(msg amqp.Publishing) bool {
			var e booking.Event
			if err := json.Unmarshal(msg.Body, &e); err != nil {
				return false
			}
			return msg.DeliveryMode == amqp.Persistent &&
				msg.ContentType == "application/json" &&
				e.BookingID == 7 && e.ShowID == 11 && e.PreviousShowID == 4 &&
				e.TotalPrice.Equal(decimal.NewFromInt(501))
		})).Return(nil)

		p, err := NewPublisher(ch, "bookings")
		require.NoError(t, err)
		require.NoError(t, p.Publish(ctx, booking.NewEvent(booking.EventAmended, b, 4)))
		ch.AssertExpectations(t)
	})

	t.Run("exchange 宣言の失敗", func(t *testing.T) {
		ch := new(MockChannel)
		ch.On("ExchangeDeclare", "bookings", amqp.ExchangeTopic, true).Return(errors.New("access refused"))

		_, err := NewPublisher(ch, "bookings")
		assert.Error(t, err)
	})

	t.Run("配信の失敗はエラーを返す", func(t *testing.T) {
		ch := new(MockChannel)
		ch.On("ExchangeDeclare", mock.Anything, mock.Anything, mock.Anything).Return(nil)
		ch.On("PublishWithContext", mock.Anything, mock.Anything, mock.Anything).Return(amqp.ErrClosed)
		ch.On("Close").Return(nil)

		p, err := NewPublisher(ch, "bookings")
		require.NoError(t, err)
		err = p.Publish(ctx, booking.NewEvent(booking.EventConfirmed, b, b.ShowID))
		assert.ErrorIs(t, err, amqp.ErrClosed)
		assert.NoError(t, p.Close())
	})
}
