// Package rabbitmq は予約イベントを RabbitMQ の topic exchange に配信する
package rabbitmq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sanosuguru/go-show-reservation/internal/domain/booking"
)

// Channel は Publisher が使う amqp.Channel の操作
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher は booking.EventPublisher の RabbitMQ 実装。
// ルーティングキーはイベント種別（booking.confirmed など）
type Publisher struct {
	mu       sync.Mutex
	ch       Channel
	conn     *amqp.Connection
	exchange string
}

// Dial はブローカーに接続し、exchange を宣言した Publisher を返す
func Dial(url, exchange string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "RabbitMQ接続に失敗しました")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "チャネル作成に失敗しました")
	}
	p, err := NewPublisher(ch, exchange)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewPublisher は既存のチャネルから Publisher を作成する
func NewPublisher(ch Channel, exchange string) (*Publisher, error) {
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return nil, errors.Wrapf(err, "exchange 宣言に失敗: %s", exchange)
	}
	return &Publisher{ch: ch, exchange: exchange}, nil
}

// Publish はイベントを JSON で永続メッセージとして配信する
func (p *Publisher) Publish(ctx context.Context, e booking.Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return errors.Wrap(err, "イベントのシリアライズに失敗")
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         string(e.Type),
		Body:         body,
	}

	// amqp.Channel は並行した Publish に対して安全ではない
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, p.exchange, string(e.Type), false, false, msg); err != nil {
		return errors.Wrapf(err, "イベント配信に失敗: %s", e.Type)
	}
	return nil
}

// Close はチャネルと接続を閉じる
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.ch.Close()
	if p.conn != nil {
		err = errors.CombineErrors(err, p.conn.Close())
	}
	return err
}

var _ booking.EventPublisher = (*Publisher)(nil)
