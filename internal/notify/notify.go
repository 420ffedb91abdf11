// Package notify announces stored files to downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
)

const (
	DefaultExchange   = "kl_slack.events"
	RoutingFileStored = "file.stored"
)

// FileStored is published once per successfully saved upload.
type FileStored struct {
	ID        string    `json:"id"`
	FileID    string    `json:"file_id"`
	Name      string    `json:"name"`
	Path      string    `json:"path"`
	SizeBytes int64     `json:"size_bytes"`
	ChannelID string    `json:"channel_id,omitempty"`
	UserID    string    `json:"user_id,omitempty"`
	SavedAt   time.Time `json:"saved_at"`
}

type Publisher interface {
	PublishFileStored(ctx context.Context, ev FileStored) error
	Close() error
}

// Noop drops every notification.
type Noop struct{}

func (Noop) PublishFileStored(context.Context, FileStored) error { return nil }
func (Noop) Close() error { return nil }

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// AMQP publishes JSON notifications to a durable topic exchange.
type AMQP struct {
	exchange string
	open     func() (channel, error)
	close    func() error
	log      *slog.Logger
}

// DialAMQP connects to url and declares exchange.
func DialAMQP(url, exchange string, logger *slog.Logger) (*AMQP, error) {
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp exchange declare: %w", err)
	}
	return newAMQP(exchange, func() (channel, error) { return conn.Channel() }, conn.Close, logger), nil
}

func newAMQP(exchange string, open func() (channel, error), closeFn func() error, logger *slog.Logger) *AMQP {
	if logger == nil {
		logger = slog.Default()
	}
	return &AMQP{exchange: exchange, open: open, close: closeFn, log: logger}
}

func (p *AMQP) PublishFileStored(ctx context.Context, ev FileStored) error {
	if strings.TrimSpace(ev.ID) == "" {
		ev.ID = uuid.NewString()
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()
	err = ch.PublishWithContext(ctx, p.exchange, RoutingFileStored, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    ev.ID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	p.log.Debug("notify_published", "exchange", p.exchange, "key", RoutingFileStored, "message_id", ev.ID)
	return nil
}

func (p *AMQP) Close() error {
	if p.close == nil {
		return nil
	}
	return p.close()
}
