package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/baechuer/tokenauth/internal/application/auth"
	"github.com/baechuer/tokenauth/internal/domain"
)

const (
	DefaultExchange = "tokenauth.events"

	RoutingKeyAccountRegistered = "account.registered"
	RoutingKeyAccountDeleted    = "account.deleted"

	defaultConfirmWait = 2 * time.Second
)

// session is one live connection and its confirm-mode channel.
type session struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	confirms <-chan amqp.Confirmation
}

func (s *session) alive() bool {
	return s != nil && !s.conn.IsClosed() && !s.ch.IsClosed()
}

func (s *session) close() {
	if s == nil {
		return
	}
	_ = s.ch.Close()
	_ = s.conn.Close()
}

// Publisher emits account lifecycle events on a durable topic exchange and
// waits for the broker to confirm each one. Publishes are serialized so a
// confirm always belongs to the message just sent.
type Publisher struct {
	url      string
	exchange string

	mu   sync.Mutex
	sess *session
}

func NewPublisher(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	p := &Publisher{url: url, exchange: exchange}

	sess, err := p.dial()
	if err != nil {
		return nil, domain.ErrRabbitUnavailable(err)
	}
	p.sess = sess
	return p, nil
}

func (p *Publisher) PublishAccountRegistered(ctx context.Context, evt auth.AccountEvent) error {
	return p.publish(ctx, RoutingKeyAccountRegistered, evt)
}

func (p *Publisher) PublishAccountDeleted(ctx context.Context, evt auth.AccountEvent) error {
	return p.publish(ctx, RoutingKeyAccountDeleted, evt)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.sess.close()
	p.sess = nil
	return nil
}

func (p *Publisher) dial() (*session, error) {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	sess := &session{conn: conn, ch: ch}
	if err := ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		sess.close()
		return nil, fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		sess.close()
		return nil, fmt.Errorf("enable confirms: %w", err)
	}
	sess.confirms = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return sess, nil
}

// current returns a usable session, redialing when the previous one died.
// Callers hold p.mu.
func (p *Publisher) current() (*session, error) {
	if p.sess.alive() {
		return p.sess, nil
	}
	p.sess.close()
	p.sess = nil

	sess, err := p.dial()
	if err != nil {
		return nil, err
	}
	p.sess = sess
	return sess, nil
}

func (p *Publisher) publish(ctx context.Context, key string, evt auth.AccountEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return domain.ErrInternal(fmt.Errorf("encode %s: %w", key, err))
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultConfirmWait)
		defer cancel()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sess, err := p.current()
	if err != nil {
		return domain.ErrRabbitUnavailable(err)
	}
	discardPending(sess.confirms)

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    evt.OccurredAt,
		Type:         key,
		Body:         body,
	}
	if err := sess.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg); err != nil {
		p.sess.close()
		p.sess = nil
		return domain.ErrRabbitUnavailable(fmt.Errorf("publish %s: %w", key, err))
	}

	select {
	case conf, ok := <-sess.confirms:
		switch {
		case !ok:
			p.sess.close()
			p.sess = nil
			return domain.ErrRabbitUnavailable(fmt.Errorf("publish %s: confirm channel closed", key))
		case !conf.Ack:
			return domain.ErrRabbitUnavailable(fmt.Errorf("publish %s: broker nacked tag %d", key, conf.DeliveryTag))
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// discardPending drops confirms left behind by a publish that timed out.
func discardPending(confirms <-chan amqp.Confirmation) {
	for {
		select {
		case <-confirms:
		default:
			return
		}
	}
}
