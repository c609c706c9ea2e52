package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	Exchange    = "booking_topic"
	StatusQueue = "booking_status"
)

// RoutingKey is booking.status.<task id>.
func RoutingKey(taskID int64) string {
	return fmt.Sprintf("booking.status.%d", taskID)
}

// ManagerMQ keeps one connection and channel alive and redials on close.
type ManagerMQ struct {
	url string

	mu    sync.RWMutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	alive bool
}

func NewMQ(url string) *ManagerMQ {
	return &ManagerMQ{url: url}
}

func (m *ManagerMQ) Connect(ctx context.Context) error {
	if err := m.connectOnce(); err != nil {
		return err
	}
	if err := m.DeclareTopology(); err != nil {
		return err
	}
	go m.reconnectLoop(ctx)
	return nil
}

func (m *ManagerMQ) connectOnce() error {
	conn, err := amqp.DialConfig(m.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return err
	}

	m.mu.Lock()
	m.conn, m.ch = conn, ch
	m.alive = true
	m.mu.Unlock()
	log.Printf("[RMQ] connected")
	return nil
}

func (m *ManagerMQ) reconnectLoop(ctx context.Context) {
	for {
		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()
		notify := conn.NotifyClose(make(chan *amqp.Error, 1))

		select {
		case <-ctx.Done():
			m.Close()
			return
		case err := <-notify:
			m.mu.Lock()
			m.alive = false
			m.mu.Unlock()
			if err != nil {
				log.Printf("[RMQ] connection closed: %v", err)
			}
		}

		ticker := time.NewTicker(4 * time.Second)
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
			}
			if err := m.connectOnce(); err != nil {
				log.Printf("[RMQ] reconnect failed: %v", err)
				continue
			}
			if err := m.DeclareTopology(); err != nil {
				log.Printf("[RMQ] redeclare topology failed: %v", err)
				continue
			}
			break
		}
		ticker.Stop()
	}
}

func (m *ManagerMQ) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ch != nil {
		_ = m.ch.Close()
	}
	if m.conn != nil {
		_ = m.conn.Close()
	}
	m.alive = false
}

func (m *ManagerMQ) Channel() (*amqp.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.alive || m.ch == nil {
		return nil, errors.New("channel not available")
	}
	return m.ch, nil
}

func (m *ManagerMQ) DeclareTopology() error {
	ch, err := m.Channel()
	if err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(Exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(StatusQueue, true, false, false, false, nil); err != nil {
		return err
	}
	return ch.QueueBind(StatusQueue, "booking.status.*", Exchange, false, nil)
}

// PublishChannel is the one amqp.Channel method the publisher needs.
type PublishChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

type AMQPPublisher struct {
	channel func() (PublishChannel, error)
}

func NewAMQPPublisher(m *ManagerMQ) *AMQPPublisher {
	return &AMQPPublisher{channel: func() (PublishChannel, error) {
		ch, err := m.Channel()
		if err != nil {
			return nil, err
		}
		return ch, nil
	}}
}

func (p *AMQPPublisher) Publish(ctx context.Context, s Status) error {
	ch, err := p.channel()
	if err != nil {
		return fmt.Errorf("channel: %w", err)
	}
	body, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := ch.PublishWithContext(ctx, Exchange, RoutingKey(s.TaskID), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    s.At,
		Body:         body,
	}); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}
