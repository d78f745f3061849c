package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kumbhanChoksi/Signals-Backend/internal/domain/models"
	domrepo "github.com/kumbhanChoksi/Signals-Backend/internal/domain/repository"
	"github.com/kumbhanChoksi/Signals-Backend/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// KeyedPublisher is the subset of the Kafka producer the event publisher needs.
type KeyedPublisher interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
}

// KafkaSignalPublisher writes signal events keyed by tenant, so one tenant's
// events stay ordered within a partition.
type KafkaSignalPublisher struct {
	producer KeyedPublisher
	topic    string
}

func NewKafkaSignalPublisher(producer KeyedPublisher, topic string) *KafkaSignalPublisher {
	return &KafkaSignalPublisher{producer: producer, topic: topic}
}

func (p *KafkaSignalPublisher) PublishSignal(ctx context.Context, event models.SignalEvent) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(event.Signal.TenantID), event); err != nil {
		return fmt.Errorf("publish signal event: %w", err)
	}
	return nil
}

// RedisSignalNotifier fans signal events out over Redis pub/sub on one
// channel per tenant. Delivery is fire-and-forget.
type RedisSignalNotifier struct {
	client *redis.Client
	prefix string
	l      *logger.Logger
}

func NewRedisSignalNotifier(client *redis.Client, l *logger.Logger) *RedisSignalNotifier {
	return &RedisSignalNotifier{client: client, prefix: "signal:events", l: l}
}

func (n *RedisSignalNotifier) channel(tenantID string) string {
	return n.prefix + ":" + tenantID
}

func (n *RedisSignalNotifier) PublishSignal(ctx context.Context, event models.SignalEvent) error {
	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode signal event: %w", err)
	}
	if err := n.client.Publish(ctx, n.channel(event.Signal.TenantID), b).Err(); err != nil {
		return fmt.Errorf("redis publish: %w", err)
	}
	return nil
}

func (n *RedisSignalNotifier) Subscribe(ctx context.Context, tenantID string) (domrepo.SignalSubscription, error) {
	ps := n.client.Subscribe(ctx, n.channel(tenantID))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("redis subscribe: %w", err)
	}

	sub := &redisSubscription{ps: ps, events: make(chan models.SignalEvent, 16)}
	go sub.run(n.l)
	return sub, nil
}

type redisSubscription struct {
	ps     *redis.PubSub
	events chan models.SignalEvent
	once   sync.Once
}

func (s *redisSubscription) run(l *logger.Logger) {
	defer close(s.events)
	for msg := range s.ps.Channel() {
		var ev models.SignalEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			l.Warn("drop undecodable signal event",
				logger.String("channel", msg.Channel),
				logger.Error(err))
			continue
		}
		s.events <- ev
	}
}

func (s *redisSubscription) Events() <-chan models.SignalEvent {
	return s.events
}

func (s *redisSubscription) Close() error {
	var err error
	s.once.Do(func() { err = s.ps.Close() })
	return err
}
