package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	eventsv1 "altvote/contracts/events/v1"

	goredis "github.com/redis/go-redis/v9"
)

// RedisQueue is a reliable list queue: consumers BLMOVE each item into a
// per-group processing list and remove it only after the handler succeeds.
// Items left in a processing list by a crashed worker are requeued on Subscribe.
type RedisQueue struct {
	rdb         *goredis.Client
	prefix      string
	blockFor    time.Duration
	maxAttempts int
	logger      *slog.Logger
}

type queueItem struct {
	Attempts int               `json:"attempts"`
	Event    eventsv1.Envelope `json:"event"`
}

func NewRedisQueue(addr string, prefix string, logger *slog.Logger) (*RedisQueue, error) {
	if strings.TrimSpace(addr) == "" {
		return nil, errors.New("redis addr is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(prefix) == "" {
		prefix = "altvote:tasks"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return NewRedisQueueWithClient(rdb, prefix, logger), nil
}

func NewRedisQueueWithClient(rdb *goredis.Client, prefix string, logger *slog.Logger) *RedisQueue {
	if logger == nil {
		logger = slog.Default()
	}
	return &RedisQueue{
		rdb:         rdb,
		prefix:      prefix,
		blockFor:    5 * time.Second,
		maxAttempts: 5,
		logger:      logger,
	}
}

func (q *RedisQueue) Publish(ctx context.Context, topic string, event eventsv1.Envelope) error {
	raw, err := json.Marshal(queueItem{Event: event})
	if err != nil {
		return err
	}
	if err := q.rdb.LPush(ctx, q.queueKey(topic), raw).Err(); err != nil {
		return fmt.Errorf("redis lpush %s: %w", topic, err)
	}
	q.logger.Debug("event enqueued",
		"event", "redis_queue_publish",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"event_id", event.EventID,
	)
	return nil
}

func (q *RedisQueue) Subscribe(
	ctx context.Context,
	topic string,
	consumerGroup string,
	handler Handler,
) error {
	queueKey := q.queueKey(topic)
	processingKey := q.processingKey(topic, consumerGroup)

	// Requeue anything a previous worker took but never acknowledged.
	for {
		err := q.rdb.LMove(ctx, processingKey, queueKey, "RIGHT", "RIGHT").Err()
		if errors.Is(err, goredis.Nil) {
			break
		}
		if err != nil {
			return fmt.Errorf("redis requeue %s: %w", processingKey, err)
		}
	}

	go func() {
		for {
			if ctx.Err() != nil {
				return
			}
			raw, err := q.rdb.BLMove(ctx, queueKey, processingKey, "RIGHT", "LEFT", q.blockFor).Result()
			if errors.Is(err, goredis.Nil) {
				continue
			}
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				q.logger.Error("redis queue receive failed",
					"event", "redis_queue_receive_failed",
					"module", "internal/platform/messaging",
					"layer", "platform",
					"topic", topic,
					"consumer_group", consumerGroup,
					"error", err.Error(),
				)
				time.Sleep(time.Second)
				continue
			}
			q.handle(ctx, topic, consumerGroup, raw, handler)
		}
	}()
	return nil
}

// handle runs one item. The item leaves the processing list only in the same
// MULTI as its ack or its requeue; if that fails it stays there and is
// requeued by the next Subscribe.
func (q *RedisQueue) handle(ctx context.Context, topic string, consumerGroup string, raw string, handler Handler) {
	processingKey := q.processingKey(topic, consumerGroup)

	var item queueItem
	if err := json.Unmarshal([]byte(raw), &item); err != nil {
		q.logger.Error("redis queue item decode failed",
			"event", "redis_queue_decode_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"error", err.Error(),
		)
		q.settle(ctx, topic, processingKey, raw, q.deadKey(topic), raw)
		return
	}

	err := handler(ctx, item.Event)
	if err == nil {
		q.settle(ctx, topic, processingKey, raw, "", "")
		return
	}
	item.Attempts++
	q.logger.Error("consumer handler failed",
		"event", "redis_queue_consume_failed",
		"module", "internal/platform/messaging",
		"layer", "platform",
		"topic", topic,
		"consumer_group", consumerGroup,
		"event_id", item.Event.EventID,
		"attempt", item.Attempts,
		"error", err.Error(),
	)
	next, err := json.Marshal(item)
	if err != nil {
		return
	}
	target := q.queueKey(topic)
	if item.Attempts >= q.maxAttempts {
		target = q.deadKey(topic)
	}
	q.settle(ctx, topic, processingKey, raw, target, string(next))
}

// settle removes raw from the processing list and, when target is set,
// pushes next onto it in one transaction.
func (q *RedisQueue) settle(ctx context.Context, topic string, processingKey string, raw string, target string, next string) {
	_, err := q.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		if target != "" {
			pipe.LPush(ctx, target, next)
		}
		pipe.LRem(ctx, processingKey, 1, raw)
		return nil
	})
	if err != nil {
		q.logger.Error("redis queue settle failed",
			"event", "redis_queue_settle_failed",
			"module", "internal/platform/messaging",
			"layer", "platform",
			"topic", topic,
			"target", target,
			"error", err.Error(),
		)
	}
}

func (q *RedisQueue) Close() error {
	if q == nil || q.rdb == nil {
		return nil
	}
	return q.rdb.Close()
}

func (q *RedisQueue) queueKey(topic string) string {
	return q.prefix + ":" + topic
}

func (q *RedisQueue) processingKey(topic string, consumerGroup string) string {
	return q.prefix + ":" + topic + ":processing:" + consumerGroup
}

func (q *RedisQueue) deadKey(topic string) string {
	return q.prefix + ":" + topic + ":dead"
}
