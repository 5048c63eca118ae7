package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Handler returns nil only when the message was fully processed and its offset may
// be committed.
type Handler func(ctx context.Context, m kafka.Message) error

type retryPolicy struct {
	attempts int
	base     time.Duration
	max      time.Duration
}

type Consumer struct {
	r       *kafka.Reader
	workers int
	retry   retryPolicy
	log     *zap.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, log *zap.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	if workers <= 0 {
		workers = 1
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Consumer{
		r:       r,
		workers: workers,
		retry:   retryPolicy{attempts: 10, base: 200 * time.Millisecond, max: 5 * time.Second},
		log:     log.With(zap.String("topic", topic), zap.String("group", group)),
	}
}

// workerFor pins a partition to one worker so its messages are handled and
// committed in offset order.
func workerFor(partition, workers int) int {
	if partition < 0 {
		partition = -partition
	}
	return partition % workers
}

// Start fetches messages and hands each partition to its own worker until ctx ends.
// A failing message is retried with backoff and blocks its partition meanwhile.
// After the last attempt it is logged and committed so the partition can move on;
// the order it names is still settled by the stale sweep.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer c.r.Close()

	queues := make([]chan kafka.Message, c.workers)
	var wg sync.WaitGroup
	for i := range queues {
		q := make(chan kafka.Message, 4)
		queues[i] = q
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range q {
				if ctx.Err() != nil {
					continue
				}
				c.handle(ctx, h, m)
			}
		}()
	}
	defer wg.Wait()
	defer func() {
		for _, q := range queues {
			close(q)
		}
	}()

	for {
		m, err := c.r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		select {
		case queues[workerFor(m.Partition, c.workers)] <- m:
		case <-ctx.Done():
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, h Handler, m kafka.Message) {
	log := c.log.With(zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset))
	err := deliver(ctx, h, m, c.retry, func(attempt int, err error) {
		log.Warn("handler failed", zap.Int("attempt", attempt), zap.Error(err))
	})
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		log.Error("giving up on message", zap.Int("attempts", c.retry.attempts), zap.Error(err))
	}
	if err := c.r.CommitMessages(ctx, m); err != nil && ctx.Err() == nil {
		log.Warn("commit failed", zap.Error(err))
	}
}

// deliver calls h until it succeeds, p.attempts is reached or ctx ends. The wait
// between attempts starts at p.base and doubles up to p.max.
func deliver(ctx context.Context, h Handler, m kafka.Message, p retryPolicy, onErr func(attempt int, err error)) error {
	wait := p.base
	for attempt := 1; ; attempt++ {
		err := h(ctx, m)
		if err == nil {
			return nil
		}
		if onErr != nil {
			onErr(attempt, err)
		}
		if attempt >= p.attempts {
			return err
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if wait *= 2; wait > p.max {
			wait = p.max
		}
	}
}
