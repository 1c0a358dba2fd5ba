// Package publisher mirrors fraud findings onto the security topic.
// Delivery is best effort: findings buffer in memory, flush in batches on
// an interval, and are dropped with a warning when the broker stays
// unreachable or the buffer wraps. The audit log remains the system of
// record either way.
package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"custos/internal/fraud"
	"custos/internal/fraud/metrics"
)

const (
	defaultFlushInterval = time.Second
	defaultBatchSize     = 100
	defaultCapacity      = 1024
)

// Producer is the slice of *kgo.Client the publisher uses.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher buffers findings and flushes them to one topic in the
// background. Safe for concurrent use.
type Publisher struct {
	producer Producer
	topic    string
	buffer   *ring
	logger   *slog.Logger
	metrics  *metrics.Metrics

	flushInterval time.Duration
	batchSize     int
	capacity      int

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

type Option func(*Publisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		p.flushInterval = d
	}
}

func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		p.batchSize = n
	}
}

func WithCapacity(n int) Option {
	return func(p *Publisher) {
		p.capacity = n
	}
}

// New constructs the publisher and starts its flush loop.
func New(producer Producer, topic string, opts ...Option) (*Publisher, error) {
	if producer == nil {
		return nil, errors.New("producer is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	p := &Publisher{
		producer:      producer,
		topic:         topic,
		flushInterval: defaultFlushInterval,
		batchSize:     defaultBatchSize,
		capacity:      defaultCapacity,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.flushInterval <= 0 || p.batchSize <= 0 || p.capacity <= 0 {
		return nil, errors.New("flush interval, batch size and capacity must be positive")
	}
	p.buffer = newRing(p.capacity)

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)
	return p, nil
}

// Publish enqueues a finding for the next flush. Never blocks; under
// pressure the oldest buffered finding is dropped instead.
func (p *Publisher) Publish(finding fraud.Finding) {
	if finding.DetectedAt.IsZero() {
		finding.DetectedAt = time.Now().UTC()
	}
	if p.buffer.enqueue(finding) {
		p.metrics.AddFindingsDropped(1)
		if p.logger != nil {
			p.logger.Warn("finding buffer full, dropped oldest",
				"dropped_total", p.buffer.droppedTotal(),
			)
		}
	}
}

// Close stops the flush loop and drains the buffer under the caller's
// deadline. Findings still buffered when the deadline hits are lost.
func (p *Publisher) Close(ctx context.Context) error {
	p.closeOnce.Do(func() {
		p.cancel()
		<-p.done
	})
	p.flush(ctx)
	if n := p.buffer.len(); n > 0 {
		return fmt.Errorf("%d findings undelivered at close", n)
	}
	return nil
}

func (p *Publisher) run(ctx context.Context) {
	defer close(p.done)
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.flush(ctx)
		}
	}
}

// flush drains the buffer batch by batch. A failed batch is dropped, not
// retried: retrying would stall everything behind it for a mirror that is
// explicitly best effort.
func (p *Publisher) flush(ctx context.Context) {
	for {
		batch := p.buffer.dequeueBatch(p.batchSize)
		if len(batch) == 0 {
			return
		}
		records := make([]*kgo.Record, 0, len(batch))
		for _, finding := range batch {
			value, err := json.Marshal(finding)
			if err != nil {
				if p.logger != nil {
					p.logger.Error("failed to encode finding", "kind", finding.Kind, "error", err)
				}
				continue
			}
			records = append(records, &kgo.Record{
				Topic:     p.topic,
				Key:       []byte(finding.Key()),
				Value:     value,
				Timestamp: finding.DetectedAt,
			})
		}
		if len(records) == 0 {
			continue
		}
		if err := p.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
			p.metrics.IncPublishFailure()
			p.metrics.AddFindingsDropped(int64(len(records)))
			if p.logger != nil {
				p.logger.Error("failed to publish findings",
					"topic", p.topic,
					"count", len(records),
					"error", err,
				)
			}
			// Leave the rest buffered for the next tick rather than
			// hammering an unreachable broker.
			return
		}
	}
}
