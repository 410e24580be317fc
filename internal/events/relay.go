package events

import (
	"context"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"salonpro/internal/store"
)

// MessageWriter is the subset of *kafka.Writer the relay uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type RelayConfig struct {
	Brokers   string
	Topic     string
	PollEvery time.Duration
	BatchSize int
	// OnBatch, when set, observes the outcome of every polled batch.
	OnBatch func(published int, err error)
}

// Relay moves committed outbox events to Kafka. Delivery is at-least-once:
// a crash between the write and MarkPublished republishes the batch, and
// consumers dedupe on the event_id header.
type Relay struct {
	outbox    store.Outbox
	logger    *slog.Logger
	brokers   []string
	topic     string
	pollEvery time.Duration
	batchSize int
	onBatch   func(published int, err error)

	newWriter func(brokers []string) MessageWriter
}

func NewRelay(outbox store.Outbox, logger *slog.Logger, cfg RelayConfig) *Relay {
	if cfg.PollEvery <= 0 {
		cfg.PollEvery = 2 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	return &Relay{
		outbox:    outbox,
		logger:    logger,
		brokers:   SplitBrokers(cfg.Brokers),
		topic:     strings.TrimSpace(cfg.Topic),
		pollEvery: cfg.PollEvery,
		batchSize: cfg.BatchSize,
		onBatch:   cfg.OnBatch,
		newWriter: newKafkaWriter,
	}
}

func newKafkaWriter(brokers []string) MessageWriter {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
}

func (r *Relay) Enabled() bool {
	return len(r.brokers) > 0
}

// Run polls until ctx is done.
func (r *Relay) Run(ctx context.Context) {
	if !r.Enabled() {
		r.logger.Warn("outbox relay disabled (no kafka brokers configured)")
		return
	}

	writer := r.newWriter(r.brokers)
	defer func() {
		if err := writer.Close(); err != nil {
			r.logger.Warn("kafka writer close failed", slog.Any("err", err))
		}
	}()

	ticker := time.NewTicker(r.pollEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.PublishBatch(ctx, writer)
			if r.onBatch != nil {
				r.onBatch(n, err)
			}
			if err != nil {
				r.logger.Error("outbox publish failed", slog.Any("err", err))
				continue
			}
			if n > 0 {
				r.logger.Debug("outbox batch published", slog.Int("count", n))
			}
		}
	}
}

// PublishBatch relays one batch of unpublished events and reports how many
// were marked published.
func (r *Relay) PublishBatch(ctx context.Context, writer MessageWriter) (int, error) {
	records, err := r.outbox.FetchUnpublished(ctx, r.batchSize)
	if err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(records))
	ids := make([]int64, 0, len(records))
	for _, rec := range records {
		topic := r.topic
		if topic == "" {
			topic = rec.EventType
		}
		msg := kafka.Message{
			Topic: topic,
			Key:   []byte(strconv.FormatInt(rec.AggregateID, 10)),
			Value: rec.Payload,
			Headers: []kafka.Header{
				{Key: "event_id", Value: []byte(rec.EventID)},
				{Key: "event_type", Value: []byte(rec.EventType)},
			},
		}
		msgCtx := ContextWithTraceContext(ctx, rec.Traceparent, rec.Tracestate)
		msg.Headers = InjectTraceHeaders(msgCtx, msg.Headers)
		msgs = append(msgs, msg)
		ids = append(ids, rec.ID)
	}

	if err := writer.WriteMessages(ctx, msgs...); err != nil {
		return 0, err
	}
	if err := r.outbox.MarkPublished(ctx, ids); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// InjectTraceHeaders appends W3C trace context headers to Kafka headers.
func InjectTraceHeaders(ctx context.Context, headers []kafka.Header) []kafka.Header {
	carrier := &headerCarrier{headers: headers}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return carrier.headers
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

type headerCarrier struct {
	headers []kafka.Header
}

func (c *headerCarrier) Get(key string) string {
	return HeaderValue(c.headers, key)
}

func (c *headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.headers))
	for _, h := range c.headers {
		keys = append(keys, h.Key)
	}
	return keys
}

func (c *headerCarrier) Set(key string, value string) {
	for i := range c.headers {
		if c.headers[i].Key == key {
			c.headers[i].Value = []byte(value)
			return
		}
	}
	c.headers = append(c.headers, kafka.Header{Key: key, Value: []byte(value)})
}

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)
