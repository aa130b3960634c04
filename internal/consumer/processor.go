// Package consumer reads sequence events from Kafka and feeds them back into usage history.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/domain"
	"github.com/Lauraredmond/pilates-class-generator-sub000/internal/outbox"
)

const (
	defaultMaxAttempts = 5
	defaultRetryDelay  = 250 * time.Millisecond
	maxRetryDelay      = 10 * time.Second
)

// Reader is the subset of kafka.Reader the processor drives. Offsets are committed explicitly.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler applies one decoded sequence event.
type Handler interface {
	Handle(context.Context, Message) error
}

// DeadLetterWriter parks events the handler gave up on so the DLQ manager can replay them.
type DeadLetterWriter interface {
	Write(context.Context, outbox.DeadLetter) error
}

// Message is a sequence event as published by the outbox dispatcher.
type Message struct {
	Topic         string
	Partition     int
	Offset        int64
	Timestamp     time.Time
	Key           string
	EventID       int64
	EventType     string
	AggregateType string
	AggregateID   string
	SchemaSubject string
	Payload       json.RawMessage
}

type Option func(*Processor)

func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRetry sets how often a failing event is handed to the handler and the first delay between
// attempts. The delay doubles per attempt up to ten seconds.
func WithRetry(maxAttempts int, delay time.Duration) Option {
	return func(p *Processor) {
		if maxAttempts > 0 {
			p.maxAttempts = maxAttempts
		}
		if delay > 0 {
			p.retryDelay = delay
		}
	}
}

// WithDeadLetters parks events that exhaust their retries. Without it the processor stops on the
// first such event and leaves its offset uncommitted.
func WithDeadLetters(w DeadLetterWriter) Option {
	return func(p *Processor) {
		p.deadLetters = w
	}
}

// Processor consumes one message at a time. An offset is committed only after the event was
// handled, or parked as a dead letter, so a later commit never skips an unprocessed event.
type Processor struct {
	reader      Reader
	handler     Handler
	deadLetters DeadLetterWriter
	maxAttempts int
	retryDelay  time.Duration
	logger      *log.Logger
}

func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:      reader,
		handler:     handler,
		maxAttempts: defaultMaxAttempts,
		retryDelay:  defaultRetryDelay,
		logger:      log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run processes messages until ctx is cancelled or an event can neither be handled nor parked.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			continue
		}

		if err := p.process(ctx, msg); err != nil {
			return err
		}
	}
}

func (p *Processor) process(ctx context.Context, msg kafka.Message) error {
	event, err := decodeMessage(msg)
	if err != nil {
		// Undecodable records are counted and skipped.
		p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", msg.Topic, msg.Partition, msg.Offset, err)
		recordDecodeError(msg.Topic)
		p.commit(ctx, msg)
		return nil
	}

	attempts, handleErr := p.handle(ctx, event)
	if handleErr == nil {
		p.commit(ctx, msg)
		recordOutcome(event, outcomeProcessed)
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if p.deadLetters == nil {
		return fmt.Errorf("%s at %s/%d offset %d failed after %d attempts: %w", event.EventType, event.Topic, event.Partition, event.Offset, attempts, handleErr)
	}
	if err := p.deadLetters.Write(ctx, deadLetterFor(event, attempts, handleErr)); err != nil {
		return fmt.Errorf("park %s at %s/%d offset %d: %w", event.EventType, event.Topic, event.Partition, event.Offset, errors.Join(handleErr, err))
	}
	p.logger.Printf("parked %s for sequence %s after %d attempts: %v", event.EventType, event.AggregateID, attempts, handleErr)
	p.commit(ctx, msg)
	recordOutcome(event, outcomeDeadLettered)
	return nil
}

// handle retries the same event with exponential backoff. Invalid events are not retried.
func (p *Processor) handle(ctx context.Context, event Message) (int, error) {
	delay := p.retryDelay
	for attempt := 1; ; attempt++ {
		err := p.handler.Handle(ctx, event)
		if err == nil {
			return attempt, nil
		}
		recordHandlerError(event)
		if attempt >= p.maxAttempts || errors.Is(err, domain.ErrInvalidInput) {
			return attempt, err
		}
		p.logger.Printf("handler error (event_type=%s, sequence=%s, offset=%d, attempt %d/%d), retrying in %s: %v",
			event.EventType, event.AggregateID, event.Offset, attempt, p.maxAttempts, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return attempt, ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}
}

func (p *Processor) commit(ctx context.Context, msg kafka.Message) {
	if err := p.reader.CommitMessages(ctx, msg); err != nil {
		p.logger.Printf("commit error (topic=%s, partition=%d, offset=%d): %v", msg.Topic, msg.Partition, msg.Offset, err)
	}
}

func deadLetterFor(event Message, attempts int, cause error) outbox.DeadLetter {
	return outbox.DeadLetter{
		EventID:       event.EventID,
		EventType:     event.EventType,
		Topic:         event.Topic,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		SchemaSubject: event.SchemaSubject,
		PartitionKey:  event.Key,
		Payload:       event.Payload,
		Stage:         outbox.StageConsume,
		Reason:        fmt.Sprintf("%v (partition=%d, offset=%d, attempts=%d)", cause, event.Partition, event.Offset, attempts),
	}
}

// decodeMessage strips the schema registry framing (magic byte and schema id) and reads the
// outbox headers.
func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) < 5 {
		return Message{}, fmt.Errorf("invalid payload length: %d", len(msg.Value))
	}
	if msg.Value[0] != 0 {
		return Message{}, fmt.Errorf("unexpected magic byte %d", msg.Value[0])
	}
	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	eventType, ok := headers[outbox.HeaderEventType]
	if !ok || eventType == "" {
		return Message{}, errors.New("missing event_type header")
	}
	eventID, _ := strconv.ParseInt(headers[outbox.HeaderEventID], 10, 64)

	return Message{
		Topic:         msg.Topic,
		Partition:     msg.Partition,
		Offset:        msg.Offset,
		Timestamp:     msg.Time,
		Key:           string(msg.Key),
		EventID:       eventID,
		EventType:     eventType,
		AggregateType: headers[outbox.HeaderAggregateType],
		AggregateID:   headers[outbox.HeaderAggregateID],
		SchemaSubject: headers[outbox.HeaderSchemaSubject],
		Payload:       json.RawMessage(append([]byte(nil), msg.Value[5:]...)),
	}, nil
}
