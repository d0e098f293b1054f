package events

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultKafkaQueue is how many events may wait for the broker before new
// ones are dropped.
const DefaultKafkaQueue = 4096

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes events to a topic for downstream indexers. Emit only
// enqueues, so a slow or unreachable broker never stalls an engine call; one
// goroutine drains the queue with a bounded timeout per publish. Events are
// dropped, and logged, when the queue is full or a publish fails. Close
// flushes what is queued.
type KafkaSink struct {
	writer  messageWriter
	timeout time.Duration
	log     *zap.SugaredLogger

	mu     sync.Mutex
	closed bool
	queue  chan kafka.Message
	done   chan struct{}
}

func NewKafkaSink(brokers []string, topic string, log *zap.Logger) *KafkaSink {
	return newKafkaSink(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		RequiredAcks: kafka.RequireAll,
		Async:        false,
		BatchTimeout: 10 * time.Millisecond,
	}, DefaultKafkaQueue, log)
}

func newKafkaSink(w messageWriter, queueSize int, log *zap.Logger) *KafkaSink {
	s := &KafkaSink{
		writer:  w,
		timeout: 5 * time.Second,
		log:     log.Named("kafka").Sugar(),
		queue:   make(chan kafka.Message, queueSize),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *KafkaSink) Emit(ev Event) {
	value, err := Encode(ev)
	if err != nil {
		s.log.Errorw("encode_event_failed", "type", ev.Type().String(), "err", err)
		return
	}
	msg := kafka.Message{Key: Key(ev), Value: value}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		s.log.Warnw("event_after_close", "type", ev.Type().String())
		return
	}
	select {
	case s.queue <- msg:
	default:
		s.log.Errorw("event_queue_full", "type", ev.Type().String(), "capacity", cap(s.queue))
	}
}

func (s *KafkaSink) run() {
	defer close(s.done)
	for msg := range s.queue {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		err := s.writer.WriteMessages(ctx, msg)
		cancel()
		if err != nil {
			s.log.Errorw("publish_event_failed", "key", string(msg.Key), "err", err)
		}
	}
}

// Close stops accepting events, waits for the queue to drain and closes the
// writer. Safe to call more than once.
func (s *KafkaSink) Close() error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	<-s.done
	return s.writer.Close()
}
