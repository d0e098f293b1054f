package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/uhyunpark/hyperdex/pkg/app/core/asset"
	"github.com/uhyunpark/hyperdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/hyperdex/pkg/num"
)

var alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		ev   Event
		want string
	}{
		{
			name: "withdraw",
			ev:   Withdraw{Account: alice, Asset: 3, Amount: num.NewUint(5)},
			want: `{"type":"withdraw","data":{"account":"0x00000000000000000000000000000000000000a1","asset":3,"amount":"5"}}`,
		},
		{
			name: "order created",
			ev: OrderCreated{
				OrderID: 7, Owner: alice, Pair: asset.NewPair(1, 2),
				Offered: num.NewUint(10), Requested: num.NewUint(20), Side: orderbook.Sell,
			},
			want: `{"type":"order_created","data":{"order_id":7,"owner":"0x00000000000000000000000000000000000000a1","pair":{"offered":1,"requested":2},"offered_amount":"10","requested_amount":"20","type":"SELL"}}`,
		},
		{
			name: "order canceled",
			ev:   OrderCanceled{OrderID: 4},
			want: `{"type":"order_canceled","data":{"order_id":4}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Encode(tt.ev)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(out))
		})
	}
}

func TestMultiAndRecorder(t *testing.T) {
	a, b := NewRecorder(), NewRecorder()
	sink := Multi{a, b, Nop{}}

	sink.Emit(OrderCanceled{OrderID: 1})
	sink.Emit(OrderTaken{OrderID: 2, Taker: alice})

	want := []Event{OrderCanceled{OrderID: 1}, OrderTaken{OrderID: 2, Taker: alice}}
	assert.Equal(t, want, a.Events())
	assert.Equal(t, want, b.Events())

	a.Reset()
	assert.Empty(t, a.Events())
}

func TestLogSink(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	NewLogSink(zap.New(core)).Emit(OrderCanceled{OrderID: 9})

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "order_canceled", logs.All()[0].Message)
}

type fakeWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func (f *fakeWriter) messages() []kafka.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]kafka.Message{}, f.msgs...)
}

// stalledWriter blocks every publish until release is closed.
type stalledWriter struct {
	fakeWriter
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (w *stalledWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.once.Do(func() { close(w.started) })
	<-w.release
	return w.fakeWriter.WriteMessages(ctx, msgs...)
}

func TestKafkaSinkPublishesKeyedMessages(t *testing.T) {
	w := &fakeWriter{}
	sink := newKafkaSink(w, 8, zap.NewNop())

	sink.Emit(OrderTaken{OrderID: 12, Taker: alice})
	sink.Emit(Deposit{Account: alice, Asset: 1, Amount: num.NewUint(3)})
	require.NoError(t, sink.Close())

	msgs := w.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("12"), msgs[0].Key)
	assert.JSONEq(t, `{"type":"order_taken","data":{"order_id":12,"taker":"0x00000000000000000000000000000000000000a1"}}`, string(msgs[0].Value))
	assert.Equal(t, alice.Bytes(), msgs[1].Key)
}

func TestKafkaSinkLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	sink := newKafkaSink(&fakeWriter{err: errors.New("broker down")}, 8, zap.New(core))

	sink.Emit(OrderCanceled{OrderID: 1})
	require.NoError(t, sink.Close())
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "publish_event_failed", logs.All()[0].Message)
}

func TestKafkaSinkDoesNotBlockOnStalledBroker(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	w := &stalledWriter{started: make(chan struct{}), release: make(chan struct{})}
	sink := newKafkaSink(w, 1, zap.New(core))

	sink.Emit(OrderCanceled{OrderID: 1})
	// first event is in flight
	<-w.started
	sink.Emit(OrderCanceled{OrderID: 2}) // queued
	sink.Emit(OrderCanceled{OrderID: 3}) // queue full, dropped

	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "event_queue_full", logs.All()[0].Message)

	close(w.release)
	require.NoError(t, sink.Close())
	msgs := w.messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, []byte("1"), msgs[0].Key)
	assert.Equal(t, []byte("2"), msgs[1].Key)

	// emitting after close is a logged no-op
	sink.Emit(OrderCanceled{OrderID: 4})
	assert.Len(t, w.messages(), 2)
	require.NoError(t, sink.Close())
}
