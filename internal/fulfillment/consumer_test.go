package fulfillment

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codgamerofficial/Kultzr/internal/domain"
	"github.com/codgamerofficial/Kultzr/internal/order"
)

type mockApplier struct {
	orderID  uuid.UUID
	status   domain.OrderStatus
	at       time.Time
	tracking string
	calls    int
	err      error
}

func (m *mockApplier) ApplyFulfillmentEvent(_ context.Context, orderID uuid.UUID, status domain.OrderStatus, at time.Time, tracking string) error {
	m.calls++
	if m.err != nil {
		return m.err
	}
	m.orderID = orderID
	m.status = status
	m.at = at
	m.tracking = tracking
	return nil
}

func newTestConsumer(applier StatusApplier) *Consumer {
	return &Consumer{svc: applier}
}

type failingReader struct {
	m     sync.Mutex
	reads int
	err   error
}

func (r *failingReader) ReadMessage(context.Context) (kafka.Message, error) {
	r.m.Lock()
	defer r.m.Unlock()
	r.reads++
	return kafka.Message{}, r.err
}

func (r *failingReader) Close() error { return nil }

func (r *failingReader) readCount() int {
	r.m.Lock()
	defer r.m.Unlock()
	return r.reads
}

func TestHandleEvent_AppliesStatus(t *testing.T) {
	applier := &mockApplier{}
	sut := newTestConsumer(applier)

	orderID := uuid.New()
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	payload, _ := json.Marshal(StatusEvent{
		OrderID:        orderID.String(),
		NewStatus:      "shipped",
		Timestamp:      ts,
		TrackingNumber: "TRK-42",
	})

	err := sut.handleEvent(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, orderID, applier.orderID)
	assert.Equal(t, domain.OrderStatusShipped, applier.status)
	assert.Equal(t, ts, applier.at)
	assert.Equal(t, "TRK-42", applier.tracking)
}

func TestHandleEvent_MalformedJSON(t *testing.T) {
	applier := &mockApplier{}
	sut := newTestConsumer(applier)

	err := sut.handleEvent(context.Background(), []byte("{not json"))
	assert.Error(t, err)
	assert.Zero(t, applier.calls)
}

func TestHandleEvent_BadOrderID(t *testing.T) {
	applier := &mockApplier{}
	sut := newTestConsumer(applier)

	payload, _ := json.Marshal(StatusEvent{OrderID: "not-a-uuid", NewStatus: "confirmed"})

	err := sut.handleEvent(context.Background(), payload)
	assert.ErrorContains(t, err, "invalid order_id")
	assert.Zero(t, applier.calls)
}

func TestHandleEvent_UnknownStatus(t *testing.T) {
	applier := &mockApplier{}
	sut := newTestConsumer(applier)

	payload, _ := json.Marshal(StatusEvent{OrderID: uuid.NewString(), NewStatus: "teleported"})

	err := sut.handleEvent(context.Background(), payload)
	assert.ErrorContains(t, err, "unknown status")
	assert.Zero(t, applier.calls)
}

func TestHandleEvent_MissingTimestampDefaultsToNow(t *testing.T) {
	applier := &mockApplier{}
	sut := newTestConsumer(applier)

	payload, _ := json.Marshal(StatusEvent{OrderID: uuid.NewString(), NewStatus: "confirmed"})

	err := sut.handleEvent(context.Background(), payload)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), applier.at, time.Second)
}

func TestHandleEvent_IllegalTransitionSurfacesError(t *testing.T) {
	applier := &mockApplier{err: order.ErrIllegalTransition}
	sut := newTestConsumer(applier)

	payload, _ := json.Marshal(StatusEvent{OrderID: uuid.NewString(), NewStatus: "delivered"})

	err := sut.handleEvent(context.Background(), payload)
	assert.ErrorIs(t, err, order.ErrIllegalTransition)
}

func TestRun_BacksOffWhileBrokerIsDown(t *testing.T) {
	reader := &failingReader{err: fmt.Errorf("broker unreachable")}
	sut := &Consumer{svc: &mockApplier{}, reader: reader, retryDelay: 25 * time.Millisecond}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	sut.Run(ctx)

	// Each failed read waits out the retry delay; without it this loop
	// would spin through thousands of reads in the same window.
	assert.GreaterOrEqual(t, reader.readCount(), 1)
	assert.LessOrEqual(t, reader.readCount(), 10)
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	reader := &failingReader{err: fmt.Errorf("broker unreachable")}
	sut := &Consumer{svc: &mockApplier{}, reader: reader, retryDelay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sut.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after context cancellation")
	}
}
