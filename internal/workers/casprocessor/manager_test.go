package casprocessor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/internal/parser"
)

type fakeAcknowledger struct {
	acked  chan uint64
	nacked chan uint64
}

func newFakeAcknowledger() *fakeAcknowledger {
	return &fakeAcknowledger{
		acked:  make(chan uint64, 8),
		nacked: make(chan uint64, 8),
	}
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acked <- tag
	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacked <- tag
	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	a.nacked <- tag
	return nil
}

type fakeConsumer struct {
	deliveries chan amqp.Delivery
}

func (f *fakeConsumer) Consume(consumerTag string) (<-chan amqp.Delivery, error) {
	return f.deliveries, nil
}

func waitForTag(t *testing.T, ch chan uint64, want uint64) {
	t.Helper()
	select {
	case tag := <-ch:
		assert.Equal(t, want, tag)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for message settlement")
	}
}

func TestManagerProcessesAndAcksDelivery(t *testing.T) {
	f := newFixture(t, 0, []byte(statementText))
	ack := newFakeAcknowledger()
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery, 1)}

	body, err := json.Marshal(f.msg)
	require.NoError(t, err)
	consumer.deliveries <- amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  7,
		Body:         body,
	}

	mgr := NewManager(consumer, f.processor, ManagerConfig{Concurrency: 1}, zap.NewNop())
	mgr.Start(context.Background())
	defer mgr.Stop()

	waitForTag(t, ack.acked, 7)
	assert.Equal(t, entities.JobStatusCompleted, f.job.Status)
}

func TestManagerAcksFailedJob(t *testing.T) {
	// All download attempts fail, so the job ends FAILED. The message is
	// still acknowledged: the failure is durable and retrying cannot help.
	f := newFixture(t, 3, []byte(statementText))
	ack := newFakeAcknowledger()
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery, 1)}

	body, err := json.Marshal(f.msg)
	require.NoError(t, err)
	consumer.deliveries <- amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  3,
		Body:         body,
	}

	mgr := NewManager(consumer, f.processor, ManagerConfig{Concurrency: 1}, zap.NewNop())
	mgr.Start(context.Background())
	defer mgr.Stop()

	waitForTag(t, ack.acked, 3)
	assert.Equal(t, entities.JobStatusFailed, f.job.Status)
}

func TestManagerDropsMalformedPayload(t *testing.T) {
	f := newFixture(t, 0, []byte(statementText))
	ack := newFakeAcknowledger()
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery, 1)}

	consumer.deliveries <- amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  9,
		Body:         []byte("not json"),
	}

	mgr := NewManager(consumer, f.processor, ManagerConfig{Concurrency: 1}, zap.NewNop())
	mgr.Start(context.Background())
	defer mgr.Stop()

	waitForTag(t, ack.nacked, 9)
	assert.Equal(t, entities.JobStatusPending, f.job.Status)
}

func TestManagerDrainsInFlightJobOnShutdown(t *testing.T) {
	// First download attempt fails, so the pipeline sits in the retry delay
	// when shutdown is signalled. The in-flight job must still run to
	// completion; the signal only stops the slot from taking more work.
	job := entities.NewJob(uuid.New(), "statements/cas.txt", "cas.txt", int64(len(statementText)))
	jobs := newFakeJobStore(job)
	docs := &fakeDocStore{data: []byte(statementText), failures: 1}

	p := NewProcessor(
		jobs, newFakeLotStore(), newFakeReportStore(), newFakeStatusCache(), docs,
		PlainTextExtractor{},
		parser.New(zap.NewNop()),
		fakeScorer{},
		ProcessorConfig{DownloadMaxAttempts: 3, DownloadRetryDelay: 300 * time.Millisecond},
		zap.NewNop(),
	)

	ack := newFakeAcknowledger()
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery, 1)}
	body, err := json.Marshal(&entities.JobMessage{
		JobID:       job.ID,
		UserID:      job.UserID,
		DocumentKey: job.DocumentKey,
		FileName:    job.FileName,
		Timestamp:   time.Now(),
	})
	require.NoError(t, err)
	consumer.deliveries <- amqp.Delivery{Acknowledger: ack, DeliveryTag: 11, Body: body}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mgr := NewManager(consumer, p, ManagerConfig{Concurrency: 1}, zap.NewNop())
	mgr.Start(ctx)
	defer mgr.Stop()

	require.Eventually(t, func() bool { return docs.callCount() >= 1 },
		5*time.Second, 5*time.Millisecond)
	cancel()

	waitForTag(t, ack.acked, 11)
	assert.Equal(t, entities.JobStatusCompleted, job.Status)
	assert.Equal(t, 2, docs.callCount())
}

func TestManagerStopsCleanly(t *testing.T) {
	f := newFixture(t, 0, []byte(statementText))
	consumer := &fakeConsumer{deliveries: make(chan amqp.Delivery)}

	mgr := NewManager(consumer, f.processor, ManagerConfig{Concurrency: 3}, zap.NewNop())
	mgr.Start(context.Background())

	done := make(chan struct{})
	go func() {
		mgr.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("manager did not stop in time")
	}
}
