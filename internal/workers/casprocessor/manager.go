package casprocessor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/folio-service/folio_service/internal/domain/entities"
	"github.com/folio-service/folio_service/pkg/metrics"
)

// consumer abstracts the queue subscription so tests can feed deliveries
// without a broker.
type consumer interface {
	Consume(consumerTag string) (<-chan amqp.Delivery, error)
}

// Manager runs a fixed pool of worker slots against the processing queue.
// Each slot holds its own consumer subscription with prefetch 1, so the
// broker never hands a slot more than one in-flight job. A slot that dies
// is restarted after a backoff.
type Manager struct {
	queue       consumer
	processor   *Processor
	logger      *zap.Logger
	concurrency int
	backoff     time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// ManagerConfig tunes the worker pool.
type ManagerConfig struct {
	Concurrency    int
	RestartBackoff time.Duration
}

// NewManager creates a worker pool manager.
func NewManager(queue consumer, processor *Processor, cfg ManagerConfig, logger *zap.Logger) *Manager {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.RestartBackoff <= 0 {
		cfg.RestartBackoff = time.Second
	}
	return &Manager{
		queue:       queue,
		processor:   processor,
		logger:      logger,
		concurrency: cfg.Concurrency,
		backoff:     cfg.RestartBackoff,
		stopCh:      make(chan struct{}),
	}
}

// Start launches the worker slots. It returns immediately; workers run
// until Stop is called or ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	m.logger.Info("starting worker pool", zap.Int("concurrency", m.concurrency))

	for i := 0; i < m.concurrency; i++ {
		workerID := fmt.Sprintf("worker-%d", i)
		m.wg.Add(1)
		go m.runSlot(ctx, workerID)
	}
}

// Stop signals all slots to finish their current job and waits for them.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	m.logger.Info("worker pool stopped")
}

// runSlot keeps one worker slot alive, restarting its consume loop after a
// backoff whenever the subscription fails.
func (m *Manager) runSlot(ctx context.Context, workerID string) {
	defer m.wg.Done()
	log := m.logger.With(zap.String("worker_id", workerID))

	for {
		select {
		case <-m.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := m.consumeLoop(ctx, workerID, log); err != nil {
			log.Warn("worker slot exited, restarting",
				zap.Error(err),
				zap.Duration("backoff", m.backoff),
			)
			metrics.WorkerRestartsTotal.Inc()

			select {
			case <-time.After(m.backoff):
			case <-m.stopCh:
				return
			case <-ctx.Done():
				return
			}
		} else {
			return
		}
	}
}

// consumeLoop subscribes and processes deliveries until shutdown. A nil
// return means a clean shutdown; an error means the subscription broke and
// the slot should be restarted.
func (m *Manager) consumeLoop(ctx context.Context, workerID string, log *zap.Logger) error {
	deliveries, err := m.queue.Consume(workerID)
	if err != nil {
		return fmt.Errorf("failed to subscribe: %w", err)
	}
	log.Info("worker slot consuming")

	for {
		select {
		case <-m.stopCh:
			return nil
		case <-ctx.Done():
			return nil
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			m.handleDelivery(ctx, workerID, log, delivery)
		}
	}
}

// handleDelivery decodes and processes one message. The message is always
// settled: unparseable payloads are dropped without requeue, processed jobs
// are acknowledged whether the pipeline succeeded or marked them FAILED.
// Requeueing happens only implicitly, when a worker dies mid-job and the
// broker redelivers the unacknowledged message.
func (m *Manager) handleDelivery(ctx context.Context, workerID string, log *zap.Logger, delivery amqp.Delivery) {
	var msg entities.JobMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		log.Error("dropping malformed job message", zap.Error(err))
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			log.Warn("failed to nack malformed message", zap.Error(nackErr))
		}
		return
	}

	// Shutdown must not preempt a job that is already in flight: cancelling
	// the pipeline mid-run would mark a healthy job FAILED and the ack below
	// would make that permanent. The signal context only stops the slot from
	// taking the next delivery; the pipeline runs detached from it.
	jobCtx := context.WithoutCancel(ctx)
	if err := m.processor.ProcessJob(jobCtx, &msg, workerID); err != nil {
		log.Warn("job finished with failure",
			zap.String("job_id", msg.JobID.String()),
			zap.Error(err),
		)
	}

	if err := delivery.Ack(false); err != nil {
		log.Warn("failed to ack message",
			zap.String("job_id", msg.JobID.String()),
			zap.Error(err),
		)
	}
}
