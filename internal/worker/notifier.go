package worker

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/essoham7/chinelivre/internal/dispatcher"
	"github.com/essoham7/chinelivre/internal/kafka"
	"github.com/essoham7/chinelivre/internal/metrics"
	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/repository"
	"github.com/essoham7/chinelivre/internal/util"
	"github.com/jmoiron/sqlx"
)

// EnvelopeSource is the consumer surface the notifier reads envelopes
// from. *kafka.Consumer satisfies it.
type EnvelopeSource interface {
	Fetch(ctx context.Context) (kafka.Message, error)
	Commit(ctx context.Context, m kafka.Message) error
}

// Notifier:
// - fetches fan-out envelopes from Kafka,
// - optionally pings external push relays per recipient,
// - batches user_notifications inserts and notification state flips atomically.
type Notifier struct {
	// Dependencies
	DB            *sqlx.DB
	Consumer      EnvelopeSource
	Notifications repository.NotificationsRepository
	Deliveries    repository.UserNotificationsRepository
	Dispatch      *dispatcher.Dispatcher

	// Behavior
	Workers   int           // number of goroutines processing envelopes
	BatchSize int           // max buffered fan-out rows per flush
	BatchWait time.Duration // max time to wait before flush
}

// NewNotifier builds a worker with sane defaults.
func NewNotifier(
	db *sqlx.DB,
	consumer EnvelopeSource,
	notificationsRepo repository.NotificationsRepository,
	deliveriesRepo repository.UserNotificationsRepository,
	dispatch *dispatcher.Dispatcher,
) *Notifier {
	return &Notifier{
		DB:            db,
		Consumer:      consumer,
		Notifications: notificationsRepo,
		Deliveries:    deliveriesRepo,
		Dispatch:      dispatch,
		Workers:       16,
		BatchSize:     200,
		BatchWait:     300 * time.Millisecond,
	}
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *Notifier) Run(ctx context.Context) error {
	if w.Workers <= 0 {
		w.Workers = 16
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 200
	}
	if w.BatchWait <= 0 {
		w.BatchWait = 300 * time.Millisecond
	}

	// Channel for fan-out rows → batch writer. Closed only after every
	// processor has returned, so no send can hit a closed channel.
	rows := make(chan fanoutRow, w.BatchSize*2)

	// Start batch writer
	go w.runBatchWriter(ctx, rows)

	// Fetch loop → fan-out to processors
	msgCh := make(chan kafka.Message, w.Workers*2)

	// Fetcher goroutine
	go func() {
		defer close(msgCh)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				m, err := w.Consumer.Fetch(ctx)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					log.Printf("[notifier] kafka fetch err: %v", err)
					time.Sleep(200 * time.Millisecond)
					continue
				}
				msgCh <- m
			}
		}
	}()

	// Start processors
	var wg sync.WaitGroup
	for i := 0; i < w.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.runProcessor(ctx, msgCh, rows)
		}()
	}

	// Block until shutdown, then wait for processors before closing the
	// rows channel the batch writer drains.
	<-ctx.Done()
	wg.Wait()
	close(rows)
	return nil
}

type fanoutRow struct {
	notificationID string
	userID         string
	notifType      model.NotificationType
}

func (w *Notifier) runProcessor(ctx context.Context, in <-chan kafka.Message, out chan<- fanoutRow) {
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-in:
			if !ok {
				return
			}
			w.processOne(ctx, m, out)
		}
	}
}

func (w *Notifier) processOne(ctx context.Context, m kafka.Message, out chan<- fanoutRow) {
	// Parse envelope: { notification_id, type, user_ids }
	var env model.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil || env.NotificationID == "" {
		_ = w.Consumer.Commit(ctx, m) // poison → commit, skip
		if err != nil {
			log.Printf("[notifier] bad envelope json: %v", err)
		} else {
			log.Printf("[notifier] envelope missing notification_id")
		}
		return
	}

	// Relays are best effort: the DB rows below are what clients read.
	if w.Dispatch != nil && w.Dispatch.HasRelays() && len(env.UserIDs) > 0 {
		n, err := w.Notifications.GetByID(ctx, env.NotificationID)
		if err != nil || n == nil {
			log.Printf("[notifier] load notification %s: %v", env.NotificationID, err)
		} else {
			for _, uid := range env.UserIDs {
				ev := dispatcher.PushEvent{
					NotificationID: n.ID,
					UserID:         uid,
					Type:           n.Type.String(),
					Title:          n.Title,
					Content:        n.Content,
				}
				if err := w.Dispatch.Push(ctx, ev); err != nil {
					metrics.NotificationsTotal.WithLabelValues("relay_failed", n.Type.String()).Inc()
					log.Printf("[notifier] relay push err: %v", err)
				} else {
					metrics.NotificationsTotal.WithLabelValues("relayed", n.Type.String()).Inc()
				}
			}
		}
	}

	for _, uid := range env.UserIDs {
		select {
		case out <- fanoutRow{notificationID: env.NotificationID, userID: uid, notifType: env.Type}:
		case <-ctx.Done():
			// Writer is shutting down; the uncommitted offset redelivers
			// the envelope on restart.
			return
		}
	}

	// Always commit (at-least-once; the INSERT IGNORE fan-out is idempotent).
	if err := w.Consumer.Commit(ctx, m); err != nil {
		log.Printf("[notifier] commit err: %v", err)
	}
}

// runBatchWriter does size/time-based flush of fan-out inserts and
// notification state flips atomically.
func (w *Notifier) runBatchWriter(ctx context.Context, in <-chan fanoutRow) {
	tick := time.NewTicker(w.BatchWait)
	defer tick.Stop()

	var pending []fanoutRow

	flush := func() {
		if len(pending) == 0 {
			return
		}

		inserts := make([]repository.UserNotificationRow, 0, len(pending))
		sentSet := make(map[string]struct{}, 8)
		for _, r := range pending {
			inserts = append(inserts, repository.UserNotificationRow{
				ID:             util.New(),
				NotificationID: r.notificationID,
				UserID:         r.userID,
			})
			sentSet[r.notificationID] = struct{}{}
		}
		sentIDs := make([]string, 0, len(sentSet))
		for id := range sentSet {
			sentIDs = append(sentIDs, id)
		}

		tx, err := w.DB.BeginTxx(ctx, nil)
		if err != nil {
			log.Printf("[notifier] begin tx err: %v", err)
			pending = pending[:0]
			return
		}
		defer func() { _ = tx.Rollback() }()

		if err := w.Deliveries.InsertBatch(ctx, tx, inserts); err != nil {
			log.Printf("[notifier] fanout insert batch err: %v", err)
			return
		}
		if err := w.Notifications.BatchSetState(ctx, tx, sentIDs, model.NotifSent); err != nil {
			log.Printf("[notifier] set sent batch err: %v", err)
			return
		}

		if err := tx.Commit(); err != nil {
			log.Printf("[notifier] tx commit err: %v", err)
			return
		}

		for _, r := range pending {
			metrics.NotificationsTotal.WithLabelValues("fanned_out", r.notifType.String()).Inc()
		}

		log.Printf("[notifier] flushed: deliveries=%d notifications=%d", len(inserts), len(sentIDs))

		pending = pending[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return

		case r, ok := <-in:
			if !ok {
				flush()
				return
			}
			pending = append(pending, r)

			if len(pending) >= w.BatchSize {
				flush()
			}

		case <-tick.C:
			flush()
		}
	}
}
