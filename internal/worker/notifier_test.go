package worker

import (
	"context"
	"sync"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/essoham7/chinelivre/internal/kafka"
	"github.com/essoham7/chinelivre/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

// fakeSource hands out queued messages, then blocks until cancellation
// like a quiet Kafka partition would.
type fakeSource struct {
	mu      sync.Mutex
	msgs    []kafka.Message
	commits int
}

func (f *fakeSource) Fetch(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.msgs) > 0 {
		m := f.msgs[0]
		f.msgs = f.msgs[1:]
		f.mu.Unlock()
		return m, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeSource) Commit(ctx context.Context, m kafka.Message) error {
	f.mu.Lock()
	f.commits++
	f.mu.Unlock()
	return nil
}

func (f *fakeSource) commitCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commits
}

func TestRun_stopsCleanlyOnCancel(t *testing.T) {
	src := &fakeSource{msgs: []kafka.Message{
		{Value: []byte("not an envelope")}, // committed and skipped
	}}
	w := NewNotifier(nil, src, nil, nil, nil)
	w.Workers = 4

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool { return src.commitCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not stop after cancel")
	}
}

func TestRun_flushesFanoutThenStops(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()
	dbx := sqlx.NewDb(db, "mysql")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT IGNORE INTO user_notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE notifications`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	src := &fakeSource{msgs: []kafka.Message{
		{Value: []byte(`{"notification_id":"n1","type":"info","user_ids":["u1"]}`)},
	}}
	w := NewNotifier(
		dbx,
		src,
		repository.NewNotificationsRepository(dbx),
		repository.NewUserNotificationsRepository(dbx),
		nil,
	)
	w.Workers = 2
	w.BatchSize = 10
	w.BatchWait = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, func() bool {
		return mock.ExpectationsWereMet() == nil && src.commitCount() == 1
	}, 2*time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("notifier did not stop after cancel")
	}
}
