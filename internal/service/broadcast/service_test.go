package broadcast

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/notify"
	"github.com/essoham7/chinelivre/internal/repository"
	"github.com/essoham7/chinelivre/internal/service/packages"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

type fakeNotificationsRepo struct {
	inserted []model.Notification
	byID     map[string]*model.Notification

	updatedID      string
	updatedContent string
	deletedID      string
}

func (f *fakeNotificationsRepo) Insert(ctx context.Context, tx *sqlx.Tx, n model.Notification) error {
	f.inserted = append(f.inserted, n)
	return nil
}

func (f *fakeNotificationsRepo) GetByID(ctx context.Context, id string) (*model.Notification, error) {
	return f.byID[id], nil
}

func (f *fakeNotificationsRepo) List(ctx context.Context, filters repository.NotificationFilters, limit, offset int) ([]model.Notification, error) {
	return f.inserted, nil
}

func (f *fakeNotificationsRepo) Update(ctx context.Context, id string, title, content string, priority model.NotificationPriority, expiresAt *time.Time) error {
	f.updatedID = id
	f.updatedContent = content
	return nil
}

func (f *fakeNotificationsRepo) Delete(ctx context.Context, id string) error {
	f.deletedID = id
	return nil
}

func (f *fakeNotificationsRepo) BatchSetState(ctx context.Context, tx *sqlx.Tx, ids []string, state model.NotificationState) error {
	return nil
}

type fakeProfilesRepo struct {
	clients []string
}

func (f *fakeProfilesRepo) GetByAPIKey(ctx context.Context, apiKey string) (*model.Profile, error) {
	return nil, nil
}
func (f *fakeProfilesRepo) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	return nil, nil
}
func (f *fakeProfilesRepo) GetByIDs(ctx context.Context, ids []string) (map[string]model.Profile, error) {
	return map[string]model.Profile{}, nil
}
func (f *fakeProfilesRepo) List(ctx context.Context, _ repository.ProfileFilters, _, _ int) ([]model.Profile, error) {
	return nil, nil
}
func (f *fakeProfilesRepo) ListClientIDs(ctx context.Context) ([]string, error) {
	return f.clients, nil
}
func (f *fakeProfilesRepo) ListAdminIDs(ctx context.Context) ([]string, error) {
	return nil, nil
}

type fakeOutboxRepo struct {
	topics   []string
	payloads [][]byte
}

func (f *fakeOutboxRepo) Insert(ctx context.Context, tx *sqlx.Tx, aggregate, aggregateID, topic string, payload []byte) error {
	f.topics = append(f.topics, topic)
	f.payloads = append(f.payloads, payload)
	return nil
}

func newTestService(notes *fakeNotificationsRepo, profiles *fakeProfilesRepo, outbox *fakeOutboxRepo) *Service {
	return New(nil, notes, profiles, outbox)
}

func TestCreateDraft_requiresTitle(t *testing.T) {
	svc := newTestService(&fakeNotificationsRepo{}, &fakeProfilesRepo{}, &fakeOutboxRepo{})

	_, err := svc.CreateDraft(context.Background(), DraftInput{
		Type:  model.NotifInfo,
		Title: "  ",
	})
	require.Error(t, err)
}

func TestCreateDraft_rejectsInvalidType(t *testing.T) {
	svc := newTestService(&fakeNotificationsRepo{}, &fakeProfilesRepo{}, &fakeOutboxRepo{})

	_, err := svc.CreateDraft(context.Background(), DraftInput{
		Type:  model.NotificationType("smoke_signal"),
		Title: "Promo",
	})
	require.Error(t, err)
}

func TestCreateDraft_capsContentAndDefaultsPriority(t *testing.T) {
	notes := &fakeNotificationsRepo{}
	svc := newTestService(notes, &fakeProfilesRepo{}, &fakeOutboxRepo{})

	long := strings.Repeat("promo ", 100)
	n, err := svc.CreateDraft(context.Background(), DraftInput{
		Type:    model.NotifPromotion,
		Title:   "Grande promo",
		Content: long,
	})
	require.NoError(t, err)
	require.Equal(t, model.NotifDraft, n.Status)
	require.Equal(t, model.PriorityMedium, n.Priority)
	require.LessOrEqual(t, utf8.RuneCountInString(n.Content), notify.MaxLen)
	require.Len(t, notes.inserted, 1)
}

func TestSend_missingNotification(t *testing.T) {
	notes := &fakeNotificationsRepo{byID: map[string]*model.Notification{}}
	svc := newTestService(notes, &fakeProfilesRepo{}, &fakeOutboxRepo{})

	_, err := svc.Send(context.Background(), "n-404", nil)
	require.ErrorIs(t, err, ErrNotificationMissing)
}

func TestSend_rejectsAlreadySent(t *testing.T) {
	notes := &fakeNotificationsRepo{byID: map[string]*model.Notification{
		"n-1": {ID: "n-1", Type: model.NotifInfo, Status: model.NotifSent},
	}}
	svc := newTestService(notes, &fakeProfilesRepo{}, &fakeOutboxRepo{})

	_, err := svc.Send(context.Background(), "n-1", nil)
	require.ErrorIs(t, err, ErrNotDraft)
}

func TestSend_emptyListFansOutToAllClients(t *testing.T) {
	notes := &fakeNotificationsRepo{byID: map[string]*model.Notification{
		"n-1": {ID: "n-1", Type: model.NotifPromotion, Status: model.NotifDraft},
	}}
	profiles := &fakeProfilesRepo{clients: []string{"c1", "c2", "c3"}}
	outbox := &fakeOutboxRepo{}
	svc := newTestService(notes, profiles, outbox)

	count, err := svc.Send(context.Background(), "n-1", nil)
	require.NoError(t, err)
	require.Equal(t, 3, count)

	require.Len(t, outbox.payloads, 1)
	require.Equal(t, packages.FanoutKafkaTopic, outbox.topics[0])

	var env model.Envelope
	require.NoError(t, json.Unmarshal(outbox.payloads[0], &env))
	require.Equal(t, "n-1", env.NotificationID)
	require.Equal(t, model.NotifPromotion, env.Type)
	require.Equal(t, []string{"c1", "c2", "c3"}, env.UserIDs)
}

func TestSend_noRecipients(t *testing.T) {
	notes := &fakeNotificationsRepo{byID: map[string]*model.Notification{
		"n-1": {ID: "n-1", Type: model.NotifInfo, Status: model.NotifDraft},
	}}
	svc := newTestService(notes, &fakeProfilesRepo{clients: nil}, &fakeOutboxRepo{})

	_, err := svc.Send(context.Background(), "n-1", nil)
	require.ErrorIs(t, err, ErrNoRecipients)
}

func TestSend_explicitRecipientsSkipClientLookup(t *testing.T) {
	notes := &fakeNotificationsRepo{byID: map[string]*model.Notification{
		"n-1": {ID: "n-1", Type: model.NotifUrgent, Status: model.NotifDraft},
	}}
	outbox := &fakeOutboxRepo{}
	svc := newTestService(notes, &fakeProfilesRepo{}, outbox)

	count, err := svc.Send(context.Background(), "n-1", []string{"c9"})
	require.NoError(t, err)
	require.Equal(t, 1, count)

	var env model.Envelope
	require.NoError(t, json.Unmarshal(outbox.payloads[0], &env))
	require.Equal(t, []string{"c9"}, env.UserIDs)
}
