package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/essoham7/chinelivre/internal/metrics"
	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/notify"
	"github.com/essoham7/chinelivre/internal/repository"
	"github.com/essoham7/chinelivre/internal/service/packages"
	"github.com/essoham7/chinelivre/internal/util"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotificationMissing = errors.New("notification not found")
	ErrNotDraft            = errors.New("notification is not a draft")
	ErrNoRecipients        = errors.New("no recipients to send to")
)

// Service owns admin-authored notifications (info, promotion, urgent,
// update): drafting, editing, and sending them to chosen clients or to
// everyone.
type Service struct {
	db       *sqlx.DB
	notes    repository.NotificationsRepository
	profiles repository.ProfilesRepository
	outbox   repository.OutboxRepository
}

func New(
	db *sqlx.DB,
	notificationsRepo repository.NotificationsRepository,
	profilesRepo repository.ProfilesRepository,
	outboxRepo repository.OutboxRepository,
) *Service {
	return &Service{
		db:       db,
		notes:    notificationsRepo,
		profiles: profilesRepo,
		outbox:   outboxRepo,
	}
}

// DraftInput is the admin-authored notification body.
type DraftInput struct {
	Type      model.NotificationType
	Priority  model.NotificationPriority
	Title     string
	Content   string
	ExpiresAt *time.Time
	CreatedBy string
}

// CreateDraft stores a draft notification. Content is capped the same way
// system notifications are, so every delivery surface sees bounded text.
func (s *Service) CreateDraft(ctx context.Context, in DraftInput) (*model.Notification, error) {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return nil, errors.New("title is required")
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("invalid notification type %q", in.Type)
	}
	if !in.Priority.Valid() {
		in.Priority = model.PriorityMedium
	}

	n := model.Notification{
		ID:        util.New(),
		Type:      in.Type,
		Priority:  in.Priority,
		Status:    model.NotifDraft,
		Title:     in.Title,
		Content:   notify.Truncate(strings.TrimSpace(in.Content)),
		CreatedBy: in.CreatedBy,
		ExpiresAt: in.ExpiresAt,
	}

	if err := s.notes.Insert(ctx, nil, n); err != nil {
		return nil, fmt.Errorf("insert draft: %w", err)
	}

	metrics.NotificationsTotal.WithLabelValues("created", n.Type.String()).Inc()

	return &n, nil
}

// UpdateDraft edits a draft in place; sent notifications are immutable.
func (s *Service) UpdateDraft(ctx context.Context, id, title, content string, priority model.NotificationPriority, expiresAt *time.Time) error {
	if !priority.Valid() {
		priority = model.PriorityMedium
	}
	return s.notes.Update(ctx, id, strings.TrimSpace(title), notify.Truncate(strings.TrimSpace(content)), priority, expiresAt)
}

// Delete removes a notification and cascades its deliveries.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.notes.Delete(ctx, id)
}

// List returns authored notifications for the admin dashboard.
func (s *Service) List(ctx context.Context, f repository.NotificationFilters, limit, offset int) ([]model.Notification, error) {
	return s.notes.List(ctx, f, limit, offset)
}

// Send queues fan-out of a draft to the given user ids; an empty list
// means every active client. The notification stays draft until the
// notifier worker has written the deliveries.
func (s *Service) Send(ctx context.Context, notificationID string, userIDs []string) (int, error) {
	n, err := s.notes.GetByID(ctx, notificationID)
	if err != nil {
		return 0, fmt.Errorf("load notification: %w", err)
	}
	if n == nil {
		return 0, ErrNotificationMissing
	}
	if n.Status != model.NotifDraft {
		return 0, ErrNotDraft
	}

	if len(userIDs) == 0 {
		userIDs, err = s.profiles.ListClientIDs(ctx)
		if err != nil {
			return 0, fmt.Errorf("list clients: %w", err)
		}
	}
	if len(userIDs) == 0 {
		return 0, ErrNoRecipients
	}

	env := model.Envelope{
		NotificationID: n.ID,
		Type:           n.Type,
		UserIDs:        userIDs,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return 0, fmt.Errorf("marshal envelope: %w", err)
	}

	if err := s.outbox.Insert(ctx, nil, "notification", n.ID, packages.FanoutKafkaTopic, payload); err != nil {
		return 0, fmt.Errorf("insert outbox: %w", err)
	}

	return len(userIDs), nil
}
