package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/essoham7/chinelivre/internal/metrics"
	"github.com/essoham7/chinelivre/internal/model"
	"github.com/essoham7/chinelivre/internal/notify"
	"github.com/essoham7/chinelivre/internal/repository"
	"github.com/essoham7/chinelivre/internal/service/packages"
	"github.com/essoham7/chinelivre/internal/util"
	"github.com/jmoiron/sqlx"
)

const maxMessageLen = 2000

var (
	ErrEmptyMessage   = errors.New("message content is empty")
	ErrMessageTooLong = errors.New("message content too long")
)

// Service owns the per-package conversation. Sending a message persists
// the chat row, a "Nouveau message" notification for the other side, and
// an outbox event in one transaction.
type Service struct {
	db        *sqlx.DB
	chat      repository.ChatRepository
	pkgs      repository.PackagesRepository
	profiles  repository.ProfilesRepository
	notes     repository.NotificationsRepository
	outbox    repository.OutboxRepository
	formatter *notify.Formatter
}

func New(
	db *sqlx.DB,
	chatRepo repository.ChatRepository,
	pkgsRepo repository.PackagesRepository,
	profilesRepo repository.ProfilesRepository,
	notificationsRepo repository.NotificationsRepository,
	outboxRepo repository.OutboxRepository,
	formatter *notify.Formatter,
) *Service {
	return &Service{
		db:        db,
		chat:      chatRepo,
		pkgs:      pkgsRepo,
		profiles:  profilesRepo,
		notes:     notificationsRepo,
		outbox:    outboxRepo,
		formatter: formatter,
	}
}

// Send writes a chat message from sender about the given package.
// Admin messages notify the package's client; client messages notify all
// active staff accounts.
func (s *Service) Send(ctx context.Context, packageID string, sender model.Profile, content string) (*model.ChatMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(content) > maxMessageLen {
		return nil, ErrMessageTooLong
	}

	pkg, err := s.pkgs.GetByID(ctx, packageID)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	if pkg == nil {
		return nil, packages.ErrPackageMissing
	}

	senderRole := model.SenderClient
	if sender.Role == model.RoleAdmin {
		senderRole = model.SenderAdmin
	}

	var recipients []string
	if senderRole == model.SenderAdmin {
		recipients = []string{pkg.ClientID}
	} else {
		recipients, err = s.profiles.ListAdminIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list admins: %w", err)
		}
	}

	msg := model.ChatMessage{
		ID:         util.New(),
		PackageID:  pkg.ID,
		SenderID:   sender.ID,
		SenderRole: senderRole,
		Content:    content,
	}

	notification := s.messageNotification(pkg, sender, senderRole)

	env := model.Envelope{
		NotificationID: notification.ID,
		Type:           notification.Type,
		UserIDs:        recipients,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal envelope: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.chat.Insert(ctx, tx, msg); err != nil {
		return nil, fmt.Errorf("insert message: %w", err)
	}
	if err := s.notes.Insert(ctx, tx, notification); err != nil {
		return nil, fmt.Errorf("insert notification: %w", err)
	}
	if len(recipients) > 0 {
		if err := s.outbox.Insert(ctx, tx, "notification", notification.ID, packages.FanoutKafkaTopic, payload); err != nil {
			return nil, fmt.Errorf("insert outbox: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	metrics.NotificationsTotal.WithLabelValues("created", notification.Type.String()).Inc()

	return &msg, nil
}

// messageNotification builds the bell entry announcing a chat message.
// The title names the sender so the recipient sees who wrote before
// opening the conversation.
func (s *Service) messageNotification(pkg *model.Package, sender model.Profile, senderRole model.SenderRole) model.Notification {
	return model.Notification{
		ID:        util.New(),
		PackageID: &pkg.ID,
		Type:      model.NotifNewMessage,
		Priority:  model.PriorityMedium,
		Status:    model.NotifSent,
		Title:     "Nouveau message de " + sender.DisplayName(),
		Content:   s.formatter.FormatMessage(pkg.TrackingNumber, senderRole),
		CreatedBy: sender.ID,
	}
}

// History lists the conversation for one package, oldest first.
func (s *Service) History(ctx context.Context, packageID string, limit, offset int) ([]model.ChatMessage, error) {
	return s.chat.ListByPackage(ctx, packageID, limit, offset)
}

// MarkRead flips messages to read for the reader; own messages are skipped.
func (s *Service) MarkRead(ctx context.Context, readerID string, ids []string) error {
	return s.chat.MarkRead(ctx, readerID, ids)
}

// UnreadCount counts messages awaiting the reader in one conversation.
func (s *Service) UnreadCount(ctx context.Context, packageID, readerID string) (int, error) {
	return s.chat.CountUnread(ctx, packageID, readerID)
}
