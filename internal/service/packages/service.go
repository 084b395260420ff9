package packages

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
	"github.com/essoham7/chinelivre/internal/util"
	"github.com/jmoiron/sqlx"
)

const FanoutKafkaTopic = "notify.fanout"

var (
	ErrTrackingTaken  = errors.New("tracking number already registered")
	ErrPackageMissing = errors.New("package not found")
	ErrUnknownClient  = errors.New("client not found")
)

// Service owns the package lifecycle. Every state change that the client
// must hear about writes the package row, its notification, and an outbox
// event within a single transaction.
type Service struct {
	db            *sqlx.DB
	pkgs          repository.PackagesRepository
	profiles      repository.ProfilesRepository
	notifications repository.NotificationsRepository
	outbox        repository.OutboxRepository
	formatter     *notify.Formatter

	pickedUpRetention time.Duration
}

// New constructs the packages service.
func New(
	db *sqlx.DB,
	pkgsRepo repository.PackagesRepository,
	profilesRepo repository.ProfilesRepository,
	notificationsRepo repository.NotificationsRepository,
	outboxRepo repository.OutboxRepository,
	formatter *notify.Formatter,
	pickedUpRetention time.Duration,
) *Service {
	if pickedUpRetention <= 0 {
		pickedUpRetention = 15 * 24 * time.Hour
	}
	return &Service{
		db:                db,
		pkgs:              pkgsRepo,
		profiles:          profilesRepo,
		notifications:     notificationsRepo,
		outbox:            outboxRepo,
		formatter:         formatter,
		pickedUpRetention: pickedUpRetention,
	}
}

// CreateInput is what staff submit when registering a package.
type CreateInput struct {
	TrackingNumber   string
	ClientID         string
	Content          string
	WeightKg         *float64
	VolumeM3         *float64
	EstimatedArrival *time.Time
	CreatedBy        string
}

// Create registers a package in received_china and queues the
// "Nouveau colis" notification for its client.
func (s *Service) Create(ctx context.Context, in CreateInput) (*model.Package, error) {
	in.TrackingNumber = strings.TrimSpace(in.TrackingNumber)
	if in.TrackingNumber == "" {
		return nil, errors.New("tracking number is required")
	}
	if in.ClientID == "" {
		return nil, errors.New("client id is required")
	}

	client, err := s.profiles.GetByID(ctx, in.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	if client == nil || client.Role != model.RoleClient {
		return nil, ErrUnknownClient
	}

	existing, err := s.pkgs.GetByTrackingNumber(ctx, in.TrackingNumber)
	if err != nil {
		return nil, fmt.Errorf("check tracking number: %w", err)
	}
	if existing != nil {
		return nil, ErrTrackingTaken
	}

	pkg := model.Package{
		ID:               util.New(),
		TrackingNumber:   in.TrackingNumber,
		ClientID:         in.ClientID,
		Content:          strings.TrimSpace(in.Content),
		WeightKg:         in.WeightKg,
		VolumeM3:         in.VolumeM3,
		Status:           model.StatusReceivedChina,
		ReceivedChinaAt:  time.Now(),
		EstimatedArrival: in.EstimatedArrival,
	}

	notification := model.Notification{
		ID:        util.New(),
		PackageID: &pkg.ID,
		Type:      model.NotifPackageCreated,
		Priority:  model.PriorityMedium,
		Status:    model.NotifSent,
		Title:     "Nouveau colis enregistré",
		Content:   s.formatter.FormatCreated(pkg.TrackingNumber),
		CreatedBy: in.CreatedBy,
	}

	if err := s.persistWithFanout(ctx, func(tx *sqlx.Tx) error {
		return s.pkgs.Insert(ctx, tx, pkg)
	}, notification, []string{pkg.ClientID}); err != nil {
		return nil, err
	}

	metrics.PackagesTotal.WithLabelValues(pkg.Status.String()).Inc()
	metrics.NotificationsTotal.WithLabelValues("created", notification.Type.String()).Inc()

	return &pkg, nil
}

// UpdateStatus moves a package to a new lifecycle stage and queues the
// status notification. Location is optional free text shown in the
// notification and stored on the package.
func (s *Service) UpdateStatus(ctx context.Context, id string, status model.PackageStatus, location string) (*model.Package, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: %q", notify.ErrUnknownStatus, status)
	}

	pkg, err := s.pkgs.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load package: %w", err)
	}
	if pkg == nil {
		return nil, ErrPackageMissing
	}

	content, err := s.formatter.FormatStatus(pkg.TrackingNumber, status, notify.StatusOptions{
		Location: location,
	})
	if err != nil {
		return nil, err
	}

	notifType := model.NotifStatusUpdated
	if status == model.StatusArrivedAfrica {
		notifType = model.NotifPackageArrived
	}
	notification := model.Notification{
		ID:        util.New(),
		PackageID: &pkg.ID,
		Type:      notifType,
		Priority:  model.PriorityMedium,
		Status:    model.NotifSent,
		Title:     "Statut du colis mis à jour",
		Content:   content,
		CreatedBy: pkg.ClientID, // system notification attributed to the package owner thread
	}

	var locPtr *string
	if loc := strings.TrimSpace(location); loc != "" {
		locPtr = &loc
	}

	if err := s.persistWithFanout(ctx, func(tx *sqlx.Tx) error {
		return s.pkgs.UpdateStatus(ctx, tx, pkg.ID, status, locPtr)
	}, notification, []string{pkg.ClientID}); err != nil {
		return nil, err
	}

	pkg.Status = status
	if locPtr != nil {
		pkg.Location = locPtr
	}

	metrics.PackagesTotal.WithLabelValues(status.String()).Inc()
	metrics.NotificationsTotal.WithLabelValues("created", notifType.String()).Inc()

	return pkg, nil
}

// persistWithFanout runs the domain write, the notification insert, and
// the outbox event in one transaction. The DB commit is the only publish
// step; Kafka sees the event via the outbox.
func (s *Service) persistWithFanout(ctx context.Context, write func(*sqlx.Tx) error, n model.Notification, userIDs []string) error {
	env := model.Envelope{
		NotificationID: n.ID,
		Type:           n.Type,
		UserIDs:        userIDs,
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := write(tx); err != nil {
		return fmt.Errorf("write package: %w", err)
	}
	if err := s.notifications.Insert(ctx, tx, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	if err := s.outbox.Insert(ctx, tx, "notification", n.ID, FanoutKafkaTopic, payload); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}

	return tx.Commit()
}

// Get loads one package or ErrPackageMissing.
func (s *Service) Get(ctx context.Context, id string) (*model.Package, error) {
	pkg, err := s.pkgs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if pkg == nil {
		return nil, ErrPackageMissing
	}
	client, err := s.profiles.GetByID(ctx, pkg.ClientID)
	if err != nil {
		return nil, fmt.Errorf("load client: %w", err)
	}
	pkg.Client = client
	return pkg, nil
}

// List returns non-archived packages, optionally scoped to one client.
// Each row carries the owning client profile so the dashboard can show
// names and phone numbers without per-row lookups.
func (s *Service) List(ctx context.Context, clientID string, limit, offset int) ([]model.Package, error) {
	pkgs, err := s.pkgs.List(ctx, clientID, limit, offset)
	if err != nil {
		return nil, err
	}
	if err := s.hydrateClients(ctx, pkgs); err != nil {
		return nil, err
	}
	return pkgs, nil
}

func (s *Service) hydrateClients(ctx context.Context, pkgs []model.Package) error {
	if len(pkgs) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(pkgs))
	ids := make([]string, 0, len(pkgs))
	for _, p := range pkgs {
		if _, ok := seen[p.ClientID]; ok {
			continue
		}
		seen[p.ClientID] = struct{}{}
		ids = append(ids, p.ClientID)
	}
	profs, err := s.profiles.GetByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("load clients: %w", err)
	}
	for i := range pkgs {
		if prof, ok := profs[pkgs[i].ClientID]; ok {
			c := prof
			pkgs[i].Client = &c
		}
	}
	return nil
}

// Delete removes a package permanently.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.pkgs.Delete(ctx, id)
}

// ArchiveOldPickedUp hides picked-up packages whose last update is older
// than the retention window. The client dashboard stops listing them.
func (s *Service) ArchiveOldPickedUp(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-s.pickedUpRetention)
	return s.pkgs.ArchiveOldPickedUp(ctx, cutoff)
}
