package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/essoham7/chinelivre/internal/config"
	"github.com/essoham7/chinelivre/internal/db"
	"github.com/essoham7/chinelivre/internal/dispatcher"
	"github.com/essoham7/chinelivre/internal/kafka"
	"github.com/essoham7/chinelivre/internal/logger"
	"github.com/essoham7/chinelivre/internal/metrics"
	"github.com/essoham7/chinelivre/internal/notify"
	"github.com/essoham7/chinelivre/internal/repository"
	"github.com/essoham7/chinelivre/internal/service/packages"
	"github.com/essoham7/chinelivre/internal/worker"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Run the notification fan-out worker",
	RunE:  runNotifier,
}

func runNotifier(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Log.Level)
	defer func() { _ = logger.Log.Sync() }()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) DB connection (MySQL)
	dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
		MaxOpenConns:    cfg.MySQL.MaxOpenConns,
		MaxIdleConns:    cfg.MySQL.MaxIdleConns,
		ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
		PingTimeout:     cfg.MySQL.PingTimeout,
	})
	if err != nil {
		return fmt.Errorf("mysql connect: %w", err)
	}
	defer dbx.Close()

	// 3) repositories (MySQL)
	notificationsRepo := repository.NewNotificationsRepository(dbx)
	deliveriesRepo := repository.NewUserNotificationsRepository(dbx)

	// 4) relays → dispatcher (relays may be empty; fan-out still runs)
	var relays []dispatcher.Relay
	for _, rc := range cfg.Relays {
		if !rc.Enabled || strings.TrimSpace(rc.BaseURL) == "" {
			continue
		}
		relays = append(relays,
			dispatcher.NewHTTPRelay(
				rc.Name,
				strings.TrimRight(rc.BaseURL, "/"),
				rc.PushPath,
				rc.TimeoutMs,
				rc.Breaker.FailThreshold,
				rc.Breaker.OpenForMs,
			),
		)
	}
	disp := dispatcher.NewDispatcher(relays, 2)

	// 5) kafka consumer
	groupID := cfg.Kafka.GroupID
	if groupID == "" {
		groupID = "chinelivre-notifier"
	}
	consumer := kafka.NewConsumerFromConfig(kafka.Config{
		Brokers:        cfg.Kafka.Brokers,
		Topic:          packages.FanoutKafkaTopic,
		GroupID:        groupID,
		MinBytes:       cfg.Kafka.MinBytes,
		MaxBytes:       cfg.Kafka.MaxBytes,
		CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
	})
	defer consumer.Close()

	w := worker.NewNotifier(dbx, consumer, notificationsRepo, deliveriesRepo, disp)

	// tune knobs
	if cfg.Notifier.WorkerCount > 0 {
		w.Workers = cfg.Notifier.WorkerCount
	}
	if cfg.Notifier.BatchSize > 0 {
		w.BatchSize = cfg.Notifier.BatchSize
	}
	if cfg.Notifier.BatchWait > 0 {
		w.BatchWait = cfg.Notifier.BatchWait
	}

	// 6) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Picked-up packages get archived on a slow loop; cheap enough to
	// piggyback on the worker process instead of a dedicated cron.
	pkgSvc := packages.New(
		dbx,
		repository.NewPackagesRepository(dbx),
		repository.NewProfilesRepository(dbx),
		notificationsRepo,
		repository.NewOutboxRepository(dbx),
		notify.New(),
		cfg.Archive.PickedUpRetention,
	)
	go runArchiver(ctx, pkgSvc, cfg.Archive.Interval)

	logger.Log.Info("notifier started",
		zap.String("topic", packages.FanoutKafkaTopic),
		zap.String("group", groupID),
		zap.Int("workers", w.Workers),
		zap.Int("batch_size", w.BatchSize),
		zap.Duration("batch_wait", w.BatchWait),
	)

	return w.Run(ctx)
}

func runArchiver(ctx context.Context, svc *packages.Service, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			n, err := svc.ArchiveOldPickedUp(ctx)
			if err != nil {
				log.Printf("[archiver] archive picked-up err: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("[archiver] archived %d picked-up packages", n)
			}
		}
	}
}
