package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/essoham7/chinelivre/internal/config"
	"github.com/essoham7/chinelivre/internal/http/middleware"
	"github.com/essoham7/chinelivre/internal/metrics"
	"github.com/essoham7/chinelivre/internal/notify"
	"github.com/essoham7/chinelivre/internal/repository"
	"github.com/essoham7/chinelivre/internal/service/broadcast"
	"github.com/essoham7/chinelivre/internal/service/chat"
	"github.com/essoham7/chinelivre/internal/service/packages"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo/v4"
	echoMid "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

type Server struct{ e *echo.Echo }

func NewServer(cfg config.Config, mysqlDB, clickhouseDB *sqlx.DB, rds *redis.Client) *Server {
	// repos (MySQL)
	profilesRepo := repository.NewProfilesRepository(mysqlDB)
	packagesRepo := repository.NewPackagesRepository(mysqlDB)
	chatRepo := repository.NewChatRepository(mysqlDB)
	notificationsRepo := repository.NewNotificationsRepository(mysqlDB)
	deliveriesRepo := repository.NewUserNotificationsRepository(mysqlDB)
	outboxRepo := repository.NewOutboxRepository(mysqlDB)

	// repos (ClickHouse)
	chDeliveriesRepo := repository.NewCHDeliveriesRepository(clickhouseDB)

	// services
	formatter := notify.New()
	pkgSvc := packages.New(
		mysqlDB,
		packagesRepo,
		profilesRepo,
		notificationsRepo,
		outboxRepo,
		formatter,
		cfg.Archive.PickedUpRetention,
	)
	chatSvc := chat.New(mysqlDB, chatRepo, packagesRepo, profilesRepo, notificationsRepo, outboxRepo, formatter)
	bcastSvc := broadcast.New(mysqlDB, notificationsRepo, profilesRepo, outboxRepo)

	// echo
	e := echo.New()
	e.HideBanner = true
	e.Use(echoMid.Recover(), echoMid.Logger())

	metrics.MustRegister(prometheus.DefaultRegisterer)

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// health
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	// middlewares
	authMW := middleware.APIKeyMiddleware(profilesRepo)
	rlMW := middleware.RateLimitMiddleware(middleware.RateLimitConfig{
		Redis:          rds,
		DefaultRPS:     cfg.RateLimit.RPS,
		KeyPrefix:      "rl:user:",
		Window:         time.Second,
		RetryAfterHint: true,
	})
	adminMW := middleware.AdminOnly()

	// routes
	v1 := e.Group("/v1", authMW, rlMW)

	// packages
	v1.GET("/packages", listPackagesHandler(pkgSvc))
	v1.GET("/packages/:id", getPackageHandler(pkgSvc))
	v1.POST("/packages", createPackageHandler(pkgSvc), adminMW)
	v1.PATCH("/packages/:id/status", updatePackageStatusHandler(pkgSvc), adminMW)
	v1.DELETE("/packages/:id", deletePackageHandler(pkgSvc), adminMW)
	v1.GET("/packages/:id/whatsapp-link", whatsappLinkHandler(pkgSvc, profilesRepo), adminMW)

	// chat
	v1.GET("/packages/:id/messages", listChatHandler(chatSvc, pkgSvc))
	v1.POST("/packages/:id/messages", sendChatHandler(chatSvc, pkgSvc))
	v1.POST("/messages/read", markChatReadHandler(chatSvc))

	// notifications (client bell)
	v1.GET("/notifications", listMyNotificationsHandler(deliveriesRepo))
	v1.POST("/notifications/read", markNotificationsReadHandler(deliveriesRepo))
	v1.POST("/notifications/delete", deleteMyNotificationsHandler(deliveriesRepo))

	// admin surface
	admin := v1.Group("/admin", adminMW)
	admin.GET("/users", listUsersHandler(profilesRepo))
	admin.GET("/notifications", listNotificationsHandler(bcastSvc))
	admin.POST("/notifications", createDraftHandler(bcastSvc))
	admin.PUT("/notifications/:id", updateDraftHandler(bcastSvc))
	admin.DELETE("/notifications/:id", deleteNotificationHandler(bcastSvc))
	admin.POST("/notifications/:id/send", sendNotificationHandler(bcastSvc))
	admin.GET("/reports/deliveries", listDeliveriesHandler(chDeliveriesRepo))

	return &Server{e: e}
}

func (s *Server) Start(addr string) error {
	log.Printf("http: listening on %s", addr)
	return s.e.Start(addr)
}
func (s *Server) Shutdown(ctx context.Context) error { return s.e.Shutdown(ctx) }
