package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/essoham7/chinelivre/internal/config"
	"github.com/essoham7/chinelivre/internal/db"
	"github.com/essoham7/chinelivre/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo profiles and packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		// 1) load config
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		// 2) connect MySQL
		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo profiles...")
		if err := seedProfiles(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seeding demo packages...")
		if err := seedPackages(sqlDB); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// seedProfiles inserts one admin and four deterministic demo clients (idempotent).
func seedProfiles(dbx *sqlx.DB) error {
	profiles := []model.Profile{
		{
			ID:     "prof-admin-0001",
			Email:  "transitaire@chinelivre.example",
			Role:   model.RoleAdmin,
			APIKey: "11111111111111111111111111111111",
			Status: "active",
		},
		{
			ID:           "prof-client-0001",
			Email:        "aissata@exemple.cd",
			Role:         model.RoleClient,
			APIKey:       "22222222222222222222222222222222",
			Status:       "active",
			RateLimitRPS: intptr(20),
			FirstName:    strptr("Aïssata"),
			LastName:     strptr("Kouyaté"),
			Country:      strptr("RDC"),
			City:         strptr("Kinshasa"),
			Phone:        strptr("+243812345678"),
		},
		{
			ID:           "prof-client-0002",
			Email:        "moussa@exemple.ci",
			Role:         model.RoleClient,
			APIKey:       "33333333333333333333333333333333",
			Status:       "active",
			RateLimitRPS: intptr(10),
			FirstName:    strptr("Moussa"),
			LastName:     strptr("Diabaté"),
			Country:      strptr("Côte d'Ivoire"),
			City:         strptr("Abidjan"),
			Phone:        strptr("+2250701020304"),
		},
		{
			ID:        "prof-client-0003",
			Email:     "commande@bazarexpress.sn",
			Role:      model.RoleClient,
			APIKey:    "44444444444444444444444444444444",
			Status:    "active",
			Company:   strptr("Bazar Express SARL"),
			Country:   strptr("Sénégal"),
			City:      strptr("Dakar"),
			Phone:     strptr("+221771234567"),
		},
		{
			ID:     "prof-client-0004",
			Email:  "suspendu@exemple.cm",
			Role:   model.RoleClient,
			APIKey: "55555555555555555555555555555555",
			Status: "suspended",
		},
	}

	// idempotent upsert based on api_key (UNIQUE)
	const q = `
INSERT INTO profiles
    (id, email, role, api_key, status, rate_limit_rps, first_name, last_name, company, country, city, phone, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON DUPLICATE KEY UPDATE
    email          = VALUES(email),
    role           = VALUES(role),
    status         = VALUES(status),
    rate_limit_rps = VALUES(rate_limit_rps),
    phone          = VALUES(phone),
    updated_at     = VALUES(updated_at)
`
	tx, err := dbx.Beginx()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	now := time.Now()
	for _, p := range profiles {
		if _, err := tx.Exec(q,
			p.ID, p.Email, p.Role, p.APIKey, p.Status, p.RateLimitRPS,
			p.FirstName, p.LastName, p.Company, p.Country, p.City, p.Phone,
			now, now,
		); err != nil {
			return fmt.Errorf("insert profile %q: %w", p.Email, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit profiles: %w", err)
	}
	return nil
}

// seedPackages creates a couple of demo packages per active client,
// skipping tracking numbers that already exist.
func seedPackages(dbx *sqlx.DB) error {
	type row struct {
		id       string
		tracking string
		clientID string
		content  string
		status   model.PackageStatus
		location *string
	}
	rows := []row{
		{"pkg-demo-0001", "CHN-2025-0001", "prof-client-0001", "Téléphones (x20)", model.StatusReceivedChina, nil},
		{"pkg-demo-0002", "CHN-2025-0002", "prof-client-0001", "Vêtements, 2 cartons", model.StatusInTransit, strptr("Port de Guangzhou")},
		{"pkg-demo-0003", "CHN-2025-0003", "prof-client-0002", "Pièces détachées moto", model.StatusArrivedAfrica, strptr("Abidjan")},
		{"pkg-demo-0004", "CHN-2025-0004", "prof-client-0003", "Matériel de coiffure", model.StatusAvailableWarehouse, strptr("Entrepôt Dakar")},
	}

	const q = `
INSERT INTO packages
    (id, tracking_number, client_id, content, status, location, received_china_at, archived, created_at, updated_at)
VALUES
    (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)
ON DUPLICATE KEY UPDATE
    updated_at = updated_at
`
	now := time.Now()
	for _, r := range rows {
		if _, err := dbx.Exec(q, r.id, r.tracking, r.clientID, r.content, r.status, r.location, now, now, now); err != nil {
			return fmt.Errorf("insert package %q: %w", r.tracking, err)
		}
	}
	return nil
}

func intptr(i int) *int       { return &i }
func strptr(s string) *string { return &s }
