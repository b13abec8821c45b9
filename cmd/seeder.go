package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/core/datamodel/profile"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with an admin, a sample user, and one free and one paid event.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		defer sqlDB.Close()

		db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm session: %v", err)
		}

		if err := seed(cmd.Context(), db, cfg.Security.BCryptCost, clearData); err != nil {
			log.Fatalf("seed failed: %v", err)
		}
		fmt.Println("Seeding complete")
	},
}

type seedProfile struct {
	Email    string
	Username string
	Role     string
}

func seed(ctx context.Context, db *gorm.DB, cost int, clear bool) error {
	db = db.WithContext(ctx)

	if clear {
		for _, table := range []string{"payment_callbacks", "access_grants", "payments", "events", "profiles"} {
			if err := db.Exec("DELETE FROM " + table).Error; err != nil {
				return fmt.Errorf("clear %s: %w", table, err)
			}
		}
		fmt.Println("Cleared existing data")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), cost)
	if err != nil {
		return err
	}

	var adminID string
	for _, sp := range []seedProfile{
		{Email: "admin@linkuphub.co.ke", Username: "admin", Role: profile.RoleSuperAdmin},
		{Email: "wanjiku@linkuphub.co.ke", Username: "wanjiku", Role: profile.RoleUser},
	} {
		var existing profile.Profile
		err := db.Where("email = ?", sp.Email).First(&existing).Error
		if err == nil {
			fmt.Println("profile already exists:", sp.Email)
			if sp.Role == profile.RoleSuperAdmin {
				adminID = existing.ID
			}
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("lookup %s: %w", sp.Email, err)
		}

		p := profile.Profile{
			ID:           uuid.NewString(),
			Email:        sp.Email,
			PasswordHash: string(hash),
			Username:     sp.Username,
			Role:         sp.Role,
		}
		if err := db.Create(&p).Error; err != nil {
			return fmt.Errorf("insert %s: %w", sp.Email, err)
		}
		if sp.Role == profile.RoleSuperAdmin {
			adminID = p.ID
		}
		fmt.Println("Seeded profile:", sp.Email)
	}

	events := []struct {
		Title  string
		IsFree bool
		Price  decimal.Decimal
	}{
		{Title: "Nairobi Tech Meetup", IsFree: true, Price: decimal.Zero},
		{Title: "Sauti Sol Live at KICC", IsFree: false, Price: decimal.NewFromInt(1500)},
	}
	for i, ev := range events {
		var count int64
		if err := db.Table("events").Where("title = ?", ev.Title).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			continue
		}
		now := time.Now().UTC()
		err := db.Exec(`INSERT INTO events (id, title, description, event_date, location, is_free, price, created_by, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			uuid.NewString(), ev.Title, "Sample event", now.AddDate(0, 0, 14+7*i), "Nairobi", ev.IsFree, ev.Price, adminID, now, now).Error
		if err != nil {
			return fmt.Errorf("insert event %q: %w", ev.Title, err)
		}
		fmt.Println("Seeded event:", ev.Title)
	}
	return nil
}
