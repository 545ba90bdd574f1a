package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"health-premium-service/internal/config"
	"health-premium-service/internal/domain/model"
	pg "health-premium-service/internal/infra/db/postgres"
)

// seed inserts a legacy premium grant, for exercising the resolver's
// fallback path against a real database.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	userID := flag.String("user", "", "user id to grant")
	subType := flag.String("type", "legacy-annual", "legacy subscription type")
	days := flag.Int("days", 365, "days until expiry; 0 means no expiry")
	flag.Parse()

	if *userID == "" {
		log.Fatal("-user is required")
	}

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if cfg.Database.URL == "" {
		log.Fatal("database.url is empty; legacy records only live in postgres")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.ConnectPostgres(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	repo := pg.NewLegacyPremiumRepo(pool)

	// If the user already has an active grant, do nothing
	if existing, err := repo.FindActiveByUser(ctx, nil, *userID); err == nil {
		fmt.Printf("user %s already has legacy grant %s (%s). No changes.\n", *userID, existing.ID, existing.SubscriptionType)
		return
	}

	now := time.Now().UTC()
	var expires *time.Time
	if *days > 0 {
		t := now.AddDate(0, 0, *days)
		expires = &t
	}
	grant, err := model.NewLegacyPremium(*userID, *subType, expires, now)
	if err != nil {
		log.Fatalf("build grant: %v", err)
	}
	if err := repo.Save(ctx, nil, grant); err != nil {
		log.Fatalf("save grant: %v", err)
	}
	fmt.Printf("legacy grant %s created for %s.\n", grant.ID, *userID)
}
