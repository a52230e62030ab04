package main

import (
	"context"
	"flag"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shipdesk/internal/config"
	"shipdesk/internal/db"
	"shipdesk/internal/model"
	"shipdesk/internal/observability"
	"shipdesk/internal/repository"
	"shipdesk/internal/service"
)

func main() {
	email := flag.String("owner", "", "email of the user that owns the seeded rows (required)")
	clients := flag.Int("clients", service.DefaultSeedCount, "number of clients to generate")
	shipments := flag.Int("shipments", service.DefaultSeedCount, "number of shipments to generate")
	admin := flag.Bool("admin", false, "grant the owner the admin role before seeding")
	flag.Parse()

	cfg := config.Load()
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if strings.TrimSpace(*email) == "" {
		logger.Fatal("-owner is required")
	}

	dsn := cfg.MySQLDSN
	if cfg.DBDriver == "sqlite" {
		dsn = cfg.SQLitePath
	}
	gormDB, err := db.Open(cfg.DBDriver, dsn)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	if err := db.Migrate(gormDB); err != nil {
		logger.Fatal("failed to run migrations", zap.Error(err))
	}

	ctx := context.Background()
	users := repository.NewUserRepository(gormDB)
	owner, err := users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(*email)))
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			logger.Fatal("owner not found, register the user first", zap.String("email", *email))
		}
		logger.Fatal("failed to look up owner", zap.Error(err))
	}

	if *admin && !owner.HasRole(model.RoleAdmin) {
		if err := users.GrantRole(ctx, owner.ID, model.RoleAdmin); err != nil {
			logger.Fatal("failed to grant admin role", zap.Error(err))
		}
		owner.Roles = append(owner.Roles, model.RoleAdmin)
		logger.Info("admin role granted", zap.String("owner", owner.Email))
	}

	seeder := service.NewSeedService(repository.NewClientRepository(gormDB), repository.NewShipmentRepository(gormDB), nil)
	actor := service.Actor{UserID: owner.ID, Roles: owner.Roles}

	if *clients > 0 {
		n, err := seeder.SeedClients(ctx, actor, *clients)
		if err != nil {
			logger.Fatal("failed to seed clients", zap.Error(err))
		}
		logger.Info("clients seeded", zap.Int("inserted", n))
	}
	if *shipments > 0 {
		n, err := seeder.SeedShipments(ctx, actor, *shipments)
		if err != nil {
			logger.Fatal("failed to seed shipments", zap.Error(err))
		}
		logger.Info("shipments seeded", zap.Int("inserted", n))
	}
	logger.Info("seed completed", zap.String("owner", owner.Email), zap.String("owner_id", owner.ID.String()))
}
