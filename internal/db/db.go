package db

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"shipdesk/internal/model"
)

// Models lists every persistent entity, in migration order.
var Models = []interface{}{
	&model.User{},
	&model.Client{},
	&model.Shipment{},
	&model.ShipmentHistory{},
}

// Open returns a connected GORM DB instance for the given driver.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "mysql":
		dialector = mysql.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported db driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", driver, err)
	}
	return db, nil
}

// Migrate creates or updates all tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}

// Reset drops every table, most dependent first.
func Reset(db *gorm.DB) error {
	for i := len(Models) - 1; i >= 0; i-- {
		if err := db.Migrator().DropTable(Models[i]); err != nil {
			return fmt.Errorf("drop table: %w", err)
		}
	}
	return nil
}
