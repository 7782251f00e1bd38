package database

import (
	"fmt"

	"checkout-service/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Config carries what Connect needs to reach Postgres.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

var DB *gorm.DB

// Connect opens the Postgres connection and runs migrations. TranslateError
// turns driver duplicate-key errors into gorm.ErrDuplicatedKey, which the
// repositories rely on.
func Connect(cfg Config) error {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, cfg.Port, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
		&models.Inventory{},
		&models.Reservation{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	DB = db
	return nil
}

func Close() error {
	if DB == nil {
		return nil
	}
	sqlDB, err := DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
