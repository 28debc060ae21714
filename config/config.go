package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/raffleworks/rafflet/internal/models"
	"github.com/xendit/xendit-go/v6"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
}

func LoadConfig() (*Config, error) {
	return &Config{
		DBHost:     os.Getenv("DB_HOST"),
		DBPort:     os.Getenv("DB_PORT"),
		DBUser:     os.Getenv("DB_USER"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBName:     os.Getenv("DB_NAME"),
	}, nil
}

type XenditConfig struct {
	SecretKey string
}

func LoadXenditConfig() (*XenditConfig, error) {
	return &XenditConfig{
		SecretKey: os.Getenv("XENDIT_SECRET_KEY"),
	}, nil
}

func InitXenditClient(config *XenditConfig) (*xendit.APIClient, error) {
	client := xendit.NewClient(config.SecretKey)

	return client, nil
}

// RaffleConfig holds the storefront settings. It is built once at startup
// and read-only afterwards.
type RaffleConfig struct {
	// Domain is the public base URL the payment processor redirects back to.
	Domain string
	// PrizeName is the prize shown on the landing page.
	PrizeName string
	// UnitPrice is the price of one ticket in minor currency units.
	UnitPrice int64
	// FallbackOwnerID identifies the purchaser when the processor reports
	// no payer identity. TODO: drop once checkout carries a real user id.
	FallbackOwnerID string
	// SigningSecret keys the HMAC on ticket QR payloads.
	SigningSecret string
}

const defaultUnitPrice = 500

func LoadRaffleConfig() (*RaffleConfig, error) {
	cfg := &RaffleConfig{
		Domain:          os.Getenv("DOMAIN"),
		PrizeName:       os.Getenv("PRIZE_NAME"),
		UnitPrice:       defaultUnitPrice,
		FallbackOwnerID: "anonymous-entrant",
		SigningSecret:   os.Getenv("TICKET_SIGNING_SECRET"),
	}

	if cfg.Domain == "" {
		cfg.Domain = "http://localhost:8080"
	}
	if cfg.PrizeName == "" {
		cfg.PrizeName = "PC Product"
	}

	if raw := os.Getenv("TICKET_UNIT_PRICE"); raw != "" {
		price, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || price <= 0 {
			return nil, fmt.Errorf("invalid TICKET_UNIT_PRICE %q", raw)
		}
		cfg.UnitPrice = price
	}

	return cfg, nil
}

func InitDatabase(cfg *Config) (*gorm.DB, error) {
	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := enableUUIDExtension(db); err != nil {
		return nil, err
	}

	err = db.AutoMigrate(&models.Ticket{}, &models.Fulfillment{})
	if err != nil {
		return nil, err
	}

	return db, nil
}

func enableUUIDExtension(db *gorm.DB) error {
	return db.Exec("CREATE EXTENSION IF NOT EXISTS \"uuid-ossp\"").Error
}
