package config

import (
	"log"
	"os"

	"github.com/shopspring/decimal"
)

type Config struct {
	Port       string
	DBDSN      string
	LogFile    string
	TaxRate    decimal.Decimal
	AdminEmail string
	SMSSender  string
}

func Load() Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		dsn = "duka.db" // sqlite file in project root
	}
	logFile := os.Getenv("LOG_FILE")
	if logFile == "" {
		logFile = "./duka.log"
	}

	// VAT rate applied to order subtotals. The Kenyan default matches the
	// fixed rate the totals have always used.
	taxRate, err := decimal.NewFromString(envOr("TAX_RATE", "0.16"))
	if err != nil {
		log.Printf("[config] bad TAX_RATE, falling back to 0.16: %v", err)
		taxRate = decimal.NewFromFloat(0.16)
	}

	cfg := Config{
		Port:       port,
		DBDSN:      dsn,
		LogFile:    logFile,
		TaxRate:    taxRate,
		AdminEmail: envOr("ADMIN_EMAIL", "admin@duka.test"),
		SMSSender:  envOr("SMS_SENDER", "DUKA"),
	}
	log.Printf("[config] PORT=%s DB_DSN=%s LOG_FILE=%s TAX_RATE=%s", cfg.Port, cfg.DBDSN, cfg.LogFile, cfg.TaxRate)
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
