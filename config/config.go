package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/yeremiapane/tableorder/database"
	"github.com/yeremiapane/tableorder/models"
	"github.com/yeremiapane/tableorder/repository"
	"github.com/yeremiapane/tableorder/utils"
)

type Config struct {
	Port          string
	GinMode       string
	DBDriver      string
	DBDSN         string
	JWTSecret     string
	RedisAddr     string
	PublicURL     string
	LogLevel      string
	AllowedOrigin string
	RateLimitRPS  float64

	AdminUsername string
	AdminPassword string
}

// Load reads .env when present, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		Port:          getEnvOrDefault("PORT", "8080"),
		GinMode:       getEnvOrDefault("GIN_MODE", "debug"),
		DBDriver:      getEnvOrDefault("DB_DRIVER", database.DriverSQLite),
		DBDSN:         getEnvOrDefault("DB_DSN", "tableorder.db"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		PublicURL:     getEnvOrDefault("PUBLIC_URL", "http://localhost:3000"),
		LogLevel:      getEnvOrDefault("LOG_LEVEL", "info"),
		AllowedOrigin: getEnvOrDefault("ALLOWED_ORIGIN", "*"),
		AdminUsername: os.Getenv("ADMIN_USERNAME"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	rps, err := strconv.ParseFloat(getEnvOrDefault("RATE_LIMIT_RPS", "20"), 64)
	if err != nil || rps <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_RPS must be a positive number")
	}
	cfg.RateLimitRPS = rps

	if cfg.DBDriver != database.DriverMySQL && cfg.DBDriver != database.DriverSQLite {
		return nil, fmt.Errorf("DB_DRIVER must be %q or %q", database.DriverMySQL, database.DriverSQLite)
	}
	if cfg.GinMode == "release" && cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required in release mode")
	}
	return cfg, nil
}

func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// InitDB opens the configured database and migrates it.
func InitDB(cfg *Config) (*gorm.DB, error) {
	db, err := database.Open(cfg.DBDriver, cfg.DBDSN)
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	utils.InfoLogger.Printf("Connected to %s database", cfg.DBDriver)
	return db, nil
}

// SeedAdmin creates the configured admin account if it does not exist yet.
func SeedAdmin(ctx context.Context, cfg *Config, users *repository.UserStore) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	_, err := users.ByUsername(ctx, cfg.AdminUsername)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if err := users.Create(ctx, &models.User{
		Username:     cfg.AdminUsername,
		PasswordHash: string(hashed),
		Role:         models.RoleAdmin,
	}); err != nil {
		return err
	}
	utils.InfoLogger.Printf("Seeded admin user %s", cfg.AdminUsername)
	return nil
}
