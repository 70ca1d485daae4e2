package config

import (
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Checkout CheckoutConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

// CheckoutConfig drives server-side shipping cost derivation and receipt
// storage. UTCOffsetMinutes is the deployment's fixed timezone offset, used
// so date-range filters compare against literal calendar days rather than a
// reinterpreted UTC day.
type CheckoutConfig struct {
	FreeShippingThreshold float64
	FlatShippingRate      float64
	UTCOffsetMinutes      int
	UploadsDir            string
}

func Load() *Config {
	// .env first so viper's AutomaticEnv sees the same values the shell would
	_ = godotenv.Load()

	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("FREE_SHIPPING_THRESHOLD", 100.0)
	viper.SetDefault("FLAT_SHIPPING_RATE", 5.0)
	viper.SetDefault("UTC_OFFSET_MINUTES", -240) // UTC-4, no DST
	viper.SetDefault("UPLOADS_DIR", "uploads")

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: Could not read config file: %v", err)
	}

	return &Config{
		Server: ServerConfig{
			Port: viper.GetString("SERVER_PORT"),
			Env:  viper.GetString("SERVER_ENV"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Checkout: CheckoutConfig{
			FreeShippingThreshold: viper.GetFloat64("FREE_SHIPPING_THRESHOLD"),
			FlatShippingRate:      viper.GetFloat64("FLAT_SHIPPING_RATE"),
			UTCOffsetMinutes:      viper.GetInt("UTC_OFFSET_MINUTES"),
			UploadsDir:            viper.GetString("UPLOADS_DIR"),
		},
	}
}

// Location returns the deployment's fixed timezone built from the configured
// offset.
func (c CheckoutConfig) Location() *time.Location {
	return time.FixedZone("deployment", c.UTCOffsetMinutes*60)
}
