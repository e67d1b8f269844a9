package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/glowbook/service-reservation/internal/ratelimit"
)

// DatabaseConfig holds postgres connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DSN builds the gorm connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// URL builds the migration connection URL.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// ServiceConfig holds all configuration for the reservation service.
type ServiceConfig struct {
	Port                  string
	AppEnv                string
	DBConfig              DatabaseConfig
	KafkaConfig           KafkaConfig
	JWTSecret             string
	ProviderWebhookSecret string
	MigrationsPath        string
	ReferralRewardPoints  int64
	AdmissionPolicies     map[string]ratelimit.Policy
}

// Policy class names, one per endpoint class. Each has an independent window
// table in the admission gate.
const (
	PolicyAuth     = "auth"
	PolicyCheckout = "checkout"
	PolicyBooking  = "booking"
	PolicyRating   = "rating"
	PolicyGeneral  = "general"
)

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", ":8084")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "reservation")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "glowbook.")
	v.SetDefault("REFERRAL_REWARD_POINTS", 100)
	v.SetDefault("MIGRATIONS_PATH", "migrations")

	port := v.GetString("SERVICE_PORT")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	jwtSecret := v.GetString("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &ServiceConfig{
		Port:   port,
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     strings.Split(v.GetString("KAFKA_BROKERS"), ","),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		JWTSecret:             jwtSecret,
		ProviderWebhookSecret: v.GetString("PROVIDER_WEBHOOK_SECRET"),
		MigrationsPath:        v.GetString("MIGRATIONS_PATH"),
		ReferralRewardPoints:  v.GetInt64("REFERRAL_REWARD_POINTS"),
		AdmissionPolicies:     loadAdmissionPolicies(v),
	}, nil
}

// loadAdmissionPolicies reads the named per-endpoint-class window policies.
func loadAdmissionPolicies(v *viper.Viper) map[string]ratelimit.Policy {
	defaults := map[string]ratelimit.Policy{
		PolicyAuth:     {Window: 60 * time.Second, MaxRequests: 10},
		PolicyCheckout: {Window: 60 * time.Second, MaxRequests: 5},
		PolicyBooking:  {Window: 60 * time.Second, MaxRequests: 20},
		PolicyRating:   {Window: 60 * time.Second, MaxRequests: 5},
		PolicyGeneral:  {Window: 60 * time.Second, MaxRequests: 120},
	}

	policies := make(map[string]ratelimit.Policy, len(defaults))
	for name, def := range defaults {
		prefix := "RATE_" + strings.ToUpper(name)
		p := def
		if secs := v.GetInt(prefix + "_WINDOW_SECONDS"); secs > 0 {
			p.Window = time.Duration(secs) * time.Second
		}
		if max := v.GetInt(prefix + "_MAX_REQUESTS"); max > 0 {
			p.MaxRequests = max
		}
		policies[name] = p
	}
	return policies
}
