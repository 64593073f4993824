package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// JWTConfig holds access-token verification settings.
type JWTConfig struct {
	Secret    string
	AccessTTL time.Duration
}

// KafkaConfig holds broker settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// RedisConfig holds geocode cache settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// GeocoderConfig holds settings for the external geocoding API.
type GeocoderConfig struct {
	APIKey   string
	BaseURL  string
	Timeout  time.Duration
	CacheTTL time.Duration
}

// RideConfig holds ride ledger tuning.
type RideConfig struct {
	FarePerKm float64
}

// ServiceConfig holds all configuration for the ride service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	DBConfig       DatabaseConfig
	JWTConfig      JWTConfig
	KafkaConfig    KafkaConfig
	RedisConfig    RedisConfig
	GeocoderConfig GeocoderConfig
	RideConfig     RideConfig
}

const envPrefix = "RIDE"

// Load reads configuration from an optional .env file and RIDE_* environment variables.
func Load() (*ServiceConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &ServiceConfig{
		Port:   normalizePort(v.GetString("service_port")),
		AppEnv: v.GetString("app_env"),
		DBConfig: DatabaseConfig{
			Host:     v.GetString("db_host"),
			Port:     v.GetString("db_port"),
			User:     v.GetString("db_user"),
			Password: v.GetString("db_password"),
			DBName:   v.GetString("db_name"),
			SSLMode:  v.GetString("db_sslmode"),
		},
		JWTConfig: JWTConfig{
			Secret:    v.GetString("jwt_secret"),
			AccessTTL: v.GetDuration("jwt_access_ttl"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka_brokers")),
			GroupPrefix: v.GetString("kafka_group_prefix"),
		},
		RedisConfig: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		GeocoderConfig: GeocoderConfig{
			APIKey:   v.GetString("geocoder_api_key"),
			BaseURL:  v.GetString("geocoder_base_url"),
			Timeout:  v.GetDuration("geocode_timeout"),
			CacheTTL: v.GetDuration("geocode_cache_ttl"),
		},
		RideConfig: RideConfig{
			FarePerKm: v.GetFloat64("fare_per_km"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_port", ":8006")
	v.SetDefault("app_env", "development")
	v.SetDefault("db_host", "localhost")
	v.SetDefault("db_port", "5432")
	v.SetDefault("db_user", "postgres")
	v.SetDefault("db_password", "postgres")
	v.SetDefault("db_name", "paklift_rides")
	v.SetDefault("db_sslmode", "disable")
	v.SetDefault("jwt_access_ttl", "15m")
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("kafka_group_prefix", "paklift-")
	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_db", 0)
	v.SetDefault("geocoder_base_url", "https://maps.googleapis.com/maps/api/geocode/json")
	v.SetDefault("geocode_timeout", "5s")
	v.SetDefault("geocode_cache_ttl", "24h")
	v.SetDefault("fare_per_km", 28.0)
}

func (c *ServiceConfig) validate() error {
	if c.JWTConfig.Secret == "" {
		return fmt.Errorf("%s_JWT_SECRET is required", envPrefix)
	}
	if len(c.KafkaConfig.Brokers) == 0 {
		return fmt.Errorf("%s_KAFKA_BROKERS must list at least one broker", envPrefix)
	}
	if c.GeocoderConfig.Timeout <= 0 {
		return fmt.Errorf("%s_GEOCODE_TIMEOUT must be positive", envPrefix)
	}
	if c.RideConfig.FarePerKm < 0 {
		return fmt.Errorf("%s_FARE_PER_KM must not be negative", envPrefix)
	}
	return nil
}

func normalizePort(port string) string {
	if port != "" && !strings.Contains(port, ":") {
		return ":" + port
	}
	return port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
