package models

import "time"

// Config represents application configuration
type Config struct {
	App      AppConfig
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	JWT      JWTConfig
	APIKey   APIKeyConfig
	Pricing  PricingConfig
	Services ServicesConfig
	Match    MatchConfig
	Rides    RidesConfig
	Gateway  GatewayConfig
	Logger   LoggerConfig
	NewRelic NewRelicConfig
}

// ServicesConfig contains URLs for other microservices
type ServicesConfig struct {
	MatchServiceURL string
	RidesServiceURL string
}

// AppConfig contains application-specific configuration
type AppConfig struct {
	Name        string
	Environment string
	Debug       bool
	Version     string
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Driver    string
	Host      string
	Port      int
	Username  string
	Password  string
	Database  string
	SSLMode   string
	MaxConns  int
	IdleConns int
}

// RedisConfig contains Redis connection configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
	PoolSize int
}

// NATSConfig contains NATS connection configuration
type NATSConfig struct {
	URL           string
	MaxReconnects int
	ReconnectWait time.Duration
}

// JWTConfig contains JWT authentication configuration
type JWTConfig struct {
	Secret     string
	Expiration int // in minutes
	Issuer     string
}

// APIKeyConfig holds the keys services present to each other
type APIKeyConfig struct {
	RidesService   string
	MatchService   string
	GatewayService string
}

// PricingConfig holds the estimator constants
type PricingConfig struct {
	Currency    string  `json:"currency"`
	BaseFare    float64 `json:"base_fare"`
	PerKmRate   float64 `json:"per_km_rate"`
	AvgSpeedKmh float64 `json:"avg_speed_kmh"`
}

// MatchConfig contains match service specific configuration
type MatchConfig struct {
	SearchRadiusKm float64 `json:"search_radius_km"` // used when no zone file is configured
	ZonesFile      string  `json:"zones_file"`
	PresenceTTL    time.Duration
}

// RidesConfig contains rides service specific configuration
type RidesConfig struct {
	// PendingTTL cancels pending rides nobody accepted; zero disables expiry
	PendingTTL     time.Duration
	ExpiryInterval time.Duration
	MaxOffers      int
}

// GatewayConfig contains realtime gateway configuration
type GatewayConfig struct {
	FetchTimeout time.Duration
	WriteTimeout time.Duration
	PingInterval time.Duration
}

// LoggerConfig contains Zap logger configuration
type LoggerConfig struct {
	Level    string
	FilePath string
}

// NewRelicConfig contains New Relic agent configuration
type NewRelicConfig struct {
	Enabled     bool
	AppName     string
	LicenseKey  string
	ForwardLogs bool
}
