package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"salonpro/internal/domain"
)

type Config struct {
	GRPCHost           string
	GRPCPort           int
	GRPCRequestTimeout time.Duration
	ShutdownTimeout    time.Duration
	LogLevel           string

	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration
	DBConnMaxIdleTime time.Duration

	SalonTimezone string
	SalonOpensAt  string
	SalonClosesAt string

	AllowPastBooking bool
	StrictCompletion bool

	MetricsAddr string

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64

	KafkaBrokers      string
	KafkaTopic        string
	KafkaPollInterval time.Duration
	KafkaBatchSize    int

	RedisURL          string
	RateLimit         int
	RateLimitWindow   time.Duration
	RateLimitFailOpen bool
}

// GRPCAddr is the listen address built from grpc.host and grpc.port.
func (c Config) GRPCAddr() string {
	return net.JoinHostPort(c.GRPCHost, strconv.Itoa(c.GRPCPort))
}

func (c Config) SalonHours() (domain.SalonHours, error) {
	return domain.ParseSalonHours(c.SalonTimezone, c.SalonOpensAt, c.SalonClosesAt)
}

// Load reads defaults, an optional config file and SALONPRO_* environment
// variables, in increasing order of precedence. An empty configFile falls
// back to SALONPRO_CONFIG.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SALONPRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("grpc.host", "0.0.0.0")
	v.SetDefault("grpc.port", 50051)
	v.SetDefault("grpc.addr", "")
	v.SetDefault("grpc.request_timeout", "10s")
	v.SetDefault("database.url", "sqlite://salonpro.db")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.conn_max_lifetime", "30m")
	v.SetDefault("database.conn_max_idle_time", "5m")
	v.SetDefault("shutdown.timeout", "10s")
	v.SetDefault("log.level", "info")
	v.SetDefault("salon.timezone", "UTC")
	v.SetDefault("salon.opens_at", "09:00")
	v.SetDefault("salon.closes_at", "18:00")
	v.SetDefault("scheduling.allow_past_booking", false)
	v.SetDefault("scheduling.strict_completion", true)
	v.SetDefault("metrics.addr", ":9090")
	v.SetDefault("otel.enabled", false)
	v.SetDefault("otel.endpoint", "127.0.0.1:4317")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("kafka.brokers", "")
	v.SetDefault("kafka.topic", "")
	v.SetDefault("kafka.poll_interval", "2s")
	v.SetDefault("kafka.batch_size", 50)
	v.SetDefault("redis.url", "")
	v.SetDefault("rate_limit.limit", 120)
	v.SetDefault("rate_limit.window", "1m")
	v.SetDefault("rate_limit.fail_open", true)

	_ = v.BindEnv("config", "SALONPRO_CONFIG")
	_ = v.BindEnv("grpc.port", "SALONPRO_GRPC_PORT", "GRPC_PORT", "PORT")
	_ = v.BindEnv("grpc.addr", "SALONPRO_GRPC_ADDR", "GRPC_ADDR")
	_ = v.BindEnv("database.url", "SALONPRO_DATABASE_URL", "DATABASE_URL")
	_ = v.BindEnv("shutdown.timeout", "SALONPRO_SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT")
	_ = v.BindEnv("log.level", "SALONPRO_LOG_LEVEL", "LOG_LEVEL")
	_ = v.BindEnv("otel.endpoint", "SALONPRO_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	_ = v.BindEnv("kafka.brokers", "SALONPRO_KAFKA_BROKERS", "KAFKA_BROKERS")
	_ = v.BindEnv("redis.url", "SALONPRO_REDIS_URL", "REDIS_URL")

	if configFile == "" {
		configFile = strings.TrimSpace(v.GetString("config"))
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config file %s: %w", configFile, err)
		}
	}

	requestTimeout, err := duration(v, "grpc.request_timeout")
	if err != nil {
		return Config{}, err
	}
	shutdownTimeout, err := duration(v, "shutdown.timeout")
	if err != nil {
		return Config{}, err
	}
	connMaxLifetime, err := duration(v, "database.conn_max_lifetime")
	if err != nil {
		return Config{}, err
	}
	connMaxIdleTime, err := duration(v, "database.conn_max_idle_time")
	if err != nil {
		return Config{}, err
	}
	pollInterval, err := duration(v, "kafka.poll_interval")
	if err != nil {
		return Config{}, err
	}
	rateWindow, err := duration(v, "rate_limit.window")
	if err != nil {
		return Config{}, err
	}

	if addr := strings.TrimSpace(v.GetString("grpc.addr")); addr != "" {
		host, portStr, err := net.SplitHostPort(addr)
		if err == nil {
			if host != "" {
				v.Set("grpc.host", host)
			}
			if port, err := strconv.Atoi(portStr); err == nil {
				v.Set("grpc.port", port)
			}
		}
	}

	cfg := Config{
		GRPCHost:           strings.TrimSpace(v.GetString("grpc.host")),
		GRPCPort:           v.GetInt("grpc.port"),
		GRPCRequestTimeout: requestTimeout,
		ShutdownTimeout:    shutdownTimeout,
		LogLevel:           v.GetString("log.level"),

		DatabaseURL:       v.GetString("database.url"),
		DBMaxOpenConns:    v.GetInt("database.max_open_conns"),
		DBMaxIdleConns:    v.GetInt("database.max_idle_conns"),
		DBConnMaxLifetime: connMaxLifetime,
		DBConnMaxIdleTime: connMaxIdleTime,

		SalonTimezone: v.GetString("salon.timezone"),
		SalonOpensAt:  v.GetString("salon.opens_at"),
		SalonClosesAt: v.GetString("salon.closes_at"),

		AllowPastBooking: v.GetBool("scheduling.allow_past_booking"),
		StrictCompletion: v.GetBool("scheduling.strict_completion"),

		MetricsAddr: strings.TrimSpace(v.GetString("metrics.addr")),

		OTelEnabled:     v.GetBool("otel.enabled"),
		OTelEndpoint:    v.GetString("otel.endpoint"),
		OTelSampleRatio: v.GetFloat64("otel.sample_ratio"),

		KafkaBrokers:      v.GetString("kafka.brokers"),
		KafkaTopic:        v.GetString("kafka.topic"),
		KafkaPollInterval: pollInterval,
		KafkaBatchSize:    v.GetInt("kafka.batch_size"),

		RedisURL:          strings.TrimSpace(v.GetString("redis.url")),
		RateLimit:         v.GetInt("rate_limit.limit"),
		RateLimitWindow:   rateWindow,
		RateLimitFailOpen: v.GetBool("rate_limit.fail_open"),
	}

	if _, err := cfg.SalonHours(); err != nil {
		return Config{}, fmt.Errorf("salon hours: %w", err)
	}
	return cfg, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	d, err := time.ParseDuration(v.GetString(key))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
