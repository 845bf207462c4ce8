package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	mapstructure "github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	iauth "github.com/tiles-dev/pfm-sim/internal/auth"
)

// Config represents the runtime configuration for the PFM simulator backend.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Partner    PartnerConfig    `mapstructure:"partner"`
	Alerts     AlertsConfig     `mapstructure:"alerts"`
	Monitoring MonitoringConfig `mapstructure:"monitoring"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port      int      `mapstructure:"port"`
	LogLevel  string   `mapstructure:"log_level"`
	CORSAllow []string `mapstructure:"cors_allow"`
}

// DatabaseConfig describes connection options for the supported databases.
type DatabaseConfig struct {
	Driver   string       `mapstructure:"driver"`
	Path     string       `mapstructure:"path"`
	DSN      string       `mapstructure:"dsn"`
	Postgres DBAuthConfig `mapstructure:"postgres"`
	MySQL    DBAuthConfig `mapstructure:"mysql"`
}

// DBAuthConfig represents host based database parameters.
type DBAuthConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Database string `mapstructure:"database"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// AuthConfig captures JWT settings for simulator access tokens.
type AuthConfig struct {
	JWT JWTSettings `mapstructure:"jwt"`
}

// JWTSettings configures JWT access tokens.
type JWTSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"access_token_ttl"`
}

// PartnerConfig identifies the simulated vendor partner. The API key doubles
// as the signing secret for partner-style assertion tokens, matching the real
// vendor's contract.
type PartnerConfig struct {
	ID     string `mapstructure:"id"`
	Domain string `mapstructure:"domain"`
	APIKey string `mapstructure:"api_key"`
}

// AlertsConfig tunes the alert evaluator and its periodic runner.
type AlertsConfig struct {
	Cooldown       time.Duration `mapstructure:"cooldown"`
	Lookback       time.Duration `mapstructure:"lookback"`
	CronSpec       string        `mapstructure:"cron_spec"`
	DedupWindow    time.Duration `mapstructure:"dedup_window"`
	RetentionDays  int           `mapstructure:"retention_days"`
	EvaluateOnBoot bool          `mapstructure:"evaluate_on_boot"`
}

// MonitoringConfig enables health checks and metrics.
type MonitoringConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig toggles metrics endpoints.
type PrometheusConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

// JWTServiceConfig converts auth settings into the auth package's config shape.
func (a AuthConfig) JWTServiceConfig() iauth.JWTConfig {
	return iauth.JWTConfig{
		Secret:         a.JWT.Secret,
		Issuer:         a.JWT.Issuer,
		AccessTokenTTL: a.JWT.TTL,
	}
}

// LoadConfig initialises application configuration using Viper with sensible defaults.
func LoadConfig(paths ...string) (*Config, error) {
	v := viper.NewWithOptions(viper.ExperimentalBindStruct())
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath("./config")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	setDefaults(v)

	v.SetEnvPrefix("PFMSIM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) {
			return nil, fmt.Errorf("config: read file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decodeHook()); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 9100)
	v.SetDefault("server.log_level", "info")
	v.SetDefault("server.cors_allow", []string{"http://localhost:8080", "http://localhost:3000"})

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/pfmsim.sqlite")

	v.SetDefault("auth.jwt.issuer", "pfm-sim")
	v.SetDefault("auth.jwt.access_token_ttl", "12h")

	v.SetDefault("partner.id", "42")
	v.SetDefault("partner.domain", "partner.dev.localhost")

	v.SetDefault("alerts.cooldown", "6h")
	v.SetDefault("alerts.lookback", "168h") // 7 days of transactions for never-fired alerts
	v.SetDefault("alerts.cron_spec", "@every 5m")
	v.SetDefault("alerts.dedup_window", "30m")
	v.SetDefault("alerts.retention_days", 90)
	v.SetDefault("alerts.evaluate_on_boot", false)

	v.SetDefault("monitoring.prometheus.enabled", true)
	v.SetDefault("monitoring.prometheus.endpoint", "/metrics")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}
