// Package config loads the console configuration from YAML files and
// CONSOLE_* environment variables.
package config

import (
	"time"

	"github.com/Aidin1998/finalex-console/internal/wallet/blockchain"
	"github.com/Aidin1998/finalex-console/internal/withdrawal"
	"github.com/Aidin1998/finalex-console/pkg/models"
)

// Config is the root configuration of the console service.
type Config struct {
	Environment string            `mapstructure:"environment" validate:"oneof=development staging production"`
	LogLevel    string            `mapstructure:"log_level" validate:"oneof=debug info warn warning error"`
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Redis       RedisConfig       `mapstructure:"redis"`
	Kafka       KafkaConfig       `mapstructure:"kafka"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
	Gateway     GatewayConfig     `mapstructure:"gateway"`
	Pricing     PricingConfig     `mapstructure:"pricing"`
	TwoFA       TwoFAConfig       `mapstructure:"twofa"`
	Blockchain  blockchain.Config `mapstructure:"blockchain"`
	Wizard      WizardConfig      `mapstructure:"wizard"`
	Tracing     TracingConfig     `mapstructure:"tracing"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	SessionTTL      time.Duration `mapstructure:"session_ttl"`

	// CodeAttempts second-factor attempts are allowed per session within
	// CodeWindow; zero disables the limit.
	CodeAttempts int           `mapstructure:"code_attempts" validate:"gte=0"`
	CodeWindow   time.Duration `mapstructure:"code_window"`
}

// DatabaseConfig represents database configuration. Driver is postgres or
// sqlite.
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	DSN             string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Address  string        `mapstructure:"address"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	PriceTTL time.Duration `mapstructure:"price_ttl"`
}

// Enabled reports whether a Redis address is configured.
func (r RedisConfig) Enabled() bool { return r.Address != "" }

// KafkaConfig represents Kafka configuration
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
}

// WebhookConfig configures the outbound submission webhook.
type WebhookConfig struct {
	URL string `mapstructure:"url" validate:"omitempty,url"`
}

// GatewayConfig configures the transaction gateway client.
type GatewayConfig struct {
	BaseURL string        `mapstructure:"base_url" validate:"required,url"`
	Token   string        `mapstructure:"token"`
	Timeout time.Duration `mapstructure:"timeout"`

	// VerifyCodes checks TOTP codes locally before forwarding a submission.
	VerifyCodes bool `mapstructure:"verify_codes"`
}

// PricingConfig configures the CoinGecko price provider. IDs maps console
// currency ids to CoinGecko coin ids.
type PricingConfig struct {
	BaseURL string            `mapstructure:"base_url" validate:"omitempty,url"`
	APIKey  string            `mapstructure:"api_key"`
	IDs     map[string]string `mapstructure:"ids"`
}

// TwoFAConfig holds TOTP secrets keyed by wallet id, "*" being the fallback.
type TwoFAConfig struct {
	Secrets map[string]string `mapstructure:"secrets"`
}

// WizardConfig tunes the send-funds wizard.
type WizardConfig struct {
	Operation      string        `mapstructure:"operation" validate:"oneof=WITHDRAWAL"`
	GasDebounce    time.Duration `mapstructure:"gas_debounce" validate:"gte=0"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout" validate:"gt=0"`
}

// Options converts the wizard configuration into withdrawal options.
func (w WizardConfig) Options() withdrawal.Options {
	return withdrawal.Options{
		Operation:      models.OperationKind(w.Operation),
		GasDebounce:    w.GasDebounce,
		ResolveTimeout: w.ResolveTimeout,
	}
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	ServiceName string `mapstructure:"service_name"`
}
