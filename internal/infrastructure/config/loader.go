package config

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/Aidin1998/finalex-console/pkg/logger"
)

// EnvPrefix prefixes every environment override, e.g. CONSOLE_SERVER_PORT.
const EnvPrefix = "CONSOLE"

// DefaultPaths are searched when Load is called without paths.
var DefaultPaths = []string{
	"./config.yaml",
	"./configs/config.yaml",
	"/etc/finalex-console/config.yaml",
}

// ReloadCallback is called with the previous and the new configuration after
// a watched file changed and the result validated.
type ReloadCallback func(old, new *Config)

// Loader reads and validates the configuration.
type Loader struct {
	mu        sync.RWMutex
	viper     *viper.Viper
	validator *validator.Validate
	logger    *zap.Logger
	config    *Config
	loaded    []string
}

// NewLoader creates a loader.
func NewLoader(log *zap.Logger) *Loader {
	return &Loader{
		viper:     viper.New(),
		validator: validator.New(),
		logger:    logger.OrNop(log),
	}
}

// Load is a convenience wrapper around NewLoader and Loader.Load.
func Load(log *zap.Logger, paths ...string) (*Config, error) {
	return NewLoader(log).Load(paths...)
}

// Load merges the files at paths (or DefaultPaths) over the defaults,
// applies environment overrides and validates the result. Missing files are
// skipped.
func (l *Loader) Load(paths ...string) (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.setupViper()
	if err := l.loadConfigFiles(paths...); err != nil {
		return nil, fmt.Errorf("failed to load config files: %w", err)
	}

	cfg, err := l.decode()
	if err != nil {
		return nil, err
	}
	l.config = cfg

	l.logger.Info("Configuration loaded",
		zap.String("environment", cfg.Environment),
		zap.Strings("files", l.loaded))
	return cfg, nil
}

// Config returns the last successfully loaded configuration.
func (l *Loader) Config() *Config {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config
}

// Watch reloads the configuration whenever a loaded file changes. Invalid
// edits are logged and ignored.
func (l *Loader) Watch(callback ReloadCallback) {
	l.mu.RLock()
	files := len(l.loaded)
	l.mu.RUnlock()
	if files == 0 {
		l.logger.Info("No config files to watch, hot-reload disabled")
		return
	}

	l.viper.OnConfigChange(func(event fsnotify.Event) {
		if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
			return
		}
		l.logger.Debug("Config file changed", zap.String("file", event.Name))

		l.mu.Lock()
		old := l.config
		cfg, err := l.decode()
		if err != nil {
			l.mu.Unlock()
			l.logger.Error("Failed to reload configuration", zap.Error(err))
			return
		}
		l.config = cfg
		l.mu.Unlock()

		l.logger.Info("Configuration reloaded", zap.Time("reloaded_at", time.Now()))
		if callback != nil {
			callback(old, cfg)
		}
	})
	l.viper.WatchConfig()
}

func (l *Loader) setupViper() {
	l.viper.SetConfigType("yaml")
	l.viper.SetEnvPrefix(EnvPrefix)
	l.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.viper.AutomaticEnv()
	setDefaults(l.viper)
}

func (l *Loader) loadConfigFiles(paths ...string) error {
	if len(paths) == 0 {
		paths = DefaultPaths
	}

	l.loaded = nil
	for _, path := range paths {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			l.logger.Debug("Config file not found, skipping", zap.String("path", path))
			continue
		}

		l.viper.SetConfigFile(path)
		if err := l.viper.MergeInConfig(); err != nil {
			return fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		l.loaded = append(l.loaded, path)
	}

	if len(l.loaded) == 0 {
		l.logger.Warn("No configuration files found, using defaults and environment variables")
	}
	return nil
}

func (l *Loader) decode() (*Config, error) {
	var cfg Config
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := l.validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &cfg, nil
}

func (l *Loader) validate(cfg *Config) error {
	if err := l.validator.Struct(cfg); err != nil {
		return err
	}

	if cfg.Environment == "production" {
		if cfg.Gateway.Token == "" {
			return fmt.Errorf("production environment requires a gateway token")
		}
		for _, origin := range cfg.Server.AllowedOrigins {
			if origin == "*" {
				return fmt.Errorf("production environment should not allow all CORS origins")
			}
		}
	}

	if cfg.Gateway.VerifyCodes {
		if len(cfg.TwoFA.Secrets) == 0 {
			return fmt.Errorf("gateway.verify_codes requires twofa.secrets")
		}
		if !cfg.Redis.Enabled() {
			return fmt.Errorf("gateway.verify_codes requires redis for replay protection")
		}
	}

	for name, network := range cfg.Blockchain.Networks {
		if network.RPC == "" && network.StaticFee == "" {
			return fmt.Errorf("blockchain network %s needs an rpc endpoint or a static fee", name)
		}
	}
	return nil
}

// setDefaults registers every key so that AutomaticEnv can override it
// during Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.session_ttl", 30*time.Minute)
	v.SetDefault("server.code_attempts", 5)
	v.SetDefault("server.code_window", 5*time.Minute)

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.max_open_conns", 25)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "console")
	v.SetDefault("redis.price_ttl", time.Minute)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("webhook.url", "")

	v.SetDefault("gateway.base_url", "")
	v.SetDefault("gateway.token", "")
	v.SetDefault("gateway.timeout", 30*time.Second)
	v.SetDefault("gateway.verify_codes", false)

	v.SetDefault("pricing.base_url", "")
	v.SetDefault("pricing.api_key", "")

	v.SetDefault("blockchain.gas_price_multiplier", 1.0)

	v.SetDefault("wizard.operation", "WITHDRAWAL")
	v.SetDefault("wizard.gas_debounce", time.Second)
	v.SetDefault("wizard.resolve_timeout", 10*time.Second)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.service_name", "finalex-console")
}
