package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/gregtusar/armadex/pkg/auth"
	"github.com/gregtusar/armadex/pkg/marketdata"
	"github.com/gregtusar/armadex/pkg/secrets"
	"github.com/gregtusar/armadex/pkg/session"
	"github.com/gregtusar/armadex/pkg/storage"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Assets     AssetsConfig     `mapstructure:"assets"`
	Storage    storage.Config   `mapstructure:"storage"`
	Auth       auth.Config      `mapstructure:"auth"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	GCP        GCPConfig        `mapstructure:"gcp"`
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

type SimulationConfig struct {
	session.Config `mapstructure:",squash"`
	// Seed fixes the random source; zero seeds from the wall clock.
	Seed uint64 `mapstructure:"seed"`
}

type AssetsConfig struct {
	Prices   map[string]marketdata.AssetPrice `mapstructure:"prices"`
	Fallback marketdata.AssetPrice            `mapstructure:"fallback"`
}

func (a AssetsConfig) Table() marketdata.Assets {
	return marketdata.NewAssets(a.Prices, a.Fallback)
}

type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type GCPConfig struct {
	ProjectID   string              `mapstructure:"project_id"`
	UseSecrets  bool                `mapstructure:"use_secrets"`
	SecretNames secrets.SecretNames `mapstructure:"secret_names"`
}

func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/armadex")
	}

	v.SetEnvPrefix("ARMADEX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&config)

	if config.GCP.UseSecrets && config.GCP.ProjectID != "" {
		ctx := context.Background()
		logger := logrus.New()
		if err := loadSecretsFromGCP(ctx, &config, logger); err != nil {
			return nil, fmt.Errorf("error loading secrets from GCP: %w", err)
		}
	}

	return &config, nil
}

// loadDotEnv reads .env from the working directory when present. Variables
// already set in the environment win.
func loadDotEnv() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("error loading .env: %w", err)
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.ping_interval", 30*time.Second)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.file", "")

	// Simulation defaults
	sim := session.DefaultConfig()
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.default_market", string(sim.DefaultMarket))
	v.SetDefault("simulation.markets", marketStrings(sim.Markets))
	v.SetDefault("simulation.market_data_delay", sim.MarketDataDelay)

	v.SetDefault("simulation.order_book.interval", sim.OrderBook.Interval)
	v.SetDefault("simulation.order_book.depth", sim.OrderBook.Depth)
	v.SetDefault("simulation.order_book.offset", sim.OrderBook.Offset)
	v.SetDefault("simulation.order_book.step", sim.OrderBook.Step)
	v.SetDefault("simulation.order_book.price_jitter", sim.OrderBook.PriceJitter)
	v.SetDefault("simulation.order_book.min_amount", sim.OrderBook.MinAmount)
	v.SetDefault("simulation.order_book.max_amount", sim.OrderBook.MaxAmount)

	v.SetDefault("simulation.tape.interval", sim.Tape.Interval)
	v.SetDefault("simulation.tape.capacity", sim.Tape.Capacity)
	v.SetDefault("simulation.tape.initial_trades", sim.Tape.InitialTrades)
	v.SetDefault("simulation.tape.lookback", sim.Tape.Lookback)
	v.SetDefault("simulation.tape.variation", sim.Tape.Variation)
	v.SetDefault("simulation.tape.min_amount", sim.Tape.MinAmount)
	v.SetDefault("simulation.tape.max_amount", sim.Tape.MaxAmount)

	v.SetDefault("simulation.portfolio.interval", sim.Portfolio.Interval)
	v.SetDefault("simulation.portfolio.creation_probability", sim.Portfolio.CreationProbability)
	v.SetDefault("simulation.portfolio.mark_jitter", sim.Portfolio.MarkJitter)
	v.SetDefault("simulation.portfolio.max_leverage", sim.Portfolio.MaxLeverage)
	v.SetDefault("simulation.portfolio.liquidation_buffer", sim.Portfolio.LiquidationBuffer)
	v.SetDefault("simulation.portfolio.max_orders", sim.Portfolio.MaxOrders)
	v.SetDefault("simulation.portfolio.markets", marketStrings(sim.Portfolio.Markets))
	v.SetDefault("simulation.portfolio.spot_assets", sim.Portfolio.SpotAssets)
	v.SetDefault("simulation.portfolio.quote_asset", sim.Portfolio.QuoteAsset)

	v.SetDefault("simulation.wallet.connect_delay", sim.Wallet.ConnectDelay)

	// Asset price defaults
	prices := make(map[string]interface{})
	for symbol, p := range marketdata.DefaultTable() {
		prices[strings.ToLower(symbol)] = map[string]interface{}{
			"reference": p.Reference,
			"jitter":    p.Jitter,
		}
	}
	v.SetDefault("assets.prices", prices)
	fallback := marketdata.DefaultFallback()
	v.SetDefault("assets.fallback.reference", fallback.Reference)
	v.SetDefault("assets.fallback.jitter", fallback.Jitter)

	// Storage defaults
	v.SetDefault("storage.driver", string(storage.DriverMemory))
	v.SetDefault("storage.path", "./data/armadex.json")
	v.SetDefault("storage.postgres_dsn", "")

	// Auth defaults
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.token_ttl", 24*time.Hour)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 20.0)
	v.SetDefault("rate_limit.burst", 40)

	// GCP defaults
	v.SetDefault("gcp.use_secrets", false)
	v.SetDefault("gcp.project_id", "")

	secretNames := secrets.DefaultSecretNames()
	v.SetDefault("gcp.secret_names.jwt_secret", secretNames.JWTSecret)
	v.SetDefault("gcp.secret_names.postgres_dsn", secretNames.PostgresDSN)
}

func marketStrings[M ~string](markets []M) []string {
	out := make([]string, len(markets))
	for i, m := range markets {
		out[i] = string(m)
	}
	return out
}

func overrideFromEnv(config *Config) {
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		config.Storage.PostgresDSN = dsn
	}
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		config.Auth.JWTSecret = secret
	}
	if level := os.Getenv("LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// GCP configuration from environment
	if projectID := os.Getenv("GCP_PROJECT_ID"); projectID != "" {
		config.GCP.ProjectID = projectID
	}
	if useSecrets := os.Getenv("GCP_USE_SECRETS"); useSecrets == "true" {
		config.GCP.UseSecrets = true
	}
}

func loadSecretsFromGCP(ctx context.Context, config *Config, logger *logrus.Logger) error {
	secretManager, err := secrets.NewGCPSecretManager(ctx, config.GCP.ProjectID, logger)
	if err != nil {
		return fmt.Errorf("failed to create secret manager: %w", err)
	}
	defer secretManager.Close()

	applySecrets(ctx, config, secretManager)

	logger.Info("Successfully loaded secrets from GCP Secret Manager")
	return nil
}

// applySecrets fills only the values that are still empty.
func applySecrets(ctx context.Context, config *Config, src secrets.Source) {
	if config.Auth.JWTSecret == "" {
		config.Auth.JWTSecret = src.GetSecretWithDefault(ctx, config.GCP.SecretNames.JWTSecret, "")
	}
	if config.Storage.Driver == storage.DriverPostgres && config.Storage.PostgresDSN == "" {
		config.Storage.PostgresDSN = src.GetSecretWithDefault(ctx, config.GCP.SecretNames.PostgresDSN, "")
	}
}

// Validate rejects configurations the simulators cannot run with.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	sim := c.Simulation
	check(c.Server.Port > 0 && c.Server.Port < 65536, "server.port %d out of range", c.Server.Port)
	check(sim.OrderBook.Interval > 0, "simulation.order_book.interval must be positive")
	check(sim.OrderBook.Depth > 0, "simulation.order_book.depth must be positive")
	check(sim.OrderBook.Offset >= 0 && sim.OrderBook.Offset < 1, "simulation.order_book.offset must be in [0, 1)")
	check(sim.OrderBook.Step > 0 && sim.OrderBook.Step < 1, "simulation.order_book.step must be in (0, 1)")
	check(sim.OrderBook.PriceJitter >= 0 && sim.OrderBook.PriceJitter < 1, "simulation.order_book.price_jitter must be in [0, 1)")
	check(sim.OrderBook.MinAmount >= 0 && sim.OrderBook.MinAmount <= sim.OrderBook.MaxAmount, "simulation.order_book amounts need 0 <= min_amount <= max_amount")
	check(sim.Tape.Interval > 0, "simulation.tape.interval must be positive")
	check(sim.Tape.Capacity > 0, "simulation.tape.capacity must be positive")
	check(sim.Tape.InitialTrades >= 0, "simulation.tape.initial_trades must not be negative")
	check(sim.Tape.Lookback > 0, "simulation.tape.lookback must be positive")
	check(sim.Tape.Variation >= 0 && sim.Tape.Variation < 1, "simulation.tape.variation must be in [0, 1)")
	check(sim.Tape.MinAmount >= 0 && sim.Tape.MinAmount <= sim.Tape.MaxAmount, "simulation.tape amounts need 0 <= min_amount <= max_amount")
	check(sim.Portfolio.Interval > 0, "simulation.portfolio.interval must be positive")
	check(sim.Portfolio.MaxLeverage > 0, "simulation.portfolio.max_leverage must be positive")
	check(sim.Portfolio.MaxOrders >= 0, "simulation.portfolio.max_orders must not be negative")
	check(len(sim.Portfolio.Markets) > 0, "simulation.portfolio.markets must not be empty")
	check(sim.MarketDataDelay >= 0, "simulation.market_data_delay must not be negative")

	listed := false
	for _, m := range sim.Markets {
		check(m.Valid(), "simulation.markets: invalid market %q", m)
		if m == sim.DefaultMarket {
			listed = true
		}
	}
	check(listed, "simulation.default_market %q is not in simulation.markets", sim.DefaultMarket)

	switch c.Storage.Driver {
	case storage.DriverMemory:
	case storage.DriverFile:
		check(c.Storage.Path != "", "storage.path is required for the file driver")
	case storage.DriverPostgres:
		check(c.Storage.PostgresDSN != "", "storage.postgres_dsn is required for the postgres driver")
	default:
		check(false, "storage.driver %q is not supported", c.Storage.Driver)
	}

	check(c.Auth.JWTSecret == "" || len(c.Auth.JWTSecret) >= 16, "auth.jwt_secret must be at least 16 bytes")
	check(c.Auth.TokenTTL > 0, "auth.token_ttl must be positive")
	if c.RateLimit.Enabled {
		check(c.RateLimit.RequestsPerSecond > 0 && c.RateLimit.Burst > 0, "rate_limit requires positive requests_per_second and burst")
	}

	return errors.Join(errs...)
}
