package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gregtusar/armadex/api"
	"github.com/gregtusar/armadex/internal/config"
	"github.com/gregtusar/armadex/pkg/auth"
	"github.com/gregtusar/armadex/pkg/clock"
	"github.com/gregtusar/armadex/pkg/random"
	"github.com/gregtusar/armadex/pkg/session"
	"github.com/gregtusar/armadex/pkg/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	cfgFile string
	logger  *logrus.Logger

	version = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "armadex",
		Short: "Mock decentralized exchange simulator",
		Long:  `Serves simulated order books, trade tapes, market statistics, positions, governance and vaults for the ArmaDEX front end`,
		Run:   runServer,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the API server",
			Run:   runServer,
		},
		newBookCmd(),
		newTapeCmd(),
		&cobra.Command{
			Use:   "version",
			Short: "Print the version",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintln(cmd.OutOrStdout(), "armadex", version)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// setup initializes the logger and loads and validates the configuration.
// Any failure is fatal.
func setup() (*config.Config, func()) {
	logger = logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg, err := config.Load(cfgFile)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	if err := cfg.Validate(); err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logger.WithError(err).Error("Invalid log level, using INFO")
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "text" {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	cleanup := func() {}
	if cfg.Logging.File != "" {
		out, closeFile, err := openLogOutput(cfg.Logging.File)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open log file")
		}
		logger.SetOutput(out)
		cleanup = closeFile
	}

	return cfg, cleanup
}

// openLogOutput tees log lines to stderr and path. Stdout stays free for
// the book and tape tables.
func openLogOutput(path string) (io.Writer, func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return io.MultiWriter(os.Stderr, f), func() { f.Close() }, nil
}

func newRandom(seed uint64) *random.Source {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	return random.New(seed)
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, closeLog := setup()
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, closeStore, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open storage")
	}
	defer closeStore()
	logger.WithField("driver", cfg.Storage.Driver).Info("Storage opened")

	if cfg.Auth.JWTSecret == "" {
		secret, err := generateSecret()
		if err != nil {
			logger.WithError(err).Fatal("Failed to generate JWT secret")
		}
		cfg.Auth.JWTSecret = secret
		logger.Warn("No JWT secret configured, generated one for this process; tokens will not survive a restart")
	}

	clk := clock.NewReal()
	authn, err := auth.NewAuthenticator(cfg.Auth, clk)
	if err != nil {
		logger.WithError(err).Fatal("Failed to create authenticator")
	}

	manager := session.NewManager(cfg.Simulation.Config, session.Deps{
		Clock:  clk,
		Assets: cfg.Assets.Table(),
		Store:  store,
		Rand:   newRandom(cfg.Simulation.Seed),
		Logger: logger,
	})

	apiServer := api.NewServer(manager, authn, clk, api.Options{
		Port:           cfg.Server.Port,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		PingInterval:   cfg.Server.PingInterval,
		RateLimit: api.RateLimit{
			Enabled:           cfg.RateLimit.Enabled,
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		},
	}, logger)

	go func() {
		if err := apiServer.Start(); err != nil {
			logger.WithError(err).Fatal("Failed to start API server")
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info("ArmaDEX simulator is running. Press Ctrl+C to stop.")

	<-sigChan
	logger.Info("Received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("API server shutdown failed")
	}
	manager.Close()

	logger.Info("ArmaDEX simulator stopped")
}

func generateSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
