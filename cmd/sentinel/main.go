// File: cmd/sentinel/main.go
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/smartdevs17/token-sentinel/internal/analyzer"
	"github.com/smartdevs17/token-sentinel/internal/chain"
	"github.com/smartdevs17/token-sentinel/internal/config"
	"github.com/smartdevs17/token-sentinel/internal/metrics"
	"github.com/smartdevs17/token-sentinel/internal/scanner"
	"github.com/smartdevs17/token-sentinel/internal/server"
	"github.com/smartdevs17/token-sentinel/internal/sink"
	"github.com/smartdevs17/token-sentinel/internal/storage"
	"github.com/smartdevs17/token-sentinel/internal/tracker"
	"github.com/smartdevs17/token-sentinel/pkg/utils"
)

// AppVersion contains the application version
const AppVersion = "1.0.0"

// Application wires the two pipelines, storage, and the HTTP surface.
type Application struct {
	config  *config.Config
	logger  *logrus.Logger
	client  chain.Client
	store   storage.Store
	sinks   *sink.Registry
	metrics *metrics.Manager
	scanner *scanner.TokenScanner
	tracker *tracker.WalletTracker
	server  *server.HTTPServer
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) (*Application, error) {
	ctx, cancel := context.WithCancel(context.Background())

	app := &Application{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := app.initializeLogger(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := app.initializeComponents(); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize components: %w", err)
	}

	return app, nil
}

// initializeLogger initializes the application logger
func (app *Application) initializeLogger() error {
	logCfg := app.config.Logging

	if err := utils.InitLogger(logCfg.Level, logCfg.Format, logCfg.Output, logCfg.File); err != nil {
		return err
	}

	app.logger = utils.GetLogger()
	app.logger.WithFields(logrus.Fields{
		"level":  logCfg.Level,
		"format": logCfg.Format,
	}).Info("Logger initialized")

	return nil
}

// initializeComponents initializes all application components
func (app *Application) initializeComponents() error {
	app.logger.Info("Initializing application components")

	if err := app.initializeChainClient(); err != nil {
		return fmt.Errorf("failed to initialize chain client: %w", err)
	}

	if err := app.initializeStorage(); err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	app.metrics = metrics.NewManager()

	app.sinks = sink.NewRegistry()
	app.sinks.Register(sink.NewLogSink())
	if app.config.Alerts.Enabled {
		app.sinks.Register(sink.NewWebhookSink(&app.config.Alerts))
	}

	if err := app.initializePipelines(); err != nil {
		return fmt.Errorf("failed to initialize pipelines: %w", err)
	}

	app.server = server.NewHTTPServer(&app.config.Server, app.store, app.scanner, app.tracker, app.metrics)

	app.logger.Info("All components initialized successfully")
	return nil
}

// initializeChainClient connects to the chain node, with failover nodes
func (app *Application) initializeChainClient() error {
	app.logger.WithField("node", app.config.Chain.NodeURL).Info("Initializing chain client")

	app.client = chain.NewRPCClient(&app.config.Chain)
	return nil
}

// initializeStorage connects the store and runs migrations
func (app *Application) initializeStorage() error {
	app.logger.WithField("type", app.config.Storage.Type).Info("Initializing storage layer")

	store, err := storage.NewStore(&app.config.Storage)
	if err != nil {
		return err
	}

	if err := store.Connect(); err != nil {
		return err
	}

	if err := store.Migrate(); err != nil {
		return err
	}

	app.store = store
	return nil
}

// initializePipelines builds the discovery and tracking pipelines
func (app *Application) initializePipelines() error {
	liquidity, holders, deployers := analyzer.DefaultStubSources()

	tokenScanner, err := scanner.NewTokenScanner(&app.config.Scanner, &app.config.Chain, scanner.Deps{
		Client:    app.client,
		Store:     app.store,
		Sink:      app.sinks,
		Metrics:   app.metrics,
		Liquidity: liquidity,
		Holders:   holders,
		Deployers: deployers,
	})
	if err != nil {
		return err
	}
	app.scanner = tokenScanner

	walletTracker, err := tracker.NewWalletTracker(&app.config.Tracker, &app.config.Chain, tracker.Deps{
		Client:  app.client,
		Store:   app.store,
		Sink:    app.sinks,
		Metrics: app.metrics,
	})
	if err != nil {
		return err
	}
	app.tracker = walletTracker

	return nil
}

// Start starts the application
func (app *Application) Start() error {
	app.logger.WithFields(logrus.Fields{
		"version":     AppVersion,
		"environment": app.config.App.Environment,
	}).Info("Starting Token Sentinel")

	if err := app.server.Start(); err != nil {
		return fmt.Errorf("failed to start HTTP server: %w", err)
	}

	if err := app.scanner.Start(app.ctx); err != nil {
		return fmt.Errorf("failed to start token scanner: %w", err)
	}

	if err := app.tracker.Start(app.ctx); err != nil {
		return fmt.Errorf("failed to start wallet tracker: %w", err)
	}

	app.logger.WithFields(logrus.Fields{
		"server_address": fmt.Sprintf("%s:%d", app.config.Server.Host, app.config.Server.Port),
		"chain_node":     app.config.Chain.NodeURL,
		"wallets":        len(app.config.Tracker.Wallets),
	}).Info("Token Sentinel started successfully")

	return nil
}

// Stop stops the application gracefully, pipelines first so their cursors
// land on a clean block boundary.
func (app *Application) Stop() error {
	app.logger.Info("Stopping Token Sentinel")

	app.cancel()

	if app.tracker != nil {
		if err := app.tracker.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop wallet tracker")
		}
	}

	if app.scanner != nil {
		if err := app.scanner.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop token scanner")
		}
	}

	if app.server != nil {
		if err := app.server.Stop(); err != nil {
			app.logger.WithError(err).Error("Failed to stop HTTP server")
		}
	}

	if app.store != nil {
		if err := app.store.Close(); err != nil {
			app.logger.WithError(err).Error("Failed to close storage")
		}
	}

	if app.client != nil {
		app.client.Close()
	}

	app.logger.Info("Token Sentinel stopped successfully")
	return nil
}

// CLI Commands

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "token-sentinel",
	Short:   "On-chain token discovery and wallet tracking",
	Long:    `Token Sentinel watches an EVM chain for new token deployments, scores them for risk, and tracks the trading behavior of a configurable wallet watch-list.`,
	Version: AppVersion,
	RunE:    runSentinel,
}

// runSentinel is the main command to run the sentinel
func runSentinel(cmd *cobra.Command, args []string) error {
	configPath := viper.GetString("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	app, err := NewApplication(cfg)
	if err != nil {
		return fmt.Errorf("failed to create application: %w", err)
	}

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, os.Interrupt, syscall.SIGTERM)

	if err := app.Start(); err != nil {
		return fmt.Errorf("failed to start application: %w", err)
	}

	<-signalChan
	fmt.Println("\nReceived shutdown signal, stopping application...")

	if err := app.Stop(); err != nil {
		return fmt.Errorf("failed to stop application: %w", err)
	}

	return nil
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Token Sentinel %s\n", AppVersion)
	},
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Configuration management commands",
}

// validateConfigCmd validates the configuration
var validateConfigCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("configuration validation failed: %w", err)
		}

		fmt.Printf("Configuration is valid!\n")
		fmt.Printf("Environment: %s\n", cfg.App.Environment)
		fmt.Printf("Chain Node: %s\n", cfg.Chain.NodeURL)
		fmt.Printf("Database: %s\n", cfg.Storage.Type)
		fmt.Printf("Watched wallets: %d\n", len(cfg.Tracker.Wallets))

		return nil
	},
}

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test connectivity and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath := viper.GetString("config")
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}

		fmt.Println("Testing Token Sentinel connectivity...")

		fmt.Printf("Testing chain connection to %s...\n", cfg.Chain.NodeURL)
		client := chain.NewRPCClient(&cfg.Chain)
		defer client.Close()

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Chain.RequestTimeout)
		defer cancel()
		latest, err := client.LatestBlockNumber(ctx)
		if err != nil {
			return fmt.Errorf("failed to connect to chain node: %w", err)
		}
		fmt.Printf("✓ Chain connection successful (latest block %d)\n", latest)

		fmt.Printf("Testing storage connection (%s)...\n", cfg.Storage.Type)
		store, err := storage.NewStore(&cfg.Storage)
		if err != nil {
			return fmt.Errorf("failed to create storage: %w", err)
		}
		if err := store.Connect(); err != nil {
			return fmt.Errorf("failed to connect to storage: %w", err)
		}
		defer store.Close()
		fmt.Println("✓ Storage connection successful")

		fmt.Println("\nAll connectivity tests passed! ✓")
		return nil
	},
}

// init initializes the CLI commands
func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")

	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.BindPFlag("log-level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(testCmd)
	configCmd.AddCommand(validateConfigCmd)
}

// main is the entry point
func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}
