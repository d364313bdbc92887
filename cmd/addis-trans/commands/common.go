// Package commands provides CLI command implementations.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	appTransit "github.com/surak-alf/addis-trans/internal/application/transit"
	"github.com/surak-alf/addis-trans/internal/infrastructure/events"
	"github.com/surak-alf/addis-trans/internal/infrastructure/logging"
	"github.com/surak-alf/addis-trans/internal/infrastructure/runstore"
	"github.com/surak-alf/addis-trans/internal/shared"
)

// Global flags
var (
	configPath string
	logLevel   string
	dbDriver   string
	dbDSN      string
)

// AddGlobalFlags registers the flags shared by every command.
func AddGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Training config file (JSON)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug|info|warning|error)")
	root.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "Run store driver (sqlite|postgres)")
	root.PersistentFlags().StringVar(&dbDSN, "db-dsn", "", "Run store DSN")
}

// loadConfig reads the config file and applies the global overrides.
func loadConfig() (appTransit.TrainingConfig, error) {
	config, err := appTransit.LoadTrainingConfig(configPath)
	if err != nil {
		return config, err
	}
	if logLevel != "" {
		config.LogLevel = logLevel
	}
	if dbDriver != "" {
		config.Store.Driver = runstore.Driver(dbDriver)
	}
	if dbDSN != "" {
		config.Store.DSN = dbDSN
	}
	return config, nil
}

func newLogManager(level string) (*logging.LogManager, error) {
	logs := logging.NewLogManagerWithDefaults()
	if err := logs.SetLevel(level); err != nil {
		return nil, err
	}
	return logs, nil
}

// newEventBus logs every lifecycle event at debug level.
func newEventBus(logs *logging.LogManager) *events.EventBus {
	bus := events.New()
	logger := logs.Named("events")
	bus.On(shared.EventWildcard, func(e shared.Event) {
		logger.Debug(string(e.Type), e.Payload)
	})
	return bus
}

// openRunStore returns nil when run recording is disabled.
func openRunStore(ctx context.Context, config appTransit.TrainingConfig) (*runstore.Store, error) {
	if !config.RecordRuns {
		return nil, nil
	}
	return runstore.Open(ctx, config.Store)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
