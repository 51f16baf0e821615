package app

import (
	"context"
	"crypto/ed25519"
	"database/sql"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/mr-tron/base58"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	pg "github.com/code-payments/code-escrow/pkg/database/postgres"
	"github.com/code-payments/code-escrow/pkg/metrics"
	nr "github.com/code-payments/code-escrow/pkg/metrics/newrelic"
	"github.com/code-payments/code-escrow/pkg/metrics/noop"
)

const (
	defaultShutdownTimeout = 10 * time.Second
)

// LoadConfig reads the config file at configPath, if it exists, and overlays
// the environment on top of the defaults.
func LoadConfig(configPath string) (*BaseConfig, error) {
	// viper.ReadInConfig only returns ConfigFileNotFoundError if it has to search
	// for a default config file because one hasn't been explicitly set. That is,
	// if we explicitly set a config file, and it does not exist, viper will not
	// return a ConfigFileNotFoundError, so we do it ourselves.
	if len(configPath) > 0 {
		if _, err := os.Stat(configPath); err == nil {
			viper.SetConfigFile(configPath)
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrap(err, "failed to check if config exists")
		}
	}

	err := viper.ReadInConfig()
	_, isConfigNotFound := err.(viper.ConfigFileNotFoundError)
	if err != nil && !isConfigNotFound {
		return nil, errors.Wrap(err, "failed to load config")
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}

	if len(config.AppName) == 0 {
		return nil, errors.New("must specify an application name")
	}
	if len(config.ProgramID) > 0 {
		decoded, err := base58.Decode(config.ProgramID)
		if err != nil || len(decoded) != ed25519.PublicKeySize {
			return nil, errors.Errorf("invalid program id: %s", config.ProgramID)
		}
	}
	return &config, nil
}

// Setup configures logging and returns a context carrying the metrics
// provider. The returned func flushes the provider and must be called before
// the process exits.
func Setup(ctx context.Context, config *BaseConfig) (context.Context, func(), error) {
	// todo: Better abstraction so we're not directly tied to NR
	var nrApp *newrelic.Application
	if len(config.NewRelicLicenseKey) > 0 {
		var err error
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			return nil, nil, errors.Wrap(err, "error connecting to new relic")
		}
	}

	configureLogger(config, nrApp)

	var provider metrics.Provider = noop.NewProvider()
	shutdown := func() {}
	if nrApp != nil {
		provider = nr.NewProvider(nrApp)
		shutdown = func() {
			nrApp.Shutdown(defaultShutdownTimeout)
		}
	}

	return metrics.NewProviderContext(ctx, provider), shutdown, nil
}

// WithShutdownSignals returns a context that is cancelled when the process
// is asked to stop.
func WithShutdownSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, syscall.SIGHUP)
}

// OpenDatabase opens the offer book database, or returns nil when none is
// configured.
func OpenDatabase(config *BaseConfig) (*sql.DB, error) {
	if len(config.PostgresHost) == 0 {
		return nil, nil
	}

	db, err := pg.Open(&pg.Config{
		Host:               config.PostgresHost,
		Port:               config.PostgresPort,
		User:               config.PostgresUser,
		Password:           config.PostgresPassword,
		DbName:             config.PostgresDbName,
		UseIamAuth:         config.PostgresUseIamAuth,
		MaxOpenConnections: config.PostgresMaxOpenConnections,
		MaxIdleConnections: config.PostgresMaxIdleConnections,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to open offer book database")
	}
	return db, nil
}

func configureLogger(config *BaseConfig, nrApp *newrelic.Application) {
	var formatter logrus.Formatter = &logrus.TextFormatter{FullTimestamp: true}
	if strings.ToLower(config.LogFormat) == "json" {
		formatter = &logrus.JSONFormatter{}
	}

	if nrApp != nil {
		logrus.SetFormatter(nr.NewLogFormatter(nrApp, formatter))
	} else {
		logrus.SetFormatter(formatter)
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	logrus.SetOutput(os.Stderr)
}
