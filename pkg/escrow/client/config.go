package client

import (
	"time"

	"github.com/code-payments/code-escrow/pkg/config"
	"github.com/code-payments/code-escrow/pkg/config/env"
	"github.com/code-payments/code-escrow/pkg/config/memory"
	"github.com/code-payments/code-escrow/pkg/config/wrapper"
)

const (
	envConfigPrefix = "ESCROW_CLIENT_"

	CommitmentConfigEnvName = envConfigPrefix + "COMMITMENT"
	defaultCommitment       = "finalized"

	ConfirmationPollIntervalConfigEnvName = envConfigPrefix + "CONFIRMATION_POLL_INTERVAL"
	defaultConfirmationPollInterval       = 500 * time.Millisecond

	MaxConfirmationAttemptsConfigEnvName = envConfigPrefix + "MAX_CONFIRMATION_ATTEMPTS"
	defaultMaxConfirmationAttempts       = 60

	MaxConcurrencyConfigEnvName = envConfigPrefix + "MAX_CONCURRENCY"
	defaultMaxConcurrency       = 4
)

type conf struct {
	commitment               config.String
	confirmationPollInterval config.Duration
	maxConfirmationAttempts  config.Uint64
	maxConcurrency           config.Uint64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			commitment:               env.NewStringConfig(CommitmentConfigEnvName, defaultCommitment),
			confirmationPollInterval: env.NewDurationConfig(ConfirmationPollIntervalConfigEnvName, defaultConfirmationPollInterval),
			maxConfirmationAttempts:  env.NewUint64Config(MaxConfirmationAttemptsConfigEnvName, defaultMaxConfirmationAttempts),
			maxConcurrency:           env.NewUint64Config(MaxConcurrencyConfigEnvName, defaultMaxConcurrency),
		}
	}
}

type testOverrides struct {
	confirmationPollInterval time.Duration
	maxConfirmationAttempts  uint64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			commitment:               wrapper.NewStringConfig(memory.NewConfig(defaultCommitment), defaultCommitment),
			confirmationPollInterval: wrapper.NewDurationConfig(memory.NewConfig(overrides.confirmationPollInterval), defaultConfirmationPollInterval),
			maxConfirmationAttempts:  wrapper.NewUint64Config(memory.NewConfig(overrides.maxConfirmationAttempts), defaultMaxConfirmationAttempts),
			maxConcurrency:           wrapper.NewUint64Config(memory.NewConfig(uint64(defaultMaxConcurrency)), defaultMaxConcurrency),
		}
	}
}
