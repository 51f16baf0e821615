package localnet

import (
	"github.com/code-payments/code-escrow/pkg/config"
	"github.com/code-payments/code-escrow/pkg/config/env"
	"github.com/code-payments/code-escrow/pkg/config/memory"
	"github.com/code-payments/code-escrow/pkg/config/wrapper"
)

const (
	envConfigPrefix = "LOCALNET_"

	LamportsPerSignatureConfigEnvName = envConfigPrefix + "LAMPORTS_PER_SIGNATURE"
	defaultLamportsPerSignature       = 5_000

	StripedLockParallelizationConfigEnvName = envConfigPrefix + "STRIPED_LOCK_PARALLELIZATION"
	defaultStripedLockParallelization       = 1024

	FaucetLamportsConfigEnvName = envConfigPrefix + "FAUCET_LAMPORTS"
	defaultFaucetLamports       = 500_000_000 * LamportsPerSol

	MaxAirdropLamportsConfigEnvName = envConfigPrefix + "MAX_AIRDROP_LAMPORTS"
	defaultMaxAirdropLamports       = 10 * LamportsPerSol

	AirdropsPerSecondConfigEnvName = envConfigPrefix + "AIRDROPS_PER_SECOND"
	defaultAirdropsPerSecond       = 10.0
)

type conf struct {
	lamportsPerSignature       config.Uint64
	stripedLockParallelization config.Uint64
	faucetLamports             config.Uint64
	maxAirdropLamports         config.Uint64
	airdropsPerSecond          config.Float64
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			lamportsPerSignature:       env.NewUint64Config(LamportsPerSignatureConfigEnvName, defaultLamportsPerSignature),
			stripedLockParallelization: env.NewUint64Config(StripedLockParallelizationConfigEnvName, defaultStripedLockParallelization),
			faucetLamports:             env.NewUint64Config(FaucetLamportsConfigEnvName, defaultFaucetLamports),
			maxAirdropLamports:         env.NewUint64Config(MaxAirdropLamportsConfigEnvName, defaultMaxAirdropLamports),
			airdropsPerSecond:          env.NewFloat64Config(AirdropsPerSecondConfigEnvName, defaultAirdropsPerSecond),
		}
	}
}

type testOverrides struct {
	lamportsPerSignature uint64
	maxAirdropLamports   uint64
	airdropsPerSecond    float64
}

func withManualTestOverrides(overrides *testOverrides) ConfigProvider {
	return func() *conf {
		return &conf{
			lamportsPerSignature:       wrapper.NewUint64Config(memory.NewConfig(overrides.lamportsPerSignature), defaultLamportsPerSignature),
			stripedLockParallelization: wrapper.NewUint64Config(memory.NewConfig(uint64(defaultStripedLockParallelization)), defaultStripedLockParallelization),
			faucetLamports:             wrapper.NewUint64Config(memory.NewConfig(uint64(defaultFaucetLamports)), defaultFaucetLamports),
			maxAirdropLamports:         wrapper.NewUint64Config(memory.NewConfig(overrides.maxAirdropLamports), defaultMaxAirdropLamports),
			airdropsPerSecond:          wrapper.NewFloat64Config(memory.NewConfig(overrides.airdropsPerSecond), defaultAirdropsPerSecond),
		}
	}
}
