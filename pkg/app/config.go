package app

import (
	"github.com/spf13/viper"
)

// BaseConfig is the configuration shared by every escrow command.
type BaseConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	AppName string `mapstructure:"app_name"`

	// SolanaRpcEndpoint selects the cluster commands run against. When it is
	// empty, commands run against an in-process localnet.
	SolanaRpcEndpoint string `mapstructure:"solana_rpc_endpoint"`

	// ProgramID is the base58 address the escrow program is deployed at.
	// The well-known address is used when it is empty.
	ProgramID string `mapstructure:"program_id"`

	// Offer book. It is disabled when PostgresHost is empty.
	PostgresHost               string `mapstructure:"postgres_host"`
	PostgresPort               string `mapstructure:"postgres_port"`
	PostgresUser               string `mapstructure:"postgres_user"`
	PostgresPassword           string `mapstructure:"postgres_password"`
	PostgresDbName             string `mapstructure:"postgres_db_name"`
	PostgresUseIamAuth         bool   `mapstructure:"postgres_use_iam_auth"`
	PostgresMaxOpenConnections int    `mapstructure:"postgres_max_open_connections"`
	PostgresMaxIdleConnections int    `mapstructure:"postgres_max_idle_connections"`

	// Metrics configuration across many providers
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`
}

var defaultConfig = BaseConfig{
	LogLevel:  "info",
	LogFormat: "text",

	AppName: "escrow",

	PostgresPort:               "5432",
	PostgresMaxOpenConnections: 10,
	PostgresMaxIdleConnections: 2,
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")
	_ = viper.BindEnv("log_format", "LOG_FORMAT")

	_ = viper.BindEnv("app_name", "APP_NAME")

	_ = viper.BindEnv("solana_rpc_endpoint", "SOLANA_RPC_ENDPOINT")
	_ = viper.BindEnv("program_id", "ESCROW_PROGRAM_ID")

	_ = viper.BindEnv("postgres_host", "POSTGRES_HOST")
	_ = viper.BindEnv("postgres_port", "POSTGRES_PORT")
	_ = viper.BindEnv("postgres_user", "POSTGRES_USER")
	_ = viper.BindEnv("postgres_password", "POSTGRES_PASSWORD")
	_ = viper.BindEnv("postgres_db_name", "POSTGRES_DB_NAME")
	_ = viper.BindEnv("postgres_use_iam_auth", "POSTGRES_USE_IAM_AUTH")
	_ = viper.BindEnv("postgres_max_open_connections", "POSTGRES_MAX_OPEN_CONNECTIONS")
	_ = viper.BindEnv("postgres_max_idle_connections", "POSTGRES_MAX_IDLE_CONNECTIONS")

	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")
}
