package pg

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/external"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/rds/rdsutils"
	"github.com/pkg/errors"

	_ "github.com/newrelic/go-agent/v3/integrations/nrpgx"
)

// DriverName is the instrumented pgx driver every pool is opened with.
const DriverName = "nrpgx"

// Config describes how to reach a postgres database.
type Config struct {
	Host     string
	Port     string
	User     string
	Password string
	DbName   string

	// UseIamAuth swaps Password for a short lived RDS IAM token built from
	// the default AWS credential chain. Aurora Serverless does not support it.
	UseIamAuth bool

	MaxOpenConnections int
	MaxIdleConnections int
}

// Open connects to the database described by config and verifies the
// connection with a ping.
func Open(config *Config) (*sql.DB, error) {
	if config == nil || len(config.Host) == 0 {
		return nil, errors.New("postgres host is required")
	}

	var dsn string
	if config.UseIamAuth {
		awsConfig, err := external.LoadDefaultAWSConfig()
		if err != nil {
			return nil, errors.Wrap(err, "failed to load aws config")
		}

		dsn, err = iamDSN(config, awsConfig)
		if err != nil {
			return nil, err
		}
	} else {
		dsn = passwordDSN(config)
	}

	db, err := sql.Open(DriverName, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open connection pool")
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, errors.Wrapf(err, "failed to reach %s:%s", config.Host, config.Port)
	}

	if config.MaxOpenConnections > 0 {
		db.SetMaxOpenConns(config.MaxOpenConnections)
	}
	if config.MaxIdleConnections > 0 {
		db.SetMaxIdleConns(config.MaxIdleConnections)
	}
	return db, nil
}

func iamDSN(config *Config, awsConfig aws.Config) (string, error) {
	rdsClient := rds.New(awsConfig)

	endpoint := fmt.Sprintf("%s:%s", config.Host, config.Port)
	token, err := rdsutils.BuildAuthToken(endpoint, rdsClient.Region, config.User, rdsClient.Credentials)
	if err != nil {
		return "", errors.Wrap(err, "failed to build rds auth token")
	}

	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s",
		config.Host, config.Port, config.User, token, config.DbName,
	), nil
}

// TODO: require TLS once the RDS certificate bundle is shipped with the image.
func passwordDSN(config *Config) string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(config.User, config.Password),
		Host:     fmt.Sprintf("%s:%s", config.Host, config.Port),
		Path:     "/" + config.DbName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}
