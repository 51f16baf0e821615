// Package test runs a throwaway postgres container for store tests.
package test

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"

	_ "github.com/jackc/pgx/v4/stdlib" //nolint:revive

	"github.com/code-payments/code-escrow/pkg/retry"
	"github.com/code-payments/code-escrow/pkg/retry/backoff"
)

const (
	image    = "postgres"
	imageTag = "10.4"

	// The container is killed after this long even if the test binary
	// crashes before running its cleanup.
	expireAfter = 2 * time.Minute

	readyPollInterval = 500 * time.Millisecond
	readyPollAttempts = 60

	user     = "escrowtest"
	password = "escrowtest"
	dbname   = "escrowtest"
)

// StartPostgresDB runs a postgres container in pool and returns a connected
// client. The returned func removes the container.
func StartPostgresDB(pool *dockertest.Pool) (*sql.DB, func(), error) {
	resource, err := pool.RunWithOptions(
		&dockertest.RunOptions{
			Repository: image,
			Tag:        imageTag,
			Env: []string{
				"POSTGRES_USER=" + user,
				"POSTGRES_PASSWORD=" + password,
				"POSTGRES_DB=" + dbname,
			},
		},
		func(hc *docker.HostConfig) {
			hc.AutoRemove = true
			hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
		},
	)
	if err != nil {
		return nil, func() {}, errors.Wrap(err, "failed to start postgres container")
	}

	cleanup := func() {
		_ = pool.Purge(resource)
	}

	_ = resource.Expire(uint(expireAfter.Seconds()))

	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=disable",
		user, password, resource.GetHostPort("5432/tcp"), dbname,
	)

	var db *sql.DB
	_, err = retry.Retry(
		func() error {
			conn, err := sql.Open("pgx", dsn)
			if err != nil {
				return err
			}
			if err := conn.Ping(); err != nil {
				conn.Close()
				return err
			}
			db = conn
			return nil
		},
		retry.Limit(readyPollAttempts),
		retry.Backoff(backoff.Constant(readyPollInterval), readyPollInterval),
	)
	if err != nil {
		cleanup()
		return nil, func() {}, errors.Wrap(err, "postgres container never became ready")
	}

	return db, cleanup, nil
}
