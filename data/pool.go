package data

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	dbPool *pgxpool.Pool
	pgOnce sync.Once
)

// NewPool returns the process wide pool, the connection string of the first
// call wins
func NewPool(ctx context.Context, connString string) (*pgxpool.Pool, error) {

	var poolErr error = nil
	pgOnce.Do(func() {

		pgPool, err := pgxpool.New(ctx, connString)
		if err != nil {
			log.Error(fmt.Errorf("Unable to create connection pool: %w", err))
			poolErr = err
			return
		}
		if err := pgPool.Ping(ctx); err != nil {
			log.Error(fmt.Errorf("Unable to reach database: %w", err))
			pgPool.Close()
			poolErr = err
			return
		}
		dbPool = pgPool
	})
	if poolErr != nil {
		return nil, poolErr
	}
	if dbPool == nil {
		return nil, fmt.Errorf("connection pool was not created")
	}

	return dbPool, nil
}
