package testdb

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/Pjt727/homeroom/projectpath"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SetupTestDb resets the database behind TEST_DB_CONN by applying every down
// and then every up migration
func SetupTestDb() error {
	testDb := os.Getenv("TEST_DB_CONN")
	if testDb == "" {
		return errors.New("TEST_DB_CONN is not set")
	}

	m, err := migrate.New("file://"+projectpath.Root+"/migrations", testDb)
	if err != nil {
		return err
	}
	defer m.Close()
	err = m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

// Pool skips the test when no test database is configured, otherwise it
// resets the schema and hands back a pool closed at cleanup
func Pool(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("TEST_DB_CONN") == "" {
		t.Skip("TEST_DB_CONN not set")
	}
	if err := SetupTestDb(); err != nil {
		t.Fatalf("could not reset test database: %v", err)
	}
	pool, err := pgxpool.New(context.Background(), os.Getenv("TEST_DB_CONN"))
	if err != nil {
		t.Fatalf("could not connect to test database: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

// ReloadDb resets the database behind DB_CONN
func ReloadDb(connString string) error {
	// this is really scary so only reset the actual database if this env variable is set
	//    the real database should be reset manually if ever needed
	isLocal := os.Getenv("LOCAL") == "true"
	if !isLocal {
		return errors.New("Reset database manually or set the LOCAL=\"true\" env variable")
	}

	m, err := migrate.New("file://"+projectpath.Root+"/migrations", connString)
	if err != nil {
		return err
	}
	defer m.Close()
	err = m.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	err = m.Up()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}
