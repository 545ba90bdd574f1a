//go:build integration

package postgres

import (
	"context"
	"log"
	"os"
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"

	"health-premium-service/internal/testutil/pgtest"
)

var (
	testDB   *pgtest.DB
	testPool *pgxpool.Pool
)

func TestMain(m *testing.M) {
	db, err := pgtest.Start(context.Background(), pgtest.Options{Name: "repo_test", Port: "5432"})
	if err != nil {
		log.Fatalf("repo tests: %v", err)
	}
	testDB, testPool = db, db.Pool

	code := m.Run()
	db.Stop()
	os.Exit(code)
}

func cleanup(t *testing.T) {
	t.Helper()
	if err := testDB.Truncate(context.Background()); err != nil {
		t.Fatalf("truncate: %v", err)
	}
}
