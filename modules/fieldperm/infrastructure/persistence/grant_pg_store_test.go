package persistence

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func connectTestPool(ctx context.Context, t *testing.T) *pgxpool.Pool {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestGrantPGStore_HoldsAndListLabels(t *testing.T) {
	ctx := context.Background()
	pool := connectTestPool(ctx, t)

	if _, err := pool.Exec(ctx, `
CREATE SCHEMA IF NOT EXISTS fieldperm;
CREATE TABLE IF NOT EXISTS fieldperm.grants (
  subject_id text NOT NULL,
  label      text NOT NULL,
  PRIMARY KEY (subject_id, label)
);
`); err != nil {
		t.Fatalf("schema: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM fieldperm.grants WHERE subject_id IN ('u1', 'u2');`); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if _, err := pool.Exec(ctx, `
INSERT INTO fieldperm.grants (subject_id, label) VALUES
  ('u1', 'can_change_post_name'),
  ('u1', 'can_change_post_body');
`); err != nil {
		t.Fatalf("seed: %v", err)
	}

	store := NewGrantPGStore(pool, "t1")

	held, err := store.Holds(ctx, "u1", "can_change_post_name")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if !held {
		t.Fatal("expected grant held")
	}

	held, err = store.Holds(ctx, "u2", "can_change_post_name")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if held {
		t.Fatal("expected grant not held")
	}

	labels, err := store.ListLabels(ctx, "u1")
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if len(labels) != 2 || labels[0] != "can_change_post_body" || labels[1] != "can_change_post_name" {
		t.Fatalf("labels=%v", labels)
	}
}
