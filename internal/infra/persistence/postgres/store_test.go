package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"

	"tankcore/internal/infra/persistence/memory"
	"tankcore/internal/infra/persistence/postgres/testutil"
	"tankcore/pkg/domain"
)

func openStub(t *testing.T) (*Store, *testutil.StubConn) {
	t.Helper()
	db, conn := testutil.NewStubDB()
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != "pgx" {
			t.Fatalf("unexpected driver %q", driverName)
		}
		return db, nil
	})
	t.Cleanup(restore)
	store, err := NewStore(context.Background(), "", domain.NewRulesEngine())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return store, conn
}

func TestNewStoreCreatesStateTable(t *testing.T) {
	_, conn := openStub(t)
	var sawDDL bool
	for _, stmt := range conn.Execs {
		if strings.Contains(strings.ToUpper(stmt), "CREATE TABLE IF NOT EXISTS STATE") {
			sawDDL = true
		}
	}
	if !sawDDL {
		t.Fatalf("expected state table DDL, got %v", conn.Execs)
	}
}

func TestRunInTransactionPersistsEveryBucket(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()
	if _, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		_, err := tx.CreateTank(domain.Tank{Name: "Community", AquariumType: "freshwater"})
		return err
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, bucket := range memory.Buckets {
		if _, ok := conn.Get(bucket); !ok {
			t.Fatalf("bucket %s not persisted", bucket)
		}
	}
	payload, _ := conn.Get(memory.BucketTanks)
	var tanks map[string]domain.Tank
	if err := json.Unmarshal(payload, &tanks); err != nil || len(tanks) != 1 {
		t.Fatalf("unexpected tanks payload %s: %v", payload, err)
	}
	if conn.Commits != 1 {
		t.Fatalf("expected one commit, got %d", conn.Commits)
	}
}

func TestNewStoreHydratesFromSnapshot(t *testing.T) {
	db, conn := testutil.NewStubDB()
	conn.Put(memory.BucketTanks, []byte(`{"t1":{"id":"t1","name":"Seeded","aquarium_type":"reef","volume_gallons":90}}`))
	conn.Put("legacy_bucket", []byte(`{"ignored":true}`))
	restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
	defer restore()

	store, err := NewStore(context.Background(), "postgres://example", nil)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	tank, ok := store.GetTank("t1")
	if !ok || tank.Name != "Seeded" || !tank.Classification().Reef {
		t.Fatalf("expected seeded tank, got %+v", tank)
	}
}

func TestNewStoreErrors(t *testing.T) {
	cases := map[string]func(*testutil.StubConn){
		"ping":   func(c *testutil.StubConn) { c.FailPing = true },
		"ddl":    func(c *testutil.StubConn) { c.FailExec = true },
		"query":  func(c *testutil.StubConn) { c.FailQuery = true },
		"decode": func(c *testutil.StubConn) { c.Put(memory.BucketTanks, []byte("{")) },
	}
	for name, mutate := range cases {
		db, conn := testutil.NewStubDB()
		mutate(conn)
		restore := OverrideSQLOpen(func(string, string) (*sql.DB, error) { return db, nil })
		if _, err := NewStore(context.Background(), "", nil); err == nil {
			t.Fatalf("%s: expected error", name)
		}
		restore()
	}
}

func TestPersistFailuresSurface(t *testing.T) {
	store, conn := openStub(t)
	ctx := context.Background()
	create := func(tx domain.Transaction) error {
		_, err := tx.CreateTank(domain.Tank{Name: "x"})
		return err
	}
	conn.FailCommit = true
	if _, err := store.RunInTransaction(ctx, create); err == nil {
		t.Fatalf("expected commit failure")
	}
	conn.FailCommit = false
	conn.FailBegin = true
	if _, err := store.RunInTransaction(ctx, create); err == nil {
		t.Fatalf("expected begin failure")
	}
	conn.FailBegin = false
	conn.FailExec = true
	if _, err := store.RunInTransaction(ctx, create); err == nil {
		t.Fatalf("expected exec failure")
	}
}
