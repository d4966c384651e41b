package db

import (
	"testing"
)

func TestMigrateSQLiteCreatesLedgerTables(t *testing.T) {
	conn, errOpen := Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}

	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	for _, table := range []string{
		"users", "merchants", "coupon_types", "pools", "coupons", "donations",
		"transfers", "money_flows", "needs", "merchant_daily_earnings", "auto_donation_rules", "rule_runs",
	} {
		if !conn.Migrator().HasTable(table) {
			t.Fatalf("missing table %s", table)
		}
	}
}

func TestMigrateSQLiteEarningsUniquePerMerchantDay(t *testing.T) {
	conn, errOpen := Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}

	if !conn.Migrator().HasIndex("merchant_daily_earnings", "idx_merchant_daily_earnings_day") {
		t.Fatalf("merchant_daily_earnings missing unique day index")
	}

	insert := `INSERT INTO merchant_daily_earnings (merchant_id, day, daily_earnings, daily_limit, total_earnings, total_donated_back, created_at, updated_at)
		VALUES (1, '2026-10-17', 0, 2000, 0, 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`
	if errExec := conn.Exec(insert).Error; errExec != nil {
		t.Fatalf("first insert: %v", errExec)
	}
	if errExec := conn.Exec(insert).Error; errExec == nil {
		t.Fatalf("expected duplicate merchant/day insert to fail")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	conn, errOpen := Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	for i := 0; i < 2; i++ {
		if errMigrate := Migrate(conn); errMigrate != nil {
			t.Fatalf("migrate pass %d: %v", i+1, errMigrate)
		}
	}
}

func TestDetectDialectFromDSN(t *testing.T) {
	cases := map[string]string{
		"postgres://u:p@localhost:5432/payda":    DialectPostgres,
		"host=localhost user=payda dbname=payda": DialectPostgres,
		"file:data/payda.db":                     DialectSQLite,
		"sqlite://data/payda.db":                 DialectSQLite,
		":memory:":                               DialectSQLite,
	}
	for dsn, want := range cases {
		got, err := detectDialectFromDSN(dsn)
		if err != nil {
			t.Fatalf("detect %q: %v", dsn, err)
		}
		if got != want {
			t.Fatalf("detect %q: expected %s, got %s", dsn, want, got)
		}
	}
	if _, err := detectDialectFromDSN("mysql://localhost/payda"); err == nil {
		t.Fatalf("expected mysql dsn to be rejected")
	}
}

func TestIsSQLiteMemory(t *testing.T) {
	if !isSQLiteMemory(ensureSQLiteParams(":memory:")) {
		t.Fatalf("expected :memory: with params to be in-memory")
	}
	if !isSQLiteMemory("file:ledger?mode=memory&cache=shared") {
		t.Fatalf("expected mode=memory to be in-memory")
	}
	if isSQLiteMemory("file:data/payda.db") {
		t.Fatalf("expected file dsn to be on disk")
	}
}

func TestEnsureSQLiteParamsKeepsExplicitValues(t *testing.T) {
	got := ensureSQLiteParams("file:data/payda.db?_journal_mode=DELETE")
	want := "file:data/payda.db?_journal_mode=DELETE&_busy_timeout=5000&_foreign_keys=on&_synchronous=NORMAL"
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestSQLitePathFromDSN(t *testing.T) {
	cases := map[string]string{
		"data/payda.db":                 "data/payda.db",
		"data/payda.db?_busy_timeout=1": "data/payda.db",
		"file:/var/lib/payda.db?x=1":    "/var/lib/payda.db",
		"file::memory:":                 "",
		":memory:?_busy_timeout=5000":   "",
	}
	for dsn, want := range cases {
		if got := sqlitePathFromDSN(dsn); got != want {
			t.Fatalf("sqlitePathFromDSN(%q) = %q, want %q", dsn, got, want)
		}
	}
}

func TestContainsFoldEscapesWildcards(t *testing.T) {
	conn, errOpen := Open(":memory:")
	if errOpen != nil {
		t.Fatalf("open sqlite: %v", errOpen)
	}
	if errMigrate := Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	for _, name := range []string{"Ayşe 100%", "Ayşe 1000", "MEHMET"} {
		if errExec := conn.Exec("INSERT INTO users (name, role, balance, created_at, updated_at) VALUES (?, 'donor', 0, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)", name).Error; errExec != nil {
			t.Fatalf("insert %s: %v", name, errExec)
		}
	}

	count := func(term string) int64 {
		expr, pattern := ContainsFold(conn, "name", term)
		var n int64
		if errCount := conn.Table("users").Where(expr, pattern).Count(&n).Error; errCount != nil {
			t.Fatalf("count %q: %v", term, errCount)
		}
		return n
	}
	if got := count("0%"); got != 1 {
		t.Fatalf("expected literal %% match once, got %d", got)
	}
	if got := count("mehmet"); got != 1 {
		t.Fatalf("expected case-insensitive match, got %d", got)
	}
}
