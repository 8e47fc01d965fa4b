package decision

import (
	"context"
	"database/sql"
	"fmt"
	"os"
)

// CheckHealth inspects a decision database without requiring an open Store.
// Used by the CLI to diagnose a daemon that will not start.
func CheckHealth(ctx context.Context, dbPath string) DatabaseHealth {
	health := DatabaseHealth{DBPath: dbPath}

	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			health.Error = "database file does not exist"
		} else {
			health.Error = fmt.Sprintf("stat database: %v", err)
		}
		return health
	}
	health.DatabaseExists = true

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		health.Error = fmt.Sprintf("open database: %v", err)
		return health
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		health.Error = fmt.Sprintf("ping database: %v", err)
		return health
	}
	health.DatabaseReadable = true

	var tableCount int
	err = db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='decision_records'",
	).Scan(&tableCount)
	if err != nil {
		health.Error = fmt.Sprintf("check tables: %v", err)
		return health
	}
	if tableCount == 0 {
		health.Error = "decision_records table missing"
		return health
	}
	health.TableExists = true

	var integrity string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&integrity); err != nil {
		health.Error = fmt.Sprintf("integrity check: %v", err)
		return health
	}
	if integrity != "ok" {
		health.Error = fmt.Sprintf("integrity check failed: %s", integrity)
		return health
	}
	health.IntegrityCheck = true

	if err := db.QueryRowContext(ctx, "SELECT COUNT(1) FROM decision_records").Scan(&health.TotalRecords); err != nil {
		health.Error = fmt.Sprintf("count records: %v", err)
	}

	return health
}
