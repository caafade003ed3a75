package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_core_tables.sql
var createCoreTablesSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createCoreTablesSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS seat_assignments;
				DROP TABLE IF EXISTS answers;
				DROP TABLE IF EXISTS buzzer_events;
				DROP TABLE IF EXISTS live_sessions;
				DROP TABLE IF EXISTS round_questions`)
			return err
		},
	)
}
