// Package migrate applies the embedded goose migrations and records a
// content checksum for each applied file in schema_migrations.
package migrate

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"io/fs"
	"sort"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"docdex/db"
)

const migrationsDir = "migrations"

// Run applies all pending migrations using goose on a short-lived
// connection, then records the SHA-256 checksum of every migration file.
// goose owns the schema_migrations table (is_applied is the success bit);
// the checksum column is ours.
func Run(dsn string) error {
	database, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer database.Close()

	goose.SetBaseFS(db.Migrations)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.Up(database, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	if err := recordChecksums(database); err != nil {
		return fmt.Errorf("record migration checksums: %w", err)
	}
	return nil
}

// recordChecksums adds the checksum column when missing and fills it for
// every embedded migration file. Lexical file order matches goose's version
// order because filenames are zero-padded.
func recordChecksums(database *sql.DB) error {
	_, err := database.Exec(`ALTER TABLE schema_migrations ADD COLUMN IF NOT EXISTS checksum text`)
	if err != nil {
		return err
	}

	entries, err := fs.ReadDir(db.Migrations, migrationsDir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := fs.ReadFile(db.Migrations, migrationsDir+"/"+name)
		if err != nil {
			return err
		}
		version, err := goose.NumericComponent(name)
		if err != nil {
			continue
		}
		sum := sha256.Sum256(content)
		if _, err := database.Exec(
			`UPDATE schema_migrations SET checksum = $1 WHERE version_id = $2`,
			hex.EncodeToString(sum[:]), version,
		); err != nil {
			return err
		}
	}
	return nil
}
