// Package store is the hand-written SQL layer over Postgres. Every method
// takes a context and returns explicit errors; unique-constraint violations
// are the concurrency-control primitive for concurrent writers.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sqlc-dev/pqtype"
)

// Store wraps the shared pooled *sql.DB.
type Store struct {
	DB *sql.DB
}

// New creates a Store over a shared *sql.DB with pooling configured by the
// caller.
func New(database *sql.DB) *Store {
	return &Store{DB: database}
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// IsNotFound reports whether err means no row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// newID prefers UUIDv7 so primary keys sort by creation time; uuid.New is
// the fallback when the clock source misbehaves.
func newID() uuid.UUID {
	if id, err := uuid.NewV7(); err == nil {
		return id
	}
	return uuid.New()
}

// jsonbParam renders v for a $n::jsonb placeholder. nil maps are stored as
// their empty-container defaults by the caller's SQL.
func jsonbParam(v any) (string, error) {
	if v == nil {
		return "", nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal jsonb: %w", err)
	}
	return string(payload), nil
}

// mapParam renders a map for jsonb, defaulting to {}.
func mapParam(m map[string]any) (string, error) {
	if m == nil {
		return "{}", nil
	}
	return jsonbParam(m)
}

// sliceParam renders a string slice for jsonb, defaulting to [].
func sliceParam(s []string) (string, error) {
	if s == nil {
		return "[]", nil
	}
	return jsonbParam(s)
}

// scanJSONMap decodes a nullable jsonb column into a map.
func scanJSONMap(raw pqtype.NullRawMessage) (map[string]any, error) {
	if !raw.Valid || len(raw.RawMessage) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw.RawMessage, &m); err != nil {
		return nil, fmt.Errorf("decode jsonb map: %w", err)
	}
	if len(m) == 0 {
		return nil, nil
	}
	return m, nil
}

// scanJSONStrings decodes a nullable jsonb column into a string slice.
func scanJSONStrings(raw pqtype.NullRawMessage) ([]string, error) {
	if !raw.Valid || len(raw.RawMessage) == 0 {
		return nil, nil
	}
	var s []string
	if err := json.Unmarshal(raw.RawMessage, &s); err != nil {
		return nil, fmt.Errorf("decode jsonb array: %w", err)
	}
	if len(s) == 0 {
		return nil, nil
	}
	return s, nil
}

// uuidArrayLiteral renders ids as a Postgres array literal for a
// $n::uuid[] placeholder.
func uuidArrayLiteral(ids []uuid.UUID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = id.String()
	}
	return "{" + strings.Join(parts, ",") + "}"
}

// textArrayLiteral renders enum-like values (no quoting needed) as a
// Postgres array literal for a $n::text[] placeholder.
func textArrayLiteral(values []string) string {
	return "{" + strings.Join(values, ",") + "}"
}
