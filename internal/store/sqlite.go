package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/XSAM/otelsql"
	"github.com/pressly/goose/v3"
	"go.opentelemetry.io/otel/attribute"
	_ "modernc.org/sqlite"

	"github.com/ryanm101/librelauncher/internal/game"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore keeps the registry in a SQLite database.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLite opens or creates the database at path and migrates it to the
// current schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil { //nolint:gosec // Standard dir permissions
			return nil, fmt.Errorf("failed to create database dir: %w", err)
		}
	}

	conn, err := otelsql.Open("sqlite", path,
		otelsql.WithAttributes(attribute.String("db.system", "sqlite")))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps :memory: databases and PRAGMAs consistent.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	if err := runMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLiteStore{conn: conn, path: path}, nil
}

func runMigrations(conn *sql.DB) error {
	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("sqlite"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}
	if err := goose.Up(conn, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// Load reads all records in registry order.
func (s *SQLiteStore) Load(ctx context.Context) ([]game.Record, error) {
	rows, err := s.conn.QueryContext(ctx, `
		SELECT exe_path, name, icon_path, banner_path, description, play_time,
		       last_played, is_favorite, review_summary, review_percentage,
		       system_requirements
		FROM games ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []game.Record
	index := make(map[string]int)
	for rows.Next() {
		var (
			rec        game.Record
			icon       sql.NullString
			banner     sql.NullString
			playTime   float64
			lastPlayed sql.NullFloat64
			summary    sql.NullString
			percentage sql.NullInt64
			reqs       sql.NullString
		)
		if err := rows.Scan(&rec.ExePath, &rec.Name, &icon, &banner, &rec.Description, &playTime,
			&lastPlayed, &rec.Favorite, &summary, &percentage, &reqs); err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		rec.IconPath = icon.String
		rec.BannerPath = banner.String
		rec.PlayTime = game.SecondsDuration(playTime)
		if lastPlayed.Valid {
			t := game.SecondsTime(lastPlayed.Float64)
			rec.LastPlayed = &t
		}
		if summary.Valid {
			rec.ReviewSummary = &summary.String
		}
		if percentage.Valid {
			p := int(percentage.Int64)
			rec.ReviewPercentage = &p
		}
		if reqs.Valid {
			rec.SystemRequirements = &reqs.String
		}
		index[rec.ExePath] = len(records)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	statusRows, err := s.conn.QueryContext(ctx, `SELECT exe_path, attribute, status FROM fetch_status`)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetch status: %w", err)
	}
	defer func() { _ = statusRows.Close() }()
	for statusRows.Next() {
		var key, attr, status string
		if err := statusRows.Scan(&key, &attr, &status); err != nil {
			return nil, fmt.Errorf("failed to scan fetch status: %w", err)
		}
		if i, ok := index[key]; ok {
			records[i].SetStatus(game.Attribute(attr), game.FieldStatus(status))
		}
	}
	return records, statusRows.Err()
}

// Save replaces all rows with records inside one transaction.
func (s *SQLiteStore) Save(ctx context.Context, records []game.Record) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "DELETE FROM fetch_status"); err != nil {
		return fmt.Errorf("failed to clear fetch status: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM games"); err != nil {
		return fmt.Errorf("failed to clear games: %w", err)
	}

	gameStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO games (position, exe_path, name, icon_path, banner_path, description,
		                   play_time, last_played, is_favorite, review_summary,
		                   review_percentage, system_requirements)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = gameStmt.Close() }()

	statusStmt, err := tx.PrepareContext(ctx,
		"INSERT INTO fetch_status (exe_path, attribute, status) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer func() { _ = statusStmt.Close() }()

	for i, rec := range records {
		var lastPlayed *float64
		if rec.LastPlayed != nil {
			v := game.UnixSeconds(*rec.LastPlayed)
			lastPlayed = &v
		}
		if _, err := gameStmt.ExecContext(ctx, i, rec.ExePath, rec.Name,
			nullString(rec.IconPath), nullString(rec.BannerPath), rec.Description,
			game.DurationSeconds(rec.PlayTime), lastPlayed, rec.Favorite,
			rec.ReviewSummary, rec.ReviewPercentage, rec.SystemRequirements); err != nil {
			return fmt.Errorf("failed to insert %s: %w", rec.ExePath, err)
		}
		for attr, status := range rec.Status {
			if status == game.StatusUnset {
				continue
			}
			if _, err := statusStmt.ExecContext(ctx, rec.ExePath, string(attr), string(status)); err != nil {
				return fmt.Errorf("failed to insert fetch status: %w", err)
			}
		}
	}

	return tx.Commit()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
