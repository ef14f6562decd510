// Package writer persists mining results to DuckDB for ad-hoc SQL analysis
// and Parquet export.
package writer

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"sort"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/pippi2802/hlem-framework/pkg/hlem"
)

// DuckDBWriter stores high-level events and path statistics in a DuckDB
// database. An empty path opens an in-memory database (useful with
// ExportParquet).
type DuckDBWriter struct {
	db *sql.DB
}

// NewDuckDBWriter opens the database and creates the result tables.
func NewDuckDBWriter(path string) (*DuckDBWriter, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("writer: open duckdb: %w", err)
	}

	ddl := []string{
		`CREATE TABLE IF NOT EXISTS hle_events (
			frame INTEGER NOT NULL,
			feature VARCHAR NOT NULL,
			entity VARCHAR NOT NULL,
			class VARCHAR NOT NULL,
			grp VARCHAR,
			value DOUBLE NOT NULL,
			case_count INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS hla_paths (
			path VARCHAR NOT NULL,
			length INTEGER NOT NULL,
			frequency INTEGER NOT NULL,
			participating INTEGER NOT NULL,
			non_participating INTEGER NOT NULL
		)`,
	}
	for _, stmt := range ddl {
		if _, err := db.Exec(stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("writer: create table: %w", err)
		}
	}

	return &DuckDBWriter{db: db}, nil
}

// WriteEvents inserts the HLE population in canonical order.
func (w *DuckDBWriter) WriteEvents(hles map[hlem.EventID]hlem.HighLevelEvent) error {
	ids := make([]hlem.EventID, 0, len(hles))
	for id := range hles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("writer: begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO hle_events VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("writer: prepare: %w", err)
	}
	defer stmt.Close()

	for _, id := range ids {
		hle := hles[id]
		_, err := stmt.Exec(id.Frame, id.Feature.String(), id.Entity.String(),
			id.Class.String(), id.Group, hle.Value, int(hle.Cases.GetCardinality()))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("writer: insert hle: %w", err)
		}
	}
	return tx.Commit()
}

// WritePaths inserts the aggregated path statistics.
func (w *DuckDBWriter) WritePaths(table hlem.Table) error {
	tx, err := w.db.Begin()
	if err != nil {
		return fmt.Errorf("writer: begin: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO hla_paths VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("writer: prepare: %w", err)
	}
	defer stmt.Close()

	for _, r := range table.Rows {
		_, err := stmt.Exec(string(r.Path.Key()), r.Path.Len(), r.Frequency,
			int(r.Participating.GetCardinality()), int(r.NonParticipating.GetCardinality()))
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("writer: insert path: %w", err)
		}
	}
	return tx.Commit()
}

// ExportParquet copies both result tables into Parquet files under dir.
func (w *DuckDBWriter) ExportParquet(dir string) error {
	for _, table := range []string{"hle_events", "hla_paths"} {
		target := filepath.Join(dir, table+".parquet")
		query := fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET, COMPRESSION SNAPPY)`, table, target)
		if _, err := w.db.Exec(query); err != nil {
			return fmt.Errorf("writer: export %s: %w", table, err)
		}
	}
	return nil
}

// Close closes the database.
func (w *DuckDBWriter) Close() error {
	return w.db.Close()
}
