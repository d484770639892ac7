// Package backup dumps the full database to a zip of per-table JSON files
// and restores from such an archive. Restores run inside one transaction
// with audit capture suppressed, so a bulk reload does not flood the audit
// trail with per-row entries.
package backup

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/itfintrack/fintrack/internal/audit"
	"gitlab.com/itfintrack/fintrack/internal/database"
	"gitlab.com/itfintrack/fintrack/internal/logger"
)

// tables in foreign-key order: parents before children. Restore inserts in
// this order and clears in reverse.
var tables = []string{
	"users",
	"categories",
	"vendors",
	"income_sources",
	"incomes",
	"expenses",
	"expense_bills",
	"recurring_bills",
	"bill_payments",
	"audit_logs",
}

// manifest describes the archive contents.
type manifest struct {
	CreatedAt time.Time `json:"created_at"`
	Tables    []string  `json:"tables"`
}

// DB is the handle the backup service needs: direct queries for the dump
// plus the ability to open the restore transaction.
type DB interface {
	database.PGXDB
	database.TxBeginner
}

// Service produces and consumes backup archives.
type Service struct {
	db       DB
	recorder *audit.Recorder
	log      zerolog.Logger
}

// NewService creates a backup Service.
func NewService(db DB, recorder *audit.Recorder) *Service {
	return &Service{db: db, recorder: recorder, log: logger.Component("backup")}
}

// Dump writes every table as JSON rows into a zip archive and returns the
// archive bytes.
func (s *Service) Dump(ctx context.Context) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, table := range tables {
		rows, err := s.dumpTable(ctx, table)
		if err != nil {
			return nil, fmt.Errorf("dump %s: %w", table, err)
		}
		w, err := zw.Create(table + ".json")
		if err != nil {
			return nil, err
		}
		enc := json.NewEncoder(w)
		if err := enc.Encode(rows); err != nil {
			return nil, fmt.Errorf("encode %s: %w", table, err)
		}
	}

	mw, err := zw.Create("manifest.json")
	if err != nil {
		return nil, err
	}
	m := manifest{CreatedAt: time.Now().UTC(), Tables: tables}
	if err := json.NewEncoder(mw).Encode(m); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, err
	}
	s.log.Info().Int("bytes", buf.Len()).Msg("backup archive created")
	return buf.Bytes(), nil
}

func (s *Service) dumpTable(ctx context.Context, table string) ([]map[string]any, error) {
	rows, err := s.db.Query(ctx, "SELECT * FROM "+table+" ORDER BY 1")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []map[string]any{}
	fields := rows.FieldDescriptions()
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		record := make(map[string]any, len(fields))
		for i, fd := range fields {
			record[fd.Name] = values[i]
		}
		out = append(out, record)
	}
	return out, rows.Err()
}

// Restore replaces the database contents with the archive's. The whole load
// runs in one transaction; on any failure the database is left untouched.
// Audit capture is suppressed for the duration and always released, even on
// a partial restore.
func (s *Service) Restore(ctx context.Context, archive []byte) error {
	zr, err := zip.NewReader(bytes.NewReader(archive), int64(len(archive)))
	if err != nil {
		return fmt.Errorf("open archive: %w", err)
	}

	release := s.recorder.Suppress()
	defer release()

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Children first so foreign keys never dangle mid-restore.
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := tx.Exec(ctx, "DELETE FROM "+tables[i]); err != nil {
			return fmt.Errorf("clear %s: %w", tables[i], err)
		}
	}

	for _, table := range tables {
		f := findFile(zr, table+".json")
		if f == nil {
			s.log.Warn().Str("table", table).Msg("table missing from archive, left empty")
			continue
		}
		records, err := readRecords(f)
		if err != nil {
			return fmt.Errorf("read %s: %w", table, err)
		}
		if err := insertRecords(ctx, tx, table, records); err != nil {
			return fmt.Errorf("load %s: %w", table, err)
		}
		if err := resetSequence(ctx, tx, table); err != nil {
			return fmt.Errorf("reset sequence for %s: %w", table, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info().Msg("restore complete")
	return nil
}

func findFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

func readRecords(f *zip.File) ([]map[string]any, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, err
	}
	var records []map[string]any
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func insertRecords(ctx context.Context, db database.PGXDB, table string, records []map[string]any) error {
	for _, record := range records {
		columns := make([]string, 0, len(record))
		for col := range record {
			columns = append(columns, col)
		}
		sort.Strings(columns)

		args := make([]any, len(columns))
		cols := ""
		placeholders := ""
		for i, col := range columns {
			if i > 0 {
				cols += ", "
				placeholders += ", "
			}
			cols += col
			placeholders += fmt.Sprintf("$%d", i+1)
			args[i] = record[col]
		}

		query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, cols, placeholders)
		if _, err := db.Exec(ctx, query, args...); err != nil {
			return err
		}
	}
	return nil
}

// resetSequence moves the table's id sequence past the restored rows so new
// inserts do not collide.
func resetSequence(ctx context.Context, db database.PGXDB, table string) error {
	query := fmt.Sprintf(
		`SELECT setval(pg_get_serial_sequence('%s', 'id'), COALESCE(MAX(id), 0) + 1, false) FROM %s`,
		table, table)
	_, err := db.Exec(ctx, query)
	return err
}
