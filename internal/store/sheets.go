// Package store persists submitted preference rows in SQLite, organised as
// named sheets that mirror the spreadsheet layout respondents' data ends up in.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"prefsurvey/internal/logging"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// Header is written as the first row of every new sheet.
var Header = []string{"Timestamp", "Email", "Question", "Preferred Response", "Model Used", "workflow_state"}

// NullState is the workflow_state of rows without a group tag.
const NullState = "null"

// ErrUnknownSheet is returned when reading a sheet that was never written.
var ErrUnknownSheet = errors.New("unknown sheet")

// Row is one stored preference.
type Row struct {
	Timestamp         time.Time
	Email             string
	Question          string
	PreferredResponse string
	ModelUsed         string
	WorkflowState     string
	BatchID           string
}

// Values renders the row in header order.
func (r Row) Values() []string {
	return []string{
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Email,
		r.Question,
		r.PreferredResponse,
		r.ModelUsed,
		r.WorkflowState,
	}
}

// WorkflowState derives the workflow_state column from a group tag.
func WorkflowState(group string) string {
	group = strings.TrimSpace(group)
	if group == "" {
		return NullState
	}
	return group + "_data"
}

// SheetStore appends rows to named sheets.
type SheetStore struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
	now    func() time.Time
}

// Open creates or opens the sheet database at path.
func Open(path string) (*SheetStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SheetStore{db: db, dbPath: path, now: time.Now}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	logging.Store("sheet store opened at %s", path)
	return s, nil
}

// Close closes the database connection.
func (s *SheetStore) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SheetStore) Path() string {
	return s.dbPath
}

func (s *SheetStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sheets (
		name TEXT PRIMARY KEY,
		header_json TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sheet_rows (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sheet TEXT NOT NULL REFERENCES sheets(name),
		batch_id TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		email TEXT NOT NULL,
		question TEXT NOT NULL,
		preferred_response TEXT NOT NULL,
		model_used TEXT NOT NULL,
		workflow_state TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_sheet_rows_sheet ON sheet_rows(sheet, id);
	CREATE INDEX IF NOT EXISTS idx_sheet_rows_batch ON sheet_rows(batch_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// WRITES
// =============================================================================

// Append writes rows to sheet in one transaction. The sheet (and its header)
// is created on first use. Every row of the batch shares one timestamp and
// batch id, which Append returns.
func (s *SheetStore) Append(ctx context.Context, sheet string, rows []Row) (string, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Append")
	defer timer.Stop()

	if strings.TrimSpace(sheet) == "" {
		return "", errors.New("sheet name is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	now := s.now().UTC()
	headerJSON, _ := json.Marshal(Header)
	res, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sheets (name, header_json, created_at) VALUES (?, ?, ?)`,
		sheet, string(headerJSON), now)
	if err != nil {
		return "", fmt.Errorf("failed to create sheet: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logging.Store("created sheet %q", sheet)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sheet_rows (sheet, batch_id, timestamp, email, question,
			preferred_response, model_used, workflow_state)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", err
	}
	defer stmt.Close()

	batchID := uuid.NewString()
	for i, r := range rows {
		state := r.WorkflowState
		if state == "" {
			state = NullState
		}
		if _, err := stmt.ExecContext(ctx, sheet, batchID, now, r.Email, r.Question,
			r.PreferredResponse, r.ModelUsed, state); err != nil {
			return "", fmt.Errorf("failed to append row %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	logging.StoreDebug("appended %d rows to %q (batch %s)", len(rows), sheet, batchID)
	return batchID, nil
}

// =============================================================================
// READS
// =============================================================================

// Sheets lists sheet names in creation order.
func (s *SheetStore) Sheets(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM sheets ORDER BY created_at, name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Header returns the header row of sheet.
func (s *SheetStore) Header(ctx context.Context, sheet string) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT header_json FROM sheets WHERE name = ?`, sheet).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSheet, sheet)
	}
	if err != nil {
		return nil, err
	}
	var header []string
	if err := json.Unmarshal([]byte(raw), &header); err != nil {
		return nil, fmt.Errorf("corrupt header for %q: %w", sheet, err)
	}
	return header, nil
}

// Rows returns every data row of sheet in append order.
func (s *SheetStore) Rows(ctx context.Context, sheet string) ([]Row, error) {
	if _, err := s.Header(ctx, sheet); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT timestamp, email, question, preferred_response, model_used, workflow_state, batch_id
		FROM sheet_rows WHERE sheet = ? ORDER BY id`, sheet)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.Timestamp, &r.Email, &r.Question, &r.PreferredResponse,
			&r.ModelUsed, &r.WorkflowState, &r.BatchID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Values returns sheet as a grid: the header followed by every row.
func (s *SheetStore) Values(ctx context.Context, sheet string) ([][]string, error) {
	header, err := s.Header(ctx, sheet)
	if err != nil {
		return nil, err
	}
	rows, err := s.Rows(ctx, sheet)
	if err != nil {
		return nil, err
	}
	grid := make([][]string, 0, len(rows)+1)
	grid = append(grid, header)
	for _, r := range rows {
		grid = append(grid, r.Values())
	}
	return grid, nil
}
