package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists records so paid reports survive a restart. The
// analysis payload is stored as a JSON blob; the columns the handlers
// query by get their own fields.
type SQLiteStore struct {
	db *sqlx.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS analyses (
	id             TEXT PRIMARY KEY,
	result         TEXT NOT NULL,
	filename       TEXT NOT NULL DEFAULT '',
	created_at     TEXT NOT NULL,
	paid           INTEGER NOT NULL DEFAULT 0,
	customer_email TEXT NOT NULL DEFAULT '',
	customer_name  TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS payments (
	order_id    TEXT PRIMARY KEY,
	analysis_id TEXT NOT NULL,
	amount      TEXT NOT NULL DEFAULT '',
	currency    TEXT NOT NULL DEFAULT 'EUR',
	status      TEXT NOT NULL DEFAULT 'CREATED',
	created_at  TEXT NOT NULL,
	captured_at TEXT NOT NULL DEFAULT ''
);
`

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) PutAnalysis(rec AnalysisRecord) error {
	blob, err := json.Marshal(rec.Result)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}
	_, err = s.db.Exec(`INSERT OR REPLACE INTO analyses
		(id, result, filename, created_at, paid, customer_email, customer_name)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, string(blob), rec.Filename, rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		boolInt(rec.Paid), rec.CustomerEmail, rec.CustomerName)
	return err
}

func (s *SQLiteStore) GetAnalysis(id string) (AnalysisRecord, error) {
	var row struct {
		ID            string `db:"id"`
		Result        string `db:"result"`
		Filename      string `db:"filename"`
		CreatedAt     string `db:"created_at"`
		Paid          int    `db:"paid"`
		CustomerEmail string `db:"customer_email"`
		CustomerName  string `db:"customer_name"`
	}
	err := s.db.Get(&row, "SELECT * FROM analyses WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return AnalysisRecord{}, ErrNotFound
	}
	if err != nil {
		return AnalysisRecord{}, err
	}
	rec := AnalysisRecord{
		ID:            row.ID,
		Filename:      row.Filename,
		Paid:          row.Paid != 0,
		CustomerEmail: row.CustomerEmail,
		CustomerName:  row.CustomerName,
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, row.CreatedAt)
	if err := json.Unmarshal([]byte(row.Result), &rec.Result); err != nil {
		return AnalysisRecord{}, fmt.Errorf("decode analysis: %w", err)
	}
	return rec, nil
}

func (s *SQLiteStore) MarkPaid(id, email, name string) error {
	res, err := s.db.Exec("UPDATE analyses SET paid = 1, customer_email = ?, customer_name = ? WHERE id = ?",
		email, name, id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLiteStore) DeleteAnalysis(id string) error {
	res, err := s.db.Exec("DELETE FROM analyses WHERE id = ?", id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (s *SQLiteStore) PutPayment(rec PaymentRecord) error {
	captured := ""
	if !rec.CapturedAt.IsZero() {
		captured = rec.CapturedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := s.db.Exec(`INSERT OR REPLACE INTO payments
		(order_id, analysis_id, amount, currency, status, created_at, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.OrderID, rec.AnalysisID, rec.Amount, rec.Currency, rec.Status,
		rec.CreatedAt.UTC().Format(time.RFC3339Nano), captured)
	return err
}

func (s *SQLiteStore) GetPayment(orderID string) (PaymentRecord, error) {
	var row struct {
		OrderID    string `db:"order_id"`
		AnalysisID string `db:"analysis_id"`
		Amount     string `db:"amount"`
		Currency   string `db:"currency"`
		Status     string `db:"status"`
		CreatedAt  string `db:"created_at"`
		CapturedAt string `db:"captured_at"`
	}
	err := s.db.Get(&row, "SELECT * FROM payments WHERE order_id = ?", orderID)
	if errors.Is(err, sql.ErrNoRows) {
		return PaymentRecord{}, ErrNotFound
	}
	if err != nil {
		return PaymentRecord{}, err
	}
	rec := PaymentRecord{
		OrderID:    row.OrderID,
		AnalysisID: row.AnalysisID,
		Amount:     row.Amount,
		Currency:   row.Currency,
		Status:     row.Status,
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, row.CreatedAt)
	if row.CapturedAt != "" {
		rec.CapturedAt, _ = time.Parse(time.RFC3339Nano, row.CapturedAt)
	}
	return rec, nil
}

func (s *SQLiteStore) SetPaymentStatus(orderID, status string, capturedAt time.Time) error {
	captured := ""
	if !capturedAt.IsZero() {
		captured = capturedAt.UTC().Format(time.RFC3339Nano)
	}
	var res sql.Result
	var err error
	if captured != "" {
		res, err = s.db.Exec("UPDATE payments SET status = ?, captured_at = ? WHERE order_id = ?",
			status, captured, orderID)
	} else {
		res, err = s.db.Exec("UPDATE payments SET status = ? WHERE order_id = ?", status, orderID)
	}
	if err != nil {
		return err
	}
	return requireRow(res)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
