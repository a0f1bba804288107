package receipt

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)
)

// Ensure the stores implement DB
var (
	_ DB = (*SQLiteDB)(nil)
	_ DB = (*BoltDB)(nil)
	_ DB = (*MemoryDB)(nil)
)

// schema runs on startup so the tables always exist
const schema = `
CREATE TABLE IF NOT EXISTS receipts (
    id TEXT PRIMARY KEY,
    retailer TEXT NOT NULL,
    purchase_date TEXT,
    purchase_time TEXT,
    total TEXT,
    filename TEXT NOT NULL DEFAULT '',
    content_type TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS items (
    receipt_id TEXT NOT NULL,
    position INTEGER NOT NULL,
    short_description TEXT,
    price TEXT,
    PRIMARY KEY (receipt_id, position),
    FOREIGN KEY (receipt_id) REFERENCES receipts(id) ON DELETE CASCADE
);
`

// SQLiteDB implements the DB interface using SQLite
type SQLiteDB struct {
	db  *sql.DB
	ids IDGenerator
}

// NewSQLiteDB opens (or creates) the database at path and creates the schema
func NewSQLiteDB(path string) (*SQLiteDB, error) {
	return NewSQLiteDBWithIDs(path, uuidGenerator{})
}

// NewSQLiteDBWithIDs creates a SQLiteDB that draws IDs from ids
func NewSQLiteDBWithIDs(path string, ids IDGenerator) (*SQLiteDB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}
	// SQLite allows a single writer; one connection avoids SQLITE_BUSY under concurrent inserts
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLiteDB{db: db, ids: ids}, nil
}

// InsertReceipt saves the receipt and its items in one transaction
func (s *SQLiteDB) InsertReceipt(receipt *Receipt) (string, error) {
	id := s.ids.Generate()

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var date, clock sql.NullString
	if receipt.PurchaseDate != nil {
		date = sql.NullString{String: receipt.PurchaseDate.String(), Valid: true}
	}
	if receipt.PurchaseTime != nil {
		clock = sql.NullString{String: receipt.PurchaseTime.String(), Valid: true}
	}

	_, err = tx.Exec(
		`INSERT INTO receipts (id, retailer, purchase_date, purchase_time, total, filename, content_type, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, receipt.Retailer, date, clock, amountText(receipt.Total),
		receipt.Filename, receipt.ContentType, receipt.CreatedAt.UnixNano(),
	)
	if err != nil {
		return "", fmt.Errorf("inserting receipt: %w", err)
	}

	for i, item := range receipt.Items {
		_, err = tx.Exec(
			"INSERT INTO items (receipt_id, position, short_description, price) VALUES (?, ?, ?, ?)",
			id, i, descriptionText(item.ShortDescription), amountText(item.Price),
		)
		if err != nil {
			return "", fmt.Errorf("inserting item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing receipt: %w", err)
	}
	return id, nil
}

// GetReceipt loads a receipt and its items in their original order
func (s *SQLiteDB) GetReceipt(id string) (*Receipt, error) {
	var (
		receipt            = &Receipt{ID: id}
		date, clock, total sql.NullString
		createdAt          int64
	)
	err := s.db.QueryRow(
		`SELECT retailer, purchase_date, purchase_time, total, filename, content_type, created_at
		 FROM receipts WHERE id = ?`, id,
	).Scan(&receipt.Retailer, &date, &clock, &total, &receipt.Filename, &receipt.ContentType, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying receipt: %w", err)
	}
	receipt.CreatedAt = time.Unix(0, createdAt).UTC()

	if date.Valid {
		receipt.PurchaseDate = new(Date)
		if err := receipt.PurchaseDate.UnmarshalText([]byte(date.String)); err != nil {
			return nil, err
		}
	}
	if clock.Valid {
		receipt.PurchaseTime = new(Clock)
		if err := receipt.PurchaseTime.UnmarshalText([]byte(clock.String)); err != nil {
			return nil, err
		}
	}
	if receipt.Total, err = scanAmount(total); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(
		"SELECT short_description, price FROM items WHERE receipt_id = ? ORDER BY position", id,
	)
	if err != nil {
		return nil, fmt.Errorf("querying items: %w", err)
	}
	defer rows.Close()

	receipt.Items = []Item{}
	for rows.Next() {
		var (
			item               Item
			description, price sql.NullString
		)
		if err := rows.Scan(&description, &price); err != nil {
			return nil, fmt.Errorf("scanning item: %w", err)
		}
		if description.Valid {
			item.ShortDescription = &description.String
		}
		if item.Price, err = scanAmount(price); err != nil {
			return nil, err
		}
		receipt.Items = append(receipt.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating items: %w", err)
	}

	return receipt, nil
}

// Close closes the database connection
func (s *SQLiteDB) Close() error {
	return s.db.Close()
}

// descriptionText stores a missing description as NULL, apart from an empty one
func descriptionText(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// amountText stores a missing amount as NULL
func amountText(a *Amount) sql.NullString {
	if a == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: a.String(), Valid: true}
}

func scanAmount(v sql.NullString) (*Amount, error) {
	if !v.Valid {
		return nil, nil
	}
	a, err := ParseAmount(v.String)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
