// Package store defines the persistent-store collaborator boundary
// (put_price/put_decision/put_order, each a plain record with an ISO
// timestamp and numeric fields) plus an optional SQLite-backed
// implementation, grounded in the teacher pack's modernc.org/sqlite
// migration style. Nothing in internal/simulate or internal/gridsearch
// requires a Store, and neither command in cmd/ opens one; it exists for
// callers that want a durable record of a run alongside the JSON
// summary resultio already writes.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// PriceRecord is one put_price row: a bar observed during a run.
type PriceRecord struct {
	Timestamp time.Time
	Price     float64
}

// DecisionRecord is one put_decision row.
type DecisionRecord struct {
	AgentID    string
	Timestamp  time.Time
	Action     string
	Confidence float64
	Price      float64
	Reason     string
}

// OrderRecord is one put_order row.
type OrderRecord struct {
	ID        string
	AgentID   string
	Action    string
	Amount    float64
	Price     float64
	Timestamp time.Time
	Status    string
}

// Store is the persistent-store collaborator: plain put_* operations,
// no transactional guarantees assumed by callers.
type Store interface {
	PutPrice(PriceRecord) error
	PutDecision(DecisionRecord) error
	PutOrder(OrderRecord) error
	Close() error
}

// SQLite is a Store backed by a single SQLite file, migrated on Open.
type SQLite struct {
	db *sql.DB
}

// Open creates (if needed) and migrates the SQLite database at path.
func Open(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}
	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate %s: %w", path, err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS prices (
			timestamp TEXT NOT NULL,
			price     REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_prices_ts ON prices(timestamp);

		CREATE TABLE IF NOT EXISTS decisions (
			agent_id   TEXT NOT NULL,
			timestamp  TEXT NOT NULL,
			action     TEXT NOT NULL,
			confidence REAL NOT NULL,
			price      REAL NOT NULL,
			reason     TEXT NOT NULL DEFAULT ''
		);
		CREATE INDEX IF NOT EXISTS idx_decisions_agent ON decisions(agent_id, timestamp);

		CREATE TABLE IF NOT EXISTS orders (
			id        TEXT PRIMARY KEY,
			agent_id  TEXT NOT NULL,
			action    TEXT NOT NULL,
			amount    REAL NOT NULL,
			price     REAL NOT NULL,
			timestamp TEXT NOT NULL,
			status    TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_orders_agent ON orders(agent_id, timestamp);
	`)
	return err
}

func (s *SQLite) PutPrice(r PriceRecord) error {
	_, err := s.db.Exec(`INSERT INTO prices (timestamp, price) VALUES (?, ?)`,
		r.Timestamp.UTC().Format(time.RFC3339), r.Price)
	return err
}

func (s *SQLite) PutDecision(r DecisionRecord) error {
	_, err := s.db.Exec(`INSERT INTO decisions (agent_id, timestamp, action, confidence, price, reason) VALUES (?, ?, ?, ?, ?, ?)`,
		r.AgentID, r.Timestamp.UTC().Format(time.RFC3339), r.Action, r.Confidence, r.Price, r.Reason)
	return err
}

func (s *SQLite) PutOrder(r OrderRecord) error {
	_, err := s.db.Exec(`INSERT INTO orders (id, agent_id, action, amount, price, timestamp, status) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.AgentID, r.Action, r.Amount, r.Price, r.Timestamp.UTC().Format(time.RFC3339), r.Status)
	return err
}

func (s *SQLite) Close() error { return s.db.Close() }
