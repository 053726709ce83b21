package decision

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// timestampLayout is the column format for decision timestamps.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(timestampLayout, s)
}

// Mirror is an ephemeral SQLite view over the JSONL log, used for ad-hoc
// queries. The JSONL file stays the source of truth; the mirror is
// rebuilt from it and never written back.
type Mirror struct {
	db *sql.DB
}

// OpenMirror opens (or creates) the query mirror at path.
func OpenMirror(path string) (*Mirror, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening mirror database: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Mirror{db: db}, nil
}

// Close closes the database connection.
func (m *Mirror) Close() error {
	return m.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS decisions (
			seq INTEGER PRIMARY KEY,
			ts TEXT NOT NULL,
			stage TEXT NOT NULL,
			doc_id TEXT NOT NULL,
			item_id TEXT NOT NULL,
			outcome TEXT NOT NULL,
			confidence REAL,
			rationale TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_decisions_stage ON decisions(stage);
		CREATE INDEX IF NOT EXISTS idx_decisions_outcome ON decisions(outcome);
		CREATE INDEX IF NOT EXISTS idx_decisions_doc ON decisions(doc_id);
	`
	_, err := db.Exec(schema)
	return err
}

// Rebuild replaces the mirror's contents with the given records.
func (m *Mirror) Rebuild(recs []Record) error {
	tx, err := m.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning rebuild: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM decisions`); err != nil {
		return fmt.Errorf("clearing mirror: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO decisions
		(seq, ts, stage, doc_id, item_id, outcome, confidence, rationale)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		_, err := stmt.Exec(rec.Seq, rec.Timestamp.Format(timestampLayout),
			rec.Stage, rec.DocumentID, rec.ItemID, rec.Outcome, rec.Confidence, rec.Rationale)
		if err != nil {
			return fmt.Errorf("inserting decision %d: %w", rec.Seq, err)
		}
	}

	return tx.Commit()
}

// Filter selects decision records. Empty filter fields match everything.
type Filter struct {
	Stage      string
	Outcome    string
	DocumentID string
	Limit      int
}

// Query returns matching records in sequence order.
func (m *Mirror) Query(f Filter) ([]Record, error) {
	query := `SELECT seq, ts, stage, doc_id, item_id, outcome, confidence, rationale
		FROM decisions WHERE 1=1`
	var args []interface{}
	if f.Stage != "" {
		query += ` AND stage = ?`
		args = append(args, f.Stage)
	}
	if f.Outcome != "" {
		query += ` AND outcome = ?`
		args = append(args, f.Outcome)
	}
	if f.DocumentID != "" {
		query += ` AND doc_id = ?`
		args = append(args, f.DocumentID)
	}
	query += ` ORDER BY seq`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var recs []Record
	for rows.Next() {
		var rec Record
		var ts string
		var confidence sql.NullFloat64
		var rationale sql.NullString
		if err := rows.Scan(&rec.Seq, &ts, &rec.Stage, &rec.DocumentID,
			&rec.ItemID, &rec.Outcome, &confidence, &rationale); err != nil {
			return nil, fmt.Errorf("scanning decision: %w", err)
		}
		rec.Timestamp, _ = parseTimestamp(ts)
		rec.Confidence = confidence.Float64
		rec.Rationale = rationale.String
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// CountByOutcome returns per-outcome counts for a stage (all stages when
// empty).
func (m *Mirror) CountByOutcome(stage string) (map[string]int, error) {
	query := `SELECT outcome, COUNT(*) FROM decisions`
	var args []interface{}
	if stage != "" {
		query += ` WHERE stage = ?`
		args = append(args, stage)
	}
	query += ` GROUP BY outcome`

	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("counting decisions: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var outcome string
		var n int
		if err := rows.Scan(&outcome, &n); err != nil {
			return nil, fmt.Errorf("scanning count: %w", err)
		}
		counts[outcome] = n
	}
	return counts, rows.Err()
}
