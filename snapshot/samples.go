package snapshot

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

type HistoryRow struct {
	RunID       string
	Step        int
	Time        float64
	Block, Cell int
	Rho, P, T   float64
	Vel         [3]float64
}

type LoadRow struct {
	RunID    string
	Step     int
	Time     float64
	Block    int
	Boundary string
	Force    [3]float64
	Heat     float64 // heat flowing into the wall, W
}

type ResidualRow struct {
	RunID  string
	Step   int
	Time   float64
	Dt     float64
	Names  []string
	Values []float64
}

const schema = `
CREATE TABLE IF NOT EXISTS history (
	run_id TEXT NOT NULL, step INTEGER NOT NULL, time REAL NOT NULL,
	block INTEGER NOT NULL, cell INTEGER NOT NULL,
	rho REAL, p REAL, t REAL, u REAL, v REAL, w REAL
);
CREATE TABLE IF NOT EXISTS loads (
	run_id TEXT NOT NULL, step INTEGER NOT NULL, time REAL NOT NULL,
	block INTEGER NOT NULL, boundary TEXT NOT NULL,
	fx REAL, fy REAL, fz REAL, heat REAL
);
CREATE TABLE IF NOT EXISTS residuals (
	run_id TEXT NOT NULL, step INTEGER NOT NULL, time REAL NOT NULL, dt REAL NOT NULL,
	quantity TEXT NOT NULL, value REAL
);
CREATE INDEX IF NOT EXISTS history_run ON history (run_id, block, cell, step);
`

// SampleStore records history points, boundary loads and residuals in
// sqlite. One connection serialises the writers of every rank.
type SampleStore struct {
	db *sql.DB
}

// OpenSampleStore opens or creates the database at path, ":memory:" for a
// private in-memory store.
func OpenSampleStore(path string) (ss *SampleStore, err error) {
	var db *sql.DB
	if db, err = sql.Open("sqlite", path); err != nil {
		return nil, fmt.Errorf("opening sample store: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err = db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating sample tables: %w", err)
	}
	return &SampleStore{db: db}, nil
}

func (ss *SampleStore) Close() error {
	return ss.db.Close()
}

func (ss *SampleStore) insert(query string, rows int, args func(i int) []interface{}) (err error) {
	var tx *sql.Tx
	if tx, err = ss.db.Begin(); err != nil {
		return
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()
	var stmt *sql.Stmt
	if stmt, err = tx.Prepare(query); err != nil {
		return
	}
	defer stmt.Close()
	for i := 0; i < rows; i++ {
		if _, err = stmt.Exec(args(i)...); err != nil {
			return
		}
	}
	return tx.Commit()
}

func (ss *SampleStore) AddHistory(rows ...HistoryRow) error {
	return ss.insert(`INSERT INTO history VALUES (?,?,?,?,?,?,?,?,?,?,?)`, len(rows), func(i int) []interface{} {
		r := rows[i]
		return []interface{}{r.RunID, r.Step, r.Time, r.Block, r.Cell, r.Rho, r.P, r.T, r.Vel[0], r.Vel[1], r.Vel[2]}
	})
}

func (ss *SampleStore) AddLoads(rows ...LoadRow) error {
	return ss.insert(`INSERT INTO loads VALUES (?,?,?,?,?,?,?,?,?)`, len(rows), func(i int) []interface{} {
		r := rows[i]
		return []interface{}{r.RunID, r.Step, r.Time, r.Block, r.Boundary, r.Force[0], r.Force[1], r.Force[2], r.Heat}
	})
}

func (ss *SampleStore) AddResiduals(row ResidualRow) error {
	if len(row.Names) != len(row.Values) {
		return fmt.Errorf("residual row has %d names for %d values", len(row.Names), len(row.Values))
	}
	return ss.insert(`INSERT INTO residuals VALUES (?,?,?,?,?,?)`, len(row.Values), func(i int) []interface{} {
		return []interface{}{row.RunID, row.Step, row.Time, row.Dt, row.Names[i], row.Values[i]}
	})
}

// History returns the samples of one cell in step order.
func (ss *SampleStore) History(runID string, block, cell int) (rows []HistoryRow, err error) {
	var r *sql.Rows
	if r, err = ss.db.Query(`SELECT step, time, rho, p, t, u, v, w FROM history
		WHERE run_id = ? AND block = ? AND cell = ? ORDER BY step`, runID, block, cell); err != nil {
		return
	}
	defer r.Close()
	for r.Next() {
		h := HistoryRow{RunID: runID, Block: block, Cell: cell}
		if err = r.Scan(&h.Step, &h.Time, &h.Rho, &h.P, &h.T, &h.Vel[0], &h.Vel[1], &h.Vel[2]); err != nil {
			return
		}
		rows = append(rows, h)
	}
	err = r.Err()
	return
}

// Count returns the number of rows of a run in one of the sample tables.
func (ss *SampleStore) Count(table, runID string) (n int, err error) {
	switch table {
	case "history", "loads", "residuals":
	default:
		return 0, fmt.Errorf("no sample table %q", table)
	}
	err = ss.db.QueryRow(`SELECT COUNT(*) FROM `+table+` WHERE run_id = ?`, runID).Scan(&n)
	return
}

// Steps returns the number of distinct steps of a run sampled in one of the
// sample tables. A residual report writes one row per conserved slot.
func (ss *SampleStore) Steps(table, runID string) (n int, err error) {
	switch table {
	case "history", "loads", "residuals":
	default:
		return 0, fmt.Errorf("no sample table %q", table)
	}
	err = ss.db.QueryRow(`SELECT COUNT(DISTINCT step) FROM `+table+` WHERE run_id = ?`, runID).Scan(&n)
	return
}

// LatestLoads returns the loads of the last sampled step of a run.
func (ss *SampleStore) LatestLoads(runID string) (rows []LoadRow, err error) {
	var r *sql.Rows
	if r, err = ss.db.Query(`SELECT step, time, block, boundary, fx, fy, fz, heat FROM loads
		WHERE run_id = ? AND step = (SELECT MAX(step) FROM loads WHERE run_id = ?)
		ORDER BY block, boundary`, runID, runID); err != nil {
		return
	}
	defer r.Close()
	for r.Next() {
		l := LoadRow{RunID: runID}
		if err = r.Scan(&l.Step, &l.Time, &l.Block, &l.Boundary, &l.Force[0], &l.Force[1], &l.Force[2],
			&l.Heat); err != nil {
			return
		}
		rows = append(rows, l)
	}
	err = r.Err()
	return
}
