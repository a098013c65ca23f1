// Package store persists stage runs and summary results in SQLite.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"repsim/internal/summary"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a run has no stored record.
var ErrNotFound = errors.New("not found")

// Stage run statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// StageRun is one execution of a pipeline stage.
type StageRun struct {
	ID         string `json:"id"`
	Run        string `json:"run"`
	Stage      string `json:"stage"`
	Status     string `json:"status"`
	StartedAt  string `json:"started_at"`
	FinishedAt string `json:"finished_at,omitempty"`
	OK         int    `json:"ok"`
	Failed     int    `json:"failed"`
	Skipped    int    `json:"skipped"`
	Error      string `json:"error,omitempty"`
}

// PlanFilter narrows plan summary queries; zero fields match everything.
type PlanFilter struct {
	NumDistricts int
	Winners      int
	VoterModel   string
}

func nowUTC() string { return time.Now().UTC().Format(time.RFC3339) }

func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func nullFloat(nf sql.NullFloat64) float64 {
	if nf.Valid {
		return nf.Float64
	}
	return 0
}

// SqlStore is the SQLite-backed results store.
type SqlStore struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory if it does not exist.
func Open(path string) (*SqlStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SqlStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *SqlStore) Close() error { return s.db.Close() }

func (s *SqlStore) migrate() error {
	var tableCount int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		return s.freshInstall()
	}

	var v int
	err = s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("schema_version table is empty")
	}
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unsupported schema version %d (want %d)", v, schemaVersion)
	}
	return nil
}

func (s *SqlStore) freshInstall() error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema: %w", err)
	}
	defer func() { _ = tx.Rollback() }()
	if _, err := tx.Exec(schema); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
		return fmt.Errorf("set schema version: %w", err)
	}
	return tx.Commit()
}

// StartStageRun records a running stage and returns its id.
func (s *SqlStore) StartStageRun(run, stage string) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO stage_runs(id, run, stage, status, started_at) VALUES(?, ?, ?, ?, ?)",
		id, run, stage, StatusRunning, nowUTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert stage run: %w", err)
	}
	return id, nil
}

// FinishStageRun stores the outcome counts of a stage run. A non-nil
// stageErr marks the run failed.
func (s *SqlStore) FinishStageRun(id string, ok, failed, skipped int, stageErr error) error {
	status := StatusSucceeded
	var msg sql.NullString
	if stageErr != nil {
		status = StatusFailed
		msg = sql.NullString{String: stageErr.Error(), Valid: true}
	}
	res, err := s.db.Exec(
		`UPDATE stage_runs SET status = ?, finished_at = ?, ok = ?, failed = ?, skipped = ?, error = ?
		 WHERE id = ?`,
		status, nowUTC(), ok, failed, skipped, msg, id,
	)
	if err != nil {
		return fmt.Errorf("update stage run %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("stage run %s: %w", id, ErrNotFound)
	}
	return nil
}

// ListStageRuns returns the stage runs of a run, oldest first.
func (s *SqlStore) ListStageRuns(run string) ([]StageRun, error) {
	rows, err := s.db.Query(
		`SELECT id, run, stage, status, started_at, finished_at, ok, failed, skipped, error
		 FROM stage_runs WHERE run = ? ORDER BY started_at, rowid`, run)
	if err != nil {
		return nil, fmt.Errorf("list stage runs: %w", err)
	}
	defer rows.Close()
	var out []StageRun
	for rows.Next() {
		var r StageRun
		var finished, msg sql.NullString
		if err := rows.Scan(&r.ID, &r.Run, &r.Stage, &r.Status, &r.StartedAt, &finished,
			&r.OK, &r.Failed, &r.Skipped, &msg); err != nil {
			return nil, fmt.Errorf("scan stage run: %w", err)
		}
		r.FinishedAt = nullStr(finished)
		r.Error = nullStr(msg)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRuns returns every run name with stored results or stage runs.
func (s *SqlStore) ListRuns() ([]string, error) {
	rows, err := s.db.Query(
		"SELECT run FROM reference UNION SELECT run FROM stage_runs ORDER BY run")
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var r string
		if err := rows.Scan(&r); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveSummary replaces everything stored for run with res.
func (s *SqlStore) SaveSummary(run string, res *summary.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin save summary: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range []string{"summary_rows", "plan_summaries", "distributions", "reference"} {
		if _, err := tx.Exec("DELETE FROM "+table+" WHERE run = ?", run); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	ref := res.Reference
	if _, err := tx.Exec(
		`INSERT INTO reference(run, focal_group, iprop, iprop_turnout, combined_support,
		 total_ivap, total_vap, dropped_rows, updated_at) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run, ref.FocalGroup, ref.IProp, ref.IPropTurnout, ref.CombinedSupport,
		ref.TotalIVAP, ref.TotalVAP, res.Dropped, nowUTC(),
	); err != nil {
		return fmt.Errorf("insert reference: %w", err)
	}

	rowStmt, err := tx.Prepare(
		`INSERT INTO summary_rows(run, plan, district, replicate, district_num, winners, election_method,
		 voter_model, sim_index, focal_seats, total_ivap, total_vap, settings_match, profile_file, settings_file)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare summary rows: %w", err)
	}
	defer rowStmt.Close()
	for _, r := range res.Rows {
		if _, err := rowStmt.Exec(run, r.Plan, r.District, r.Replicate, r.NumDistricts, r.Winners,
			r.ElectionMethod, r.VoterModel, r.SimIndex, r.FocalSeats, r.TotalIVAP, r.TotalVAP, r.Match,
			r.ProfileFile, r.SettingsFile); err != nil {
			return fmt.Errorf("insert summary row: %w", err)
		}
	}

	planStmt, err := tx.Prepare(
		`INSERT INTO plan_summaries(run, plan, district_num, winners, voter_model, replicate,
		 focal_seats, total_seats) VALUES(?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare plan summaries: %w", err)
	}
	defer planStmt.Close()
	for _, p := range res.Plans {
		if _, err := planStmt.Exec(run, p.Plan, p.NumDistricts, p.Winners, p.VoterModel,
			p.Replicate, p.FocalSeats, p.TotalSeats); err != nil {
			return fmt.Errorf("insert plan summary: %w", err)
		}
	}

	for _, d := range res.Distributions {
		if _, err := tx.Exec(
			`INSERT INTO distributions(run, district_num, winners, voter_model, total_seats, count,
			 mean, std_dev, min, median, max) VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run, d.NumDistricts, d.Winners, d.VoterModel, d.TotalSeats, d.Count,
			d.Mean, d.StdDev, d.Min, d.Median, d.Max,
		); err != nil {
			return fmt.Errorf("insert distribution: %w", err)
		}
	}
	return tx.Commit()
}

// Reference returns the stored reference statistics and dropped-row count.
func (s *SqlStore) Reference(run string) (summary.Reference, int, error) {
	var ref summary.Reference
	var dropped int
	err := s.db.QueryRow(
		`SELECT focal_group, iprop, iprop_turnout, combined_support, total_ivap, total_vap, dropped_rows
		 FROM reference WHERE run = ?`, run,
	).Scan(&ref.FocalGroup, &ref.IProp, &ref.IPropTurnout, &ref.CombinedSupport,
		&ref.TotalIVAP, &ref.TotalVAP, &dropped)
	if errors.Is(err, sql.ErrNoRows) {
		return ref, 0, fmt.Errorf("reference for run %q: %w", run, ErrNotFound)
	}
	if err != nil {
		return ref, 0, fmt.Errorf("get reference: %w", err)
	}
	return ref, dropped, nil
}

// PlanSummaries returns plan rows of run matching f, in (n, winners, model,
// plan, replicate) order.
func (s *SqlStore) PlanSummaries(run string, f PlanFilter) ([]summary.PlanRow, error) {
	q := `SELECT plan, district_num, winners, voter_model, replicate, focal_seats, total_seats
		FROM plan_summaries WHERE run = ?`
	args := []any{run}
	if f.NumDistricts > 0 {
		q += " AND district_num = ?"
		args = append(args, f.NumDistricts)
	}
	if f.Winners > 0 {
		q += " AND winners = ?"
		args = append(args, f.Winners)
	}
	if f.VoterModel != "" {
		q += " AND voter_model = ?"
		args = append(args, f.VoterModel)
	}
	q += " ORDER BY district_num, winners, voter_model, plan, replicate"

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("list plan summaries: %w", err)
	}
	defer rows.Close()
	var out []summary.PlanRow
	for rows.Next() {
		var p summary.PlanRow
		if err := rows.Scan(&p.Plan, &p.NumDistricts, &p.Winners, &p.VoterModel,
			&p.Replicate, &p.FocalSeats, &p.TotalSeats); err != nil {
			return nil, fmt.Errorf("scan plan summary: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Distributions returns the stored seat distributions of run.
func (s *SqlStore) Distributions(run string) ([]summary.Distribution, error) {
	rows, err := s.db.Query(
		`SELECT district_num, winners, voter_model, total_seats, count, mean, std_dev, min, median, max
		 FROM distributions WHERE run = ? ORDER BY district_num, winners, voter_model`, run)
	if err != nil {
		return nil, fmt.Errorf("list distributions: %w", err)
	}
	defer rows.Close()
	var out []summary.Distribution
	for rows.Next() {
		var d summary.Distribution
		var mean, std, lo, med, hi sql.NullFloat64
		if err := rows.Scan(&d.NumDistricts, &d.Winners, &d.VoterModel, &d.TotalSeats, &d.Count,
			&mean, &std, &lo, &med, &hi); err != nil {
			return nil, fmt.Errorf("scan distribution: %w", err)
		}
		d.Mean, d.StdDev = nullFloat(mean), nullFloat(std)
		d.Min, d.Median, d.Max = nullFloat(lo), nullFloat(med), nullFloat(hi)
		out = append(out, d)
	}
	return out, rows.Err()
}

// CountRows returns the number of stored per-election rows for run.
func (s *SqlStore) CountRows(run string) (int, error) {
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM summary_rows WHERE run = ?", run).Scan(&n); err != nil {
		return 0, fmt.Errorf("count summary rows: %w", err)
	}
	return n, nil
}
