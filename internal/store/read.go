package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/choreo/internal/trace"
)

// ErrRunNotFound is returned when no run has the requested id.
var ErrRunNotFound = errors.New("run not found")

// ReadRun returns a run with its trace.
func (s *Store) ReadRun(ctx context.Context, id string) (Run, error) {
	run := Run{ID: id}
	err := s.db.QueryRowContext(ctx, `
		SELECT name, definition_hash, definition, options, engine_version
		FROM runs
		WHERE id = ?
	`, id).Scan(&run.Name, &run.DefinitionHash, &run.Definition, &run.Options, &run.EngineVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("read run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("read run %s: %w", id, err)
	}

	run.Trace, err = s.ReadTrace(ctx, id)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// ReadTrace returns a run's trace ordered by seq. An unknown run has an
// empty trace.
func (s *Store) ReadTrace(ctx context.Context, runID string) ([]trace.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT seq, frame_ns, name, kind, reverse, detail
		FROM trace_events
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query trace: %w", err)
	}
	defer rows.Close()

	entries := []trace.Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate trace: %w", err)
	}
	return entries, nil
}

// ListRuns returns every run in creation order.
func (s *Store) ListRuns(ctx context.Context) ([]RunSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.id, r.name, r.definition_hash, COUNT(e.seq)
		FROM runs r
		LEFT JOIN trace_events e ON e.run_id = r.id
		GROUP BY r.id
		ORDER BY r.id COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.ID, &r.Name, &r.DefinitionHash, &r.Events); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// RunsForDefinition returns the ids of runs that played the definition with
// the given hash, in creation order.
func (s *Store) RunsForDefinition(ctx context.Context, hash string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id FROM runs
		WHERE definition_hash = ?
		ORDER BY id COLLATE BINARY ASC
	`, hash)
	if err != nil {
		return nil, fmt.Errorf("query runs for definition: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan run id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run ids: %w", err)
	}
	return ids, nil
}
