package store

import (
	"context"
	"fmt"
)

// WriteRun inserts a run and its trace in one transaction. Writing a run
// whose id already exists fails; runs are immutable once recorded.
func (s *Store) WriteRun(ctx context.Context, run Run) (err error) {
	if run.ID == "" {
		return fmt.Errorf("write run: id is required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write run: begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, name, definition_hash, definition, options, engine_version)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.ID, run.Name, run.DefinitionHash, run.Definition, run.Options, run.EngineVersion)
	if err != nil {
		return fmt.Errorf("write run %s: %w", run.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO trace_events (run_id, seq, frame_ns, name, kind, reverse, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("write run %s: prepare: %w", run.ID, err)
	}
	defer stmt.Close()

	for _, e := range run.Trace {
		_, err = stmt.ExecContext(ctx, run.ID, e.Seq, int64(e.Frame), e.Name, string(e.Kind), boolInt(e.Reverse), e.Detail)
		if err != nil {
			return fmt.Errorf("write run %s: event %d: %w", run.ID, e.Seq, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("write run %s: commit: %w", run.ID, err)
	}
	return nil
}

// DeleteRun removes a run and its trace. Deleting an unknown run is not an
// error.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete run %s: %w", id, err)
	}
	return nil
}
