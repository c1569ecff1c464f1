package store

import (
	"fmt"
	"time"

	"github.com/roach88/choreo/internal/trace"
)

// Run is one recorded playback.
type Run struct {
	ID             string
	Name           string
	DefinitionHash string
	// Definition is the canonical JSON of the played definition.
	Definition string
	// Options is the canonical JSON of the playback options.
	Options       string
	EngineVersion string
	Trace         []trace.Entry
}

// RunSummary is a run without its definition and trace.
type RunSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	DefinitionHash string `json:"definition_hash"`
	Events         int    `json:"events"`
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(row rowScanner) (trace.Entry, error) {
	var (
		e       trace.Entry
		frameNS int64
		kind    string
		reverse int
	)
	if err := row.Scan(&e.Seq, &frameNS, &e.Name, &kind, &reverse, &e.Detail); err != nil {
		return trace.Entry{}, fmt.Errorf("scan trace event: %w", err)
	}
	e.Frame = time.Duration(frameNS)
	e.Kind = trace.Kind(kind)
	e.Reverse = reverse != 0
	return e, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
