package compiler

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"cuelang.org/go/cue"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/choreo/internal/ir"
)

// DefinitionPath is where a CUE file declares its timeline.
const DefinitionPath = "timeline"

// CompileDefinition decodes a CUE value into a Definition.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The value should be the timeline struct itself, e.g.:
//
//	ctx := cuecontext.New()
//	v := ctx.CompileString(`timeline: { name: "intro", clips: [...] }`)
//	def, err := CompileDefinition(v.LookupPath(cue.ParsePath("timeline")))
func CompileDefinition(v cue.Value) (*ir.Definition, error) {
	if !v.Exists() {
		return nil, &CompileError{
			Field:   DefinitionPath,
			Message: "no timeline declared",
			Pos:     v.Pos(),
		}
	}
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	def := &ir.Definition{}
	if err := v.Decode(def); err != nil {
		return nil, formatCUEError(err)
	}
	if def.Name == "" {
		labels := v.Path().Selectors()
		if len(labels) > 0 {
			def.Name = labels[len(labels)-1].String()
		}
	}
	return def, nil
}

// DecodeDefinitionYAML decodes a YAML timeline document. Unknown fields are
// rejected so typos surface as errors instead of silently ignored keys.
func DecodeDefinitionYAML(data []byte) (*ir.Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	def := &ir.Definition{}
	if err := dec.Decode(def); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &CompileError{Field: "yaml", Message: "empty document"}
		}
		return nil, &CompileError{Field: "yaml", Message: err.Error()}
	}
	return def, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := cueerrors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return &CompileError{Field: "cue", Message: firstErr.Error()}
}
