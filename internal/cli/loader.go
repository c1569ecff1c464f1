package cli

import (
	"errors"
	"fmt"
	"os"

	"cuelang.org/go/cue/token"

	"github.com/roach88/choreo/internal/compiler"
	"github.com/roach88/choreo/internal/ir"
)

// LoadError represents an error that occurred while loading a timeline.
type LoadError struct {
	Code    string
	Message string
	Pos     token.Pos // CUE position if available
}

func (e *LoadError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// LoadDefinition reads the timeline definition at path. Every failure is a
// *LoadError.
func LoadDefinition(path string) (*ir.Definition, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("timeline not found: %s", path)}
	}
	if err != nil {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("error accessing timeline: %v", err)}
	}
	if info.IsDir() {
		return nil, &LoadError{Code: ErrCodeNotFound, Message: fmt.Sprintf("not a file: %s", path)}
	}
	if !compiler.IsDefinitionFile(path) {
		return nil, &LoadError{Code: ErrCodeUnsupported, Message: fmt.Sprintf("unsupported timeline file: %s", path)}
	}

	def, err := compiler.LoadFile(path)
	if err != nil {
		return nil, convertCompileError(err)
	}
	return def, nil
}

// convertCompileError converts a compiler error to a LoadError with position info.
func convertCompileError(err error) *LoadError {
	var compileErr *compiler.CompileError
	if errors.As(err, &compileErr) {
		return &LoadError{
			Code:    MapFieldToErrorCode(compileErr.Field),
			Message: compileErr.Message,
			Pos:     compileErr.Pos,
		}
	}
	return &LoadError{Code: ErrCodeGeneric, Message: err.Error()}
}

// Error code constants - unified across all CLI commands.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeUnsupported  = "E002" // Unsupported file extension
	ErrCodeDecodeFailed = "E004" // YAML/JSON decode failed
	ErrCodeNotFound     = "E005" // Path not found
	ErrCodeBuildFailed  = "E006" // CUE build failed
	ErrCodeWriteFailed  = "E007" // File write error
	ErrCodeNoTimeline   = "E008" // CUE file declares no timeline
	ErrCodeStore        = "E009" // Database error
	ErrCodeInvalid      = "E010" // Timeline failed validation
	ErrCodePlayback     = "E011" // Playback call rejected
)

// MapFieldToErrorCode maps a compiler error field to an error code.
func MapFieldToErrorCode(field string) string {
	switch field {
	case "yaml", "json":
		return ErrCodeDecodeFailed
	case compiler.DefinitionPath:
		return ErrCodeNoTimeline
	case "":
		return ErrCodeGeneric
	default:
		return ErrCodeBuildFailed
	}
}

// loadErrorCode extracts the code and message of a load failure.
func loadErrorCode(err error) (string, string) {
	var loadErr *LoadError
	if errors.As(err, &loadErr) {
		return loadErr.Code, loadErr.Error()
	}
	return ErrCodeGeneric, err.Error()
}
