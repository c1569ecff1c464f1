package compiler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/roach88/choreo/internal/ir"
)

// Definition file extensions understood by LoadFile.
var definitionExts = []string{".yaml", ".yml", ".json", ".cue"}

// IsDefinitionFile reports whether path has a definition file extension.
func IsDefinitionFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range definitionExts {
		if ext == e {
			return true
		}
	}
	return false
}

// LoadFile reads a timeline definition from a YAML, JSON or CUE file.
// A CUE file declares its timeline under DefinitionPath.
func LoadFile(path string) (*ir.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read definition: %w", err)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return DecodeDefinitionYAML(data)
	case ".json":
		return DecodeDefinitionJSON(data)
	case ".cue":
		v := cuecontext.New().CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, formatCUEError(err)
		}
		return CompileDefinition(v.LookupPath(cue.ParsePath(DefinitionPath)))
	default:
		return nil, fmt.Errorf("unsupported definition file %q: want one of %s", path, strings.Join(definitionExts, ", "))
	}
}

// DecodeDefinitionJSON decodes a JSON timeline document, rejecting unknown
// fields like DecodeDefinitionYAML.
func DecodeDefinitionJSON(data []byte) (*ir.Definition, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()

	def := &ir.Definition{}
	if err := dec.Decode(def); err != nil {
		return nil, &CompileError{Field: "json", Message: err.Error()}
	}
	return def, nil
}
