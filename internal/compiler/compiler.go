package compiler

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/finchley/marionette/internal/choreo"
)

//go:embed schema.cue
var schemaCUE string

// CurrentVersion is the program document version this compiler accepts.
const CurrentVersion = 1

// LoadError reports a problem with one program file.
type LoadError struct {
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

// programDocument wraps a program with its format version.
type programDocument struct {
	Version int `json:"version"`
	choreo.Program
}

// LoadFile loads one program from a .cue or .json file.
func LoadFile(path string) (*choreo.Program, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return CompileCUE(data, path)
	case ".json":
		return CompileJSON(data, path)
	default:
		return nil, &LoadError{Path: path, Message: "unsupported extension (want .cue or .json)"}
	}
}

// LoadDir loads every .cue and .json program under dir, sorted by path so
// registration order is deterministic across platforms.
func LoadDir(dir string) ([]*choreo.Program, error) {
	var paths []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".cue", ".json":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, &LoadError{Path: dir, Message: err.Error()}
	}
	if len(paths) == 0 {
		return nil, &LoadError{Path: dir, Message: "no .cue or .json program files found"}
	}
	sort.Strings(paths)

	programs := make([]*choreo.Program, 0, len(paths))
	for _, path := range paths {
		p, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, nil
}

// CompileJSON decodes a versioned JSON program document.
func CompileJSON(data []byte, path string) (*choreo.Program, error) {
	var doc programDocument
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	if doc.Version == 0 {
		doc.Version = CurrentVersion
	}
	if doc.Version != CurrentVersion {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported program version %d (want %d)", doc.Version, CurrentVersion)}
	}
	p := doc.Program
	return &p, nil
}

// CompileCUE unifies a CUE source with the embedded #Program schema and
// decodes the "program" field. Uses the CUE SDK's Go API directly, not a
// CLI subprocess.
func CompileCUE(data []byte, path string) (*choreo.Program, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("internal schema error: %v", err)}
	}

	val := ctx.CompileBytes(data, cue.Filename(path))
	if err := val.Err(); err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}

	unified := val.Unify(schema)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}

	progVal := unified.LookupPath(cue.ParsePath("program"))
	if !progVal.Exists() {
		return nil, &LoadError{Path: path, Message: `file does not define a "program" value`}
	}

	var doc programDocument
	if err := progVal.Decode(&doc); err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	if doc.Version != CurrentVersion {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported program version %d (want %d)", doc.Version, CurrentVersion)}
	}
	p := doc.Program
	return &p, nil
}
