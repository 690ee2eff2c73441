// Package names loads stage name tables used to label diagnostics output.
//
// A names file is YAML:
//
//	stages:
//	  - id: 64
//	    name: Tokenize
//
// Entries are validated against an embedded JSON schema and layered over the
// built-in stage names, so a file may also rename built-in stages.
package names

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

//go:embed schema.json
var schema []byte

// Sentinel errors for name table loading.
var (
	// ErrInvalidNames indicates the document does not match the schema.
	ErrInvalidNames = errors.New("invalid stage names")
	// ErrDuplicateID indicates two entries share an id.
	ErrDuplicateID = errors.New("duplicate stage id")
)

// Entry names one stage id.
type Entry struct {
	ID   int    `yaml:"id"`
	Name string `yaml:"name"`
}

type document struct {
	Stages []Entry `yaml:"stages"`
}

// LoadFile reads path and returns the built-in names merged with its entries.
// An empty path yields the built-in table.
func LoadFile(path string) (telemetry.NameTable, error) {
	if path == "" {
		return telemetry.StageNames(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read names file: %w", err)
	}

	table, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return table, nil
}

// Parse decodes and validates a names document and merges it over the
// built-in stage names.
func Parse(data []byte) (telemetry.NameTable, error) {
	var raw any

	err := yaml.Unmarshal(data, &raw)
	if err != nil {
		return nil, fmt.Errorf("decode names: %w", err)
	}

	err = validate(raw)
	if err != nil {
		return nil, err
	}

	var doc document

	err = yaml.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("decode names: %w", err)
	}

	custom := make(telemetry.NameTable, len(doc.Stages))

	for _, e := range doc.Stages {
		if _, dup := custom[e.ID]; dup {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateID, e.ID)
		}

		custom[e.ID] = e.Name
	}

	return telemetry.StageNames().Merge(custom), nil
}

func validate(raw any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(schema), gojsonschema.NewGoLoader(raw))
	if err != nil {
		return fmt.Errorf("validate names: %w", err)
	}

	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, verr := range result.Errors() {
		msgs = append(msgs, verr.Field()+": "+verr.Description())
	}

	return fmt.Errorf("%w: %s", ErrInvalidNames, strings.Join(msgs, "; "))
}
