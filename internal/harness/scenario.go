package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of record operations with expectations.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Schema is an optional directory of CUE table declarations, relative
	// to the scenario file. Declared tables are defined before the steps
	// run and their documents are validated on put.
	Schema string `yaml:"schema,omitempty"`

	// Backend selects the store: "memory" (default) or "sqlite" (an
	// in-memory SQLite database).
	Backend string `yaml:"backend,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions are checked against the store after the last step.
	Assertions []Assertion `yaml:"assertions,omitempty"`
}

// Step is one record operation.
type Step struct {
	// Op is one of put, get or delete.
	Op string `yaml:"op"`

	// Table is the target table.
	Table string `yaml:"table"`

	// ID addresses the record for get and delete. For put it requests an
	// explicit id. Integers become numeric ids, strings string ids.
	ID any `yaml:"id,omitempty"`

	// Doc is the document to put.
	Doc map[string]any `yaml:"doc,omitempty"`

	// Expect validates the step's outcome. Without it the step must
	// succeed.
	Expect *Expect `yaml:"expect,omitempty"`
}

// Expect describes the expected outcome of a step.
type Expect struct {
	// Found is checked for get.
	Found *bool `yaml:"found,omitempty"`

	// Doc is a subset match against the returned document.
	Doc map[string]any `yaml:"doc,omitempty"`

	// Error, when set, requires the step to fail with a message containing
	// this text.
	Error string `yaml:"error,omitempty"`
}

// Assertion validates the trace or the final store contents.
type Assertion struct {
	// Type is one of record_exists, record_absent, record_matches or
	// op_count.
	Type string `yaml:"type"`

	Table  string         `yaml:"table,omitempty"`
	ID     any            `yaml:"id,omitempty"`
	Expect map[string]any `yaml:"expect,omitempty"`

	// Op and Count are used by op_count.
	Op    string `yaml:"op,omitempty"`
	Count int    `yaml:"count,omitempty"`
}

// Step operations.
const (
	OpPut    = "put"
	OpGet    = "get"
	OpDelete = "delete"
)

// Backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Assertion type constants.
const (
	AssertRecordExists  = "record_exists"
	AssertRecordAbsent  = "record_absent"
	AssertRecordMatches = "record_matches"
	AssertOpCount       = "op_count"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// The schema path is resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	if scenario.Schema != "" && !filepath.IsAbs(scenario.Schema) {
		scenario.Schema = filepath.Join(filepath.Dir(path), scenario.Schema)
	}
	if scenario.Schema != "" {
		if _, err := os.Stat(scenario.Schema); err != nil {
			return nil, fmt.Errorf("invalid scenario: schema: %w", err)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML. Schema paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	switch s.Backend {
	case "":
		s.Backend = BackendMemory
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("unknown backend %q", s.Backend)
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		if step.Table == "" {
			return fmt.Errorf("steps[%d]: table is required", i)
		}
		switch step.Op {
		case OpPut:
			if step.Doc == nil {
				return fmt.Errorf("steps[%d]: doc is required for put (use {} for an empty document)", i)
			}
		case OpGet, OpDelete:
			if step.ID == nil {
				return fmt.Errorf("steps[%d]: id is required for %s", i, step.Op)
			}
		case "":
			return fmt.Errorf("steps[%d]: op is required", i)
		default:
			return fmt.Errorf("steps[%d]: unknown op %q", i, step.Op)
		}
	}

	for i, a := range s.Assertions {
		if err := validateAssertion(i, &a); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertRecordExists, AssertRecordAbsent:
		if a.Table == "" || a.ID == nil {
			return fmt.Errorf("assertions[%d]: table and id are required for %s", index, a.Type)
		}
	case AssertRecordMatches:
		if a.Table == "" || a.ID == nil {
			return fmt.Errorf("assertions[%d]: table and id are required for %s", index, a.Type)
		}
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for %s", index, a.Type)
		}
	case AssertOpCount:
		if a.Op == "" {
			return fmt.Errorf("assertions[%d]: op is required for %s", index, a.Type)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for %s", index, a.Type)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
