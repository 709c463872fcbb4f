package harness

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadScenario_ResolvesSchema(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "library.yaml"))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join("testdata", "schema"), s.Schema)
	assert.Len(t, s.Steps, 7)
	assert.Len(t, s.Assertions, 4)
	assert.Equal(t, 7, s.Steps[3].ID)
}

func TestLoadScenario_DefaultsBackend(t *testing.T) {
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", "note_lifecycle.yaml"))
	require.NoError(t, err)
	assert.Equal(t, BackendMemory, s.Backend)
	assert.Empty(t, s.Schema)
}

func TestLoadScenario_Errors(t *testing.T) {
	_, err := LoadScenario(filepath.Join("testdata", "scenarios", "missing.yaml"))
	assert.ErrorContains(t, err, "failed to read scenario file")

	dir := t.TempDir()
	path := filepath.Join(dir, "s.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`name: s
description: d
schema: nowhere
steps:
  - {op: get, table: t, id: 1}
`), 0o644))
	_, err = LoadScenario(path)
	assert.ErrorContains(t, err, "invalid scenario: schema")
}

func TestParseScenario_Validation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		msg  string
	}{
		{"no name", "description: d\nsteps: [{op: get, table: t, id: 1}]", "name is required"},
		{"no description", "name: n\nsteps: [{op: get, table: t, id: 1}]", "description is required"},
		{"no steps", "name: n\ndescription: d", "steps list is required"},
		{"bad backend", "name: n\ndescription: d\nbackend: redis\nsteps: [{op: get, table: t, id: 1}]", `unknown backend "redis"`},
		{"no table", "name: n\ndescription: d\nsteps: [{op: get, id: 1}]", "steps[0]: table is required"},
		{"no op", "name: n\ndescription: d\nsteps: [{table: t}]", "steps[0]: op is required"},
		{"bad op", "name: n\ndescription: d\nsteps: [{op: upsert, table: t}]", `unknown op "upsert"`},
		{"put without doc", "name: n\ndescription: d\nsteps: [{op: put, table: t}]", "doc is required for put"},
		{"get without id", "name: n\ndescription: d\nsteps: [{op: get, table: t}]", "id is required for get"},
		{"unknown field", "name: n\ndescription: d\nflow: []\nsteps: [{op: get, table: t, id: 1}]", "field flow not found"},
		{"unknown assertion", "name: n\ndescription: d\nsteps: [{op: get, table: t, id: 1}]\nassertions: [{type: trace_order}]", `unknown assertion type "trace_order"`},
		{"assertion without id", "name: n\ndescription: d\nsteps: [{op: get, table: t, id: 1}]\nassertions: [{type: record_exists, table: t}]", "table and id are required"},
		{"matches without expect", "name: n\ndescription: d\nsteps: [{op: get, table: t, id: 1}]\nassertions: [{type: record_matches, table: t, id: 1}]", "expect is required"},
		{"count without op", "name: n\ndescription: d\nsteps: [{op: get, table: t, id: 1}]\nassertions: [{type: op_count, count: 1}]", "op is required for op_count"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScenario([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestParseScenario_EmptyDocAllowed(t *testing.T) {
	s, err := ParseScenario([]byte("name: n\ndescription: d\nsteps: [{op: put, table: t, doc: {}}]"))
	require.NoError(t, err)
	assert.NotNil(t, s.Steps[0].Doc)
	assert.Empty(t, s.Steps[0].Doc)
}
