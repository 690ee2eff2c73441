package names_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/incrkit/internal/names"
	"github.com/Sumatoshi-tech/incrkit/pkg/telemetry"
)

const (
	stageTokenize = 64
	stageParse    = 65
)

func TestLoadFile_EmptyPathIsBuiltin(t *testing.T) {
	t.Parallel()

	table, err := names.LoadFile("")
	require.NoError(t, err)
	assert.Equal(t, telemetry.StageNames(), table)
}

func TestLoadFile_MergesOverBuiltin(t *testing.T) {
	t.Parallel()

	table, err := names.LoadFile(filepath.Join("testdata", "stages.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "Tokenize", table[stageTokenize])
	assert.Equal(t, "Parse", table[stageParse])
	assert.Equal(t, "Cache Miss", table[int(telemetry.StageInternMiss)])
	assert.Equal(t, "Method Call", table[int(telemetry.StageMethodCall)])
}

func TestLoadFile_Missing(t *testing.T) {
	t.Parallel()

	_, err := names.LoadFile(filepath.Join("testdata", "absent.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read names file")
}

func TestLoadFile_IDOutOfRange(t *testing.T) {
	t.Parallel()

	_, err := names.LoadFile(filepath.Join("testdata", "bad_id.yaml"))
	require.ErrorIs(t, err, names.ErrInvalidNames)
	assert.Contains(t, err.Error(), "bad_id.yaml")
}

func TestLoadFile_DuplicateID(t *testing.T) {
	t.Parallel()

	_, err := names.LoadFile(filepath.Join("testdata", "duplicate.yaml"))
	require.ErrorIs(t, err, names.ErrDuplicateID)
}

func TestParse_SchemaViolations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{name: "missing stages", doc: "other: 1\n"},
		{name: "empty name", doc: "stages:\n  - id: 70\n    name: \"\"\n"},
		{name: "string id", doc: "stages:\n  - id: parse\n    name: Parse\n"},
		{name: "unknown field", doc: "stages:\n  - id: 70\n    name: Parse\n    color: red\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := names.Parse([]byte(tt.doc))
			require.ErrorIs(t, err, names.ErrInvalidNames)
		})
	}
}

func TestParse_MalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := names.Parse([]byte("stages: [\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode names")
}

func TestParse_EmptyList(t *testing.T) {
	t.Parallel()

	table, err := names.Parse([]byte("stages: []\n"))
	require.NoError(t, err)
	assert.Equal(t, telemetry.StageNames(), table)
}
