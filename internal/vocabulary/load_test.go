package vocabulary

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/fyrsmithlabs/claimd/internal/alignment"
	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/constraint"
)

const yamlTables = `
clause:
  coverage: [reimbursed]
  proximity_window: 0
constraint:
  waiting:
    - name: weeks
      regex: '(\d+)\s*weeks?'
      unit: days
  fallback:
    disabled: true
risk:
  strong_similarity: 0.4
  clause_pai:
    saturation: 8
`

const tomlTables = `
[clause]
exclusion = ["carve-out"]

[[constraint.age]]
name = "over"
regex = 'over (\d+)'
limit_type = "min"

[risk]
disease_boost = 1.5
`

func alignmentProfile() alignment.PatientProfile {
	return alignment.PatientProfile{Age: 40, EnrollmentDate: "2024-01-01", ApplicationDate: "2024-06-01"}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path    string
		want    Format
		wantErr bool
	}{
		{"vocab.yaml", FormatYAML, false},
		{"vocab.YML", FormatYAML, false},
		{"vocab.toml", FormatTOML, false},
		{"vocab.json", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := FormatOf(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoad_YAML(t *testing.T) {
	tables, err := Load(writeFile(t, "vocab.yaml", yamlTables))
	require.NoError(t, err)

	assert.Equal(t, []string{"reimbursed"}, tables.Vocabulary.Coverage)
	assert.Empty(t, tables.Vocabulary.Exclusion, "unset tables are filled by the engine")
	assert.Equal(t, 0, tables.Vocabulary.ProximityWindow)

	require.Len(t, tables.Patterns.Waiting, 1)
	assert.Equal(t, constraint.UnitDays, tables.Patterns.Waiting[0].Unit)
	assert.True(t, tables.Patterns.Fallback.Disabled)

	assert.InDelta(t, 0.4, tables.Risk.StrongSimilarity, 1e-9)
	assert.InDelta(t, 8.0, tables.Risk.ClausePAI.Saturation, 1e-9)
	assert.InDelta(t, 1.2, tables.Risk.DiseaseBoost, 1e-9, "unset risk values keep defaults")
	assert.InDelta(t, 0.5, tables.Risk.ClausePAI.Conflict, 1e-9)

	// The overridden waiting table drives extraction.
	got := tables.Engine().Evaluate(
		alignmentProfile(),
		[]clause.Clause{{ID: "c1", Text: "Claims are payable after 3 weeks of cover.", SimilarityScore: 0.9}},
		"",
	)
	require.Len(t, got.Constraints, 1)
	wp, ok := got.Constraints[0].AsWaitingPeriod()
	require.True(t, ok)
	assert.Equal(t, 3, wp.PeriodDays)
}

func TestLoad_TOML(t *testing.T) {
	tables, err := Load(writeFile(t, "vocab.toml", tomlTables))
	require.NoError(t, err)

	assert.Equal(t, []string{"carve-out"}, tables.Vocabulary.Exclusion)
	assert.Equal(t, clause.DefaultProximityWindow, tables.Vocabulary.ProximityWindow)
	require.Len(t, tables.Patterns.Age, 1)
	assert.Equal(t, constraint.AgeMin, tables.Patterns.Age[0].LimitType)
	assert.InDelta(t, 1.5, tables.Risk.DiseaseBoost, 1e-9)
	assert.InDelta(t, 0.3, tables.Risk.StrongSimilarity, 1e-9)
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"bad regex", "v.yaml", "constraint:\n  waiting:\n    - name: broken\n      regex: '(\\d+'\n      unit: days\n"},
		{"bad unit", "v.yaml", "constraint:\n  waiting:\n    - name: weeks\n      regex: '(\\d+) weeks'\n      unit: fortnights\n"},
		{"bad limit type", "v.toml", "[[constraint.age]]\nname = \"x\"\nregex = 'over (\\d+)'\nlimit_type = \"exact\"\n"},
		{"threshold out of range", "v.yaml", "risk:\n  satisfied_threshold: 1.5\n"},
		{"unknown toml key", "v.toml", "[clause]\ncoverge = [\"typo\"]\n"},
		{"malformed yaml", "v.yaml", "clause: [unclosed\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			assert.Error(t, err)
		})
	}

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDefaults(t *testing.T) {
	d := Defaults()
	require.NoError(t, d.Validate())
	assert.Equal(t, clause.DefaultVocabulary(), d.Vocabulary)
	assert.NotNil(t, d.Engine())
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeFile(t, "vocab.yaml", "clause:\n  proximity_window: 3\n")

	var (
		mu     sync.Mutex
		loaded []*Tables
		errs   []error
	)
	w, err := NewWatcher(path, zaptest.NewLogger(t), func(tb *Tables) {
		mu.Lock()
		defer mu.Unlock()
		loaded = append(loaded, tb)
	}, WithDebounce(10*time.Millisecond), WithErrorHandler(func(err error) {
		mu.Lock()
		defer mu.Unlock()
		errs = append(errs, err)
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("clause:\n  proximity_window: 2\n"), 0o600))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(loaded) > 0 && loaded[len(loaded)-1].Vocabulary.ProximityWindow == 2
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("risk:\n  saturation: -1\n"), 0o600))
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(errs) > 0
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.ErrorIs(t, errs[len(errs)-1], ErrInvalidTables)
}

func TestWatcher_StopWithoutStart(t *testing.T) {
	w, err := NewWatcher(writeFile(t, "v.yaml", ""), nil, nil)
	require.NoError(t, err)
	w.Stop()

	_, err = NewWatcher("vocab.ini", nil, nil)
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}
