package disease

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalog(t *testing.T) {
	all := All()
	require.Len(t, all, 24)
	assert.Equal(t, "diabetes_type_2", all[0].Value)
	assert.Equal(t, "migraine_chronic", all[23].Value)

	seen := map[string]bool{}
	for _, d := range all {
		assert.False(t, seen[d.Value], "duplicate value %s", d.Value)
		seen[d.Value] = true
		assert.NotEmpty(t, d.Label)
		assert.NotEmpty(t, d.Category)
	}

	all[0].Label = "mutated"
	assert.Equal(t, "Diabetes Type 2", All()[0].Label)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  Disease
	}{
		{"known", "copd", Disease{"copd", "COPD", "Respiratory"}},
		{"unknown", "Hernia", Disease{"Hernia", "Hernia", GeneralCategory}},
		{"blank", "  ", Disease{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.value))
		})
	}

	_, ok := Lookup("Hernia")
	assert.False(t, ok)
}

func TestQueries(t *testing.T) {
	d, ok := Lookup("asthma")
	require.True(t, ok)

	qs := Queries(d)
	assert.Len(t, qs, 28)
	assert.Equal(t, "Asthma coverage", qs[0])
	assert.Contains(t, qs, "is Asthma covered by this insurance")
	assert.Contains(t, qs, "Asthma Respiratory condition")
	assert.Contains(t, qs, "Respiratory disease Asthma coverage")
	assert.Equal(t, "hospitalization for Asthma", qs[len(qs)-1])

	assert.Equal(t,
		"Asthma Respiratory medical condition coverage exclusion treatment policy benefits claim waiting period pre-existing",
		SummaryQuery(d))
	assert.Contains(t, SummaryQuery(Disease{Label: "Gout"}), "Gout General medical")
}
