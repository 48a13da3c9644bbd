package constraint

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleConstraints() []Constraint {
	b := Base{ClauseID: "clause_1", ClauseText: "text", Page: 3, SimilarityScore: 0.72}
	return []Constraint{
		NewWaitingPeriod(b, WaitingPeriod{Condition: "diabetes", PeriodValue: 2, PeriodUnit: UnitYears, PeriodDays: 730}),
		NewAgeLimit(b, AgeLimit{LimitType: AgeMax, MaxAge: IntPtr(65)}),
		NewAgeLimit(b, AgeLimit{LimitType: AgeRange, MinAge: IntPtr(18), MaxAge: IntPtr(65)}),
		NewPreExisting(b, PreExisting{Conditions: []string{"asthma", "copd"}, WaitingPeriodDays: IntPtr(1440), IsPositive: true}),
		NewPreExisting(b, PreExisting{Conditions: []string{"any"}}),
		NewDiseaseCoverage(b, DiseaseCoverage{Disease: "Asthma", IsCovered: false, Restrictions: []string{"Exclusion: exclu", "Conditional coverage"}}),
		NewDiseaseCoverage(b, DiseaseCoverage{Disease: "Asthma", IsCovered: true}),
	}
}

func TestConstraint_RecordRoundTrip(t *testing.T) {
	for _, c := range sampleConstraints() {
		t.Run(string(c.Kind), func(t *testing.T) {
			got, err := FromRecord(c.ToRecord())
			require.NoError(t, err)
			assert.Equal(t, c, got)
		})
	}
}

func TestConstraint_JSONRoundTrip(t *testing.T) {
	for _, c := range sampleConstraints() {
		t.Run(string(c.Kind), func(t *testing.T) {
			data, err := json.Marshal(c)
			require.NoError(t, err)

			var got Constraint
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, c, got)
		})
	}
}

func TestConstraint_JSONWireNames(t *testing.T) {
	c := NewWaitingPeriod(Base{ClauseID: "clause_2"}, WaitingPeriod{Condition: "general", PeriodValue: 30, PeriodUnit: UnitDays, PeriodDays: 30})

	data, err := json.Marshal(c)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "waiting_period", raw["type"])
	assert.Equal(t, "clause_2", raw["clause_id"])
	assert.Equal(t, "days", raw["period_unit"])
	assert.EqualValues(t, 30, raw["period_days"])
	assert.NotContains(t, raw, "limit_type")
	assert.NotContains(t, raw, "is_covered")
}

func TestConstraint_JSONEmptyLists(t *testing.T) {
	tests := []struct {
		name   string
		c      Constraint
		key    string
		absent string
	}{
		{"pre-existing conditions", NewPreExisting(Base{}, PreExisting{}), "conditions", "restrictions"},
		{"coverage restrictions", NewDiseaseCoverage(Base{}, DiseaseCoverage{Disease: "Asthma", IsCovered: true}), "restrictions", "conditions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.c)
			require.NoError(t, err)

			var raw map[string]any
			require.NoError(t, json.Unmarshal(data, &raw))
			assert.Equal(t, []any{}, raw[tt.key])
			assert.NotContains(t, raw, tt.absent)

			var got Constraint
			require.NoError(t, json.Unmarshal(data, &got))
			assert.Equal(t, tt.c, got)
		})
	}

	data, err := json.Marshal(NewWaitingPeriod(Base{}, WaitingPeriod{PeriodUnit: UnitDays}))
	require.NoError(t, err)
	assert.NotContains(t, string(data), "conditions")
	assert.NotContains(t, string(data), "restrictions")
}

func TestFromRecord_Errors(t *testing.T) {
	_, err := FromRecord(Record{Type: "copay"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownKind)

	_, err = FromRecord(Record{Type: KindAgeLimit, ClauseID: "clause_9"})
	assert.Error(t, err)
}

func TestFromRecord_WaitingDefaults(t *testing.T) {
	unit := UnitMonths
	value := 3
	c, err := FromRecord(Record{Type: KindWaitingPeriod, PeriodUnit: &unit, PeriodValue: &value})
	require.NoError(t, err)

	w, ok := c.AsWaitingPeriod()
	require.True(t, ok)
	assert.Equal(t, GeneralCondition, w.Condition)
	assert.Equal(t, 90, w.PeriodDays)
}

func TestConstraint_Accessors(t *testing.T) {
	c := NewAgeLimit(Base{}, AgeLimit{LimitType: AgeMin, MinAge: IntPtr(18)})

	_, ok := c.AsWaitingPeriod()
	assert.False(t, ok)
	_, ok = c.AsPreExisting()
	assert.False(t, ok)
	_, ok = c.AsDiseaseCoverage()
	assert.False(t, ok)

	a, ok := c.AsAgeLimit()
	require.True(t, ok)
	*a.MinAge = 99

	again, _ := c.AsAgeLimit()
	assert.Equal(t, 18, *again.MinAge, "accessor must not expose internal state")
	assert.Equal(t, GeneralCondition, c.Condition())
}

func TestKind_Valid(t *testing.T) {
	for _, k := range Kinds() {
		assert.True(t, k.Valid(), k)
	}
	assert.False(t, Kind("copay").Valid())
}

func TestUnit_Days(t *testing.T) {
	assert.Equal(t, 15, UnitDays.Days(15))
	assert.Equal(t, 1440, UnitMonths.Days(48))
	assert.Equal(t, 730, UnitYears.Days(2))
}
