package alignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/claimd/internal/constraint"
)

var base = constraint.Base{ClauseID: "clause_1", Page: 1, SimilarityScore: 0.5}

func profile(age, days int, conditions ...string) PatientProfile {
	enrolled := "2023-01-01"
	applied := addDays(enrolled, days)
	return PatientProfile{Age: age, PreExistingConditions: conditions, EnrollmentDate: enrolled, ApplicationDate: applied}
}

func addDays(date string, days int) string {
	t, _ := parseDate(date)
	return t.AddDate(0, 0, days).Format(DateLayout)
}

func waiting(days int) constraint.Constraint {
	return constraint.NewWaitingPeriod(base, constraint.WaitingPeriod{
		Condition: constraint.GeneralCondition, PeriodValue: days, PeriodUnit: constraint.UnitDays, PeriodDays: days,
	})
}

func preExisting(positive bool, waitingDays *int, conditions ...string) constraint.Constraint {
	return constraint.NewPreExisting(base, constraint.PreExisting{
		Conditions: conditions, WaitingPeriodDays: waitingDays, IsPositive: positive,
	})
}

func TestPatientProfile_DaysSinceEnrollment(t *testing.T) {
	tests := []struct {
		name     string
		enrolled string
		applied  string
		want     int
	}{
		{"normal", "2022-01-01", "2024-03-11", 800},
		{"same day", "2024-05-05", "2024-05-05", 0},
		{"application before enrollment", "2024-05-05", "2024-01-01", 0},
		{"unparseable enrollment", "05/05/2024", "2024-06-01", 0},
		{"empty application", "2024-05-05", "", 0},
		{"leap year", "2024-02-28", "2024-03-01", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := PatientProfile{EnrollmentDate: tt.enrolled, ApplicationDate: tt.applied}
			assert.Equal(t, tt.want, p.DaysSinceEnrollment())
		})
	}
}

func TestAligner_WaitingPeriod(t *testing.T) {
	a := NewAligner()

	al, ok := a.AlignOne(profile(40, 800), waiting(730))
	require.True(t, ok)
	assert.Equal(t, 1.0, al.AlignmentScore)
	assert.False(t, al.Contradiction)
	assert.Zero(t, al.RiskLevel)

	al, _ = a.AlignOne(profile(40, 365), waiting(730))
	assert.True(t, al.Contradiction)
	assert.InDelta(t, 0.5, al.AlignmentScore, 1e-9)
	assert.InDelta(t, 0.5, al.RiskLevel, 1e-9)
	assert.Equal(t, "Waiting period not met: 365/730 days", al.ContradictionReason)

	al, _ = a.AlignOne(profile(40, 0), waiting(0))
	assert.False(t, al.Contradiction, "a zero-day period is always met")
}

func TestAligner_AgeLimit(t *testing.T) {
	tests := []struct {
		name   string
		age    int
		limit  constraint.AgeLimit
		score  float64
		reason string
	}{
		{"max exceeded", 70, constraint.AgeLimit{LimitType: constraint.AgeMax, MaxAge: constraint.IntPtr(65)}, 65.0 / 70.0, "Age 70 exceeds maximum 65"},
		{"max met", 65, constraint.AgeLimit{LimitType: constraint.AgeMax, MaxAge: constraint.IntPtr(65)}, 1, ""},
		{"min violated", 15, constraint.AgeLimit{LimitType: constraint.AgeMin, MinAge: constraint.IntPtr(18)}, 15.0 / 18.0, "Age 15 below minimum 18"},
		{"range below", 9, constraint.AgeLimit{LimitType: constraint.AgeRange, MinAge: constraint.IntPtr(18), MaxAge: constraint.IntPtr(60)}, 0.5, "Age 9 below range 18-60"},
		{"range above", 75, constraint.AgeLimit{LimitType: constraint.AgeRange, MinAge: constraint.IntPtr(18), MaxAge: constraint.IntPtr(60)}, 0.8, "Age 75 above range 18-60"},
		{"range inside", 30, constraint.AgeLimit{LimitType: constraint.AgeRange, MinAge: constraint.IntPtr(18), MaxAge: constraint.IntPtr(60)}, 1, ""},
		{"zero minimum", 0, constraint.AgeLimit{LimitType: constraint.AgeMin, MinAge: constraint.IntPtr(0)}, 1, ""},
		{"missing bound", 99, constraint.AgeLimit{LimitType: constraint.AgeMax}, 1, ""},
	}

	a := NewAligner()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := constraint.NewAgeLimit(base, tt.limit)
			al, ok := a.AlignOne(profile(tt.age, 100), c)
			require.True(t, ok)

			assert.InDelta(t, tt.score, al.AlignmentScore, 1e-4)
			assert.Equal(t, tt.reason, al.ContradictionReason)
			assert.Equal(t, tt.reason != "", al.Contradiction)
			if al.Contradiction {
				assert.InDelta(t, 1-al.AlignmentScore, al.RiskLevel, 1e-9)
			}
		})
	}
}

func TestAligner_PreExistingExclusionary(t *testing.T) {
	a := NewAligner()

	al, _ := a.AlignOne(profile(40, 100, "Asthma"), preExisting(false, nil, "diabetes"))
	assert.False(t, al.Contradiction, "non-matching condition is irrelevant")
	assert.Equal(t, 1.0, al.AlignmentScore)

	al, _ = a.AlignOne(profile(40, 100, "Type 2 Diabetes"), preExisting(false, nil, "diabetes"))
	assert.True(t, al.Contradiction)
	assert.Zero(t, al.AlignmentScore)
	assert.Equal(t, 1.0, al.RiskLevel)
	assert.Equal(t, "Pre-existing condition 'diabetes' excluded", al.ContradictionReason)

	al, _ = a.AlignOne(profile(40, 360, "diabetes"), preExisting(false, constraint.IntPtr(1440), "any"))
	assert.True(t, al.Contradiction)
	assert.InDelta(t, 0.25, al.AlignmentScore, 1e-9)
	assert.InDelta(t, 0.75, al.RiskLevel, 1e-9)
	assert.Equal(t, "Pre-existing condition waiting period not met: 360/1440 days", al.ContradictionReason)

	al, _ = a.AlignOne(profile(40, 1500, "diabetes"), preExisting(false, constraint.IntPtr(1440), "diabetes"))
	assert.False(t, al.Contradiction)
	assert.Equal(t, "Pre-existing waiting period satisfied (1500/1440 days)", al.ContradictionReason)

	al, _ = a.AlignOne(profile(40, 10, "diabetes"), preExisting(false, constraint.IntPtr(0), "diabetes"))
	assert.True(t, al.Contradiction, "zero waiting days counts as unspecified")
	assert.Equal(t, 1.0, al.RiskLevel)
}

func TestAligner_PreExistingPositive(t *testing.T) {
	a := NewAligner()

	al, _ := a.AlignOne(profile(40, 360, "asthma"), preExisting(true, constraint.IntPtr(720), "any"))
	assert.False(t, al.Contradiction)
	assert.InDelta(t, 0.5, al.AlignmentScore, 1e-9)
	assert.Zero(t, al.RiskLevel, "an immature waiver is informative only")
	assert.Empty(t, al.ContradictionReason)

	al, _ = a.AlignOne(profile(40, 800, "asthma"), preExisting(true, constraint.IntPtr(720), "asthma"))
	assert.Equal(t, 1.0, al.AlignmentScore)
	assert.Equal(t, "Pre-existing waiting period satisfied (800/720 days)", al.ContradictionReason)

	al, _ = a.AlignOne(profile(40, 10, "asthma"), preExisting(true, nil, "asthma"))
	assert.Equal(t, 1.0, al.AlignmentScore)
	assert.False(t, al.Contradiction)

	al, _ = a.AlignOne(profile(40, 10), preExisting(true, constraint.IntPtr(720), "copd"))
	assert.Equal(t, 1.0, al.AlignmentScore)
}

func TestAligner_SkipsDiseaseCoverage(t *testing.T) {
	a := NewAligner()
	dc := constraint.NewDiseaseCoverage(base, constraint.DiseaseCoverage{Disease: "Asthma", IsCovered: false})

	_, ok := a.AlignOne(profile(40, 10), dc)
	assert.False(t, ok)

	_, ok = a.AlignOne(profile(40, 10), constraint.Constraint{Kind: "copay"})
	assert.False(t, ok)

	got := a.Align(profile(40, 10), []constraint.Constraint{dc, waiting(5)})
	require.Len(t, got, 1)
	assert.Equal(t, constraint.KindWaitingPeriod, got[0].Constraint.Kind)
}

func TestAligner_Invariants(t *testing.T) {
	constraints := []constraint.Constraint{
		waiting(30), waiting(5000),
		constraint.NewAgeLimit(base, constraint.AgeLimit{LimitType: constraint.AgeMax, MaxAge: constraint.IntPtr(30)}),
		preExisting(false, nil, "any"),
		preExisting(true, constraint.IntPtr(4000), "any"),
		preExisting(false, constraint.IntPtr(4000), "asthma"),
	}
	a := NewAligner()

	for _, al := range a.Align(profile(45, 400, "asthma"), constraints) {
		assert.GreaterOrEqual(t, al.AlignmentScore, 0.0)
		assert.LessOrEqual(t, al.AlignmentScore, 1.0)
		if al.Contradiction {
			assert.InDelta(t, 1-al.AlignmentScore, al.RiskLevel, 1e-9)
		} else {
			assert.Zero(t, al.RiskLevel)
		}
	}
}

func TestAligner_NegativeAgeStaysInRange(t *testing.T) {
	constraints := []constraint.Constraint{
		constraint.NewAgeLimit(base, constraint.AgeLimit{LimitType: constraint.AgeMin, MinAge: constraint.IntPtr(18)}),
		constraint.NewAgeLimit(base, constraint.AgeLimit{LimitType: constraint.AgeRange, MinAge: constraint.IntPtr(18), MaxAge: constraint.IntPtr(65)}),
		constraint.NewAgeLimit(base, constraint.AgeLimit{LimitType: constraint.AgeMax, MaxAge: constraint.IntPtr(-3)}),
	}

	got := NewAligner().Align(profile(-5, 10), constraints)
	require.Len(t, got, 3)
	for _, al := range got[:2] {
		assert.True(t, al.Contradiction)
		assert.Zero(t, al.AlignmentScore)
		assert.Equal(t, 1.0, al.RiskLevel)
	}
	assert.GreaterOrEqual(t, got[2].AlignmentScore, 0.0)
	assert.LessOrEqual(t, got[2].RiskLevel, 1.0)
}

func TestAligner_Evaluate(t *testing.T) {
	constraints := []constraint.Constraint{
		waiting(730),
		constraint.NewAgeLimit(base, constraint.AgeLimit{LimitType: constraint.AgeMax, MaxAge: constraint.IntPtr(65)}),
		waiting(30),
	}

	res := NewAligner().Evaluate(profile(70, 365), constraints)

	assert.Equal(t, 3, res.TotalConstraints)
	assert.Equal(t, 2, res.ContradictionCount)
	require.Len(t, res.ByType, 2)

	wp := res.ByType[constraint.KindWaitingPeriod]
	assert.Equal(t, 2, wp.Total)
	assert.Equal(t, 1, wp.Contradictions)
	assert.InDelta(t, 0.25, wp.AvgRisk, 1e-9)
	assert.Len(t, wp.Alignments, 2)

	assert.InDelta(t, 1.0/3.0, res.Overall.CDS, 1e-9)
	assert.InDelta(t, 2.0/3.0, res.Overall.ContradictionRate, 1e-9)
	assert.InDelta(t, (0.5+5.0/70.0)/3, res.Overall.ERG, 1e-9)
	assert.InDelta(t, 0.65, res.Overall.PAI, 1e-9)
}

func TestOverallScores_Empty(t *testing.T) {
	assert.Equal(t, Overall{}, OverallScores(nil, GroupByType(nil)))

	res := NewAligner().Evaluate(profile(30, 10), nil)
	assert.Empty(t, res.Alignments)
	assert.Zero(t, res.TotalConstraints)
}
