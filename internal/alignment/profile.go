package alignment

import "time"

// DateLayout is the accepted format for profile dates.
const DateLayout = "2006-01-02"

// PatientProfile describes the claimant.
type PatientProfile struct {
	Age                   int      `json:"age"`
	PreExistingConditions []string `json:"pre_existing_conditions"`
	EnrollmentDate        string   `json:"enrollment_date"`
	ApplicationDate       string   `json:"application_date"`
	PolicyID              string   `json:"policy_id,omitempty"`
}

// DaysSinceEnrollment returns the whole days between enrollment and
// application. Negative spans and unparseable dates yield 0.
func (p PatientProfile) DaysSinceEnrollment() int {
	enrolled, err := parseDate(p.EnrollmentDate)
	if err != nil {
		return 0
	}
	applied, err := parseDate(p.ApplicationDate)
	if err != nil {
		return 0
	}
	return max(0, int(applied.Sub(enrolled).Hours()/24))
}

// ProfileView is the wire form of a profile, including the derived day count.
type ProfileView struct {
	PatientProfile
	DaysSinceEnrollment int `json:"days_since_enrollment"`
}

// View returns the profile with its derived fields.
func (p PatientProfile) View() ProfileView {
	return ProfileView{PatientProfile: p, DaysSinceEnrollment: p.DaysSinceEnrollment()}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}
