// Package disease holds the catalog of diseases a claim can be filed for and
// the retrieval phrasing generated for each one.
package disease

import "strings"

// GeneralCategory is assigned to diseases that are not in the catalog.
const GeneralCategory = "General"

// Disease is a catalog entry.
type Disease struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Category string `json:"category"`
}

var catalog = []Disease{
	{"diabetes_type_2", "Diabetes Type 2", "Endocrine"},
	{"hypertension", "Hypertension", "Cardiovascular"},
	{"coronary_artery_disease", "Coronary Artery Disease", "Cardiovascular"},
	{"copd", "COPD", "Respiratory"},
	{"asthma", "Asthma", "Respiratory"},
	{"arthritis_rheumatoid", "Rheumatoid Arthritis", "Autoimmune"},
	{"osteoarthritis", "Osteoarthritis", "Musculoskeletal"},
	{"chronic_kidney_disease", "Chronic Kidney Disease", "Renal"},
	{"breast_cancer", "Breast Cancer", "Oncology"},
	{"lung_cancer", "Lung Cancer", "Oncology"},
	{"prostate_cancer", "Prostate Cancer", "Oncology"},
	{"alzheimers", "Alzheimer's Disease", "Neurological"},
	{"parkinsons", "Parkinson's Disease", "Neurological"},
	{"multiple_sclerosis", "Multiple Sclerosis", "Neurological"},
	{"depression_major", "Major Depression", "Mental Health"},
	{"anxiety_disorder", "Anxiety Disorder", "Mental Health"},
	{"bipolar_disorder", "Bipolar Disorder", "Mental Health"},
	{"crohns_disease", "Crohn's Disease", "Gastrointestinal"},
	{"ulcerative_colitis", "Ulcerative Colitis", "Gastrointestinal"},
	{"hepatitis_c", "Hepatitis C", "Infectious"},
	{"hiv_aids", "HIV/AIDS", "Infectious"},
	{"thyroid_disorders", "Thyroid Disorders", "Endocrine"},
	{"sleep_apnea", "Sleep Apnea", "Respiratory"},
	{"migraine_chronic", "Chronic Migraine", "Neurological"},
}

var byValue = func() map[string]Disease {
	m := make(map[string]Disease, len(catalog))
	for _, d := range catalog {
		m[d.Value] = d
	}
	return m
}()

// All returns a copy of the catalog in its canonical order.
func All() []Disease {
	out := make([]Disease, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup finds a catalog entry by value.
func Lookup(value string) (Disease, bool) {
	d, ok := byValue[value]
	return d, ok
}

// Resolve returns the catalog entry for value, or an ad-hoc entry labelled
// with value itself in GeneralCategory. Blank values resolve to the zero
// Disease.
func Resolve(value string) Disease {
	if d, ok := Lookup(value); ok {
		return d
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return Disease{}
	}
	return Disease{Value: value, Label: value, Category: GeneralCategory}
}
