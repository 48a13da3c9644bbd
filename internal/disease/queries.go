package disease

import "fmt"

// SummaryWeight is the weight of SummaryQuery when query embeddings are
// averaged; every other query has weight 1.
const SummaryWeight = 2.0

var (
	baseTemplates = []string{
		"%[1]s coverage",
		"%[1]s exclusion",
		"%[1]s waiting period",
		"%[1]s pre-existing condition",
		"%[1]s treatment",
		"%[1]s benefits",
		"%[1]s claim",
	}
	questionTemplates = []string{
		"is %[1]s covered by this insurance",
		"does this policy cover %[1]s",
		"are there any exclusions for %[1]s",
		"what is the waiting period for %[1]s",
		"how to claim for %[1]s treatment",
		"is %[1]s considered a pre-existing condition",
		"what treatments are covered for %[1]s",
		"are there any limitations for %[1]s",
		"can i get coverage for %[1]s",
		"will my policy pay for %[1]s",
	}
	categoryTemplates = []string{
		"%[1]s %[2]s condition",
		"%[2]s disease %[1]s coverage",
		"treatment for %[1]s %[2]s disorder",
		"%[1]s %[2]s medical expenses",
	}
	policyTemplates = []string{
		"with respect to %[1]s",
		"in the event of %[1]s",
		"should the insured develop %[1]s",
		"diagnosis of %[1]s",
		"treatment of %[1]s",
		"expenses related to %[1]s",
		"hospitalization for %[1]s",
	}
)

// Queries returns the retrieval phrasings for d in a stable order with
// duplicates removed: base, question, category then policy-language forms.
func Queries(d Disease) []string {
	category := d.Category
	if category == "" {
		category = GeneralCategory
	}

	var out []string
	seen := make(map[string]struct{})
	for _, group := range [][]string{baseTemplates, questionTemplates, categoryTemplates, policyTemplates} {
		for _, tmpl := range group {
			q := fmt.Sprintf(tmpl, d.Label, category)
			if _, dup := seen[q]; dup {
				continue
			}
			seen[q] = struct{}{}
			out = append(out, q)
		}
	}
	return out
}

// SummaryQuery is the single comprehensive query that dominates the
// averaged retrieval embedding.
func SummaryQuery(d Disease) string {
	category := d.Category
	if category == "" {
		category = GeneralCategory
	}
	return fmt.Sprintf("%s %s medical condition coverage exclusion treatment policy benefits claim waiting period pre-existing", d.Label, category)
}
