package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/claimd/internal/decision"
	"github.com/fyrsmithlabs/claimd/internal/disease"
	"github.com/fyrsmithlabs/claimd/internal/evaluation"
	"github.com/fyrsmithlabs/claimd/internal/risk"
)

var (
	acceptedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("46")).
			Padding(0, 2)

	rejectedStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("231")).
			Background(lipgloss.Color("196")).
			Padding(0, 2)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Width(14)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(0, 1)
)

// verdictBanner renders the decision as a colored badge.
func verdictBanner(d decision.Decision) string {
	if d == decision.Accepted {
		return acceptedStyle.Render(string(d))
	}
	return rejectedStyle.Render(string(d))
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func renderClaim(r *evaluation.ClaimReport) string {
	if r == nil || r.Evaluation == nil {
		return "no evaluation returned\n"
	}
	var b strings.Builder
	b.WriteString(verdictBanner(r.Decision))
	b.WriteString("\n\n")

	lines := []string{
		row("Evaluation", r.EvaluationID),
		row("Disease", fmt.Sprintf("%s (%s)", r.Disease, r.DiseaseCategory)),
		row("Reason", r.Reason),
		row("Confidence", fmt.Sprintf("%.2f", r.Confidence)),
		row("Clauses", fmt.Sprintf("%d", r.Summary.TotalClauses)),
		row("Constraints", fmt.Sprintf("%d", r.Summary.TotalConstraints)),
	}
	if r.PolicyID != "" {
		lines = append([]string{row("Policy", r.PolicyID)}, lines...)
	}
	b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
	b.WriteString("\n\n")

	b.WriteString(renderScores(r.Scores))

	var contradictions []string
	for _, a := range r.Alignment.Alignments {
		if a.Contradiction {
			contradictions = append(contradictions, warningStyle.Render("✗ ")+a.ContradictionReason)
		}
	}
	if len(contradictions) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Contradictions"))
		b.WriteString("\n")
		b.WriteString(strings.Join(contradictions, "\n"))
		b.WriteString("\n")
	}
	return b.String()
}

func renderScores(s risk.Scores) string {
	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("Scores (%s mode)", s.Mode)))
	b.WriteString("\n")
	b.WriteString(row("CDS", fmt.Sprintf("%.3f", s.CDS)) + "\n")
	b.WriteString(row("ERG", fmt.Sprintf("%.3f", s.ERG)) + "\n")
	b.WriteString(row("PAI", fmt.Sprintf("%.3f", s.PAI)) + "\n")
	return b.String()
}

func renderAnalysis(r *evaluation.ClauseReport) string {
	if r == nil || r.ClauseAnalysis == nil {
		return "no analysis returned\n"
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("%s (%s)", r.Disease, r.DiseaseCategory)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d clause(s) found", r.TotalClausesFound)))
	b.WriteString("\n\n")
	b.WriteString(renderScores(r.Scores))

	if len(r.Clauses) > 0 {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render("Clauses"))
		b.WriteString("\n")
		for _, c := range r.Clauses {
			b.WriteString(fmt.Sprintf("%s %s %s\n",
				dimStyle.Render(fmt.Sprintf("[%.2f]", c.SimilarityScore)),
				labelStyle.Render(string(c.Category)),
				truncate(c.Text, 80),
			))
		}
	}
	return b.String()
}

func renderDiseases(all []disease.Disease) string {
	var b strings.Builder
	category := ""
	for _, d := range all {
		if d.Category != category {
			if category != "" {
				b.WriteString("\n")
			}
			category = d.Category
			b.WriteString(sectionStyle.Render(category))
			b.WriteString("\n")
		}
		b.WriteString(fmt.Sprintf("  %s %s\n", labelStyle.Width(24).Render(d.Value), d.Label))
	}
	b.WriteString(dimStyle.Render(fmt.Sprintf("%d disease(s)", len(all))))
	b.WriteString("\n")
	return b.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
