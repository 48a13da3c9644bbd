package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/claimd/internal/disease"
	"github.com/fyrsmithlabs/claimd/internal/evaluation"
	httpserver "github.com/fyrsmithlabs/claimd/internal/http"
	"github.com/fyrsmithlabs/claimd/internal/risk"
)

func newEvaluateCmd() *cobra.Command {
	var (
		file  string
		local bool
	)
	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a claim",
		Long: `Evaluate a claim read from a JSON file.

The file holds the patient profile, the disease and either a policy_id whose
indexed clauses are retrieved by the server or an explicit clauses list.

Examples:
  # Evaluate against the server
  claimctl evaluate -f claim.json

  # Evaluate without a server; the claim must carry its clauses
  claimctl evaluate -f claim.json --local

  # Read the claim from stdin
  cat claim.json | claimctl evaluate -f -`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var req evaluation.ClaimRequest
			if err := decodeInput(file, cmd.InOrStdin(), &req); err != nil {
				return err
			}

			var report *evaluation.ClaimReport
			if local {
				r, err := evaluation.NewService(nil).EvaluateClaim(cmd.Context(), req)
				if err != nil {
					return err
				}
				report = r
			} else {
				report = &evaluation.ClaimReport{}
				if err := call(cmd.Context(), http.MethodPost, "/api/v1/claims/evaluate", req, report); err != nil {
					return err
				}
			}

			if rawJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderClaim(report))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "claim JSON file (- for stdin)")
	cmd.Flags().BoolVar(&local, "local", false, "evaluate in-process instead of calling the server")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newAnalyzeCmd() *cobra.Command {
	var req evaluation.AnalyzeRequest
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Score the clauses indexed for a disease",
		Long: `Retrieve the clauses relevant to a disease and score them in clause mode.

Examples:
  claimctl analyze --disease diabetes_type_2
  claimctl analyze --disease asthma --policy gold-2024 -n 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var report evaluation.ClauseReport
			if err := call(cmd.Context(), http.MethodPost, "/api/v1/clauses/analyze", req, &report); err != nil {
				return err
			}
			if rawJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderAnalysis(&report))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Disease, "disease", "", "catalog disease value")
	cmd.Flags().StringVar(&req.PolicyID, "policy", "", "policy ID to search")
	cmd.Flags().IntVarP(&req.N, "results", "n", 0, "number of clauses to retrieve")
	_ = cmd.MarkFlagRequired("disease")
	return cmd
}

func newDiseasesCmd() *cobra.Command {
	var category string
	cmd := &cobra.Command{
		Use:   "diseases",
		Short: "List the disease catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp httpserver.DiseasesResponse
			if err := call(cmd.Context(), http.MethodGet, "/api/v1/diseases", nil, &resp); err != nil {
				return err
			}
			resp.Diseases = filterCategory(resp.Diseases, category)
			resp.Total = len(resp.Diseases)
			if rawJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderDiseases(resp.Diseases))
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list this category")
	return cmd
}

func filterCategory(all []disease.Disease, category string) []disease.Disease {
	if category == "" {
		return all
	}
	out := make([]disease.Disease, 0, len(all))
	for _, d := range all {
		if strings.EqualFold(d.Category, category) {
			out = append(out, d)
		}
	}
	return out
}

func newIndexCmd() *cobra.Command {
	var (
		file     string
		policyID string
		replace  bool
	)
	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index policy passages",
		Long: `Add policy passages to the server's clause index.

The file is either an index request ({"policy_id": ..., "passages": [...]})
or a bare array of passages, in which case --policy is required.

Examples:
  claimctl index -f gold-2024.json
  claimctl index -f passages.json --policy gold-2024 --replace`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := readInput(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			req, err := parseIndexRequest(content)
			if err != nil {
				return err
			}
			if policyID != "" {
				req.PolicyID = policyID
			}
			if replace {
				req.Replace = true
			}
			if req.PolicyID == "" {
				return fmt.Errorf("a policy ID is required (set policy_id or --policy)")
			}

			var report evaluation.IndexReport
			if err := call(cmd.Context(), http.MethodPost, "/api/v1/clauses/index", req, &report); err != nil {
				return err
			}
			if rawJSON {
				return printJSON(cmd.OutOrStdout(), report)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Indexed %d passage(s) for policy %s\n", len(report.IDs), report.PolicyID)
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "passages JSON file (- for stdin)")
	cmd.Flags().StringVar(&policyID, "policy", "", "policy ID, overriding the file")
	cmd.Flags().BoolVar(&replace, "replace", false, "clear the policy's passages first")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newClausesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clauses",
		Short: "Manage indexed policy clauses",
	}
	cmd.AddCommand(newClausesClearCmd())
	return cmd
}

func newClausesClearCmd() *cobra.Command {
	var policyID string
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every indexed passage for a policy",
		Long: `Remove every passage the server has indexed for a policy.

Examples:
  claimctl clauses clear --policy gold-2024`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if strings.TrimSpace(policyID) == "" {
				return fmt.Errorf("a policy ID is required")
			}
			var resp struct {
				PolicyID string `json:"policy_id"`
				Cleared  bool   `json:"cleared"`
			}
			body := map[string]string{"policy_id": policyID}
			if err := call(cmd.Context(), http.MethodPost, "/api/v1/clauses/clear", body, &resp); err != nil {
				return err
			}
			if rawJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared policy %s\n", resp.PolicyID)
			return nil
		},
	}
	cmd.Flags().StringVar(&policyID, "policy", "", "policy ID to clear")
	_ = cmd.MarkFlagRequired("policy")
	return cmd
}

func parseIndexRequest(content []byte) (evaluation.IndexRequest, error) {
	var req evaluation.IndexRequest
	trimmed := strings.TrimSpace(string(content))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(content, &req.Passages); err != nil {
			return req, fmt.Errorf("failed to parse passages: %w", err)
		}
		return req, nil
	}
	if err := json.Unmarshal(content, &req); err != nil {
		return req, fmt.Errorf("failed to parse index request: %w", err)
	}
	return req, nil
}

func newScoreCmd() *cobra.Command {
	var (
		file        string
		diseaseName string
	)
	cmd := &cobra.Command{
		Use:   "score",
		Short: "Compute risk scores for clause or alignment records",
		Long: `Compute the CDS, ERG and PAI scores for a JSON array of records.

Records with a "constraint" field are scored as alignments, others as
clauses.

Examples:
  claimctl score -f clauses.json --disease "Diabetes Type 2"`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			content, err := readInput(file, cmd.InOrStdin())
			if err != nil {
				return err
			}
			path := "/api/v1/scores"
			if diseaseName != "" {
				path += "?disease=" + url.QueryEscape(diseaseName)
			}
			var scores risk.Scores
			if err := call(cmd.Context(), http.MethodPost, path, json.RawMessage(content), &scores); err != nil {
				return err
			}
			if rawJSON {
				return printJSON(cmd.OutOrStdout(), scores)
			}
			fmt.Fprint(cmd.OutOrStdout(), renderScores(scores))
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "records JSON file (- for stdin)")
	cmd.Flags().StringVar(&diseaseName, "disease", "", "disease used for boosting")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check claimd server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp httpserver.HealthResponse
			if err := call(cmd.Context(), http.MethodGet, "/health", nil, &resp); err != nil {
				return err
			}
			if rawJSON {
				return printJSON(cmd.OutOrStdout(), resp)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Server Status: %s\n", resp.Status)
			if resp.Version != "" {
				fmt.Fprintf(out, "Version: %s\n", resp.Version)
			}
			fmt.Fprintf(out, "Server URL: %s\n", serverURL)
			if resp.Telemetry != nil {
				for _, r := range resp.Telemetry.Reasons {
					fmt.Fprintf(out, "Telemetry: %s\n", r)
				}
			}
			return nil
		},
	}
}
