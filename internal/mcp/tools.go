package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/claimd/internal/alignment"
	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/disease"
	"github.com/fyrsmithlabs/claimd/internal/evaluation"
	"github.com/fyrsmithlabs/claimd/internal/retrieval"
)

// Tool names.
const (
	ToolEvaluateClaim  = "evaluate_claim"
	ToolAnalyzeClauses = "analyze_clauses"
	ToolScoreRecords   = "score_records"
	ToolIndexPolicy    = "index_policy"
	ToolClearPolicy    = "clear_policy"
	ToolListDiseases   = "list_diseases"
	ToolSearch         = "tool_search"
	ToolList           = "tool_list"
)

// register records metadata for a tool and adds it to the MCP server.
func register[In, Out any](s *Server, meta *ToolMetadata, h mcp.ToolHandlerFor[In, Out]) error {
	if err := s.toolRegistry.Register(meta); err != nil {
		return err
	}
	mcp.AddTool(s.mcp, &mcp.Tool{Name: meta.Name, Description: meta.Description}, instrument(s, meta.Name, h))
	return nil
}

// instrument wraps a handler with invocation metrics and a debug log.
func instrument[In, Out any](s *Server, name string, h mcp.ToolHandlerFor[In, Out]) mcp.ToolHandlerFor[In, Out] {
	return func(ctx context.Context, req *mcp.CallToolRequest, in In) (*mcp.CallToolResult, Out, error) {
		start := time.Now()
		s.metrics.IncrementActive(ctx, name)
		res, out, err := h(ctx, req, in)
		s.metrics.DecrementActive(ctx, name)
		s.metrics.RecordInvocation(ctx, name, time.Since(start), err)
		if err != nil {
			s.logger.Warn(ctx, "tool call failed", zap.String("tool", name), zap.Error(err))
		} else {
			s.logger.Debug(ctx, "tool call", zap.String("tool", name), zap.Duration("duration", time.Since(start)))
		}
		return res, out, err
	}
}

func (s *Server) registerTools() error {
	tools := []func() error{
		func() error {
			return register(s, &ToolMetadata{
				Name:        ToolEvaluateClaim,
				Description: "Decide whether a health insurance claim is ACCEPTED or REJECTED. Supply policy clauses directly, or a policy_id whose clauses were indexed.",
				Category:    CategoryEvaluation,
				Keywords:    []string{"claim", "verdict", "decision", "patient"},
			}, s.handleEvaluateClaim)
		},
		func() error {
			return register(s, &ToolMetadata{
				Name:        ToolAnalyzeClauses,
				Description: "Categorize policy clauses for a catalog disease and score coverage (CDS), exclusion risk (ERG) and policy ambiguity (PAI).",
				Category:    CategoryClauses,
				Keywords:    []string{"coverage", "exclusion", "ambiguity", "cds", "erg", "pai"},
			}, s.handleAnalyzeClauses)
		},
		func() error {
			return register(s, &ToolMetadata{
				Name:        ToolScoreRecords,
				Description: "Score raw clause records or alignment records. The mode is detected from the first record.",
				Category:    CategoryClauses,
				Keywords:    []string{"score", "alignment", "risk"},
			}, s.handleScoreRecords)
		},
		func() error {
			return register(s, &ToolMetadata{
				Name:        ToolIndexPolicy,
				Description: "Index policy document passages so later evaluations can retrieve them by policy_id.",
				Category:    CategoryClauses,
				Keywords:    []string{"index", "embed", "policy", "document"},
			}, s.handleIndexPolicy)
		},
		func() error {
			return register(s, &ToolMetadata{
				Name:        ToolClearPolicy,
				Description: "Remove every indexed passage for a policy_id.",
				Category:    CategoryClauses,
				Keywords:    []string{"clear", "delete", "policy", "reindex"},
			}, s.handleClearPolicy)
		},
		func() error {
			return register(s, &ToolMetadata{
				Name:        ToolListDiseases,
				Description: "List the supported diseases with their catalog value and category.",
				Category:    CategoryCatalog,
				Keywords:    []string{"disease", "catalog", "condition"},
			}, s.handleListDiseases)
		},
		func() error {
			return register(s, &ToolMetadata{
				Name:        ToolSearch,
				Description: "Search the available tools by name, description or keyword. Accepts regular expressions.",
				Category:    CategorySearch,
			}, s.handleToolSearch)
		},
		func() error {
			return register(s, &ToolMetadata{
				Name:        ToolList,
				Description: "List every available tool, optionally within one category.",
				Category:    CategorySearch,
			}, s.handleToolList)
		},
	}
	for _, reg := range tools {
		if err := reg(); err != nil {
			return err
		}
	}
	return nil
}

// ===== EVALUATION =====

type patientInput struct {
	Age                   int      `json:"age" jsonschema:"Patient age in years"`
	PreExistingConditions []string `json:"pre_existing_conditions,omitempty" jsonschema:"Conditions diagnosed before enrollment"`
	EnrollmentDate        string   `json:"enrollment_date,omitempty" jsonschema:"Policy enrollment date, YYYY-MM-DD"`
	ApplicationDate       string   `json:"application_date,omitempty" jsonschema:"Claim application date, YYYY-MM-DD"`
}

type clauseInput struct {
	ID              string  `json:"id,omitempty" jsonschema:"Clause identifier (default clause_N)"`
	Text            string  `json:"text" jsonschema:"Clause text"`
	Page            int     `json:"page,omitempty" jsonschema:"Page number in the policy document"`
	SimilarityScore float64 `json:"similarity_score,omitempty" jsonschema:"Retrieval similarity between 0 and 1"`
}

func toClauses(in []clauseInput) []clause.Clause {
	if len(in) == 0 {
		return nil
	}
	out := make([]clause.Clause, len(in))
	for i, c := range in {
		out[i] = clause.Clause{ID: c.ID, Text: c.Text, Page: c.Page, SimilarityScore: c.SimilarityScore}.WithDefaults()
	}
	return out
}

type evaluateClaimInput struct {
	Patient  patientInput  `json:"patient" jsonschema:"Patient profile"`
	Disease  string        `json:"disease" jsonschema:"Disease catalog value or free-text disease name"`
	PolicyID string        `json:"policy_id,omitempty" jsonschema:"Indexed policy to retrieve clauses from"`
	Clauses  []clauseInput `json:"clauses,omitempty" jsonschema:"Policy clauses; when set no retrieval happens"`
}

type evaluateClaimOutput struct {
	EvaluationID    string   `json:"evaluation_id" jsonschema:"Evaluation identifier"`
	Decision        string   `json:"decision" jsonschema:"ACCEPTED or REJECTED"`
	Reason          string   `json:"reason" jsonschema:"Explanation of the decision"`
	Confidence      float64  `json:"confidence" jsonschema:"Decision confidence between 0 and 1"`
	Disease         string   `json:"disease" jsonschema:"Resolved disease label"`
	DiseaseCategory string   `json:"disease_category" jsonschema:"Disease category"`
	Clauses         int      `json:"clauses" jsonschema:"Number of clauses evaluated"`
	Constraints     int      `json:"constraints" jsonschema:"Number of constraints extracted"`
	Contradictions  []string `json:"contradictions" jsonschema:"Reasons for each contradicted constraint"`
	CDS             float64  `json:"cds_score" jsonschema:"Coverage strength"`
	ERG             float64  `json:"erg_score" jsonschema:"Exclusion risk"`
	PAI             float64  `json:"pai_score" jsonschema:"Policy ambiguity"`
}

func (s *Server) handleEvaluateClaim(ctx context.Context, _ *mcp.CallToolRequest, args evaluateClaimInput) (*mcp.CallToolResult, evaluateClaimOutput, error) {
	report, err := s.svc.EvaluateClaim(ctx, evaluation.ClaimRequest{
		Patient: &alignment.PatientProfile{
			Age:                   args.Patient.Age,
			PreExistingConditions: args.Patient.PreExistingConditions,
			EnrollmentDate:        args.Patient.EnrollmentDate,
			ApplicationDate:       args.Patient.ApplicationDate,
		},
		Disease:  args.Disease,
		PolicyID: args.PolicyID,
		Clauses:  toClauses(args.Clauses),
	})
	if err != nil {
		return nil, evaluateClaimOutput{}, fmt.Errorf("evaluate claim: %w", err)
	}

	contradictions := []string{}
	for _, a := range report.Alignment.Alignments {
		if a.Contradiction {
			contradictions = append(contradictions, a.ContradictionReason)
		}
	}
	out := evaluateClaimOutput{
		EvaluationID:    report.EvaluationID,
		Decision:        string(report.Decision),
		Reason:          report.Reason,
		Confidence:      report.Confidence,
		Disease:         report.Disease,
		DiseaseCategory: report.DiseaseCategory,
		Clauses:         len(report.Clauses),
		Constraints:     len(report.Constraints),
		Contradictions:  contradictions,
		CDS:             report.CDS,
		ERG:             report.ERG,
		PAI:             report.PAI,
	}
	return textResult("%s: %s (confidence %.2f)", out.Decision, out.Reason, out.Confidence), out, nil
}

// ===== CLAUSES =====

type analyzeClausesInput struct {
	Disease  string        `json:"disease" jsonschema:"Disease catalog value"`
	PolicyID string        `json:"policy_id,omitempty" jsonschema:"Indexed policy to retrieve clauses from"`
	N        int           `json:"n_results,omitempty" jsonschema:"Clauses to retrieve (default 15)"`
	Clauses  []clauseInput `json:"clauses,omitempty" jsonschema:"Policy clauses; when set no retrieval happens"`
}

type clauseSummary struct {
	ID               string  `json:"id"`
	Category         string  `json:"category"`
	Page             int     `json:"page"`
	SimilarityScore  float64 `json:"similarity_score"`
	DiseaseMentioned bool    `json:"disease_mentioned"`
	Text             string  `json:"text"`
}

type analyzeClausesOutput struct {
	Disease           string          `json:"disease" jsonschema:"Disease label"`
	DiseaseCategory   string          `json:"disease_category" jsonschema:"Disease category"`
	Clauses           []clauseSummary `json:"clauses" jsonschema:"Categorized clauses"`
	CDS               float64         `json:"cds_score" jsonschema:"Coverage strength"`
	ERG               float64         `json:"erg_score" jsonschema:"Exclusion risk"`
	PAI               float64         `json:"pai_score" jsonschema:"Policy ambiguity"`
	QueriesUsed       []string        `json:"queries_used" jsonschema:"Retrieval phrasing for the disease"`
	TotalClausesFound int             `json:"total_clauses_found" jsonschema:"Number of clauses analyzed"`
	DetailedReport    string          `json:"detailed_report" jsonschema:"Human-readable score breakdown"`
}

func (s *Server) handleAnalyzeClauses(ctx context.Context, _ *mcp.CallToolRequest, args analyzeClausesInput) (*mcp.CallToolResult, analyzeClausesOutput, error) {
	report, err := s.svc.AnalyzeClauses(ctx, evaluation.AnalyzeRequest{
		Disease:  args.Disease,
		PolicyID: args.PolicyID,
		N:        args.N,
		Clauses:  toClauses(args.Clauses),
	})
	if err != nil {
		return nil, analyzeClausesOutput{}, fmt.Errorf("analyze clauses: %w", err)
	}

	clauses := make([]clauseSummary, len(report.Clauses))
	for i, c := range report.Clauses {
		clauses[i] = clauseSummary{
			ID:               c.ID,
			Category:         string(c.Category),
			Page:             c.Page,
			SimilarityScore:  c.SimilarityScore,
			DiseaseMentioned: c.DiseaseMentioned,
			Text:             c.Text,
		}
	}
	out := analyzeClausesOutput{
		Disease:           report.Disease,
		DiseaseCategory:   report.DiseaseCategory,
		Clauses:           clauses,
		CDS:               report.CDS,
		ERG:               report.ERG,
		PAI:               report.PAI,
		QueriesUsed:       report.QueriesUsed,
		TotalClausesFound: report.TotalClausesFound,
		DetailedReport:    report.DetailedReport,
	}
	return textResult("%d clauses for %s: CDS %.2f, ERG %.2f, PAI %.2f", len(clauses), out.Disease, out.CDS, out.ERG, out.PAI), out, nil
}

type scoreRecordsInput struct {
	Records []map[string]any `json:"records" jsonschema:"Clause records (text, similarity_score) or alignment records (constraint, alignment_score, contradiction, risk_level)"`
	Disease string           `json:"disease,omitempty" jsonschema:"Disease used for the disease-term boost"`
}

type scoreRecordsOutput struct {
	Mode           string  `json:"mode" jsonschema:"clause or alignment"`
	CDS            float64 `json:"cds_score" jsonschema:"Coverage strength"`
	ERG            float64 `json:"erg_score" jsonschema:"Exclusion risk"`
	PAI            float64 `json:"pai_score" jsonschema:"Policy ambiguity"`
	DetailedReport string  `json:"detailed_report" jsonschema:"Human-readable score breakdown"`
}

func (s *Server) handleScoreRecords(ctx context.Context, _ *mcp.CallToolRequest, args scoreRecordsInput) (*mcp.CallToolResult, scoreRecordsOutput, error) {
	records := args.Records
	if records == nil {
		records = []map[string]any{}
	}
	raw, err := json.Marshal(records)
	if err != nil {
		return nil, scoreRecordsOutput{}, fmt.Errorf("encode records: %w", err)
	}
	scores, err := s.svc.ScoreRecords(ctx, raw, args.Disease)
	if err != nil {
		return nil, scoreRecordsOutput{}, fmt.Errorf("score records: %w", err)
	}
	out := scoreRecordsOutput{
		Mode:           string(scores.Mode),
		CDS:            scores.CDS,
		ERG:            scores.ERG,
		PAI:            scores.PAI,
		DetailedReport: scores.DetailedReport,
	}
	return textResult("%s mode: CDS %.2f, ERG %.2f, PAI %.2f", out.Mode, out.CDS, out.ERG, out.PAI), out, nil
}

type indexPolicyInput struct {
	PolicyID string              `json:"policy_id" jsonschema:"Policy identifier"`
	Passages []retrieval.Passage `json:"passages" jsonschema:"Policy passages with text and optional page"`
	Replace  bool                `json:"replace,omitempty" jsonschema:"Clear the policy's existing passages first"`
}

type indexPolicyOutput struct {
	PolicyID string   `json:"policy_id" jsonschema:"Policy identifier"`
	IDs      []string `json:"ids" jsonschema:"Stored passage IDs"`
}

func (s *Server) handleIndexPolicy(ctx context.Context, _ *mcp.CallToolRequest, args indexPolicyInput) (*mcp.CallToolResult, indexPolicyOutput, error) {
	if strings.TrimSpace(args.PolicyID) == "" {
		return nil, indexPolicyOutput{}, fmt.Errorf("policy_id is required")
	}
	report, err := s.svc.IndexPolicy(ctx, evaluation.IndexRequest{
		PolicyID: args.PolicyID,
		Passages: args.Passages,
		Replace:  args.Replace,
	})
	if err != nil {
		return nil, indexPolicyOutput{}, fmt.Errorf("index policy: %w", err)
	}
	out := indexPolicyOutput{PolicyID: report.PolicyID, IDs: report.IDs}
	return textResult("Indexed %d passages for %s", len(out.IDs), out.PolicyID), out, nil
}

type clearPolicyInput struct {
	PolicyID string `json:"policy_id" jsonschema:"Policy identifier"`
}

type clearPolicyOutput struct {
	PolicyID string `json:"policy_id" jsonschema:"Policy identifier"`
	Cleared  bool   `json:"cleared" jsonschema:"Whether the passages were removed"`
}

func (s *Server) handleClearPolicy(ctx context.Context, _ *mcp.CallToolRequest, args clearPolicyInput) (*mcp.CallToolResult, clearPolicyOutput, error) {
	if strings.TrimSpace(args.PolicyID) == "" {
		return nil, clearPolicyOutput{}, fmt.Errorf("policy_id is required")
	}
	if err := s.svc.ClearPolicy(ctx, args.PolicyID); err != nil {
		return nil, clearPolicyOutput{}, fmt.Errorf("clear policy: %w", err)
	}
	return textResult("Cleared policy %s", args.PolicyID), clearPolicyOutput{PolicyID: args.PolicyID, Cleared: true}, nil
}

// ===== CATALOG =====

type listDiseasesInput struct {
	Category string `json:"category,omitempty" jsonschema:"Only list diseases in this category"`
}

type listDiseasesOutput struct {
	Diseases []disease.Disease `json:"diseases" jsonschema:"Catalog entries"`
	Count    int               `json:"count" jsonschema:"Number of diseases returned"`
}

func (s *Server) handleListDiseases(_ context.Context, _ *mcp.CallToolRequest, args listDiseasesInput) (*mcp.CallToolResult, listDiseasesOutput, error) {
	all := s.svc.Diseases()
	out := listDiseasesOutput{Diseases: make([]disease.Disease, 0, len(all))}
	for _, d := range all {
		if args.Category == "" || strings.EqualFold(d.Category, args.Category) {
			out.Diseases = append(out.Diseases, d)
		}
	}
	out.Count = len(out.Diseases)
	return textResult("Found %d diseases", out.Count), out, nil
}

// ===== DISCOVERY =====

type toolSearchInput struct {
	Query    string `json:"query" jsonschema:"Search text or regular expression"`
	Category string `json:"category,omitempty" jsonschema:"Only search one category (evaluation, clauses, catalog, search)"`
	Limit    int    `json:"limit,omitempty" jsonschema:"Maximum results (default 5)"`
}

type toolSearchOutput struct {
	Query      string          `json:"query" jsonschema:"Search query used"`
	Results    []*SearchResult `json:"results" jsonschema:"Matching tools with score"`
	Count      int             `json:"count" jsonschema:"Number of tools found"`
	TotalTools int             `json:"total_tools" jsonschema:"Total number of tools"`
}

func (s *Server) handleToolSearch(_ context.Context, _ *mcp.CallToolRequest, args toolSearchInput) (*mcp.CallToolResult, toolSearchOutput, error) {
	if args.Query == "" {
		return nil, toolSearchOutput{}, fmt.Errorf("query is required")
	}
	limit := args.Limit
	if limit <= 0 {
		limit = 5
	}
	results := s.toolRegistry.Search(args.Query, ToolCategory(args.Category))
	if len(results) > limit {
		results = results[:limit]
	}
	if results == nil {
		results = []*SearchResult{}
	}

	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Tool.Name
	}
	out := toolSearchOutput{
		Query:      args.Query,
		Results:    results,
		Count:      len(results),
		TotalTools: s.toolRegistry.Count(),
	}
	if len(names) == 0 {
		return textResult("No tools found matching: %s", args.Query), out, nil
	}
	return textResult("Found %d tool(s) for query '%s': %s", len(names), args.Query, strings.Join(names, ", ")), out, nil
}

type toolListInput struct {
	Category string `json:"category,omitempty" jsonschema:"Only list one category"`
}

type toolListOutput struct {
	Tools []*ToolMetadata `json:"tools" jsonschema:"Registered tools"`
	Count int             `json:"count" jsonschema:"Number of tools returned"`
}

func (s *Server) handleToolList(_ context.Context, _ *mcp.CallToolRequest, args toolListInput) (*mcp.CallToolResult, toolListOutput, error) {
	tools := s.toolRegistry.List(ToolCategory(args.Category))
	return textResult("Found %d tools", len(tools)), toolListOutput{Tools: tools, Count: len(tools)}, nil
}

func textResult(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
	}
}
