package risk

import (
	"encoding/json"
	"fmt"

	"github.com/fyrsmithlabs/claimd/internal/alignment"
	"github.com/fyrsmithlabs/claimd/internal/clause"
	"github.com/fyrsmithlabs/claimd/internal/constraint"
)

// Mode selects the formula set.
type Mode string

const (
	ModeClause    Mode = "clause"
	ModeAlignment Mode = "alignment"
)

// AlignmentRecord is the subset of an alignment the calculators read.
type AlignmentRecord struct {
	Type           constraint.Kind `json:"type"`
	Condition      string          `json:"condition"`
	AlignmentScore float64         `json:"alignment_score"`
	Contradiction  bool            `json:"contradiction"`
	Reason         string          `json:"contradiction_reason,omitempty"`
	RiskLevel      float64         `json:"risk_level"`
}

// wireAlignment mirrors the serialized alignment.Alignment. Constraint
// fields are decoded leniently so records of unknown kinds still score.
type wireAlignment struct {
	Constraint struct {
		Type      constraint.Kind `json:"type"`
		Condition string          `json:"condition"`
	} `json:"constraint"`
	AlignmentScore      float64 `json:"alignment_score"`
	Contradiction       bool    `json:"contradiction"`
	ContradictionReason *string `json:"contradiction_reason"`
	RiskLevel           float64 `json:"risk_level"`
}

// Input is a batch of records in one mode.
type Input struct {
	Mode       Mode
	Clauses    []clause.Clause
	Alignments []AlignmentRecord
}

// Len returns the number of records in the active mode.
func (in Input) Len() int {
	if in.Mode == ModeAlignment {
		return len(in.Alignments)
	}
	return len(in.Clauses)
}

// ClauseInput wraps clauses for clause-mode scoring.
func ClauseInput(clauses []clause.Clause) Input {
	return Input{Mode: ModeClause, Clauses: clauses}
}

// AlignmentInput wraps alignments for alignment-mode scoring.
func AlignmentInput(alignments []alignment.Alignment) Input {
	records := make([]AlignmentRecord, 0, len(alignments))
	for _, a := range alignments {
		records = append(records, AlignmentRecord{
			Type:           a.Constraint.Kind,
			Condition:      a.Constraint.Condition(),
			AlignmentScore: a.AlignmentScore,
			Contradiction:  a.Contradiction,
			Reason:         a.ContradictionReason,
			RiskLevel:      a.RiskLevel,
		})
	}
	return Input{Mode: ModeAlignment, Alignments: records}
}

// DetectMode inspects the first record. An empty batch is clause mode.
func DetectMode(records []json.RawMessage) (Mode, error) {
	if len(records) == 0 {
		return ModeClause, nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(records[0], &fields); err != nil {
		return "", fmt.Errorf("decoding first record: %w", err)
	}
	if _, ok := fields["alignment_score"]; ok {
		return ModeAlignment, nil
	}
	return ModeClause, nil
}

// DecodeInput decodes a JSON array of clause or alignment records.
func DecodeInput(data []byte) (Input, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return Input{}, fmt.Errorf("decoding records: %w", err)
	}
	return DecodeRecords(records)
}

// DecodeRecords decodes already-split records after detecting their mode.
func DecodeRecords(records []json.RawMessage) (Input, error) {
	mode, err := DetectMode(records)
	if err != nil {
		return Input{}, err
	}

	in := Input{Mode: mode}
	for i, raw := range records {
		switch mode {
		case ModeAlignment:
			var w wireAlignment
			if err := json.Unmarshal(raw, &w); err != nil {
				return Input{}, fmt.Errorf("decoding alignment record %d: %w", i, err)
			}
			rec := AlignmentRecord{
				Type:           w.Constraint.Type,
				Condition:      w.Constraint.Condition,
				AlignmentScore: w.AlignmentScore,
				Contradiction:  w.Contradiction,
				RiskLevel:      w.RiskLevel,
			}
			if rec.Condition == "" {
				rec.Condition = constraint.GeneralCondition
			}
			if w.ContradictionReason != nil {
				rec.Reason = *w.ContradictionReason
			}
			in.Alignments = append(in.Alignments, rec)
		case ModeClause:
			var c clause.Clause
			if err := json.Unmarshal(raw, &c); err != nil {
				return Input{}, fmt.Errorf("decoding clause record %d: %w", i, err)
			}
			in.Clauses = append(in.Clauses, c)
		}
	}
	return in, nil
}
