package models

import "time"

// Outcome is the verdict an oracle reached for one criterion.
type Outcome string

const (
	OutcomeAffirmative   Outcome = "Yes"
	OutcomeNegative      Outcome = "No"
	OutcomeIndeterminate Outcome = "Unknown"
)

// ConfidenceUnknown marks a verdict without a parseable percentage.
const ConfidenceUnknown = "N/A"

type Criterion struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description"`
	Category    string `yaml:"category" json:"category"`
	Prompt      string `yaml:"prompt" json:"-"`
}

// Verdict is produced once per (file, criterion) pair and never mutated.
type Verdict struct {
	Parameter  string  `json:"parameter"`
	Verdict    Outcome `json:"verdict"`
	Confidence string  `json:"confidence"`
	Reasoning  string  `json:"reasoning,omitempty"`
}

func IndeterminateVerdict(parameter, reasoning string) Verdict {
	return Verdict{
		Parameter:  parameter,
		Verdict:    OutcomeIndeterminate,
		Confidence: ConfidenceUnknown,
		Reasoning:  reasoning,
	}
}

type FileAuditResult struct {
	Filename     string    `json:"filename"`
	FileSize     int64     `json:"file_size"`
	Results      []Verdict `json:"results"`
	OverallScore float64   `json:"overall_score"`
	Error        string    `json:"error,omitempty"`
}

type BatchResult struct {
	AuditID        string            `json:"audit_id"`
	TotalFiles     int               `json:"total_files"`
	ProcessedFiles int               `json:"processed_files"`
	Results        []FileAuditResult `json:"results"`
	OverallSummary string            `json:"overall_summary"`
	ProcessingTime float64           `json:"processing_time"`
	GeneratedAt    time.Time         `json:"generated_at"`
}

type AuditRequest struct {
	Parameters    []string          `json:"parameters"`
	CustomPrompts map[string]string `json:"custom_prompts,omitempty"`
}

// HasOverrides reports whether any requested parameter carries a custom prompt.
func (r AuditRequest) HasOverrides() bool {
	for _, p := range r.Parameters {
		if prompt, ok := r.CustomPrompts[p]; ok && prompt != "" {
			return true
		}
	}
	return false
}
