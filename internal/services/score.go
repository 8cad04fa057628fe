package services

import (
	"fmt"
	"strconv"
	"strings"

	"alfredoptarigan/call-auditor/internal/models"
)

// CalculateOverallScore averages confidence over decided verdicts. A "Yes"
// without a parseable confidence counts as 100, "No" counts as 0 and
// "Unknown" is left out entirely.
func CalculateOverallScore(verdicts []models.Verdict) float64 {
	var total float64
	var counted int

	for _, v := range verdicts {
		switch v.Verdict {
		case models.OutcomeAffirmative:
			confidence, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(v.Confidence), "%"), 64)
			if err != nil {
				confidence = 100
			}
			total += confidence
			counted++
		case models.OutcomeNegative:
			counted++
		}
	}

	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

// GenerateOverallSummary describes a finished batch in one sentence.
func GenerateOverallSummary(results []models.FileAuditResult, totalFiles int) string {
	if len(results) == 0 {
		return "No files were processed."
	}

	var sum float64
	successful := 0
	for _, r := range results {
		sum += r.OverallScore
		if r.Error == "" {
			successful++
		}
	}
	avg := sum / float64(len(results))

	return fmt.Sprintf("Processed %d of %d files with %d successful audits. Average score: %.1f%%",
		len(results), totalFiles, successful, avg)
}
