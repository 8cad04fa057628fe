package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"alfredoptarigan/call-auditor/internal/models"
)

const missingFromBatchReasoning = "criterion not returned in batch response"

var (
	confidencePattern = regexp.MustCompile(`(\d+)%`)
	yesPattern        = regexp.MustCompile(`\byes\b`)
	noPattern         = regexp.MustCompile(`\bno\b`)
	// Lines that carry the verdict or confidence rather than prose.
	markerPattern = regexp.MustCompile(`\byes\b|\bno\b|confidence|%`)
	labelPattern  = regexp.MustCompile(`^\s*[*_#\s]*(verdict|confidence|reasoning)[*_\s]*:[*_\s]*`)
)

// ParseSingleResponse decodes a line-oriented answer for one criterion.
func ParseSingleResponse(parameter, text string) models.Verdict {
	text = strings.TrimSpace(text)
	return models.Verdict{
		Parameter:  parameter,
		Verdict:    extractOutcome(text),
		Confidence: extractConfidence(text),
		Reasoning:  extractReasoning(text),
	}
}

// extractOutcome takes the first yes/no token on a "Verdict:" line. Without
// such a line, or when it names neither, "yes" anywhere beats "no" anywhere.
func extractOutcome(text string) models.Outcome {
	lower := strings.ToLower(text)

	for _, line := range strings.Split(lower, "\n") {
		m := labelPattern.FindStringSubmatch(line)
		if m == nil || m[1] != "verdict" {
			continue
		}
		if outcome := firstOutcomeToken(line[len(m[0]):]); outcome != models.OutcomeIndeterminate {
			return outcome
		}
	}
	return outcomeFromTokens(lower)
}

func outcomeFromTokens(lower string) models.Outcome {
	switch {
	case yesPattern.MatchString(lower):
		return models.OutcomeAffirmative
	case noPattern.MatchString(lower):
		return models.OutcomeNegative
	default:
		return models.OutcomeIndeterminate
	}
}

// firstOutcomeToken returns whichever of yes/no appears first.
func firstOutcomeToken(lower string) models.Outcome {
	yes := yesPattern.FindStringIndex(lower)
	no := noPattern.FindStringIndex(lower)
	switch {
	case yes != nil && (no == nil || yes[0] < no[0]):
		return models.OutcomeAffirmative
	case no != nil:
		return models.OutcomeNegative
	default:
		return models.OutcomeIndeterminate
	}
}

// extractConfidence takes the first percentage in the text, wherever it is.
func extractConfidence(text string) string {
	if m := confidencePattern.FindStringSubmatch(text); m != nil {
		return m[1] + "%"
	}
	return models.ConfidenceUnknown
}

func extractReasoning(text string) string {
	lines := strings.Split(text, "\n")

	split := -1
	for i, line := range lines {
		if markerPattern.MatchString(strings.ToLower(line)) {
			split = i
			break
		}
	}
	if split < 0 {
		return text
	}

	var parts []string
	for _, line := range lines[split+1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if m := labelPattern.FindStringSubmatch(strings.ToLower(line)); m != nil {
			if m[1] != "reasoning" {
				continue
			}
			line = strings.TrimSpace(line[len(m[0]):])
			if line == "" {
				continue
			}
		}
		parts = append(parts, line)
	}

	if len(parts) == 0 {
		return text
	}
	return strings.Join(parts, " ")
}

type batchRecord struct {
	Parameter  *string         `json:"parameter"`
	Verdict    *string         `json:"verdict"`
	Confidence json.RawMessage `json:"confidence"`
	Reasoning  string          `json:"reasoning"`
}

type batchEnvelope struct {
	Results *[]json.RawMessage `json:"results"`
}

// ParseBatchResponse decodes the JSON answer of a combined call. The result
// holds exactly one verdict per parameter, in parameter order. A response
// that is not a results object yields ErrBatchDecode.
func ParseBatchResponse(parameters []string, text string) ([]models.Verdict, error) {
	var envelope batchEnvelope
	if err := json.Unmarshal([]byte(extractJSON(text)), &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBatchDecode, err)
	}
	if envelope.Results == nil {
		return nil, fmt.Errorf("%w: missing results list", ErrBatchDecode)
	}

	decoded := make(map[string]models.Verdict)
	for _, raw := range *envelope.Results {
		var rec batchRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			continue
		}
		if rec.Parameter == nil || rec.Verdict == nil || len(rec.Confidence) == 0 {
			continue
		}
		confidence, ok := normalizeConfidence(rec.Confidence)
		if !ok {
			continue
		}
		id := strings.TrimSpace(*rec.Parameter)
		if _, seen := decoded[id]; seen {
			continue
		}
		decoded[id] = models.Verdict{
			Parameter:  id,
			Verdict:    outcomeFromTokens(strings.ToLower(strings.TrimSpace(*rec.Verdict))),
			Confidence: confidence,
			Reasoning:  strings.TrimSpace(rec.Reasoning),
		}
	}

	verdicts := make([]models.Verdict, 0, len(parameters))
	for _, p := range parameters {
		if v, ok := decoded[p]; ok {
			verdicts = append(verdicts, v)
			continue
		}
		verdicts = append(verdicts, models.IndeterminateVerdict(p, missingFromBatchReasoning))
	}
	return verdicts, nil
}

// normalizeConfidence accepts 85, 85.0, "85" and "85%". JSON null counts as
// a missing field.
func normalizeConfidence(raw json.RawMessage) (string, bool) {
	if strings.TrimSpace(string(raw)) == "null" {
		return "", false
	}

	var number float64
	if err := json.Unmarshal(raw, &number); err == nil {
		return strconv.Itoa(int(number)) + "%", true
	}

	var s *string
	if err := json.Unmarshal(raw, &s); err != nil || s == nil {
		return "", false
	}
	trimmed := strings.TrimSpace(*s)
	if m := confidencePattern.FindStringSubmatch(trimmed); m != nil {
		return m[1] + "%", true
	}
	if n, err := strconv.Atoi(trimmed); err == nil {
		return strconv.Itoa(n) + "%", true
	}
	return models.ConfidenceUnknown, true
}

// extractJSON tries to extract JSON from text that might contain markdown or other formatting
func extractJSON(text string) string {
	text = strings.ReplaceAll(text, "```json", "")
	text = strings.ReplaceAll(text, "```", "")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}

	return strings.TrimSpace(text)
}
