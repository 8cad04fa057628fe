package services

import (
	"fmt"
	"strings"

	"alfredoptarigan/call-auditor/internal/models"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildFallbackPrompt is used for parameters the catalog does not know.
func (pb *PromptBuilder) BuildFallbackPrompt(parameter string) string {
	return fmt.Sprintf("Analyze this call recording for %s. Return 'Yes' or 'No', include a confidence score (0-100%%), and provide a brief reasoning.", parameter)
}

// BuildCombinedPrompt asks for every criterion at once and pins the JSON
// shape the batch parser expects.
func (pb *PromptBuilder) BuildCombinedPrompt(criteria []models.Criterion) string {
	var list strings.Builder
	for i, c := range criteria {
		fmt.Fprintf(&list, "%d. \"%s\" - %s: %s\n", i+1, c.ID, c.Name, c.Description)
	}

	return fmt.Sprintf(`You are an experienced call center quality auditor. Listen to this call recording and evaluate the agent against each of the following parameters:

%s
For every parameter decide whether the agent met it (Yes) or not (No), give a confidence score between 0 and 100, and a brief reasoning.

Return ONLY a JSON object in the following format, with one entry per parameter listed above, using the exact parameter identifiers:
{
  "results": [
    {
      "parameter": "<parameter identifier>",
      "verdict": "<Yes or No>",
      "confidence": "<0-100>%%",
      "reasoning": "<brief explanation of your assessment>"
    }
  ]
}

Do not add commentary outside the JSON object.`, list.String())
}
