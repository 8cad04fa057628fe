package services

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"alfredoptarigan/call-auditor/internal/models"
)

//go:embed catalog/criteria.yaml
var builtinCriteria []byte

type catalogFile struct {
	Criteria []models.Criterion `yaml:"criteria"`
}

// CriterionCatalog is immutable after construction and safe for concurrent use.
type CriterionCatalog struct {
	criteria []models.Criterion
	byID     map[string]models.Criterion
	prompts  *PromptBuilder
}

// NewCriterionCatalog loads the built-in criteria, or the YAML file at path
// when path is not empty.
func NewCriterionCatalog(path string) (*CriterionCatalog, error) {
	data := builtinCriteria
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read criteria file: %w", err)
		}
		data = raw
	}
	return ParseCriterionCatalog(data)
}

func ParseCriterionCatalog(data []byte) (*CriterionCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse criteria: %w", err)
	}
	if len(file.Criteria) == 0 {
		return nil, fmt.Errorf("criteria catalog is empty")
	}

	catalog := &CriterionCatalog{
		byID:    make(map[string]models.Criterion, len(file.Criteria)),
		prompts: NewPromptBuilder(),
	}
	for _, c := range file.Criteria {
		c.ID = strings.TrimSpace(c.ID)
		if c.ID == "" {
			return nil, fmt.Errorf("criterion without id")
		}
		if _, dup := catalog.byID[c.ID]; dup {
			return nil, fmt.Errorf("duplicate criterion id %q", c.ID)
		}
		c.Prompt = strings.TrimSpace(c.Prompt)
		catalog.byID[c.ID] = c
		catalog.criteria = append(catalog.criteria, c)
	}
	return catalog, nil
}

func (c *CriterionCatalog) List() []models.Criterion {
	out := make([]models.Criterion, len(c.criteria))
	copy(out, c.criteria)
	return out
}

// Lookup returns the catalog entry for id, or a generic entry for unknown ids.
func (c *CriterionCatalog) Lookup(id string) models.Criterion {
	if criterion, ok := c.byID[id]; ok {
		return criterion
	}
	return models.Criterion{
		ID:          id,
		Name:        id,
		Description: fmt.Sprintf("Assess the call for %s", id),
		Prompt:      c.prompts.BuildFallbackPrompt(id),
	}
}

// Resolve returns the single-criterion instruction for id.
func (c *CriterionCatalog) Resolve(id string) string {
	if criterion := c.Lookup(id); criterion.Prompt != "" {
		return criterion.Prompt
	}
	return c.prompts.BuildFallbackPrompt(id)
}

// ResolveCombined returns one instruction covering every id.
func (c *CriterionCatalog) ResolveCombined(ids []string) string {
	criteria := make([]models.Criterion, 0, len(ids))
	for _, id := range ids {
		criteria = append(criteria, c.Lookup(id))
	}
	return c.prompts.BuildCombinedPrompt(criteria)
}
