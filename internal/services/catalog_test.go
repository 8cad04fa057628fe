package services

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCatalog(t *testing.T) {
	catalog := testCatalog(t)

	ids := make([]string, 0)
	for _, c := range catalog.List() {
		ids = append(ids, c.ID)
		assert.NotEmpty(t, c.Name, c.ID)
		assert.NotEmpty(t, c.Prompt, c.ID)
	}
	assert.Equal(t, []string{
		"greeting", "introduction", "active-listening", "empathy", "clarity",
		"solution-oriented", "product-knowledge", "objection-handling", "closing", "follow-up",
	}, ids)
}

func TestCatalogListReturnsCopy(t *testing.T) {
	catalog := testCatalog(t)
	list := catalog.List()
	list[0].ID = "mutated"
	assert.Equal(t, "greeting", catalog.List()[0].ID)
}

func TestCatalogResolve(t *testing.T) {
	catalog := testCatalog(t)

	assert.Contains(t, catalog.Resolve("greeting"), "professional greeting")
	assert.Equal(t,
		"Analyze this call recording for hold-time. Return 'Yes' or 'No', include a confidence score (0-100%), and provide a brief reasoning.",
		catalog.Resolve("hold-time"))
}

func TestCatalogResolveCombined(t *testing.T) {
	catalog := testCatalog(t)

	instruction := catalog.ResolveCombined([]string{"empathy", "hold-time"})
	assert.Contains(t, instruction, `"empathy"`)
	assert.Contains(t, instruction, `"hold-time" - hold-time: Assess the call for hold-time`)
	assert.Contains(t, instruction, `"results"`)
	assert.Less(t, strings.Index(instruction, `"empathy"`), strings.Index(instruction, `"hold-time"`))
}

func TestParseCriterionCatalogRejectsBadInput(t *testing.T) {
	for name, data := range map[string]string{
		"empty":     "criteria: []",
		"no id":     "criteria:\n  - name: Greeting\n",
		"duplicate": "criteria:\n  - id: a\n  - id: a\n",
		"not yaml":  "criteria: [",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseCriterionCatalog([]byte(data))
			require.Error(t, err)
		})
	}
}

func TestNewCriterionCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "criteria.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`criteria:
  - id: hold-time
    name: Hold Time
    description: Agent keeps holds short
    prompt: Did the agent keep the customer on hold for less than a minute?
`), 0o644))

	catalog, err := NewCriterionCatalog(path)
	require.NoError(t, err)
	require.Len(t, catalog.List(), 1)
	assert.Equal(t, "Did the agent keep the customer on hold for less than a minute?", catalog.Resolve("hold-time"))

	_, err = NewCriterionCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
