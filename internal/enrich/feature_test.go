package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/whattherepo/whattherepo/internal/models"
)

func TestClassifyFeatureAllowLabel(t *testing.T) {
	pr := &models.EnrichedPR{
		Title:  "Add SSO login",
		Labels: []models.Label{{Name: "Enhancement"}},
	}

	result := ClassifyFeature(pr)
	assert.Equal(t, RuleLabelAllow, result.Rule)
	assert.Equal(t, "Add SSO login", result.Feature)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestClassifyFeatureAllowBeatsExclude(t *testing.T) {
	pr := &models.EnrichedPR{
		Title:  "Rework billing",
		Labels: []models.Label{{Name: "feature"}, {Name: "refactor"}},
	}
	assert.Equal(t, RuleLabelAllow, ClassifyFeature(pr).Rule)
}

func TestClassifyFeatureExcludeLabel(t *testing.T) {
	pr := &models.EnrichedPR{
		Title:    "Fix crash on empty payload",
		IsMerged: true,
		Labels:   []models.Label{{Name: "bug"}},
	}

	result := ClassifyFeature(pr)
	assert.Equal(t, RuleExcluded, result.Rule)
	assert.Empty(t, result.Feature)
	assert.Equal(t, 0.0, result.Confidence)
}

func TestClassifyFeatureUnlabeledMerged(t *testing.T) {
	pr := &models.EnrichedPR{
		Title:    "Add retry budget to uploader",
		IsMerged: true,
		Files:    []models.EnrichedFile{{Filename: "uploader.go"}},
	}

	result := ClassifyFeature(pr)
	assert.Equal(t, RuleUnlabeledInclude, result.Rule)
	assert.Equal(t, "Add retry budget to uploader", result.Feature)
	assert.Equal(t, 0.3, result.Confidence)
}

func TestClassifyFeatureUnlabeledUnmerged(t *testing.T) {
	pr := &models.EnrichedPR{Title: "WIP thing"}
	assert.Equal(t, RuleExcluded, ClassifyFeature(pr).Rule)
}

func TestClassifyFeatureDocumentationOnly(t *testing.T) {
	pr := &models.EnrichedPR{
		Title:    "Update README",
		IsMerged: true,
		Files: []models.EnrichedFile{
			{Filename: "README.md", IsDocumentation: true},
			{Filename: "docs/setup.md", IsDocumentation: true},
		},
	}
	assert.Equal(t, RuleExcluded, ClassifyFeature(pr).Rule)
}

func TestClassifyFeatureBlankTitleFallback(t *testing.T) {
	pr := &models.EnrichedPR{
		Title:    "   ",
		IsMerged: true,
		Files:    []models.EnrichedFile{{Filename: "main.go"}},
	}
	assert.Equal(t, "Feature implementation", ClassifyFeature(pr).Feature)
}
