package enrich

import (
	"strings"

	"github.com/whattherepo/whattherepo/internal/models"
)

// Feature classification rules, keyed on lowercase label names.
const (
	RuleLabelAllow       = "label-allow"
	RuleUnlabeledInclude = "unlabeled-include"
	RuleExcluded         = "excluded"
)

var allowLabels = map[string]bool{
	"feature": true, "enhancement": true, "new-feature": true,
	"type:feature": true, "type:enhancement": true,
	"improvement": true, "addition": true, "feat": true,
}

var excludeLabels = map[string]bool{
	"bug": true, "bugfix": true, "fix": true, "hotfix": true,
	"regression": true, "docs": true, "documentation": true,
	"refactor": true, "cleanup": true, "tech-debt": true,
	"chore": true, "maintenance": true, "ci": true, "build": true,
	"infra": true, "test": true, "tests": true, "qa": true,
	"revert": true, "security-fix": true, "backport": true,
}

// FeatureResult is the outcome of feature classification for one PR.
type FeatureResult struct {
	Feature    string
	Rule       string
	Confidence float64
}

// HasAllowLabel reports whether any of the labels is in the allow set.
// The mart projections use it to reconstruct which rule produced a
// stored feature string.
func HasAllowLabel(labels []models.Label) bool {
	for _, label := range labels {
		if allowLabels[strings.ToLower(label.Name)] {
			return true
		}
	}
	return false
}

// ClassifyFeature decides whether a PR represents a shipped feature.
//
// An allow label always wins. Without one, a merged PR counts as a
// feature unless it carries an exclude label or touches only
// documentation. The PR title serves as the feature description.
func ClassifyFeature(pr *models.EnrichedPR) FeatureResult {
	hasAllow := HasAllowLabel(pr.Labels)
	var hasExclude bool
	for _, label := range pr.Labels {
		if excludeLabels[strings.ToLower(label.Name)] {
			hasExclude = true
		}
	}

	switch {
	case hasAllow:
		return FeatureResult{Feature: featureDescription(pr), Rule: RuleLabelAllow, Confidence: 0.9}
	case pr.IsMerged && !hasExclude && !isDocumentationOnly(pr.Files):
		return FeatureResult{Feature: featureDescription(pr), Rule: RuleUnlabeledInclude, Confidence: 0.3}
	default:
		return FeatureResult{Rule: RuleExcluded, Confidence: 0.0}
	}
}

func featureDescription(pr *models.EnrichedPR) string {
	if title := strings.TrimSpace(pr.Title); title != "" {
		return title
	}
	return "Feature implementation"
}

// isDocumentationOnly reports whether every changed file is documentation.
// A PR with no file listing is never documentation-only.
func isDocumentationOnly(files []models.EnrichedFile) bool {
	if len(files) == 0 {
		return false
	}
	for i := range files {
		if !files[i].IsDocumentation {
			return false
		}
	}
	return true
}
