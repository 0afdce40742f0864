package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseAssessmentCleanJSON(t *testing.T) {
	raw := `{"file_path": "auth.go", "risk_score_file": 7.5, "high_risk_flag": true, "reasons": ["removes permission check"], "confidence": 0.8}`

	result := parseAssessment(raw, "auth.go")
	assert.Equal(t, OutcomeOK, result.Outcome)
	assert.Equal(t, "auth.go", result.Assessment.FilePath)
	assert.Equal(t, 7.5, result.Assessment.RiskScoreFile)
	assert.True(t, result.Assessment.HighRiskFlag)
}

func TestParseAssessmentFencedJSON(t *testing.T) {
	raw := "```json\n{\"file_path\": \"auth.go\", \"risk_score_file\": 3, \"reasons\": [\"minor\"]}\n```"

	result := parseAssessment(raw, "auth.go")
	assert.Equal(t, OutcomeRecovered, result.Outcome)
	assert.Equal(t, 3.0, result.Assessment.RiskScoreFile)
}

func TestParseAssessmentEmbeddedObject(t *testing.T) {
	raw := `Sure, here is the assessment you asked for:
{"file_path": "db.go", "risk_score_file": 6, "reasons": ["schema change"]}
Let me know if you need anything else.`

	result := parseAssessment(raw, "db.go")
	assert.Equal(t, OutcomeRecovered, result.Outcome)
	assert.Equal(t, 6.0, result.Assessment.RiskScoreFile)
	assert.Equal(t, []string{"schema change"}, result.Assessment.Reasons)
}

func TestParseAssessmentGarbage(t *testing.T) {
	result := parseAssessment("I cannot assess this file.", "misc.go")
	assert.Equal(t, OutcomeFailed, result.Outcome)
	assert.Equal(t, "misc.go", result.Assessment.FilePath)
	assert.Equal(t, 0.0, result.Assessment.RiskScoreFile)
	assert.NotEmpty(t, result.Assessment.Reasons)
}

func TestParseAssessmentNormalization(t *testing.T) {
	// Missing path is backfilled, out-of-range scores are clamped.
	result := parseAssessment(`{"risk_score_file": 15, "reasons": ["huge"]}`, "big.go")
	assert.Equal(t, "big.go", result.Assessment.FilePath)
	assert.Equal(t, 10.0, result.Assessment.RiskScoreFile)

	result = parseAssessment(`{"risk_score_file": -2, "reasons": ["odd"]}`, "odd.go")
	assert.Equal(t, 0.0, result.Assessment.RiskScoreFile)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 10))
	assert.Equal(t, "abcde", Truncate("abcdefgh", 5))
	assert.Equal(t, "", Truncate("", 5))
}

func TestZeroVector(t *testing.T) {
	v := ZeroVector()
	assert.Len(t, v, EmbeddingDim)
	for _, x := range v {
		assert.Zero(t, x)
	}
}

func TestExplainEmptyHits(t *testing.T) {
	g := NewGateway("test-key")
	assert.Equal(t, "No relevant changes found for this query.",
		g.Explain(nil, "anything", nil))
}
