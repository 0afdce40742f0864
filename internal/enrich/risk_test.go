package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/whattherepo/whattherepo/internal/models"
)

func assessedFile(path string, score float64, changes int, reasons ...string) models.EnrichedFile {
	return models.EnrichedFile{
		Filename:  path,
		Changes:   changes,
		Additions: changes,
		RiskAssessment: models.FileRiskAssessment{
			FilePath:      path,
			RiskScoreFile: score,
			Reasons:       reasons,
		},
	}
}

func TestAggregatePRRiskWeightedMean(t *testing.T) {
	files := []models.EnrichedFile{
		assessedFile("a.go", 4.0, 100, "touches config"),
		assessedFile("b.go", 5.0, 100, "large diff"),
	}

	result := AggregatePRRisk(files)
	assert.Equal(t, 4.5, result.RiskScore)
	assert.Equal(t, models.RiskBandMedium, result.RiskBand)
	assert.False(t, result.HighRisk)
	assert.Equal(t, 4.5, result.Calculation.WeightedBase)
	assert.False(t, result.Calculation.HardGuard)
	assert.Equal(t, 2, result.Calculation.FilesAssessed)
}

func TestAggregatePRRiskHardGuardAndBonus(t *testing.T) {
	// A small but severe file drags a low weighted base to the floor,
	// then the max-score bonus applies: 4.5 -> 8.0 -> 8.5.
	files := []models.EnrichedFile{
		assessedFile("auth.go", 9.0, 10, "removes permission check"),
		assessedFile("misc.go", 4.0, 90, "routine change"),
	}

	result := AggregatePRRisk(files)
	assert.Equal(t, 8.5, result.RiskScore)
	assert.Equal(t, models.RiskBandHigh, result.RiskBand)
	assert.True(t, result.HighRisk)
	assert.True(t, result.Calculation.HardGuard)
	assert.Equal(t, 4.5, result.Calculation.WeightedBase)
	assert.Equal(t, 9.0, result.Calculation.MaxFileScore)
}

func TestAggregatePRRiskTestDiscount(t *testing.T) {
	file := assessedFile("handler_test.go", 4.5, 100, "new tests")
	file.IsTestFile = true
	file.Additions = 80
	file.Deletions = 20

	result := AggregatePRRisk([]models.EnrichedFile{file})
	assert.Equal(t, 4.0, result.RiskScore)
	assert.Equal(t, 60, result.Calculation.NetTestLines)
}

func TestAggregatePRRiskDiscountSuppressedByHighFile(t *testing.T) {
	testFile := assessedFile("handler_test.go", 2.0, 50, "new tests")
	testFile.IsTestFile = true
	files := []models.EnrichedFile{
		assessedFile("auth.go", 8.0, 50, "removes permission check"),
		testFile,
	}

	result := AggregatePRRisk(files)
	// Floor 8.0 plus bonus, no test discount despite added test lines.
	assert.Equal(t, 8.5, result.RiskScore)
	assert.True(t, result.Calculation.HardGuard)
	assert.Equal(t, 50, result.Calculation.NetTestLines)
}

func TestAggregatePRRiskNoAssessments(t *testing.T) {
	result := AggregatePRRisk([]models.EnrichedFile{
		{Filename: "logo.png", IsBinary: true},
	})
	assert.Equal(t, 0.0, result.RiskScore)
	assert.Equal(t, models.RiskBandLow, result.RiskBand)
	assert.False(t, result.HighRisk)
	assert.Equal(t, []string{"No file-level risk assessments available"}, result.RiskReasons)
}

func TestAggregatePRRiskScoreCap(t *testing.T) {
	result := AggregatePRRisk([]models.EnrichedFile{
		assessedFile("a.go", 10.0, 100, "critical"),
	})
	assert.Equal(t, 10.0, result.RiskScore)
}

func TestSummarizeReasonsDuplicates(t *testing.T) {
	summary := summarizeReasons([]string{
		"Touches auth code",
		"touches auth code",
		"Large diff",
	})
	assert.Equal(t, []string{"touches auth code (in 2 files)", "large diff"}, summary)
}

func TestSummarizeReasonsOverflow(t *testing.T) {
	summary := summarizeReasons([]string{"r1", "r2", "r3", "r4", "r5"})
	assert.Len(t, summary, 4)
	assert.Equal(t, []string{"r1", "r2", "r3", "Plus 2 other risk factors"}, summary)
}

func TestSummarizeReasonsEmpty(t *testing.T) {
	assert.Equal(t, []string{"No specific risk reasons identified"}, summarizeReasons(nil))
}
