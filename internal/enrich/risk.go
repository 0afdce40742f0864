package enrich

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/whattherepo/whattherepo/internal/models"
)

// maxSummaryReasons caps the PR-level risk reason list.
const maxSummaryReasons = 4

func hasAssessment(f *models.EnrichedFile) bool {
	return f.RiskAssessment.FilePath != "" || len(f.RiskAssessment.Reasons) > 0
}

// AggregatePRRisk rolls the file-level assessments up to one PR score.
//
// The base is the lines-weighted mean of the file scores. Three
// adjustments apply in order: any file at 8+ forces the score to at
// least 8.0, a max file score of 8+ adds 0.5 capped at 10, and a PR
// that adds net test lines with no file at 8+ subtracts 0.5 floored
// at 0. The hard floor and the test discount are mutually exclusive.
func AggregatePRRisk(files []models.EnrichedFile) models.PRRiskAssessment {
	var assessed []*models.EnrichedFile
	for i := range files {
		if hasAssessment(&files[i]) {
			assessed = append(assessed, &files[i])
		}
	}

	if len(assessed) == 0 {
		return models.PRRiskAssessment{
			RiskScore:   0,
			RiskBand:    models.RiskBandLow,
			HighRisk:    false,
			RiskReasons: []string{"No file-level risk assessments available"},
		}
	}

	var (
		allReasons    []string
		weightedSum   float64
		totalWeight   float64
		scoreSum      float64
		maxFileScore  float64
		hardCondition bool
		netTestsAdded int
	)

	for _, f := range assessed {
		score := f.RiskAssessment.RiskScoreFile
		allReasons = append(allReasons, f.RiskAssessment.Reasons...)
		weightedSum += score * float64(f.Changes)
		totalWeight += float64(f.Changes)
		scoreSum += score
		maxFileScore = math.Max(maxFileScore, score)
		if score >= 8 {
			hardCondition = true
		}
		if f.IsTestFile {
			netTestsAdded += f.Additions - f.Deletions
		}
	}

	var base float64
	if totalWeight > 0 {
		base = weightedSum / totalWeight
	} else {
		base = scoreSum / float64(len(assessed))
	}

	score := base
	if hardCondition {
		score = math.Max(score, 8.0)
	}
	if maxFileScore >= 8 {
		score = math.Min(score+0.5, 10.0)
	}
	if netTestsAdded > 0 && maxFileScore < 8 {
		score = math.Max(score-0.5, 0.0)
	}

	return models.PRRiskAssessment{
		RiskScore:   round2(score),
		RiskBand:    models.RiskBand(score),
		HighRisk:    score >= models.HighRiskThreshold,
		RiskReasons: summarizeReasons(allReasons),
		Calculation: models.CalculationDetails{
			WeightedBase:  round2(base),
			MaxFileScore:  maxFileScore,
			HardGuard:     hardCondition,
			NetTestLines:  netTestsAdded,
			FilesAssessed: len(assessed),
		},
	}
}

// summarizeReasons collapses the file-level reasons into at most four
// entries. Duplicate reasons are counted and annotated with the file
// count; when more than four distinct reasons remain, the top three are
// kept and the rest fold into one overflow entry.
func summarizeReasons(allReasons []string) []string {
	if len(allReasons) == 0 {
		return []string{"No specific risk reasons identified"}
	}

	counts := make(map[string]int)
	var order []string
	for _, reason := range allReasons {
		normalized := strings.ToLower(strings.TrimSpace(reason))
		if counts[normalized] == 0 {
			order = append(order, normalized)
		}
		counts[normalized]++
	}

	// Ties keep first-seen order.
	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	overflow := len(order) > maxSummaryReasons
	top := order
	if overflow {
		top = order[:maxSummaryReasons-1]
	}

	summary := make([]string, 0, maxSummaryReasons)
	for _, reason := range top {
		if counts[reason] > 1 {
			summary = append(summary, fmt.Sprintf("%s (in %d files)", reason, counts[reason]))
		} else {
			summary = append(summary, reason)
		}
	}
	if overflow {
		summary = append(summary, fmt.Sprintf("Plus %d other risk factors", len(allReasons)-len(top)))
	}
	return summary
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
