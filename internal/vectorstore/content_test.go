package vectorstore

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/whattherepo/whattherepo/internal/models"
)

func samplePR() *models.EnrichedPR {
	mergedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &models.EnrichedPR{
		PRID:      9001,
		PRNumber:  42,
		RepoID:    7,
		RepoName:  "owner/repo",
		Title:     "Add streaming uploads",
		Body:      "Implements chunked uploads.",
		State:     "closed",
		CreatedAt: time.Date(2024, 4, 28, 9, 0, 0, 0, time.UTC),
		MergedAt:  &mergedAt,
		IsMerged:  true,
		IsClosed:  true,
		User:      models.Author{Login: "alice", ID: 11},
		Additions: 120,
		Deletions: 30,
		PRSummary: "Adds a chunked upload path.",
		Feature:   "Add streaming uploads",
		RiskAssessment: models.PRRiskAssessment{
			RiskScore: 5.5, RiskBand: models.RiskBandMedium,
			RiskReasons: []string{"touches upload path"},
		},
	}
}

func TestPREmbeddingTextContents(t *testing.T) {
	pr := samplePR()
	for i := 0; i < 15; i++ {
		pr.Files = append(pr.Files, models.EnrichedFile{Filename: fmt.Sprintf("f%d.go", i)})
	}

	text := PREmbeddingText(pr)
	assert.Contains(t, text, "PR #42: Add streaming uploads")
	assert.Contains(t, text, "Adds a chunked upload path.")
	assert.Contains(t, text, "f9.go")
	// Only the first ten file paths are embedded.
	assert.NotContains(t, text, "f10.go")
	assert.LessOrEqual(t, len(text), maxEmbeddingChars)
}

func TestBuildPRRow(t *testing.T) {
	pr := samplePR()
	row := BuildPRRow(pr)

	assert.Equal(t, int64(9001), row.PRID)
	assert.Equal(t, 42, row.PRNumber)
	assert.Equal(t, "owner/repo", row.RepoName)
	assert.Equal(t, "alice", row.AuthorName)
	assert.Equal(t, pr.MergedAt.Unix(), row.MergedAt)
	assert.True(t, row.IsMerged)
	assert.Equal(t, 5.5, row.RiskScore)
	assert.Equal(t, []string{"touches upload path"}, row.RiskReasons)
	// Nil slices become empty so the stored JSON stays a list.
	assert.NotNil(t, row.LabelsFull)
}

func TestBuildPRRowTruncatesBody(t *testing.T) {
	pr := samplePR()
	pr.Body = strings.Repeat("x", maxBodyChars+500)
	row := BuildPRRow(pr)
	assert.Len(t, row.Body, maxBodyChars)
}

func TestBuildFileRow(t *testing.T) {
	pr := samplePR()
	file := &models.EnrichedFile{
		Filename:   "upload.go",
		Status:     "modified",
		Language:   "Go",
		Additions:  100,
		Deletions:  20,
		Changes:    120,
		IsTestFile: false,
		AISummary:  "Adds chunk framing.",
		RiskAssessment: models.FileRiskAssessment{
			FilePath:      "upload.go",
			RiskScoreFile: 6.0,
			Reasons:       []string{"hot path"},
		},
	}

	row := BuildFileRow(pr, file)
	assert.Equal(t, "upload.go", row.FileID)
	assert.Equal(t, 42, row.PRNumber)
	assert.Equal(t, "alice", row.AuthorName)
	assert.Equal(t, pr.MergedAt.Unix(), row.MergedAt)
	assert.Equal(t, 120, row.LinesChanged)
	assert.Equal(t, 6.0, row.RiskScoreFile)
	assert.Equal(t, []string{"hot path"}, row.FileRiskReasons)
}

func TestMergedEpochBackfill(t *testing.T) {
	pr := samplePR()
	pr.MergedAt = nil
	// Merged without a timestamp falls back to created_at.
	assert.Equal(t, pr.CreatedAt.Unix(), pr.MergedEpoch())

	pr.IsMerged = false
	assert.Equal(t, int64(0), pr.MergedEpoch())
}
