package vectorstore

import (
	"fmt"
	"strings"

	"github.com/whattherepo/whattherepo/internal/llm"
	"github.com/whattherepo/whattherepo/internal/models"
)

// Column value limits carried over from the original collection schema.
const (
	maxBodyChars          = 8000
	maxBodyEmbeddingChars = 2000
	maxPatchChars         = 32000
	maxEmbeddingChars     = 8000
	maxContextFiles       = 10
)

// PREmbeddingText composes the text embedded for one PR: number, title,
// a trimmed body, the generated summary, and the first ten file paths.
func PREmbeddingText(pr *models.EnrichedPR) string {
	topFiles := make([]string, 0, maxContextFiles)
	for i := range pr.Files {
		if i >= maxContextFiles {
			break
		}
		topFiles = append(topFiles, pr.Files[i].Filename)
	}
	content := fmt.Sprintf("PR #%d: %s\n%s\nSummary: %s\nFiles: %s",
		pr.PRNumber, pr.Title,
		llm.Truncate(pr.Body, maxBodyEmbeddingChars),
		pr.PRSummary,
		strings.Join(topFiles, ", "))
	return llm.Truncate(content, maxEmbeddingChars)
}

// FileEmbeddingText composes the text embedded for one changed file:
// path, language, status, the owning PR, the AI summary, and a trimmed
// diff.
func FileEmbeddingText(pr *models.EnrichedPR, file *models.EnrichedFile) string {
	content := fmt.Sprintf("PATH: %s  LANG: %s  STATUS: %s\nPR #%d: %s\nFILE SUMMARY: %s\nDIFF (trimmed): %s",
		file.Filename, file.Language, file.Status,
		pr.PRNumber, pr.Title,
		file.AISummary,
		llm.Truncate(file.Patch, maxPatchChars))
	return llm.Truncate(content, maxEmbeddingChars)
}

// BuildPRRow maps an enriched PR to its collection row. The vector is
// attached by the loader after embedding.
func BuildPRRow(pr *models.EnrichedPR) models.PRRow {
	labels := pr.Labels
	if labels == nil {
		labels = []models.Label{}
	}
	reasons := pr.RiskAssessment.RiskReasons
	if reasons == nil {
		reasons = []string{}
	}
	return models.PRRow{
		RepoID:       pr.RepoID,
		RepoName:     pr.RepoName,
		PRNumber:     pr.PRNumber,
		PRID:         pr.PRID,
		Title:        pr.Title,
		Body:         llm.Truncate(pr.Body, maxBodyChars),
		AuthorID:     pr.User.ID,
		AuthorName:   pr.User.Login,
		CreatedAt:    pr.CreatedAt.Unix(),
		MergedAt:     pr.MergedEpoch(),
		IsMerged:     pr.IsMerged,
		IsClosed:     pr.IsClosed,
		Status:       pr.State,
		LabelsFull:   labels,
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		ChangedFiles: pr.ChangedFiles,
		Feature:      pr.Feature,
		PRSummary:    pr.PRSummary,
		RiskScore:    pr.RiskAssessment.RiskScore,
		RiskBand:     pr.RiskAssessment.RiskBand,
		HighRisk:     pr.RiskAssessment.HighRisk,
		RiskReasons:  reasons,
	}
}

// BuildFileRow maps one changed file of an enriched PR to its
// collection row.
func BuildFileRow(pr *models.EnrichedPR, file *models.EnrichedFile) models.FileRow {
	reasons := file.RiskAssessment.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	return models.FileRow{
		RepoID:          pr.RepoID,
		RepoName:        pr.RepoName,
		PRNumber:        pr.PRNumber,
		PRID:            pr.PRID,
		AuthorID:        pr.User.ID,
		AuthorName:      pr.User.Login,
		MergedAt:        pr.MergedEpoch(),
		FileID:          file.Filename,
		FileStatus:      file.Status,
		Language:        file.Language,
		Additions:       file.Additions,
		Deletions:       file.Deletions,
		LinesChanged:    file.Changes,
		IsBinary:        file.IsBinary,
		IsConfigFile:    file.IsConfigFile,
		IsDocumentation: file.IsDocumentation,
		IsTestFile:      file.IsTestFile,
		IsSourceCode:    file.IsSourceCode,
		Patch:           llm.Truncate(file.Patch, maxPatchChars),
		AISummary:       file.AISummary,
		RiskScoreFile:   file.RiskAssessment.RiskScoreFile,
		HighRiskFlag:    file.RiskAssessment.HighRiskFlag,
		FileRiskReasons: reasons,
	}
}
