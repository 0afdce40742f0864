package ingest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whattherepo/whattherepo/internal/models"
)

func TestArchiveRoundtrip(t *testing.T) {
	mergedAt := time.Date(2024, 3, 10, 8, 30, 0, 0, time.UTC)
	archive := &models.Archive{
		Summary: models.ArchiveSummary{
			RepoName:    "owner/repo",
			State:       "all",
			RunID:       "run-1",
			GeneratedAt: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC),
			TotalPRs:    1,
			MergedPRs:   1,
		},
		PullRequests: []models.EnrichedPR{{
			PRID:      100,
			PRNumber:  7,
			RepoName:  "owner/repo",
			Title:     "Add retry budget",
			IsMerged:  true,
			MergedAt:  &mergedAt,
			CreatedAt: time.Date(2024, 3, 9, 8, 0, 0, 0, time.UTC),
			RiskAssessment: models.PRRiskAssessment{
				RiskScore:   7.5,
				RiskBand:    models.RiskBandHigh,
				RiskReasons: []string{"retry loop rewrite"},
			},
		}},
	}

	path := filepath.Join(t.TempDir(), "owner_repo.json")
	require.NoError(t, SaveArchive(path, archive))

	got, err := LoadArchive(path)
	require.NoError(t, err)
	assert.Equal(t, archive.Summary, got.Summary)
	require.Len(t, got.PullRequests, 1)

	pr := got.PullRequests[0]
	assert.Equal(t, int64(100), pr.PRID)
	assert.Equal(t, "Add retry budget", pr.Title)
	require.NotNil(t, pr.MergedAt)
	assert.True(t, pr.MergedAt.Equal(mergedAt))
	assert.Equal(t, 7.5, pr.RiskAssessment.RiskScore)
}

func TestLoadArchiveMissingFile(t *testing.T) {
	_, err := LoadArchive(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}
