package projector

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whattherepo/whattherepo/internal/mart"
	"github.com/whattherepo/whattherepo/internal/models"
)

func TestFeatureRule(t *testing.T) {
	allowLabeled := []models.Label{{Name: "Enhancement"}}

	// An allow label reproduces the label rule, merged or not.
	rule, conf := featureRule(&models.PRRow{
		LabelsFull: allowLabeled, Feature: "Add SSO", RiskScore: 9.0})
	assert.Equal(t, "label-allow", rule)
	assert.Equal(t, 0.9, conf)

	// A feature string without an allow label came from the merged
	// unlabeled fallback, regardless of risk.
	rule, conf = featureRule(&models.PRRow{
		IsMerged: true, Feature: "Add SSO support", RiskScore: 5.0})
	assert.Equal(t, "unlabeled-include", rule)
	assert.Equal(t, 0.3, conf)

	// No feature string means the PR was excluded; low risk alone does
	// not include it.
	rule, conf = featureRule(&models.PRRow{RiskScore: 1.0})
	assert.Equal(t, "excluded", rule)
	assert.Equal(t, 0.0, conf)

	rule, conf = featureRule(&models.PRRow{IsMerged: true, RiskScore: 2.5})
	assert.Equal(t, "excluded", rule)
	assert.Equal(t, 0.0, conf)
}

func TestDedupeByPRID(t *testing.T) {
	rows := []models.PRRow{
		{PRID: 1, Title: "keep"},
		{PRID: 2},
		{PRID: 1, Title: "drop"},
		{PRID: 3},
	}
	out := dedupeByPRID(rows)
	require.Len(t, out, 3)
	assert.Equal(t, "keep", out[0].Title)
	assert.Equal(t, int64(2), out[1].PRID)
	assert.Equal(t, int64(3), out[2].PRID)
}

func TestDedupeByPRIDLegacyRows(t *testing.T) {
	// Rows without a pr_id dedupe on pr_number; distinct numbers all
	// survive.
	rows := []models.PRRow{
		{PRID: 0, PRNumber: 1, Title: "keep"},
		{PRID: 0, PRNumber: 2},
		{PRID: 0, PRNumber: 1, Title: "drop"},
		{PRID: 0, PRNumber: 3},
	}
	out := dedupeByPRID(rows)
	require.Len(t, out, 3)
	assert.Equal(t, "keep", out[0].Title)
	assert.Equal(t, 2, out[1].PRNumber)
	assert.Equal(t, 3, out[2].PRNumber)
}

func TestWindowBounds(t *testing.T) {
	today := time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC)

	start, end := windowBounds(7, 365, today)
	assert.Equal(t, time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, today, end)

	// The all-time sentinel spans the whole data window instead.
	start, end = windowBounds(AllTimeWindow, 30, today)
	assert.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, today, end)
}

func TestWindowMetrics(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	daily := []mart.DailyMetricRow{
		{Username: "alice", Day: "2024-06-05", PRsSubmitted: 2, PRsMerged: 2, LinesChanged: 300, HighRiskPRs: 1},
		{Username: "alice", Day: "2024-06-20", PRsSubmitted: 1, PRsMerged: 1, LinesChanged: 100},
		// Outside the window; must not count.
		{Username: "alice", Day: "2024-05-31", PRsSubmitted: 5, PRsMerged: 5, LinesChanged: 999},
		// Zero-filled days leave the author inactive.
		{Username: "idle", Day: "2024-06-10"},
	}

	rows := windowMetrics("owner/repo", daily, 30, start, end)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, "alice", r.Username)
	assert.Equal(t, "2024-06-01", r.StartDate)
	assert.Equal(t, "2024-06-30", r.EndDate)
	assert.Equal(t, 3, r.PRsSubmitted)
	assert.Equal(t, 3, r.PRsMerged)
	assert.Equal(t, 1, r.HighRiskPRs)
	assert.Equal(t, 400, r.LinesChanged)
	// 1 of 3 merged, as a rounded percentage.
	assert.Equal(t, 33.33, r.HighRiskRate)
}

func TestWindowMetricsNoMerges(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	rows := windowMetrics("owner/repo", []mart.DailyMetricRow{
		{Username: "alice", Day: "2024-06-05", PRsSubmitted: 2, HighRiskPRs: 1, LinesChanged: 50},
	}, 30, start, end)
	require.Len(t, rows, 1)
	assert.Equal(t, 0.0, rows[0].HighRiskRate)
}

func TestFileOwnership(t *testing.T) {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	inWindow := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC).Unix()
	later := time.Date(2024, 6, 20, 12, 0, 0, 0, time.UTC).Unix()

	fileRows := []models.FileRow{
		{FileID: "api/server.go", AuthorName: "alice", MergedAt: inWindow, Additions: 60, Deletions: 15},
		{FileID: "api/server.go", AuthorName: "bob", MergedAt: later, Additions: 20, Deletions: 5},
		// Outside the window.
		{FileID: "api/server.go", AuthorName: "carol", MergedAt: start.Add(-48 * time.Hour).Unix(), Additions: 500},
		// Missing identity rows are skipped.
		{FileID: "", AuthorName: "alice", MergedAt: inWindow, Additions: 10},
		{FileID: "api/server.go", AuthorName: "", MergedAt: inWindow, Additions: 10},
	}

	rows := fileOwnership("owner/repo", fileRows, 30, start, end)
	require.Len(t, rows, 2)

	byAuthor := map[string]mart.FileOwnershipRow{}
	for _, r := range rows {
		byAuthor[r.Username] = r
	}

	alice := byAuthor["alice"]
	assert.Equal(t, "api/server.go", alice.FileID)
	assert.Equal(t, 75, alice.AuthorLines)
	assert.Equal(t, 100, alice.TotalLines)
	assert.Equal(t, 75.0, alice.OwnershipPct)
	require.NotNil(t, alice.LastTouched)
	assert.Equal(t, later, alice.LastTouched.Unix())

	bob := byAuthor["bob"]
	assert.Equal(t, 25, bob.AuthorLines)
	assert.Equal(t, 25.0, bob.OwnershipPct)
}

func TestTopRiskyFiles(t *testing.T) {
	files := []models.FileRow{
		{FileID: "a.go", RiskScoreFile: 4.0, LinesChanged: 10},
		{FileID: "b.go", RiskScoreFile: 9.0, LinesChanged: 5},
		{FileID: "c.go", RiskScoreFile: 9.0, LinesChanged: 50},
		{FileID: "d.go", RiskScoreFile: 0.0, LinesChanged: 999},
	}

	top := topRiskyFiles(files, 2)
	require.Len(t, top, 2)
	// Risk descending, then lines descending.
	assert.Equal(t, "c.go", top[0].FilePath)
	assert.Equal(t, "b.go", top[1].FilePath)

	top = topRiskyFiles(files, 10)
	require.Len(t, top, 3)
	assert.Equal(t, "a.go", top[2].FilePath)
}

func TestRoundRate(t *testing.T) {
	assert.Equal(t, 33.33, roundRate(100.0/3))
	assert.Equal(t, 66.67, roundRate(200.0/3))
	assert.Equal(t, 0.0, roundRate(0))
	assert.Equal(t, 100.0, roundRate(100))
}

func TestValidWindow(t *testing.T) {
	for _, w := range Windows {
		assert.True(t, ValidWindow(w), "window %d", w)
	}
	assert.False(t, ValidWindow(14))
	assert.False(t, ValidWindow(0))
}

func TestValidTable(t *testing.T) {
	for _, name := range []string{"", TableAll, TableAuthors, TableDaily, TableWindow, TableAuthorPRs, TableFileOwnership} {
		assert.True(t, ValidTable(name), "table %q", name)
	}
	assert.False(t, ValidTable("repo_prs"))
}

func TestEngineerOptionsWrites(t *testing.T) {
	assert.True(t, EngineerOptions{}.writes(TableAuthors))
	assert.True(t, EngineerOptions{Table: TableAll}.writes(TableDaily))
	assert.True(t, EngineerOptions{Table: TableWindow}.writes(TableWindow))
	assert.False(t, EngineerOptions{Table: TableWindow}.writes(TableAuthors))
}

func TestDayFormatsUTC(t *testing.T) {
	epoch := time.Date(2024, 6, 12, 23, 59, 59, 0, time.UTC).Unix()
	assert.Equal(t, "2024-06-12", day(epoch))
}
