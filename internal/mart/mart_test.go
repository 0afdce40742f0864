package mart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestMart(t *testing.T) *Mart {
	t.Helper()
	m, err := Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { m.Close() })
	require.NoError(t, m.EnsureSchema(context.Background()))
	return m
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "dsn")
	assert.Error(t, err)
}

func TestAuthorsUpsert(t *testing.T) {
	m := openTestMart(t)
	ctx := context.Background()

	require.NoError(t, m.UpsertAuthors(ctx, []AuthorRow{
		NewAuthorRow("bob"),
		NewAuthorRow("alice"),
	}))
	// Re-upserting updates in place instead of duplicating.
	require.NoError(t, m.UpsertAuthors(ctx, []AuthorRow{
		{Username: "alice", DisplayName: "Alice A", AvatarURL: "https://github.com/alice.png"},
	}))

	authors, err := m.ListAuthors(ctx)
	require.NoError(t, err)
	require.Len(t, authors, 2)
	assert.Equal(t, "alice", authors[0].Username)
	assert.Equal(t, "Alice A", authors[0].DisplayName)
	assert.Equal(t, "bob", authors[1].Username)
}

func TestWindowMetricsRoundtrip(t *testing.T) {
	m := openTestMart(t)
	ctx := context.Background()

	has, err := m.HasWindowMetrics(ctx, "owner/repo", 30)
	require.NoError(t, err)
	assert.False(t, has)

	rows := []WindowMetricRow{
		{Username: "alice", RepoName: "owner/repo", WindowDays: 30,
			StartDate: "2024-05-01", EndDate: "2024-05-31",
			PRsSubmitted: 4, PRsMerged: 3, HighRiskPRs: 1, HighRiskRate: 33.3, LinesChanged: 900},
		{Username: "bob", RepoName: "owner/repo", WindowDays: 30,
			StartDate: "2024-05-01", EndDate: "2024-05-31",
			PRsSubmitted: 6, PRsMerged: 5, LinesChanged: 1200},
	}
	require.NoError(t, m.UpsertWindowMetrics(ctx, rows))

	has, err = m.HasWindowMetrics(ctx, "owner/repo", 30)
	require.NoError(t, err)
	assert.True(t, has)

	// Other windows stay empty.
	has, err = m.HasWindowMetrics(ctx, "owner/repo", 90)
	require.NoError(t, err)
	assert.False(t, has)

	got, err := m.GetWindowMetrics(ctx, "owner/repo", 30)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Most merged PRs first.
	assert.Equal(t, "bob", got[0].Username)
	assert.Equal(t, "alice", got[1].Username)
	assert.Equal(t, 33.3, got[1].HighRiskRate)
}

func TestFileOwnershipRoundtrip(t *testing.T) {
	m := openTestMart(t)
	ctx := context.Background()

	touched := time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC)
	require.NoError(t, m.UpsertFileOwnership(ctx, []FileOwnershipRow{
		{Username: "alice", RepoName: "owner/repo", WindowDays: 90,
			StartDate: "2024-03-01", EndDate: "2024-05-31",
			FileID: "api/server.go", FilePath: "api/server.go",
			OwnershipPct: 20.0, AuthorLines: 40, TotalLines: 200},
		{Username: "alice", RepoName: "owner/repo", WindowDays: 90,
			StartDate: "2024-03-01", EndDate: "2024-05-31",
			FileID: "api/router.go", FilePath: "api/router.go",
			OwnershipPct: 75.0, AuthorLines: 150, TotalLines: 200, LastTouched: &touched},
	}))

	got, err := m.GetFileOwnership(ctx, "owner/repo", "alice", 90)
	require.NoError(t, err)
	require.Len(t, got, 2)
	// Strongest ownership first.
	assert.Equal(t, "api/router.go", got[0].FileID)
	assert.Equal(t, 75.0, got[0].OwnershipPct)
	require.NotNil(t, got[0].LastTouched)
	assert.Equal(t, touched.Unix(), got[0].LastTouched.Unix())
	assert.Nil(t, got[1].LastTouched)
}

func TestAuthorPRsRoundtrip(t *testing.T) {
	m := openTestMart(t)
	ctx := context.Background()

	require.NoError(t, m.UpsertAuthorPRs(ctx, []AuthorPRRow{
		{Username: "alice", RepoName: "owner/repo", WindowDays: 30,
			StartDate: "2024-05-01", EndDate: "2024-05-31",
			PRNumber: 10, Title: "older", MergedAt: time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC),
			RiskScore: 2.0, FeatureRule: "unlabeled-include", FeatureConfidence: 0.3},
		{Username: "alice", RepoName: "owner/repo", WindowDays: 30,
			StartDate: "2024-05-01", EndDate: "2024-05-31",
			PRNumber: 11, Title: "newer", MergedAt: time.Date(2024, 5, 25, 0, 0, 0, 0, time.UTC),
			RiskScore: 8.0, HighRisk: true, FeatureRule: "label-allow", FeatureConfidence: 0.9},
	}))

	got, err := m.GetAuthorPRs(ctx, "owner/repo", "alice", 30)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].Title)
	assert.True(t, got[0].HighRisk)
	assert.Equal(t, "older", got[1].Title)
}

func TestRepoPRsRoundtrip(t *testing.T) {
	m := openTestMart(t)
	ctx := context.Background()

	merged := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	mergedLater := time.Date(2024, 5, 20, 12, 0, 0, 0, time.UTC)
	rows := []RepoPRRow{
		{RepoName: "owner/repo", PRNumber: 1, Title: "open PR",
			Author: "bob", CreatedAt: merged.Add(-48 * time.Hour)},
		{RepoName: "owner/repo", PRNumber: 2, Title: "first merge",
			Author: "alice", CreatedAt: merged.Add(-24 * time.Hour), MergedAt: &merged,
			IsMerged: true, Additions: 50, Deletions: 5, ChangedFiles: 3,
			LabelsFull:  []string{"enhancement"},
			FeatureRule: "label-allow", FeatureConfidence: 0.9,
			RiskScore: 8.2, HighRisk: true,
			RiskReasons:   []string{"touches auth"},
			TopRiskyFiles: []RiskyFile{{FilePath: "auth.go", Risk: 9.0, Lines: 120, Status: "modified", Language: "Go"}}},
		{RepoName: "owner/repo", PRNumber: 3, Title: "second merge",
			Author: "alice", CreatedAt: merged, MergedAt: &mergedLater, IsMerged: true},
	}
	require.NoError(t, m.UpsertRepoPRs(ctx, rows))

	has, err := m.HasRepoPRs(ctx, "owner/repo")
	require.NoError(t, err)
	assert.True(t, has)

	got, err := m.GetRepoPRs(ctx, "owner/repo", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Most recently merged first, open PRs last.
	assert.Equal(t, 3, got[0].PRNumber)
	assert.Equal(t, 2, got[1].PRNumber)
	assert.Equal(t, 1, got[2].PRNumber)

	assert.Equal(t, []string{"enhancement"}, got[1].LabelsFull)
	assert.Equal(t, []string{"touches auth"}, got[1].RiskReasons)
	require.Len(t, got[1].TopRiskyFiles, 1)
	assert.Equal(t, "auth.go", got[1].TopRiskyFiles[0].FilePath)
	assert.Equal(t, 9.0, got[1].TopRiskyFiles[0].Risk)

	// Nil JSON slices come back as empty lists, not null.
	assert.NotNil(t, got[2].LabelsFull)
	assert.NotNil(t, got[2].RiskReasons)
	assert.NotNil(t, got[2].TopRiskyFiles)

	got, err = m.GetRepoPRs(ctx, "owner/repo", 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestDeleteWindowRows(t *testing.T) {
	m := openTestMart(t)
	ctx := context.Background()

	rows := []WindowMetricRow{
		{Username: "alice", RepoName: "owner/repo", WindowDays: 7,
			StartDate: "2024-06-06", EndDate: "2024-06-12", PRsMerged: 1},
		{Username: "alice", RepoName: "owner/repo", WindowDays: 30,
			StartDate: "2024-05-14", EndDate: "2024-06-12", PRsMerged: 3},
		{Username: "bob", RepoName: "other/repo", WindowDays: 7,
			StartDate: "2024-06-06", EndDate: "2024-06-12", PRsMerged: 2},
	}
	require.NoError(t, m.UpsertWindowMetrics(ctx, rows))

	// A single-window delete leaves the other windows and repositories.
	require.NoError(t, m.DeleteWindowMetrics(ctx, "owner/repo", 7))

	has, err := m.HasWindowMetrics(ctx, "owner/repo", 7)
	require.NoError(t, err)
	assert.False(t, has)
	has, err = m.HasWindowMetrics(ctx, "owner/repo", 30)
	require.NoError(t, err)
	assert.True(t, has)
	has, err = m.HasWindowMetrics(ctx, "other/repo", 7)
	require.NoError(t, err)
	assert.True(t, has)

	// Window zero clears every remaining window of the repository.
	require.NoError(t, m.DeleteWindowMetrics(ctx, "owner/repo", 0))
	has, err = m.HasWindowMetrics(ctx, "owner/repo", 30)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDeleteRepoPRs(t *testing.T) {
	m := openTestMart(t)
	ctx := context.Background()

	created := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.UpsertRepoPRs(ctx, []RepoPRRow{
		{RepoName: "owner/repo", PRNumber: 1, CreatedAt: created},
		{RepoName: "other/repo", PRNumber: 1, CreatedAt: created},
	}))

	require.NoError(t, m.DeleteRepoPRs(ctx, "owner/repo"))

	has, err := m.HasRepoPRs(ctx, "owner/repo")
	require.NoError(t, err)
	assert.False(t, has)
	has, err = m.HasRepoPRs(ctx, "other/repo")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestLatestRepoPRCreatedAt(t *testing.T) {
	m := openTestMart(t)
	ctx := context.Background()

	latest, err := m.LatestRepoPRCreatedAt(ctx, "owner/repo")
	require.NoError(t, err)
	assert.Nil(t, latest)

	older := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2024, 5, 15, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.UpsertRepoPRs(ctx, []RepoPRRow{
		{RepoName: "owner/repo", PRNumber: 1, CreatedAt: older},
		{RepoName: "owner/repo", PRNumber: 2, CreatedAt: newer},
	}))

	latest, err = m.LatestRepoPRCreatedAt(ctx, "owner/repo")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, newer.Unix(), latest.Unix())
}
