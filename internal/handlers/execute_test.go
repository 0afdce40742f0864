package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whattherepo/whattherepo/internal/models"
	"github.com/whattherepo/whattherepo/internal/router"
	"github.com/whattherepo/whattherepo/internal/timeparse"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

var execNow = time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)

func TestQueryWindowPrecedence(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  timeparse.Window
	}{
		{
			name:  "explicit expression wins",
			query: "what shipped last 2 weeks",
			want:  timeparse.ParseAt("what shipped last 2 weeks", execNow),
		},
		{
			// Matches the generic author pattern too; risk must win.
			name:  "risk default beats author default",
			query: "riskiest prs",
			want:  timeparse.RiskWindowAt(execNow),
		},
		{
			name:  "author default",
			query: "changes made by alice",
			want:  timeparse.AuthorWindowAt(execNow),
		},
		{
			name:  "all-time fallback",
			query: "what was shipped",
			want:  timeparse.AllTimeWindowAt(execNow),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, queryWindow(tt.query, execNow))
		})
	}
}

// fakeStore serves canned rows and records the filters it was asked
// to apply.
type fakeStore struct {
	prRows   []models.PRRow
	fileRows []models.FileRow
	prFilter vectorstore.Filter
}

func (f *fakeStore) QueryPRs(ctx context.Context, filter vectorstore.Filter) ([]models.PRRow, error) {
	f.prFilter = filter
	return f.prRows, nil
}

func (f *fakeStore) QueryFiles(ctx context.Context, filter vectorstore.Filter) ([]models.FileRow, error) {
	return f.fileRows, nil
}

func (f *fakeStore) SearchPRs(ctx context.Context, vec []float32, filter vectorstore.Filter, k int) ([]models.PRRow, error) {
	return f.prRows, nil
}

func (f *fakeStore) SearchFiles(ctx context.Context, vec []float32, filter vectorstore.Filter, k int) ([]models.FileRow, error) {
	return f.fileRows, nil
}

func TestExecuteCountRoute(t *testing.T) {
	store := &fakeStore{prRows: []models.PRRow{
		{PRID: 1, PRNumber: 1, AuthorName: "alice", IsMerged: true, Feature: "Add SSO", RiskScore: 2.0},
		{PRID: 2, PRNumber: 2, AuthorName: "alice", IsMerged: true, RiskScore: 8.0, HighRisk: true},
		{PRID: 3, PRNumber: 3, AuthorName: "bob", IsClosed: true, RiskScore: 1.0},
	}}
	s := New(store, nil, nil)

	resp, err := s.ExecuteAt(context.Background(), "owner/repo", "how many prs merged", 0, execNow)
	require.NoError(t, err)

	assert.Equal(t, router.RouteDirect, resp.Plan.Route)
	assert.Equal(t, router.MetricCount, resp.Plan.Metric)
	require.NotNil(t, resp.Count)
	assert.Equal(t, 3, resp.Count.TotalPRs)
	assert.Equal(t, 2, resp.Count.MergedPRs)
	assert.Equal(t, 1, resp.Count.ClosedPRs)
	assert.Equal(t, 1, resp.Count.FeaturePRs)
	assert.Equal(t, 1, resp.Count.HighRiskPRs)
	require.Len(t, resp.Count.TopAuthors, 2)
	assert.Equal(t, "alice", resp.Count.TopAuthors[0].Author)

	// The scalar filter carries the repository.
	sql, args := vectorstore.Render(store.prFilter, 1)
	assert.Contains(t, sql, "repo_name")
	assert.Contains(t, args, "owner/repo")
}

func TestExecuteRiskiestRoute(t *testing.T) {
	store := &fakeStore{prRows: []models.PRRow{
		{PRID: 1, PRNumber: 1, Title: "low", IsMerged: true, RiskScore: 2.0},
		{PRID: 2, PRNumber: 2, Title: "high", IsMerged: true, RiskScore: 9.0, HighRisk: true},
		{PRID: 3, PRNumber: 3, Title: "mid", IsMerged: true, RiskScore: 5.0},
	}}
	s := New(store, nil, nil)

	resp, err := s.ExecuteAt(context.Background(), "owner/repo", "riskiest prs", 0, execNow)
	require.NoError(t, err)

	assert.Equal(t, router.RouteDirect, resp.Plan.Route)
	assert.Equal(t, router.MetricRiskiest, resp.Plan.Metric)
	// Risk default window, not the author one the generic pattern
	// would pick.
	assert.Equal(t, timeparse.RiskWindowAt(execNow), resp.Window)

	require.Len(t, resp.PRs, 3)
	assert.Equal(t, "high", resp.PRs[0].Title)
	assert.Equal(t, "mid", resp.PRs[1].Title)
	assert.Equal(t, "low", resp.PRs[2].Title)
	require.NotNil(t, resp.Summary)
	assert.Equal(t, 3, resp.Summary.PRsMerged)
	assert.Equal(t, 1, resp.Summary.HighRiskPRs)
}
