package timeparse

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// A Wednesday afternoon, fixed so window math is reproducible.
var testNow = time.Date(2024, time.June, 12, 15, 0, 0, 0, time.UTC)

func TestParseAtRelativeSpans(t *testing.T) {
	tests := []struct {
		query string
		start time.Time
	}{
		{"prs merged last 2 weeks", testNow.AddDate(0, 0, -14)},
		{"changes last month", testNow.AddDate(0, 0, -30)},
		{"what happened last three days", testNow.AddDate(0, 0, -3)},
		{"activity last year", testNow.AddDate(0, 0, -365)},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			w := ParseAt(tt.query, testNow)
			assert.Equal(t, tt.start.Unix(), w.Start)
			assert.Equal(t, testNow.Unix(), w.End)
		})
	}
}

func TestParseAtNamedDays(t *testing.T) {
	w := ParseAt("prs merged yesterday", testNow)
	assert.Equal(t, time.Date(2024, time.June, 11, 0, 0, 0, 0, time.UTC).Unix(), w.Start)
	assert.Equal(t, time.Date(2024, time.June, 11, 23, 59, 59, 0, time.UTC).Unix(), w.End)

	w = ParseAt("what shipped today", testNow)
	assert.Equal(t, time.Date(2024, time.June, 12, 0, 0, 0, 0, time.UTC).Unix(), w.Start)
	assert.Equal(t, time.Date(2024, time.June, 12, 23, 59, 59, 0, time.UTC).Unix(), w.End)
}

func TestParseAtCurrentPeriods(t *testing.T) {
	// Weeks start Monday; June 12 2024 is a Wednesday.
	w := ParseAt("changes this week", testNow)
	assert.Equal(t, time.Date(2024, time.June, 10, 0, 0, 0, 0, time.UTC).Unix(), w.Start)
	assert.Equal(t, testNow.Unix(), w.End)

	w = ParseAt("changes this month", testNow)
	assert.Equal(t, time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC).Unix(), w.Start)

	w = ParseAt("changes this year", testNow)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(), w.Start)
}

func TestParseAtCalendarMonth(t *testing.T) {
	w := ParseAt("prs merged in january 2024", testNow)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(), w.Start)
	assert.Equal(t, time.Date(2024, time.January, 31, 23, 59, 59, 0, time.UTC).Unix(), w.End)

	// February respects the leap year.
	w = ParseAt("in feb 2024", testNow)
	assert.Equal(t, time.Date(2024, time.February, 29, 23, 59, 59, 0, time.UTC).Unix(), w.End)
}

func TestParseAtExplicitDates(t *testing.T) {
	w := ParseAt("changes since 2024-03-05", testNow)
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC).Unix(), w.Start)
	assert.Equal(t, time.Date(2024, time.March, 5, 23, 59, 59, 0, time.UTC).Unix(), w.End)

	// Slash dates are month/day/year.
	w = ParseAt("changes from 3/5/2024", testNow)
	assert.Equal(t, time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC).Unix(), w.Start)
}

func TestParseAtNoExpression(t *testing.T) {
	w := ParseAt("riskiest prs", testNow)
	assert.Equal(t, AllTimeWindowAt(testNow), w)
}

func TestHasTimeExpression(t *testing.T) {
	assert.True(t, HasTimeExpression("changes last week"))
	assert.True(t, HasTimeExpression("what shipped in march"))
	assert.True(t, HasTimeExpression("prs merged yesterday"))
	assert.False(t, HasTimeExpression("riskiest prs"))
	assert.False(t, HasTimeExpression("authentication changes"))
}

func TestExtractTimeExpression(t *testing.T) {
	assert.Equal(t, "last 2 weeks", ExtractTimeExpression("prs merged last 2 weeks by alice"))
	assert.Equal(t, "this month", ExtractTimeExpression("features shipped this month"))
	assert.Equal(t, "", ExtractTimeExpression("riskiest prs"))
}

func TestIsAuthorQuery(t *testing.T) {
	assert.True(t, IsAuthorQuery("changes made by alice"))
	assert.True(t, IsAuthorQuery("prs by bob"))
	assert.True(t, IsAuthorQuery("what did carol do"))
	assert.False(t, IsAuthorQuery("what features shipped"))

	// The generic author pattern also matches "riskiest prs"; callers
	// must test risk intent first.
	assert.True(t, IsAuthorQuery("riskiest prs"))
}

func TestIsRiskQuery(t *testing.T) {
	assert.True(t, IsRiskQuery("top 5 riskiest PRs"))
	assert.True(t, IsRiskQuery("security changes"))
	assert.True(t, IsRiskQuery("most risky merges"))
	assert.False(t, IsRiskQuery("what features shipped"))
}

func TestDefaultWindows(t *testing.T) {
	all := AllTimeWindowAt(testNow)
	assert.Equal(t, testNow.AddDate(0, 0, -AllTimeDays).Unix(), all.Start)

	author := AuthorWindowAt(testNow)
	assert.Equal(t, testNow.AddDate(0, 0, -AuthorWindowDays).Unix(), author.Start)

	risk := RiskWindowAt(testNow)
	assert.Equal(t, testNow.AddDate(0, 0, -RiskWindowDays).Unix(), risk.Start)
}
