package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/whattherepo/whattherepo/internal/models"
)

func TestDedupePRRows(t *testing.T) {
	rows := []models.PRRow{
		{PRID: 1, PRNumber: 10, Title: "first"},
		{PRID: 1, PRNumber: 10, Title: "duplicate by id"},
		{PRID: 2, PRNumber: 11},
		// Rows without a pr_id dedupe on pr_number instead.
		{PRID: 0, PRNumber: 12, Title: "legacy"},
		{PRID: 0, PRNumber: 12, Title: "legacy duplicate"},
		{PRID: 0, PRNumber: 13},
	}

	out := dedupePRRows(rows)
	assert.Len(t, out, 4)
	assert.Equal(t, "first", out[0].Title)
	assert.Equal(t, "legacy", out[2].Title)
}

func TestDedupePRRowsKeepsDistinctLegacyRows(t *testing.T) {
	// A zero pr_id must not collapse rows with different numbers.
	rows := []models.PRRow{
		{PRID: 0, PRNumber: 1},
		{PRID: 0, PRNumber: 2},
		{PRID: 0, PRNumber: 3},
	}
	assert.Len(t, dedupePRRows(rows), 3)
}

func TestSortByMergedDesc(t *testing.T) {
	rows := []models.PRRow{
		{PRNumber: 1, MergedAt: 100},
		{PRNumber: 2, MergedAt: 300},
		{PRNumber: 3, MergedAt: 200},
	}
	sortByMergedDesc(rows)
	assert.Equal(t, []int{2, 3, 1}, []int{rows[0].PRNumber, rows[1].PRNumber, rows[2].PRNumber})
}

func TestHasFeature(t *testing.T) {
	assert.True(t, hasFeature(&models.PRRow{Feature: "Add SSO"}))
	assert.False(t, hasFeature(&models.PRRow{Feature: ""}))
	assert.False(t, hasFeature(&models.PRRow{Feature: "   "}))
}

func TestTruncateRows(t *testing.T) {
	rows := []models.PRRow{{PRNumber: 1}, {PRNumber: 2}, {PRNumber: 3}}
	assert.Len(t, truncateRows(rows, 2), 2)
	assert.Len(t, truncateRows(rows, 0), 3)
	assert.Len(t, truncateRows(rows, 10), 3)
}
