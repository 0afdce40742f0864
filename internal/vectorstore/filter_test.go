package vectorstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderNil(t *testing.T) {
	sql, args := Render(nil, 1)
	assert.Equal(t, "TRUE", sql)
	assert.Empty(t, args)
}

func TestRenderComparisons(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		sql    string
		args   []any
	}{
		{"eq", Eq("repo_name", "owner/repo"), "repo_name = $1", []any{"owner/repo"}},
		{"ne", Ne("feature", ""), "feature <> $1", []any{""}},
		{"ge", Ge("risk_score", 7.0), "risk_score >= $1", []any{7.0}},
		{"lt", Lt("additions", 10), "additions < $1", []any{10}},
		{"like", Like("file_id", "%auth%"), "file_id ILIKE $1", []any{"%auth%"}},
		{"between", Between("merged_at", int64(100), int64(200)), "merged_at BETWEEN $1 AND $2", []any{int64(100), int64(200)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sql, args := Render(tt.filter, 1)
			assert.Equal(t, tt.sql, sql)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestRenderPlaceholderOffset(t *testing.T) {
	// Search queries bind the vector first, so filters start at $2.
	sql, args := Render(And(
		Eq("repo_name", "owner/repo"),
		Between("merged_at", int64(1), int64(2))), 2)
	assert.Equal(t, "(repo_name = $2 AND merged_at BETWEEN $3 AND $4)", sql)
	assert.Equal(t, []any{"owner/repo", int64(1), int64(2)}, args)
}

func TestRenderIn(t *testing.T) {
	sql, args := Render(In("pr_number", 1, 2, 3), 1)
	assert.Equal(t, "pr_number IN ($1, $2, $3)", sql)
	assert.Equal(t, []any{1, 2, 3}, args)

	// Empty IN matches nothing rather than everything.
	sql, args = Render(In("pr_number"), 1)
	assert.Equal(t, "FALSE", sql)
	assert.Empty(t, args)
}

func TestRenderBoolCombinators(t *testing.T) {
	sql, _ := Render(Or(Eq("is_merged", true), Eq("is_closed", true)), 1)
	assert.Equal(t, "(is_merged = $1 OR is_closed = $2)", sql)

	sql, args := Render(And(), 1)
	assert.Equal(t, "TRUE", sql)
	assert.Empty(t, args)

	sql, _ = Render(And(Eq("a", 1), Or(Eq("b", 2), Eq("c", 3))), 1)
	assert.Equal(t, "(a = $1 AND (b = $2 OR c = $3))", sql)
}

func TestRenderRejectsInvalidColumn(t *testing.T) {
	assert.Panics(t, func() {
		Render(Eq("repo_name; DROP TABLE pr_index", "x"), 1)
	})
	assert.Panics(t, func() {
		Render(Eq("RepoName", "x"), 1)
	})
}
