package api

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

func TestParsePRDetailsQuery(t *testing.T) {
	tests := []struct {
		name string
		url  string
		ok   bool
		want prDetailsQuery
	}{
		{
			name: "pr_id and repo",
			url:  "/api/pr-details?pr_id=9001&repo=owner/repo",
			ok:   true,
			want: prDetailsQuery{repo: "owner/repo", prID: 9001},
		},
		{
			name: "repo_name alternate",
			url:  "/api/pr-details?pr_id=9001&repo_name=owner/repo",
			ok:   true,
			want: prDetailsQuery{repo: "owner/repo", prID: 9001},
		},
		{
			name: "pr_number fallback",
			url:  "/api/pr-details?pr_number=42&repo=owner/repo",
			ok:   true,
			want: prDetailsQuery{repo: "owner/repo", prNumber: 42},
		},
		{
			name: "missing repo",
			url:  "/api/pr-details?pr_id=9001",
			ok:   false,
		},
		{
			name: "missing identifier",
			url:  "/api/pr-details?repo=owner/repo",
			ok:   false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, ok := parsePRDetailsQuery(httptest.NewRequest("GET", tt.url, nil))
			require.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, q)
			}
		})
	}
}

func TestPRDetailsFilterPrefersID(t *testing.T) {
	q := prDetailsQuery{repo: "owner/repo", prID: 9001, prNumber: 42}
	sql, args := vectorstore.Render(q.filter(), 1)
	assert.Equal(t, "(repo_name = $1 AND pr_id = $2)", sql)
	assert.Equal(t, []any{"owner/repo", int64(9001)}, args)

	q.prID = 0
	sql, args = vectorstore.Render(q.filter(), 1)
	assert.Equal(t, "(repo_name = $1 AND pr_number = $2)", sql)
	assert.Equal(t, []any{"owner/repo", 42}, args)
}
