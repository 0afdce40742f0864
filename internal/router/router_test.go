package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyDirect(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  Plan
	}{
		{
			"riskiest with explicit limit",
			"Top 5 riskiest PRs",
			Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricRiskiest, Limit: 5},
		},
		{
			"riskiest without limit",
			"riskiest changes this month",
			Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricRiskiest, Limit: DefaultTopLimit},
		},
		{
			"features shipped",
			"What features shipped last month?",
			Plan{Route: RouteDirect, Object: ObjectFeatures, Metric: MetricList},
		},
		{
			"what shipped",
			"what was shipped last week",
			Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricList},
		},
		{
			"count",
			"how many prs were merged",
			Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricCount},
		},
		{
			"top file by churn",
			"file that changed most",
			Plan{Route: RouteDirect, Object: ObjectFiles, Metric: MetricTop},
		},
		{
			"largest",
			"largest merged prs",
			Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricLargest, Limit: DefaultTopLimit},
		},
		{
			"pr number with hash",
			"summarize pr #42",
			Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricList, PRNumber: 42},
		},
		{
			"pr number without hash",
			"summarize pr 1337",
			Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricList, PRNumber: 1337},
		},
		{
			"author filter",
			"changes made by torvalds",
			Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricList, Author: "torvalds"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestClassifyHybrid(t *testing.T) {
	plan := Classify("recent authentication work")
	assert.Equal(t, RouteHybrid, plan.Route)
	assert.Equal(t, ObjectFeatures, plan.Object)
	assert.Equal(t, []string{"authentication"}, plan.SemanticTerms)

	// Multiple topic cues each contribute a term.
	plan = Classify("payment bug reports")
	assert.Equal(t, RouteHybrid, plan.Route)
	assert.Equal(t, []string{"payment", "bug"}, plan.SemanticTerms)

	// Database cues steer toward the file object.
	plan = Classify("schema migration work on the database")
	assert.Equal(t, RouteHybrid, plan.Route)
	assert.Equal(t, ObjectFiles, plan.Object)
}

func TestClassifySpecificFile(t *testing.T) {
	plan := Classify("show changes in server.py")
	assert.Equal(t, RouteHybrid, plan.Route)
	assert.Equal(t, ObjectFiles, plan.Object)
	assert.Equal(t, "server.py", plan.SpecificFile)
	assert.Equal(t, []string{"server.py"}, plan.SemanticTerms)
}

func TestClassifyGeneralFileKeyword(t *testing.T) {
	// No specific file named; the raw query becomes the semantic term
	// with its original casing.
	plan := Classify("Which files keep breaking")
	assert.Equal(t, RouteHybrid, plan.Route)
	assert.Equal(t, ObjectFiles, plan.Object)
	assert.Equal(t, []string{"Which files keep breaking"}, plan.SemanticTerms)
	assert.Empty(t, plan.SpecificFile)
}

func TestClassifyVector(t *testing.T) {
	plan := Classify("why did the outage happen")
	assert.Equal(t, RouteVector, plan.Route)
	assert.Equal(t, ObjectPRs, plan.Object)
	assert.Equal(t, MetricExplain, plan.Metric)
	assert.Equal(t, []string{"why did the outage happen"}, plan.SemanticTerms)

	// A risk cue without an explanation cue targets files.
	plan = Classify("show me risky hotspots")
	assert.Equal(t, RouteVector, plan.Route)
	assert.Equal(t, ObjectFiles, plan.Object)
}

func TestClassifyDefault(t *testing.T) {
	plan := Classify("ongoing refactors")
	assert.Equal(t, RouteHybrid, plan.Route)
	assert.Equal(t, ObjectPRs, plan.Object)
	assert.Equal(t, MetricList, plan.Metric)
	assert.Equal(t, []string{"ongoing refactors"}, plan.SemanticTerms)
}

func TestClassifyDeterministic(t *testing.T) {
	queries := []string{
		"Top 5 riskiest PRs",
		"recent authentication work",
		"show changes in server.py",
		"why did the outage happen",
		"ongoing refactors",
	}
	for _, q := range queries {
		first := Classify(q)
		for i := 0; i < 3; i++ {
			assert.Equal(t, first, Classify(q), "query %q must route identically every time", q)
		}
	}
}

func TestExtractSemanticTerms(t *testing.T) {
	terms := ExtractSemanticTerms("slow database queries")
	assert.Contains(t, terms, "slow")
	assert.Contains(t, terms, "database")
	assert.Contains(t, terms, "query")

	// No vocabulary hit falls back to the whole query.
	assert.Equal(t, []string{"zebra unicorn"}, ExtractSemanticTerms("zebra unicorn"))
}
