// Package router classifies natural-language queries into a retrieval
// plan: a route (direct, hybrid, or vector), a target object, a metric,
// and the extracted parameters the handlers need. Classification is
// pure pattern matching, first match wins, so the same query always
// yields the same plan.
package router

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/whattherepo/whattherepo/internal/logging"
)

// Route selects the retrieval strategy.
type Route string

const (
	RouteDirect Route = "direct"
	RouteHybrid Route = "hybrid"
	RouteVector Route = "vector"
)

// Object is the entity kind a plan retrieves.
type Object string

const (
	ObjectPRs      Object = "prs"
	ObjectFeatures Object = "features"
	ObjectFiles    Object = "files"
)

// Metric is the reduction applied to the retrieved rows.
type Metric string

const (
	MetricList     Metric = "list"
	MetricTop      Metric = "top"
	MetricCount    Metric = "count"
	MetricRiskiest Metric = "riskiest"
	MetricLargest  Metric = "largest"
	MetricExplain  Metric = "explain"
)

// DefaultTopLimit applies when a ranked query names no explicit count.
const DefaultTopLimit = 20

// Plan is the routing decision for one query.
type Plan struct {
	Route         Route    `json:"route"`
	Object        Object   `json:"object"`
	Metric        Metric   `json:"metric"`
	SemanticTerms []string `json:"semantic_terms"`
	Limit         int      `json:"limit,omitempty"`
	PRNumber      int      `json:"pr_number,omitempty"`
	Author        string   `json:"author,omitempty"`
	SpecificFile  string   `json:"specific_file,omitempty"`
}

// Direct cues: scalar filters plus a client-side reduce.
var directPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(count|top|most|list|merged)\b`),
	regexp.MustCompile(`features?\s+shipped`),
	regexp.MustCompile(`shipped\s+features?`),
	regexp.MustCompile(`what\s+was\s+shipped`),
	regexp.MustCompile(`what\s+shipped`),
	regexp.MustCompile(`changes?\s+last`),
	regexp.MustCompile(`changes?\s+(made|done)\s+by`),
	regexp.MustCompile(`file\s+that\s+changed`),
	regexp.MustCompile(`how\s+many`),
	regexp.MustCompile(`number\s+of`),
	regexp.MustCompile(`total\s+(prs?|changes?|features?)`),
	regexp.MustCompile(`prs?\s+merged`),
	regexp.MustCompile(`files?\s+modified`),
	regexp.MustCompile(`pr\s+\d+`),
	regexp.MustCompile(`summarize\s+pr\s+\d+`),
	regexp.MustCompile(`pr\s+#\s*\d+`),
	regexp.MustCompile(`summarize\s+pr\s+#\s*\d+`),
	regexp.MustCompile(`\b(largest|biggest|most\s+changes)\b`),
	regexp.MustCompile(`\b(riskiest|high\s+risk|most\s+risky)\b`),
}

// Hybrid topic cues; the first capture group becomes a semantic term.
var hybridPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(auth|authentication|authorization)\b`),
	regexp.MustCompile(`\b(payment|billing|invoice)\b`),
	regexp.MustCompile(`\b(pipeline|ci|cd|deploy)\b`),
	regexp.MustCompile(`\b(security|vulnerability|risk)\b`),
	regexp.MustCompile(`\b(database|sql|query)\b`),
	regexp.MustCompile(`\b(api|endpoint|route)\b`),
	regexp.MustCompile(`\b(ui|ux|frontend|backend)\b`),
	regexp.MustCompile(`\b(test|testing|tested)\b`),
	regexp.MustCompile(`\b(performance|optimization|speed)\b`),
	regexp.MustCompile(`\b(error|bug|fix|issue)\b`),
}

// Specific-file cues, checked before the vector route.
var filePatterns = []*regexp.Regexp{
	regexp.MustCompile(`show\s+changes?\s+in\s+([a-zA-Z0-9_.-]+)`),
	regexp.MustCompile(`changes?\s+to\s+([a-zA-Z0-9_.-]+)`),
	regexp.MustCompile(`changes?\s+in\s+([a-zA-Z0-9_.-]+)`),
	regexp.MustCompile(`file\s+([a-zA-Z0-9_.-]+)`),
	regexp.MustCompile(`([a-zA-Z0-9_.-]+\.(py|js|java|cpp|c|h|ts|jsx|tsx|html|css|sql|json|yaml|yml|md|txt))`),
}

var generalFileKeywords = []string{
	"file", "files", ".py", ".js", ".java", ".cpp", ".c", ".h", ".ts",
	".jsx", ".tsx", ".html", ".css", ".sql", ".json", ".yaml", ".yml",
	".md", ".txt",
}

// Vector cues: explanations and fuzzy asks.
var vectorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\bwhy\b`),
	regexp.MustCompile(`\bexplain\b`),
	regexp.MustCompile(`\bhow\s+does\b`),
	regexp.MustCompile(`\bwhat\s+is\b`),
	regexp.MustCompile(`\brisky\s+because\b`),
	regexp.MustCompile(`\bshow\s+me\b`),
	regexp.MustCompile(`\btell\s+me\b`),
	regexp.MustCompile(`\bdescribe\b`),
	regexp.MustCompile(`\bunderstand\b`),
	regexp.MustCompile(`\bstreaming\s+features?\b`),
	regexp.MustCompile(`\bcomplex\s+changes?\b`),
	regexp.MustCompile(`\bimpact\s+of\b`),
}

var routerLog = logging.Component("router")

// Classify routes a query to its retrieval plan.
func Classify(query string) Plan {
	lower := strings.ToLower(query)

	for _, re := range directPatterns {
		if re.MatchString(lower) {
			return logPlan(query, directRoute(lower))
		}
	}

	var terms []string
	for _, re := range hybridPatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			terms = append(terms, m[1])
		}
	}
	if len(terms) > 0 {
		return logPlan(query, hybridRoute(lower, terms))
	}

	for _, re := range filePatterns {
		if m := re.FindStringSubmatch(lower); m != nil {
			return logPlan(query, Plan{
				Route:         RouteHybrid,
				Object:        ObjectFiles,
				Metric:        MetricList,
				SemanticTerms: []string{m[1]},
				SpecificFile:  m[1],
			})
		}
	}

	for _, keyword := range generalFileKeywords {
		if strings.Contains(lower, keyword) {
			return logPlan(query, hybridRoute(lower, []string{query}))
		}
	}

	for _, re := range vectorPatterns {
		if re.MatchString(lower) {
			return logPlan(query, vectorRoute(lower, query))
		}
	}

	return logPlan(query, hybridRoute(lower, []string{query}))
}

func logPlan(query string, plan Plan) Plan {
	routerLog.Debug("query classified",
		"query", query,
		"route", plan.Route,
		"object", plan.Object,
		"metric", plan.Metric,
		"semantic_terms", plan.SemanticTerms)
	return plan
}

var (
	featuresShippedRe = regexp.MustCompile(`features?\s+shipped|shipped\s+features?`)
	whatShippedRe     = regexp.MustCompile(`what\s+was\s+shipped|what\s+shipped`)
	fileChangedMostRe = regexp.MustCompile(`file\s+that\s+changed\s+most`)
	countRe           = regexp.MustCompile(`\b(count|how\s+many|number\s+of|total)\b`)
	riskiestRe        = regexp.MustCompile(`\b(riskiest|high\s+risk|most\s+risky)\b`)
	largestRe         = regexp.MustCompile(`\b(largest|biggest|most\s+changes)\b`)
	topMostRe         = regexp.MustCompile(`\b(top|most)\b`)
	topLimitRe        = regexp.MustCompile(`top\s+(\d+)`)
	prNumberRe        = regexp.MustCompile(`pr\s+(?:#\s*)?(\d+)`)
	byAuthorRe        = regexp.MustCompile(`changes?\s+(made|done)\s+by\s+([a-zA-Z0-9_-]+)`)
)

// directRoute picks the concrete direct plan for an already-matched
// query. Ordering matters: shipped cues and count cues win over the
// generic top/most bucket.
func directRoute(lower string) Plan {
	if featuresShippedRe.MatchString(lower) {
		return Plan{Route: RouteDirect, Object: ObjectFeatures, Metric: MetricList}
	}
	if whatShippedRe.MatchString(lower) {
		return Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricList}
	}
	if fileChangedMostRe.MatchString(lower) {
		return Plan{Route: RouteDirect, Object: ObjectFiles, Metric: MetricTop}
	}
	if countRe.MatchString(lower) {
		return Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricCount}
	}
	if riskiestRe.MatchString(lower) {
		return Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricRiskiest, Limit: topLimit(lower)}
	}
	if largestRe.MatchString(lower) {
		return Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricLargest, Limit: topLimit(lower)}
	}
	if topMostRe.MatchString(lower) {
		return Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricTop, Limit: topLimit(lower)}
	}
	if m := prNumberRe.FindStringSubmatch(lower); m != nil {
		n, _ := strconv.Atoi(m[1])
		return Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricList, PRNumber: n}
	}
	if m := byAuthorRe.FindStringSubmatch(lower); m != nil {
		return Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricList, Author: m[2]}
	}
	return Plan{Route: RouteDirect, Object: ObjectPRs, Metric: MetricList}
}

func topLimit(lower string) int {
	if m := topLimitRe.FindStringSubmatch(lower); m != nil {
		if n, err := strconv.Atoi(m[1]); err == nil {
			return n
		}
	}
	return DefaultTopLimit
}

// Keyword sets steering the hybrid object choice.
var (
	hybridFileKeywords = []string{
		"file", "files", "sql", "database", "schema", "migration",
		".py", ".js", ".java", ".cpp", ".c", ".h", ".ts", ".jsx",
		".tsx", ".html", ".css", ".json", ".yaml", ".yml", ".md", ".txt",
	}
	hybridFeatureKeywords = []string{
		"feature", "features", "auth", "payment", "api", "endpoint",
	}
)

func hybridRoute(lower string, terms []string) Plan {
	object := ObjectPRs
	if containsAny(lower, hybridFileKeywords) {
		object = ObjectFiles
	} else if containsAny(lower, hybridFeatureKeywords) {
		object = ObjectFeatures
	}
	return Plan{Route: RouteHybrid, Object: object, Metric: MetricList, SemanticTerms: terms}
}

var (
	vectorExplainRe = regexp.MustCompile(`\b(why|explain|how\s+does|what\s+is)\b`)
	vectorRiskRe    = regexp.MustCompile(`\b(risky|risk|vulnerability|security)\b`)
)

func vectorRoute(lower, query string) Plan {
	object := ObjectPRs
	if !vectorExplainRe.MatchString(lower) && vectorRiskRe.MatchString(lower) {
		object = ObjectFiles
	}
	return Plan{Route: RouteVector, Object: object, Metric: MetricExplain, SemanticTerms: []string{query}}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

// technicalTerms is the vocabulary mined from queries for hybrid and
// vector search when the caller wants expanded terms instead of topic
// cues.
var technicalTerms = []string{
	"auth", "authentication", "authorization", "login", "logout",
	"payment", "billing", "invoice", "transaction", "money",
	"pipeline", "ci", "cd", "deploy", "deployment", "build",
	"security", "vulnerability", "risk", "secure", "encryption",
	"database", "sql", "query", "schema", "migration", "table",
	"api", "endpoint", "route", "rest", "graphql", "webhook",
	"ui", "ux", "frontend", "backend", "interface", "component",
	"test", "testing", "tested", "unit", "integration", "e2e",
	"performance", "optimization", "speed", "fast", "slow",
	"error", "bug", "fix", "issue", "problem", "crash",
	"streaming", "real-time", "async", "concurrent", "parallel",
	"complex", "complicated", "refactor", "cleanup", "simplify",
}

// ExtractSemanticTerms mines the known technical vocabulary from a
// query, falling back to the whole query when nothing matches.
func ExtractSemanticTerms(query string) []string {
	lower := strings.ToLower(query)
	var found []string
	for _, term := range technicalTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	if len(found) == 0 {
		return []string{query}
	}
	return found
}
