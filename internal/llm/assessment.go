package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/whattherepo/whattherepo/internal/models"
)

// Outcome tags the result of a structured risk-assessment call.
type Outcome int

const (
	// OutcomeOK - response parsed on the first attempt
	OutcomeOK Outcome = iota
	// OutcomeRecovered - parsed after stripping fencing or extracting the
	// first JSON object
	OutcomeRecovered
	// OutcomeFailed - unparseable; Assessment holds a zero score with the
	// parse error as its reason
	OutcomeFailed
)

// AssessmentResult is the tagged result of AssessFileRisk. Callers branch
// on Outcome instead of on errors; a failed parse never aborts the PR.
type AssessmentResult struct {
	Outcome    Outcome
	Assessment models.FileRiskAssessment
	Raw        string
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// AssessFileRisk scores one file against the additive rubric. Skip
// decisions (binary files, oversized files, blocked extensions) belong to
// the enrichment engine; this call always hits the model.
func (g *Gateway) AssessFileRisk(ctx context.Context, rc RiskContext) AssessmentResult {
	text, err := g.Chat(ctx, riskAssessorSystem, riskPrompt(rc), 500, 0.1)
	if err != nil {
		// One retry for transient failures.
		text, err = g.Chat(ctx, riskAssessorSystem, riskPrompt(rc), 500, 0.1)
	}
	if err != nil {
		g.logger.Warn("risk assessment call failed", "file", rc.FilePath, "error", err)
		return AssessmentResult{
			Outcome:    OutcomeFailed,
			Assessment: models.ZeroAssessment(rc.FilePath, fmt.Sprintf("Error calling chat API: %v", err)),
		}
	}
	return parseAssessment(text, rc.FilePath)
}

// parseAssessment applies the recovery ladder: strip fencing, full parse,
// then first-object extraction, then a zero assessment.
func parseAssessment(text, filePath string) AssessmentResult {
	cleaned := stripFencing(text)

	var assessment models.FileRiskAssessment
	if err := json.Unmarshal([]byte(cleaned), &assessment); err == nil && validAssessment(&assessment) {
		normalizeAssessment(&assessment, filePath)
		outcome := OutcomeOK
		if cleaned != strings.TrimSpace(text) {
			outcome = OutcomeRecovered
		}
		return AssessmentResult{Outcome: outcome, Assessment: assessment, Raw: text}
	}

	if match := jsonObjectRe.FindString(text); match != "" {
		if err := json.Unmarshal([]byte(match), &assessment); err == nil && validAssessment(&assessment) {
			normalizeAssessment(&assessment, filePath)
			return AssessmentResult{Outcome: OutcomeRecovered, Assessment: assessment, Raw: text}
		}
	}

	return AssessmentResult{
		Outcome:    OutcomeFailed,
		Assessment: models.ZeroAssessment(filePath, "Error parsing risk assessment: response is not valid JSON"),
		Raw:        text,
	}
}

func stripFencing(text string) string {
	cleaned := strings.TrimSpace(text)
	if strings.HasPrefix(cleaned, "```json") {
		cleaned = cleaned[len("```json"):]
	} else if strings.HasPrefix(cleaned, "```") {
		cleaned = cleaned[len("```"):]
	}
	cleaned = strings.TrimSuffix(strings.TrimSpace(cleaned), "```")
	return strings.TrimSpace(cleaned)
}

func validAssessment(a *models.FileRiskAssessment) bool {
	return len(a.Reasons) > 0 || a.RiskScoreFile > 0 || a.FilePath != ""
}

func normalizeAssessment(a *models.FileRiskAssessment, filePath string) {
	if a.FilePath == "" {
		a.FilePath = filePath
	}
	if a.RiskScoreFile < 0 {
		a.RiskScoreFile = 0
	}
	if a.RiskScoreFile > 10 {
		a.RiskScoreFile = 10
	}
}

// SummarizeFile generates the 2-3 sentence ai_summary for one file.
func (g *Gateway) SummarizeFile(ctx context.Context, filename, language, diff string) (string, error) {
	return g.Chat(ctx, summarizerSystem, fileSummaryPrompt(filename, language, diff), 200, 0.3)
}

// SummarizePR generates the PR-level summary, preferring the file-summary
// prompt for merged PRs with summaries available.
func (g *Gateway) SummarizePR(ctx context.Context, pc PRSummaryContext) (string, error) {
	return g.Chat(ctx, prSummarizerSystem, prSummaryPrompt(pc), 300, 0.3)
}

// ExplainHit is the context row handed to Explain for one search result.
type ExplainHit struct {
	PRNumber    int
	Title       string
	PRSummary   string
	RiskReasons []string
}

// Explain composes a natural-language explanation of the top search hits.
// On failure it returns a fallback message instead of an error so the
// query path degrades instead of breaking.
func (g *Gateway) Explain(ctx context.Context, query string, hits []ExplainHit) string {
	if len(hits) == 0 {
		return "No relevant changes found for this query."
	}
	if len(hits) > 10 {
		hits = hits[:10]
	}

	var sb strings.Builder
	for i, hit := range hits {
		sb.WriteString(fmt.Sprintf("%d. PR #%d: %s\n", i+1, hit.PRNumber, hit.Title))
		if hit.PRSummary != "" {
			sb.WriteString(fmt.Sprintf("   Summary: %s\n", hit.PRSummary))
		}
		if len(hit.RiskReasons) > 0 {
			sb.WriteString(fmt.Sprintf("   Risk: %s\n", strings.Join(hit.RiskReasons, ", ")))
		}
	}

	prompt := fmt.Sprintf(`Based on the following repository changes, please provide a clear explanation for the query: "%s"

Repository Changes:
%s

Please provide a concise explanation that:
1. Addresses the specific question asked
2. Highlights key patterns or insights
3. Mentions any notable risks or concerns
4. Is written in a clear, professional tone

Explanation:`, query, sb.String())

	explanation, err := g.Chat(ctx,
		"You are a helpful assistant that explains repository changes and code patterns.",
		prompt, 500, 0.3)
	if err != nil {
		g.logger.Warn("explanation generation failed", "error", err)
		return fmt.Sprintf("Found %d relevant changes, but unable to generate detailed explanation due to an error.", len(hits))
	}
	return strings.TrimSpace(explanation)
}
