package llm

import (
	"fmt"
	"strings"
)

// maxDiffChars is the diff truncation applied inside prompts.
const maxDiffChars = 8000

const summarizerSystem = "You are a helpful assistant that analyzes code changes and provides concise summaries."

const prSummarizerSystem = "You are a helpful assistant that analyzes pull requests and provides comprehensive summaries."

const riskAssessorSystem = "You are a meticulous code risk assessor. Return only valid JSON."

// riskPromptTemplate is the additive rubric used for per-file risk scoring.
const riskPromptTemplate = `System:
You are a meticulous code risk assessor. You score risk ONLY from the provided metadata and diff.
Do not guess. If unsure, lower confidence.

User:
Return JSON ONLY with this schema:
{
  "file_path": "string",
  "risk_score_file": 0,              // numeric 0-10
  "high_risk_flag": false,           // boolean threshold on risk_score_file
  "reasons": ["short, factual bullets"], // <=3 concise LLM bullets for transparency
  "confidence": 0.0                  // optional, helps decide if you trust LLM
}

Scoring rules (additive, cap 10):
- Size: +0 (<=49 lines), +1 (50-199), +2 (200-599), +3 (>=600)
- Config/ENV/YAML/JSON/CI: +2
- Auth/ACL/PII/crypto/secrets: +2
- SQL/DDL schema change: +3 (+1 if non-BC e.g., DROP/RENAME/type shrink/not-null added)
- API surface change (public endpoint or exported signature): +3
- Guard/validation/try-catch removed or weakened: +2
- Error logging removed/disabled checks: +1
- Concurrency/locks/threads altered: +2
- New external side-effects (fs/network/process) without checks: +1
- Tests-only file in this PR: -2
- Tests added elsewhere covering this area: -1
- Tests removed in PR: +1
- Large symbol rewrite/refactor: +1
- Clear dead-code removal: -1

Hard guards before scoring:
- If documentation-only and <=50 lines changed -> score=0, high_risk=false.
- If binary/media file -> score=0, high_risk=false.
- If pure rename with no content delta -> score=0 or 1.

Hard high-risk floors (set score >= 8 and high_risk=true):
- Non-BC schema change
- Secrets/API keys introduced
- Auth/authz check removed

Set "reasons" as 2-4 concise facts tied to the diff.
Set "confidence" lower (<=0.6) when the diff is too small/ambiguous or flags are uncertain.

Context:
repo: %s
pr_number: %d
file_path: %s
language: %s
change_type: %s
lines_added: %d
lines_deleted: %d
lines_changed: %d
is_documentation: %t
is_test_file: %t
is_config_file: %t
is_binary: %t

DIFF (unified):
%s`

// RiskContext carries the file metadata interpolated into the risk prompt.
type RiskContext struct {
	RepoName        string
	PRNumber        int
	FilePath        string
	Language        string
	ChangeType      string
	LinesAdded      int
	LinesDeleted    int
	LinesChanged    int
	IsDocumentation bool
	IsTestFile      bool
	IsConfigFile    bool
	IsBinary        bool
	Diff            string
}

func riskPrompt(rc RiskContext) string {
	diff := rc.Diff
	if len(diff) > maxDiffChars {
		diff = diff[:maxDiffChars] + "\n... (diff truncated for API limits)"
	}
	return fmt.Sprintf(riskPromptTemplate,
		rc.RepoName, rc.PRNumber, rc.FilePath, rc.Language, rc.ChangeType,
		rc.LinesAdded, rc.LinesDeleted, rc.LinesChanged,
		rc.IsDocumentation, rc.IsTestFile, rc.IsConfigFile, rc.IsBinary,
		diff)
}

func fileSummaryPrompt(filename, language, diff string) string {
	if len(diff) > maxDiffChars {
		diff = diff[:maxDiffChars] + "\n... (diff truncated for API limits)"
	}
	return fmt.Sprintf(`Analyze the changes made to the file '%s' (Language: %s).

Here's the git diff/patch showing the changes:
%s

Please provide a concise summary (2-3 sentences) of what was changed in this file. Focus on:
1. What functionality was added, modified, or removed
2. The impact of these changes
3. Any notable patterns or improvements

Summary:`, filename, language, diff)
}

// PRSummaryContext carries the PR metadata for the summary prompts.
type PRSummaryContext struct {
	Title         string
	Body          string
	FilesChanged  int
	Additions     int
	Deletions     int
	Commits       int
	Comments      int
	State         string
	IsMerged      bool
	FileSummaries []string
}

func prSummaryPrompt(pc PRSummaryContext) string {
	if pc.IsMerged && len(pc.FileSummaries) > 0 {
		var bullets strings.Builder
		for _, summary := range pc.FileSummaries {
			bullets.WriteString("- " + summary + "\n")
		}
		return fmt.Sprintf(`Analyze the following pull request based on its file-level changes.

PR Title: %s
PR Description: %s
Files Changed: %d
Total Additions: %d
Total Deletions: %d

File-level summaries:
%s
Please provide a comprehensive PR-level summary (3-4 sentences) that:
1. Describes the overall purpose and impact of the changes
2. Highlights the key modifications across all files
3. Mentions the scope and complexity of the changes
4. Notes any patterns or architectural decisions

PR Summary:`, pc.Title, pc.Body, pc.FilesChanged, pc.Additions, pc.Deletions, bullets.String())
	}

	return fmt.Sprintf(`Analyze the following pull request based on its metadata.

PR Title: %s
PR Description: %s
Files Changed: %d
Total Additions: %d
Total Deletions: %d
Commits: %d
Comments: %d
State: %s
Is Merged: %t

Please provide a comprehensive PR-level summary (3-4 sentences) that:
1. Describes the overall purpose and intended changes
2. Analyzes the scope and complexity based on metadata
3. Considers the PR state and activity level
4. Provides insights about the change impact

PR Summary:`, pc.Title, pc.Body, pc.FilesChanged, pc.Additions, pc.Deletions,
		pc.Commits, pc.Comments, pc.State, pc.IsMerged)
}
