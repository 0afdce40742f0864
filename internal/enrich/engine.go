// Package enrich turns raw forge pull requests into enriched records:
// per-file classification and content retrieval, LLM summaries and risk
// scoring, PR-level risk aggregation, and feature classification.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/sync/errgroup"

	apperrors "github.com/whattherepo/whattherepo/internal/errors"
	"github.com/whattherepo/whattherepo/internal/forge"
	"github.com/whattherepo/whattherepo/internal/llm"
	"github.com/whattherepo/whattherepo/internal/logging"
	"github.com/whattherepo/whattherepo/internal/models"
)

// maxRiskFileBytes is the content size above which risk scoring is skipped.
const maxRiskFileBytes = 1_000_000

// Engine orchestrates per-PR enrichment. File work fans out over a
// bounded worker group; one failed file never fails the PR.
type Engine struct {
	forge   *forge.Client
	gateway *llm.Gateway
	workers int
	logger  *slog.Logger
}

// NewEngine creates an engine running at most workers concurrent file
// enrichments per PR.
func NewEngine(fc *forge.Client, gw *llm.Gateway, workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		forge:   fc,
		gateway: gw,
		workers: workers,
		logger:  logging.Component("enrich"),
	}
}

// EnrichPR fetches the full detail and file set of one PR and produces
// the enriched record.
func (e *Engine) EnrichPR(ctx context.Context, repo *forge.Repo, number int) (*models.EnrichedPR, error) {
	detail, err := e.forge.GetPullRequest(ctx, repo.FullName, number)
	if err != nil {
		return nil, err
	}

	pr := fromDetail(repo, detail)

	commitFiles, err := e.forge.ListFiles(ctx, repo.FullName, number, detail.GetChangedFiles())
	if err != nil {
		return nil, err
	}
	pr.Files = make([]models.EnrichedFile, len(commitFiles))
	for i, cf := range commitFiles {
		pr.Files[i] = newEnrichedFile(cf)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for i := range pr.Files {
		file := &pr.Files[i]
		g.Go(func() error {
			return e.processFile(gctx, pr, file)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	pr.FileStatistics = fileStatistics(pr, detail.GetChangedFiles())
	pr.RiskAssessment = AggregatePRRisk(pr.Files)

	summary, err := e.gateway.SummarizePR(ctx, summaryContext(pr))
	if err != nil {
		e.logger.Warn("PR summary generation failed", "pr", pr.PRNumber, "error", err)
	}
	pr.PRSummary = strings.TrimSpace(summary)

	if result := ClassifyFeature(pr); result.Feature != "" {
		pr.Feature = result.Feature
	}

	e.logger.Info("enriched PR",
		"pr", pr.PRNumber,
		"files", len(pr.Files),
		"risk_score", pr.RiskAssessment.RiskScore,
		"risk_band", pr.RiskAssessment.RiskBand,
		"feature", pr.Feature != "")
	return pr, nil
}

// processFile runs the content policy, summary, and risk scoring for one
// file. Content failures are recorded on the file, not returned; only
// cancellation and rate-limit exhaustion propagate.
func (e *Engine) processFile(ctx context.Context, pr *models.EnrichedPR, file *models.EnrichedFile) error {
	if pr.IsMerged && !file.IsBinary {
		if err := e.fetchContents(ctx, pr, file); err != nil {
			if ctx.Err() != nil || apperrors.GetKind(err) == apperrors.KindRateLimited {
				return err
			}
			file.ContentError = fmt.Sprintf("Error fetching content: %v", err)
		}
		summary, err := e.gateway.SummarizeFile(ctx, file.Filename, file.Language, file.Patch)
		if err != nil {
			e.logger.Warn("file summary failed", "file", file.Filename, "error", err)
		}
		file.AISummary = strings.TrimSpace(summary)
	}

	file.RiskAssessment = e.assessRisk(ctx, pr, file)
	return nil
}

// fetchContents applies the status-dependent content policy. Added files
// read the head branch only, removed files read the base branch for the
// summary without storing it, modified and renamed files read both and
// store the post side.
func (e *Engine) fetchContents(ctx context.Context, pr *models.EnrichedPR, file *models.EnrichedFile) error {
	switch file.Status {
	case "added":
		post, err := e.forge.GetContents(ctx, pr.RepoName, file.Filename, pr.HeadBranch)
		if err != nil {
			file.ContentError = fmt.Sprintf("Post content error: %v", err)
			return contentFetchErr(err)
		}
		file.PostContent = post.Content
		file.SizeBytes = post.Size

	case "removed":
		if _, err := e.forge.GetContents(ctx, pr.RepoName, file.Filename, pr.BaseBranch); err != nil {
			file.ContentError = fmt.Sprintf("Pre content error: %v", err)
			return contentFetchErr(err)
		}

	case "modified", "renamed":
		prePath := file.Filename
		if file.Status == "renamed" && file.PreviousFilename != "" {
			prePath = file.PreviousFilename
		}
		if _, err := e.forge.GetContents(ctx, pr.RepoName, prePath, pr.BaseBranch); err != nil {
			file.ContentError = fmt.Sprintf("Pre content error: %v", err)
		}
		post, err := e.forge.GetContents(ctx, pr.RepoName, file.Filename, pr.HeadBranch)
		if err != nil {
			file.ContentError = fmt.Sprintf("Post content error: %v", err)
			return contentFetchErr(err)
		}
		file.PostContent = post.Content
		file.SizeBytes = post.Size
	}
	return nil
}

// contentFetchErr keeps rate-limit errors fatal and downgrades the rest
// to nil so the file keeps its recorded content_error and moves on.
func contentFetchErr(err error) error {
	if apperrors.GetKind(err) == apperrors.KindRateLimited {
		return err
	}
	return nil
}

// assessRisk scores one file, skipping binaries, oversized files, and
// blocked extensions with an explanatory zero assessment.
func (e *Engine) assessRisk(ctx context.Context, pr *models.EnrichedPR, file *models.EnrichedFile) models.FileRiskAssessment {
	if file.IsBinary || file.SizeBytes > maxRiskFileBytes || forge.SkipRiskAssessment(file.Filename) {
		ext := strings.TrimPrefix(file.Extension, ".")
		return models.ZeroAssessment(file.Filename,
			fmt.Sprintf("Skipped risk assessment for %s file type", ext))
	}

	result := e.gateway.AssessFileRisk(ctx, llm.RiskContext{
		RepoName:        pr.RepoName,
		PRNumber:        pr.PRNumber,
		FilePath:        file.Filename,
		Language:        file.Language,
		ChangeType:      changeType(file.Status),
		LinesAdded:      file.Additions,
		LinesDeleted:    file.Deletions,
		LinesChanged:    file.Changes,
		IsDocumentation: file.IsDocumentation,
		IsTestFile:      file.IsTestFile,
		IsConfigFile:    file.IsConfigFile,
		IsBinary:        file.IsBinary,
		Diff:            file.Patch,
	})
	if result.Outcome == llm.OutcomeFailed {
		e.logger.Warn("risk assessment unrecoverable, scoring zero",
			"pr", pr.PRNumber, "file", file.Filename)
	}
	return result.Assessment
}

func changeType(status string) string {
	switch status {
	case "added":
		return "Added"
	case "modified":
		return "Modified"
	case "removed":
		return "Removed"
	case "renamed":
		return "Renamed"
	default:
		if status == "" {
			return status
		}
		return strings.ToUpper(status[:1]) + status[1:]
	}
}

func fromDetail(repo *forge.Repo, detail *github.PullRequest) *models.EnrichedPR {
	pr := &models.EnrichedPR{
		PRID:     detail.GetID(),
		PRNumber: detail.GetNumber(),
		RepoID:   repo.ID,
		RepoName: repo.FullName,

		Title: detail.GetTitle(),
		Body:  detail.GetBody(),
		State: detail.GetState(),

		CreatedAt: detail.GetCreatedAt().Time,
		UpdatedAt: detail.GetUpdatedAt().Time,
		IsMerged:  detail.GetMerged() || detail.MergedAt != nil,
		Draft:     detail.GetDraft(),

		User: models.Author{
			Login: detail.GetUser().GetLogin(),
			ID:    detail.GetUser().GetID(),
		},
		Milestone: detail.GetMilestone().GetTitle(),

		Comments:       detail.GetComments(),
		ReviewComments: detail.GetReviewComments(),
		Commits:        detail.GetCommits(),
		Additions:      detail.GetAdditions(),
		Deletions:      detail.GetDeletions(),
		ChangedFiles:   detail.GetChangedFiles(),

		BaseBranch:     detail.GetBase().GetRef(),
		HeadBranch:     detail.GetHead().GetRef(),
		MergedBy:       detail.GetMergedBy().GetLogin(),
		MergeCommitSHA: detail.GetMergeCommitSHA(),
	}
	pr.IsClosed = pr.State == "closed"
	if ts := detail.ClosedAt; ts != nil {
		t := ts.Time
		pr.ClosedAt = &t
	}
	if ts := detail.MergedAt; ts != nil {
		t := ts.Time
		pr.MergedAt = &t
	}
	for _, assignee := range detail.Assignees {
		pr.Assignees = append(pr.Assignees, models.Author{
			Login: assignee.GetLogin(),
			ID:    assignee.GetID(),
		})
	}
	pr.Labels = make([]models.Label, 0, len(detail.Labels))
	for _, label := range detail.Labels {
		pr.Labels = append(pr.Labels, models.Label{
			Name:  label.GetName(),
			Color: label.GetColor(),
		})
	}
	return pr
}

func newEnrichedFile(cf *github.CommitFile) models.EnrichedFile {
	name := cf.GetFilename()
	return models.EnrichedFile{
		Filename:         name,
		Status:           cf.GetStatus(),
		PreviousFilename: cf.GetPreviousFilename(),
		Additions:        cf.GetAdditions(),
		Deletions:        cf.GetDeletions(),
		Changes:          cf.GetChanges(),
		NetLines:         cf.GetAdditions() - cf.GetDeletions(),

		Language:        forge.DetectLanguage(name),
		Extension:       forge.Extension(name),
		IsBinary:        forge.IsBinaryPath(name),
		IsConfigFile:    forge.IsConfigFile(name),
		IsDocumentation: forge.IsDocumentationFile(name),
		IsTestFile:      forge.IsTestFile(name),
		IsSourceCode:    forge.IsSourceCodeFile(name),

		Patch: cf.GetPatch(),
	}
}

func fileStatistics(pr *models.EnrichedPR, reportedFiles int) models.FileStatistics {
	stats := models.FileStatistics{
		TotalFiles:    len(pr.Files),
		TruncatedList: reportedFiles > len(pr.Files),
	}
	for i := range pr.Files {
		f := &pr.Files[i]
		stats.LinesAdded += f.Additions
		stats.LinesDeleted += f.Deletions
		if f.IsSourceCode {
			stats.SourceFiles++
		}
		if f.IsTestFile {
			stats.TestFiles++
		}
		if f.IsConfigFile {
			stats.ConfigFiles++
		}
		if f.IsDocumentation {
			stats.DocFiles++
		}
		if f.IsBinary {
			stats.BinaryFiles++
		}
	}
	return stats
}

func summaryContext(pr *models.EnrichedPR) llm.PRSummaryContext {
	pc := llm.PRSummaryContext{
		Title:        pr.Title,
		Body:         pr.Body,
		FilesChanged: len(pr.Files),
		Additions:    pr.Additions,
		Deletions:    pr.Deletions,
		Commits:      pr.Commits,
		Comments:     pr.Comments,
		State:        pr.State,
		IsMerged:     pr.IsMerged,
	}
	if pr.IsMerged {
		for i := range pr.Files {
			if s := pr.Files[i].AISummary; s != "" {
				pc.FileSummaries = append(pc.FileSummaries, s)
			}
		}
	}
	return pc
}
