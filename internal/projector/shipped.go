package projector

import (
	"context"
	"time"

	"github.com/whattherepo/whattherepo/internal/enrich"
	"github.com/whattherepo/whattherepo/internal/mart"
	"github.com/whattherepo/whattherepo/internal/models"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

// maxTopRiskyFiles caps the risky-file list stored per ledger row.
const maxTopRiskyFiles = 5

// ProjectShipped builds the repo_prs ledger for one repository: one row
// per PR regardless of merge status, with derived labels, feature
// classification, and the top risky files. Upserts make reruns cheap;
// Force truncates the repository's ledger rows and rebuilds them,
// Incremental reads only PRs created after the newest ledger row.
func (p *Projector) ProjectShipped(ctx context.Context, repoName string, opts ShippedOptions) error {
	if !opts.Force {
		exists, err := p.mart.HasRepoPRs(ctx, repoName)
		if err != nil {
			return err
		}
		if exists {
			p.logger.Info("ledger rows exist, upserting fresh data", "repo", repoName)
		}
	}

	filter := vectorstore.Eq("repo_name", repoName)
	if opts.Incremental {
		latest, err := p.mart.LatestRepoPRCreatedAt(ctx, repoName)
		if err != nil {
			return err
		}
		if latest != nil {
			p.logger.Info("incremental run", "repo", repoName, "since", latest)
			filter = vectorstore.And(filter, vectorstore.Gt("created_at", latest.Unix()))
		}
	}

	prRows, err := p.store.QueryPRs(ctx, filter)
	if err != nil {
		return err
	}
	prRows = dedupeByPRID(prRows)
	if len(prRows) == 0 {
		p.logger.Warn("no PR rows for repository", "repo", repoName)
		return nil
	}

	filesByPR, err := p.filesByPR(ctx, repoName)
	if err != nil {
		return err
	}

	// A forced refresh truncates the ledger so PRs gone from the store
	// do not linger. Source rows are read first: a failed store query
	// leaves the ledger untouched.
	if opts.Force {
		if err := p.mart.DeleteRepoPRs(ctx, repoName); err != nil {
			return err
		}
	}

	records := make([]mart.RepoPRRow, 0, len(prRows))
	for i := range prRows {
		records = append(records, p.shippedRecord(&prRows[i], filesByPR[prRows[i].PRID]))
	}

	if err := p.mart.UpsertRepoPRs(ctx, records); err != nil {
		return err
	}

	merged, highRisk, features := 0, 0, 0
	for _, r := range records {
		if r.IsMerged {
			merged++
		}
		if r.HighRisk {
			highRisk++
		}
		if r.FeatureRule != enrich.RuleExcluded {
			features++
		}
	}
	p.logger.Info("shipped projection complete",
		"repo", repoName,
		"prs", len(records),
		"merged", merged,
		"high_risk", highRisk,
		"features", features)
	return nil
}

func (p *Projector) filesByPR(ctx context.Context, repoName string) (map[int64][]models.FileRow, error) {
	fileRows, err := p.store.QueryFiles(ctx, vectorstore.Eq("repo_name", repoName))
	if err != nil {
		return nil, err
	}
	byPR := make(map[int64][]models.FileRow)
	for _, f := range fileRows {
		byPR[f.PRID] = append(byPR[f.PRID], f)
	}
	return byPR, nil
}

func (p *Projector) shippedRecord(pr *models.PRRow, files []models.FileRow) mart.RepoPRRow {
	rule, confidence := featureRule(pr)

	createdAt := time.Unix(pr.CreatedAt, 0).UTC()
	var mergedAt *time.Time
	if pr.MergedAt > 0 {
		t := time.Unix(pr.MergedAt, 0).UTC()
		mergedAt = &t
	} else if pr.IsMerged {
		// Merged without a timestamp is a known source hazard; fall
		// back to the submission time.
		p.logger.Debug("backfilling merged_at from created_at",
			"repo", pr.RepoName, "pr", pr.PRNumber)
		mergedAt = &createdAt
	}

	return mart.RepoPRRow{
		RepoName:          pr.RepoName,
		PRNumber:          pr.PRNumber,
		Title:             pr.Title,
		PRSummary:         pr.PRSummary,
		Author:            pr.AuthorName,
		CreatedAt:         createdAt,
		MergedAt:          mergedAt,
		IsMerged:          pr.IsMerged,
		Additions:         pr.Additions,
		Deletions:         pr.Deletions,
		ChangedFiles:      pr.ChangedFiles,
		LabelsFull:        derivedLabels(pr),
		FeatureRule:       rule,
		FeatureConfidence: confidence,
		RiskScore:         pr.RiskScore,
		HighRisk:          pr.RiskScore >= models.HighRiskThreshold,
		RiskReasons:       pr.RiskReasons,
		TopRiskyFiles:     topRiskyFiles(files, maxTopRiskyFiles),
	}
}

// derivedLabels builds the display label set for a ledger row: a risk
// tier, a feature marker, the lifecycle state, and a size bucket.
func derivedLabels(pr *models.PRRow) []string {
	var labels []string

	switch {
	case pr.RiskScore >= models.HighRiskThreshold:
		labels = append(labels, "high-risk")
	case pr.RiskScore >= 4.0:
		labels = append(labels, "medium-risk")
	default:
		labels = append(labels, "low-risk")
	}

	if pr.Feature != "" {
		labels = append(labels, "feature")
	}

	switch {
	case pr.IsMerged:
		labels = append(labels, "merged")
	case pr.IsClosed:
		labels = append(labels, "closed")
	default:
		labels = append(labels, "open")
	}

	switch total := pr.Additions + pr.Deletions; {
	case total > 1000:
		labels = append(labels, "large-change")
	case total > 100:
		labels = append(labels, "medium-change")
	default:
		labels = append(labels, "small-change")
	}

	return labels
}
