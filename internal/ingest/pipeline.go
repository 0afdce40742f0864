// Package ingest drives the per-repository jobs: walking the forge PR
// history through the enrichment engine into a JSON archive, and
// loading archives into the vector store.
package ingest

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"github.com/google/uuid"

	"github.com/whattherepo/whattherepo/internal/enrich"
	apperrors "github.com/whattherepo/whattherepo/internal/errors"
	"github.com/whattherepo/whattherepo/internal/forge"
	"github.com/whattherepo/whattherepo/internal/logging"
	"github.com/whattherepo/whattherepo/internal/models"
)

// Pipeline runs the ingest job for one repository.
type Pipeline struct {
	forge      *forge.Client
	engine     *enrich.Engine
	checkpoint *Checkpoint
	logger     *slog.Logger
}

// NewPipeline creates a pipeline. checkpoint may be nil; every PR is
// then processed regardless of previous runs.
func NewPipeline(fc *forge.Client, engine *enrich.Engine, checkpoint *Checkpoint) *Pipeline {
	return &Pipeline{
		forge:      fc,
		engine:     engine,
		checkpoint: checkpoint,
		logger:     logging.Component("ingest"),
	}
}

// Options narrow an ingest run.
type Options struct {
	// State filters PRs: "open", "closed", or "all".
	State string
	// Max caps the number of PRs walked; 0 means no cap.
	Max int
	// Force reprocesses PRs recorded in the checkpoint.
	Force bool
}

// Run walks the PR history of repo newest first, enriches each PR, and
// returns the archive. PRs are processed sequentially; per-file work
// inside a PR fans out in the engine. A rate-limit error aborts the
// run, any other per-PR failure skips that PR and continues.
func (p *Pipeline) Run(ctx context.Context, repoFull string, opts Options) (*models.Archive, error) {
	state := opts.State
	if state == "" {
		state = "all"
	}

	repo, err := p.forge.GetRepo(ctx, repoFull)
	if err != nil {
		return nil, err
	}

	archive := &models.Archive{
		Summary: models.ArchiveSummary{
			RepoName:    repo.FullName,
			State:       state,
			RunID:       uuid.NewString(),
			GeneratedAt: time.Now().UTC(),
		},
	}
	p.logger.Info("ingest run starting",
		"repo", repo.FullName, "state", state, "max", opts.Max, "run_id", archive.Summary.RunID)

	err = p.forge.ListPullRequests(ctx, repoFull, state, opts.Max, func(listed *github.PullRequest) error {
		number := listed.GetNumber()

		if p.checkpoint != nil && !opts.Force {
			seen, err := p.checkpoint.Seen(repo.FullName, number)
			if err != nil {
				return err
			}
			if seen {
				p.logger.Debug("checkpoint hit, skipping", "pr", number)
				return nil
			}
		}

		pr, err := p.engine.EnrichPR(ctx, repo, number)
		if err != nil {
			if apperrors.GetKind(err) == apperrors.KindRateLimited {
				return err
			}
			p.logger.Warn("PR enrichment failed, skipping",
				"pr", number, "error", err)
			archive.Summary.SkippedPRs++
			return nil
		}

		archive.PullRequests = append(archive.PullRequests, *pr)
		p.tally(&archive.Summary, pr)

		if p.checkpoint != nil {
			if err := p.checkpoint.Mark(repo.FullName, number); err != nil {
				p.logger.Warn("checkpoint write failed", "pr", number, "error", err)
			}
		}
		return nil
	})
	if err != nil {
		return archive, err
	}

	p.logger.Info("ingest run complete",
		"repo", repo.FullName,
		"prs", archive.Summary.TotalPRs,
		"merged", archive.Summary.MergedPRs,
		"features", archive.Summary.FeaturePRs,
		"high_risk", archive.Summary.HighRiskPRs,
		"skipped", archive.Summary.SkippedPRs)
	return archive, nil
}

func (p *Pipeline) tally(s *models.ArchiveSummary, pr *models.EnrichedPR) {
	s.TotalPRs++
	switch {
	case pr.IsMerged:
		s.MergedPRs++
	case pr.IsClosed:
		s.ClosedPRs++
	default:
		s.OpenPRs++
	}
	if strings.TrimSpace(pr.Feature) != "" {
		s.FeaturePRs++
	}
	if pr.RiskAssessment.HighRisk {
		s.HighRiskPRs++
	}
	s.TotalFiles += pr.FileStatistics.TotalFiles
	s.LinesAdded += pr.FileStatistics.LinesAdded
	s.LinesDeleted += pr.FileStatistics.LinesDeleted
}

// SaveArchive writes the archive as indented JSON at path.
func SaveArchive(path string, archive *models.Archive) error {
	data, err := json.MarshalIndent(archive, "", "  ")
	if err != nil {
		return apperrors.Wrap(err, apperrors.KindInternal, apperrors.SeverityHigh, "marshal archive")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return apperrors.Wrap(err, apperrors.KindInternal, apperrors.SeverityHigh, "write archive")
	}
	return nil
}

// LoadArchive reads an archive written by SaveArchive.
func LoadArchive(path string) (*models.Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindConfig, apperrors.SeverityHigh, "read archive")
	}
	var archive models.Archive
	if err := json.Unmarshal(data, &archive); err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindParse, apperrors.SeverityHigh, "decode archive")
	}
	return &archive, nil
}
