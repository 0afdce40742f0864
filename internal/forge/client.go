// Package forge wraps the GitHub REST API for the ingest pipeline: repo
// metadata, paginated PR listings, per-PR file lists, and raw content
// fetches, all under client-side rate pacing.
package forge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/time/rate"

	apperrors "github.com/whattherepo/whattherepo/internal/errors"
	"github.com/whattherepo/whattherepo/internal/logging"
)

// ErrStop short-circuits a pagination loop from inside a visitor.
var ErrStop = errors.New("forge: stop iteration")

// minRequestGap is the pause between consecutive forge requests.
const minRequestGap = 100 * time.Millisecond

// perPage is the page size used for PR and file listings.
const perPage = 100

// fileCap is the maximum number of files retained per PR.
const fileCap = 100

// Client is a stateless GitHub API client with rate pacing.
type Client struct {
	gh      *github.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewClient creates a client authenticated with token, pacing requests at
// requestsPerSecond.
func NewClient(token string, requestsPerSecond int) *Client {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 10
	}
	return &Client{
		gh:      github.NewClient(nil).WithAuthToken(token),
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		logger:  logging.Component("forge"),
	}
}

// Repo holds the repository identity needed by the ingest records.
type Repo struct {
	ID       int64
	FullName string
}

// Contents is the decoded result of a raw content fetch.
type Contents struct {
	Content  string
	Encoding string
	SHA      string
	Size     int
}

func splitRepo(repo string) (owner, name string, err error) {
	parts := strings.SplitN(repo, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", apperrors.QueryBadf("repository must be owner/repo, got %q", repo)
	}
	return parts[0], parts[1], nil
}

// pace blocks until the limiter admits a request, then enforces the
// minimum inter-request gap.
func (c *Client) pace(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	select {
	case <-time.After(minRequestGap):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GetRepo fetches repository metadata.
func (c *Client) GetRepo(ctx context.Context, repo string) (*Repo, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	if err := c.pace(ctx); err != nil {
		return nil, err
	}
	r, resp, err := c.gh.Repositories.Get(ctx, owner, name)
	if err != nil {
		return nil, c.remoteError(resp, err, fmt.Sprintf("fetch repository %s", repo))
	}
	return &Repo{ID: r.GetID(), FullName: r.GetFullName()}, nil
}

// ListPullRequests walks PRs at 100 per page, created descending, calling
// fn for each until the listing is exhausted, max PRs have been visited
// (max <= 0 means no cap), or fn returns an error. ErrStop from fn ends the
// walk without error.
func (c *Client) ListPullRequests(ctx context.Context, repo, state string, max int, fn func(*github.PullRequest) error) error {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return err
	}
	if state == "" {
		state = "all"
	}

	opts := &github.PullRequestListOptions{
		State:       state,
		Sort:        "created",
		Direction:   "desc",
		ListOptions: github.ListOptions{PerPage: perPage},
	}

	seen := 0
	for {
		if err := c.pace(ctx); err != nil {
			return err
		}
		prs, resp, err := c.gh.PullRequests.List(ctx, owner, name, opts)
		if err != nil {
			return c.remoteError(resp, err, fmt.Sprintf("list pull requests for %s page %d", repo, opts.Page))
		}
		for _, pr := range prs {
			if err := fn(pr); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
			seen++
			if max > 0 && seen >= max {
				return nil
			}
		}
		if resp.NextPage == 0 || len(prs) < perPage {
			return nil
		}
		opts.Page = resp.NextPage
	}
}

// GetPullRequest fetches full PR detail including counts and mergeability.
func (c *Client) GetPullRequest(ctx context.Context, repo string, number int) (*github.PullRequest, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	if err := c.pace(ctx); err != nil {
		return nil, err
	}
	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, name, number)
	if err != nil {
		return nil, c.remoteError(resp, err, fmt.Sprintf("fetch %s#%d", repo, number))
	}
	return pr, nil
}

// ListFiles fetches the changed files of a PR, capped at fileCap entries.
// PRs reporting over 1000 changed files are truncated with a warning.
func (c *Client) ListFiles(ctx context.Context, repo string, number, changedFiles int) ([]*github.CommitFile, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	if changedFiles > 1000 {
		c.logger.Warn("very large PR, keeping first files only",
			"repo", repo, "pr", number, "changed_files", changedFiles, "cap", fileCap)
	}

	var files []*github.CommitFile
	opts := &github.ListOptions{PerPage: perPage}
	for {
		if err := c.pace(ctx); err != nil {
			return nil, err
		}
		page, resp, err := c.gh.PullRequests.ListFiles(ctx, owner, name, number, opts)
		if err != nil {
			return nil, c.remoteError(resp, err, fmt.Sprintf("list files for %s#%d", repo, number))
		}
		files = append(files, page...)
		if len(files) >= fileCap {
			files = files[:fileCap]
			return files, nil
		}
		if resp.NextPage == 0 {
			return files, nil
		}
		opts.Page = resp.NextPage
	}
}

// GetContents fetches a file's content at ref. Binary paths are never
// fetched; callers check IsBinaryPath first. A missing path returns a
// NotFound error that callers record as a content_error.
func (c *Client) GetContents(ctx context.Context, repo, path, ref string) (*Contents, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}
	if err := c.pace(ctx); err != nil {
		return nil, err
	}
	fileContent, _, resp, err := c.gh.Repositories.GetContents(ctx, owner, name, path,
		&github.RepositoryContentGetOptions{Ref: ref})
	if err != nil {
		if resp != nil && resp.StatusCode == 404 {
			return nil, apperrors.NotFoundf("%s not found at %s", path, ref)
		}
		return nil, c.remoteError(resp, err, fmt.Sprintf("fetch contents of %s@%s", path, ref))
	}
	if fileContent == nil {
		return nil, apperrors.NotFoundf("%s is not a file at %s", path, ref)
	}
	decoded, err := fileContent.GetContent()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.KindParse, apperrors.SeverityLow,
			fmt.Sprintf("decode contents of %s", path))
	}
	return &Contents{
		Content:  decoded,
		Encoding: fileContent.GetEncoding(),
		SHA:      fileContent.GetSHA(),
		Size:     fileContent.GetSize(),
	}, nil
}

// remoteError classifies an HTTP failure per the retry policy: 403/429 as
// rate limited, everything else as a transient remote error the caller may
// log and skip.
func (c *Client) remoteError(resp *github.Response, err error, msg string) error {
	if resp != nil && (resp.StatusCode == 403 || resp.StatusCode == 429) {
		return apperrors.RateLimited(err, msg)
	}
	return apperrors.TransientRemote(err, msg)
}
