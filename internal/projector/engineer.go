package projector

import (
	"context"
	"time"

	"github.com/whattherepo/whattherepo/internal/mart"
	"github.com/whattherepo/whattherepo/internal/models"
	"github.com/whattherepo/whattherepo/internal/vectorstore"
)

type dailyCounters struct {
	prsSubmitted   int
	prsMerged      int
	linesChanged   int
	highRiskPRs    int
	featuresMerged int
}

// ProjectEngineer computes the per-author tables for one repository:
// authors, daily metrics over the data window, windowed aggregates for
// every metrics window, file ownership, and the merged PR listings.
// Existing projections are skipped unless opts.Force is set; opts can
// restrict the run to one window or one table.
func (p *Projector) ProjectEngineer(ctx context.Context, repoName string, opts EngineerOptions) error {
	dataWindowDays := opts.DataWindowDays
	if dataWindowDays <= 0 {
		dataWindowDays = DefaultDataWindowDays
	}

	windows := Windows
	if opts.WindowDays > 0 {
		windows = []int{opts.WindowDays}
	}

	if !opts.Force {
		exists, err := p.mart.HasWindowMetrics(ctx, repoName, windows[0])
		if err != nil {
			return err
		}
		if exists {
			p.logger.Info("engineer projection exists, skipping", "repo", repoName)
			return nil
		}
	}

	today := time.Now().UTC().Truncate(24 * time.Hour)
	dataStart := today.AddDate(0, 0, -(dataWindowDays - 1))
	startEpoch := dataStart.Unix()
	endEpoch := today.Add(24*time.Hour - time.Second).Unix()

	prRows, err := p.store.QueryPRs(ctx, vectorstore.And(
		vectorstore.Eq("repo_name", repoName),
		vectorstore.Between("created_at", startEpoch, endEpoch)))
	if err != nil {
		return err
	}
	prRows = dedupeByPRID(prRows)
	if len(prRows) == 0 {
		p.logger.Warn("no PR rows for repository", "repo", repoName)
		return nil
	}

	fileRows, err := p.store.QueryFiles(ctx, vectorstore.And(
		vectorstore.Eq("repo_name", repoName),
		vectorstore.Between("merged_at", startEpoch, endEpoch)))
	if err != nil {
		return err
	}

	// A forced refresh truncates the aggregate rows it will rewrite so
	// superseded window bounds and files no longer touched do not
	// linger. Source rows are read first: a failed store query leaves
	// the mart untouched.
	if opts.Force {
		if err := p.clearEngineerRows(ctx, repoName, opts); err != nil {
			return err
		}
	}

	// Authors from both row sets.
	authorSet := make(map[string]bool)
	for i := range prRows {
		if prRows[i].AuthorName != "" {
			authorSet[prRows[i].AuthorName] = true
		}
	}
	for i := range fileRows {
		if fileRows[i].AuthorName != "" {
			authorSet[fileRows[i].AuthorName] = true
		}
	}
	authors := make([]mart.AuthorRow, 0, len(authorSet))
	for username := range authorSet {
		authors = append(authors, mart.NewAuthorRow(username))
	}
	if opts.writes(TableAuthors) {
		if err := p.mart.UpsertAuthors(ctx, authors); err != nil {
			return err
		}
	}

	// Daily rows feed the window aggregation, so they are computed even
	// when their table is not being written.
	daily := p.dailyMetrics(repoName, prRows, authorSet, dataStart, today)
	if opts.writes(TableDaily) {
		if err := p.mart.UpsertDailyMetrics(ctx, daily); err != nil {
			return err
		}
	}

	for _, windowDays := range windows {
		start, end := windowBounds(windowDays, dataWindowDays, today)

		if opts.writes(TableWindow) {
			window := windowMetrics(repoName, daily, windowDays, start, end)
			if err := p.mart.UpsertWindowMetrics(ctx, window); err != nil {
				return err
			}
		}

		if opts.writes(TableFileOwnership) {
			ownership := fileOwnership(repoName, fileRows, windowDays, start, end)
			if err := p.mart.UpsertFileOwnership(ctx, ownership); err != nil {
				return err
			}
		}

		if opts.writes(TableAuthorPRs) {
			authorPRs := p.authorPRWindow(repoName, prRows, windowDays, start, end)
			if err := p.mart.UpsertAuthorPRs(ctx, authorPRs); err != nil {
				return err
			}
		}
	}

	p.logger.Info("engineer projection complete",
		"repo", repoName,
		"authors", len(authors),
		"daily_rows", len(daily),
		"windows", len(windows))
	return nil
}

func (p *Projector) clearEngineerRows(ctx context.Context, repoName string, opts EngineerOptions) error {
	if opts.writes(TableDaily) {
		if err := p.mart.DeleteDailyMetrics(ctx, repoName); err != nil {
			return err
		}
	}
	if opts.writes(TableWindow) {
		if err := p.mart.DeleteWindowMetrics(ctx, repoName, opts.WindowDays); err != nil {
			return err
		}
	}
	if opts.writes(TableFileOwnership) {
		if err := p.mart.DeleteFileOwnership(ctx, repoName, opts.WindowDays); err != nil {
			return err
		}
	}
	if opts.writes(TableAuthorPRs) {
		if err := p.mart.DeleteAuthorPRs(ctx, repoName, opts.WindowDays); err != nil {
			return err
		}
	}
	return nil
}

// dailyMetrics builds one row per (author, day) over the data window.
// Every day in range gets a row, zero-filled when idle, so consumers
// can plot continuous series. Submission-day attribution applies to
// prs_submitted, lines_changed, and high_risk_prs; merged-day
// attribution applies to prs_merged and features_merged.
func (p *Projector) dailyMetrics(repoName string, prRows []models.PRRow, authorSet map[string]bool, start, end time.Time) []mart.DailyMetricRow {
	counters := make(map[string]map[string]*dailyCounters)
	for username := range authorSet {
		counters[username] = make(map[string]*dailyCounters)
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			counters[username][d.Format(mart.DateLayout)] = &dailyCounters{}
		}
	}

	at := func(username, day string) *dailyCounters {
		byDay, ok := counters[username]
		if !ok {
			return nil
		}
		c, ok := byDay[day]
		if !ok {
			// Timestamp outside the pre-populated range; attach a row
			// anyway rather than lose the activity.
			c = &dailyCounters{}
			byDay[day] = c
		}
		return c
	}

	for i := range prRows {
		pr := &prRows[i]
		if pr.AuthorName == "" {
			continue
		}

		createdDay := day(pr.CreatedAt)
		if c := at(pr.AuthorName, createdDay); c != nil {
			c.prsSubmitted++
			c.linesChanged += pr.Additions + pr.Deletions
			if pr.HighRisk {
				c.highRiskPRs++
			}
		}

		if pr.IsMerged && pr.MergedAt > 0 {
			mergedDay := day(pr.MergedAt)
			if c := at(pr.AuthorName, mergedDay); c != nil {
				c.prsMerged++
				if pr.Feature != "" {
					c.featuresMerged++
				}
			}
		}
	}

	var rows []mart.DailyMetricRow
	for username, byDay := range counters {
		for d, c := range byDay {
			rows = append(rows, mart.DailyMetricRow{
				Username:       username,
				RepoName:       repoName,
				Day:            d,
				PRsSubmitted:   c.prsSubmitted,
				PRsMerged:      c.prsMerged,
				LinesChanged:   c.linesChanged,
				HighRiskPRs:    c.highRiskPRs,
				FeaturesMerged: c.featuresMerged,
			})
		}
	}
	return rows
}

// windowMetrics aggregates daily rows into one row per author for the
// window. high_risk_rate is a percentage of merged PRs, 0 when none
// merged.
func windowMetrics(repoName string, daily []mart.DailyMetricRow, windowDays int, start, end time.Time) []mart.WindowMetricRow {
	startDay := start.Format(mart.DateLayout)
	endDay := end.Format(mart.DateLayout)

	type totals struct {
		submitted, merged, highRisk, lines int
		active                             bool
	}
	byAuthor := make(map[string]*totals)
	for _, d := range daily {
		if d.Day < startDay || d.Day > endDay {
			continue
		}
		t, ok := byAuthor[d.Username]
		if !ok {
			t = &totals{}
			byAuthor[d.Username] = t
		}
		t.submitted += d.PRsSubmitted
		t.merged += d.PRsMerged
		t.highRisk += d.HighRiskPRs
		t.lines += d.LinesChanged
		if d.PRsSubmitted > 0 || d.PRsMerged > 0 || d.LinesChanged > 0 {
			t.active = true
		}
	}

	var rows []mart.WindowMetricRow
	for username, t := range byAuthor {
		if !t.active {
			continue
		}
		rate := 0.0
		if t.merged > 0 {
			rate = float64(t.highRisk) / float64(t.merged) * 100
		}
		rows = append(rows, mart.WindowMetricRow{
			Username:     username,
			RepoName:     repoName,
			WindowDays:   windowDays,
			StartDate:    startDay,
			EndDate:      endDay,
			PRsSubmitted: t.submitted,
			PRsMerged:    t.merged,
			HighRiskPRs:  t.highRisk,
			HighRiskRate: roundRate(rate),
			LinesChanged: t.lines,
		})
	}
	return rows
}

// fileOwnership computes per-author line shares of every file touched
// by merged PRs inside the window.
func fileOwnership(repoName string, fileRows []models.FileRow, windowDays int, start, end time.Time) []mart.FileOwnershipRow {
	startEpoch := start.Unix()
	endEpoch := end.Add(24*time.Hour - time.Second).Unix()

	type fileAccum struct {
		byAuthor    map[string]int
		total       int
		lastTouched int64
	}
	files := make(map[string]*fileAccum)

	for i := range fileRows {
		f := &fileRows[i]
		if f.FileID == "" || f.AuthorName == "" {
			continue
		}
		if f.MergedAt < startEpoch || f.MergedAt > endEpoch {
			continue
		}
		acc, ok := files[f.FileID]
		if !ok {
			acc = &fileAccum{byAuthor: make(map[string]int)}
			files[f.FileID] = acc
		}
		lines := f.Additions + f.Deletions
		acc.byAuthor[f.AuthorName] += lines
		acc.total += lines
		if f.MergedAt > acc.lastTouched {
			acc.lastTouched = f.MergedAt
		}
	}

	var rows []mart.FileOwnershipRow
	for fileID, acc := range files {
		if acc.total == 0 {
			continue
		}
		var lastTouched *time.Time
		if acc.lastTouched > 0 {
			t := time.Unix(acc.lastTouched, 0).UTC()
			lastTouched = &t
		}
		for username, lines := range acc.byAuthor {
			rows = append(rows, mart.FileOwnershipRow{
				Username:     username,
				RepoName:     repoName,
				WindowDays:   windowDays,
				StartDate:    start.Format(mart.DateLayout),
				EndDate:      end.Format(mart.DateLayout),
				FileID:       fileID,
				FilePath:     fileID,
				OwnershipPct: roundRate(float64(lines) / float64(acc.total) * 100),
				AuthorLines:  lines,
				TotalLines:   acc.total,
				LastTouched:  lastTouched,
			})
		}
	}
	return rows
}

// authorPRWindow lists each author's merged PRs inside the window with
// their risk and feature classification.
func (p *Projector) authorPRWindow(repoName string, prRows []models.PRRow, windowDays int, start, end time.Time) []mart.AuthorPRRow {
	startEpoch := start.Unix()
	endEpoch := end.Add(24*time.Hour - time.Second).Unix()

	var rows []mart.AuthorPRRow
	for i := range prRows {
		pr := &prRows[i]
		if pr.AuthorName == "" || !pr.IsMerged {
			continue
		}
		mergedAt := pr.MergedAt
		if mergedAt == 0 {
			// Merged without a timestamp is a known source hazard; fall
			// back to the submission time.
			mergedAt = pr.CreatedAt
			p.logger.Debug("backfilling merged_at from created_at",
				"repo", repoName, "pr", pr.PRNumber)
		}
		if mergedAt < startEpoch || mergedAt > endEpoch {
			continue
		}
		rule, confidence := featureRule(pr)
		rows = append(rows, mart.AuthorPRRow{
			Username:          pr.AuthorName,
			RepoName:          repoName,
			WindowDays:        windowDays,
			StartDate:         start.Format(mart.DateLayout),
			EndDate:           end.Format(mart.DateLayout),
			PRNumber:          pr.PRNumber,
			Title:             pr.Title,
			PRSummary:         pr.PRSummary,
			MergedAt:          time.Unix(mergedAt, 0).UTC(),
			RiskScore:         pr.RiskScore,
			HighRisk:          pr.RiskScore >= models.HighRiskThreshold,
			FeatureRule:       rule,
			FeatureConfidence: confidence,
		})
	}
	return rows
}

func roundRate(v float64) float64 {
	return float64(int(v*100+0.5)) / 100
}
