// Package models defines the records shared between the ingest pipeline,
// the vector store, the relational mart, and the query path.
package models

import "time"

// Risk bands over a [0,10] score.
const (
	RiskBandLow    = "low"
	RiskBandMedium = "medium"
	RiskBandHigh   = "high"

	// HighRiskThreshold is the score at or above which a PR or file is
	// flagged high risk.
	HighRiskThreshold = 7.0
)

// RiskBand maps a score to its band: low <= 3.0 < medium <= 6.9 < high.
func RiskBand(score float64) string {
	switch {
	case score <= 3.0:
		return RiskBandLow
	case score <= 6.9:
		return RiskBandMedium
	default:
		return RiskBandHigh
	}
}

// Author identifies a forge user.
type Author struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
}

// Label is a forge label attached to a PR.
type Label struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// FileRiskAssessment is the structured result of LLM risk scoring for one file.
type FileRiskAssessment struct {
	FilePath      string   `json:"file_path"`
	RiskScoreFile float64  `json:"risk_score_file"`
	HighRiskFlag  bool     `json:"high_risk_flag"`
	Reasons       []string `json:"reasons"`
	Confidence    float64  `json:"confidence"`
}

// ZeroAssessment returns a zero-score assessment with the given reason.
func ZeroAssessment(path, reason string) FileRiskAssessment {
	return FileRiskAssessment{
		FilePath:      path,
		RiskScoreFile: 0,
		HighRiskFlag:  false,
		Reasons:       []string{reason},
		Confidence:    0,
	}
}

// CalculationDetails records the inputs of the PR risk aggregation.
type CalculationDetails struct {
	WeightedBase  float64 `json:"weighted_base"`
	MaxFileScore  float64 `json:"max_file_score"`
	HardGuard     bool    `json:"hard_guard_triggered"`
	NetTestLines  int     `json:"net_test_lines_added"`
	FilesAssessed int     `json:"files_assessed"`
}

// PRRiskAssessment is the aggregated PR-level risk result.
type PRRiskAssessment struct {
	RiskScore   float64            `json:"risk_score"`
	RiskBand    string             `json:"risk_band"`
	HighRisk    bool               `json:"high_risk"`
	RiskReasons []string           `json:"risk_reasons"`
	Calculation CalculationDetails `json:"calculation_details"`
}

// EnrichedFile is one changed file of a PR after enrichment.
type EnrichedFile struct {
	Filename         string `json:"filename"`
	Status           string `json:"status"` // added, modified, removed, renamed
	PreviousFilename string `json:"previous_filename,omitempty"`
	Additions        int    `json:"additions"`
	Deletions        int    `json:"deletions"`
	Changes          int    `json:"changes"`
	NetLines         int    `json:"net_lines"`
	SizeBytes        int    `json:"size_bytes,omitempty"`

	Language        string `json:"language"`
	Extension       string `json:"extension"`
	IsBinary        bool   `json:"is_binary"`
	IsConfigFile    bool   `json:"is_config_file"`
	IsDocumentation bool   `json:"is_documentation"`
	IsTestFile      bool   `json:"is_test_file"`
	IsSourceCode    bool   `json:"is_source_code"`

	Patch       string `json:"patch,omitempty"`
	PostContent string `json:"post_content,omitempty"`

	AISummary      string             `json:"ai_summary"`
	RiskAssessment FileRiskAssessment `json:"risk_assessment"`
	ContentError   string             `json:"content_error,omitempty"`
}

// FileStatistics summarizes the file set of a PR.
type FileStatistics struct {
	TotalFiles    int `json:"total_files"`
	SourceFiles   int `json:"source_files"`
	TestFiles     int `json:"test_files"`
	ConfigFiles   int `json:"config_files"`
	DocFiles      int `json:"doc_files"`
	BinaryFiles   int `json:"binary_files"`
	LinesAdded    int `json:"lines_added"`
	LinesDeleted  int `json:"lines_deleted"`
	TruncatedList bool `json:"truncated_list,omitempty"`
}

// EnrichedPR is the full per-PR record produced by the ingest pipeline and
// persisted in the JSON archive.
type EnrichedPR struct {
	PRID     int64  `json:"pr_id"`
	PRNumber int    `json:"pr_number"`
	RepoID   int64  `json:"repo_id"`
	RepoName string `json:"repo_name"`

	Title string `json:"title"`
	Body  string `json:"body"`
	State string `json:"state"`

	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	MergedAt  *time.Time `json:"merged_at,omitempty"`
	IsClosed  bool       `json:"is_closed"`
	IsMerged  bool       `json:"is_merged"`
	Draft     bool       `json:"draft"`

	User      Author  `json:"user"`
	Assignees []Author `json:"assignees,omitempty"`
	Labels    []Label `json:"labels"`
	Milestone string  `json:"milestone,omitempty"`

	Comments       int `json:"comments"`
	ReviewComments int `json:"review_comments"`
	Commits        int `json:"commits"`
	Additions      int `json:"additions"`
	Deletions      int `json:"deletions"`
	ChangedFiles   int `json:"changed_files"`

	BaseBranch     string `json:"base_branch"`
	HeadBranch     string `json:"head_branch"`
	MergedBy       string `json:"merged_by,omitempty"`
	MergeCommitSHA string `json:"merge_commit_sha,omitempty"`

	Files          []EnrichedFile   `json:"files"`
	FileStatistics FileStatistics   `json:"file_statistics"`
	PRSummary      string           `json:"pr_summary"`
	RiskAssessment PRRiskAssessment `json:"pr_risk_assessment"`
	Feature        string           `json:"feature"`
}

// MergedEpoch returns merged_at as epoch seconds, 0 when not merged.
// PRs flagged merged without a timestamp fall back to created_at; the
// caller logs the backfill as a source hazard.
func (p *EnrichedPR) MergedEpoch() int64 {
	if p.MergedAt != nil {
		return p.MergedAt.Unix()
	}
	if p.IsMerged {
		return p.CreatedAt.Unix()
	}
	return 0
}

// ArchiveSummary is the header of the persisted ingest archive.
type ArchiveSummary struct {
	RepoName    string    `json:"repo_name"`
	State       string    `json:"state"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`

	TotalPRs    int `json:"total_prs"`
	MergedPRs   int `json:"merged_prs"`
	ClosedPRs   int `json:"closed_prs"`
	OpenPRs     int `json:"open_prs"`
	FeaturePRs  int `json:"feature_prs"`
	HighRiskPRs int `json:"high_risk_prs"`
	SkippedPRs  int `json:"skipped_prs"`

	TotalFiles   int `json:"total_files"`
	LinesAdded   int `json:"lines_added"`
	LinesDeleted int `json:"lines_deleted"`
}

// Archive is the JSON file handed from the ingest job to the vector loader.
type Archive struct {
	Summary      ArchiveSummary `json:"summary"`
	PullRequests []EnrichedPR   `json:"pull_requests"`
}
