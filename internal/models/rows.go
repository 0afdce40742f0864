package models

// PRRow is one row of the PR collection in the vector store. Epoch-second
// timestamps, merged_at 0 when not merged.
type PRRow struct {
	Vector []float32 `json:"-"`

	RepoID   int64  `json:"repo_id"`
	RepoName string `json:"repo_name"`
	PRNumber int    `json:"pr_number"`
	PRID     int64  `json:"pr_id"`

	Title      string `json:"title"`
	Body       string `json:"body"`
	AuthorID   int64  `json:"author_id"`
	AuthorName string `json:"author_name"`

	CreatedAt int64  `json:"created_at"`
	MergedAt  int64  `json:"merged_at"`
	IsMerged  bool   `json:"is_merged"`
	IsClosed  bool   `json:"is_closed"`
	Status    string `json:"status"`

	LabelsFull   []Label `json:"labels_full"`
	Additions    int     `json:"additions"`
	Deletions    int     `json:"deletions"`
	ChangedFiles int     `json:"changed_files"`

	Feature     string   `json:"feature"`
	PRSummary   string   `json:"pr_summary"`
	RiskScore   float64  `json:"risk_score"`
	RiskBand    string   `json:"risk_band"`
	HighRisk    bool     `json:"high_risk"`
	RiskReasons []string `json:"risk_reasons"`

	// Distance is the cosine distance attached by vector search.
	Distance float64 `json:"_distance,omitempty"`
}

// FileRow is one row of the file collection in the vector store.
type FileRow struct {
	Vector []float32 `json:"-"`

	RepoID     int64  `json:"repo_id"`
	RepoName   string `json:"repo_name"`
	PRNumber   int    `json:"pr_number"`
	PRID       int64  `json:"pr_id"`
	AuthorID   int64  `json:"author_id"`
	AuthorName string `json:"author_name"`
	MergedAt   int64  `json:"merged_at"`

	FileID     string `json:"file_id"`
	FileStatus string `json:"file_status"`
	Language   string `json:"language"`

	Additions    int `json:"additions"`
	Deletions    int `json:"deletions"`
	LinesChanged int `json:"lines_changed"`

	IsBinary        bool `json:"is_binary"`
	IsConfigFile    bool `json:"is_config_file"`
	IsDocumentation bool `json:"is_documentation"`
	IsTestFile      bool `json:"is_test_file"`
	IsSourceCode    bool `json:"is_source_code"`

	Patch           string   `json:"patch"`
	AISummary       string   `json:"ai_summary"`
	RiskScoreFile   float64  `json:"risk_score_file"`
	HighRiskFlag    bool     `json:"high_risk_flag"`
	FileRiskReasons []string `json:"file_risk_reasons"`

	Distance float64 `json:"_distance,omitempty"`
}
