package domain

import (
	"time"

	"github.com/google/uuid"
)

// Status is the lifecycle state of an analysis job. Transitions only move
// along pending -> processing -> {completed, failed}; a failed job may be
// requeued to pending by the sweeper while it has retry budget left.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// SourceType tells the extractor where the submission content lives.
type SourceType string

const (
	SourceURL   SourceType = "url"
	SourceFiles SourceType = "files"
)

// Job is one requested portfolio analysis and its status record.
type Job struct {
	ID            uuid.UUID  `json:"id"`
	SubmitterID   uuid.UUID  `json:"submitter_id"`
	SourceType    SourceType `json:"source_type"`
	SourceURL     string     `json:"source_url,omitempty"`
	FilePaths     []string   `json:"file_paths,omitempty"`
	Title         string     `json:"title,omitempty"`
	CandidateName string     `json:"candidate_name,omitempty"`
	Status        Status     `json:"status"`
	RetryCount    int        `json:"retry_count"`
	FailureReason string     `json:"failure_reason,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// AnalysisResult is the persisted output of a completed Job. All scores are
// integers in [0,100].
type AnalysisResult struct {
	JobID              uuid.UUID `json:"job_id"`
	VisualScore        int       `json:"visual_score"`
	UXScore            int       `json:"ux_score"`
	CommunicationScore int       `json:"communication_score"`
	HireabilityScore   int       `json:"hireability_score"`
	OverallScore       int       `json:"overall_score"`
	Keywords           []string  `json:"extracted_keywords"`
	Strengths          []string  `json:"strengths"`
	Weaknesses         []string  `json:"weaknesses"`
	Recommendations    []string  `json:"recommendations"`
	Verdict            string    `json:"verdict"`
	Seniority          string    `json:"seniority_assessment"`
	CompletedAt        time.Time `json:"completed_at"`
}
