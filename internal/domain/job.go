package domain

// JobStatus enumerates the local lifecycle states of a delegated unit of work.
// Terminal states (completed, failed, cancelled) never change once observed.
type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusCancelled  JobStatus = "cancelled"
)

// Result is the normalized outcome of one upstream operation. The JobID is
// generated locally so callers never depend on the provider's ID scheme.
type Result struct {
	JobID     string         `json:"job_id"`
	Status    JobStatus      `json:"status"`
	ResultURL string         `json:"result_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// UpstreamJob is a snapshot of an in-flight or completed provider job as
// observed through status polling.
type UpstreamJob struct {
	JobID     string         `json:"job_id"`
	Status    JobStatus      `json:"status"`
	Progress  float64        `json:"progress"`
	ResultURL string         `json:"result_url,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}
