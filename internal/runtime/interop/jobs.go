// Package interop defines the payload types exchanged over the broker with
// remote workers and transcription/prompt backends. Control payloads are
// JSON; high-frequency audio chunks use CBOR for size.
package interop

import (
	"time"

	"github.com/google/uuid"
)

// JobRequest asks a remote worker for help with a job. The requester supplies
// its own reply address in ResponseBeam; the eventual JobResponse is
// republished there after correlation by job id.
type JobRequest struct {
	JobID         uuid.UUID `json:"job_id"`
	ResponseBeam  string    `json:"response_beam"`
	Help          string    `json:"help"`
	UserID        uuid.UUID `json:"user_id"`
	RequestedByID uuid.UUID `json:"requested_by_id"`
}

// ActionTaken records one step a helper performed while resolving a request.
type ActionTaken struct {
	Action       string   `json:"action"`
	FilesChanged []string `json:"files_changed"`
}

// HelpResponse is the successful payload of a JobResponse.
type HelpResponse struct {
	ActionsTaken []ActionTaken `json:"actions_taken"`
	Result       string        `json:"result"`
}

// JobResponse resolves a JobRequest. Failed responses carry no help payload.
type JobResponse struct {
	JobID  uuid.UUID     `json:"job_id"`
	Failed bool          `json:"failed,omitempty"`
	Help   *HelpResponse `json:"help,omitempty"`
}

// JobResult is the terminal record of a job run, persisted by a local
// consumer.
type JobResult struct {
	JobID          uuid.UUID `json:"job_id"`
	CompletionTime time.Time `json:"completion_time"`
	Succeeded      bool      `json:"succeeded"`
	JobLog         string    `json:"job_log"`
}

// JobOwners names who created and who is assigned to a job.
type JobOwners struct {
	CreatedID  uuid.UUID `json:"created_id"`
	AssigneeID uuid.UUID `json:"assignee_id"`
}

// DenormalizedJob announces a newly created job with its ownership flattened
// in, so consumers need no further lookups.
type DenormalizedJob struct {
	ID        uuid.UUID  `json:"id"`
	ProjectID uuid.UUID  `json:"project_id"`
	Name      string     `json:"name"`
	Owners    JobOwners  `json:"job_owners"`
	TaskID    *uuid.UUID `json:"task_id,omitempty"`
}
