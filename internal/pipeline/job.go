package pipeline

import (
	"github.com/google/uuid"

	"reelbot/generic"
)

type JobID string

func NewJobID() JobID {
	return JobID(generic.Unwrap(uuid.NewRandom()).String())
}

type Status string

const (
	StatusReceived    Status = "received"
	StatusNormalizing Status = "normalizing"
	StatusLocating    Status = "locating"
	StatusFetching    Status = "fetching"
	StatusUploading   Status = "uploading"
	StatusCleanup     Status = "cleanup"
	StatusDelivered   Status = "delivered"
	StatusRejected    Status = "rejected"
	StatusFailed      Status = "failed"
)

var terminalStatuses = generic.NewSet(
	StatusDelivered,
	StatusRejected,
	StatusFailed,
)

// IsTerminal returns true for the three outcomes a job can end in. A job
// never leaves a terminal status.
func (s Status) IsTerminal() bool {
	return terminalStatuses.Contains(s)
}

// A Job is the ephemeral state of one inbound link, owned exclusively by the
// coordinator for its lifetime and never shared between concurrent jobs.
type Job struct {
	ID      JobID
	ChatID  int64
	Sender  string
	RawText string

	NormalizedURL string
	MediaURL      string
	ArtifactPath  string

	Status Status
	Err    error
}

func NewJob(chatID int64, sender, rawText string) *Job {
	return &Job{
		ID:      NewJobID(),
		ChatID:  chatID,
		Sender:  sender,
		RawText: rawText,
		Status:  StatusReceived,
	}
}

func (j *Job) advance(s Status) {
	if !j.Status.IsTerminal() {
		j.Status = s
	}
}

func (j *Job) finish(s Status, err error) {
	j.advance(s)
	j.Err = err
}
