package entity

import (
	"time"

	"github.com/google/uuid"
)

// Job is one unit of work: detect faces in a single remote image and relay
// the result to the session that asked for it. It is immutable once created
// and consumed by exactly one pipeline run.
type Job struct {
	ID            uuid.UUID
	ImageURL      string
	CustomerID    string
	TargetSession string
	FileType      string
	ReceivedAt    time.Time
}

// NewJob builds a Job from an inbound queue message. Messages published by
// older request layers carry no job id; one is generated so every log line
// of the run stays correlatable.
func NewJob(msg FaceProcessingMessage) *Job {
	id := msg.JobID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Job{
		ID:            id,
		ImageURL:      msg.ImageURL,
		CustomerID:    msg.CustomerID,
		TargetSession: msg.TargetSession,
		FileType:      msg.FileType,
		ReceivedAt:    time.Now().UTC(),
	}
}
