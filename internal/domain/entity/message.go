package entity

import "github.com/google/uuid"

// FaceProcessingMessage is the inbound message from the faces.processing queue.
type FaceProcessingMessage struct {
	JobID         uuid.UUID `json:"job_id,omitempty"`
	ImageURL      string    `json:"image_url"`
	CustomerID    string    `json:"customer_id"`
	TargetSession string    `json:"target_session"`
	FileType      string    `json:"file_type"`
}

// RelayMessage is the one-shot notification pushed over the websocket relay
// once a job finishes. It is never persisted; on send failure only the
// connection is retried, not the message.
type RelayMessage struct {
	Action        string    `json:"action"`
	TargetSession string    `json:"target_session"`
	Misc          RelayMisc `json:"misc"`
}

type RelayMisc struct {
	Action       string `json:"action"`
	Count        int    `json:"count"`
	AnnotatedURL string `json:"annotated_url"`
	OriginalURL  string `json:"original_url"`
	TimePassed   string `json:"time_passed"`
}

// NewRelayMessage builds the wire message for a completed job.
func NewRelayMessage(targetSession string, count int, annotatedURL, originalURL, timePassed string) RelayMessage {
	return RelayMessage{
		Action:        "relay_message",
		TargetSession: targetSession,
		Misc: RelayMisc{
			Action:       "face_count",
			Count:        count,
			AnnotatedURL: annotatedURL,
			OriginalURL:  originalURL,
			TimePassed:   timePassed,
		},
	}
}
