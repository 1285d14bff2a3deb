package port

import (
	"context"

	"github.com/dmoshi/face-count-service/internal/imaging"
)

// ArtifactStore writes an annotated frame to durable storage and returns a
// publicly reachable URL for it.
type ArtifactStore interface {
	SaveAnnotated(ctx context.Context, frame *imaging.Frame, objectKey, contentType string) (string, error)
}
