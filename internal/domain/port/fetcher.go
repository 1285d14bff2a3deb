package port

import (
	"context"

	"github.com/dmoshi/face-count-service/internal/imaging"
)

// ImageFetcher retrieves a remote image and decodes it into a canonical
// RGB frame, enforcing scheme, size and timeout limits.
type ImageFetcher interface {
	Fetch(ctx context.Context, url string) (*imaging.Frame, error)
}
