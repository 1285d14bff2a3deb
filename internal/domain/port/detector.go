package port

import (
	"context"

	"github.com/dmoshi/face-count-service/internal/domain/entity"
	"github.com/dmoshi/face-count-service/internal/imaging"
)

// FaceDetector runs model inference on a frame and returns candidate boxes
// in detection order. The model is a black box; any error is fatal to the job.
type FaceDetector interface {
	Detect(ctx context.Context, frame *imaging.Frame) ([]entity.RawDetection, error)
}
