package port

import (
	"context"

	"github.com/dmoshi/face-count-service/internal/domain/entity"
)

// DetectionRepository persists detection records. Upsert semantics: the record
// id is content-addressed by original URL, so a re-processed image replaces
// its previous row.
type DetectionRepository interface {
	Upsert(ctx context.Context, rec *entity.DetectionRecord) error
}
