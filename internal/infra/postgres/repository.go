package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmoshi/face-count-service/internal/domain/entity"
)

type DetectionRepository struct {
	pool *pgxpool.Pool
}

func NewDetectionRepository(pool *pgxpool.Pool) *DetectionRepository {
	return &DetectionRepository{pool: pool}
}

// Upsert writes one detection record. The id is a deterministic hash of the
// original URL, so re-processing the same image replaces its row instead of
// failing on the primary key.
func (r *DetectionRepository) Upsert(ctx context.Context, rec *entity.DetectionRecord) error {
	facesData, err := json.Marshal(rec.FacesData)
	if err != nil {
		return fmt.Errorf("marshal faces data: %w", err)
	}

	query := `
		INSERT INTO face_detection_counts (
			id, original_image_url, annotated_image_url, face_count,
			device_imei, customer_id, capture_datetime, faces_data
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (id) DO UPDATE SET
			annotated_image_url = EXCLUDED.annotated_image_url,
			face_count          = EXCLUDED.face_count,
			capture_datetime    = EXCLUDED.capture_datetime,
			faces_data          = EXCLUDED.faces_data`

	_, err = r.pool.Exec(ctx, query,
		rec.ID, rec.OriginalImageURL, rec.AnnotatedImageURL, rec.FaceCount,
		rec.DeviceIMEI, rec.CustomerID, rec.CaptureDatetime, facesData,
	)
	if err != nil {
		return fmt.Errorf("upsert detection record: %w", err)
	}
	return nil
}

// FindByID loads a record, mostly for tests and operational inspection.
func (r *DetectionRepository) FindByID(ctx context.Context, id string) (*entity.DetectionRecord, error) {
	query := `
		SELECT id, original_image_url, annotated_image_url, face_count,
			device_imei, customer_id, capture_datetime, faces_data
		FROM face_detection_counts WHERE id=$1`

	rec := &entity.DetectionRecord{}
	var facesData []byte
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rec.ID, &rec.OriginalImageURL, &rec.AnnotatedImageURL, &rec.FaceCount,
		&rec.DeviceIMEI, &rec.CustomerID, &rec.CaptureDatetime, &facesData,
	)
	if err != nil {
		return nil, fmt.Errorf("find detection record: %w", err)
	}
	if err := json.Unmarshal(facesData, &rec.FacesData); err != nil {
		return nil, fmt.Errorf("unmarshal faces data: %w", err)
	}
	return rec, nil
}
