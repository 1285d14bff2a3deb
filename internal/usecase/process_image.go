package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"path"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/dmoshi/face-count-service/internal/domain/entity"
	"github.com/dmoshi/face-count-service/internal/domain/port"
	"github.com/dmoshi/face-count-service/internal/imaging"
	"github.com/dmoshi/face-count-service/internal/infra/metrics"
)

// ProcessImageUseCase runs the full detection pipeline for one job:
// fetch → enhance → detect → per-box filter/annotate → persist → relay.
// Fetch, decode and model failures abort the job; persistence and relay are
// best-effort augmentations once detection has succeeded.
type ProcessImageUseCase struct {
	fetcher  port.ImageFetcher
	detector port.FaceDetector
	store    port.ArtifactStore
	repo     port.DetectionRepository
	relay    port.Relay
	dlq      port.DLQPublisher
	notifier port.FailureNotifier
	logger   *zap.Logger

	persistTimeout time.Duration
}

type ProcessImageConfig struct {
	PersistTimeout time.Duration
}

func NewProcessImageUseCase(
	fetcher port.ImageFetcher,
	detector port.FaceDetector,
	store port.ArtifactStore,
	repo port.DetectionRepository,
	relay port.Relay,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg ProcessImageConfig,
) *ProcessImageUseCase {
	return &ProcessImageUseCase{
		fetcher:        fetcher,
		detector:       detector,
		store:          store,
		repo:           repo,
		relay:          relay,
		dlq:            dlq,
		notifier:       notifier,
		logger:         logger,
		persistTimeout: cfg.PersistTimeout,
	}
}

func (uc *ProcessImageUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "ProcessImageUseCase.Execute")
	defer span.End()

	var msg entity.FaceProcessingMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	job := entity.NewJob(msg)
	span.SetAttributes(
		attribute.String("job.id", job.ID.String()),
		attribute.String("job.image_url", job.ImageURL),
	)
	log := uc.logger.With(zap.String("job_id", job.ID.String()), zap.String("image_url", job.ImageURL))

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	result, annotated, err := uc.runDetection(ctx, job, log)
	if err != nil {
		log.Error("job aborted", zap.Error(err))
		metrics.JobsProcessedTotal.WithLabelValues("aborted").Inc()
		_ = uc.notifier.NotifyFailure(ctx, job.ID.String(), job.ImageURL, err.Error())
		return err
	}

	// Detection succeeded: the job is complete from here on. Persistence and
	// relay failures are logged, never propagated.
	annotatedURL, timePassed := uc.persist(ctx, job, annotated, result, log)
	uc.relayResult(ctx, job, result, annotatedURL, timePassed, log)

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.FacesDetectedTotal.Add(float64(result.Count()))
	log.Info("job completed", zap.Int("face_count", result.Count()))
	return nil
}

// runDetection covers the fatal stages: fetch, whole-frame enhancement, model
// inference and per-box processing. It returns the accepted faces and the
// annotated frame.
func (uc *ProcessImageUseCase) runDetection(ctx context.Context, job *entity.Job, log *zap.Logger) (entity.DetectionResult, *imaging.Frame, error) {
	tracer := otel.Tracer("usecase")

	fetchStart := time.Now()
	ctxFetch, spanFetch := tracer.Start(ctx, "fetch_image")
	frame, err := uc.fetcher.Fetch(ctxFetch, job.ImageURL)
	spanFetch.End()
	if err != nil {
		return entity.DetectionResult{}, nil, fmt.Errorf("fetch image: %w", err)
	}
	metrics.StageDuration.WithLabelValues("fetch").Observe(time.Since(fetchStart).Seconds())

	enhanceStart := time.Now()
	_, spanEnhance := tracer.Start(ctx, "enhance_frame")
	frame = imaging.Enhance(frame)
	spanEnhance.End()
	metrics.StageDuration.WithLabelValues("enhance").Observe(time.Since(enhanceStart).Seconds())

	detectStart := time.Now()
	ctxDetect, spanDetect := tracer.Start(ctx, "model_inference")
	detections, err := uc.detector.Detect(ctxDetect, frame)
	spanDetect.End()
	if err != nil {
		return entity.DetectionResult{}, nil, fmt.Errorf("model inference: %w", err)
	}
	metrics.StageDuration.WithLabelValues("detect").Observe(time.Since(detectStart).Seconds())

	filterStart := time.Now()
	_, spanFilter := tracer.Start(ctx, "filter_annotate")
	annotated := frame.Clone()
	var faces []entity.DetectedFace

	for _, det := range detections {
		rect, ok := imaging.ClampRect(det.X, det.Y, det.Width, det.Height, frame.Width, frame.Height)
		if !ok {
			continue
		}

		crop := frame.Crop(rect)
		enhancedCrop := imaging.Enhance(crop)
		if !imaging.LikelyFace(enhancedCrop, det.Confidence) {
			metrics.BoxesRejectedTotal.Inc()
			continue
		}

		imaging.DrawDetection(annotated, rect, det.Confidence)
		faces = append(faces, entity.DetectedFace{
			Bbox:       [4]int{rect.X, rect.Y, rect.W, rect.H},
			Confidence: math.Round(det.Confidence*100) / 100,
		})
	}
	spanFilter.End()
	metrics.StageDuration.WithLabelValues("filter").Observe(time.Since(filterStart).Seconds())

	log.Info("detection finished",
		zap.Int("raw_boxes", len(detections)),
		zap.Int("accepted", len(faces)),
	)
	return entity.DetectionResult{Faces: faces}, annotated, nil
}

// persist stores the annotated artifact and the metadata row. The two writes
// are independent: a database failure never undoes the artifact. On artifact
// failure the original URL stands in as the annotated reference so the relay
// still carries something the client can open.
func (uc *ProcessImageUseCase) persist(ctx context.Context, job *entity.Job, annotated *imaging.Frame, result entity.DetectionResult, log *zap.Logger) (string, string) {
	tracer := otel.Tracer("usecase")
	persistStart := time.Now()
	ctx, span := tracer.Start(ctx, "persist")
	defer func() {
		span.End()
		metrics.StageDuration.WithLabelValues("persist").Observe(time.Since(persistStart).Seconds())
	}()

	ctx, cancel := context.WithTimeout(ctx, uc.persistTimeout)
	defer cancel()

	meta := parseCaptureMeta(job.ImageURL)
	timePassed := entity.TimePassed(meta.capturedAt, time.Now().UTC())

	objectKey := fmt.Sprintf("%s/%s/%s/%s/%s",
		job.CustomerID, meta.imei, meta.month, meta.dateStr, meta.imgName)

	annotatedURL, err := uc.store.SaveAnnotated(ctx, annotated, objectKey, job.FileType)
	if err != nil {
		log.Error("failed to store annotated image", zap.Error(err))
		return job.ImageURL, timePassed
	}

	rec := entity.NewDetectionRecord(job.ImageURL, annotatedURL, result.Faces, meta.imei, job.CustomerID, meta.capturedAt)
	if err := uc.repo.Upsert(ctx, rec); err != nil {
		// The artifact is already durable; report and move on.
		log.Error("failed to save detection metadata", zap.Error(err))
	}

	return annotatedURL, timePassed
}

func (uc *ProcessImageUseCase) relayResult(ctx context.Context, job *entity.Job, result entity.DetectionResult, annotatedURL, timePassed string, log *zap.Logger) {
	tracer := otel.Tracer("usecase")
	relayStart := time.Now()
	ctx, span := tracer.Start(ctx, "relay")
	defer func() {
		span.End()
		metrics.StageDuration.WithLabelValues("relay").Observe(time.Since(relayStart).Seconds())
	}()

	msg := entity.NewRelayMessage(job.TargetSession, result.Count(), annotatedURL, job.ImageURL, timePassed)
	if err := uc.relay.Send(ctx, msg); err != nil {
		log.Error("failed to relay face count", zap.String("target_session", job.TargetSession), zap.Error(err))
		return
	}
	log.Info("face count relayed", zap.String("target_session", job.TargetSession))
}

// captureMeta is derived from the device filename convention
// <imei>_<yyyymmdd>_<hhmmss>[_...].<ext>.
type captureMeta struct {
	imgName    string
	imei       string
	dateStr    string
	month      string
	capturedAt time.Time
}

// parseCaptureMeta extracts device and capture-time metadata from the image
// URL. Names outside the convention fall back to an unknown device and the
// current time; persistence never aborts a job over a filename.
func parseCaptureMeta(originalURL string) captureMeta {
	meta := captureMeta{
		imgName:    "image.jpg",
		imei:       "unknown",
		capturedAt: time.Now().UTC(),
	}
	meta.dateStr = meta.capturedAt.Format("20060102")
	meta.month = meta.dateStr[4:6]

	u, err := url.Parse(originalURL)
	if err != nil {
		return meta
	}
	name := path.Base(u.Path)
	if name != "." && name != "/" && name != "" {
		meta.imgName = name
	}

	parts := strings.Split(strings.TrimSuffix(name, path.Ext(name)), "_")
	if len(parts) < 3 || len(parts[1]) != 8 || len(parts[2]) != 6 {
		return meta
	}

	dt, err := entity.ParseCaptureTime(parts[1] + parts[2])
	if err != nil {
		return meta
	}

	meta.imei = parts[0]
	meta.dateStr = parts[1]
	meta.month = parts[1][4:6]
	meta.capturedAt = dt
	return meta
}
