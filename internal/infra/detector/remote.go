package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/dmoshi/face-count-service/internal/domain/entity"
	"github.com/dmoshi/face-count-service/internal/imaging"
)

// InferenceParams are the fixed parameters sent with every model call.
type InferenceParams struct {
	ImageSize     int
	ConfThreshold float64
	IoUThreshold  float64
	Device        string
}

// RemoteDetector calls an external inference service over HTTP multipart.
// The service hosts the face model; this side only ships the frame and the
// inference parameters and decodes the returned boxes.
type RemoteDetector struct {
	endpoint string
	params   InferenceParams
	client   *http.Client
}

func NewRemoteDetector(endpoint string, params InferenceParams, timeout time.Duration) *RemoteDetector {
	return &RemoteDetector{
		endpoint: endpoint,
		params:   params,
		client:   &http.Client{Timeout: timeout},
	}
}

func (d *RemoteDetector) Detect(ctx context.Context, frame *imaging.Frame) ([]entity.RawDetection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("%w: create form file: %v", entity.ErrModelInference, err)
	}
	if err := jpeg.Encode(part, frame.ToRGBA(), &jpeg.Options{Quality: 95}); err != nil {
		return nil, fmt.Errorf("%w: encode frame: %v", entity.ErrModelInference, err)
	}

	fields := map[string]string{
		"img_size":   strconv.Itoa(d.params.ImageSize),
		"conf_thres": strconv.FormatFloat(d.params.ConfThreshold, 'f', -1, 64),
		"iou_thres":  strconv.FormatFloat(d.params.IoUThreshold, 'f', -1, 64),
		"device":     d.params.Device,
	}
	for k, v := range fields {
		if err := writer.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("%w: write field %s: %v", entity.ErrModelInference, k, err)
		}
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrModelInference, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrModelInference, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: status %d: %s", entity.ErrModelInference, resp.StatusCode, msg)
	}

	var result struct {
		Detections []entity.RawDetection `json:"detections"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", entity.ErrModelInference, err)
	}

	return result.Detections, nil
}
