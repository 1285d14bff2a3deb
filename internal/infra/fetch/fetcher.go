package fetch

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"
	"time"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"github.com/dmoshi/face-count-service/internal/domain/entity"
	"github.com/dmoshi/face-count-service/internal/imaging"
	"go.uber.org/zap"
)

// Fetcher downloads and decodes remote images into canonical RGB frames.
// It validates the scheme before any network call, rejects oversized payloads
// (by declared length early, and by counted bytes while streaming), and maps
// every failure mode to a distinct sentinel error.
type Fetcher struct {
	client   *http.Client
	maxBytes int64
	logger   *zap.Logger
}

func NewFetcher(timeout time.Duration, maxBytes int64, logger *zap.Logger) *Fetcher {
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		maxBytes: maxBytes,
		logger:   logger,
	}
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (*imaging.Frame, error) {
	lower := strings.ToLower(url)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return nil, fmt.Errorf("%w: %s", entity.ErrInvalidURL, url)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrInvalidURL, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", entity.ErrFetchFailed, resp.StatusCode)
	}

	if resp.ContentLength > f.maxBytes {
		return nil, fmt.Errorf("%w: declared %d bytes, limit %d", entity.ErrPayloadTooLarge, resp.ContentLength, f.maxBytes)
	}

	// Stream with a hard cap: a lying or absent content-length still cannot
	// exceed the limit.
	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", entity.ErrFetchFailed, err)
	}
	if int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("%w: body exceeds %d bytes", entity.ErrPayloadTooLarge, f.maxBytes)
	}

	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrDecodeFailed, err)
	}

	f.logger.Debug("image fetched",
		zap.String("url", url),
		zap.String("format", format),
		zap.Int("bytes", len(body)),
	)

	return imaging.FromImage(img), nil
}
