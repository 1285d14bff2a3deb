package storage

import (
	"context"
	"fmt"
	"image/jpeg"
	"os"
	"path/filepath"

	"github.com/dmoshi/face-count-service/internal/imaging"
)

// LocalStore writes annotated frames to a directory served by a static file
// server, returning the locally reachable URL. Used in development and for
// single-node deployments without object storage.
type LocalStore struct {
	outputDir string
	baseURL   string
}

func NewLocalStore(outputDir, baseURL string) (*LocalStore, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &LocalStore{outputDir: outputDir, baseURL: baseURL}, nil
}

func (s *LocalStore) SaveAnnotated(_ context.Context, frame *imaging.Frame, objectKey, _ string) (string, error) {
	name := filepath.Base(objectKey)
	path := filepath.Join(s.outputDir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}
	defer file.Close()

	if err := jpeg.Encode(file, frame.ToRGBA(), &jpeg.Options{Quality: 90}); err != nil {
		return "", fmt.Errorf("encode jpeg: %w", err)
	}

	return fmt.Sprintf("%s/%s", s.baseURL, name), nil
}
