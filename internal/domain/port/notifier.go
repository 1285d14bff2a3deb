package port

import "context"

type FailureNotifier interface {
	NotifyFailure(ctx context.Context, jobID string, imageURL string, errorMsg string) error
}
