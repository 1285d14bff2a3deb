package port

import (
	"context"

	"github.com/dmoshi/face-count-service/internal/domain/entity"
)

// Relay delivers a one-shot completion notification over the persistent
// outbound connection. A failed send is reported, not retried.
type Relay interface {
	Send(ctx context.Context, msg entity.RelayMessage) error
}
