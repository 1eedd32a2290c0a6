// Package sink defines where uploaded files go.
package sink

import (
	"context"
	"dropwatch/internal/model"
)

// Sink delivers an in-memory attachment to a chat. Each method makes one
// delivery attempt.
type Sink interface {
	SendPhoto(ctx context.Context, dst model.Destination, file model.Attachment) error
	SendVideo(ctx context.Context, dst model.Destination, file model.Attachment) error
	SendDocument(ctx context.Context, dst model.Destination, file model.Attachment) error
}
