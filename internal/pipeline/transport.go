package pipeline

import (
	"context"
	"errors"
)

var (
	// ErrNotAuthorized means the sender is not in the authorized-user set.
	ErrNotAuthorized = errors.New("sender is not authorized")
	// ErrUploadTooLarge means the chat transport rejected the artifact for its size.
	ErrUploadTooLarge = errors.New("upload rejected as too large")
	// ErrUploadFailed is any other transport failure while sending the artifact.
	ErrUploadFailed = errors.New("upload failed")
)

// ActionUploadVideo is the chat action shown while a job is in flight.
const ActionUploadVideo = "upload_video"

// Transport is the chat layer consumed by the coordinator. SendVideo must
// return an error wrapping ErrUploadTooLarge when the transport rejects the
// file for its size, so the user can be told the concrete reason.
type Transport interface {
	SendText(ctx context.Context, chatID int64, text string) (messageID int, err error)
	SendChatAction(ctx context.Context, chatID int64, action string) error
	SendVideo(ctx context.Context, chatID int64, artifactPath string) error
	DeleteMessage(ctx context.Context, chatID int64, messageID int) error
}
