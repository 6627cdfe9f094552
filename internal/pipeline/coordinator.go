// Package pipeline orchestrates one resolution job end to end: authorization
// check, normalize, locate, fetch, upload, cleanup. Every stage outcome is an
// explicit error value; all errors past the authorization check are recovered
// into a terminal Rejected or Failed status with a user-facing reply, never a
// crash.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"reelbot"
	"reelbot/internal/store"
)

const DefaultLocateConcurrency = 2

// Locator resolves a normalized page URL into a direct media URL.
type Locator interface {
	Locate(ctx context.Context, pageURL string) (string, error)
}

// Fetcher downloads a media URL into a temporary artifact, returning its path.
type Fetcher interface {
	Fetch(ctx context.Context, mediaURL string) (string, error)
}

type Coordinator struct {
	store      store.Store
	normalizer reelbot.Normalizer
	locator    Locator
	fetcher    Fetcher
	transport  Transport

	// Each in-flight Locating stage holds a browser context, which is
	// expensive; locateSem bounds how many exist at once.
	locateSem chan struct{}
}

func NewCoordinator(s store.Store, normalizer reelbot.Normalizer, locator Locator, fetcher Fetcher, transport Transport, locateConcurrency int) *Coordinator {
	if locateConcurrency <= 0 {
		locateConcurrency = DefaultLocateConcurrency
	}
	return &Coordinator{
		store:      s,
		normalizer: normalizer,
		locator:    locator,
		fetcher:    fetcher,
		transport:  transport,
		locateSem:  make(chan struct{}, locateConcurrency),
	}
}

// Handle runs a single inbound link to a terminal state and returns the
// finished job. Safe to call from concurrent goroutines: each job owns its
// own browser context and artifact, and only the access store is shared.
func (c *Coordinator) Handle(ctx context.Context, chatID int64, sender, text string) *Job {
	job := NewJob(chatID, sender, text)
	logger := reelbot.Logger(ctx).With(
		zap.String("job_id", string(job.ID)),
		zap.String("sender", sender),
	)
	ctx = reelbot.WithLogger(ctx, logger)

	// Artifact cleanup must hold on every exit path, including panics out of
	// the transport layer. removeArtifact is idempotent, so the normal
	// cleanup stage below makes this a no-op.
	defer c.removeArtifact(ctx, job)

	// Authorization is checked exactly once, before any resource is allocated
	// or network work performed.
	authorized, err := c.store.IsAuthorized(sender)
	if err != nil {
		logger.Error("authorization check failed", zap.Error(err))
	}
	if !authorized {
		c.reject(ctx, job, ErrNotAuthorized)
		return job
	}
	if err := c.store.LogAccess(sender); err != nil {
		logger.Warn("failed to record access", zap.Error(err))
	}

	job.advance(StatusNormalizing)
	normalized, err := c.normalizer.Normalize(text)
	if err != nil {
		c.reject(ctx, job, err)
		return job
	}
	job.NormalizedURL = normalized

	noticeID := c.notifyDownloading(ctx, job)
	defer c.deleteNotice(ctx, job, noticeID)

	job.advance(StatusLocating)
	mediaURL, err := c.locate(ctx, normalized)
	if err != nil {
		c.fail(ctx, job, err)
		return job
	}
	job.MediaURL = mediaURL

	job.advance(StatusFetching)
	artifact, err := c.fetcher.Fetch(ctx, mediaURL)
	if err != nil {
		// The fetcher retains no partial file on failure.
		c.fail(ctx, job, err)
		return job
	}
	job.ArtifactPath = artifact

	job.advance(StatusUploading)
	uploadErr := c.transport.SendVideo(ctx, job.ChatID, artifact)
	if uploadErr != nil && !errors.Is(uploadErr, ErrUploadTooLarge) {
		uploadErr = fmt.Errorf("%w: %w", ErrUploadFailed, uploadErr)
	}

	job.advance(StatusCleanup)
	c.removeArtifact(ctx, job)

	if uploadErr != nil {
		c.fail(ctx, job, uploadErr)
		return job
	}
	job.finish(StatusDelivered, nil)
	logger.Info("reel delivered", zap.String("media_url", job.MediaURL))
	return job
}

// locate runs the locating stage under the concurrency cap. Waiting for a
// slot respects job cancellation.
func (c *Coordinator) locate(ctx context.Context, pageURL string) (string, error) {
	select {
	case c.locateSem <- struct{}{}:
		defer func() { <-c.locateSem }()
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return c.locator.Locate(ctx, pageURL)
}

// notifyDownloading tells the sender work has started. Returns the notice
// message ID so it can be deleted once the job finishes, or 0 if sending it
// failed (which never fails the job).
func (c *Coordinator) notifyDownloading(ctx context.Context, job *Job) int {
	logger := reelbot.Logger(ctx)
	if err := c.transport.SendChatAction(ctx, job.ChatID, ActionUploadVideo); err != nil {
		logger.Debug("failed to send chat action", zap.Error(err))
	}
	noticeID, err := c.transport.SendText(ctx, job.ChatID, MsgDownloading)
	if err != nil {
		logger.Warn("failed to send progress notice", zap.Error(err))
		return 0
	}
	return noticeID
}

func (c *Coordinator) deleteNotice(ctx context.Context, job *Job, noticeID int) {
	if noticeID == 0 {
		return
	}
	if err := c.transport.DeleteMessage(ctx, job.ChatID, noticeID); err != nil {
		reelbot.Logger(ctx).Debug("failed to delete progress notice", zap.Error(err))
	}
}

// removeArtifact deletes the job's temporary artifact if it still exists.
// Failures are logged, never surfaced to the sender, and never block the
// response already sent.
func (c *Coordinator) removeArtifact(ctx context.Context, job *Job) {
	if job.ArtifactPath == "" {
		return
	}
	if err := os.Remove(job.ArtifactPath); err != nil && !os.IsNotExist(err) {
		reelbot.Logger(ctx).Warn("failed to delete temporary artifact",
			zap.String("path", job.ArtifactPath), zap.Error(err))
	}
	job.ArtifactPath = ""
}

func (c *Coordinator) reject(ctx context.Context, job *Job, err error) {
	job.finish(StatusRejected, err)
	c.report(ctx, job)
}

func (c *Coordinator) fail(ctx context.Context, job *Job, err error) {
	job.finish(StatusFailed, err)
	c.report(ctx, job)
}

func (c *Coordinator) report(ctx context.Context, job *Job) {
	logger := reelbot.Logger(ctx)
	logger.Info("job finished",
		zap.String("status", string(job.Status)),
		zap.Error(job.Err),
	)
	if _, err := c.transport.SendText(ctx, job.ChatID, MessageFor(job.Err)); err != nil {
		logger.Warn("failed to send outcome reply", zap.Error(err))
	}
}
