package pipeline

import (
	"errors"

	"reelbot"
	"reelbot/internal/fetch"
	"reelbot/internal/locate"
)

// User-facing reply texts for job outcomes.
const (
	MsgUnauthorized = "🔒 Sorry, you don't have access to this bot.\n\n" +
		"Ask the administrator for permission to use it."
	MsgNotALink = "🤔 That doesn't look like an Instagram reel link. " +
		"Send me a link to an Instagram reel and I'll fetch the video for you."
	MsgUnsupportedLink = "⚠️ Please send a link to an Instagram reel " +
		"(e.g. https://www.instagram.com/reel/YourReelID/).\n" +
		"Links to other kinds of posts are not supported."
	MsgDownloading     = "Downloading Instagram reel..."
	MsgPageLoadTimeout = "The reel page took too long to load. Please try again."
	MsgMediaNotFound   = "Couldn't find a video at that link."
	MsgFetchFailed     = "Couldn't download the video from the mirror."
	MsgEmptyArtifact   = "Error: the downloaded file turned out to be empty."
	MsgUploadTooLarge  = "The video is too large to send back through this chat."
	MsgUploadFailed    = "Couldn't send the video. Please try again later."
)

// MessageFor maps a job's terminal error to the reply text the sender sees.
func MessageFor(err error) string {
	var statusErr *fetch.StatusError
	switch {
	case errors.Is(err, ErrNotAuthorized):
		return MsgUnauthorized
	case errors.Is(err, reelbot.ErrNotALink):
		return MsgNotALink
	case errors.Is(err, reelbot.ErrUnsupportedLink):
		return MsgUnsupportedLink
	case errors.Is(err, locate.ErrPageLoadTimeout):
		return MsgPageLoadTimeout
	case errors.Is(err, locate.ErrMediaNotFound):
		return MsgMediaNotFound
	case errors.Is(err, fetch.ErrEmptyArtifact):
		return MsgEmptyArtifact
	case errors.As(err, &statusErr):
		return MsgFetchFailed
	case errors.Is(err, ErrUploadTooLarge):
		return MsgUploadTooLarge
	case errors.Is(err, ErrUploadFailed):
		return MsgUploadFailed
	default:
		return MsgFetchFailed
	}
}
