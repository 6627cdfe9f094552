package reelbot

import (
	"errors"
	"strings"
	"unicode"
)

var (
	// ErrNotALink means the message text contains no Instagram link at all.
	ErrNotALink = errors.New("no reel link found in message")
	// ErrUnsupportedLink means the message links to Instagram, but not to a reel.
	ErrUnsupportedLink = errors.New("link is not a reel")
)

const (
	instagramHost  = "instagram.com"
	reelPathPrefix = instagramHost + "/reel/"

	// DefaultMirrorHost serves reel pages without requiring authenticated API access.
	DefaultMirrorHost = "ddinstagram.com"
)

// Punctuation that commonly trails a pasted link in prose.
const trailingJunk = `.,!?;:)]}>"'`

// A Normalizer validates message text and rewrites any reel link it contains
// into the canonical mirror-host URL the locator expects.
type Normalizer struct {
	MirrorHost string
}

func NewNormalizer(mirrorHost string) Normalizer {
	if mirrorHost == "" {
		mirrorHost = DefaultMirrorHost
	}
	return Normalizer{MirrorHost: mirrorHost}
}

// Normalize extracts the first reel link from raw message text and rewrites it
// against the mirror host, stripping any query string.
//
// Accepted link forms (scheme and "www." optional, surrounding prose tolerated):
//
//	http(s?)://(www.)?instagram.com/reel/{REEL_ID}(/)?(?query)?
//
// Returns ErrUnsupportedLink for any other instagram.com link, and ErrNotALink
// when the text contains no instagram.com link at all.
func (n Normalizer) Normalize(text string) (string, error) {
	token, err := extractLink(text)
	if err != nil {
		return "", err
	}
	rest := strings.TrimPrefix(token, reelPathPrefix)
	if i := strings.IndexAny(rest, "?#"); i >= 0 {
		rest = rest[:i]
	}
	reelID := strings.Trim(rest, "/")
	if reelID == "" || strings.Contains(reelID, "/") {
		return "", ErrUnsupportedLink
	}
	return "https://" + n.MirrorHost + "/reel/" + reelID, nil
}

// extractLink finds the first instagram.com substring, takes everything up to
// the next whitespace, and trims trailing punctuation. The returned token
// always starts with "instagram.com/".
func extractLink(text string) (string, error) {
	idx := strings.Index(text, instagramHost)
	if idx == -1 {
		return "", ErrNotALink
	}
	token := text[idx:]
	if end := strings.IndexFunc(token, unicode.IsSpace); end >= 0 {
		token = token[:end]
	}
	token = strings.TrimRight(token, trailingJunk)
	if !strings.HasPrefix(token, instagramHost+"/") {
		token += "/"
	}
	if !strings.HasPrefix(token, reelPathPrefix) {
		return "", ErrUnsupportedLink
	}
	return token, nil
}
