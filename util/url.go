package util

import (
	"errors"
	"net/url"
	"path"
	"strings"
)

var (
	ErrNoFilename = errors.New("cannot extract valid filename")
)

// FilenameFromURL returns the last path element of the URL, for deriving a
// sensible extension for a downloaded artifact.
func FilenameFromURL(url *url.URL) (string, error) {
	if url == nil {
		return "", ErrNoFilename
	}
	p := strings.Trim(url.Path, "/")
	if p == "" {
		return "", ErrNoFilename
	}
	pathElements := strings.Split(p, "/")
	filename := pathElements[len(pathElements)-1]
	if filename == "" {
		return "", ErrNoFilename
	}
	// Don't allow "filenames" that are just ".", "..", etc.
	if strings.ReplaceAll(filename, ".", "") == "" {
		return "", ErrNoFilename
	}
	return filename, nil
}

// ExtFromURLString returns the file extension (including the dot) of the last
// path element of the URL, or the empty string if there is none.
func ExtFromURLString(s string) string {
	parsedURL, err := url.Parse(s)
	if err != nil {
		return ""
	}
	filename, err := FilenameFromURL(parsedURL)
	if err != nil {
		return ""
	}
	return path.Ext(filename)
}
