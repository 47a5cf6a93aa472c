// Package transcript resolves video references for the transcript sources
// in its subpackages.
package transcript

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"videorag/internal/domain"
)

var videoIDRe = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)

var youtubeHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
	"youtu.be":                 true,
}

// ParseVideoID extracts the video id from a YouTube URL or returns ref
// unchanged when it already is a bare id.
func ParseVideoID(ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", fmt.Errorf("%w: empty reference", domain.ErrInvalidSource)
	}
	if videoIDRe.MatchString(ref) {
		return ref, nil
	}
	u, err := url.Parse(ref)
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidSource, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: %q is not an http(s) URL", domain.ErrInvalidSource, ref)
	}
	host := strings.ToLower(u.Hostname())
	if !youtubeHosts[host] {
		return "", fmt.Errorf("%w: unsupported host %q", domain.ErrInvalidSource, host)
	}

	var id string
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	switch {
	case host == "youtu.be":
		id = segments[0]
	case u.Path == "/watch":
		id = u.Query().Get("v")
	case len(segments) >= 2 && isIDPrefix(segments[0]):
		id = segments[1]
	}
	if !videoIDRe.MatchString(id) {
		return "", fmt.Errorf("%w: no video id in %q", domain.ErrInvalidSource, ref)
	}
	return id, nil
}

func isIDPrefix(s string) bool {
	switch s {
	case "shorts", "embed", "live", "v":
		return true
	}
	return false
}
