package target

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

var (
	ErrInvalidTarget = errors.New("invalid target url")
	ErrOutsideTarget = errors.New("path escapes target")
)

// Target is the base URL of an exposed repository, without its .git segment.
type Target struct {
	base     url.URL
	segments []string
}

// Parse derives a Target from a raw URL. The path is cut right before the first
// ".git" segment; a URL without one is assumed to sit directly above .git.
func Parse(raw string) (*Target, error) {
	if !strings.Contains(raw, "://") && (!strings.Contains(raw, ":") || hasPort(raw)) {
		raw = "http://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTarget, err)
	}
	if u.Opaque != "" || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %s has no path structure", ErrInvalidTarget, raw)
	}

	var segments []string
	for _, s := range strings.Split(strings.Trim(u.Path, "/"), "/") {
		if s == ".git" {
			break
		}
		if s != "" {
			segments = append(segments, s)
		}
	}

	u.Path = "/" + strings.Join(segments, "/")
	u.Path = strings.TrimSuffix(u.Path, "/")
	u.RawPath = ""
	u.RawQuery = ""
	u.Fragment = ""
	return &Target{base: *u, segments: segments}, nil
}

// Segments returns the path segments of the base URL.
func (t *Target) Segments() []string {
	return append([]string(nil), t.segments...)
}

func (t *Target) String() string {
	return t.base.String()
}

// Host is used to name output directories when none is given.
func (t *Target) Host() string {
	return t.base.Hostname()
}

// URL resolves p below the base URL. Absolute URLs, rooted paths and paths that
// climb above the base are refused.
func (t *Target) URL(p string) (string, error) {
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrOutsideTarget)
	}
	if strings.HasPrefix(p, "/") || strings.Contains(p, "://") {
		return "", fmt.Errorf("%w: %s", ErrOutsideTarget, p)
	}
	clean := path.Clean(p)
	if clean == ".." || strings.HasPrefix(clean, "../") {
		return "", fmt.Errorf("%w: %s", ErrOutsideTarget, p)
	}

	u := t.base
	u.Path = strings.TrimSuffix(u.Path, "/") + "/" + p
	return u.String(), nil
}

// hasPort reports whether a scheme-less host:port/path has a numeric port after
// the first colon, as opposed to an opaque scheme:data URL.
func hasPort(raw string) bool {
	_, rest, _ := strings.Cut(raw, ":")
	return rest != "" && rest[0] >= '0' && rest[0] <= '9'
}
