package fetch

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

var (
	ErrNotUTF8            = errors.New("response body is not valid utf-8")
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// Response is a fully read HTTP response. Redirects are never followed, so a 3xx
// status arrives here as is.
type Response struct {
	URL           string
	StatusCode    int
	ContentType   string
	ContentLength int
	Location      string
	Body          []byte
}

func (r *Response) IsHTML() bool {
	mediaType, _, _ := strings.Cut(r.ContentType, ";")
	return strings.EqualFold(strings.TrimSpace(mediaType), "text/html")
}

// IsRedirect reports the statuses that servers use to point at a directory index.
func (r *Response) IsRedirect() bool {
	return r.StatusCode == 301 || r.StatusCode == 302
}

// Verify checks that r carries a real file: status 200, a non-zero length and a
// content type other than HTML.
func (r *Response) Verify() error {
	if r.StatusCode != 200 {
		return fmt.Errorf("%w: %s responded with status code %d", ErrUnexpectedResponse, r.URL, r.StatusCode)
	}
	if r.ContentLength == 0 || len(r.Body) == 0 {
		return fmt.Errorf("%w: %s responded with an empty body", ErrUnexpectedResponse, r.URL)
	}
	if r.IsHTML() {
		return fmt.Errorf("%w: %s responded with html", ErrUnexpectedResponse, r.URL)
	}
	return nil
}

func (r *Response) Text() (string, error) {
	if !utf8.Valid(r.Body) {
		return "", fmt.Errorf("%w: %s", ErrNotUTF8, r.URL)
	}
	return string(r.Body), nil
}
