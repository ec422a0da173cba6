package fetch

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cenkalti/backoff/v5"
	"github.com/phuslu/log"
)

const statusTooManyRequests = 429

// rateLimited turns a 429 into a retryable error. A numeric Retry-After header
// replaces the backoff delay for the next attempt.
func rateLimited(uri string, retryAfter string) error {
	err := fmt.Errorf("%w: %s is rate limiting us", ErrUnexpectedResponse, uri)
	seconds, convErr := strconv.Atoi(strings.TrimSpace(retryAfter))
	if convErr != nil || seconds <= 0 {
		log.Warn().Str("uri", uri).Msg("server is rate limiting us, backing off")
		return err
	}
	log.Warn().Str("uri", uri).Int("retry_after", seconds).Msg("server is rate limiting us, waiting...")
	return fmt.Errorf("%w (%w)", err, backoff.RetryAfter(seconds))
}
