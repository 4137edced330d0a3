package insightly

import (
	"fmt"
	"unicode/utf8"

	"inquiry-sync-workers/internal/common/errors"
)

const maxBodyInMessage = 500

// RemoteRejectionError is a non-2xx, non-429 answer from the API.
type RemoteRejectionError struct {
	StatusCode int
	Body       string
}

func (e *RemoteRejectionError) Error() string {
	return fmt.Sprintf("Insightly API error (status %d): %s", e.StatusCode, truncate(e.Body))
}

func (e *RemoteRejectionError) ErrorCode() errors.ErrorCode {
	return errors.ErrCodeRemoteRejection
}

// InvalidResponseError is a 2xx answer without a numeric LEAD_ID.
type InvalidResponseError struct {
	Body string
}

func (e *InvalidResponseError) Error() string {
	return fmt.Sprintf("Insightly response did not contain a numeric LEAD_ID: %s", truncate(e.Body))
}

func (e *InvalidResponseError) ErrorCode() errors.ErrorCode {
	return errors.ErrCodeInvalidResponse
}

// TransientError wraps a network failure that survived every retry. Its
// message is the underlying error's message.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return e.Err.Error() }

func (e *TransientError) Unwrap() error { return e.Err }

func (e *TransientError) ErrorCode() errors.ErrorCode {
	return errors.ErrCodeTransientHTTP
}

func truncate(s string) string {
	if len(s) <= maxBodyInMessage {
		return s
	}
	// Cut on a rune boundary; the message ends up in a TEXT column.
	n := maxBodyInMessage
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
