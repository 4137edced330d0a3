package insightly

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages_TruncateOnRuneBoundary(t *testing.T) {
	body := strings.Repeat("a", maxBodyInMessage-1) + "é more text"

	tests := []struct {
		name string
		err  error
	}{
		{"remote rejection", &RemoteRejectionError{StatusCode: 400, Body: body}},
		{"invalid response", &InvalidResponseError{Body: body}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			assert.True(t, utf8.ValidString(msg), "message is not valid UTF-8")
			assert.True(t, strings.HasSuffix(msg, strings.Repeat("a", maxBodyInMessage-1)+"..."))
		})
	}
}

func TestTruncate(t *testing.T) {
	short := "LAST_NAME is required"
	assert.Equal(t, short, truncate(short))

	exact := strings.Repeat("ü", maxBodyInMessage/2)
	assert.Equal(t, exact, truncate(exact))

	long := strings.Repeat("x", maxBodyInMessage+10)
	assert.Equal(t, strings.Repeat("x", maxBodyInMessage)+"...", truncate(long))
}
