package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"alumnet/internal/gateway/ports/api"
)

// timeoutError имитирует сетевую ошибку с превышением таймаута.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name            string
		err             error
		expectedKind    Kind
		expectRecovered bool
	}{
		{
			name:            "nil error is unknown and not recoverable",
			err:             nil,
			expectedKind:    KindUnknown,
			expectRecovered: false,
		},
		{
			name:            "context deadline exceeded is timeout",
			err:             context.DeadlineExceeded,
			expectedKind:    KindTimeout,
			expectRecovered: true,
		},
		{
			name:            "net.Error with Timeout is timeout",
			err:             timeoutError{},
			expectedKind:    KindTimeout,
			expectRecovered: true,
		},
		{
			name:            "wrapped deadline is still timeout",
			err:             &net.OpError{Op: "dial", Err: context.DeadlineExceeded},
			expectedKind:    KindTimeout,
			expectRecovered: true,
		},
		{
			name:            "connection refused is network",
			err:             &net.OpError{Op: "dial", Err: errors.New("connection refused")},
			expectedKind:    KindNetwork,
			expectRecovered: true,
		},
		{
			name:            "no response marker is network",
			err:             ErrNoResponse,
			expectedKind:    KindNetwork,
			expectRecovered: true,
		},
		{
			name:            "HTTP 500 is server",
			err:             &api.Error{Status: http.StatusInternalServerError},
			expectedKind:    KindServer,
			expectRecovered: true,
		},
		{
			name:            "HTTP 503 is server",
			err:             &api.Error{Status: http.StatusServiceUnavailable},
			expectedKind:    KindServer,
			expectRecovered: true,
		},
		{
			name:            "HTTP 401 is terminal",
			err:             &api.Error{Status: http.StatusUnauthorized},
			expectedKind:    KindAuthTerminal,
			expectRecovered: false,
		},
		{
			name:            "HTTP 403 is terminal",
			err:             &api.Error{Status: http.StatusForbidden},
			expectedKind:    KindAuthTerminal,
			expectRecovered: false,
		},
		{
			name:            "invalid refresh token code is terminal",
			err:             &api.Error{Status: http.StatusBadRequest, Code: "INVALID_REFRESH_TOKEN"},
			expectedKind:    KindAuthTerminal,
			expectRecovered: false,
		},
		{
			name:            "token expired code is terminal",
			err:             &api.Error{Status: http.StatusBadRequest, Code: "TOKEN_EXPIRED"},
			expectedKind:    KindAuthTerminal,
			expectRecovered: false,
		},
		{
			name:            "refresh token missing code is terminal",
			err:             &api.Error{Status: http.StatusBadRequest, Code: "REFRESH_TOKEN_MISSING"},
			expectedKind:    KindAuthTerminal,
			expectRecovered: false,
		},
		{
			name:            "unrecognized 4xx code is unknown, fails closed",
			err:             &api.Error{Status: http.StatusBadRequest, Code: "RATE_LIMITED"},
			expectedKind:    KindUnknown,
			expectRecovered: false,
		},
		{
			name:            "plain error is unknown",
			err:             errors.New("something odd"),
			expectedKind:    KindUnknown,
			expectRecovered: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			class := Classify(tt.err)
			assert.Equal(t, tt.expectedKind, class.Kind)
			assert.Equal(t, tt.expectRecovered, class.Recoverable)
		})
	}
}

func TestClassifyUnwrapsErrorChains(t *testing.T) {
	wrapped := fmt.Errorf("refresh call: %w", &api.Error{Status: http.StatusUnauthorized})
	class := Classify(wrapped)
	assert.Equal(t, KindAuthTerminal, class.Kind)
	assert.False(t, class.Recoverable)

	wrappedTimeout := fmt.Errorf("verify call: %w", &net.OpError{Op: "read", Err: timeoutError{}})
	assert.Equal(t, KindTimeout, Classify(wrappedTimeout).Kind)
}
