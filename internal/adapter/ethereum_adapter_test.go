package adapter

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyProviderError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{
			name: "rate limit by message",
			err:  errors.New("rate limit exceeded for key"),
			want: ErrProviderRateLimit,
		},
		{
			name: "rate limit by status code",
			err:  errors.New("429 Too Many Requests"),
			want: ErrProviderRateLimit,
		},
		{
			name: "timeout",
			err:  errors.New("i/o timeout reading response"),
			want: ErrProviderTimeout,
		},
		{
			name: "context deadline",
			err:  errors.New("context deadline exceeded"),
			want: ErrProviderTimeout,
		},
		{
			name: "connection refused",
			err:  errors.New("dial tcp 127.0.0.1:8545: connect: connection refused"),
			want: ErrProviderUnavailable,
		},
		{
			name: "dns failure",
			err:  errors.New("lookup rpc.example: no such host"),
			want: ErrProviderUnavailable,
		},
		{
			name: "revert is not a provider fault",
			err:  errors.New("execution reverted"),
			want: nil,
		},
		{
			name: "nil",
			err:  nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyProviderError(tt.err))
		})
	}
}

func TestClassifiedErrorsMatchSentinels(t *testing.T) {
	cause := errors.New("429 Too Many Requests")
	sentinel := classifyProviderError(cause)

	wrapped := fmt.Errorf("%w: %v", sentinel, cause)
	assert.True(t, errors.Is(wrapped, ErrProviderRateLimit))
	assert.False(t, errors.Is(wrapped, ErrProviderTimeout))
}
