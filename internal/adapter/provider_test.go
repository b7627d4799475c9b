package adapter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRPCProvider_Failover(t *testing.T) {
	p, err := NewRPCProvider("https://primary.example", "https://secondary.example")
	require.NoError(t, err)

	url, err := p.GetCurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://primary.example", url)

	require.NoError(t, p.Failover())
	url, err = p.GetCurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://secondary.example", url)

	// Failover flips back to primary
	require.NoError(t, p.Failover())
	url, err = p.GetCurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://primary.example", url)
}

func TestRPCProvider_FailoverWithoutSecondary(t *testing.T) {
	p, err := NewRPCProvider("https://primary.example", "")
	require.NoError(t, err)

	assert.Error(t, p.Failover())
}

func TestRPCProvider_RequiresPrimary(t *testing.T) {
	_, err := NewRPCProvider("", "https://secondary.example")
	assert.Error(t, err)
}

func TestRPCProvider_HealthTracking(t *testing.T) {
	p, err := NewRPCProvider("https://primary.example", "https://secondary.example")
	require.NoError(t, err)

	assert.True(t, p.IsHealthy())

	for i := 0; i < 5; i++ {
		p.RecordFailure(errors.New("connection refused"))
	}
	assert.False(t, p.IsHealthy(), "5 consecutive failures should mark provider unhealthy")

	p.RecordSuccess(50 * time.Millisecond)
	assert.True(t, p.IsHealthy(), "a success resets consecutive failures")

	health := p.GetHealth()
	assert.Equal(t, int64(6), health.TotalRequests)
	assert.Equal(t, int64(5), health.FailedReqs)
	assert.Equal(t, int64(1), health.SuccessfulReqs)
}

func TestRPCProvider_Reset(t *testing.T) {
	p, err := NewRPCProvider("https://primary.example", "https://secondary.example")
	require.NoError(t, err)

	require.NoError(t, p.Failover())
	p.Reset()

	url, err := p.GetCurrentURL()
	require.NoError(t, err)
	assert.Equal(t, "https://primary.example", url)
}
