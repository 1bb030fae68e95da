package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiters_EvictsIdleClients(t *testing.T) {
	now := time.Date(2026, time.October, 15, 9, 0, 0, 0, time.UTC)
	limiters := newIPLimiters(60, 5)
	limiters.now = func() time.Time { return now }
	limiters.lastSweep = now

	first := limiters.get("10.0.0.1")
	limiters.get("10.0.0.2")
	assert.Len(t, limiters.limiters, 2)

	now = now.Add(limiterIdleTTL / 2)
	assert.Same(t, first, limiters.get("10.0.0.1"), "active client keeps its bucket")

	now = now.Add(limiterIdleTTL / 2)
	limiters.get("10.0.0.3")
	assert.Len(t, limiters.limiters, 2)
	assert.Contains(t, limiters.limiters, "10.0.0.1")
	assert.NotContains(t, limiters.limiters, "10.0.0.2")
}

func TestIPLimiters_IdleTTLCoversRefill(t *testing.T) {
	assert.Equal(t, limiterIdleTTL, newIPLimiters(60, 5).idleTTL)
	assert.Equal(t, 20*time.Minute, newIPLimiters(1, 20).idleTTL)
	assert.Equal(t, limiterIdleTTL, newIPLimiters(0, 5).idleTTL)
}
