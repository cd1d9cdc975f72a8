package health

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckReadiness_WorstStatusWins(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterReadinessCheck("service", SimpleCheck("service"))
	hc.RegisterReadinessCheck("cache", func() Check {
		return Check{Name: "cache", Status: StatusDegraded}
	})

	resp := hc.CheckReadiness()
	assert.Equal(t, StatusDegraded, resp.Status)

	hc.RegisterReadinessCheck("database", func() Check {
		return Check{Name: "database", Status: StatusUnhealthy, Message: "down"}
	})

	resp = hc.CheckReadiness()
	assert.Equal(t, StatusUnhealthy, resp.Status)
	require.Len(t, resp.Checks, 3)
	assert.Equal(t, "down", resp.Checks["database"].Message)
}

func TestCheckLiveness_EmptyIsHealthy(t *testing.T) {
	hc := NewHealthChecker()
	resp := hc.CheckLiveness()
	assert.Equal(t, StatusHealthy, resp.Status)
	assert.Empty(t, resp.Checks)
}

func TestLivenessAndReadinessAreSeparate(t *testing.T) {
	hc := NewHealthChecker()
	hc.RegisterReadinessCheck("database", func() Check {
		return Check{Name: "database", Status: StatusUnhealthy}
	})
	hc.RegisterLivenessCheck("service", SimpleCheck("service"))

	assert.Equal(t, StatusUnhealthy, hc.CheckReadiness().Status)
	assert.Equal(t, StatusHealthy, hc.CheckLiveness().Status)
}

func TestDatabaseCheck(t *testing.T) {
	up := DatabaseCheck(func() error { return nil })()
	assert.Equal(t, StatusHealthy, up.Status)

	down := DatabaseCheck(func() error { return errors.New("connection refused") })()
	assert.Equal(t, StatusUnhealthy, down.Status)
	assert.Contains(t, down.Message, "connection refused")
}
