package providers

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBreakerManagerTripsOnConsecutiveFailures(t *testing.T) {
	m := NewBreakerManager()
	m.Register("vendor", BreakerConfig{
		Name:                "Vendor",
		MaxRequests:         1,
		Interval:            time.Minute,
		Timeout:             time.Minute,
		ConsecutiveFailures: 2,
	})

	fail := func() (interface{}, error) { return nil, errors.New("boom") }
	_, _ = m.Execute("vendor", fail)
	_, _ = m.Execute("vendor", fail)

	assert.Equal(t, "open", m.State("vendor"))

	_, err := m.Execute("vendor", func() (interface{}, error) { return "ok", nil })
	assert.Error(t, err, "open breaker rejects immediately")
}

func TestBreakerManagerPassesThroughSuccess(t *testing.T) {
	m := NewBreakerManager()
	m.Register("vendor", DefaultBreakerConfigs()["birdeye"])

	got, err := m.Execute("vendor", func() (interface{}, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, "closed", m.State("vendor"))
}

func TestBreakerManagerUnregisteredVendor(t *testing.T) {
	m := NewBreakerManager()
	_, err := m.Execute("ghost", func() (interface{}, error) { return nil, nil })
	assert.Error(t, err)
	assert.Equal(t, "unregistered", m.State("ghost"))
}

func TestDefaultBreakerConfigsCoverVendors(t *testing.T) {
	configs := DefaultBreakerConfigs()
	for _, vendor := range []string{"birdeye", "moralis", "dexscreener"} {
		assert.Contains(t, configs, vendor)
	}
}
