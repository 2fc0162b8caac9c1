package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solgems/gemscan/internal/domain"
)

func TestCurveCacheStore(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewCurveCache(client, 15*time.Minute)

	candidates := []domain.Candidate{{Address: "mint1", Source: domain.SourceCurveDetector}}
	payload, err := json.Marshal(candidates)
	require.NoError(t, err)

	mock.ExpectSet(curveKey, payload, 15*time.Minute).SetVal("OK")
	require.NoError(t, c.Store(context.Background(), candidates))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCurveCacheLoadRetagsSource(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewCurveCache(client, 0)

	stored := []domain.Candidate{
		{Address: "mint1", Source: domain.SourceCurveDetector, BondingCurveProgress: 88},
	}
	payload, err := json.Marshal(stored)
	require.NoError(t, err)

	mock.ExpectGet(curveKey).SetVal(string(payload))

	got, err := c.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.SourceCachedCurve, got[0].Source)
	assert.Equal(t, []domain.Source{domain.SourceCachedCurve}, got[0].SeenOn)
	assert.Equal(t, 88.0, got[0].BondingCurveProgress)
}

func TestCurveCacheMissIsNotAnError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewCurveCache(client, 0)

	mock.ExpectGet(curveKey).RedisNil()

	got, err := c.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, got)
}
