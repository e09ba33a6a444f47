package cache_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/google/uuid"
	"github.com/srgjo27/puja_booking/internal/adapter/cache"
	"github.com/srgjo27/puja_booking/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBreakdown() domain.MoneyBreakdown {
	return domain.MoneyBreakdown{
		DakshinaPaise:    1_000_000,
		PlatformFeePaise: 200_000,
		NetDakshinaPaise: 800_000,
		GSTPaise:         36_000,
		TotalPayoutPaise: 800_000,
		RateSheetVersion: "2026-10",
	}
}

func TestBreakdownCache_Hit(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewBreakdownCache(db, time.Hour)
	id := uuid.New()

	raw, err := json.Marshal(sampleBreakdown())
	require.NoError(t, err)
	mockRedis.ExpectGet(cache.BreakdownKey(id)).SetVal(string(raw))

	got, err := c.Get(context.Background(), id)

	require.NoError(t, err)
	if assert.NotNil(t, got) {
		assert.Equal(t, sampleBreakdown(), *got)
	}
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestBreakdownCache_Miss(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewBreakdownCache(db, time.Hour)
	id := uuid.New()

	mockRedis.ExpectGet(cache.BreakdownKey(id)).RedisNil()

	got, err := c.Get(context.Background(), id)

	assert.NoError(t, err)
	assert.Nil(t, got)
}

func TestBreakdownCache_Set(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewBreakdownCache(db, time.Hour)
	id := uuid.New()

	raw, err := json.Marshal(sampleBreakdown())
	require.NoError(t, err)
	mockRedis.ExpectSet(cache.BreakdownKey(id), raw, time.Hour).SetVal("OK")

	assert.NoError(t, c.Set(context.Background(), id, sampleBreakdown()))
	assert.NoError(t, mockRedis.ExpectationsWereMet())
}

func TestBreakdownCache_Error(t *testing.T) {
	db, mockRedis := redismock.NewClientMock()
	c := cache.NewBreakdownCache(db, 0)
	id := uuid.New()

	mockRedis.ExpectGet(cache.BreakdownKey(id)).SetErr(errors.New("timeout"))

	_, err := c.Get(context.Background(), id)
	assert.Error(t, err)
}
