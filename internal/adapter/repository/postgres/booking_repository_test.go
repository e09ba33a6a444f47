package postgres_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/srgjo27/puja_booking/internal/adapter/repository/postgres"
	"github.com/srgjo27/puja_booking/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, postgres.EnsureSchema(context.Background(), db))
	return db
}

func TestBookingRepository_RoundTripAndCAS(t *testing.T) {
	db := openTestDB(t)
	repo := postgres.NewBookingRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	b, err := domain.NewBooking(domain.NewBookingParams{
		CustomerID:  uuid.New(),
		EventDate:   now.Add(96 * time.Hour),
		Venue:       domain.Venue{City: "Mathura", Address: "Vishram Ghat"},
		Commercials: domain.Commercials{DakshinaPaise: 1_100_000, SamagriChoice: domain.SamagriPlatformList, SamagriPaise: 200_000},
	}, now, 6*time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, b))

	got, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Commercials, got.Commercials)
	assert.Equal(t, b.Venue, got.Venue)
	assert.Len(t, got.History, 1)
	assert.Nil(t, got.AgentID)

	agent := domain.Actor{ID: uuid.New(), Role: domain.RoleAgent}
	require.NoError(t, got.Accept(agent, domain.RateSheet{Version: "v1", PlatformCommissionPercent: 20, GSTPercent: 18}, now))
	require.NoError(t, repo.Update(ctx, got, 1))
	assert.Equal(t, int64(2), got.Version)

	stale, err := repo.GetByID(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, stale.Status)
	assert.Len(t, stale.History, 2)
	require.NotNil(t, stale.Rates)
	assert.Equal(t, "v1", stale.Rates.Version)
	assert.Equal(t, agent.ID, *stale.AgentID)

	assert.ErrorIs(t, repo.Update(ctx, stale, 1), domain.ErrVersionConflict)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestBookingRepository_DuplicateNumber(t *testing.T) {
	db := openTestDB(t)
	repo := postgres.NewBookingRepository(db)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	params := domain.NewBookingParams{
		CustomerID:  uuid.New(),
		EventDate:   now.Add(96 * time.Hour),
		Venue:       domain.Venue{City: "Ujjain"},
		Commercials: domain.Commercials{DakshinaPaise: 500_000, SamagriChoice: domain.SamagriAgentPackage},
	}
	first, err := domain.NewBooking(params, now, 6*time.Hour)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, first))

	second, err := domain.NewBooking(params, now, 6*time.Hour)
	require.NoError(t, err)
	second.Number = first.Number

	assert.ErrorIs(t, repo.Create(ctx, second), domain.ErrDuplicateBooking)
}
