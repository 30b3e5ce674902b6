//go:build integration

package postgres

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	postgrescontainer "github.com/testcontainers/testcontainers-go/modules/postgres"

	"example.com/reconcile/internal/domain"
	"example.com/reconcile/internal/store"
)

func TestRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fitness"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	repo := NewRepository(pool)

	userID := uuid.NewString()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	dist := 10.2
	gain := 320.0

	result, err := repo.UpsertMany(ctx, userID, []domain.Record{
		{
			ActivityDate:   day,
			ExternalID:     "garmin-1",
			Title:          "Long run",
			Source:         "garmin",
			DistanceKM:     &dist,
			ElevationGainM: &gain,
			Extra: map[string]domain.Value{
				"calories": domain.IntValue(900),
			},
		},
		{
			ActivityDate: day,
			Title:        "Second session",
			Source:       "garmin",
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, result.Attempted)

	records, err := repo.FindByDay(ctx, userID, day)
	require.NoError(t, err)
	require.Len(t, records, 2)

	var longRun *domain.StoreRecord
	for i := range records {
		if records[i].ExternalID == "garmin-1" {
			longRun = &records[i]
		}
	}
	require.NotNil(t, longRun)
	require.NotNil(t, longRun.DistanceKM)
	require.InDelta(t, 10.2, *longRun.DistanceKM, 1e-9)
	require.Equal(t, int64(900), longRun.Extra["calories"].Int)

	// Re-importing the same external id must not create a second row.
	newDist := 10.3
	_, err = repo.UpsertMany(ctx, userID, []domain.Record{{
		ActivityDate: day,
		ExternalID:   "garmin-1",
		Title:        "Long run (reimport)",
		Source:       "garmin",
		DistanceKM:   &newDist,
	}})
	require.NoError(t, err)

	records, err = repo.FindByDay(ctx, userID, day)
	require.NoError(t, err)
	require.Len(t, records, 2)

	// Partial update patches only named fields.
	duration := 112.5
	err = repo.UpdateByID(ctx, userID, longRun.ID, map[string]any{
		domain.FieldDurationMin: duration,
	})
	require.NoError(t, err)

	updated, err := repo.GetByID(ctx, userID, longRun.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.DurationMin)
	require.InDelta(t, 112.5, *updated.DurationMin, 1e-9)
	require.Equal(t, "garmin-1", updated.ExternalID)
}

func TestRepositoryUserIsolation(t *testing.T) {
	ctx := context.Background()

	pg, err := postgrescontainer.RunContainer(ctx,
		postgrescontainer.WithDatabase("fitness"),
		postgrescontainer.WithUsername("platform"),
		postgrescontainer.WithPassword("platform"),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = pg.Terminate(ctx) })

	connStr, err := pg.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	require.NoError(t, waitForDatabase(ctx, connStr))

	runMigrations(t, ctx, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	repo := NewRepository(pool)

	owner := uuid.NewString()
	other := uuid.NewString()
	day := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	_, err = repo.UpsertMany(ctx, owner, []domain.Record{{
		ActivityDate: day,
		Title:        "Private run",
		Source:       "generic",
	}})
	require.NoError(t, err)

	records, err := repo.FindByDay(ctx, owner, day)
	require.NoError(t, err)
	require.Len(t, records, 1)

	foreign, err := repo.FindByDay(ctx, other, day)
	require.NoError(t, err)
	require.Empty(t, foreign, "RLS should hide other users' records")

	_, err = repo.GetByID(ctx, other, records[0].ID)
	require.ErrorIs(t, err, store.ErrRecordNotFound)
}

func runMigrations(t *testing.T, ctx context.Context, connStr string) {
	files := []string{
		"../../../db/postgres/migrations/0001_init.up.sql",
	}

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	defer pool.Close()

	for _, rel := range files {
		path := resolvePath(t, rel)
		contents, readErr := os.ReadFile(path)
		require.NoError(t, readErr)

		_, execErr := pool.Exec(ctx, string(contents))
		require.NoError(t, execErr)
	}
}

func resolvePath(t *testing.T, rel string) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	require.True(t, ok)
	return filepath.Join(filepath.Dir(file), rel)
}

func waitForDatabase(ctx context.Context, connStr string) error {
	deadline := time.Now().Add(30 * time.Second)
	for {
		pool, err := pgxpool.New(ctx, connStr)
		if err == nil {
			err = pool.Ping(ctx)
			pool.Close()
			if err == nil {
				return nil
			}
		}
		if time.Now().After(deadline) {
			return err
		}
		time.Sleep(time.Second)
	}
}
