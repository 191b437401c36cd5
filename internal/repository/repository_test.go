package repository

import (
	"context"
	"testing"
	"time"

	"cosmicwatch/internal/clients"
	"cosmicwatch/internal/models"
	"cosmicwatch/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(database.SQLiteDSN(":memory:")), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func float64Ptr(v float64) *float64 {
	return &v
}

func day(s string) time.Time {
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func feedAsteroid(id, name string, hazardous bool, approaches ...clients.FeedApproach) clients.FeedAsteroid {
	return clients.FeedAsteroid{
		ID:                   id,
		Name:                 name,
		AbsoluteMagnitude:    float64Ptr(21.5),
		IsHazardous:          hazardous,
		EstimatedDiameterMin: float64Ptr(0.1),
		EstimatedDiameterMax: float64Ptr(0.3),
		NasaJPLURL:           "https://ssd.jpl.nasa.gov/tools/sbdb_lookup.html#/?sstr=" + id,
		Approaches:           approaches,
	}
}

func feedApproach(date string, missKm float64) clients.FeedApproach {
	return clients.FeedApproach{
		ApproachDate:      day(date),
		VelocityKmh:       float64Ptr(50000),
		MissDistanceKm:    float64Ptr(missKm),
		MissDistanceLunar: float64Ptr(missKm / 384400),
		OrbitingBody:      "Earth",
	}
}

func TestAsteroidRepository_UpsertOverwritesFields(t *testing.T) {
	db := setupTestDB(t)
	repo := NewAsteroidRepository(db)
	ctx := context.Background()

	first, err := repo.Upsert(ctx, &models.Asteroid{ID: "3542519", Name: "(2010 PK9)", IsHazardous: false})
	require.NoError(t, err)
	assert.Equal(t, "(2010 PK9)", first.Name)

	second, err := repo.Upsert(ctx, &models.Asteroid{
		ID:                   "3542519",
		Name:                 "(2010 PK9) renamed",
		IsHazardous:          true,
		EstimatedDiameterMax: float64Ptr(0.5),
	})
	require.NoError(t, err)
	assert.Equal(t, "(2010 PK9) renamed", second.Name)
	assert.True(t, second.IsHazardous)
	require.NotNil(t, second.EstimatedDiameterMax)
	assert.InDelta(t, 0.5, *second.EstimatedDiameterMax, 1e-9)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestCloseApproachRepository_UpsertIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	asteroids := NewAsteroidRepository(db)
	approaches := NewCloseApproachRepository(db)
	ctx := context.Background()

	_, err := asteroids.Upsert(ctx, &models.Asteroid{ID: "2000433", Name: "433 Eros"})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := approaches.Upsert(ctx, "2000433", &models.CloseApproach{
			ApproachDate:   day("2026-10-20"),
			MissDistanceKm: float64Ptr(float64(1000 * (i + 1))),
		})
		require.NoError(t, err)
	}

	eros, err := asteroids.GetByID(ctx, "2000433")
	require.NoError(t, err)
	stored := eros.CloseApproaches
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].MissDistanceKm)
	assert.InDelta(t, 3000, *stored[0].MissDistanceKm, 1e-9)
	assert.Equal(t, models.DefaultOrbitingBody, stored[0].OrbitingBody)
}

func TestCloseApproachRepository_GetUpcomingLoadsAsteroid(t *testing.T) {
	db := setupTestDB(t)
	ingest := NewIngestRepository(db)
	approaches := NewCloseApproachRepository(db)
	ctx := context.Background()

	today := clients.TruncateDay(time.Now().UTC())
	soon := feedApproach(today.AddDate(0, 0, 2).Format("2006-01-02"), 500000)
	later := feedApproach(today.AddDate(0, 0, 20).Format("2006-01-02"), 500000)
	past := feedApproach(today.AddDate(0, 0, -2).Format("2006-01-02"), 500000)

	_, err := ingest.SaveFeedAsteroid(ctx, feedAsteroid("2000433", "433 Eros (A898 PA)", true, soon, later, past))
	require.NoError(t, err)

	upcoming, err := approaches.GetUpcoming(ctx, 7, 10)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.True(t, upcoming[0].ApproachDate.Equal(soon.ApproachDate))
	require.NotNil(t, upcoming[0].Asteroid)
	assert.Equal(t, "433 Eros (A898 PA)", upcoming[0].Asteroid.Name)
	assert.True(t, upcoming[0].Asteroid.IsHazardous)
}

func TestIngestRepository_SaveFeedAsteroidTwiceKeepsCounts(t *testing.T) {
	db := setupTestDB(t)
	ingest := NewIngestRepository(db)
	asteroids := NewAsteroidRepository(db)
	approaches := NewCloseApproachRepository(db)
	ctx := context.Background()

	feed := feedAsteroid("54016323", "(2020 AB)", true,
		feedApproach("2026-10-18", 700000),
		feedApproach("2026-10-19", 900000),
	)

	saved, err := ingest.SaveFeedAsteroid(ctx, feed)
	require.NoError(t, err)
	assert.Len(t, saved.CloseApproaches, 2)

	_, err = ingest.SaveFeedAsteroid(ctx, feed)
	require.NoError(t, err)

	asteroidCount, err := asteroids.Count(ctx)
	require.NoError(t, err)
	approachCount, err := approaches.Count(ctx)
	require.NoError(t, err)

	assert.Equal(t, int64(1), asteroidCount)
	assert.Equal(t, int64(2), approachCount)
}

func TestIngestRepository_KeepsOrbitalDataOnFeedSync(t *testing.T) {
	db := setupTestDB(t)
	ingest := NewIngestRepository(db)
	ctx := context.Background()

	lookup := feedAsteroid("2099942", "99942 Apophis (2004 MN4)", true, feedApproach("2029-04-13", 38012))
	lookup.OrbitalData = []byte(`{"orbit_id":"220"}`)

	saved, err := ingest.SaveFeedAsteroid(ctx, lookup)
	require.NoError(t, err)
	assert.JSONEq(t, `{"orbit_id":"220"}`, string(saved.OrbitalData))

	// Фид приходит без orbital_data
	feed := feedAsteroid("2099942", "99942 Apophis", true, feedApproach("2029-04-13", 38012))
	saved, err = ingest.SaveFeedAsteroid(ctx, feed)
	require.NoError(t, err)
	assert.Equal(t, "99942 Apophis", saved.Name)
	assert.JSONEq(t, `{"orbit_id":"220"}`, string(saved.OrbitalData))
}

func TestAsteroidRepository_GetFeedFiltersAndDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	ingest := NewIngestRepository(db)
	repo := NewAsteroidRepository(db)
	ctx := context.Background()

	_, err := ingest.SaveFeedAsteroid(ctx, feedAsteroid("1", "Alpha", true,
		feedApproach("2026-10-18", 500000),
		feedApproach("2026-10-20", 600000),
	))
	require.NoError(t, err)
	_, err = ingest.SaveFeedAsteroid(ctx, feedAsteroid("2", "Beta", false,
		feedApproach("2026-10-19", 800000),
	))
	require.NoError(t, err)
	_, err = ingest.SaveFeedAsteroid(ctx, feedAsteroid("3", "Gamma", false,
		feedApproach("2026-12-01", 800000),
	))
	require.NoError(t, err)

	feed, err := repo.GetFeed(ctx, FeedFilter{
		StartDate: day("2026-10-18"),
		EndDate:   day("2026-10-25"),
	})
	require.NoError(t, err)
	require.Len(t, feed, 2)
	assert.Equal(t, "1", feed[0].ID)
	assert.Equal(t, "2", feed[1].ID)
	assert.Len(t, feed[0].CloseApproaches, 2)

	hazardous := true
	feed, err = repo.GetFeed(ctx, FeedFilter{
		StartDate:   day("2026-10-18"),
		EndDate:     day("2026-10-25"),
		IsHazardous: &hazardous,
	})
	require.NoError(t, err)
	require.Len(t, feed, 1)
	assert.Equal(t, "Alpha", feed[0].Name)
}

func TestAsteroidRepository_SearchIsCaseInsensitive(t *testing.T) {
	db := setupTestDB(t)
	ingest := NewIngestRepository(db)
	repo := NewAsteroidRepository(db)
	ctx := context.Background()

	_, err := ingest.SaveFeedAsteroid(ctx, feedAsteroid("2099942", "99942 Apophis", true))
	require.NoError(t, err)
	_, err = ingest.SaveFeedAsteroid(ctx, feedAsteroid("2101955", "101955 Bennu", true))
	require.NoError(t, err)

	found, err := repo.Search(ctx, "apoph", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "2099942", found[0].ID)
}

func TestAsteroidRepository_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ingest := NewIngestRepository(db)
	asteroids := NewAsteroidRepository(db)
	approaches := NewCloseApproachRepository(db)
	users := NewUserRepository(db)
	watchlist := NewWatchlistRepository(db)
	alerts := NewAlertRepository(db)

	_, err := ingest.SaveFeedAsteroid(ctx, feedAsteroid("42", "Doomed", true, feedApproach("2026-10-20", 100000)))
	require.NoError(t, err)

	user := &models.User{Email: "watcher@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, watchlist.Create(ctx, &models.Watchlist{UserID: user.ID, AsteroidID: "42", AlertDistanceKm: 500000}))

	created, err := alerts.CreateIfAbsent(ctx, &models.Alert{
		UserID:       user.ID,
		AsteroidID:   "42",
		Message:      "Close Approach: Doomed",
		ApproachDate: day("2026-10-20"),
	})
	require.NoError(t, err)
	require.True(t, created)

	require.NoError(t, asteroids.Delete(ctx, "42"))

	approachCount, err := approaches.Count(ctx)
	require.NoError(t, err)
	watchCount, err := watchlist.CountByUser(ctx, user.ID)
	require.NoError(t, err)
	alertCount, err := alerts.Count(ctx)
	require.NoError(t, err)

	assert.Zero(t, approachCount)
	assert.Zero(t, watchCount)
	assert.Zero(t, alertCount)

	assert.ErrorIs(t, asteroids.Delete(ctx, "42"), gorm.ErrRecordNotFound)
}

func TestUserRepository_DuplicateEmail(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	ctx := context.Background()

	require.NoError(t, users.Create(ctx, &models.User{Email: "a@example.com", PasswordHash: "x", IsActive: true}))
	err := users.Create(ctx, &models.User{Email: "a@example.com", PasswordHash: "y", IsActive: true})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
}

func TestUserRepository_DeactivateAndDeleteCascade(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	ingest := NewIngestRepository(db)
	watchlist := NewWatchlistRepository(db)

	_, err := ingest.SaveFeedAsteroid(ctx, feedAsteroid("7", "Seven", false))
	require.NoError(t, err)

	user := &models.User{Email: "b@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, users.Create(ctx, user))
	require.NoError(t, watchlist.Create(ctx, &models.Watchlist{UserID: user.ID, AsteroidID: "7", AlertDistanceKm: 1}))

	require.NoError(t, users.Deactivate(ctx, user.ID))
	stored, err := users.GetByEmail(ctx, "b@example.com")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	require.NoError(t, users.Delete(ctx, user.ID))
	entries, err := watchlist.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWatchlistRepository_UniquePair(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	ingest := NewIngestRepository(db)
	watchlist := NewWatchlistRepository(db)

	_, err := ingest.SaveFeedAsteroid(ctx, feedAsteroid("9", "Nine", false, feedApproach("2026-10-21", 300000)))
	require.NoError(t, err)
	user := &models.User{Email: "c@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, users.Create(ctx, user))

	require.NoError(t, watchlist.Create(ctx, &models.Watchlist{UserID: user.ID, AsteroidID: "9", AlertDistanceKm: 1000}))
	err = watchlist.Create(ctx, &models.Watchlist{UserID: user.ID, AsteroidID: "9", AlertDistanceKm: 2000})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

	updated, err := watchlist.UpdateThreshold(ctx, user.ID, "9", 750000)
	require.NoError(t, err)
	assert.InDelta(t, 750000, updated.AlertDistanceKm, 1e-9)
	require.NotNil(t, updated.Asteroid)
	assert.Len(t, updated.Asteroid.CloseApproaches, 1)

	_, err = watchlist.UpdateThreshold(ctx, user.ID, "missing", 1)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, watchlist.Delete(ctx, user.ID, "9"))
	assert.ErrorIs(t, watchlist.Delete(ctx, user.ID, "9"), gorm.ErrRecordNotFound)
}

func TestAlertRepository_CreateIfAbsentDeduplicates(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)
	ingest := NewIngestRepository(db)
	alerts := NewAlertRepository(db)

	_, err := ingest.SaveFeedAsteroid(ctx, feedAsteroid("11", "Eleven", false, feedApproach("2026-10-22", 1000)))
	require.NoError(t, err)
	user := &models.User{Email: "d@example.com", PasswordHash: "x", IsActive: true}
	require.NoError(t, users.Create(ctx, user))

	approachAt := time.Date(2026, 10, 22, 13, 45, 0, 0, time.UTC)
	newAlert := func() *models.Alert {
		return &models.Alert{UserID: user.ID, AsteroidID: "11", Message: "m", ApproachDate: approachAt}
	}

	created, err := alerts.CreateIfAbsent(ctx, newAlert())
	require.NoError(t, err)
	assert.True(t, created)

	created, err = alerts.CreateIfAbsent(ctx, newAlert())
	require.NoError(t, err)
	assert.False(t, created)

	unread, err := alerts.CountUnread(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	list, err := alerts.GetByUser(ctx, user.ID, true, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.AlertTypeCloseApproach, list[0].AlertType)
	require.NotNil(t, list[0].Asteroid)

	read, err := alerts.MarkRead(ctx, user.ID, list[0].ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)

	_, err = alerts.MarkRead(ctx, user.ID+1, list[0].ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	marked, err := alerts.MarkAllRead(ctx, user.ID)
	require.NoError(t, err)
	assert.Zero(t, marked)

	exported, err := alerts.GetForExport(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, exported, 1)
	require.NotNil(t, exported[0].Asteroid)
	require.Len(t, exported[0].Asteroid.CloseApproaches, 1)

	require.NoError(t, alerts.Delete(ctx, user.ID, list[0].ID))
	assert.ErrorIs(t, alerts.Delete(ctx, user.ID, list[0].ID), gorm.ErrRecordNotFound)
}

func TestMemoryCacheRepository(t *testing.T) {
	cache := NewMemoryCacheRepository(time.Minute)
	ctx := context.Background()

	val, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, val)

	type payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, cache.SetJSON(ctx, "asteroids:feed:1", payload{Name: "Eros"}, time.Minute))
	require.NoError(t, cache.Set(ctx, "asteroids:search:eros", "[]", time.Minute))
	require.NoError(t, cache.Set(ctx, "stats:last_sync", "2026-10-18T00:00:00Z", 0))

	var got payload
	found, err := cache.GetJSON(ctx, "asteroids:feed:1", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Eros", got.Name)

	deleted, err := cache.DeleteByPattern(ctx, "asteroids:*")
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)

	found, err = cache.GetJSON(ctx, "asteroids:feed:1", &got)
	require.NoError(t, err)
	assert.False(t, found)

	last, err := cache.Get(ctx, "stats:last_sync")
	require.NoError(t, err)
	assert.Equal(t, "2026-10-18T00:00:00Z", last)

	for i := 1; i <= 3; i++ {
		n, err := cache.Increment(ctx, "stats:sync_runs")
		require.NoError(t, err)
		assert.Equal(t, int64(i), n)
	}

	deleted, err = cache.DeleteByPattern(ctx, "stats:sync_runs")
	require.NoError(t, err)
	assert.Equal(t, 1, deleted)
	runs, err := cache.Get(ctx, "stats:sync_runs")
	require.NoError(t, err)
	assert.Empty(t, runs)
}
