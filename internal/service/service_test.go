package service

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"cosmicwatch/internal/clients"
	"cosmicwatch/internal/models"
	"cosmicwatch/internal/repository"
	"cosmicwatch/pkg/database"

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

func fixedClock(s string) func() time.Time {
	t := day(s).Add(9 * time.Hour)
	return func() time.Time { return t }
}

// memoryCache: CacheRepository в памяти для тестов.
type memoryCache struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{data: make(map[string]string)}
}

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memoryCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case string:
		c.data[key] = v
	case []byte:
		c.data[key] = string(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return err
		}
		c.data[key] = string(raw)
	}
	return nil
}

func (c *memoryCache) GetJSON(_ context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	raw, ok := c.data[key]
	c.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal([]byte(raw), dest)
}

func (c *memoryCache) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, raw, expiration)
}

func (c *memoryCache) DeleteByPattern(_ context.Context, pattern string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := strings.TrimSuffix(pattern, "*")
	deleted := 0
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			delete(c.data, key)
			deleted++
		}
	}
	return deleted, nil
}

func (c *memoryCache) Increment(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, _ := strconv.ParseInt(c.data[key], 10, 64)
	n++
	c.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (c *memoryCache) keysWithPrefix(prefix string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var keys []string
	for key := range c.data {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	return keys
}

// stubNEOClient отдает заранее заданный фид и запоминает запрошенное окно.
type stubNEOClient struct {
	feed      []clients.FeedAsteroid
	lookup    map[string]*clients.FeedAsteroid
	err       error
	lastStart time.Time
	lastEnd   time.Time
	calls     int
}

func (c *stubNEOClient) FetchFeed(_ context.Context, startDate, endDate time.Time) ([]clients.FeedAsteroid, error) {
	c.calls++
	c.lastStart, c.lastEnd = clients.ClampFeedWindow(startDate, endDate)
	if c.err != nil {
		return nil, c.err
	}
	return c.feed, nil
}

func (c *stubNEOClient) LookupAsteroid(_ context.Context, id string) (*clients.FeedAsteroid, error) {
	if c.err != nil {
		return nil, c.err
	}
	return c.lookup[id], nil
}

type fixture struct {
	db         *gorm.DB
	cache      *memoryCache
	client     *stubNEOClient
	asteroids  repository.AsteroidRepository
	approaches repository.CloseApproachRepository
	ingest     repository.IngestRepository
	users      repository.UserRepository
	watchlist  repository.WatchlistRepository
	alerts     repository.AlertRepository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	return &fixture{
		db:         db,
		cache:      newMemoryCache(),
		client:     &stubNEOClient{},
		asteroids:  repository.NewAsteroidRepository(db),
		approaches: repository.NewCloseApproachRepository(db),
		ingest:     repository.NewIngestRepository(db),
		users:      repository.NewUserRepository(db),
		watchlist:  repository.NewWatchlistRepository(db),
		alerts:     repository.NewAlertRepository(db),
	}
}

func (f *fixture) asteroidService(now func() time.Time) *asteroidService {
	svc := NewAsteroidService(f.asteroids, f.approaches, f.ingest, f.cache, f.client).(*asteroidService)
	if now != nil {
		svc.now = now
	}
	return svc
}

func (f *fixture) alertService(now func() time.Time) *alertService {
	svc := NewAlertService(f.alerts, f.watchlist).(*alertService)
	if now != nil {
		svc.now = now
	}
	return svc
}

func (f *fixture) createUser(t *testing.T, email string) *models.User {
	t.Helper()
	user := &models.User{Email: email, PasswordHash: "x", IsActive: true}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *fixture) saveAsteroid(t *testing.T, feed clients.FeedAsteroid) {
	t.Helper()
	_, err := f.ingest.SaveFeedAsteroid(context.Background(), feed)
	require.NoError(t, err)
}

func approachOn(date string, missKm float64) clients.FeedApproach {
	return clients.FeedApproach{
		ApproachDate:      day(date),
		VelocityKmh:       float64Ptr(45000),
		MissDistanceKm:    float64Ptr(missKm),
		MissDistanceLunar: float64Ptr(missKm / 384400),
		OrbitingBody:      "Earth",
	}
}
