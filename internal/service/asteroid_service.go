package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cosmicwatch/internal/clients"
	"cosmicwatch/internal/logger"
	"cosmicwatch/internal/models"
	"cosmicwatch/internal/repository"

	"gorm.io/gorm"
)

const (
	asteroidCachePrefix = "asteroids:"
	asteroidCacheTTL    = 10 * time.Minute

	syncRunsKey = "stats:sync_runs"
	lastSyncKey = "stats:last_sync"
)

type AsteroidService interface {
	SyncFeed(ctx context.Context, startDate, endDate time.Time) (*SyncResult, error)
	GetFeed(ctx context.Context, filter repository.FeedFilter) ([]AsteroidView, error)
	Search(ctx context.Context, query string, limit int) ([]AsteroidView, error)
	GetHazardous(ctx context.Context, limit int) ([]AsteroidView, error)
	GetUpcoming(ctx context.Context, days, limit int) ([]UpcomingApproach, error)
	GetByID(ctx context.Context, id string) (*AsteroidView, error)
}

// AsteroidView: объект с оценкой риска по выбранному сближению.
type AsteroidView struct {
	Asteroid   models.Asteroid
	Risk       RiskTier
	RiskPoints int
	HasRisk    bool
}

type UpcomingApproach struct {
	Approach   models.CloseApproach
	Risk       RiskTier
	RiskPoints int
}

type SyncResult struct {
	StartDate time.Time
	EndDate   time.Time
	Fetched   int
	Synced    int
	Failed    int
}

type asteroidService struct {
	asteroidRepo repository.AsteroidRepository
	approachRepo repository.CloseApproachRepository
	ingestRepo   repository.IngestRepository
	cacheRepo    repository.CacheRepository
	client       clients.NEOClient
	now          func() time.Time
}

func NewAsteroidService(
	asteroidRepo repository.AsteroidRepository,
	approachRepo repository.CloseApproachRepository,
	ingestRepo repository.IngestRepository,
	cacheRepo repository.CacheRepository,
	client clients.NEOClient,
) AsteroidService {
	return &asteroidService{
		asteroidRepo: asteroidRepo,
		approachRepo: approachRepo,
		ingestRepo:   ingestRepo,
		cacheRepo:    cacheRepo,
		client:       client,
		now:          time.Now,
	}
}

// SyncFeed забирает фид за [start, end] (окно обрезается до 7 дней) и
// сохраняет каждый объект отдельной транзакцией. Ошибка одного объекта
// не прерывает синхронизацию остальных.
func (s *asteroidService) SyncFeed(ctx context.Context, startDate, endDate time.Time) (*SyncResult, error) {
	if endDate.Before(startDate) {
		return nil, newError(ErrValidation, "end_date must be after start_date")
	}

	start, end := clients.ClampFeedWindow(startDate, endDate)
	log := logger.Component("asteroids").WithField("start_date", start.Format("2006-01-02")).
		WithField("end_date", end.Format("2006-01-02"))

	log.Info("Fetching NEO feed...")

	feed, err := s.client.FetchFeed(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch NEO feed: %w", err)
	}

	result := &SyncResult{StartDate: start, EndDate: end, Fetched: len(feed)}
	var firstErr error

	for _, asteroid := range feed {
		if _, err := s.ingestRepo.SaveFeedAsteroid(ctx, asteroid); err != nil {
			result.Failed++
			if firstErr == nil {
				firstErr = err
			}
			log.WithField("asteroid_id", asteroid.ID).Errorf("Failed to save asteroid: %v", err)
			continue
		}
		result.Synced++
	}

	if result.Synced > 0 {
		s.invalidateCache(ctx)
	}

	if result.Synced == 0 && result.Failed > 0 {
		return result, fmt.Errorf("failed to save NEO feed: %w", firstErr)
	}

	if _, err := s.cacheRepo.Increment(ctx, syncRunsKey); err != nil {
		log.Warnf("Failed to update sync counter: %v", err)
	}
	if err := s.cacheRepo.Set(ctx, lastSyncKey, s.now().UTC().Format(time.RFC3339), 0); err != nil {
		log.Warnf("Failed to store last sync time: %v", err)
	}

	log.WithField("synced", result.Synced).WithField("failed", result.Failed).Info("NEO feed synced")
	return result, nil
}

func (s *asteroidService) invalidateCache(ctx context.Context) {
	deleted, err := s.cacheRepo.DeleteByPattern(ctx, asteroidCachePrefix+"*")
	if err != nil {
		logger.Component("asteroids").Warnf("Failed to invalidate asteroid cache: %v", err)
		return
	}
	if deleted > 0 {
		logger.Component("asteroids").Debugf("Invalidated %d cached asteroid responses", deleted)
	}
}

func (s *asteroidService) GetFeed(ctx context.Context, filter repository.FeedFilter) ([]AsteroidView, error) {
	today := s.today()
	if filter.StartDate.IsZero() {
		filter.StartDate = today
	}
	filter.StartDate = clients.TruncateDay(filter.StartDate)
	if filter.EndDate.IsZero() {
		filter.EndDate = filter.StartDate.AddDate(0, 0, 7)
	}
	filter.EndDate = clients.TruncateDay(filter.EndDate)

	if filter.EndDate.Before(filter.StartDate) {
		return nil, newError(ErrValidation, "end_date must be after start_date")
	}
	switch filter.SortBy {
	case "":
		filter.SortBy = repository.SortByApproachDate
	case repository.SortByApproachDate, repository.SortByDiameter, repository.SortByVelocity:
	default:
		return nil, newError(ErrValidation, "sort_by must be one of approach_date, diameter, velocity")
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		return nil, newError(ErrValidation, "offset must not be negative")
	}

	cacheKey := feedCacheKey(filter)
	return s.cachedViews(ctx, cacheKey, func() ([]models.Asteroid, error) {
		return s.asteroidRepo.GetFeed(ctx, filter)
	})
}

func (s *asteroidService) Search(ctx context.Context, query string, limit int) ([]AsteroidView, error) {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < 2 {
		return nil, newError(ErrValidation, "search query must be at least 2 characters")
	}
	if limit < 1 || limit > 50 {
		limit = 20
	}

	cacheKey := fmt.Sprintf("%ssearch:%s:%d", asteroidCachePrefix, strings.ToLower(query), limit)
	return s.cachedViews(ctx, cacheKey, func() ([]models.Asteroid, error) {
		return s.asteroidRepo.Search(ctx, query, limit)
	})
}

func (s *asteroidService) GetHazardous(ctx context.Context, limit int) ([]AsteroidView, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	cacheKey := fmt.Sprintf("%shazardous:%d", asteroidCachePrefix, limit)
	return s.cachedViews(ctx, cacheKey, func() ([]models.Asteroid, error) {
		return s.asteroidRepo.GetHazardous(ctx, limit)
	})
}

func (s *asteroidService) GetUpcoming(ctx context.Context, days, limit int) ([]UpcomingApproach, error) {
	if days < 1 || days > 30 {
		days = 7
	}

	approaches, err := s.approachRepo.GetUpcoming(ctx, days, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load upcoming approaches: %w", err)
	}

	upcoming := make([]UpcomingApproach, 0, len(approaches))
	for i := range approaches {
		item := UpcomingApproach{Approach: approaches[i]}
		if approaches[i].Asteroid != nil {
			item.RiskPoints = RiskPoints(approaches[i].Asteroid, &approaches[i])
			item.Risk = TierForPoints(item.RiskPoints)
		}
		upcoming = append(upcoming, item)
	}
	return upcoming, nil
}

// GetByID ищет объект в базе, при промахе спрашивает NeoWs и сохраняет ответ.
// Риск считается по ближайшему будущему сближению.
func (s *asteroidService) GetByID(ctx context.Context, id string) (*AsteroidView, error) {
	asteroid, err := s.asteroidRepo.GetByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		asteroid, err = s.lookupAndStore(ctx, id)
	}
	if err != nil {
		return nil, err
	}

	view := AsteroidView{Asteroid: *asteroid}
	if approach := NextApproach(asteroid.CloseApproaches, s.today()); approach != nil {
		view.RiskPoints = RiskPoints(asteroid, approach)
		view.Risk = TierForPoints(view.RiskPoints)
		view.HasRisk = true
	}
	return &view, nil
}

func (s *asteroidService) lookupAndStore(ctx context.Context, id string) (*models.Asteroid, error) {
	found, err := s.client.LookupAsteroid(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to look up asteroid %s: %w", id, err)
	}
	if found == nil {
		return nil, newError(ErrNotFound, "Asteroid with ID %s not found", id)
	}

	asteroid, err := s.ingestRepo.SaveFeedAsteroid(ctx, *found)
	if err != nil {
		return nil, fmt.Errorf("failed to save asteroid %s: %w", id, err)
	}

	logger.Component("asteroids").WithField("asteroid_id", id).Info("Asteroid fetched from NeoWs on demand")
	return asteroid, nil
}

func (s *asteroidService) cachedViews(ctx context.Context, cacheKey string, load func() ([]models.Asteroid, error)) ([]AsteroidView, error) {
	var cached []AsteroidView
	if found, err := s.cacheRepo.GetJSON(ctx, cacheKey, &cached); err != nil {
		logger.Component("asteroids").Warnf("Cache read failed for %s: %v", cacheKey, err)
	} else if found {
		return cached, nil
	}

	asteroids, err := load()
	if err != nil {
		return nil, fmt.Errorf("failed to load asteroids: %w", err)
	}

	views := make([]AsteroidView, 0, len(asteroids))
	for i := range asteroids {
		views = append(views, closestView(asteroids[i]))
	}

	if err := s.cacheRepo.SetJSON(ctx, cacheKey, views, asteroidCacheTTL); err != nil {
		logger.Component("asteroids").Warnf("Failed to cache %s: %v", cacheKey, err)
	}

	return views, nil
}

// closestView оценивает риск по сближению с минимальным расстоянием.
func closestView(asteroid models.Asteroid) AsteroidView {
	view := AsteroidView{Asteroid: asteroid}
	if approach := ClosestApproach(asteroid.CloseApproaches); approach != nil {
		view.RiskPoints = RiskPoints(&asteroid, approach)
		view.Risk = TierForPoints(view.RiskPoints)
		view.HasRisk = true
	}
	return view
}

func (s *asteroidService) today() time.Time {
	return clients.TruncateDay(s.now().UTC())
}

func feedCacheKey(filter repository.FeedFilter) string {
	var b strings.Builder
	b.WriteString(asteroidCachePrefix)
	b.WriteString("feed:")
	b.WriteString(filter.StartDate.Format("20060102"))
	b.WriteString(":")
	b.WriteString(filter.EndDate.Format("20060102"))
	b.WriteString(":")
	if filter.IsHazardous != nil {
		fmt.Fprintf(&b, "%t", *filter.IsHazardous)
	}
	b.WriteString(":")
	if filter.MinDiameter != nil {
		fmt.Fprintf(&b, "%g", *filter.MinDiameter)
	}
	b.WriteString(":")
	if filter.MaxDiameter != nil {
		fmt.Fprintf(&b, "%g", *filter.MaxDiameter)
	}
	fmt.Fprintf(&b, ":%s:%d:%d", filter.SortBy, filter.Limit, filter.Offset)
	return b.String()
}
