package service

import (
	"context"
	"errors"
	"fmt"

	"cosmicwatch/internal/models"
	"cosmicwatch/internal/repository"

	"gorm.io/gorm"
)

type WatchlistService interface {
	Add(ctx context.Context, userID uint, asteroidID string, alertDistanceKm *float64) (*models.Watchlist, error)
	List(ctx context.Context, userID uint) ([]models.Watchlist, error)
	UpdateThreshold(ctx context.Context, userID uint, asteroidID string, alertDistanceKm float64) (*models.Watchlist, error)
	Remove(ctx context.Context, userID uint, asteroidID string) error
	Count(ctx context.Context, userID uint) (int64, error)
}

type watchlistService struct {
	watchlistRepo repository.WatchlistRepository
	asteroidRepo  repository.AsteroidRepository
}

func NewWatchlistService(watchlistRepo repository.WatchlistRepository, asteroidRepo repository.AsteroidRepository) WatchlistService {
	return &watchlistService{
		watchlistRepo: watchlistRepo,
		asteroidRepo:  asteroidRepo,
	}
}

// Add: порог по умолчанию 1 000 000 км; объект должен уже быть в базе.
func (s *watchlistService) Add(ctx context.Context, userID uint, asteroidID string, alertDistanceKm *float64) (*models.Watchlist, error) {
	threshold := models.DefaultAlertDistanceKm
	if alertDistanceKm != nil {
		threshold = *alertDistanceKm
	}
	if threshold <= 0 {
		return nil, newError(ErrValidation, "alert_distance_km must be greater than 0")
	}

	if _, err := s.asteroidRepo.GetByID(ctx, asteroidID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newError(ErrNotFound, "Asteroid %s not found", asteroidID)
		}
		return nil, fmt.Errorf("failed to load asteroid: %w", err)
	}

	entry := &models.Watchlist{
		UserID:          userID,
		AsteroidID:      asteroidID,
		AlertDistanceKm: threshold,
	}
	if err := s.watchlistRepo.Create(ctx, entry); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newError(ErrConflict, "Asteroid already in your watchlist")
		}
		if errors.Is(err, gorm.ErrForeignKeyViolated) {
			return nil, newError(ErrNotFound, "Asteroid %s not found", asteroidID)
		}
		return nil, fmt.Errorf("failed to add to watchlist: %w", err)
	}

	return s.watchlistRepo.GetByUserAndAsteroid(ctx, userID, asteroidID)
}

func (s *watchlistService) List(ctx context.Context, userID uint) ([]models.Watchlist, error) {
	entries, err := s.watchlistRepo.GetByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load watchlist: %w", err)
	}
	return entries, nil
}

func (s *watchlistService) UpdateThreshold(ctx context.Context, userID uint, asteroidID string, alertDistanceKm float64) (*models.Watchlist, error) {
	if alertDistanceKm <= 0 {
		return nil, newError(ErrValidation, "alert_distance_km must be greater than 0")
	}

	entry, err := s.watchlistRepo.UpdateThreshold(ctx, userID, asteroidID, alertDistanceKm)
	if err != nil {
		return nil, watchlistNotFound(err)
	}
	return entry, nil
}

func (s *watchlistService) Remove(ctx context.Context, userID uint, asteroidID string) error {
	if err := s.watchlistRepo.Delete(ctx, userID, asteroidID); err != nil {
		return watchlistNotFound(err)
	}
	return nil
}

func (s *watchlistService) Count(ctx context.Context, userID uint) (int64, error) {
	return s.watchlistRepo.CountByUser(ctx, userID)
}

func watchlistNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(ErrNotFound, "Watchlist entry not found")
	}
	return err
}
