package repository

import (
	"context"

	"cosmicwatch/internal/models"

	"gorm.io/gorm"
)

type WatchlistRepository interface {
	Create(ctx context.Context, entry *models.Watchlist) error
	GetByUserAndAsteroid(ctx context.Context, userID uint, asteroidID string) (*models.Watchlist, error)
	GetByUser(ctx context.Context, userID uint) ([]models.Watchlist, error)
	GetAll(ctx context.Context) ([]models.Watchlist, error)
	UpdateThreshold(ctx context.Context, userID uint, asteroidID string, alertDistanceKm float64) (*models.Watchlist, error)
	Delete(ctx context.Context, userID uint, asteroidID string) error
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

type watchlistRepository struct {
	db *gorm.DB
}

func NewWatchlistRepository(db *gorm.DB) WatchlistRepository {
	return &watchlistRepository{db: db}
}

// Create возвращает gorm.ErrDuplicatedKey для повторной пары (user, asteroid).
func (r *watchlistRepository) Create(ctx context.Context, entry *models.Watchlist) error {
	return r.db.WithContext(ctx).Omit("Asteroid").Create(entry).Error
}

func (r *watchlistRepository) GetByUserAndAsteroid(ctx context.Context, userID uint, asteroidID string) (*models.Watchlist, error) {
	var entry models.Watchlist
	err := r.db.WithContext(ctx).
		Preload("Asteroid").
		Preload("Asteroid.CloseApproaches", orderByApproachDate).
		Where("user_id = ? AND asteroid_id = ?", userID, asteroidID).
		First(&entry).
		Error
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *watchlistRepository) GetByUser(ctx context.Context, userID uint) ([]models.Watchlist, error) {
	var entries []models.Watchlist
	err := r.db.WithContext(ctx).
		Preload("Asteroid").
		Preload("Asteroid.CloseApproaches", orderByApproachDate).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).
		Error
	return entries, err
}

// GetAll: все записи всех пользователей, для генератора алертов.
func (r *watchlistRepository) GetAll(ctx context.Context) ([]models.Watchlist, error) {
	var entries []models.Watchlist
	err := r.db.WithContext(ctx).
		Preload("Asteroid").
		Preload("Asteroid.CloseApproaches", orderByApproachDate).
		Order("id ASC").
		Find(&entries).
		Error
	return entries, err
}

func (r *watchlistRepository) UpdateThreshold(ctx context.Context, userID uint, asteroidID string, alertDistanceKm float64) (*models.Watchlist, error) {
	var entry models.Watchlist
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Watchlist{}).
			Where("user_id = ? AND asteroid_id = ?", userID, asteroidID).
			Update("alert_distance_km", alertDistanceKm)
		if result.Error != nil {
			return result.Error
		}

		return tx.Preload("Asteroid").
			Preload("Asteroid.CloseApproaches", orderByApproachDate).
			Where("user_id = ? AND asteroid_id = ?", userID, asteroidID).
			First(&entry).
			Error
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *watchlistRepository) Delete(ctx context.Context, userID uint, asteroidID string) error {
	result := r.db.WithContext(ctx).
		Where("user_id = ? AND asteroid_id = ?", userID, asteroidID).
		Delete(&models.Watchlist{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *watchlistRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Watchlist{}).
		Where("user_id = ?", userID).
		Count(&count).
		Error
	return count, err
}
