package repository

import (
	"context"
	"strings"
	"time"

	"cosmicwatch/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SortByApproachDate = "approach_date"
	SortByDiameter     = "diameter"
	SortByVelocity     = "velocity"
)

type AsteroidRepository interface {
	Upsert(ctx context.Context, asteroid *models.Asteroid) (*models.Asteroid, error)
	GetByID(ctx context.Context, id string) (*models.Asteroid, error)
	GetFeed(ctx context.Context, filter FeedFilter) ([]models.Asteroid, error)
	Search(ctx context.Context, query string, limit int) ([]models.Asteroid, error)
	GetHazardous(ctx context.Context, limit int) ([]models.Asteroid, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int64, error)
}

type FeedFilter struct {
	StartDate   time.Time
	EndDate     time.Time
	IsHazardous *bool
	MinDiameter *float64
	MaxDiameter *float64
	SortBy      string
	Limit       int
	Offset      int
}

type asteroidRepository struct {
	db *gorm.DB
}

func NewAsteroidRepository(db *gorm.DB) AsteroidRepository {
	return &asteroidRepository{db: db}
}

// Upsert перезаписывает изменяемые поля существующей записи или вставляет новую.
// Связи (сближения, watchlist, алерты) не трогаются.
func (r *asteroidRepository) Upsert(ctx context.Context, asteroid *models.Asteroid) (*models.Asteroid, error) {
	var saved models.Asteroid
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertAsteroid(tx, asteroid); err != nil {
			return err
		}
		return tx.First(&saved, "id = ?", asteroid.ID).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func upsertAsteroid(tx *gorm.DB, asteroid *models.Asteroid) error {
	asteroid.LastUpdated = time.Now().UTC()

	columns := []string{
		"name",
		"absolute_magnitude",
		"is_hazardous",
		"estimated_diameter_min",
		"estimated_diameter_max",
		"nasa_jpl_url",
		"last_updated",
	}
	// Фид не несет орбитальных данных, сохраненные при lookup не затираем
	if len(asteroid.OrbitalData) > 0 {
		columns = append(columns, "orbital_data")
	}

	return tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(columns),
		}).
		Create(asteroid).Error
}

func orderByApproachDate(db *gorm.DB) *gorm.DB {
	return db.Order("approach_date ASC")
}

func (r *asteroidRepository) GetByID(ctx context.Context, id string) (*models.Asteroid, error) {
	var asteroid models.Asteroid
	err := r.db.WithContext(ctx).
		Preload("CloseApproaches", orderByApproachDate).
		First(&asteroid, "id = ?", id).
		Error
	if err != nil {
		return nil, err
	}
	return &asteroid, nil
}

func (r *asteroidRepository) GetFeed(ctx context.Context, filter FeedFilter) ([]models.Asteroid, error) {
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 50
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	query := r.db.WithContext(ctx).
		Model(&models.Asteroid{}).
		Select("asteroids.*").
		Joins("JOIN close_approaches ON close_approaches.asteroid_id = asteroids.id").
		Where("close_approaches.approach_date >= ? AND close_approaches.approach_date <= ?",
			filter.StartDate, filter.EndDate)

	if filter.IsHazardous != nil {
		query = query.Where("asteroids.is_hazardous = ?", *filter.IsHazardous)
	}
	if filter.MinDiameter != nil {
		query = query.Where("asteroids.estimated_diameter_max >= ?", *filter.MinDiameter)
	}
	if filter.MaxDiameter != nil {
		query = query.Where("asteroids.estimated_diameter_min <= ?", *filter.MaxDiameter)
	}

	// Объект с несколькими сближениями в окне должен попасть в выдачу один раз
	query = query.Group("asteroids.id")

	switch filter.SortBy {
	case SortByDiameter:
		query = query.Order("asteroids.estimated_diameter_max DESC")
	case SortByVelocity:
		query = query.Order("MAX(close_approaches.velocity_kmh) DESC")
	default:
		query = query.Order("MIN(close_approaches.approach_date) ASC")
	}

	var asteroids []models.Asteroid
	err := query.
		Order("asteroids.id ASC").
		Offset(filter.Offset).
		Limit(filter.Limit).
		Preload("CloseApproaches", orderByApproachDate).
		Find(&asteroids).
		Error

	return asteroids, err
}

func (r *asteroidRepository) Search(ctx context.Context, query string, limit int) ([]models.Asteroid, error) {
	if limit < 1 || limit > 50 {
		limit = 20
	}

	pattern := "%" + strings.ToLower(query) + "%"

	var asteroids []models.Asteroid
	err := r.db.WithContext(ctx).
		Preload("CloseApproaches", orderByApproachDate).
		Where("LOWER(name) LIKE ? OR LOWER(id) LIKE ?", pattern, pattern).
		Order("name ASC").
		Limit(limit).
		Find(&asteroids).
		Error

	return asteroids, err
}

func (r *asteroidRepository) GetHazardous(ctx context.Context, limit int) ([]models.Asteroid, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var asteroids []models.Asteroid
	err := r.db.WithContext(ctx).
		Preload("CloseApproaches", orderByApproachDate).
		Where("is_hazardous = ?", true).
		Order("estimated_diameter_max DESC").
		Limit(limit).
		Find(&asteroids).
		Error

	return asteroids, err
}

// Delete удаляет объект; сближения, записи watchlist и алерты уходят каскадом.
func (r *asteroidRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&models.Asteroid{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *asteroidRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Asteroid{}).
		Count(&count).
		Error
	return count, err
}
