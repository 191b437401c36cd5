package repository

import (
	"context"
	"time"

	"cosmicwatch/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CloseApproachRepository interface {
	Upsert(ctx context.Context, asteroidID string, approach *models.CloseApproach) (*models.CloseApproach, error)
	GetUpcoming(ctx context.Context, days, limit int) ([]models.CloseApproach, error)
	Count(ctx context.Context) (int64, error)
}

type closeApproachRepository struct {
	db *gorm.DB
}

func NewCloseApproachRepository(db *gorm.DB) CloseApproachRepository {
	return &closeApproachRepository{db: db}
}

// Upsert по ключу (asteroid_id, approach_date): повторный вызов перезаписывает
// остальные поля, а не добавляет строку.
func (r *closeApproachRepository) Upsert(ctx context.Context, asteroidID string, approach *models.CloseApproach) (*models.CloseApproach, error) {
	approach.AsteroidID = asteroidID

	var saved models.CloseApproach
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertApproach(tx, approach); err != nil {
			return err
		}
		return tx.First(&saved, "asteroid_id = ? AND approach_date = ?", approach.AsteroidID, approach.ApproachDate).Error
	})
	if err != nil {
		return nil, err
	}
	return &saved, nil
}

func upsertApproach(tx *gorm.DB, approach *models.CloseApproach) error {
	d := approach.ApproachDate.UTC()
	approach.ApproachDate = time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	if approach.ApproachDateFull != nil {
		full := approach.ApproachDateFull.UTC()
		approach.ApproachDateFull = &full
	}
	if approach.OrbitingBody == "" {
		approach.OrbitingBody = models.DefaultOrbitingBody
	}
	approach.ID = 0

	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "asteroid_id"}, {Name: "approach_date"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"approach_date_full",
			"velocity_kmh",
			"miss_distance_km",
			"miss_distance_lunar",
			"orbiting_body",
		}),
	}).Create(approach).Error
}

// GetUpcoming: сближения на [сегодня, сегодня+days] вместе с объектом,
// по которому считается риск.
func (r *closeApproachRepository) GetUpcoming(ctx context.Context, days, limit int) ([]models.CloseApproach, error) {
	if days < 1 {
		days = 7
	}
	if limit < 1 || limit > 100 {
		limit = 50
	}

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var approaches []models.CloseApproach
	err := r.db.WithContext(ctx).
		Preload("Asteroid").
		Where("approach_date >= ? AND approach_date <= ?", today, today.AddDate(0, 0, days)).
		Order("approach_date ASC").
		Limit(limit).
		Find(&approaches).
		Error
	return approaches, err
}

func (r *closeApproachRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CloseApproach{}).
		Count(&count).
		Error
	return count, err
}
