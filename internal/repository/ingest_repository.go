package repository

import (
	"context"

	"cosmicwatch/internal/clients"
	"cosmicwatch/internal/models"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// IngestRepository сохраняет нормализованные записи фида.
type IngestRepository interface {
	SaveFeedAsteroid(ctx context.Context, feed clients.FeedAsteroid) (*models.Asteroid, error)
}

type ingestRepository struct {
	db *gorm.DB
}

func NewIngestRepository(db *gorm.DB) IngestRepository {
	return &ingestRepository{db: db}
}

// SaveFeedAsteroid: объект и все его сближения в одной транзакции:
// читатель видит либо старое состояние, либо новое целиком.
func (r *ingestRepository) SaveFeedAsteroid(ctx context.Context, feed clients.FeedAsteroid) (*models.Asteroid, error) {
	asteroid := models.Asteroid{
		ID:                   feed.ID,
		Name:                 feed.Name,
		AbsoluteMagnitude:    feed.AbsoluteMagnitude,
		IsHazardous:          feed.IsHazardous,
		EstimatedDiameterMin: feed.EstimatedDiameterMin,
		EstimatedDiameterMax: feed.EstimatedDiameterMax,
		NasaJPLURL:           feed.NasaJPLURL,
		OrbitalData:          datatypes.JSON(feed.OrbitalData),
	}

	var saved models.Asteroid
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertAsteroid(tx, &asteroid); err != nil {
			return err
		}

		for _, a := range feed.Approaches {
			approach := models.CloseApproach{
				AsteroidID:        asteroid.ID,
				ApproachDate:      a.ApproachDate,
				ApproachDateFull:  a.ApproachDateFull,
				VelocityKmh:       a.VelocityKmh,
				MissDistanceKm:    a.MissDistanceKm,
				MissDistanceLunar: a.MissDistanceLunar,
				OrbitingBody:      a.OrbitingBody,
			}
			if err := upsertApproach(tx, &approach); err != nil {
				return err
			}
		}

		return tx.Preload("CloseApproaches", orderByApproachDate).
			First(&saved, "id = ?", asteroid.ID).Error
	})
	if err != nil {
		return nil, err
	}

	return &saved, nil
}
