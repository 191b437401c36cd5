package repository

import (
	"context"

	"cosmicwatch/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AlertRepository interface {
	CreateIfAbsent(ctx context.Context, alert *models.Alert) (bool, error)
	GetByID(ctx context.Context, userID, alertID uint) (*models.Alert, error)
	GetByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Alert, error)
	GetForExport(ctx context.Context, userID uint, limit int) ([]models.Alert, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, alertID uint) (*models.Alert, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	Delete(ctx context.Context, userID, alertID uint) error
	Count(ctx context.Context) (int64, error)
}

type alertRepository struct {
	db *gorm.DB
}

func NewAlertRepository(db *gorm.DB) AlertRepository {
	return &alertRepository{db: db}
}

// CreateIfAbsent вставляет алерт, если по ключу (user, asteroid, approach_date)
// его еще нет. Проверка и вставка делаются одним INSERT ... ON CONFLICT DO NOTHING,
// поэтому параллельные генераторы не создадут дубль.
func (r *alertRepository) CreateIfAbsent(ctx context.Context, alert *models.Alert) (bool, error) {
	alert.ApproachDate = alert.ApproachDate.UTC()
	if alert.AlertType == "" {
		alert.AlertType = models.AlertTypeCloseApproach
	}

	result := r.db.WithContext(ctx).
		Omit("Asteroid").
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(alert)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *alertRepository) GetByID(ctx context.Context, userID, alertID uint) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).
		Preload("Asteroid").
		Where("id = ? AND user_id = ?", alertID, userID).
		First(&alert).
		Error
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) GetByUser(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Alert, error) {
	query := r.db.WithContext(ctx).
		Preload("Asteroid").
		Where("user_id = ?", userID)

	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var alerts []models.Alert
	err := query.
		Order("created_at DESC").
		Order("id DESC").
		Find(&alerts).
		Error
	return alerts, err
}

// GetForExport подгружает и сближения объекта: выгрузке нужна дистанция промаха.
func (r *alertRepository) GetForExport(ctx context.Context, userID uint, limit int) ([]models.Alert, error) {
	var alerts []models.Alert
	err := r.db.WithContext(ctx).
		Preload("Asteroid.CloseApproaches", orderByApproachDate).
		Where("user_id = ?", userID).
		Order("approach_date ASC").
		Limit(limit).
		Find(&alerts).
		Error
	return alerts, err
}

func (r *alertRepository) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Count(&count).
		Error
	return count, err
}

func (r *alertRepository) MarkRead(ctx context.Context, userID, alertID uint) (*models.Alert, error) {
	var alert models.Alert
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", alertID, userID).First(&alert).Error; err != nil {
			return err
		}
		alert.IsRead = true
		return tx.Model(&alert).Update("is_read", true).Error
	})
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

func (r *alertRepository) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Alert{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Update("is_read", true)
	return result.RowsAffected, result.Error
}

func (r *alertRepository) Delete(ctx context.Context, userID, alertID uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", alertID, userID).
		Delete(&models.Alert{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *alertRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Alert{}).Count(&count).Error
	return count, err
}
