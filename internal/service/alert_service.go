package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cosmicwatch/internal/clients"
	"cosmicwatch/internal/logger"
	"cosmicwatch/internal/models"
	"cosmicwatch/internal/repository"
	"cosmicwatch/internal/utils"

	"gorm.io/gorm"
)

const (
	DefaultAlertWindowDays = 30

	ExportFormatXLSX = "xlsx"
	ExportFormatCSV  = "csv"

	// выгрузка ограничена, чтобы не держать в памяти всю историю
	maxExportAlerts = 5000
)

type AlertService interface {
	GenerateAlerts(ctx context.Context, windowDays int) (int, error)
	ListAlerts(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Alert, error)
	CountUnread(ctx context.Context, userID uint) (int64, error)
	MarkRead(ctx context.Context, userID, alertID uint) (*models.Alert, error)
	MarkAllRead(ctx context.Context, userID uint) (int64, error)
	DeleteAlert(ctx context.Context, userID, alertID uint) error
	ExportAlerts(ctx context.Context, userID uint, format string, w io.Writer) error
}

type alertService struct {
	alertRepo     repository.AlertRepository
	watchlistRepo repository.WatchlistRepository
	now           func() time.Time
}

func NewAlertService(alertRepo repository.AlertRepository, watchlistRepo repository.WatchlistRepository) AlertService {
	return &alertService{
		alertRepo:     alertRepo,
		watchlistRepo: watchlistRepo,
		now:           time.Now,
	}
}

// GenerateAlerts проходит по всем записям watchlist и создает алерт на каждое
// сближение в окне [today, today+windowDays], где расстояние промаха не больше
// порога записи. Повторный запуск на тех же данных ничего не создает.
func (s *alertService) GenerateAlerts(ctx context.Context, windowDays int) (int, error) {
	if windowDays <= 0 {
		windowDays = DefaultAlertWindowDays
	}

	log := logger.Component("alerts")

	entries, err := s.watchlistRepo.GetAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load watchlist: %w", err)
	}

	today := clients.TruncateDay(s.now().UTC())
	until := today.AddDate(0, 0, windowDays)

	created := 0
	var errs []error

	for _, entry := range entries {
		asteroid := entry.Asteroid
		if asteroid == nil || len(asteroid.CloseApproaches) == 0 {
			continue
		}

		for i := range asteroid.CloseApproaches {
			approach := &asteroid.CloseApproaches[i]
			if approach.ApproachDate.Before(today) || approach.ApproachDate.After(until) {
				continue
			}
			if approach.MissDistanceKm == nil || *approach.MissDistanceKm > entry.AlertDistanceKm {
				continue
			}

			alert := &models.Alert{
				UserID:       entry.UserID,
				AsteroidID:   asteroid.ID,
				Message:      AlertMessage(asteroid, approach),
				AlertType:    models.AlertTypeCloseApproach,
				ApproachDate: approach.DedupTime(),
			}

			ok, err := s.alertRepo.CreateIfAbsent(ctx, alert)
			if err != nil {
				log.WithField("user_id", entry.UserID).WithField("asteroid_id", asteroid.ID).
					Errorf("Failed to create alert: %v", err)
				errs = append(errs, err)
				continue
			}
			if ok {
				created++
			}
		}
	}

	log.WithField("created", created).Infof("Generated %d new alerts", created)

	if len(errs) > 0 {
		return created, fmt.Errorf("failed to create %d alerts: %w", len(errs), errors.Join(errs...))
	}
	return created, nil
}

// AlertMessage: текст алерта; дата в длинной форме, лунные дистанции с двумя знаками.
func AlertMessage(asteroid *models.Asteroid, approach *models.CloseApproach) string {
	lunar := 0.0
	switch {
	case approach.MissDistanceLunar != nil:
		lunar = *approach.MissDistanceLunar
	case approach.MissDistanceKm != nil:
		lunar = utils.KmToLunar(*approach.MissDistanceKm)
	}

	message := fmt.Sprintf("Close Approach: %s will pass within %.2f lunar distances on %s",
		asteroid.Name, lunar, approach.ApproachDate.UTC().Format("January 02, 2006"))
	if asteroid.IsHazardous {
		message = "HAZARDOUS - " + message
	}
	return message
}

func (s *alertService) ListAlerts(ctx context.Context, userID uint, unreadOnly bool, limit, offset int) ([]models.Alert, error) {
	if limit < 1 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		return nil, newError(ErrValidation, "offset must not be negative")
	}

	alerts, err := s.alertRepo.GetByUser(ctx, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to load alerts: %w", err)
	}
	return alerts, nil
}

func (s *alertService) CountUnread(ctx context.Context, userID uint) (int64, error) {
	return s.alertRepo.CountUnread(ctx, userID)
}

func (s *alertService) MarkRead(ctx context.Context, userID, alertID uint) (*models.Alert, error) {
	if _, err := s.alertRepo.MarkRead(ctx, userID, alertID); err != nil {
		return nil, alertNotFound(err)
	}

	alert, err := s.alertRepo.GetByID(ctx, userID, alertID)
	if err != nil {
		return nil, alertNotFound(err)
	}
	return alert, nil
}

func (s *alertService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.alertRepo.MarkAllRead(ctx, userID)
}

func (s *alertService) DeleteAlert(ctx context.Context, userID, alertID uint) error {
	if err := s.alertRepo.Delete(ctx, userID, alertID); err != nil {
		return alertNotFound(err)
	}
	return nil
}

func (s *alertService) ExportAlerts(ctx context.Context, userID uint, format string, w io.Writer) error {
	if format != ExportFormatXLSX && format != ExportFormatCSV {
		return newError(ErrValidation, "unsupported format, use 'csv' or 'xlsx'")
	}

	alerts, err := s.alertRepo.GetForExport(ctx, userID, maxExportAlerts)
	if err != nil {
		return fmt.Errorf("failed to load alerts: %w", err)
	}

	if format == ExportFormatCSV {
		return utils.WriteAlertsCSV(w, alerts)
	}
	return utils.WriteAlertsExcel(w, alerts)
}

func alertNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return newError(ErrNotFound, "Alert not found")
	}
	return err
}
