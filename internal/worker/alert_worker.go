package worker

import (
	"context"
	"time"

	"cosmicwatch/internal/service"
)

// AlertWorker генерирует алерты по watchlist каждые interval.
type AlertWorker struct {
	*periodicWorker
	service    service.AlertService
	windowDays int
}

func NewAlertWorker(service service.AlertService, interval time.Duration, windowDays int) *AlertWorker {
	w := &AlertWorker{
		service:    service,
		windowDays: windowDays,
	}
	w.periodicWorker = newPeriodicWorker("alerts", interval, -1, 2*time.Minute, w.generate)
	return w
}

func (w *AlertWorker) generate(ctx context.Context) error {
	created, err := w.service.GenerateAlerts(ctx, w.windowDays)
	if err != nil {
		return err
	}
	if created > 0 {
		w.log.WithField("created", created).Info("New alerts generated")
	}
	return nil
}
