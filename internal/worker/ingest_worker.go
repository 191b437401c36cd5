package worker

import (
	"context"
	"time"

	"cosmicwatch/internal/clients"
	"cosmicwatch/internal/service"
)

// IngestWorker раз в interval синхронизирует фид на неделю вперед.
// Первый (догоняющий) запуск происходит через initialDelay после старта и
// повторяется каждые retryDelay, пока NeoWs не ответит успешно.
type IngestWorker struct {
	*periodicWorker
	service service.AsteroidService
	now     func() time.Time
}

func NewIngestWorker(service service.AsteroidService, interval, initialDelay, retryDelay time.Duration) *IngestWorker {
	w := &IngestWorker{
		service: service,
		now:     time.Now,
	}
	if initialDelay < 0 {
		initialDelay = 0
	}
	w.periodicWorker = newPeriodicWorker("ingest", interval, initialDelay, 5*time.Minute, w.sync)
	w.retryDelay = retryDelay
	return w
}

func (w *IngestWorker) sync(ctx context.Context) error {
	start := clients.TruncateDay(w.now().UTC())
	end := start.AddDate(0, 0, clients.MaxFeedDays)

	result, err := w.service.SyncFeed(ctx, start, end)
	if err != nil {
		return err
	}

	w.log.WithField("fetched", result.Fetched).
		WithField("synced", result.Synced).
		WithField("failed", result.Failed).
		Info("Ingest run completed")
	return nil
}
