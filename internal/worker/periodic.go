package worker

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"cosmicwatch/internal/logger"

	"github.com/sirupsen/logrus"
)

// periodicWorker выполняет task по тикеру. Если задан initialDelay >= 0,
// первый запуск происходит через initialDelay после Start; при retryDelay > 0
// он повторяется до первого успеха.
// Пока предыдущий запуск не закончился, новый пропускается.
type periodicWorker struct {
	name         string
	interval     time.Duration
	initialDelay time.Duration
	retryDelay   time.Duration
	timeout      time.Duration
	task         func(ctx context.Context) error
	log          *logrus.Entry

	mu       sync.Mutex
	running  bool
	busy     atomic.Bool
	stopChan chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc
}

func newPeriodicWorker(name string, interval, initialDelay, timeout time.Duration, task func(ctx context.Context) error) *periodicWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	return &periodicWorker{
		name:         name,
		interval:     interval,
		initialDelay: initialDelay,
		timeout:      timeout,
		task:         task,
		log:          logger.Component("worker").WithField("worker", name),
	}
}

func (w *periodicWorker) Name() string {
	return w.name
}

func (w *periodicWorker) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return
	}

	w.running = true
	w.stopChan = make(chan struct{})
	w.done = make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.log.Infof("Worker started with interval %v", w.interval)
	go w.run(ctx, w.stopChan, w.done)
}

// Stop прерывает текущий запуск через контекст и ждет выхода из цикла.
func (w *periodicWorker) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopChan)
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	w.log.Info("Worker stopped")
}

func (w *periodicWorker) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	if w.initialDelay >= 0 && !w.catchUp(ctx, stop) {
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.RunOnce(ctx)
		case <-stop:
			return
		}
	}
}

// catchUp возвращает false, если воркер остановили раньше успешного запуска.
func (w *periodicWorker) catchUp(ctx context.Context, stop <-chan struct{}) bool {
	delay := w.initialDelay
	for {
		timer := time.NewTimer(delay)
		select {
		case <-timer.C:
		case <-stop:
			timer.Stop()
			return false
		}

		ran, err := w.execute(ctx)
		if (ran && err == nil) || w.retryDelay <= 0 {
			return true
		}
		w.log.Warnf("Catch-up run did not succeed, retrying in %v", w.retryDelay)
		delay = w.retryDelay
	}
}

// RunOnce выполняет задачу один раз. Возвращает false, если предыдущий
// запуск еще идет.
func (w *periodicWorker) RunOnce(ctx context.Context) bool {
	ran, _ := w.execute(ctx)
	return ran
}

func (w *periodicWorker) execute(ctx context.Context) (bool, error) {
	if !w.busy.CompareAndSwap(false, true) {
		w.log.Warn("Previous run is still in progress, skipping")
		return false, nil
	}
	defer w.busy.Store(false)

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := w.safeRun(ctx); err != nil {
		w.log.WithField("duration", time.Since(start).String()).Errorf("Run failed: %v", err)
		return true, err
	}

	w.log.WithField("duration", time.Since(start).String()).Debug("Run completed")
	return true, nil
}

func (w *periodicWorker) safeRun(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.WithField("stack", string(debug.Stack())).Error("Recovered from panic")
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return w.task(ctx)
}
