package worker

import (
	"sync"
	"time"

	"cosmicwatch/internal/logger"
)

const stopTimeout = 10 * time.Second

// Worker: фоновая задача с собственным циклом (ingest, alerts).
type Worker interface {
	Name() string
	Start()
	Stop()
}

// Scheduler запускает воркеры один раз за жизнь процесса. После Stop
// повторный Start ничего не делает: сервер к этому моменту уже гасится.
type Scheduler struct {
	mu      sync.RWMutex
	workers []Worker
	started sync.WaitGroup
	stopped bool
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) AddWorker(w Worker) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.workers = append(s.workers, w)
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	log := logger.Component("scheduler")
	if len(s.workers) == 0 {
		log.Info("No background workers configured")
		return
	}

	names := make([]string, 0, len(s.workers))
	for _, w := range s.workers {
		names = append(names, w.Name())
		s.started.Add(1)
		go func(w Worker) {
			defer s.started.Done()
			w.Start()
		}(w)
	}
	log.WithField("workers", names).Info("Scheduler started")
}

// Stop останавливает воркеры по очереди; текущие синхронизации
// прерываются через контекст. Ждет не дольше stopTimeout.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	workers := s.workers
	s.mu.Unlock()

	log := logger.Component("scheduler")
	s.started.Wait()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, w := range workers {
			w.Stop()
		}
	}()

	select {
	case <-done:
		log.Info("Scheduler stopped")
	case <-time.After(stopTimeout):
		log.Warnf("Workers did not stop within %v", stopTimeout)
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !s.stopped
}
