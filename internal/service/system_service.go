package service

import (
	"context"
	"fmt"
	"strconv"

	"cosmicwatch/internal/repository"
)

type SystemStats struct {
	Asteroids  int64  `json:"asteroids"`
	Approaches int64  `json:"close_approaches"`
	Users      int64  `json:"users"`
	Alerts     int64  `json:"alerts"`
	SyncRuns   int64  `json:"sync_runs"`
	LastSync   string `json:"last_sync,omitempty"`
}

type SystemService interface {
	Stats(ctx context.Context) (*SystemStats, error)
}

type systemService struct {
	asteroidRepo repository.AsteroidRepository
	approachRepo repository.CloseApproachRepository
	userRepo     repository.UserRepository
	alertRepo    repository.AlertRepository
	cacheRepo    repository.CacheRepository
}

func NewSystemService(
	asteroidRepo repository.AsteroidRepository,
	approachRepo repository.CloseApproachRepository,
	userRepo repository.UserRepository,
	alertRepo repository.AlertRepository,
	cacheRepo repository.CacheRepository,
) SystemService {
	return &systemService{
		asteroidRepo: asteroidRepo,
		approachRepo: approachRepo,
		userRepo:     userRepo,
		alertRepo:    alertRepo,
		cacheRepo:    cacheRepo,
	}
}

func (s *systemService) Stats(ctx context.Context) (*SystemStats, error) {
	stats := &SystemStats{}
	var err error

	if stats.Asteroids, err = s.asteroidRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count asteroids: %w", err)
	}
	if stats.Approaches, err = s.approachRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count close approaches: %w", err)
	}
	if stats.Users, err = s.userRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if stats.Alerts, err = s.alertRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count alerts: %w", err)
	}

	// Счетчики синхронизаций живут в кэше и пропадают без Redis
	if runs, _ := s.cacheRepo.Get(ctx, syncRunsKey); runs != "" {
		stats.SyncRuns, _ = strconv.ParseInt(runs, 10, 64)
	}
	stats.LastSync, _ = s.cacheRepo.Get(ctx, lastSyncKey)

	return stats, nil
}
