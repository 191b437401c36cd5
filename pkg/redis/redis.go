package redis

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"cosmicwatch/internal/logger"

	"github.com/go-redis/redis/v8"
)

type Config struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func Connect(config Config) (*redis.Client, error) {
	addr := fmt.Sprintf("%s:%s", config.Host, config.Port)

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     config.Password,
		DB:           config.DB,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
		IdleTimeout:  5 * time.Minute,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Проверяем подключение
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	log := logger.Component("redis")
	info, err := client.Info(ctx, "server").Result()
	if err != nil {
		log.Warnf("Failed to get Redis info: %v", err)
	} else {
		log.WithField("addr", addr).WithField("version", parseInfo(info)["redis_version"]).Info("Redis connected")
	}

	return client, nil
}

var targetMetrics = []string{
	"redis_version",
	"connected_clients",
	"used_memory_human",
	"used_memory_peak_human",
	"total_connections_received",
	"total_commands_processed",
	"keyspace_hits",
	"keyspace_misses",
	"uptime_in_seconds",
}

// GetStats возвращает выбранные поля INFO и долю попаданий в кэш.
func GetStats(ctx context.Context, client *redis.Client) (map[string]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	info, err := client.Info(ctx).Result()
	if err != nil {
		return nil, err
	}

	all := parseInfo(info)
	stats := make(map[string]string, len(targetMetrics)+1)
	for _, key := range targetMetrics {
		if value, ok := all[key]; ok {
			stats[key] = value
		}
	}

	hits := ParseFloat(stats["keyspace_hits"])
	misses := ParseFloat(stats["keyspace_misses"])
	if total := hits + misses; total > 0 {
		stats["keyspace_hit_ratio"] = strconv.FormatFloat(hits/total, 'f', 3, 64)
	}

	return stats, nil
}

func parseInfo(info string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(info, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line[0] == '#' {
			continue
		}
		if key, value, found := strings.Cut(line, ":"); found {
			fields[key] = value
		}
	}
	return fields
}

func ParseFloat(s string) float64 {
	if s == "" {
		return 0
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return val
}
