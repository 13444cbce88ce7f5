package repo

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/miradorstack/mirador-triage/internal/config"
	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

const (
	valkeyWeekPrefix = "triage:snapshots:week:"
	valkeyWeekIndex  = "triage:snapshots:weeks"
)

// ValkeyStore persists weekly records in a Valkey/Redis-compatible server:
// one key per week plus a set indexing the known weeks.
type ValkeyStore struct {
	client *redis.Client
}

// NewValkeyStore connects to the configured Valkey server and pings it to
// fail fast on bad credentials or connectivity.
func NewValkeyStore(cfg config.CacheConfig) (*ValkeyStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("valkey addr is required")
	}
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxRetries:   cfg.MaxRetries,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)

	dialTimeout := cfg.DialTimeout
	if dialTimeout <= 0 {
		dialTimeout = 2 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, utils.NewAppError("valkey.connect", "snapshot store unreachable", err)
	}
	return &ValkeyStore{client: client}, nil
}

// SaveWeek replaces the week's record and registers it in the week index.
func (s *ValkeyStore) SaveWeek(ctx context.Context, record models.WeeklyRecord) error {
	if _, _, err := utils.ParseISOWeek(record.Week); err != nil {
		return err
	}
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode week %s: %w", record.Week, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, valkeyWeekPrefix+record.Week, data, 0)
	pipe.SAdd(ctx, valkeyWeekIndex, record.Week)
	if _, err := pipe.Exec(ctx); err != nil {
		return utils.NewAppError("valkey.save_week", "write failed for "+record.Week, err)
	}
	return nil
}

// LoadWeek reads one week's record, or ErrWeekNotFound.
func (s *ValkeyStore) LoadWeek(ctx context.Context, week string) (models.WeeklyRecord, error) {
	data, err := s.client.Get(ctx, valkeyWeekPrefix+week).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.WeeklyRecord{}, fmt.Errorf("week %s: %w", week, ErrWeekNotFound)
		}
		return models.WeeklyRecord{}, fmt.Errorf("load week %s: %w", week, err)
	}
	var record models.WeeklyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return models.WeeklyRecord{}, fmt.Errorf("decode week %s: %w", week, err)
	}
	return record, nil
}

// ListWeeks returns the indexed weeks newest first.
func (s *ValkeyStore) ListWeeks(ctx context.Context) ([]string, error) {
	weeks, err := s.client.SMembers(ctx, valkeyWeekIndex).Result()
	if err != nil {
		return nil, fmt.Errorf("list weeks: %w", err)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(weeks)))
	return weeks, nil
}

// Prune deletes weeks beyond the retention count, oldest first.
func (s *ValkeyStore) Prune(ctx context.Context, retainWeeks int) (int, error) {
	if retainWeeks < 0 {
		retainWeeks = 0
	}
	weeks, err := s.ListWeeks(ctx)
	if err != nil {
		return 0, err
	}
	if len(weeks) <= retainWeeks {
		return 0, nil
	}

	removed := 0
	for _, week := range weeks[retainWeeks:] {
		pipe := s.client.TxPipeline()
		pipe.Del(ctx, valkeyWeekPrefix+week)
		pipe.SRem(ctx, valkeyWeekIndex, week)
		if _, err := pipe.Exec(ctx); err != nil {
			return removed, fmt.Errorf("prune week %s: %w", week, err)
		}
		removed++
	}
	return removed, nil
}

// Close releases the underlying client.
func (s *ValkeyStore) Close() error {
	return s.client.Close()
}
