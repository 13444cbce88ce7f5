package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/miradorstack/mirador-triage/internal/models"
	"github.com/miradorstack/mirador-triage/internal/utils"
)

// FSStore keeps one JSON file per ISO week under a directory. Writes go
// through a temp file plus rename so a crash never leaves a half-written
// week behind.
type FSStore struct {
	dir string
}

// NewFSStore creates the directory if needed and returns the store.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, errors.New("snapshot dir is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	return &FSStore{dir: dir}, nil
}

// SaveWeek atomically replaces the week's file.
func (s *FSStore) SaveWeek(_ context.Context, record models.WeeklyRecord) error {
	if _, _, err := utils.ParseISOWeek(record.Week); err != nil {
		return err
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("encode week %s: %w", record.Week, err)
	}

	tmp, err := os.CreateTemp(s.dir, record.Week+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write snapshot %s: %w", record.Week, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close snapshot %s: %w", record.Week, err)
	}
	if err := os.Rename(tmpName, s.weekPath(record.Week)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot %s: %w", record.Week, err)
	}
	return nil
}

// LoadWeek reads one week's record.
func (s *FSStore) LoadWeek(_ context.Context, week string) (models.WeeklyRecord, error) {
	data, err := os.ReadFile(s.weekPath(week))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return models.WeeklyRecord{}, fmt.Errorf("week %s: %w", week, ErrWeekNotFound)
		}
		return models.WeeklyRecord{}, fmt.Errorf("read snapshot %s: %w", week, err)
	}
	var record models.WeeklyRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return models.WeeklyRecord{}, fmt.Errorf("decode snapshot %s: %w", week, err)
	}
	return record, nil
}

// ListWeeks returns week keys newest first. Zero-padded ISO week keys sort
// lexicographically in chronological order.
func (s *FSStore) ListWeeks(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	weeks := make([]string, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		week := strings.TrimSuffix(name, ".json")
		if _, _, err := utils.ParseISOWeek(week); err != nil {
			continue
		}
		weeks = append(weeks, week)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(weeks)))
	return weeks, nil
}

// Prune removes weeks beyond the retention count, oldest first.
func (s *FSStore) Prune(ctx context.Context, retainWeeks int) (int, error) {
	if retainWeeks < 0 {
		retainWeeks = 0
	}
	weeks, err := s.ListWeeks(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, week := range weeks[minInt(retainWeeks, len(weeks)):] {
		if err := os.Remove(s.weekPath(week)); err != nil {
			return removed, fmt.Errorf("prune snapshot %s: %w", week, err)
		}
		removed++
	}
	return removed, nil
}

func (s *FSStore) weekPath(week string) string {
	return filepath.Join(s.dir, week+".json")
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
