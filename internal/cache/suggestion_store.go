package cache

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/clock"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/ports"
)

const (
	cmdSave   = "SUGSAVE"
	cmdDelete = "SUGDEL"
)

// MemoryStore keeps one suggestion dictionary per canonical key. With a
// journal attached every mutation is appended before it is applied, and
// Restore rebuilds the dictionaries after a restart.
type MemoryStore struct {
	mu         sync.RWMutex
	dicts      map[string]*models.SuggestionDict
	clock      clock.Clock
	journal    ports.Storage
	fetchLimit int
}

type StoreOption func(*MemoryStore)

func WithJournal(journal ports.Storage) StoreOption {
	return func(s *MemoryStore) {
		s.journal = journal
	}
}

func WithClock(c clock.Clock) StoreOption {
	return func(s *MemoryStore) {
		s.clock = c
	}
}

// WithFetchLimit caps the entries returned per Fetch. Zero means no cap.
func WithFetchLimit(n int) StoreOption {
	return func(s *MemoryStore) {
		s.fetchLimit = n
	}
}

func NewMemoryStore(opts ...StoreOption) *MemoryStore {
	s := &MemoryStore{
		dicts: make(map[string]*models.SuggestionDict),
		clock: clock.Real(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Fetch(ctx context.Context, key, query string) ([]models.Suggestion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	key, err := checkKey(key)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	dict, exists := s.dicts[key]
	if !exists {
		return []models.Suggestion{}, nil
	}
	return dict.Find(key, query, s.fetchLimit), nil
}

func (s *MemoryStore) Save(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key, err := checkKey(key)
	if err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return models.ErrEmptyValue
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	at := s.clock.Now()
	if s.journal != nil {
		entry := models.Bulks(cmdSave, key, value, strconv.FormatInt(at.UnixNano(), 10))
		if err := s.journal.Write(entry); err != nil {
			return fmt.Errorf("journal save %s: %w", key, err)
		}
	}
	s.dict(key).Upsert(value, at)
	return nil
}

// Delete removes value from key. It reports whether the value existed.
func (s *MemoryStore) Delete(ctx context.Context, key, value string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	key, err := checkKey(key)
	if err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dict, exists := s.dicts[key]
	if !exists {
		return false, nil
	}
	if _, found := dict.Entries[models.Normalize(value)]; !found {
		return false, nil
	}
	if s.journal != nil {
		if err := s.journal.Write(models.Bulks(cmdDelete, key, value)); err != nil {
			return false, fmt.Errorf("journal delete %s: %w", key, err)
		}
	}
	dict.Remove(value)
	if dict.Len() == 0 {
		delete(s.dicts, key)
	}
	return true, nil
}

func (s *MemoryStore) Len(ctx context.Context, key string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	key, err := checkKey(key)
	if err != nil {
		return 0, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if dict, exists := s.dicts[key]; exists {
		return dict.Len(), nil
	}
	return 0, nil
}

// Keys returns every key holding at least one suggestion, sorted.
func (s *MemoryStore) Keys(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.dicts))
	for key := range s.dicts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

// Restore replays a journal into the store and returns the number of entries
// applied. Unknown or malformed entries are skipped.
func (s *MemoryStore) Restore(journal ports.Storage) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	applied := 0
	err := journal.Read(func(v models.Value) {
		if s.apply(v) {
			applied++
		}
	})
	return applied, err
}

func (s *MemoryStore) apply(v models.Value) bool {
	switch {
	case v.IsCommand(cmdSave) && len(v.Array) == 4:
		nanos, err := strconv.ParseInt(v.Array[3].Bulk, 10, 64)
		if err != nil {
			return false
		}
		s.dict(v.Array[1].Bulk).Upsert(v.Array[2].Bulk, time.Unix(0, nanos).UTC())
		return true
	case v.IsCommand(cmdDelete) && len(v.Array) == 3:
		key := v.Array[1].Bulk
		dict, exists := s.dicts[key]
		if !exists {
			return false
		}
		dict.Remove(v.Array[2].Bulk)
		if dict.Len() == 0 {
			delete(s.dicts, key)
		}
		return true
	default:
		return false
	}
}

func (s *MemoryStore) dict(key string) *models.SuggestionDict {
	dict, exists := s.dicts[key]
	if !exists {
		dict = models.NewSuggestionDict()
		s.dicts[key] = dict
	}
	return dict
}

func checkKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return "", models.ErrEmptyKey
	}
	return key, nil
}
