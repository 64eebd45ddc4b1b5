// Package natskv stores suggestion dictionaries in a NATS JetStream
// key-value bucket, one JSON document per canonical key. Writes are
// compare-and-swap so several servers can share the bucket.
package natskv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/clock"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

const DefaultBucket = "SUGGESTIONS"

type Config struct {
	URL     string
	Bucket  string
	Timeout time.Duration
}

type Store struct {
	bucket     bucket
	conn       *nats.Conn
	retry      models.RetryStrategy
	clock      clock.Clock
	logger     *slog.Logger
	timeout    time.Duration
	fetchLimit int
}

type Option func(*Store)

func WithRetry(strategy models.RetryStrategy) Option {
	return func(s *Store) {
		s.retry = strategy
	}
}

func WithClock(c clock.Clock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

func WithFetchLimit(n int) Option {
	return func(s *Store) {
		s.fetchLimit = n
	}
}

func newStore(b bucket, opts ...Option) *Store {
	s := &Store{
		bucket: b,
		retry:  models.DefaultRetryStrategy,
		clock:  clock.Real(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// New wraps an existing bucket.
func New(kv jetstream.KeyValue, opts ...Option) *Store {
	return newStore(jsBucket{kv: kv}, opts...)
}

// Dial connects to NATS and opens the bucket named in cfg, creating it if it
// does not exist yet.
func Dial(ctx context.Context, cfg Config, opts ...Option) (*Store, error) {
	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}

	nc, err := nats.Connect(cfg.URL, nats.Name("suggestion-store"))
	if err != nil {
		return nil, fmt.Errorf("%w: connect %s: %v", models.ErrStoreUnavailable, cfg.URL, err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	kv, err := js.KeyValue(ctx, cfg.Bucket)
	if errors.Is(err, jetstream.ErrBucketNotFound) {
		kv, err = js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
			Bucket:      cfg.Bucket,
			Description: "field suggestions",
			History:     1,
		})
		if err != nil {
			// another server may have created it first
			kv, err = js.KeyValue(ctx, cfg.Bucket)
		}
	}
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("open bucket %s: %w", cfg.Bucket, err)
	}

	s := New(kv, opts...)
	s.conn = nc
	s.timeout = cfg.Timeout
	return s, nil
}

// Close drains the connection opened by Dial.
func (s *Store) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}

func (s *Store) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout > 0 {
		return context.WithTimeout(ctx, s.timeout)
	}
	return ctx, func() {}
}

func (s *Store) Fetch(ctx context.Context, key, query string) ([]models.Suggestion, error) {
	name, err := bucketKey(key)
	if err != nil {
		return nil, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	dict, _, err := s.load(ctx, name)
	if err != nil {
		return nil, err
	}
	return dict.Find(name, query, s.fetchLimit), nil
}

func (s *Store) Save(ctx context.Context, key, value string) error {
	name, err := bucketKey(key)
	if err != nil {
		return err
	}
	if strings.TrimSpace(value) == "" {
		return models.ErrEmptyValue
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	attempt := 0
	err = withRetry(ctx, s.retry, func() error {
		attempt++
		dict, rev, err := s.load(ctx, name)
		if err != nil {
			return err
		}
		dict.Upsert(value, s.clock.Now())
		data, err := json.Marshal(dict)
		if err != nil {
			return err
		}
		if rev == 0 {
			_, err = s.bucket.create(ctx, name, data)
		} else {
			_, err = s.bucket.update(ctx, name, data, rev)
		}
		if errors.Is(err, errConflict) {
			s.logger.Debug("suggestion save conflict", "key", name, "attempt", attempt)
		}
		return s.wrap(err)
	})
	return err
}

// Delete removes value from key. When the last value goes the bucket key is
// deleted as well.
func (s *Store) Delete(ctx context.Context, key, value string) (bool, error) {
	name, err := bucketKey(key)
	if err != nil {
		return false, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	removed := false
	err = withRetry(ctx, s.retry, func() error {
		removed = false
		dict, rev, err := s.load(ctx, name)
		if err != nil || rev == 0 {
			return err
		}
		if !dict.Remove(value) {
			return nil
		}
		removed = true
		if dict.Len() == 0 {
			return s.wrap(s.bucket.remove(ctx, name, rev))
		}
		data, err := json.Marshal(dict)
		if err != nil {
			return err
		}
		_, err = s.bucket.update(ctx, name, data, rev)
		return s.wrap(err)
	})
	if err != nil {
		return false, err
	}
	return removed, nil
}

func (s *Store) Len(ctx context.Context, key string) (int, error) {
	name, err := bucketKey(key)
	if err != nil {
		return 0, err
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	dict, _, err := s.load(ctx, name)
	if err != nil {
		return 0, err
	}
	return dict.Len(), nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	keys, err := s.bucket.keys(ctx)
	if err != nil {
		return nil, s.wrap(err)
	}
	sort.Strings(keys)
	return keys, nil
}

// load returns the dictionary stored under name and its revision. A missing
// key yields an empty dictionary at revision 0.
func (s *Store) load(ctx context.Context, name string) (*models.SuggestionDict, uint64, error) {
	raw, rev, err := s.bucket.get(ctx, name)
	if errors.Is(err, errNotFound) {
		return models.NewSuggestionDict(), 0, nil
	}
	if err != nil {
		return nil, 0, s.wrap(err)
	}

	dict := models.NewSuggestionDict()
	if err := json.Unmarshal(raw, dict); err != nil {
		return nil, 0, fmt.Errorf("decode %s: %w", name, err)
	}
	if dict.Entries == nil {
		dict.Entries = make(map[string]*models.Suggestion)
	}
	return dict, rev, nil
}

func (s *Store) wrap(err error) error {
	if err == nil || errors.Is(err, errConflict) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %v", models.ErrStoreUnavailable, err)
}

// bucketKey maps a canonical key onto the characters a KV key may hold.
func bucketKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return "", models.ErrEmptyKey
	}
	var b strings.Builder
	b.Grow(len(key))
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-', r == '=':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String(), nil
}
