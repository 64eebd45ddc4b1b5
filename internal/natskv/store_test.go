package natskv

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/clock"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
)

type record struct {
	value    []byte
	revision uint64
}

// fakeBucket mimics JetStream revision semantics. conflicts forces the next
// n writes to fail as if another writer got there first.
type fakeBucket struct {
	mu        sync.Mutex
	data      map[string]record
	seq       uint64
	conflicts int
	writes    int
	err       error
}

func newFakeBucket() *fakeBucket {
	return &fakeBucket{data: make(map[string]record)}
}

func (b *fakeBucket) get(_ context.Context, key string) ([]byte, uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return nil, 0, b.err
	}
	rec, ok := b.data[key]
	if !ok {
		return nil, 0, errNotFound
	}
	return rec.value, rec.revision, nil
}

func (b *fakeBucket) conflict() bool {
	b.writes++
	if b.conflicts > 0 {
		b.conflicts--
		b.seq++
		return true
	}
	return false
}

func (b *fakeBucket) create(_ context.Context, key string, value []byte) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.data[key]; ok || b.conflict() {
		return 0, errConflict
	}
	b.seq++
	b.data[key] = record{value: value, revision: b.seq}
	return b.seq, nil
}

func (b *fakeBucket) update(_ context.Context, key string, value []byte, revision uint64) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conflict() || b.data[key].revision != revision {
		return 0, errConflict
	}
	b.seq++
	b.data[key] = record{value: value, revision: b.seq}
	return b.seq, nil
}

func (b *fakeBucket) remove(_ context.Context, key string, revision uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.conflict() || b.data[key].revision != revision {
		return errConflict
	}
	delete(b.data, key)
	return nil
}

func (b *fakeBucket) keys(context.Context) ([]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys, nil
}

var fastRetry = models.RetryStrategy{
	MaxAttempts:     4,
	InitialInterval: time.Millisecond,
	MaxInterval:     2 * time.Millisecond,
	Multiplier:      2,
}

func newTestStore(b *fakeBucket) *Store {
	clk := clock.NewFake(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	return newStore(b, WithRetry(fastRetry), WithClock(clk))
}

func TestStoreSaveAndFetch(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeBucket())

	require.NoError(t, s.Save(ctx, "city", "Vilnius"))
	require.NoError(t, s.Save(ctx, "city", "Kaunas"))
	require.NoError(t, s.Save(ctx, "City", "VILNIUS"))

	got, err := s.Fetch(ctx, "city", "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Vilnius", got[0].Value)
	assert.Equal(t, 2, got[0].UsageCount)
	assert.Equal(t, "city", got[0].SourceKey)

	got, err = s.Fetch(ctx, "city", "kau")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Kaunas", got[0].Value)

	got, err = s.Fetch(ctx, "country", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStoreSaveRetriesConflicts(t *testing.T) {
	ctx := context.Background()
	b := newFakeBucket()
	s := newTestStore(b)
	require.NoError(t, s.Save(ctx, "notes", "Fragile"))

	b.conflicts = 2
	require.NoError(t, s.Save(ctx, "notes", "Fragile"))

	n, err := s.Len(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	got, err := s.Fetch(ctx, "notes", "")
	require.NoError(t, err)
	assert.Equal(t, 2, got[0].UsageCount)
	assert.Equal(t, 4, b.writes)
}

func TestStoreSaveGivesUp(t *testing.T) {
	b := newFakeBucket()
	b.conflicts = 100
	s := newTestStore(b)

	err := s.Save(context.Background(), "notes", "Fragile")
	assert.ErrorIs(t, err, models.ErrConflictRetries)
	assert.Equal(t, fastRetry.MaxAttempts, b.writes)
}

func TestStoreConcurrentSavesAreNotLost(t *testing.T) {
	ctx := context.Background()
	s := newStore(newFakeBucket(), WithRetry(models.RetryStrategy{
		MaxAttempts:     50,
		InitialInterval: 100 * time.Microsecond,
		MaxInterval:     time.Millisecond,
		Multiplier:      1.5,
	}))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, s.Save(ctx, "cargo_type", "Pallets"))
		}()
	}
	wg.Wait()

	got, err := s.Fetch(ctx, "cargo_type", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 10, got[0].UsageCount)
}

func TestStoreErrors(t *testing.T) {
	ctx := context.Background()
	b := newFakeBucket()
	s := newTestStore(b)

	assert.ErrorIs(t, s.Save(ctx, "", "x"), models.ErrEmptyKey)
	assert.ErrorIs(t, s.Save(ctx, "city", " "), models.ErrEmptyValue)

	b.err = errors.New("nats: timeout")
	_, err := s.Fetch(ctx, "city", "")
	assert.ErrorIs(t, err, models.ErrStoreUnavailable)
	assert.ErrorIs(t, s.Save(ctx, "city", "Vilnius"), models.ErrStoreUnavailable)
}

func TestStoreDeleteAndKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(newFakeBucket())
	require.NoError(t, s.Save(ctx, "vehicle_type", "Tent"))
	require.NoError(t, s.Save(ctx, "vehicle_type", "Reefer"))
	require.NoError(t, s.Save(ctx, "city", "Riga"))

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"city", "vehicle_type"}, keys)

	removed, err := s.Delete(ctx, "vehicle_type", "tent")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, "vehicle_type", "Tent")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = s.Delete(ctx, "city", "Riga")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = s.Delete(ctx, "country", "Latvia")
	require.NoError(t, err)
	assert.False(t, removed)

	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"vehicle_type"}, keys)
}

func TestBucketKey(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "cargo_description", want: "cargo_description"},
		{in: " City ", want: "city"},
		{in: "route.from city", want: "route_from_city"},
		{in: "  ", wantErr: models.ErrEmptyKey},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := bucketKey(tt.in)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsConflict(t *testing.T) {
	assert.True(t, isConflict(errors.New("nats: wrong last sequence: 4")))
	assert.True(t, isConflict(errors.New("nats: API error: code=400 err_code=10071")))
	assert.False(t, isConflict(errors.New("nats: timeout")))
	assert.False(t, isConflict(nil))
	assert.True(t, isNotFound(errors.New("nats: key not found")))
}
