package natskv

import (
	"context"
	"errors"
	"strings"

	"github.com/nats-io/nats.go/jetstream"
)

var (
	errNotFound = errors.New("kv: key not found")
	errConflict = errors.New("kv: revision mismatch")
)

// bucket is the part of a JetStream key-value bucket the store uses.
type bucket interface {
	get(ctx context.Context, key string) ([]byte, uint64, error)
	create(ctx context.Context, key string, value []byte) (uint64, error)
	update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error)
	remove(ctx context.Context, key string, revision uint64) error
	keys(ctx context.Context) ([]string, error)
}

type jsBucket struct {
	kv jetstream.KeyValue
}

func (b jsBucket) get(ctx context.Context, key string) ([]byte, uint64, error) {
	entry, err := b.kv.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return nil, 0, errNotFound
		}
		return nil, 0, err
	}
	return entry.Value(), entry.Revision(), nil
}

func (b jsBucket) create(ctx context.Context, key string, value []byte) (uint64, error) {
	rev, err := b.kv.Create(ctx, key, value)
	if isConflict(err) {
		return 0, errConflict
	}
	return rev, err
}

func (b jsBucket) update(ctx context.Context, key string, value []byte, revision uint64) (uint64, error) {
	rev, err := b.kv.Update(ctx, key, value, revision)
	if isConflict(err) {
		return 0, errConflict
	}
	return rev, err
}

func (b jsBucket) remove(ctx context.Context, key string, revision uint64) error {
	err := b.kv.Delete(ctx, key, jetstream.LastRevision(revision))
	if isConflict(err) {
		return errConflict
	}
	return err
}

func (b jsBucket) keys(ctx context.Context) ([]string, error) {
	keys, err := b.kv.Keys(ctx)
	if errors.Is(err, jetstream.ErrNoKeysFound) {
		return []string{}, nil
	}
	return keys, err
}

func isNotFound(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "key not found") || strings.Contains(msg, "10037")
}

// isConflict reports a failed compare-and-swap: the key already exists or
// its revision moved on.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "wrong last sequence") ||
		strings.Contains(msg, "10071") ||
		strings.Contains(msg, "key exists") ||
		strings.Contains(msg, "10058")
}
