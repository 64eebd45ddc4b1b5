package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/tomasbukis-maker/TMS-NEW-sub003/internal/core/models"
	"github.com/tomasbukis-maker/TMS-NEW-sub003/pkg/resp"
)

// DefaultSyncInterval is how often buffered journal writes are fsynced.
const DefaultSyncInterval = time.Second

// AOF is an append-only journal of RESP values. A sidecar lock file keeps a
// second process from appending to the same journal.
type AOF struct {
	path   string
	file   *os.File
	lock   *flock.Flock
	mu     sync.Mutex
	stop   chan struct{}
	wg     sync.WaitGroup
	closed bool
}

func NewAOF(path string, syncInterval time.Duration) (*AOF, error) {
	lock := flock.New(path + ".lock")
	locked, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock journal %s: %w", path, err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", path, models.ErrJournalLocked)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0644)
	if err != nil {
		_ = lock.Unlock()
		return nil, err
	}

	if syncInterval <= 0 {
		syncInterval = DefaultSyncInterval
	}
	aof := &AOF{
		path: path,
		file: f,
		lock: lock,
		stop: make(chan struct{}),
	}

	aof.wg.Add(1)
	go aof.syncLoop(syncInterval)

	return aof, nil
}

func (aof *AOF) syncLoop(interval time.Duration) {
	defer aof.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			aof.mu.Lock()
			if !aof.closed {
				_ = aof.file.Sync()
			}
			aof.mu.Unlock()
		case <-aof.stop:
			return
		}
	}
}

// Path returns the journal file path.
func (aof *AOF) Path() string { return aof.path }

func (aof *AOF) Close() error {
	aof.mu.Lock()
	if aof.closed {
		aof.mu.Unlock()
		return nil
	}
	aof.closed = true
	close(aof.stop)
	aof.mu.Unlock()

	aof.wg.Wait()

	err := errors.Join(aof.file.Sync(), aof.file.Close())
	return errors.Join(err, aof.lock.Unlock())
}

func (aof *AOF) Write(value models.Value) error {
	aof.mu.Lock()
	defer aof.mu.Unlock()
	if aof.closed {
		return os.ErrClosed
	}

	w := resp.NewWriter(aof.file)
	if err := w.Write(value); err != nil {
		return err
	}
	return w.Flush()
}

// Read replays the journal from the start. A trailing entry cut short by a
// crash is truncated away so later appends start on a clean boundary.
func (aof *AOF) Read(callback func(value models.Value)) error {
	aof.mu.Lock()
	defer aof.mu.Unlock()
	if aof.closed {
		return os.ErrClosed
	}

	if _, err := aof.file.Seek(0, io.SeekStart); err != nil {
		return err
	}

	var offset int64
	reader := resp.NewReader(aof.file)
	for {
		value, err := reader.Read()
		if err == io.EOF {
			return nil
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return aof.file.Truncate(offset)
		}
		if err != nil {
			return fmt.Errorf("journal %s at offset %d: %w", aof.path, offset, err)
		}
		offset += int64(resp.Size(value))
		callback(value)
	}
}
