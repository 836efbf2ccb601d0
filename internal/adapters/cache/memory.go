package cache

import (
	"context"
	"sync"
	"time"
)

// Default memory backend configuration constants.
const (
	defaultJanitorInterval = 30 * time.Second
)

// MemoryOption applies a configuration option to the MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithJanitorInterval sets how often expired entries are swept.
func WithJanitorInterval(interval time.Duration) MemoryOption {
	return func(b *MemoryBackend) {
		if interval > 0 {
			b.janitorInterval = interval
		}
	}
}

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// MemoryBackend implements Backend over an RWMutex-guarded map.
// Expired entries are dropped lazily on read and swept periodically by
// a janitor goroutine.
type MemoryBackend struct {
	mu              sync.RWMutex
	entries         map[string]memoryEntry
	janitorInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
}

// NewMemoryBackend constructs a memory backend and starts its janitor.
func NewMemoryBackend(ctx context.Context, opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		entries:         make(map[string]memoryEntry),
		janitorInterval: defaultJanitorInterval,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.stopChan = make(chan struct{})
	b.startJanitor(ctx)

	return b
}

func (b *MemoryBackend) startJanitor(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.janitorInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-b.stopChan:
				return
			case <-ticker.C:
				b.sweep()
			}
		}
	}()
}

func (b *MemoryBackend) sweep() {
	now := time.Now()
	b.mu.Lock()
	for key, e := range b.entries {
		if now.After(e.expiresAt) {
			delete(b.entries, key)
		}
	}
	b.mu.Unlock()
}

// Close gracefully shuts down the janitor goroutine.
func (b *MemoryBackend) Close() error {
	select {
	case <-b.stopChan:
		// Channel already closed
	default:
		close(b.stopChan)
	}
	b.wg.Wait()
	return nil
}

// Get implements Backend.Get.
func (b *MemoryBackend) Get(ctx context.Context, key string) ([]byte, error) {
	b.mu.RLock()
	e, ok := b.entries[key]
	b.mu.RUnlock()

	if !ok {
		return nil, ErrCacheMiss
	}
	if time.Now().After(e.expiresAt) {
		b.mu.Lock()
		delete(b.entries, key)
		b.mu.Unlock()
		return nil, ErrCacheMiss
	}
	return e.value, nil
}

// Set implements Backend.Set.
func (b *MemoryBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	b.mu.Lock()
	b.entries[key] = memoryEntry{value: value, expiresAt: time.Now().Add(ttl)}
	b.mu.Unlock()
	return nil
}

// Delete implements Backend.Delete.
func (b *MemoryBackend) Delete(ctx context.Context, keys ...string) error {
	b.mu.Lock()
	for _, key := range keys {
		delete(b.entries, key)
	}
	b.mu.Unlock()
	return nil
}

// Len returns the number of live entries, for tests and stats.
func (b *MemoryBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}
