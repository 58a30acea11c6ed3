package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/allegro/bigcache/v3"
)

type (
	CodeStoreOptions struct {
		TTL time.Duration
		// MaxEntries is a soft limit, once the cache is full the oldest
		// entries are dropped
		MaxEntries int
		Clock      func() time.Time
	}

	memCodeStore struct {
		cache *bigcache.BigCache
		now   func() time.Time
		ttl   time.Duration
	}

	codeEntry struct {
		Pending   Pending `json:"pending"`
		ExpiresAt int64   `json:"expires_at"`
	}
)

const (
	DefaultCodeTTL        = time.Hour
	DefaultCodeMaxEntries = 5000

	// generous upper bound for one encoded entry
	codeEntrySize = 512
)

// InMemoryCodeStore returns a CodeStore backed by bigcache.
//
// Expiration is checked on every read against opts.Clock, bigcache's own
// life window is only a backstop. Expired entries are removed by Sweep.
func InMemoryCodeStore(opts CodeStoreOptions) (CodeStore, error) {
	if opts.TTL <= 0 {
		opts.TTL = DefaultCodeTTL
	}
	if opts.MaxEntries <= 0 {
		opts.MaxEntries = DefaultCodeMaxEntries
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	cfg := bigcache.DefaultConfig(opts.TTL + time.Minute)
	cfg.Shards = 16
	cfg.CleanWindow = 0
	cfg.MaxEntriesInWindow = opts.MaxEntries
	cfg.MaxEntrySize = codeEntrySize
	cfg.HardMaxCacheSize = hardMaxMegabytes(opts.MaxEntries)
	cfg.Verbose = false
	cache, err := bigcache.NewBigCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("auth: unable to create code store, cause %w", err)
	}
	return &memCodeStore{
		cache: cache,
		now:   opts.Clock,
		ttl:   opts.TTL,
	}, nil
}

func hardMaxMegabytes(entries int) int {
	mb := (entries*codeEntrySize)/(1<<20) + 1
	return mb
}

func (m *memCodeStore) Put(ctx context.Context, code string, p Pending) error {
	buf, err := json.Marshal(codeEntry{Pending: p, ExpiresAt: m.now().Add(m.ttl).UnixNano()})
	if err != nil {
		return fmt.Errorf("auth: unable to encode pending operation, cause %w", err)
	}
	return m.cache.Set(code, buf)
}

func (m *memCodeStore) Get(ctx context.Context, code string) (Pending, bool, error) {
	buf, err := m.cache.Get(code)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return Pending{}, false, nil
	} else if err != nil {
		return Pending{}, false, err
	}
	entry, err := decodeCodeEntry(buf)
	if err != nil {
		return Pending{}, false, err
	}
	if m.expired(entry) {
		return Pending{}, false, nil
	}
	return entry.Pending, true, nil
}

func (m *memCodeStore) Delete(ctx context.Context, code string) error {
	err := m.cache.Delete(code)
	if errors.Is(err, bigcache.ErrEntryNotFound) {
		return nil
	}
	return err
}

func (m *memCodeStore) Sweep(ctx context.Context) (int, error) {
	var expired []string
	it := m.cache.Iterator()
	for it.SetNext() {
		info, err := it.Value()
		if err != nil {
			continue
		}
		entry, err := decodeCodeEntry(info.Value())
		if err != nil || m.expired(entry) {
			expired = append(expired, info.Key())
		}
		if ctx.Err() != nil {
			break
		}
	}
	removed := 0
	for _, code := range expired {
		if err := m.cache.Delete(code); err == nil {
			removed++
		}
	}
	return removed, ctx.Err()
}

func (m *memCodeStore) expired(e codeEntry) bool {
	return m.now().UnixNano() >= e.ExpiresAt
}

func decodeCodeEntry(buf []byte) (codeEntry, error) {
	var e codeEntry
	err := json.Unmarshal(buf, &e)
	if err != nil {
		return codeEntry{}, fmt.Errorf("auth: invalid pending operation in code store, cause %w", err)
	}
	return e, nil
}
