package cache

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/VictoriaMetrics/fastcache"
)

const (
	defaultMemoryBytes = 32 * 1024 * 1024
	defaultMemoryTTL   = 10 * time.Minute

	// expiryLen is the size of the expiry stamp stored ahead of every payload.
	expiryLen = 8
)

// Memory keeps entries in a process-local fastcache. The dependency index lives beside
// it; evicted or expired entries simply miss.
type Memory struct {
	data *fastcache.Cache
	ttl  time.Duration
	now  func() time.Time

	mu   sync.Mutex
	deps map[string]map[string]struct{}
}

// NewMemory creates a memory cache bounded to maxBytes (32MiB when maxBytes <= 0) whose
// entries expire after ttl (ten minutes when ttl <= 0).
func NewMemory(maxBytes int, ttl time.Duration) *Memory {
	if maxBytes <= 0 {
		maxBytes = defaultMemoryBytes
	}

	if ttl <= 0 {
		ttl = defaultMemoryTTL
	}

	return &Memory{
		data: fastcache.New(maxBytes),
		ttl:  ttl,
		now:  time.Now,
		deps: make(map[string]map[string]struct{}),
	}
}

func (m *Memory) Get(_ context.Context, key string, dst any) (bool, error) {
	body, ok := m.data.HasGet(nil, []byte(key))
	if !ok {
		return false, nil
	}

	if len(body) < expiryLen || m.now().UnixNano() >= int64(binary.BigEndian.Uint64(body)) {
		m.data.Del([]byte(key))

		return false, nil
	}

	err := json.Unmarshal(body[expiryLen:], dst)
	if err != nil {
		return false, fmt.Errorf("failed to decode cache entry %s: %w", key, err)
	}

	return true, nil
}

func (m *Memory) Set(_ context.Context, key string, value any, deps []string) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry %s: %w", key, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := make([]byte, expiryLen, expiryLen+len(body))
	binary.BigEndian.PutUint64(entry, uint64(m.now().Add(m.ttl).UnixNano()))

	m.data.Set([]byte(key), append(entry, body...))

	for _, dep := range deps {
		keys, ok := m.deps[dep]
		if !ok {
			keys = make(map[string]struct{})
			m.deps[dep] = keys
		}

		keys[key] = struct{}{}
	}

	return nil
}

func (m *Memory) Invalidate(_ context.Context, scopeID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.deps[scopeID] {
		m.data.Del([]byte(key))
	}

	delete(m.deps, scopeID)

	return nil
}

// Reset drops every entry.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data.Reset()
	m.deps = make(map[string]map[string]struct{})
}
