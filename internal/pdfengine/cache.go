package pdfengine

import (
	"container/list"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/circuitbreaker"
)

// GeometryCache stores extracted page geometry keyed by MakeKey
type GeometryCache interface {
	Get(ctx context.Context, key string) (*PageGeometry, bool)
	Set(ctx context.Context, key string, g *PageGeometry, ttl time.Duration)
}

// LocalLRU is a simple in-process LRU with TTL
type LocalLRU struct {
	mu   sync.Mutex
	cap  int
	list *list.List               // front = most recent
	m    map[string]*list.Element // key -> element
	now  func() time.Time
}

type lruEntry struct {
	key string
	geo *PageGeometry
	exp time.Time
}

func NewLocalLRU(capacity int) *LocalLRU {
	if capacity <= 0 {
		capacity = 256
	}
	return &LocalLRU{cap: capacity, list: list.New(), m: make(map[string]*list.Element, capacity), now: time.Now}
}

func (l *LocalLRU) Get(_ context.Context, key string) (*PageGeometry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if el, ok := l.m[key]; ok {
		ent := el.Value.(lruEntry)
		if ent.exp.After(l.now()) {
			l.list.MoveToFront(el)
			return ent.geo, true
		}
		// expired
		l.list.Remove(el)
		delete(l.m, key)
	}
	return nil, false
}

func (l *LocalLRU) Set(_ context.Context, key string, g *PageGeometry, ttl time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ent := lruEntry{key: key, geo: g, exp: l.now().Add(ttl)}
	if el, ok := l.m[key]; ok {
		el.Value = ent
		l.list.MoveToFront(el)
		return
	}
	l.m[key] = l.list.PushFront(ent)
	if l.list.Len() > l.cap {
		if lru := l.list.Back(); lru != nil {
			delete(l.m, lru.Value.(lruEntry).key)
			l.list.Remove(lru)
		}
	}
}

// Len returns the number of live and expired-but-unevicted entries
func (l *LocalLRU) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.list.Len()
}

// RedisCache shares geometry between replicas through circuit-breaker wrapped Redis
type RedisCache struct {
	cli    *circuitbreaker.RedisWrapper
	group  singleflight.Group
	logger *zap.Logger
}

func NewRedisCache(addr string, logger *zap.Logger) (*RedisCache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	rc := redis.NewClient(&redis.Options{Addr: addr})
	wrapper := circuitbreaker.NewRedisWrapper(rc, "pagegeo-cache", logger)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := wrapper.Ping(ctx); err != nil {
		_ = wrapper.Close()
		return nil, err
	}
	return &RedisCache{cli: wrapper, logger: logger}, nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (*PageGeometry, bool) {
	v, err, _ := r.group.Do(key, func() (interface{}, error) {
		b, err := r.cli.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		var g PageGeometry
		if err := json.Unmarshal(b, &g); err != nil {
			r.logger.Warn("Discarding undecodable cached geometry", zap.String("key", key), zap.Error(err))
			return nil, err
		}
		return &g, nil
	})
	if err != nil {
		return nil, false
	}
	return v.(*PageGeometry), true
}

func (r *RedisCache) Set(ctx context.Context, key string, g *PageGeometry, ttl time.Duration) {
	b, err := json.Marshal(g)
	if err != nil {
		return
	}
	if err := r.cli.Set(ctx, key, b, ttl); err != nil {
		r.logger.Debug("Geometry cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (r *RedisCache) Ping(ctx context.Context) error { return r.cli.Ping(ctx) }

// BreakerOpen reports whether Redis calls are being short-circuited
func (r *RedisCache) BreakerOpen() bool { return r.cli.IsOpen() }

func (r *RedisCache) Close() error { return r.cli.Close() }

// Tiered checks the local LRU before Redis and back-fills the local tier on a remote hit
type Tiered struct {
	Local  GeometryCache
	Remote GeometryCache
	// BackfillTTL bounds entries copied from Remote into Local
	BackfillTTL time.Duration
}

func (t Tiered) Get(ctx context.Context, key string) (*PageGeometry, bool) {
	if t.Local != nil {
		if g, ok := t.Local.Get(ctx, key); ok {
			return g, true
		}
	}
	if t.Remote != nil {
		if g, ok := t.Remote.Get(ctx, key); ok {
			if t.Local != nil {
				t.Local.Set(ctx, key, g, t.BackfillTTL)
			}
			return g, true
		}
	}
	return nil, false
}

func (t Tiered) Set(ctx context.Context, key string, g *PageGeometry, ttl time.Duration) {
	if t.Local != nil {
		t.Local.Set(ctx, key, g, ttl)
	}
	if t.Remote != nil {
		t.Remote.Set(ctx, key, g, ttl)
	}
}

// Fingerprint digests a document's bytes. Cache and in-flight keys are built
// from it, so documents without an ID or re-uploaded under the same ID never
// share geometry.
func Fingerprint(ra io.ReaderAt, size int64) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, io.NewSectionReader(ra, 0, size)); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// MakeKey derives the cache key of a page from the document fingerprint
func MakeKey(fingerprint string, page int) string {
	return "pagegeo:" + fingerprint + ":" + strconv.Itoa(page)
}
