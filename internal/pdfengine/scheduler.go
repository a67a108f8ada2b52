package pdfengine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/document"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/metrics"
)

// ErrSuperseded is returned to a caller whose render was cancelled by a newer
// request for the same page.
var ErrSuperseded = errors.New("render superseded by a newer request")

const (
	defaultCacheTTL      = 30 * time.Minute
	defaultRenderTimeout = 20 * time.Second
)

// taskKey identifies a page by document content, not document ID
type taskKey struct {
	fingerprint string
	page        int
}

type task struct {
	cancel     context.CancelFunc
	superseded bool
}

// Options tunes a Scheduler
type Options struct {
	Cache         GeometryCache
	CacheTTL      time.Duration
	RenderTimeout time.Duration
	Logger        *zap.Logger
}

// Scheduler serialises page extraction per (document content, page). Starting a
// render for a page that is already being rendered cancels the earlier one.
type Scheduler struct {
	extractor Extractor
	cache     GeometryCache
	ttl       time.Duration
	timeout   time.Duration
	logger    *zap.Logger

	mu       sync.Mutex
	inflight map[taskKey]*task

	// afterDecode runs between the decode and layout steps; tests use it to
	// interleave competing renders.
	afterDecode func(page int)
}

func NewScheduler(opts Options) *Scheduler {
	s := &Scheduler{
		cache:    opts.Cache,
		ttl:      opts.CacheTTL,
		timeout:  opts.RenderTimeout,
		logger:   opts.Logger,
		inflight: make(map[taskKey]*task),
	}
	if s.ttl <= 0 {
		s.ttl = defaultCacheTTL
	}
	if s.timeout <= 0 {
		s.timeout = defaultRenderTimeout
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	return s
}

// Render returns the geometry of one page, from cache when possible
func (s *Scheduler) Render(ctx context.Context, doc *document.Document, page int) (*PageGeometry, error) {
	if doc == nil || !doc.HasBinary() {
		return nil, ErrEngineUnavailable
	}
	ra, size, err := doc.Binary.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	fp, err := Fingerprint(ra, size)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}

	key := taskKey{fingerprint: fp, page: page}
	cacheKey := MakeKey(fp, page)
	if s.cache != nil {
		if g, ok := s.cache.Get(ctx, cacheKey); ok {
			metrics.PageRenders.WithLabelValues("cache_hit").Inc()
			return g, nil
		}
	}

	ctx, t := s.begin(ctx, key)
	start := time.Now()
	g, err := s.run(ctx, doc, page)
	superseded := s.finish(key, t)
	metrics.PageRenderDuration.Observe(time.Since(start).Seconds())

	switch {
	case superseded:
		metrics.PageRenders.WithLabelValues("superseded").Inc()
		s.logger.Debug("Page render superseded",
			zap.String("document", doc.ID),
			zap.Int("page", page))
		return nil, ErrSuperseded
	case err != nil:
		metrics.PageRenders.WithLabelValues("error").Inc()
		return nil, err
	}

	metrics.PageRenders.WithLabelValues("rendered").Inc()
	if s.cache != nil {
		s.cache.Set(context.WithoutCancel(ctx), cacheKey, g, s.ttl)
	}
	return g, nil
}

func (s *Scheduler) run(ctx context.Context, doc *document.Document, page int) (*PageGeometry, error) {
	d, err := s.extractor.Decode(doc, page)
	if err != nil {
		return nil, err
	}
	if s.afterDecode != nil {
		s.afterDecode(page)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.extractor.Layout(d)
}

// begin registers a new task for key, cancelling whatever was in flight
func (s *Scheduler) begin(parent context.Context, key taskKey) (context.Context, *task) {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	t := &task{cancel: cancel}

	s.mu.Lock()
	if prev, ok := s.inflight[key]; ok {
		prev.superseded = true
		prev.cancel()
	}
	s.inflight[key] = t
	s.mu.Unlock()
	return ctx, t
}

// finish releases the task and reports whether it was superseded
func (s *Scheduler) finish(key taskKey, t *task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.cancel()
	if s.inflight[key] == t {
		delete(s.inflight, key)
	}
	return t.superseded
}

// InFlight returns the number of renders currently running
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}
