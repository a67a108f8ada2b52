package render

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/citation"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/document"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/locator"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/metrics"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/source"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/tracing"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/util"
)

const (
	surfaceAnswer = "answer"
	surfacePopup  = "popup"
)

// Locator finds a quote inside a matched document
type Locator interface {
	Locate(ctx context.Context, doc *document.Document, hint, quote string) (locator.Result, error)
}

// Renderer runs the tokenizer, the source matcher and the locator over an
// answer, one session per top-level render.
type Renderer struct {
	matcher atomic.Pointer[source.Matcher]
	locator Locator
	logger  *zap.Logger
}

func New(matcher *source.Matcher, loc Locator, logger *zap.Logger) *Renderer {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Renderer{locator: loc, logger: logger}
	r.UseMatcher(matcher)
	return r
}

// UseMatcher swaps the source matcher used by subsequent renders. nil restores
// the default matcher.
func (r *Renderer) UseMatcher(m *source.Matcher) {
	if m == nil {
		m = source.NewMatcher()
	}
	r.matcher.Store(m)
}

// Render tokenizes and resolves a complete answer in a fresh session
func (r *Renderer) Render(ctx context.Context, text string, docs []document.Document) Answer {
	return r.RenderSession(ctx, citation.NewSession(nil), text, docs)
}

// RenderSession renders an answer in s. The session counter is reset first,
// so rendering the same text twice assigns the same ordinals.
func (r *Renderer) RenderSession(ctx context.Context, s *citation.Session, text string, docs []document.Document) Answer {
	s.Reset()
	ctx, span := tracing.StartSpan(ctx, "citations.render",
		attribute.String("session.id", s.ID()),
		attribute.Int("documents", len(docs)))
	defer span.End()

	start := time.Now()
	ans := r.resolveAll(ctx, s, citation.Tokenize(s, text), docs)
	r.finish(s, ans, surfaceAnswer, start)

	span.SetAttributes(
		attribute.Int("citations", len(ans.Citations)),
		attribute.Bool("retryable", ans.Retryable))
	return ans
}

// RenderPopup opens a popup from content rendered in parent and renders body
// inside it. Thinking markers in body stay literal. Citations nested deeper
// than citation.MaxPopupDepth come back inert.
func (r *Renderer) RenderPopup(ctx context.Context, parent *citation.Session, body string, docs []document.Document) (Popup, error) {
	ctx, span := tracing.StartSpan(ctx, "citations.popup",
		attribute.String("session.id", parent.ID()),
		attribute.Int("depth", parent.Depth()))
	defer span.End()

	tok, closed, err := parent.Arbiter().Open(parent.Depth())
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Popup{}, err
	}

	start := time.Now()
	child := parent.Child()
	ans := r.resolveAll(ctx, child, citation.TokenizeBody(child, body), docs)
	r.finish(child, ans, surfacePopup, start)

	return Popup{Token: tok, Closed: closed, Answer: ans}, nil
}

// Lookup resolves a single citation outside of any answer text
func (r *Renderer) Lookup(ctx context.Context, sourceName, hint, quote string, docs []document.Document) Citation {
	ctx, span := tracing.StartSpan(ctx, "citations.lookup")
	defer span.End()

	c := r.resolve(ctx, citation.Token{
		SourceName:   strings.TrimSpace(sourceName),
		LocationHint: strings.TrimSpace(hint),
		Quote:        strings.TrimSpace(quote),
	}, docs)
	metrics.CitationsResolved.WithLabelValues(string(c.Status)).Inc()
	span.SetAttributes(attribute.String("status", string(c.Status)))
	return c
}

func (r *Renderer) resolveAll(ctx context.Context, s *citation.Session, segs []citation.Segment, docs []document.Document) Answer {
	ans := Answer{
		SessionID: s.ID(),
		Depth:     s.Depth(),
		Segments:  segs,
		Citations: []Citation{},
	}
	for _, tok := range citation.Citations(segs) {
		var c Citation
		if s.Interactive() {
			c = r.resolve(ctx, tok, docs)
		} else {
			c = baseCitation(tok, StatusInert)
		}
		if c.Status == StatusPending {
			ans.Retryable = true
		}
		metrics.CitationsResolved.WithLabelValues(string(c.Status)).Inc()
		ans.Citations = append(ans.Citations, c)
	}
	return ans
}

func (r *Renderer) resolve(ctx context.Context, tok citation.Token, docs []document.Document) Citation {
	match := r.matcher.Load().Resolve(tok.SourceName, docs)
	metrics.SourceMatches.WithLabelValues(match.Tier.String()).Inc()

	switch {
	case match.IsURL():
		c := baseCitation(tok, StatusURL)
		c.IsURL = true
		c.URL = match.URL
		c.MatchTier = match.Tier.String()
		return c
	case !match.Found():
		r.logger.Info("Citation source not found",
			zap.Int("ordinal", tok.Ordinal),
			zap.String("source", util.TruncateString(tok.SourceName, 120, true)),
			zap.Int("documents", len(docs)))
		return baseCitation(tok, StatusNotFound)
	}

	c := baseCitation(tok, StatusFound)
	c.MatchTier = match.Tier.String()
	c.DocumentID = match.Document.ID
	c.DocumentName = match.Document.Name

	if r.locator == nil {
		loc := locator.Excerpt(tok.LocationHint, tok.Quote)
		c.Location = &loc
		c.QuoteFound = true
		return c
	}

	res, err := r.locator.Locate(ctx, match.Document, tok.LocationHint, tok.Quote)
	c.Location = &res
	c.QuoteFound = res.Found()
	if errors.Is(err, locator.ErrEngineUnavailable) {
		c.Status = StatusPending
	} else if err != nil {
		r.logger.Warn("Quote lookup failed",
			zap.Int("ordinal", tok.Ordinal),
			zap.String("document", match.Document.ID),
			zap.Error(err))
		c.QuoteFound = false
	}
	return c
}

func (r *Renderer) finish(s *citation.Session, ans Answer, surface string, start time.Time) {
	if n := s.Malformed(); n > 0 {
		metrics.MalformedDirectives.Add(float64(n))
		r.logger.Debug("Malformed citation directives rendered as text",
			zap.String("session", s.ID()),
			zap.Int("count", n))
	}
	metrics.RecordAnswerMetrics(surface, ans.Retryable, time.Since(start).Seconds())
}

func baseCitation(tok citation.Token, status Status) Citation {
	return Citation{
		Ordinal:      tok.Ordinal,
		SourceName:   tok.SourceName,
		LocationHint: tok.LocationHint,
		Quote:        tok.Quote,
		Status:       status,
	}
}
