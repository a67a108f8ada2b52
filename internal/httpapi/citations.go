package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/document"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/render"
)

const defaultMaxBodyBytes = 8 << 20

// DocumentSource loads stored documents by ID
type DocumentSource interface {
	GetMany(ctx context.Context, ids []string) ([]document.Document, error)
}

// CitationHandler serves citation rendering and single lookups over HTTP
type CitationHandler struct {
	renderer *render.Renderer
	docs     DocumentSource
	limiter  *Limiter
	logger   *zap.Logger
	maxBody  int64
}

// Options configures a CitationHandler. Docs and Limiter are optional.
type Options struct {
	Docs         DocumentSource
	Limiter      *Limiter
	MaxBodyBytes int64
	Logger       *zap.Logger
}

func NewCitationHandler(r *render.Renderer, opts Options) *CitationHandler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	return &CitationHandler{
		renderer: r,
		docs:     opts.Docs,
		limiter:  opts.Limiter,
		logger:   opts.Logger,
		maxBody:  opts.MaxBodyBytes,
	}
}

// RegisterRoutes registers citation routes on the provided mux.
func (h *CitationHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.Handle("/v1/citations/render", wrap("/v1/citations/render", h.limiter, h.logger, h.handleRender))
	mux.Handle("/v1/citations/locate", wrap("/v1/citations/locate", h.limiter, h.logger, h.handleLocate))
}

// documentPayload is an inline document. Content is base64 in JSON.
type documentPayload struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	RawText string `json:"raw_text,omitempty"`
	Content []byte `json:"content,omitempty"`
}

type renderRequest struct {
	Text        string            `json:"text"`
	Documents   []documentPayload `json:"documents,omitempty"`
	DocumentIDs []string          `json:"document_ids,omitempty"`
}

type locateRequest struct {
	Source      string            `json:"source"`
	Hint        string            `json:"hint"`
	Quote       string            `json:"quote"`
	Documents   []documentPayload `json:"documents,omitempty"`
	DocumentIDs []string          `json:"document_ids,omitempty"`
}

type locateResponse struct {
	Citation render.Citation `json:"citation"`
}

func (h *CitationHandler) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	if !h.decode(w, r, &req) {
		return
	}
	docs, ok := h.loadDocuments(w, r, req.Documents, req.DocumentIDs)
	if !ok {
		return
	}
	ans := h.renderer.Render(r.Context(), req.Text, docs)
	h.logger.Info("Rendered answer",
		zap.String("request_id", RequestIDFrom(r.Context())),
		zap.String("session", ans.SessionID),
		zap.Int("citations", len(ans.Citations)),
		zap.Bool("retryable", ans.Retryable))
	writeJSON(w, http.StatusOK, ans)
}

func (h *CitationHandler) handleLocate(w http.ResponseWriter, r *http.Request) {
	var req locateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Source) == "" {
		writeError(w, http.StatusBadRequest, "source is required")
		return
	}
	docs, ok := h.loadDocuments(w, r, req.Documents, req.DocumentIDs)
	if !ok {
		return
	}
	c := h.renderer.Lookup(r.Context(), req.Source, req.Hint, req.Quote, docs)
	writeJSON(w, http.StatusOK, locateResponse{Citation: c})
}

func (h *CitationHandler) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return false
	}
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		h.logger.Warn("citation request decode error",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Error(err))
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return false
	}
	return true
}

// loadDocuments merges inline documents with stored ones, inline first
func (h *CitationHandler) loadDocuments(w http.ResponseWriter, r *http.Request, inline []documentPayload, ids []string) ([]document.Document, bool) {
	docs := make([]document.Document, 0, len(inline)+len(ids))
	for _, p := range inline {
		d := document.Document{
			ID:      p.ID,
			Name:    p.Name,
			Kind:    document.ParseKind(p.Kind),
			RawText: p.RawText,
		}
		if len(p.Content) > 0 {
			d.Binary = document.Bytes(p.Content)
		}
		docs = append(docs, d)
	}
	if len(ids) == 0 {
		return docs, true
	}
	if h.docs == nil {
		writeError(w, http.StatusBadRequest, "document_ids given but no document store is configured")
		return nil, false
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()
	stored, err := h.docs.GetMany(ctx, ids)
	if err != nil {
		h.logger.Error("failed to load documents",
			zap.String("request_id", RequestIDFrom(r.Context())),
			zap.Strings("document_ids", ids),
			zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load documents")
		return nil, false
	}
	return append(docs, stored...), true
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}
