package docstore

import (
	"bytes"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/document"
	"github.com/mike-ai-lab/ConstructLM-sub002/internal/metrics"
)

// ErrDocumentNotFound is returned by Get for an unknown document ID
var ErrDocumentNotFound = errors.New("document not found")

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// Config holds document store connection settings
type Config struct {
	Driver       string
	DSN          string
	Table        string
	MaxOpenConns int
}

// Store reads documents written by the upload pipeline. It never writes.
// The table is expected to carry id, name, kind, raw_text and content columns.
type Store struct {
	db     *sqlx.DB
	table  string
	logger *zap.Logger
}

type documentRow struct {
	ID         string         `db:"id"`
	Name       string         `db:"name"`
	Kind       string         `db:"kind"`
	RawText    sql.NullString `db:"raw_text"`
	HasContent bool           `db:"has_content"`
}

// Open connects with the postgres or sqlite3 driver and verifies the connection
func Open(cfg Config, logger *zap.Logger) (*Store, error) {
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = 5
	}
	db, err := sqlx.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open document store: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxOpenConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping document store: %w", err)
	}

	s, err := New(db, cfg.Table, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	logger.Info("Document store connected",
		zap.String("driver", cfg.Driver),
		zap.String("table", s.table))
	return s, nil
}

// New wraps an existing connection
func New(db *sqlx.DB, table string, logger *zap.Logger) (*Store, error) {
	if table == "" {
		table = "documents"
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid document table name %q", table)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, table: table, logger: logger}, nil
}

func (s *Store) selectColumns() string {
	return "SELECT id, name, kind, raw_text, content IS NOT NULL AS has_content FROM " + s.table
}

// Get loads one document by ID
func (s *Store) Get(ctx context.Context, id string) (*document.Document, error) {
	start := time.Now()
	var row documentRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(s.selectColumns()+" WHERE id = ?"), id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		metrics.RecordDocumentLookup("not_found", time.Since(start).Seconds())
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, id)
	case err != nil:
		metrics.RecordDocumentLookup("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to load document %s: %w", id, err)
	}
	metrics.RecordDocumentLookup("ok", time.Since(start).Seconds())
	doc := s.toDocument(row)
	return &doc, nil
}

// GetMany loads documents in the order of ids. Unknown IDs are skipped so the
// citations naming them resolve as "source not found" rather than failing.
func (s *Store) GetMany(ctx context.Context, ids []string) ([]document.Document, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	start := time.Now()
	query, args, err := sqlx.In(s.selectColumns()+" WHERE id IN (?)", ids)
	if err != nil {
		return nil, fmt.Errorf("failed to build document query: %w", err)
	}
	var rows []documentRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		metrics.RecordDocumentLookup("error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to load documents: %w", err)
	}
	metrics.RecordDocumentLookup("ok", time.Since(start).Seconds())

	byID := make(map[string]documentRow, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	docs := make([]document.Document, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		r, ok := byID[id]
		if !ok {
			s.logger.Info("Requested document not in store", zap.String("document_id", id))
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		docs = append(docs, s.toDocument(r))
	}
	return docs, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) toDocument(r documentRow) document.Document {
	doc := document.Document{
		ID:      r.ID,
		Name:    r.Name,
		Kind:    document.ParseKind(r.Kind),
		RawText: r.RawText.String,
	}
	if r.HasContent {
		doc.Binary = &blobHandle{store: s, id: r.ID}
	}
	return doc
}

// blobHandle loads a document's bytes on first use and keeps them
type blobHandle struct {
	store *Store
	id    string

	once sync.Once
	data []byte
	err  error
}

func (h *blobHandle) Open() (io.ReaderAt, int64, error) {
	h.once.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		var content []byte
		err := h.store.db.GetContext(ctx, &content,
			h.store.db.Rebind("SELECT content FROM "+h.store.table+" WHERE id = ?"), h.id)
		if err != nil {
			h.err = fmt.Errorf("failed to load content of %s: %w", h.id, err)
			return
		}
		h.data = content
	})
	if h.err != nil {
		return nil, 0, h.err
	}
	if len(h.data) == 0 {
		return nil, 0, document.ErrNoBinary
	}
	return bytes.NewReader(h.data), int64(len(h.data)), nil
}
