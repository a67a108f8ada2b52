package docstore

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/document"
)

var columns = []string{"id", "name", "kind", "raw_text", "has_content"}

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	s, err := New(sqlx.NewDb(db, "sqlmock"), "uploaded_files", zaptest.NewLogger(t))
	require.NoError(t, err)
	return s, mock
}

func TestGet(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, kind, raw_text, content IS NOT NULL AS has_content FROM uploaded_files WHERE id = ?")).
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("doc-1", "data.xlsx", "xlsx", "a,b\n1,2", false))

	doc, err := s.Get(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "data.xlsx", doc.Name)
	assert.Equal(t, document.KindTabular, doc.Kind)
	assert.Equal(t, "a,b\n1,2", doc.RawText)
	assert.False(t, doc.HasBinary())

	mock.ExpectQuery("FROM uploaded_files WHERE id").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows(columns))
	_, err = s.Get(ctx, "ghost")
	assert.ErrorIs(t, err, ErrDocumentNotFound)

	mock.ExpectQuery("FROM uploaded_files WHERE id").
		WithArgs("boom").
		WillReturnError(errors.New("connection reset"))
	_, err = s.Get(ctx, "boom")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDocumentNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetManyKeepsRequestOrder(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM uploaded_files WHERE id IN (?, ?, ?)")).
		WithArgs("b", "missing", "a").
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("a", "a.txt", "text/plain", "hello", false).
			AddRow("b", "plans.pdf", "application/pdf", nil, true))

	docs, err := s.GetMany(context.Background(), []string{"b", "missing", "a"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "b", docs[0].ID)
	assert.Equal(t, document.KindPDF, docs[0].Kind)
	assert.True(t, docs[0].HasBinary())
	assert.Equal(t, "a", docs[1].ID)
	assert.Equal(t, document.KindPlainText, docs[1].Kind)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetManyEmpty(t *testing.T) {
	s, mock := newMockStore(t)
	docs, err := s.GetMany(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBlobHandleLoadsOnce(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery("FROM uploaded_files WHERE id").
		WithArgs("p").
		WillReturnRows(sqlmock.NewRows(columns).AddRow("p", "p.pdf", "pdf", nil, true))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT content FROM uploaded_files WHERE id = ?")).
		WithArgs("p").
		WillReturnRows(sqlmock.NewRows([]string{"content"}).AddRow([]byte("%PDF-1.7 body")))

	doc, err := s.Get(context.Background(), "p")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		ra, size, err := doc.Binary.Open()
		require.NoError(t, err)
		assert.EqualValues(t, 13, size)
		head := make([]byte, 8)
		_, err = ra.ReadAt(head, 0)
		if err != nil && !errors.Is(err, io.EOF) {
			t.Fatal(err)
		}
		assert.Equal(t, "%PDF-1.7", string(head))
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewRejectsUnsafeTable(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	_, err = New(sqlx.NewDb(db, "sqlmock"), "documents; DROP TABLE x", nil)
	assert.Error(t, err)

	s, err := New(sqlx.NewDb(db, "sqlmock"), "", nil)
	require.NoError(t, err)
	assert.Equal(t, "documents", s.table)

	_, err = New(sqlx.NewDb(db, "sqlmock"), "uploads.documents", nil)
	assert.NoError(t, err)
}
