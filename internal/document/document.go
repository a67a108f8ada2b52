package document

import (
	"bytes"
	"errors"
	"io"
	"strings"
)

// Kind classifies how a document's content is represented
type Kind string

const (
	KindPDF       Kind = "pdf"
	KindTabular   Kind = "tabular"
	KindPlainText Kind = "plain_text"
	KindOther     Kind = "other"
)

// ErrNoBinary is returned when a PDF document carries no readable bytes
var ErrNoBinary = errors.New("document has no binary handle")

// ParseKind maps a free-form kind or MIME-ish string to a Kind.
// Unknown values map to KindOther.
func ParseKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "pdf", "application/pdf":
		return KindPDF
	case "tabular", "csv", "tsv", "xlsx", "xls", "spreadsheet", "text/csv":
		return KindTabular
	case "plain_text", "plaintext", "text", "txt", "md", "markdown", "text/plain":
		return KindPlainText
	default:
		return KindOther
	}
}

// Handle is an opaque reference to a document's original bytes
type Handle interface {
	Open() (io.ReaderAt, int64, error)
}

// Bytes is an in-memory Handle
type Bytes []byte

func (b Bytes) Open() (io.ReaderAt, int64, error) {
	if len(b) == 0 {
		return nil, 0, ErrNoBinary
	}
	return bytes.NewReader(b), int64(len(b)), nil
}

// Document is an uploaded source the answer may cite. Owned by the
// file-management layer; the engine treats it as read-only.
type Document struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Kind    Kind   `json:"kind"`
	RawText string `json:"raw_text,omitempty"`
	Binary  Handle `json:"-"`
}

// HasBinary reports whether the document's original bytes can be opened
func (d *Document) HasBinary() bool {
	if d == nil || d.Binary == nil {
		return false
	}
	if b, ok := d.Binary.(Bytes); ok {
		return len(b) > 0
	}
	return true
}
