package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mike-ai-lab/ConstructLM-sub002/internal/document"
)

func docs(names ...string) []document.Document {
	out := make([]document.Document, len(names))
	for i, n := range names {
		out[i] = document.Document{ID: n, Name: n}
	}
	return out
}

func TestResolveTiers(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		docs     []document.Document
		wantName string
		wantTier Tier
	}{
		{"exact", "Report.pdf", docs("Other.pdf", "report.pdf"), "report.pdf", TierExact},
		{"trimmed and case folded", "  REPORT.PDF ", docs("report.pdf"), "report.pdf", TierExact},
		{"source without extension", "Report", docs("Report.pdf"), "Report.pdf", TierExtension},
		{"document without extension", "Report.pdf", docs("Report"), "Report", TierExtension},
		{"different extension", "budget.csv", docs("budget.xlsx"), "budget.xlsx", TierExtension},
		{"duplicate suffix on source", "invoice (2).pdf", docs("invoice.pdf"), "invoice.pdf", TierDuplicate},
		{"duplicate suffix on document", "invoice.pdf", docs("invoice (3).pdf"), "invoice (3).pdf", TierDuplicate},
		{"containment source inside", "Floor Plan", docs("Level 2 floor plan rev B.pdf"), "Level 2 floor plan rev B.pdf", TierContainment},
		{"containment document inside", "Project specs - structural.pdf", docs("specs"), "specs", TierContainment},
		{"exact beats earlier containment", "plan.pdf", docs("site plan.pdf", "plan.pdf"), "plan.pdf", TierExact},
		{"full width characters", "ＲＥＰＯＲＴ.pdf", docs("report.pdf"), "report.pdf", TierExact},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Resolve(tt.source, tt.docs)
			require.True(t, m.Found())
			require.NotNil(t, m.Document)
			assert.Equal(t, tt.wantName, m.Document.Name)
			assert.Equal(t, tt.wantTier, m.Tier)
		})
	}
}

func TestResolveNotFound(t *testing.T) {
	tests := []struct {
		name   string
		source string
		docs   []document.Document
	}{
		{"no documents", "a.pdf", nil},
		{"empty source", "   ", docs("a.pdf")},
		{"unrelated", "budget.xlsx", docs("plan.pdf", "notes.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := Resolve(tt.source, tt.docs)
			assert.False(t, m.Found())
			assert.Nil(t, m.Document)
			assert.Equal(t, TierNone, m.Tier)
		})
	}
}

func TestResolveContainmentDisabled(t *testing.T) {
	m := NewMatcher(WithContainment(false)).Resolve("plan", docs("site plan.pdf"))
	assert.False(t, m.Found())
}

func TestResolveContainmentTieBreak(t *testing.T) {
	// Both names contain "report"; the one sharing the longer prefix wins
	m := Resolve("report", docs("annual report.pdf", "report summary.pdf"))
	require.NotNil(t, m.Document)
	assert.Equal(t, "report summary.pdf", m.Document.Name)

	// Same prefix: the closer length wins
	m = Resolve("report", docs("report for the full year.pdf", "reports.pdf"))
	require.NotNil(t, m.Document)
	assert.Equal(t, "reports.pdf", m.Document.Name)

	// Full tie: input order
	m = Resolve("x", docs("a x", "b x"))
	require.NotNil(t, m.Document)
	assert.Equal(t, "a x", m.Document.Name)
}

func TestResolveReturnsPointerIntoInput(t *testing.T) {
	in := docs("a.pdf")
	m := Resolve("a.pdf", in)
	assert.Same(t, &in[0], m.Document)
}

func TestResolveURL(t *testing.T) {
	m := Resolve("https://example.com/doc", docs("https://example.com/doc"))
	assert.True(t, m.Found())
	assert.True(t, m.IsURL())
	assert.Nil(t, m.Document)
	assert.Equal(t, TierURL, m.Tier)
	assert.Equal(t, "https://example.com/doc", m.URL.URL)
	assert.Equal(t, "example.com", m.URL.Domain)
}

func TestTierString(t *testing.T) {
	assert.Equal(t, "duplicate_suffix", TierDuplicate.String())
	assert.Equal(t, "none", Tier(99).String())
}
