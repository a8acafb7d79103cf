package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
)

const wordNS = `xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"`

// createTestDOCX creates a minimal valid DOCX file in memory.
func createTestDOCX(t *testing.T, body string) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	contentTypes, err := w.Create("[Content_Types].xml")
	require.NoError(t, err)
	_, err = contentTypes.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`))
	require.NoError(t, err)

	if body != "" {
		doc, err := w.Create("word/document.xml")
		require.NoError(t, err)
		_, err = doc.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document ` + wordNS + `><w:body>` + body + `</w:body></w:document>`))
		require.NoError(t, err)
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func normalise(t *testing.T, body string) string {
	t.Helper()
	result, err := New().Normalise(context.Background(), &domain.RawDocument{
		Name:     "contract.docx",
		MIMEType: MIMEType,
		Content:  createTestDOCX(t, body),
	})
	require.NoError(t, err)
	return result.Document.Content
}

func TestSupportedMIMETypes(t *testing.T) {
	assert.Equal(t, []string{MIMEType}, New().SupportedMIMETypes())
}

func TestPriority(t *testing.T) {
	assert.Equal(t, 50, New().Priority())
}

func TestNormalise_Paragraphs(t *testing.T) {
	content := normalise(t, `
<w:p><w:r><w:t>The supplier delivers goods.</w:t></w:r></w:p>
<w:p><w:r><w:t xml:space="preserve">The buyer </w:t></w:r><w:r><w:t>pays on delivery.</w:t></w:r></w:p>`)

	assert.Equal(t, "The supplier delivers goods.\nThe buyer pays on delivery.", content)
}

func TestNormalise_HeadingStyles(t *testing.T) {
	content := normalise(t, `
<w:p><w:pPr><w:pStyle w:val="Title"/></w:pPr><w:r><w:t>Supply agreement</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Heading2"/></w:pPr><w:r><w:t>1. Subject</w:t></w:r></w:p>
<w:p><w:pPr><w:pStyle w:val="Normal"/></w:pPr><w:r><w:t>Body text.</w:t></w:r></w:p>`)

	assert.Equal(t, "# Supply agreement\n## 1. Subject\nBody text.", content)
}

func TestNormalise_TableRows(t *testing.T) {
	content := normalise(t, `
<w:tbl>
<w:tr><w:tc><w:p><w:r><w:t>Item</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>Price</w:t></w:r></w:p></w:tc></w:tr>
<w:tr><w:tc><w:p><w:r><w:t>Steel</w:t></w:r></w:p></w:tc><w:tc><w:p><w:r><w:t>100</w:t></w:r></w:p></w:tc></w:tr>
</w:tbl>
<w:p><w:r><w:t>After the table.</w:t></w:r></w:p>`)

	assert.Equal(t, "Item | Price\nSteel | 100\nAfter the table.", content)
}

func TestNormalise_TabsAndBreaks(t *testing.T) {
	content := normalise(t, `<w:p><w:r><w:t>a</w:t><w:tab/><w:t>b</w:t><w:br/><w:t>c</w:t></w:r></w:p>`)

	assert.Equal(t, "a\tb c", content)
}

func TestNormalise_Errors(t *testing.T) {
	n := New()

	t.Run("nil document", func(t *testing.T) {
		_, err := n.Normalise(context.Background(), nil)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("not a zip", func(t *testing.T) {
		_, err := n.Normalise(context.Background(), &domain.RawDocument{Content: []byte("plain text")})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("missing document part", func(t *testing.T) {
		_, err := n.Normalise(context.Background(), &domain.RawDocument{Content: createTestDOCX(t, "")})
		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		assert.Contains(t, err.Error(), "word/document.xml")
	})
}

func TestHeadingLevel(t *testing.T) {
	tests := map[string]int{
		"Title":     1,
		"Heading1":  1,
		"heading 3": 3,
		"Heading9":  0,
		"Normal":    0,
		"":          0,
	}
	for style, want := range tests {
		assert.Equal(t, want, headingLevel(style), style)
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.Normaliser = (*Normaliser)(nil)
}
