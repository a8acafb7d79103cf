// Package docx extracts text from Word (.docx) uploads.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// MIMEType is the Office Open XML word-processing type.
const MIMEType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Normaliser handles DOCX documents. Heading-styled paragraphs are emitted
// as markdown headings so the structure detector sees them.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{MIMEType}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise converts a DOCX document to plain text.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, fmt.Errorf("%w: not a docx archive: %w", domain.ErrInvalidInput, err)
	}

	body, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, err
	}

	content, err := parseDocumentXML(body)
	if err != nil {
		return nil, fmt.Errorf("%w: word/document.xml: %w", domain.ErrInvalidInput, err)
	}

	return &driven.NormaliseResult{
		Document: domain.Document{Content: norm.NFC.String(content)},
	}, nil
}

// readPart returns the bytes of a named archive member.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open %s: %w", domain.ErrInvalidInput, name, err)
		}
		defer rc.Close()

		b, err := io.ReadAll(rc)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %w", domain.ErrInvalidInput, name, err)
		}
		return b, nil
	}
	return nil, fmt.Errorf("%w: missing %s", domain.ErrInvalidInput, name)
}

// parseDocumentXML walks the WordprocessingML token stream. Paragraphs become
// lines, table rows become " | "-joined lines, and Heading/Title styles
// become markdown headings.
func parseDocumentXML(content []byte) (string, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))

	var (
		out        strings.Builder
		para       strings.Builder
		style      string
		inText     bool
		tableDepth int
		cells      []string
	)

	flushParagraph := func() {
		text := strings.TrimSpace(para.String())
		para.Reset()
		if tableDepth > 0 {
			cells = append(cells, text)
			style = ""
			return
		}
		if text != "" {
			if level := headingLevel(style); level > 0 {
				out.WriteString(strings.Repeat("#", level))
				out.WriteByte(' ')
			}
			out.WriteString(text)
			out.WriteByte('\n')
		}
		style = ""
	}

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "tbl":
				tableDepth++
			case "tr":
				cells = cells[:0]
			case "pStyle":
				style = attr(t, "val")
			case "t":
				inText = true
			case "tab":
				para.WriteByte('\t')
			case "br", "cr":
				para.WriteByte(' ')
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				flushParagraph()
			case "tr":
				if row := joinCells(cells); row != "" {
					out.WriteString(row)
					out.WriteByte('\n')
				}
			case "tbl":
				tableDepth--
			}
		case xml.CharData:
			if inText {
				para.Write(t)
			}
		}
	}

	return strings.TrimSpace(out.String()), nil
}

// joinCells merges the paragraphs of one table row.
func joinCells(cells []string) string {
	parts := make([]string, 0, len(cells))
	for _, c := range cells {
		if c != "" {
			parts = append(parts, c)
		}
	}
	return strings.Join(parts, " | ")
}

// headingLevel maps paragraph styles such as "Heading2" or "Title" to a
// markdown heading depth. Other styles return 0.
func headingLevel(style string) int {
	s := strings.ToLower(strings.ReplaceAll(style, " ", ""))
	switch {
	case s == "title":
		return 1
	case strings.HasPrefix(s, "heading") && len(s) == len("heading")+1:
		level := int(s[len(s)-1] - '0')
		if level >= 1 && level <= 6 {
			return level
		}
	}
	return 0
}

func attr(el xml.StartElement, local string) string {
	for _, a := range el.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}
