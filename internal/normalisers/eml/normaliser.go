// Package eml extracts text from saved email messages (.eml).
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/normalisers/html"
	"github.com/custodia-labs/docscope/internal/normalisers/plaintext"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles EML (email) documents. The text is a short header block
// followed by the body; HTML-only bodies go through the html normaliser.
type Normaliser struct {
	html *html.Normaliser
}

// New creates a new EML normaliser.
func New() *Normaliser {
	return &Normaliser{html: html.New()}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"message/rfc822"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 50 // Generic MIME normaliser
}

// Normalise converts an EML document to plain text.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	msg, err := mail.ReadMessage(bytes.NewReader(raw.Content))
	if err != nil {
		return nil, fmt.Errorf("%w: not an email message: %w", domain.ErrInvalidInput, err)
	}

	body, err := n.extractBody(ctx, msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, err
	}

	var content strings.Builder
	for _, h := range []string{"From", "To", "Date", "Subject"} {
		if v := decodeHeader(msg.Header.Get(h)); v != "" {
			content.WriteString(h)
			content.WriteString(": ")
			content.WriteString(v)
			content.WriteByte('\n')
		}
	}
	content.WriteByte('\n')
	content.WriteString(body)

	return &driven.NormaliseResult{
		Document: domain.Document{Content: strings.TrimSpace(content.String())},
	}, nil
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := &mime.WordDecoder{CharsetReader: charsetReader}
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

// extractBody returns the text of a message or part. Multipart bodies prefer
// text/plain alternatives over text/html ones.
func (n *Normaliser) extractBody(ctx context.Context, contentType, transferEncoding string, r io.Reader) (string, error) {
	if contentType == "" {
		contentType = "text/plain"
	}
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, params = "text/plain", nil
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return n.extractMultipart(ctx, r, params["boundary"])
	}

	raw, err := io.ReadAll(decodeTransfer(transferEncoding, r))
	if err != nil {
		return "", fmt.Errorf("%w: read body: %w", domain.ErrInvalidInput, err)
	}
	text, err := decodeCharset(params["charset"], raw)
	if err != nil {
		return "", err
	}

	switch mediaType {
	case "text/html":
		result, err := n.html.Normalise(ctx, &domain.RawDocument{MIMEType: mediaType, Content: []byte(text)})
		if err != nil {
			return "", err
		}
		return result.Document.Content, nil
	case "text/plain":
		return text, nil
	default:
		return "", nil
	}
}

func (n *Normaliser) extractMultipart(ctx context.Context, r io.Reader, boundary string) (string, error) {
	if boundary == "" {
		return "", nil
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: multipart: %w", domain.ErrInvalidInput, err)
		}

		contentType := part.Header.Get("Content-Type")
		text, err := n.extractBody(ctx, contentType, part.Header.Get("Content-Transfer-Encoding"), part)
		_ = part.Close() //nolint:errcheck // parts are read to completion
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}

		if strings.HasPrefix(strings.ToLower(contentType), "text/html") {
			htmlParts = append(htmlParts, text)
		} else {
			textParts = append(textParts, text)
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n"), nil
	}
	return strings.Join(htmlParts, "\n"), nil
}

// decodeTransfer undoes base64 and quoted-printable encodings.
func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	default:
		return r
	}
}

// decodeCharset converts a declared charset to UTF-8. Undeclared content is
// handed to plaintext.Decode, which guesses between UTF-8 and Windows-1251.
func decodeCharset(charset string, b []byte) (string, error) {
	cs := strings.ToLower(strings.TrimSpace(charset))
	if cs == "" || cs == "utf-8" || cs == "us-ascii" {
		return plaintext.Decode(b)
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return plaintext.Decode(b)
	}
	decoded, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", fmt.Errorf("%w: charset %s: %w", domain.ErrInvalidInput, cs, err)
	}
	return plaintext.Decode(decoded)
}

func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, err
	}
	return enc.NewDecoder().Reader(input), nil
}
