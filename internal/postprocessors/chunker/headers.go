package chunker

import (
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"
)

// HeaderKind names the numbering scheme a header row detects.
type HeaderKind string

// Header kinds.
const (
	HeaderChapter   HeaderKind = "chapter"
	HeaderArticle   HeaderKind = "article"
	HeaderSection   HeaderKind = "section"
	HeaderPart      HeaderKind = "part"
	HeaderParagraph HeaderKind = "paragraph"
	HeaderMarkdown  HeaderKind = "markdown"
	HeaderDotted    HeaderKind = "dotted"
)

// HeaderPattern is one row of the header detection table. Pattern must
// define the named groups "num" and "title".
type HeaderPattern struct {
	Kind    HeaderKind
	Pattern *regexp.Regexp
}

// numberExpr matches arabic or roman chapter numbers with optional dotted parts.
const numberExpr = `(?P<num>(?:\d+|[IVXLCDM]+)(?:\.\d+)*)`

// titleExpr separates the number from the title and captures the rest of
// the line. A title running past the limit means the line is prose.
const titleExpr = `(?:[ \t]*[.:\-–—][ \t]*|[ \t]+|[ \t]*$)(?P<title>[^\n]{0,160})$`

// headerRow matches a keyword (case-insensitive) followed by a number.
func headerRow(kind HeaderKind, keywords string) HeaderPattern {
	return HeaderPattern{
		Kind:    kind,
		Pattern: regexp.MustCompile(`(?m)^[ \t#*]*(?i:` + keywords + `)[ \t]+` + numberExpr + titleExpr),
	}
}

// Headers is the ordered header detection table. Earlier rows win when two
// rows match at the same offset. New numbering schemes are added as rows.
var Headers = []HeaderPattern{
	headerRow(HeaderChapter, `chapter|глава`),
	headerRow(HeaderArticle, `article|статья`),
	headerRow(HeaderSection, `section|раздел`),
	headerRow(HeaderPart, `part|часть`),
	{
		Kind: HeaderParagraph,
		Pattern: regexp.MustCompile(
			`(?m)^[ \t#*]*(?:§|(?i:paragraph|параграф)[ \t])[ \t]*` + numberExpr + titleExpr),
	},
	{
		Kind: HeaderMarkdown,
		Pattern: regexp.MustCompile(
			`(?m)^#{1,6}[ \t]+(?P<num>\d+(?:\.\d+)*)\.?[ \t]+(?P<title>[^\n]{1,160})$`),
	},
	{
		Kind: HeaderDotted,
		Pattern: regexp.MustCompile(
			`(?m)^[ \t]*(?P<num>\d+(?:\.\d+)+)\.?[ \t]+(?P<title>\p{Lu}[^\n]{0,160})$`),
	},
}

// Header is a detected header occurrence.
type Header struct {
	// Offset is the rune offset of the header line in the scanned text.
	Offset int

	Number string
	Title  string
	Kind   HeaderKind

	// Line is the full header line.
	Line string
}

// FindHeaders scans text with every row of Headers and returns matches
// ordered by offset. At equal offsets the earlier row wins.
func FindHeaders(text string) []Header {
	type hit struct {
		byteOffset int
		row        int
		header     Header
	}

	var hits []hit
	for row, hp := range Headers {
		numIdx := hp.Pattern.SubexpIndex("num")
		titleIdx := hp.Pattern.SubexpIndex("title")
		for _, m := range hp.Pattern.FindAllStringSubmatchIndex(text, -1) {
			line := strings.TrimSpace(text[m[0]:m[1]])
			h := Header{
				Number: strings.TrimSuffix(text[m[2*numIdx]:m[2*numIdx+1]], "."),
				Kind:   hp.Kind,
				Line:   line,
			}
			if titleIdx >= 0 && m[2*titleIdx] >= 0 {
				h.Title = cleanTitle(text[m[2*titleIdx]:m[2*titleIdx+1]])
			}
			hits = append(hits, hit{byteOffset: m[0], row: row, header: h})
		}
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].byteOffset != hits[j].byteOffset {
			return hits[i].byteOffset < hits[j].byteOffset
		}
		return hits[i].row < hits[j].row
	})

	headers := make([]Header, 0, len(hits))
	lastByte, runeOffset := 0, 0
	for i, h := range hits {
		if i > 0 && h.byteOffset == hits[i-1].byteOffset {
			continue
		}
		runeOffset += utf8.RuneCountInString(text[lastByte:h.byteOffset])
		lastByte = h.byteOffset
		h.header.Offset = runeOffset
		headers = append(headers, h.header)
	}
	return headers
}

// FirstOccurrences drops headers whose number was already seen, so in-text
// mentions of an earlier chapter do not open a new one.
func FirstOccurrences(headers []Header) []Header {
	seen := make(map[string]struct{}, len(headers))
	out := headers[:0:0]
	for _, h := range headers {
		if _, ok := seen[h.Number]; ok {
			continue
		}
		seen[h.Number] = struct{}{}
		out = append(out, h)
	}
	return out
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, "*#")
	return strings.TrimSpace(s)
}
