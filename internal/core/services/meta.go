package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/logger"
)

// Classification tuning.
const (
	// ClassificationSampleChars is how much of a document is classified.
	ClassificationSampleChars = 5000

	// minTypeHits is the fewest keyword hits a type needs to win.
	minTypeHits = 2

	// cyrillicRatioThreshold is the Cyrillic share of letters that makes a text Russian.
	cyrillicRatioThreshold = 0.3

	// charsPerPage approximates a printed page for size answers.
	charsPerPage = 1800
)

// MetaService builds and serves the cached per-document summary.
type MetaService struct {
	docs      driven.DocumentStore
	chunks    driven.ChunkStore
	metas     driven.MetaStore
	structure driven.StructureDetector
	now       func() time.Time
}

// NewMetaService creates a meta service.
func NewMetaService(
	docs driven.DocumentStore,
	chunks driven.ChunkStore,
	metas driven.MetaStore,
	structure driven.StructureDetector,
) *MetaService {
	return &MetaService{docs: docs, chunks: chunks, metas: metas, structure: structure, now: time.Now}
}

// Build computes the meta of a ready document and caches it.
func (s *MetaService) Build(ctx context.Context, documentID string) (*domain.DocumentMeta, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.build(ctx, doc)
}

func (s *MetaService) build(ctx context.Context, doc *domain.Document) (*domain.DocumentMeta, error) {
	if !doc.IsReady() {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrDocumentNotReady, doc.ID, doc.Status)
	}

	chunks, err := s.chunks.FetchAll(ctx, []string{doc.ID})
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}
	chapters := s.structure.DetectChapters(chunks, doc.Name)

	sample := doc.Content
	if sample == "" {
		sample = joinChunkSample(chunks)
	}
	sample = headRunes(sample, ClassificationSampleChars)

	totalChars := doc.TotalChars
	if totalChars == 0 && len(chunks) > 0 {
		totalChars = chunks[len(chunks)-1].EndChar
	}

	meta := &domain.DocumentMeta{
		DocumentID:    doc.ID,
		DocumentName:  doc.Name,
		TotalChapters: len(chapters),
		Chapters:      chapters,
		TotalChunks:   len(chunks),
		TotalChars:    totalChars,
		DocumentType:  ClassifyDocumentType(sample),
		Language:      DetectLanguage(sample),
		Status:        doc.Status,
		BuiltAt:       s.now(),
	}
	if err := s.metas.SaveMeta(ctx, meta); err != nil {
		return nil, fmt.Errorf("save meta: %w", err)
	}
	logger.Debug("Built meta for %s: %d chapters, %d chunks, %s/%s",
		doc.ID, meta.TotalChapters, meta.TotalChunks, meta.DocumentType, meta.Language)
	return meta, nil
}

// Get returns the cached meta, rebuilding it when missing or older than
// the document's last processing.
func (s *MetaService) Get(ctx context.Context, documentID string) (*domain.DocumentMeta, error) {
	doc, err := s.docs.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !doc.IsReady() {
		return nil, fmt.Errorf("%w: %s is %s", domain.ErrDocumentNotReady, doc.ID, doc.Status)
	}

	meta, err := s.metas.GetMeta(ctx, documentID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return s.build(ctx, doc)
	case err != nil:
		return nil, fmt.Errorf("get meta: %w", err)
	case meta.IsStale(doc):
		logger.Debug("Meta for %s is stale, rebuilding", documentID)
		return s.build(ctx, doc)
	}
	return meta, nil
}

// Document type keyword families, checked against a lowercased sample.
var documentTypeFamilies = []struct {
	docType domain.DocumentType
	words   []string
}{
	{domain.DocumentTypeLegal, []string{
		"article", "shall", "pursuant", "hereby", "hereinafter", "liability", "agreement", "law ",
		"статья", "закон", "кодекс", "федеральн", "постановлени", "настоящий договор", "в соответствии с",
	}},
	{domain.DocumentTypeBook, []string{
		"chapter", "he said", "she said", "prologue", "epilogue", "novel",
		"глава", "сказал", "сказала", "пролог", "эпилог", "роман",
	}},
	{domain.DocumentTypeCode, []string{
		"func ", "def ", "class ", "import ", "return ", "#include", "public static", "const ", "=> ",
	}},
	{domain.DocumentTypeAcademic, []string{
		"abstract", "methodology", "hypothesis", "et al", "references", "literature review", "findings",
		"аннотация", "методолог", "гипотез", "исследовани", "список литературы",
	}},
}

// ClassifyDocumentType picks the keyword family with the most hits. Ties
// for first place and fewer than two hits yield generic.
func ClassifyDocumentType(sample string) domain.DocumentType {
	lower := strings.ToLower(sample)
	best, bestHits, tie := domain.DocumentTypeGeneric, 0, false
	for _, family := range documentTypeFamilies {
		hits := 0
		for _, w := range family.words {
			hits += strings.Count(lower, w)
		}
		switch {
		case hits > bestHits:
			best, bestHits, tie = family.docType, hits, false
		case hits == bestHits && hits > 0:
			tie = true
		}
	}
	if tie || bestHits < minTypeHits {
		return domain.DocumentTypeGeneric
	}
	return best
}

// DetectLanguage compares Cyrillic and Latin letters.
func DetectLanguage(sample string) string {
	var cyrillic, latin int
	for _, r := range sample {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
			cyrillic++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	letters := cyrillic + latin
	switch {
	case letters == 0:
		return domain.LanguageUnknown
	case float64(cyrillic)/float64(letters) >= cyrillicRatioThreshold:
		return domain.LanguageRussian
	default:
		return domain.LanguageEnglish
	}
}

// quickQuestion is a question shape answerable from meta alone.
type quickQuestion int

const (
	questionNone quickQuestion = iota
	questionChapterCount
	questionContents
	questionSize
)

var quickPatterns = []struct {
	kind    quickQuestion
	pattern *regexp.Regexp
}{
	{questionChapterCount, regexp.MustCompile(
		`(?i)how many (chapters|sections|articles|parts)|number of (chapters|sections|articles)|` +
			`сколько (глав|разделов|статей|частей)|количество (глав|разделов|статей)`)},
	{questionContents, regexp.MustCompile(
		`(?i)table of contents|list (of )?(the |all )?(chapters|sections)|what (chapters|sections)|` +
			`\boutline\b|оглавлени|содержани[ея]|список (глав|разделов)|какие (главы|разделы)|перечисли (главы|разделы)`)},
	{questionSize, regexp.MustCompile(
		`(?i)how (long|big|large) is|how many (pages|words|characters|chunks)|` +
			`(document|file) (size|length)|size of the (document|file)|` +
			`какой (объ[её]м|размер)|сколько (страниц|символов|слов)|(размер|длина|объ[её]м) (документа|файла)`)},
}

func classifyQuestion(question string) quickQuestion {
	for _, p := range quickPatterns {
		if p.pattern.MatchString(question) {
			return p.kind
		}
	}
	return questionNone
}

// QuickAnswer answers structural questions (chapter count, table of
// contents, size) from meta without retrieval.
func (s *MetaService) QuickAnswer(ctx context.Context, documentID, question string) (string, bool) {
	kind := classifyQuestion(question)
	if kind == questionNone {
		return "", false
	}
	meta, err := s.Get(ctx, documentID)
	if err != nil {
		logger.Debug("quick answer unavailable for %s: %v", documentID, err)
		return "", false
	}

	ru := DetectLanguage(question) == domain.LanguageRussian
	switch kind {
	case questionChapterCount:
		return chapterCountAnswer(meta, ru), true
	case questionContents:
		return contentsAnswer(meta, ru), true
	default:
		return sizeAnswer(meta, ru), true
	}
}

// hasDetectedChapters reports whether the chapter list came from headers
// rather than the whole-document fallback.
func hasDetectedChapters(meta *domain.DocumentMeta) bool {
	return !(len(meta.Chapters) == 1 && meta.Chapters[0].Title == meta.DocumentName)
}

func chapterCountAnswer(meta *domain.DocumentMeta, ru bool) string {
	if !hasDetectedChapters(meta) {
		if ru {
			return fmt.Sprintf("В документе «%s» не найдено заголовков глав.", meta.DocumentName)
		}
		return fmt.Sprintf("No chapter headings were detected in %q.", meta.DocumentName)
	}
	n := meta.TotalChapters
	if ru {
		return fmt.Sprintf("В документе «%s» %d %s.", meta.DocumentName, n, ruPlural(n, "глава", "главы", "глав"))
	}
	if n == 1 {
		return fmt.Sprintf("%q has 1 chapter.", meta.DocumentName)
	}
	return fmt.Sprintf("%q has %d chapters.", meta.DocumentName, n)
}

func contentsAnswer(meta *domain.DocumentMeta, ru bool) string {
	if !hasDetectedChapters(meta) {
		return chapterCountAnswer(meta, ru)
	}
	var b strings.Builder
	if ru {
		fmt.Fprintf(&b, "Оглавление «%s»:\n", meta.DocumentName)
	} else {
		fmt.Fprintf(&b, "Contents of %q:\n", meta.DocumentName)
	}
	for _, ch := range meta.Chapters {
		b.WriteString(ch.Number)
		if ch.Title != "" {
			b.WriteString(". " + ch.Title)
		}
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

func sizeAnswer(meta *domain.DocumentMeta, ru bool) string {
	pages := max(1, (meta.TotalChars+charsPerPage-1)/charsPerPage)
	tokens := (meta.TotalChars + CharsPerToken - 1) / CharsPerToken
	if ru {
		return fmt.Sprintf("Документ «%s»: символов %d (около %d %s, примерно %d токенов), фрагментов %d.",
			meta.DocumentName, meta.TotalChars, pages, ruPlural(pages, "страница", "страницы", "страниц"),
			tokens, meta.TotalChunks)
	}
	return fmt.Sprintf("%q contains %d characters (about %d pages, roughly %d tokens) in %d fragments.",
		meta.DocumentName, meta.TotalChars, pages, tokens, meta.TotalChunks)
}

// ruPlural picks the Russian plural form for n.
func ruPlural(n int, one, few, many string) string {
	n %= 100
	if n >= 11 && n <= 14 {
		return many
	}
	switch n % 10 {
	case 1:
		return one
	case 2, 3, 4:
		return few
	default:
		return many
	}
}

func joinChunkSample(chunks []domain.Chunk) string {
	var b strings.Builder
	for _, c := range chunks {
		if b.Len() >= ClassificationSampleChars*4 {
			break
		}
		b.WriteString(c.Content)
	}
	return b.String()
}

// headRunes returns at most n runes from the start of text.
func headRunes(text string, n int) string {
	i := 0
	for pos := range text {
		if i == n {
			return text[:pos]
		}
		i++
	}
	return text
}
