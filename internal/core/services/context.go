package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/core/ports/driving"
	"github.com/custodia-labs/docscope/internal/logger"
)

// Ensure ContextService implements the interfaces.
var (
	_ driving.ContextService  = (*ContextService)(nil)
	_ driven.PromptStoreAware = (*ContextService)(nil)
)

// DefaultSearchLimit is the result count of a raw search without a limit.
const DefaultSearchLimit = 10

// rerankCandidateFactor widens the candidate pool when reranking.
const rerankCandidateFactor = 3

// ContextService assembles prompt-ready context for a query.
type ContextService struct {
	docs         driven.DocumentStore
	chunks       driven.ChunkStore
	meta         *MetaService
	structure    driven.StructureDetector
	embeddings   driven.EmbeddingService
	llm          driven.LLMService
	prompts      driven.PromptStore
	instructions driven.InstructionStore
	defaults     domain.RetrievalConfig
	timeouts     Timeouts
}

// NewContextService creates the orchestrator. embeddings and llm are
// optional (can be nil); every stage that needs them degrades.
func NewContextService(
	docs driven.DocumentStore,
	chunks driven.ChunkStore,
	meta *MetaService,
	structure driven.StructureDetector,
	embeddings driven.EmbeddingService,
	llm driven.LLMService,
) *ContextService {
	return &ContextService{
		docs:       docs,
		chunks:     chunks,
		meta:       meta,
		structure:  structure,
		embeddings: embeddings,
		llm:        llm,
		defaults:   domain.DefaultRetrievalConfig(),
		timeouts:   DefaultTimeouts(),
	}
}

// SetPromptStore sets the store for customised prompt templates.
func (s *ContextService) SetPromptStore(store driven.PromptStore) {
	s.prompts = store
}

// SetInstructionStore sets the store for task instructions.
func (s *ContextService) SetInstructionStore(store driven.InstructionStore) {
	s.instructions = store
}

// SetDefaults sets the retrieval config used when a request carries none.
func (s *ContextService) SetDefaults(cfg domain.RetrievalConfig) {
	s.defaults = cfg
}

// SetTimeouts overrides the per-call collaborator timeouts.
func (s *ContextService) SetTimeouts(t Timeouts) {
	s.timeouts = t
}

func (s *ContextService) completer() *completer {
	return newCompleter(s.llm, s.prompts, s.timeouts.Enhancement)
}

// request is the per-call state of BuildContext.
type request struct {
	query    string
	strategy domain.StrategyKind
	cfg      domain.RetrievalConfig
	docs     []domain.Document
	names    map[string]string
	total    int
	target   int
	intent   domain.Intent
	debug    map[string]any
	llm      *completer
	primary  *domain.Document

	downgraded bool
}

func (r *request) documentIDs() []string {
	ids := make([]string, len(r.docs))
	for i := range r.docs {
		ids[i] = r.docs[i].ID
	}
	return ids
}

// assembled is the output of one dispatch branch.
type assembled struct {
	text    string
	sources []domain.Source
}

// BuildContext runs the full pipeline: quick answer, intent, dispatch,
// instruction and compression. Only invalid requests return an error.
func (s *ContextService) BuildContext(ctx context.Context, req domain.ContextRequest) (*domain.ContextResult, error) {
	logger.Section("Build Context")

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if len(req.DocumentIDs) == 0 {
		return nil, fmt.Errorf("%w: no documents", domain.ErrInvalidInput)
	}
	cfg := req.Config
	if cfg.ChunkMode == "" {
		cfg = s.defaults
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if req.Strategy != "" && !req.Strategy.IsValid() {
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidInput, req.Strategy)
	}

	r := &request{
		query:    query,
		strategy: req.Strategy,
		cfg:      cfg,
		names:    make(map[string]string),
		debug:    make(map[string]any),
		llm:      s.completer(),
	}
	logger.Debug("Query: %q over %d document(s)", query, len(req.DocumentIDs))

	s.resolveDocuments(ctx, r, req.DocumentIDs)
	if len(r.docs) == 0 {
		r.debug["reason"] = "no ready documents among the requested ids"
		return &domain.ContextResult{Sources: []domain.Source{}, Debug: r.debug}, nil
	}
	r.primary = &r.docs[0]

	if len(r.docs) == 1 {
		if answer, ok := s.meta.QuickAnswer(ctx, r.primary.ID, query); ok {
			logger.Debug("Answered from document meta")
			r.debug["method"] = "quick_answer"
			return &domain.ContextResult{
				Context: answer,
				Sources: []domain.Source{{
					Index:        1,
					DocumentID:   r.primary.ID,
					DocumentName: r.primary.Name,
					Citation:     r.primary.Name + " (document summary)",
				}},
				Intent: domain.Intent{
					Scope:       domain.ScopeSearch,
					Task:        domain.TaskFindData,
					SearchQuery: query,
					Reasoning:   "structural question answered from document meta",
					Method:      domain.IntentMethodRegexFallback,
				},
				Debug: r.debug,
			}, nil
		}
	}

	chapters := s.chapters(ctx, r.primary)
	r.intent = NewIntentAnalyzer(r.llm).Analyze(ctx, query, DocumentStructure{
		DocumentType: r.primary.DocumentType,
		Chapters:     domain.ChapterNumbers(chapters),
	})
	r.target = CalculateTargetChunks(r.total, cfg, query)
	logger.Debug("Intent: scope=%s task=%s sections=%v (%s); target %d of %d chunks",
		r.intent.Scope, r.intent.Task, r.intent.Sections, r.intent.Method, r.target, r.total)

	r.debug["method"] = string(r.intent.Method)
	r.debug["target_chunks"] = r.target
	r.debug["total_chunks"] = r.total

	out := s.dispatch(ctx, r, chapters)

	text := out.text
	if text != "" {
		if instruction := s.instruction(r.intent.Task); instruction != "" {
			text = instruction + "\n\n" + text
		}
	}
	text, compressed := Compress(text, req.MaxTokens)

	r.debug["intent"] = r.intent
	r.debug["scope"] = string(r.intent.Scope)
	r.debug["compressed"] = compressed
	r.debug["estimated_tokens"] = EstimateTokens(text)
	if out.sources == nil {
		out.sources = []domain.Source{}
	}

	return &domain.ContextResult{
		Context: text,
		Sources: out.sources,
		Intent:  r.intent,
		Debug:   r.debug,
	}, nil
}

// resolveDocuments keeps the ready documents and records the rest in debug.
func (s *ContextService) resolveDocuments(ctx context.Context, r *request, ids []string) {
	var missing, notReady []string
	seen := make(map[string]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true

		doc, err := s.docs.GetDocument(ctx, id)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Warn("load document %s: %v", id, err)
			}
			missing = append(missing, id)
			continue
		}
		if !doc.IsReady() {
			notReady = append(notReady, id)
			continue
		}
		r.docs = append(r.docs, *doc)
		r.names[doc.ID] = doc.Name
		r.total += doc.TotalChunks
	}
	if len(missing) > 0 {
		r.debug["missing_documents"] = missing
	}
	if len(notReady) > 0 {
		r.debug["not_ready_documents"] = notReady
	}
}

// chapters returns the primary document's chapters from meta, or detects
// them from its chunks when meta is unavailable.
func (s *ContextService) chapters(ctx context.Context, doc *domain.Document) []domain.Chapter {
	meta, err := s.meta.Get(ctx, doc.ID)
	if err == nil {
		return meta.Chapters
	}
	logger.Warn("meta unavailable for %s: %v", doc.ID, err)

	chunks, err := s.chunks.FetchAll(ctx, []string{doc.ID})
	if err != nil {
		logger.Warn("load chunks of %s: %v", doc.ID, err)
		return nil
	}
	return s.structure.DetectChapters(chunks, doc.Name)
}

// dispatch routes on the intent scope. Sectional and full-document paths
// fall through to search when they produce nothing.
func (s *ContextService) dispatch(ctx context.Context, r *request, chapters []domain.Chapter) assembled {
	switch r.intent.Scope {
	case domain.ScopeFullDocument:
		if ShouldDowngradeFullDocument(r.total, r.cfg, r.target) {
			logger.Debug("Full document downgraded to search by the caller's budget")
			r.debug["downgraded"] = true
			r.downgraded = true
			r.intent.Scope = domain.ScopeSearch
			return s.assembleSearch(ctx, r)
		}
		if out := s.assembleFull(ctx, r); out.text != "" {
			return out
		}
	case domain.ScopeSingleSection, domain.ScopeMultipleSections, domain.ScopeComparison:
		if out := s.assembleSections(ctx, r, chapters); out.text != "" {
			return out
		}
		r.intent.Scope = domain.ScopeSearch
	}
	return s.assembleSearch(ctx, r)
}

// assembleFull concatenates every chunk of every document, one header per document.
func (s *ContextService) assembleFull(ctx context.Context, r *request) assembled {
	var (
		parts   []string
		sources []domain.Source
	)
	for _, doc := range r.docs {
		chunks, err := s.chunks.FetchAll(ctx, []string{doc.ID})
		if err != nil {
			logger.Warn("load chunks of %s: %v", doc.ID, err)
			continue
		}
		if len(chunks) == 0 {
			continue
		}
		parts = append(parts, fmt.Sprintf("=== %s ===\n%s", doc.Name, s.structure.Reassemble(chunkTexts(chunks))))
		sources = append(sources, domain.Source{
			Index:        len(sources) + 1,
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Citation:     doc.Name + " (full text)",
		})
	}
	return assembled{text: strings.Join(parts, "\n\n"), sources: sources}
}

// assembleSections loads the named chapters of the primary document.
func (s *ContextService) assembleSections(ctx context.Context, r *request, chapters []domain.Chapter) assembled {
	doc := r.primary
	chunks, err := s.chunks.FetchAll(ctx, []string{doc.ID})
	if err != nil {
		logger.Warn("load chunks of %s: %v", doc.ID, err)
		return assembled{}
	}

	var (
		parts   []string
		sources []domain.Source
		missing []string
		loaded  = make(map[string]bool)
	)
	for _, number := range r.intent.Sections {
		ch, ok := domain.FindChapter(chapters, number)
		if !ok {
			missing = append(missing, number)
			continue
		}
		if loaded[ch.Number] {
			continue
		}
		loaded[ch.Number] = true

		inChapter := ch.Slice(chunks)
		if len(inChapter) == 0 {
			missing = append(missing, number)
			continue
		}

		label := chapterHeading(ch)
		parts = append(parts, fmt.Sprintf("=== %s ===\n%s", label, s.structure.Reassemble(chunkTexts(inChapter))))
		sources = append(sources, domain.Source{
			Index:        len(sources) + 1,
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			ChunkIndex:   ch.StartChunk,
			Chapter:      label,
			Citation:     fmt.Sprintf("%s, %s", doc.Name, label),
		})
	}
	if len(missing) > 0 {
		r.debug["missing_sections"] = missing
	}
	if len(parts) == 0 {
		return assembled{}
	}

	text := strings.Join(parts, "\n\n")
	if r.intent.Scope == domain.ScopeComparison {
		names := make([]string, len(sources))
		for i := range sources {
			names[i] = sources[i].Chapter
		}
		text = fmt.Sprintf("Comparative analysis of %s (%s).\n\n%s", strings.Join(names, "; "), doc.Name, text)
	}
	return assembled{text: text, sources: sources}
}

func chapterHeading(ch domain.Chapter) string {
	if ch.Title == "" {
		return "Chapter " + ch.Number
	}
	return fmt.Sprintf("Chapter %s: %s", ch.Number, ch.Title)
}

// assembleSearch runs the selected strategy with retries, reranks and
// formats a citation-annotated context.
func (s *ContextService) assembleSearch(ctx context.Context, r *request) assembled {
	if r.target <= 0 {
		r.debug["reason"] = "documents have no chunks"
		return assembled{}
	}
	query := r.intent.SearchQuery
	if query == "" {
		query = r.query
	}

	selecting := r.downgraded || r.strategy == domain.StrategySmartSelect
	rerank := r.cfg.UseRerank && !selecting

	candidateK := r.target
	if rerank {
		candidateK = r.target * rerankCandidateFactor
	}
	hybrid := NewHybridStrategy(s.chunks, s.embeddings, searchParamsFor(r.cfg, r.documentIDs(), candidateK), s.timeouts)

	var strategy Strategy
	if r.downgraded {
		// Reading everything was asked for but the budget is smaller: let
		// the LLM pick across the document instead of matching the query.
		selector := NewSelector(s.chunks, hybrid, r.llm)
		strategy = NewSmartSelectStrategy(selector, r.documentIDs(), r.names, r.target, true)
	} else {
		strategy = newStrategy(r.strategy, query, strategyEnv{
			hybrid:      hybrid,
			llm:         r.llm,
			documentIDs: r.documentIDs(),
			names:       r.names,
			maxChunks:   r.target,
		})
	}
	r.debug["strategy"] = strategy.Name()

	results := s.searchWithRetries(ctx, r, strategy, hybrid, query)
	if len(results) == 0 {
		r.debug["reason"] = "no relevant fragments found"
		return assembled{}
	}

	if rerank {
		results = NewReranker(r.llm, r.cfg.RerankMinScore).Rerank(ctx, query, results, r.target)
	}
	if len(results) > r.target {
		results = results[:r.target]
	}
	for i := range results {
		if name, ok := r.names[results[i].Chunk.DocumentID]; ok {
			results[i].DocumentName = name
		}
	}
	return formatCitations(results, s.charBudget(r))
}

// searchWithRetries retries an empty search once with half the similarity
// threshold, then once with a keyword-only stopword-stripped query.
func (s *ContextService) searchWithRetries(
	ctx context.Context, r *request, strategy Strategy, hybrid *HybridStrategy, query string,
) []domain.SearchResult {
	retries := 0
	defer func() { r.debug["retries"] = retries }()

	results, err := strategy.Search(ctx, query)
	if err != nil {
		logger.Warn("%s search failed: %v", strategy.Name(), err)
	}
	if len(results) > 0 {
		return results
	}

	retries++
	results, err = hybrid.WithMinSimilarity(r.cfg.MinSimilarity/2).Search(ctx, query)
	if err != nil {
		logger.Warn("lowered-threshold search failed: %v", err)
	}
	if len(results) > 0 {
		return results
	}

	retries++
	keywords := KeywordQuery(r.query)
	logger.Debug("Keyword retry with %q", keywords)
	results, err = hybrid.KeywordSearch(ctx, keywords)
	if err != nil {
		logger.Warn("keyword search failed: %v", err)
	}
	return results
}

// charBudget is the context size implied by the target chunk count.
func (s *ContextService) charBudget(r *request) int {
	var chars, chunks int
	for _, d := range r.docs {
		chars += d.TotalChars
		chunks += d.TotalChunks
	}
	if chunks == 0 {
		return 0
	}
	perChunk := (chars + chunks - 1) / chunks
	// Chunks overlap, so a single chunk can be longer than the average share.
	return r.target * perChunk * 2
}

// formatCitations renders "[n] citation\ncontent" entries up to budget
// characters. The first entry is always kept.
func formatCitations(results []domain.SearchResult, budget int) assembled {
	var (
		b       strings.Builder
		sources []domain.Source
		used    int
	)
	for i := range results {
		res := &results[i]
		citation := res.Citation()
		entry := fmt.Sprintf("[%d] %s\n%s", len(sources)+1, citation, res.Chunk.Content)
		size := len([]rune(entry))
		if budget > 0 && len(sources) > 0 && used+size > budget {
			break
		}
		if len(sources) > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(entry)
		used += size

		sources = append(sources, domain.Source{
			Index:        len(sources) + 1,
			DocumentID:   res.Chunk.DocumentID,
			DocumentName: res.DocumentName,
			ChunkIndex:   res.Chunk.ChunkIndex,
			Chapter:      res.Chunk.Metadata.Label(),
			Similarity:   res.Similarity,
			RerankScore:  res.RerankScore,
			Citation:     citation,
		})
	}
	return assembled{text: b.String(), sources: sources}
}

// instruction returns the instruction for a task, preferring the store.
func (s *ContextService) instruction(task domain.Task) string {
	if s.instructions != nil {
		all, err := s.instructions.Instructions()
		if err != nil {
			logger.Warn("load task instructions: %v", err)
		} else if text, ok := all[task]; ok {
			return text
		}
	}
	return domain.DefaultTaskInstructions()[task]
}

// Search runs one strategy without context assembly.
func (s *ContextService) Search(ctx context.Context, req driving.SearchRequest) ([]domain.SearchResult, error) {
	logger.Section("Search")

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}
	if req.Strategy != "" && !req.Strategy.IsValid() {
		return nil, fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidInput, req.Strategy)
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	candidateK := limit
	if req.Rerank {
		candidateK = limit * rerankCandidateFactor
	}
	llm := s.completer()
	hybrid := NewHybridStrategy(s.chunks, s.embeddings, searchParamsFor(s.defaults, req.DocumentIDs, candidateK), s.timeouts)
	strategy := newStrategy(req.Strategy, query, strategyEnv{
		hybrid:      hybrid,
		llm:         llm,
		documentIDs: req.DocumentIDs,
		maxChunks:   limit,
	})
	logger.Debug("Strategy: %s, limit %d", strategy.Name(), limit)

	results, err := strategy.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if req.Rerank && req.Strategy != domain.StrategySmartSelect {
		results = NewReranker(llm, s.defaults.RerankMinScore).Rerank(ctx, query, results, limit)
	}
	if len(results) > limit {
		results = results[:limit]
	}
	s.fillNames(ctx, results)
	return results, nil
}

// fillNames sets DocumentName from the document store.
func (s *ContextService) fillNames(ctx context.Context, results []domain.SearchResult) {
	names := make(map[string]string)
	for i := range results {
		id := results[i].Chunk.DocumentID
		name, ok := names[id]
		if !ok {
			if doc, err := s.docs.GetDocument(ctx, id); err == nil {
				name = doc.Name
			}
			names[id] = name
		}
		if name != "" {
			results[i].DocumentName = name
		}
	}
}

func chunkTexts(chunks []domain.Chunk) []string {
	texts := make([]string, len(chunks))
	for i := range chunks {
		texts[i] = chunks[i].Content
	}
	return texts
}

// stopwords are dropped from the keyword retry query.
var stopwords = toSet([]string{
	"a", "an", "and", "are", "as", "at", "be", "by", "can", "do", "does", "for", "from", "how", "i",
	"in", "is", "it", "me", "of", "on", "or", "please", "tell", "that", "the", "this", "to", "was",
	"what", "when", "where", "which", "who", "why", "with", "about", "there", "you",
	"а", "в", "во", "для", "до", "за", "и", "из", "к", "как", "какие", "какой", "ли", "мне", "на", "не", "о", "об", "от",
	"по", "про", "с", "со", "что", "это", "где", "когда", "кто", "почему", "расскажи", "у",
})

// KeywordQuery lowercases the query and keeps its non-stopword terms. It
// returns the original query when nothing is left.
func KeywordQuery(query string) string {
	terms := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var kept []string
	for _, t := range terms {
		if len([]rune(t)) < 2 || stopwords[t] {
			continue
		}
		kept = append(kept, t)
	}
	if len(kept) == 0 {
		return query
	}
	return strings.Join(kept, " ")
}
