package services

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscope/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
	"github.com/custodia-labs/docscope/internal/postprocessors"
	"github.com/custodia-labs/docscope/internal/postprocessors/chunker"
	"github.com/custodia-labs/docscope/internal/postprocessors/embedder"
)

// --- Mock implementations ---

// promptMarkers identifies which well-known prompt a rendered prompt came from.
var promptMarkers = map[string]string{
	driven.PromptMultiQuery: "alternative search queries",
	driven.PromptHyDE:       "Write a short passage",
	driven.PromptStepBack:   "broader, more general question",
	driven.PromptAgentic:    "reply with exactly DONE",
	driven.PromptRerank:     "Rate how relevant",
	driven.PromptSelector:   "short descriptions of document fragments",
	driven.PromptIntent:     "Classify a question about a document",
}

func promptName(prompt string) string {
	for name, marker := range promptMarkers {
		if strings.Contains(prompt, marker) {
			return name
		}
	}
	return ""
}

// mockLLMService implements driven.LLMService for testing. Answers are
// keyed by prompt name; a name with several answers replays them in order
// and then repeats the last one.
type mockLLMService struct {
	mu        sync.Mutex
	responses map[string][]string
	errs      map[string]error
	calls     map[string]int
	prompts   []string
}

func newMockLLM() *mockLLMService {
	return &mockLLMService{
		responses: make(map[string][]string),
		errs:      make(map[string]error),
		calls:     make(map[string]int),
	}
}

func (m *mockLLMService) respond(name string, answers ...string) *mockLLMService {
	m.responses[name] = answers
	return m
}

func (m *mockLLMService) fail(name string, err error) *mockLLMService {
	m.errs[name] = err
	return m
}

func (m *mockLLMService) Generate(_ context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := promptName(prompt)
	n := m.calls[name]
	m.calls[name] = n + 1
	m.prompts = append(m.prompts, prompt)

	if err := m.errs[name]; err != nil {
		return "", err
	}
	answers := m.responses[name]
	if len(answers) == 0 {
		return "", fmt.Errorf("no answer configured for prompt %q", name)
	}
	return answers[min(n, len(answers)-1)], nil
}

func (m *mockLLMService) callCount(name string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[name]
}

func (m *mockLLMService) ModelName() string           { return "mock-llm" }
func (m *mockLLMService) Ping(_ context.Context) error { return nil }
func (m *mockLLMService) Close() error                { return nil }

// mockEmbeddingService implements driven.EmbeddingService for testing with
// a hashed bag-of-words vector, so texts sharing words are similar.
type mockEmbeddingService struct {
	dims  int
	err   error
	calls int
}

func newMockEmbeddings() *mockEmbeddingService {
	return &mockEmbeddingService{dims: 64}
}

func (m *mockEmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.vector(text), nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := m.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	v := make([]float32, m.dims)
	for _, w := range strings.Fields(strings.ToLower(text)) {
		w = strings.Trim(w, ".,:;!?\"'()")
		if len(w) < 3 {
			continue
		}
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[int(h.Sum32())%m.dims]++
	}
	return v
}

func (m *mockEmbeddingService) Dimensions() int              { return m.dims }
func (m *mockEmbeddingService) ModelName() string            { return "mock-embed" }
func (m *mockEmbeddingService) Ping(_ context.Context) error { return nil }
func (m *mockEmbeddingService) Close() error                 { return nil }

// recordingChunkStore wraps the memory store, recording queries and
// optionally returning nothing for the first hybrid searches.
type recordingChunkStore struct {
	*memory.ChunkStore

	hybridQueries    []driven.HybridQuery
	similarityOpts   []driven.SimilarityOptions
	emptyHybridCalls int
	descriptorsErr   error
}

func newRecordingChunkStore() *recordingChunkStore {
	return &recordingChunkStore{ChunkStore: memory.NewChunkStore()}
}

func (s *recordingChunkStore) HybridSearch(ctx context.Context, q driven.HybridQuery) ([]domain.SearchResult, error) {
	s.hybridQueries = append(s.hybridQueries, q)
	if len(s.hybridQueries) <= s.emptyHybridCalls {
		return nil, nil
	}
	return s.ChunkStore.HybridSearch(ctx, q)
}

func (s *recordingChunkStore) SimilaritySearch(
	ctx context.Context, vector []float32, opts driven.SimilarityOptions,
) ([]domain.SearchResult, error) {
	s.similarityOpts = append(s.similarityOpts, opts)
	return s.ChunkStore.SimilaritySearch(ctx, vector, opts)
}

func (s *recordingChunkStore) FetchDescriptors(
	ctx context.Context, documentIDs []string, limit int,
) ([]domain.ChunkDescriptor, error) {
	if s.descriptorsErr != nil {
		return nil, s.descriptorsErr
	}
	return s.ChunkStore.FetchDescriptors(ctx, documentIDs, limit)
}

func (s *recordingChunkStore) hybridTexts() []string {
	texts := make([]string, len(s.hybridQueries))
	for i, q := range s.hybridQueries {
		texts[i] = q.Text
	}
	return texts
}

// plainNormalisers implements driven.NormaliserRegistry, passing bytes through as text.
type plainNormalisers struct {
	err error
}

func (n *plainNormalisers) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if n.err != nil {
		return nil, n.err
	}
	return &driven.NormaliseResult{Document: domain.Document{Content: string(raw.Content)}}, nil
}

func (n *plainNormalisers) Register(_ driven.Normaliser) {}

func (n *plainNormalisers) SupportedMIMETypes() []string { return []string{"text/plain"} }

// failingPipeline implements driven.PostProcessorPipeline and always fails.
type failingPipeline struct{}

func (failingPipeline) Process(_ context.Context, _ *domain.Document) ([]domain.Chunk, error) {
	return nil, errors.New("chunker exploded")
}

// mockInstructionStore implements driven.InstructionStore for testing.
type mockInstructionStore struct {
	instructions map[domain.Task]string
	err          error
}

func (m *mockInstructionStore) Instructions() (map[domain.Task]string, error) {
	return m.instructions, m.err
}

// --- Test environment ---

// testEnv wires the services over memory stores.
type testEnv struct {
	docs      *memory.DocumentStore
	chunks    *recordingChunkStore
	metas     *memory.MetaStore
	structure *chunker.Processor
	meta      *MetaService
	context   *ContextService
}

func newTestEnv(llm driven.LLMService, embeddings driven.EmbeddingService) *testEnv {
	env := &testEnv{
		docs:      memory.NewDocumentStore(),
		chunks:    newRecordingChunkStore(),
		metas:     memory.NewMetaStore(),
		structure: chunker.New(),
	}
	env.meta = NewMetaService(env.docs, env.chunks, env.metas, env.structure)
	env.context = NewContextService(env.docs, env.chunks, env.meta, env.structure, embeddings, llm)
	return env
}

func (e *testEnv) documentService(embeddings driven.EmbeddingService) *DocumentService {
	pipeline := postprocessors.NewPipeline(
		chunker.New(chunker.WithChunkSize(400), chunker.WithOverlap(60)),
	)
	if embeddings != nil {
		pipeline.Add(embedder.New(embeddings))
	}
	return NewDocumentService(e.docs, e.chunks, e.metas, &plainNormalisers{}, pipeline, e.meta)
}

// chapterTitles are the sections of the seeded contract.
var chapterTitles = []string{
	"Definitions", "Scope of Services", "Payment Terms", "Delivery Schedule",
	"Warranties", "Confidentiality", "Penalties", "Termination",
}

// chapterBody returns two paragraphs unique to chapter n.
func chapterBody(n int) (string, string) {
	title := strings.ToLower(chapterTitles[n-1])
	first := fmt.Sprintf("Provisions on %s are set out here. Clause %d.1 governs %s between the parties "+
		"and applies from signature onwards.", title, n, title)
	second := fmt.Sprintf("Clause %d.2 completes the rules on %s. Marker%02d closes this section.", n, title, n)
	return first, second
}

// seedContract stores a ready eight-chapter document with two chunks per
// chapter and no overlap. Embeddings are computed when a service is given.
func seedContract(t *testing.T, e *testEnv, embeddings *mockEmbeddingService) *domain.Document {
	t.Helper()
	ctx := context.Background()

	doc := &domain.Document{
		ID:           "contract",
		Name:         "Supply Contract",
		ContentType:  "text/plain",
		Status:       domain.DocumentStatusReady,
		DocumentType: domain.DocumentTypeLegal,
		Language:     domain.LanguageEnglish,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	var (
		texts  []string
		chunks []domain.Chunk
		offset int
	)
	for n := 1; n <= len(chapterTitles); n++ {
		first, second := chapterBody(n)
		header := fmt.Sprintf("Chapter %d. %s", n, chapterTitles[n-1])
		texts = append(texts, header+"\n"+first+"\n\n", second+"\n\n")
	}
	total := 0
	for _, text := range texts {
		total += len([]rune(text))
	}
	for i, text := range texts {
		n := i/2 + 1
		length := len([]rune(text))
		c := domain.Chunk{
			ID:         fmt.Sprintf("contract-%02d", i),
			DocumentID: doc.ID,
			ChunkIndex: i,
			Content:    text,
			StartChar:  offset,
			EndChar:    offset + length,
			Metadata: domain.ChunkMetadata{
				ChapterNumber:   fmt.Sprint(n),
				ChapterTitle:    chapterTitles[n-1],
				PositionPercent: float64(offset) / float64(total),
			},
		}
		c.ContentWithContext = "[" + doc.Name + "]\n" + text
		if embeddings != nil {
			c.Embedding = embeddings.vector(c.ContentWithContext)
		}
		chunks = append(chunks, c)
		offset += length
	}

	doc.Content = strings.Join(texts, "")
	doc.TotalChars = total
	doc.TotalChunks = len(chunks)

	require.NoError(t, e.docs.SaveDocument(ctx, doc))
	require.NoError(t, e.chunks.SaveChunks(ctx, chunks))
	return doc
}
