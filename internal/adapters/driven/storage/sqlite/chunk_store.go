package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/custodia-labs/docscope/internal/core/domain"
	"github.com/custodia-labs/docscope/internal/core/ports/driven"
)

// keywordCandidates caps the FTS5 rows considered per hybrid query.
const keywordCandidates = 500

// chunkStore implements driven.ChunkStore. Keyword scores come from FTS5
// bm25 normalised against the best hit; vector scores are exact cosine
// similarity computed over the stored embeddings.
type chunkStore struct {
	store *Store
}

var _ driven.ChunkStore = (*chunkStore)(nil)

const chunkColumns = `c.id, c.document_id, c.chunk_index, c.content, c.content_with_context,
	c.start_char, c.end_char, c.embedding, c.metadata`

// SaveChunks upserts chunks by ID.
func (s *chunkStore) SaveChunks(ctx context.Context, chunks []domain.Chunk) error {
	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, chunk_index, content, content_with_context,
			start_char, end_char, embedding, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document_id = excluded.document_id,
			chunk_index = excluded.chunk_index,
			content = excluded.content,
			content_with_context = excluded.content_with_context,
			start_char = excluded.start_char,
			end_char = excluded.end_char,
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range chunks {
		chunk := &chunks[i]
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("marshalling chunk metadata: %w", err)
		}

		// The keyword index reads content_with_context, so it is never left empty.
		withContext := chunk.ContentWithContext
		if withContext == "" {
			withContext = chunk.Content
		}

		if _, err := stmt.ExecContext(ctx, chunk.ID, chunk.DocumentID, chunk.ChunkIndex,
			chunk.Content, withContext, chunk.StartChar, chunk.EndChar,
			float32SliceToBytes(chunk.Embedding), string(metadataJSON)); err != nil {
			return fmt.Errorf("saving chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// DeleteChunks removes every chunk of a document.
func (s *chunkStore) DeleteChunks(ctx context.Context, documentID string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM chunks WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("deleting chunks: %w", err)
	}
	return nil
}

// SimilaritySearch ranks chunks by cosine similarity.
func (s *chunkStore) SimilaritySearch(
	ctx context.Context, vector []float32, opts driven.SimilarityOptions,
) ([]domain.SearchResult, error) {
	chunks, err := s.FetchAll(ctx, opts.DocumentIDs)
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	for i := range chunks {
		sim := cosine(vector, chunks[i].Embedding)
		if sim < opts.MinSimilarity || sim <= 0 {
			continue
		}
		results = append(results, domain.SearchResult{Chunk: chunks[i], Similarity: sim})
	}
	return topK(results, opts.TopK), nil
}

// HybridSearch combines FTS5 keyword scores with cosine similarity.
// A chunk qualifies when it matches the keyword index or its cosine
// reaches MinSimilarity; with a nil vector only keyword matches qualify.
func (s *chunkStore) HybridSearch(ctx context.Context, q driven.HybridQuery) ([]domain.SearchResult, error) {
	keyword, err := s.keywordScores(ctx, q.Text, q.DocumentIDs)
	if err != nil {
		return nil, err
	}

	var candidates []domain.Chunk
	if q.Vector != nil {
		candidates, err = s.FetchAll(ctx, q.DocumentIDs)
	} else {
		ids := make([]string, 0, len(keyword))
		for id := range keyword {
			ids = append(ids, id)
		}
		candidates, err = s.FetchByIDs(ctx, ids)
	}
	if err != nil {
		return nil, err
	}

	var results []domain.SearchResult
	for i := range candidates {
		c := candidates[i]
		kw := keyword[c.ID]
		sem := 0.0
		if q.Vector != nil {
			sem = cosine(q.Vector, c.Embedding)
		}
		if kw == 0 && (q.Vector == nil || sem < q.MinSimilarity) {
			continue
		}

		score := kw
		if q.Vector != nil {
			score = q.SemanticWeight*sem + q.KeywordWeight*kw
		}
		results = append(results, domain.SearchResult{Chunk: c, Similarity: clamp01(score)})
	}
	return topK(results, q.TopK), nil
}

// keywordScores runs an FTS5 OR query and maps chunk IDs to bm25 scores
// scaled into (0, 1] relative to the best match.
func (s *chunkStore) keywordScores(ctx context.Context, text string, documentIDs []string) (map[string]float64, error) {
	match := ftsQuery(text)
	if match == "" {
		return nil, nil
	}

	query := `
		SELECT c.id, bm25(chunks_fts)
		FROM chunks_fts
		JOIN chunks c ON c.rowid = chunks_fts.rowid
		WHERE chunks_fts MATCH ?`
	args := []any{match}
	if len(documentIDs) > 0 {
		in, inArgs := inClause(documentIDs)
		query += ` AND c.document_id IN ` + in
		args = append(args, inArgs...)
	}
	query += ` ORDER BY bm25(chunks_fts) LIMIT ?`
	args = append(args, keywordCandidates)

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("keyword search query: %w", err)
	}
	defer rows.Close()

	scores := make(map[string]float64)
	best := 0.0
	for rows.Next() {
		var id string
		var raw float64
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning keyword result: %w", err)
		}
		// bm25 is negative; more negative is a better match.
		score := math.Abs(raw)
		scores[id] = score
		best = math.Max(best, score)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating keyword results: %w", err)
	}

	for id, score := range scores {
		if best == 0 {
			scores[id] = 1
			continue
		}
		scores[id] = score / best
	}
	return scores, nil
}

// FetchByIDs loads chunks by ID in (document, chunk_index) order.
func (s *chunkStore) FetchByIDs(ctx context.Context, ids []string) ([]domain.Chunk, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	in, args := inClause(ids)
	return s.queryChunks(ctx, `SELECT `+chunkColumns+` FROM chunks c WHERE c.id IN `+in+
		` ORDER BY c.document_id, c.chunk_index`, args...)
}

// FetchAll returns every chunk of the documents (all when empty) in order.
func (s *chunkStore) FetchAll(ctx context.Context, documentIDs []string) ([]domain.Chunk, error) {
	query := `SELECT ` + chunkColumns + ` FROM chunks c`
	var args []any
	if len(documentIDs) > 0 {
		var in string
		in, args = inClause(documentIDs)
		query += ` WHERE c.document_id IN ` + in
	}
	return s.queryChunks(ctx, query+` ORDER BY c.document_id, c.chunk_index`, args...)
}

// FetchDescriptors returns lightweight chunk descriptors in order.
func (s *chunkStore) FetchDescriptors(
	ctx context.Context, documentIDs []string, limit int,
) ([]domain.ChunkDescriptor, error) {
	query := `
		SELECT c.id, c.document_id, d.name, c.chunk_index, c.content, c.metadata
		FROM chunks c
		JOIN documents d ON d.id = c.document_id`
	var args []any
	if len(documentIDs) > 0 {
		var in string
		in, args = inClause(documentIDs)
		query += ` WHERE c.document_id IN ` + in
	}
	query += ` ORDER BY c.document_id, c.chunk_index`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying descriptors: %w", err)
	}
	defer rows.Close()

	var out []domain.ChunkDescriptor //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var name, metadataJSON string
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &name, &chunk.ChunkIndex,
			&chunk.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning descriptor: %w", err)
		}
		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
		}
		out = append(out, domain.DescriptorFor(&chunk, name))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating descriptors: %w", err)
	}
	return out, nil
}

func (s *chunkStore) queryChunks(ctx context.Context, query string, args ...any) ([]domain.Chunk, error) {
	rows, err := s.store.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var chunks []domain.Chunk //nolint:prealloc // size unknown from query
	for rows.Next() {
		var chunk domain.Chunk
		var embeddingBlob []byte
		var metadataJSON string
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.ChunkIndex, &chunk.Content,
			&chunk.ContentWithContext, &chunk.StartChar, &chunk.EndChar,
			&embeddingBlob, &metadataJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		chunk.Embedding = bytesToFloat32Slice(embeddingBlob)
		if metadataJSON != "" {
			if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshalling chunk metadata: %w", err)
			}
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}
	return chunks, nil
}

// ftsQuery turns free text into an FTS5 OR query of quoted terms of two or
// more runes. Quoting keeps FTS5 operators in user text inert.
func ftsQuery(text string) string {
	seen := make(map[string]struct{})
	var terms []string
	for _, f := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len([]rune(f)) < 2 {
			continue
		}
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, `"`+f+`"`)
	}
	return strings.Join(terms, " OR ")
}

func topK(results []domain.SearchResult, k int) []domain.SearchResult {
	sort.SliceStable(results, func(i, j int) bool { return results[i].Similarity > results[j].Similarity })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

func cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return clamp01(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
