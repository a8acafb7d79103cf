package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

func TestClassifyDocumentType(t *testing.T) {
	tests := []struct {
		name   string
		sample string
		want   domain.DocumentType
	}{
		{"legal", "Article 1. The parties shall act pursuant to this agreement. Article 2 sets liability.", domain.DocumentTypeLegal},
		{"russian legal", "Статья 5. В соответствии с настоящий договор и закон о поставках. Статья 6.", domain.DocumentTypeLegal},
		{"book", "Prologue. \"Come in,\" he said. She said nothing. Chapter 2 began at dawn.", domain.DocumentTypeBook},
		{"code", "import os\n\ndef main():\n    return 0\n\nclass Parser:\n    def parse(self):\n        return None", domain.DocumentTypeCode},
		{"academic", "Abstract. We test the hypothesis using a new methodology (Smith et al). Findings and references follow.", domain.DocumentTypeAcademic},
		{"one hit is not enough", "A short agreement.", domain.DocumentTypeGeneric},
		{"tie is generic", "The agreement shall apply. He said yes, he said no.", domain.DocumentTypeGeneric},
		{"empty", "", domain.DocumentTypeGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDocumentType(tt.sample))
		})
	}
}

func TestDetectLanguage(t *testing.T) {
	assert.Equal(t, domain.LanguageRussian, DetectLanguage("Глава 1. Общие положения"))
	assert.Equal(t, domain.LanguageEnglish, DetectLanguage("Chapter 1. General provisions"))
	assert.Equal(t, domain.LanguageRussian, DetectLanguage("Договор supply agreement между сторонами"))
	assert.Equal(t, domain.LanguageUnknown, DetectLanguage("12345 !!!"))
}

func TestMetaService_BuildAndGet(t *testing.T) {
	env := newTestEnv(nil, nil)
	doc := seedContract(t, env, nil)
	ctx := context.Background()

	meta, err := env.meta.Build(ctx, doc.ID)
	require.NoError(t, err)

	assert.Equal(t, "Supply Contract", meta.DocumentName)
	assert.Equal(t, 8, meta.TotalChapters)
	assert.Equal(t, 16, meta.TotalChunks)
	assert.Equal(t, doc.TotalChars, meta.TotalChars)
	assert.Equal(t, domain.LanguageEnglish, meta.Language)
	require.Len(t, meta.Chapters, 8)
	assert.Equal(t, "7", meta.Chapters[6].Number)
	assert.Equal(t, "Penalties", meta.Chapters[6].Title)
	assert.Equal(t, 12, meta.Chapters[6].StartChunk)
	assert.Equal(t, 13, meta.Chapters[6].EndChunk)

	cached, err := env.metas.GetMeta(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.BuiltAt, cached.BuiltAt)

	got, err := env.meta.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, meta.BuiltAt, got.BuiltAt)
}

func TestMetaService_GetBuildsMissingMeta(t *testing.T) {
	env := newTestEnv(nil, nil)
	doc := seedContract(t, env, nil)

	meta, err := env.meta.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, meta.TotalChapters)

	_, err = env.metas.GetMeta(context.Background(), doc.ID)
	assert.NoError(t, err)
}

func TestMetaService_GetRebuildsStaleMeta(t *testing.T) {
	env := newTestEnv(nil, nil)
	doc := seedContract(t, env, nil)
	ctx := context.Background()

	built := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	env.meta.now = func() time.Time { return built }
	_, err := env.meta.Build(ctx, doc.ID)
	require.NoError(t, err)

	doc.UpdatedAt = built.Add(time.Hour)
	require.NoError(t, env.docs.SaveDocument(ctx, doc))
	rebuilt := built.Add(2 * time.Hour)
	env.meta.now = func() time.Time { return rebuilt }

	meta, err := env.meta.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, rebuilt, meta.BuiltAt)
}

func TestMetaService_NotReady(t *testing.T) {
	env := newTestEnv(nil, nil)
	ctx := context.Background()
	require.NoError(t, env.docs.SaveDocument(ctx, &domain.Document{
		ID:     "pending",
		Name:   "Pending",
		Status: domain.DocumentStatusProcessing,
	}))

	_, err := env.meta.Build(ctx, "pending")
	assert.ErrorIs(t, err, domain.ErrDocumentNotReady)

	_, err = env.meta.Get(ctx, "pending")
	assert.ErrorIs(t, err, domain.ErrDocumentNotReady)

	_, err = env.meta.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMetaService_QuickAnswer(t *testing.T) {
	env := newTestEnv(nil, nil)
	doc := seedContract(t, env, nil)
	ctx := context.Background()

	tests := []struct {
		question string
		contains []string
	}{
		{"How many chapters are there?", []string{`"Supply Contract" has 8 chapters.`}},
		{"Сколько глав в документе?", []string{"В документе «Supply Contract» 8 глав."}},
		{"Show me the table of contents", []string{"Contents of \"Supply Contract\":", "1. Definitions", "7. Penalties"}},
		{"Какие главы есть?", []string{"Оглавление «Supply Contract»:", "8. Termination"}},
		{"How long is this document?", []string{"characters", "16 fragments"}},
		{"Какой объём документа?", []string{"символов", "фрагментов 16"}},
	}
	for _, tt := range tests {
		t.Run(tt.question, func(t *testing.T) {
			answer, ok := env.meta.QuickAnswer(ctx, doc.ID, tt.question)
			require.True(t, ok)
			for _, want := range tt.contains {
				assert.Contains(t, answer, want)
			}
		})
	}

	_, ok := env.meta.QuickAnswer(ctx, doc.ID, "What are the penalties?")
	assert.False(t, ok)

	_, ok = env.meta.QuickAnswer(ctx, "missing", "How many chapters are there?")
	assert.False(t, ok)
}

func TestMetaService_QuickAnswerWithoutHeaders(t *testing.T) {
	env := newTestEnv(nil, nil)
	ctx := context.Background()
	require.NoError(t, env.docs.SaveDocument(ctx, &domain.Document{
		ID:          "memo",
		Name:        "Memo",
		Status:      domain.DocumentStatusReady,
		Content:     "Just a short memo without any headings.",
		TotalChars:  39,
		TotalChunks: 1,
		UpdatedAt:   time.Now(),
	}))
	require.NoError(t, env.chunks.SaveChunks(ctx, []domain.Chunk{{
		ID: "memo-0", DocumentID: "memo", Content: "Just a short memo without any headings.", EndChar: 39,
	}}))

	answer, ok := env.meta.QuickAnswer(ctx, "memo", "How many chapters does it have?")
	require.True(t, ok)
	assert.Equal(t, `No chapter headings were detected in "Memo".`, answer)
}

func TestRuPlural(t *testing.T) {
	forms := func(n int) string { return ruPlural(n, "глава", "главы", "глав") }

	assert.Equal(t, "глава", forms(1))
	assert.Equal(t, "главы", forms(3))
	assert.Equal(t, "глав", forms(5))
	assert.Equal(t, "глав", forms(11))
	assert.Equal(t, "глава", forms(21))
	assert.Equal(t, "главы", forms(104))
	assert.Equal(t, "глав", forms(112))
}

func TestHeadRunes(t *testing.T) {
	assert.Equal(t, "Гла", headRunes("Глава", 3))
	assert.Equal(t, "ab", headRunes("ab", 5))
	assert.Empty(t, headRunes("Глава", 0))
}
