package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [file...]", ingestCmd.Use)
}

func TestIngestCmd_RequiresFile(t *testing.T) {
	_, err := executeCommand("ingest")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "requires at least 1 arg(s)")
}

func TestIngestCmd_IngestsFiles(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	docs := newMockDocumentService()
	documentService = docs

	first := writeTestFile(t, "contract.md", "# 1. Subject\n\nThe supplier delivers goods.")
	second := writeTestFile(t, "notes.txt", "Plain notes.")

	out, err := executeCommand("ingest", "--owner", "alice", first, second)

	require.NoError(t, err)
	require.Len(t, docs.ingested, 2)
	assert.Equal(t, "contract.md", docs.ingested[0].Name)
	assert.Equal(t, "alice", docs.ingested[0].Owner)
	assert.Empty(t, docs.ingested[0].MIMEType)
	assert.Equal(t, "# 1. Subject\n\nThe supplier delivers goods.", string(docs.ingested[0].Content))
	assert.Equal(t, "notes.txt", docs.ingested[1].Name)
	assert.Contains(t, out, "doc-new (3 chunks, generic)")
}

func TestIngestCmd_NameAndMIMEFlags(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	docs := newMockDocumentService()
	documentService = docs

	path := writeTestFile(t, "page.bin", "<h1>Title</h1>")

	_, err := executeCommand("ingest", "--name", "Landing page", "--mime", "text/html", path)

	require.NoError(t, err)
	require.Len(t, docs.ingested, 1)
	assert.Equal(t, "Landing page", docs.ingested[0].Name)
	assert.Equal(t, "text/html", docs.ingested[0].MIMEType)
}

func TestIngestCmd_NameWithSeveralFiles(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	a := writeTestFile(t, "a.txt", "a")
	b := writeTestFile(t, "b.txt", "b")

	_, err := executeCommand("ingest", "--name", "x", a, b)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--name can only be used with a single file")
}

func TestIngestCmd_MissingFile(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := executeCommand("ingest", filepath.Join(t.TempDir(), "missing.txt"))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}

func TestIngestCmd_ServiceFailureIsReported(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	documentService = &mockDocumentService{err: errMock}

	path := writeTestFile(t, "a.txt", "text")

	out, err := executeCommand("ingest", path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 1 documents failed to ingest")
	assert.Contains(t, out, "mock failure")
}

func TestIngestCmd_ServiceNotConfigured(t *testing.T) {
	oldService := documentService
	documentService = nil
	defer func() { documentService = oldService }()

	_, err := executeCommand("ingest", "a.txt")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "document service not configured")
}
