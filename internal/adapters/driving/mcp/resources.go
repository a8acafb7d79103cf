package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for docscope resources.
	uriScheme = "docscope://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing documents.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "documents",
		Name:        "documents",
		Description: "List of all ingested documents",
		MIMEType:    "application/json",
	}, s.handleDocumentsResource)

	// Template for a document's chapter structure.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "documents/{documentId}/chapters",
		Name:        "document-chapters",
		Description: "Chapters detected in a specific document",
		MIMEType:    "application/json",
	}, s.handleChaptersResource)
}

// documentInfo is the listing entry for one document.
type documentInfo struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Status       string    `json:"status"`
	DocumentType string    `json:"document_type,omitempty"`
	Language     string    `json:"language,omitempty"`
	TotalChunks  int       `json:"total_chunks"`
	CreatedAt    time.Time `json:"created_at"`
}

// handleDocumentsResource returns a list of all ingested documents.
func (s *Server) handleDocumentsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Document == nil {
		return jsonResource(req.Params.URI, "[]"), nil
	}

	docs, err := s.ports.Document.List(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	infos := make([]documentInfo, len(docs))
	for i := range docs {
		infos[i] = documentInfo{
			ID:           docs[i].ID,
			Name:         docs[i].Name,
			Status:       string(docs[i].Status),
			DocumentType: string(docs[i].DocumentType),
			Language:     docs[i].Language,
			TotalChunks:  docs[i].TotalChunks,
			CreatedAt:    docs[i].CreatedAt,
		}
	}

	data, err := json.MarshalIndent(infos, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling documents: %w", err)
	}

	return jsonResource(req.Params.URI, string(data)), nil
}

// handleChaptersResource returns the chapter list of a specific document.
func (s *Server) handleChaptersResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Document == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract documentId from URI: docscope://documents/{documentId}/chapters
	docID := extractDocumentID(req.Params.URI)
	if docID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	chapters, err := s.ports.Document.Chapters(ctx, docID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting chapters: %w", err)
	}
	if chapters == nil {
		chapters = []domain.Chapter{}
	}

	data, err := json.MarshalIndent(chapters, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling chapters: %w", err)
	}

	return jsonResource(req.Params.URI, string(data)), nil
}

func jsonResource(uri, text string) *mcp.ReadResourceResult {
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		}},
	}
}

// extractDocumentID extracts the document ID from a URI like
// docscope://documents/{documentId}/chapters.
func extractDocumentID(uri string) string {
	const prefix = uriScheme + "documents/"
	const suffix = "/chapters"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
