package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage ingested documents",
	Long:  `List, inspect, reprocess or delete ingested documents.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentGetCmd = &cobra.Command{
	Use:   "get [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentGet,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document with its chunks and meta",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var documentReprocessCmd = &cobra.Command{
	Use:   "reprocess [doc-id]",
	Short: "Re-chunk and re-embed a document",
	Long: `Deletes every chunk of the document and recreates them from its stored
text. Use after changing chunk sizes or the embedding model.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentReprocess,
}

var documentChaptersCmd = &cobra.Command{
	Use:   "chapters [doc-id]",
	Short: "Show the chapters detected in a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentChapters,
}

var documentMetaCmd = &cobra.Command{
	Use:   "meta [doc-id]",
	Short: "Show document meta",
	Long: `Shows the cached document meta: chapter list, size, type and language.
Stale meta is rebuilt automatically; --rebuild forces a rebuild.`,
	Args: cobra.ExactArgs(1),
	RunE: runDocumentMeta,
}

var (
	documentOwner string
	documentJSON  bool
	metaRebuild   bool
)

func init() {
	documentListCmd.Flags().StringVar(&documentOwner, "owner", "", "only list documents of this owner")
	documentChaptersCmd.Flags().BoolVar(&documentJSON, "json", false, "output chapters as JSON")
	documentMetaCmd.Flags().BoolVar(&metaRebuild, "rebuild", false, "recompute the meta unconditionally")
	documentMetaCmd.Flags().BoolVar(&documentJSON, "json", false, "output meta as JSON")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentGetCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	documentCmd.AddCommand(documentReprocessCmd)
	documentCmd.AddCommand(documentChaptersCmd)
	documentCmd.AddCommand(documentMetaCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docs, err := documentService.List(cmd.Context(), documentOwner)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	st := stylesFor(cmd.OutOrStdout())
	rows := make([][]string, len(docs))
	for i := range docs {
		rows[i] = []string{
			docs[i].ID,
			docs[i].Name,
			st.status(string(docs[i].Status)),
			string(docs[i].DocumentType),
			strconv.Itoa(docs[i].TotalChunks),
			docs[i].CreatedAt.Format("2006-01-02 15:04"),
		}
	}

	cmd.Println(st.table([]string{"ID", "Name", "Status", "Type", "Chunks", "Created"}, rows))
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentGet(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	doc, err := documentService.Get(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	st := stylesFor(cmd.OutOrStdout())
	cmd.Printf("Document: %s\n\n", st.Title.Render(doc.ID))
	cmd.Printf("  Name:      %s\n", doc.Name)
	if doc.Owner != "" {
		cmd.Printf("  Owner:     %s\n", doc.Owner)
	}
	cmd.Printf("  MIME type: %s\n", doc.ContentType)
	cmd.Printf("  Status:    %s\n", st.status(string(doc.Status)))
	if doc.Error != "" {
		cmd.Printf("  Error:     %s\n", st.Error.Render(doc.Error))
	}
	cmd.Printf("  Type:      %s\n", doc.DocumentType)
	cmd.Printf("  Language:  %s\n", doc.Language)
	cmd.Printf("  Chunks:    %d\n", doc.TotalChunks)
	cmd.Printf("  Chars:     %d\n", doc.TotalChars)
	cmd.Printf("  Created:   %s\n", doc.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated:   %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))

	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	if err := documentService.Delete(cmd.Context(), docID); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", docID)
	return nil
}

func runDocumentReprocess(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	cmd.Printf("Reprocessing document %s...\n", docID)

	doc, err := documentService.Reprocess(cmd.Context(), docID)
	if err != nil {
		return fmt.Errorf("failed to reprocess document: %w", err)
	}

	cmd.Printf("Document %s reprocessed: %d chunks.\n", doc.ID, doc.TotalChunks)
	return nil
}

func runDocumentChapters(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	chapters, err := documentService.Chapters(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to get chapters: %w", err)
	}

	if documentJSON {
		return printJSON(cmd, chapters)
	}

	if len(chapters) == 0 {
		cmd.Println("No chapters detected.")
		return nil
	}

	cmd.Println(chapterTable(stylesFor(cmd.OutOrStdout()), chapters))
	return nil
}

func runDocumentMeta(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	var (
		meta *domain.DocumentMeta
		err  error
	)
	if metaRebuild {
		meta, err = documentService.RebuildMeta(cmd.Context(), args[0])
	} else {
		meta, err = documentService.Meta(cmd.Context(), args[0])
	}
	if err != nil {
		return fmt.Errorf("failed to get document meta: %w", err)
	}

	if documentJSON {
		return printJSON(cmd, meta)
	}

	st := stylesFor(cmd.OutOrStdout())
	cmd.Printf("Meta: %s\n\n", st.Title.Render(meta.DocumentName))
	cmd.Printf("  Document:  %s\n", meta.DocumentID)
	cmd.Printf("  Status:    %s\n", st.status(string(meta.Status)))
	cmd.Printf("  Type:      %s\n", meta.DocumentType)
	cmd.Printf("  Language:  %s\n", meta.Language)
	cmd.Printf("  Chunks:    %d\n", meta.TotalChunks)
	cmd.Printf("  Chars:     %d\n", meta.TotalChars)
	cmd.Printf("  Chapters:  %d\n", meta.TotalChapters)
	cmd.Printf("  Built:     %s\n", meta.BuiltAt.Format("2006-01-02 15:04:05"))

	if len(meta.Chapters) > 0 {
		cmd.Println()
		cmd.Println(chapterTable(st, meta.Chapters))
	}
	return nil
}

func chapterTable(st *styles, chapters []domain.Chapter) string {
	rows := make([][]string, len(chapters))
	for i, ch := range chapters {
		rows[i] = []string{
			ch.Number,
			truncate(ch.Title, 48),
			fmt.Sprintf("%d-%d", ch.StartChunk, ch.EndChunk),
		}
	}
	return st.table([]string{"No.", "Title", "Chunks"}, rows)
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
