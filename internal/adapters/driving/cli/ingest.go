package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/docscope/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file...]",
	Short: "Ingest documents",
	Long: `Reads each file, normalises it to text, splits it along its structure,
embeds the chunks and builds the document meta.

The MIME type is detected from the file extension and content unless
--mime is given. Supported inputs are plain text, Markdown and HTML.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

var (
	ingestOwner string
	ingestMIME  string
	ingestName  string
)

func init() {
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "", "owner recorded with the documents")
	ingestCmd.Flags().StringVar(&ingestMIME, "mime", "", "MIME type of the files (detected when empty)")
	ingestCmd.Flags().StringVar(&ingestName, "name", "", "document name (single file only; defaults to the file name)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}
	if ingestName != "" && len(args) > 1 {
		return errors.New("--name can only be used with a single file")
	}

	st := stylesFor(cmd.OutOrStdout())
	var failed int
	for _, path := range args {
		content, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		name := ingestName
		if name == "" {
			name = filepath.Base(path)
		}

		doc, err := documentService.Ingest(cmd.Context(), &domain.RawDocument{
			Owner:    ingestOwner,
			Name:     name,
			MIMEType: ingestMIME,
			Content:  content,
		})
		if err != nil {
			failed++
			cmd.Printf("%s %s: %v\n", st.Error.Render("✗"), path, err)
			continue
		}

		cmd.Printf("%s %s → %s (%d chunks, %s)\n",
			st.Success.Render("✓"), path, doc.ID, doc.TotalChunks, doc.DocumentType)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d documents failed to ingest", failed, len(args))
	}
	return nil
}
