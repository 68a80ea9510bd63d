package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finrota/bankfeed/internal/objstore"
	"github.com/finrota/bankfeed/internal/pdftext"
)

func newIngestCommand(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <statement>",
		Short: "Ingest a bank statement from a text or PDF file, local or gs://",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := newLogger()

			text, err := loadStatementText(ctx, args[0])
			if err != nil {
				return err
			}

			p, cleanup, err := buildPipeline(ctx, flags, log)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := p.IngestStatementText(ctx, text)
			if err != nil {
				return err
			}
			printSummary(cmd, summary)
			return nil
		},
	}
	return cmd
}

// loadStatementText resolves the statement argument into raw text:
// gs:// URIs are downloaded first, .pdf files go through text
// extraction, everything else is read as-is.
func loadStatementText(ctx context.Context, source string) (string, error) {
	path := source
	if strings.HasPrefix(source, "gs://") {
		data, err := objstore.NewGCS().Fetch(ctx, source)
		if err != nil {
			return "", err
		}
		tmp, err := os.CreateTemp("", "bankfeed-*"+filepath.Ext(source))
		if err != nil {
			return "", fmt.Errorf("creating temp file: %w", err)
		}
		defer os.Remove(tmp.Name())
		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return "", fmt.Errorf("writing temp file: %w", err)
		}
		tmp.Close()
		path = tmp.Name()
	}

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return pdftext.ExtractAll(path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading statement %s: %w", source, err)
	}
	return string(data), nil
}
