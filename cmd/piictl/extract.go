package main

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/JonMunkholm/piipreview/internal/config"
	"github.com/JonMunkholm/piipreview/internal/extractor"
	"github.com/JonMunkholm/piipreview/internal/pii"
	"github.com/JonMunkholm/piipreview/internal/sheet"
	"github.com/adrg/xdg"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	previewTitle = "Extracted PII - Preview"

	defaultReadJobs = 4
)

// NewExtractCmd creates the extract command.
func NewExtractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract [files...]",
		Short: "Send documents to the extraction service and export the rows",
		Long: `Extract uploads every file in one request to the PII extraction service,
prints the returned rows as a Markdown table and writes an export file.

Without --out the export is written to the XDG download directory as
pii_extracted_preview.<format>. When no PII is found nothing is written.

Examples:
  # Extract from two documents, export to ~/Downloads/pii_extracted_preview.xlsx
  piictl extract id-card.png statement.pdf

  # JSON export to a chosen path
  piictl extract --format json --out rows.json scans/*.pdf

  # Use a different service
  piictl extract --url http://10.0.0.5:8000/extract form.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: runExtractCmd,
	}

	cmd.Flags().StringP("url", "u", "", "Extraction endpoint (default from config, "+extractor.DefaultURL+")")
	cmd.Flags().String("field", "", "Multipart field name for files (default from config, \""+extractor.DefaultFieldName+"\")")
	cmd.Flags().DurationP("timeout", "t", 0, "Timeout for the extraction call (0 waits indefinitely)")
	cmd.Flags().StringP("out", "o", "", "Export file or directory (default: XDG download directory)")
	cmd.Flags().StringP("format", "f", string(sheet.FormatXLSX), "Export format: xlsx, json or md")
	cmd.Flags().IntP("jobs", "j", defaultReadJobs, "Number of files read concurrently")

	return cmd
}

// runExtractCmd executes the extract command.
func runExtractCmd(cmd *cobra.Command, args []string) error {
	format, err := sheet.ParseFormat(stringFlag(cmd, "format"))
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := applyExtractFlags(cmd, cfg); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cmd, cmd.ErrOrStderr())

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	jobs, _ := cmd.Flags().GetInt("jobs")
	files, err := readFiles(ctx, args, jobs)
	if err != nil {
		return err
	}
	if err := checkSelectionSize(files, cfg.Upload.MaxSelectionSize); err != nil {
		return errors.New(pii.FormatUserError(err))
	}

	client := extractor.New(extractor.Options{
		URL:       cfg.Extractor.URL,
		FieldName: cfg.Extractor.FieldName,
		Timeout:   cfg.Extractor.Timeout,
	}, nil, nil, logger)

	resp, err := client.Extract(ctx, files)
	if err != nil {
		logger.Debug("extraction failed", "error", err)
		return errors.New(pii.FormatUserError(err))
	}

	out := cmd.OutOrStdout()
	if resp.Len() == 0 {
		fmt.Fprintf(out, "No PII found in %s.\n", pii.FileNames(files))
		return nil
	}

	if err := sheet.WriteMarkdownTable(out, previewTitle, resp.Rows); err != nil {
		return fmt.Errorf("render preview: %w", err)
	}

	export, err := sheet.Build(format, resp.Rows)
	if err != nil {
		return fmt.Errorf("build export: %w", err)
	}

	path, err := outputPath(stringFlag(cmd, "out"), export.Name)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, export.Data, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	fmt.Fprintf(out, "\nWrote %d rows to %s\n", export.Rows, path)
	return nil
}

// applyExtractFlags overrides config values with flags the user set and
// re-validates the result.
func applyExtractFlags(cmd *cobra.Command, cfg *config.Config) error {
	flags := cmd.Flags()
	if flags.Changed("url") {
		cfg.Extractor.URL, _ = flags.GetString("url")
	}
	if flags.Changed("field") {
		cfg.Extractor.FieldName, _ = flags.GetString("field")
	}
	if flags.Changed("timeout") {
		cfg.Extractor.Timeout, _ = flags.GetDuration("timeout")
	}
	return cfg.Validate()
}

// readFiles loads every path into memory, preserving argument order.
func readFiles(ctx context.Context, paths []string, jobs int) ([]pii.File, error) {
	if jobs < 1 {
		jobs = 1
	}
	files := make([]pii.File, len(paths))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			f, err := readFile(path)
			if err != nil {
				return err
			}
			files[i] = f
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return files, nil
}

func readFile(path string) (pii.File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return pii.File{}, fmt.Errorf("read %s: %w", path, err)
	}
	return pii.File{
		Name:        filepath.Base(path),
		ContentType: contentType(path, data),
		Data:        data,
	}, nil
}

// contentType guesses from the extension first, then sniffs the data.
func contentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func checkSelectionSize(files []pii.File, limit int64) error {
	var sel pii.Selection
	sel.Add(files...)
	if limit > 0 && sel.TotalSize() > limit {
		return pii.ErrSelectionTooLarge
	}
	return nil
}

// outputPath resolves where the export goes. An empty out selects the XDG
// download directory; an existing directory receives the default name.
func outputPath(out, name string) (string, error) {
	if out == "" {
		dir := xdg.UserDirs.Download
		if dir == "" {
			dir = "."
		}
		out = filepath.Join(dir, name)
	} else if info, err := os.Stat(out); err == nil && info.IsDir() {
		out = filepath.Join(out, name)
	}

	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	return out, nil
}

func stringFlag(cmd *cobra.Command, name string) string {
	v, _ := cmd.Flags().GetString(name)
	return v
}
