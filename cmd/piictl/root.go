package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/JonMunkholm/piipreview/internal/config"
	"github.com/JonMunkholm/piipreview/internal/logging"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for piictl.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "piictl",
		Short: "Extract PII from documents and export a preview",
		Long: `piictl sends documents to the PII extraction service, prints the
detected records as a Markdown table and writes them to a spreadsheet.

Service settings come from the same configuration as the web server:
PII_CONFIG_FILE, .piipreview.yaml or $XDG_CONFIG_HOME/piipreview/config.yaml,
then environment variables such as EXTRACTOR_URL.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")

	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the file named by --config, or searches the default
// locations when the flag is empty.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}

// newLogger logs warnings and above to w, or everything with --verbose.
func newLogger(cmd *cobra.Command, w io.Writer) *slog.Logger {
	level := "warn"
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}
	return logging.New(w, level, "text")
}
