package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/RanitManik/lucide-note/internal/export"
)

var (
	exportFormat   string
	exportTitle    string
	exportNoStyles bool
	exportMinify   bool
	exportOutput   string
)

var exportCmd = &cobra.Command{
	Use:   "export <file.json|->",
	Short: "Render a note document",
	Long: `Reads a TipTap document from a file, or from stdin when the argument
is "-", and writes it as plain text, Markdown, HTML or PDF.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "markdown", "output format: markdown, html, text or pdf")
	exportCmd.Flags().StringVarP(&exportTitle, "title", "t", "", "note title")
	exportCmd.Flags().BoolVar(&exportNoStyles, "no-styles", false, "emit an HTML fragment instead of a standalone page")
	exportCmd.Flags().BoolVar(&exportMinify, "minify", false, "minify HTML output")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to a file instead of stdout")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(strings.ToLower(strings.TrimSpace(exportFormat)))
	if err != nil {
		return fmt.Errorf("%w: %s", err, exportFormat)
	}

	raw, err := readDocument(cmd, args[0])
	if err != nil {
		return err
	}
	root, err := export.Decode(raw)
	if err != nil {
		return fmt.Errorf("decode document: %w", err)
	}

	var data []byte
	if format == export.FormatPDF {
		data, err = export.ChromePDF{}.RenderPDF(context.Background(), export.ToHTML(root, exportTitle, !exportNoStyles))
	} else {
		data, err = export.Render(root, exportTitle, format, export.Options{
			IncludeStyles: !exportNoStyles,
			Minify:        exportMinify,
		})
	}
	if err != nil {
		return fmt.Errorf("render %s: %w", format, err)
	}

	if exportOutput != "" {
		if err := os.WriteFile(exportOutput, data, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		cmd.PrintErrf("wrote %s\n", exportOutput)
		return nil
	}
	out := cmd.OutOrStdout()
	if _, err := out.Write(data); err != nil {
		return err
	}
	if format != export.FormatPDF && len(data) > 0 && data[len(data)-1] != '\n' {
		_, err = io.WriteString(out, "\n")
	}
	return err
}

func readDocument(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		raw, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("read stdin: %w", err)
		}
		return raw, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return raw, nil
}
