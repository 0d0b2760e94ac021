// Package main provides the CLI entry point for GoSlideGraft.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	slidegraft "github.com/VantageDataChat/GoSlideGraft"
)

var (
	templatePath string
	outputPath   string
	layoutIndex  int
	sourceBG     bool
	placeholders bool
	noFontRemap  bool
	noColorRemap bool
	verbose      bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "slidegraft",
		Short: "Transplant slides between PowerPoint files",
		Long: `slidegraft copies slides from source .pptx files into a presentation
built from a destination template, carrying the slides' content while
adopting the template's layout, theme colors, and theme fonts.`,
	}

	graftCmd := &cobra.Command{
		Use:   "graft [source.pptx:SLIDES ...]",
		Short: "Copy selected slides into a template-based presentation",
		Long: `Copy selected slides into a presentation built from --template.

Each argument names a source file and a slide selection, separated by a
colon. Slide numbers are 1-based and may be single numbers, comma lists,
or ranges:

  slidegraft graft --template deck.pptx --out out.pptx report.pptx:1,3,5-7`,
		Args: cobra.MinimumNArgs(1),
		RunE: runGraft,
	}
	graftCmd.Flags().StringVarP(&templatePath, "template", "t", "", "Template .pptx file (required)")
	graftCmd.Flags().StringVarP(&outputPath, "out", "o", "output.pptx", "Output .pptx file")
	graftCmd.Flags().IntVarP(&layoutIndex, "layout", "l", 0, "Template layout index to apply (0-based)")
	graftCmd.Flags().BoolVar(&sourceBG, "source-background", false, "Keep each source slide's background instead of the template's")
	graftCmd.Flags().BoolVar(&placeholders, "placeholders", false, "Merge content into template placeholders instead of replacing the shape tree")
	graftCmd.Flags().BoolVar(&noFontRemap, "no-font-remap", false, "Keep literal fonts instead of theme font references")
	graftCmd.Flags().BoolVar(&noColorRemap, "no-color-remap", false, "Keep literal colors instead of theme color references")
	graftCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	_ = graftCmd.MarkFlagRequired("template")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the slidegraft version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(slidegraft.Version)
		},
	}

	rootCmd.AddCommand(graftCmd, versionCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runGraft(cmd *cobra.Command, args []string) error {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	var selections []slidegraft.Selection
	for _, arg := range args {
		sel, err := parseSelection(arg)
		if err != nil {
			return err
		}
		selections = append(selections, sel)
	}

	opts := slidegraft.CopyOptions{
		LayoutIndex:             layoutIndex,
		ApplyTemplateBackground: !sourceBG,
		RemapFonts:              !noFontRemap,
		RemapColors:             !noColorRemap,
		UsePlaceholders:         placeholders,
	}

	copied, err := slidegraft.CopyToTemplate(templatePath, selections, outputPath, opts)
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d slides to %s\n", copied, outputPath)
	return nil
}

// parseSelection parses "file.pptx:1,3,5-7" into a Selection with 0-based
// indices. A bare "file.pptx" selects every slide.
func parseSelection(arg string) (slidegraft.Selection, error) {
	colon := strings.LastIndex(arg, ":")
	if colon < 0 {
		indices, err := slidegraft.FirstN(arg, int(^uint(0)>>1))
		if err != nil {
			return slidegraft.Selection{}, fmt.Errorf("failed to read %s: %w", arg, err)
		}
		return slidegraft.Selection{Path: arg, Indices: indices}, nil
	}

	path, spec := arg[:colon], arg[colon+1:]
	var indices []int
	for _, piece := range strings.Split(spec, ",") {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}
		if lo, hi, ok := strings.Cut(piece, "-"); ok {
			start, err1 := strconv.Atoi(lo)
			end, err2 := strconv.Atoi(hi)
			if err1 != nil || err2 != nil || start < 1 || end < start {
				return slidegraft.Selection{}, fmt.Errorf("invalid slide range %q in %s", piece, arg)
			}
			indices = append(indices, slidegraft.SlideRange(start-1, end-1)...)
			continue
		}
		n, err := strconv.Atoi(piece)
		if err != nil || n < 1 {
			return slidegraft.Selection{}, fmt.Errorf("invalid slide number %q in %s", piece, arg)
		}
		indices = append(indices, n-1)
	}
	if len(indices) == 0 {
		return slidegraft.Selection{}, fmt.Errorf("empty slide selection in %s", arg)
	}
	return slidegraft.Selection{Path: path, Indices: indices}, nil
}
