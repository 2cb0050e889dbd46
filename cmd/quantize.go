package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"imgalpha/internal/engine"
	"imgalpha/internal/geometry"
	"imgalpha/internal/processor"
	"imgalpha/internal/tui"
)

var (
	quantizeFlags     optionFlags
	quantizeInPlace   bool
	quantizeOutputDir string
)

var quantizeCmd = &cobra.Command{
	Use:   "quantize [flags] <path>",
	Short: "Quantize an image or every image under a folder",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if quantizeInPlace && quantizeOutputDir != "" {
			return fmt.Errorf("--inplace cannot be used with --output")
		}

		stored, _ := loadPrefs()
		opts, err := quantizeFlags.resolve(cmd.Flags(), stored)
		if err != nil {
			return err
		}

		outputDir := quantizeOutputDir
		if !quantizeInPlace && outputDir == "" {
			outputDir = "quantized"
		}

		updates := make(chan processor.ProgressUpdate, 64)
		model := tui.NewModel("imgalpha", updates)
		program := tea.NewProgram(model)

		uiDone := make(chan struct{})
		go func() {
			_, _ = program.Run()
			close(uiDone)
		}()

		summary, reports, err := processor.Run(context.Background(), path, processor.Options{
			Mode:      processor.ModeQuantize,
			Quantize:  opts,
			Engine:    engine.MedianCut{},
			InPlace:   quantizeInPlace,
			OutputDir: outputDir,
		}, updates)

		close(updates)
		<-uiDone
		if err != nil {
			return err
		}

		for _, r := range reports {
			if r.Err != nil {
				fmt.Fprintf(os.Stderr, "%s: %v\n", r.Path, r.Err)
			}
		}

		rows := []tui.SummaryRow{
			{Label: "Images processed", Value: tui.Count(summary.Processed)},
			{Label: "Images quantized", Value: tui.Count(summary.Quantized)},
			{Label: "Errors", Value: tui.Count(summary.Errors)},
			{Label: "Palette", Value: geometry.ColorsLabel(opts.Colors)},
			{Label: "Space saved (bytes)", Value: tui.Count(summary.BytesSaved)},
		}
		fmt.Fprintln(os.Stdout, tui.RenderSummary(rows))
		if quantizeInPlace {
			fmt.Fprintln(os.Stdout, "PNGs written next to their sources.")
		} else {
			outPath := outputDir
			if abs, absErr := filepath.Abs(outputDir); absErr == nil {
				outPath = abs
			}
			fmt.Fprintf(os.Stdout, "Quantized files written to: %s\n", outPath)
		}

		return nil
	},
}

func init() {
	quantizeFlags.register(quantizeCmd.Flags())
	quantizeCmd.Flags().BoolVarP(&quantizeInPlace, "inplace", "i", false, "write each PNG next to its source")
	quantizeCmd.Flags().StringVarP(&quantizeOutputDir, "output", "o", "", "destination folder (default \"quantized\")")

	rootCmd.AddCommand(quantizeCmd)
}
