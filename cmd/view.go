package cmd

import (
	"context"
	"fmt"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"imgalpha/internal/engine"
	"imgalpha/internal/pipeline"
	"imgalpha/internal/prefs"
	"imgalpha/internal/tui"
)

var (
	viewFlags     optionFlags
	viewOutputDir string
	viewDebugLog  string
)

var viewCmd = &cobra.Command{
	Use:   "view [flags] [file]",
	Short: "Open an image in the interactive quantizer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		stored, prefsPath := loadPrefs()
		opts, err := viewFlags.resolve(cmd.Flags(), stored)
		if err != nil {
			return err
		}

		var logger *log.Logger
		if viewDebugLog != "" {
			f, err := tea.LogToFile(viewDebugLog, "imgalpha")
			if err != nil {
				return fmt.Errorf("debug log: %w", err)
			}
			defer f.Close()
			logger = log.Default()
		}

		pipe := pipeline.New(pipeline.Config{
			Engine:  engine.MedianCut{},
			Options: opts,
			Logger:  logger,
		})
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		pipeDone := make(chan struct{})
		go func() {
			_ = pipe.Run(ctx)
			close(pipeDone)
		}()

		open := ""
		if len(args) == 1 {
			open = args[0]
		}
		viewer := tui.NewViewer(tui.ViewerConfig{
			Pipeline:  pipe,
			Options:   opts,
			OutputDir: viewOutputDir,
			Open:      open,
			Logger:    logger,
		})

		program := tea.NewProgram(viewer, tea.WithAltScreen(), tea.WithMouseCellMotion())
		_, runErr := program.Run()
		cancel()
		<-pipeDone

		if prefsPath != "" {
			if err := prefs.Save(prefsPath, updatedPrefs(stored, viewer.Options())); err != nil {
				fmt.Fprintf(os.Stderr, "warning: saving preferences: %v\n", err)
			}
		}
		return runErr
	},
}

// updatedPrefs keeps "auto" dithering unless the session changed it.
func updatedPrefs(stored prefs.Prefs, opts engine.Options) prefs.Prefs {
	next := stored
	next.Speed = opts.Speed
	if opts.Dithered != stored.Dither.Enabled() {
		next.Dither = prefs.DitherOff
		if opts.Dithered {
			next.Dither = prefs.DitherOn
		}
	}
	return next
}

func init() {
	viewFlags.register(viewCmd.Flags())
	viewCmd.Flags().StringVarP(&viewOutputDir, "output", "o", ".", "folder exported PNGs are written to")
	viewCmd.Flags().StringVar(&viewDebugLog, "debug", "", "write a debug log to this file")

	rootCmd.AddCommand(viewCmd)
}
