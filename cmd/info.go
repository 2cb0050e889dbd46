package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"imgalpha/internal/processor"
	"imgalpha/internal/tui"
)

var infoCmd = &cobra.Command{
	Use:   "info <path>",
	Short: "Report size, colours and identifying metadata without modifying files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		updates := make(chan processor.ProgressUpdate, 64)
		program := tea.NewProgram(tui.NewModel("imgalpha info", updates))

		uiDone := make(chan struct{})
		go func() {
			_, _ = program.Run()
			close(uiDone)
		}()

		_, reports, err := processor.Run(context.Background(), path, processor.Options{Mode: processor.ModeInfo}, updates)
		close(updates)
		<-uiDone
		if err != nil {
			return err
		}

		for i, report := range reports {
			if i > 0 {
				fmt.Fprintln(os.Stdout)
			}
			fmt.Fprintf(os.Stdout, "%s %s\n", infoFileStyle.Render(report.Path), infoDimStyle.Render(report.Kind.String()))
			if report.Err != nil {
				fmt.Fprintf(os.Stdout, "  %s %s\n", infoBulletStyle.Render("-"), infoErrorStyle.Render(report.Err.Error()))
			}
			if report.Width > 0 {
				infoLine("Size", fmt.Sprintf("%d×%d px, %s bytes", report.Width, report.Height, tui.Count(report.Size)))
				infoLine("Colours", tui.Count(report.Colors))
			}
			cats := report.Metadata.Categories()
			if len(cats) == 0 {
				infoLine("Metadata", infoDimStyle.Render("none"))
			} else {
				infoLine("Metadata", strings.Join(cats, ", "))
			}
		}
		return nil
	},
}

func infoLine(label, value string) {
	fmt.Fprintf(os.Stdout, "  %s %s\n", infoCategoryStyle.Render(label+":"), infoValueStyle.Render(value))
}

var (
	infoFileStyle     = lipgloss.NewStyle().Bold(true).Foreground(tui.ColorAccent)
	infoCategoryStyle = lipgloss.NewStyle().Foreground(tui.ColorAccentAlt)
	infoValueStyle    = lipgloss.NewStyle().Foreground(tui.ColorInk)
	infoDimStyle      = lipgloss.NewStyle().Foreground(tui.ColorDim)
	infoBulletStyle   = lipgloss.NewStyle().Foreground(tui.ColorDim)
	infoErrorStyle    = lipgloss.NewStyle().Foreground(tui.ColorError)
)

func init() {
	rootCmd.AddCommand(infoCmd)
}
