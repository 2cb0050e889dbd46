package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"imgalpha/internal/processor"
)

func TestProgressModelCounts(t *testing.T) {
	updates := make(chan processor.ProgressUpdate, 4)
	updates <- processor.ProgressUpdate{TotalDelta: 2}
	updates <- processor.ProgressUpdate{ProcessedDelta: 1, QuantizedDelta: 1, BytesSavedDelta: 12345}
	close(updates)

	var m tea.Model = NewModel("imgalpha", updates)
	cmd := m.Init()
	for i := 0; i < 3; i++ {
		m, cmd = m.Update(cmd())
	}

	pm := m.(Model)
	if pm.total != 2 || pm.processed != 1 || pm.quantized != 1 || !pm.quitting {
		t.Fatalf("model %+v", pm)
	}
	if cmd == nil {
		t.Fatalf("expected quit command after the channel closes")
	}
}

func TestProgressViewAndSummary(t *testing.T) {
	m := NewModel("imgalpha", nil)
	m.total, m.processed, m.bytesSaved = 4, 2, 1234567
	out := m.View()
	if !strings.Contains(out, "Files: 2/4") || !strings.Contains(out, "1,234,567") {
		t.Fatalf("view:\n%s", out)
	}

	table := RenderSummary([]SummaryRow{{Label: "Palette", Value: "24-bit"}, {Label: "Errors", Value: "0"}})
	if len(strings.Split(table, "\n")) != 4 || !strings.Contains(table, "24-bit") {
		t.Fatalf("summary:\n%s", table)
	}
	if got := renderBar(10, 0.5); got != "["+strings.Repeat("█", 5)+strings.Repeat("░", 5)+"]" {
		t.Fatalf("bar %q", got)
	}
}
