package ui

import (
	"strings"
	"testing"

	"craftinstall/internal/task"
)

func TestInstallProgress_PlainPrintsStageChanges(t *testing.T) {
	term, _, errOut := newTestTerminal()
	p := NewInstallProgress(term, "forge 1.20.1")

	p.Observe(task.Update{Status: task.DownloadStatus("https://example.com/a.jar"), Percentage: 0})
	p.Observe(task.Update{Status: task.DownloadStatus("https://example.com/a.jar"), Percentage: 25})
	p.Observe(task.Update{Status: task.ProcessStatus("Extracting"), Percentage: 50})
	p.Observe(task.Update{Status: task.Status{Kind: task.KindProcess, LastMessage: "Downloading libraries"}, Percentage: 70})
	p.Observe(task.Update{Status: task.ToolStatus(task.ToolBuild), Percentage: 80})

	lines := strings.Split(strings.TrimSpace(errOut.String()), "\n")
	want := []string{"[  0%] Downloading", "[ 50%] Running installer", "[ 80%] BuildTools: Build"}
	if len(lines) != len(want) {
		t.Fatalf("got %q, want %q", lines, want)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}
