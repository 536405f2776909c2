package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/schollz/progressbar/v3"

	"craftinstall/internal/task"
)

// InstallProgress renders install task updates. On a TTY it drives a
// progress bar; otherwise it prints one line per status change.
type InstallProgress struct {
	term *Terminal
	bar  *progressbar.ProgressBar

	mu   sync.Mutex
	last string
}

// NewInstallProgress creates a renderer titled with what is being installed
func NewInstallProgress(t *Terminal, title string) *InstallProgress {
	p := &InstallProgress{term: t}
	if t.isTTY {
		p.bar = progressbar.NewOptions(100,
			progressbar.OptionSetWriter(t.errOut),
			progressbar.OptionSetDescription(title),
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(false),
			progressbar.OptionThrottle(100*time.Millisecond),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	return p
}

// Observe is a task.Observer
func (p *InstallProgress) Observe(u task.Update) {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := describe(u.Status)
	if p.bar != nil {
		if label != "" {
			p.bar.Describe(label)
		}
		_ = p.bar.Set(int(u.Percentage))
		if u.Outcome != task.Running {
			_ = p.bar.Finish()
		}
		return
	}

	if label != "" && label != p.last {
		p.last = label
		fmt.Fprintf(p.term.errOut, "[%3.0f%%] %s\n", u.Percentage, label)
	}
}

// describe names the stage of a status. Process output lines are not shown
// so the description stays stable.
func describe(s task.Status) string {
	switch s.Kind {
	case task.KindDownload:
		return "Downloading"
	case task.KindProcess:
		return "Running installer"
	case task.KindTool:
		return "BuildTools: " + s.Tool.String()
	default:
		return ""
	}
}
