package installer

import "sync"

// Percenter is the slice of a task a LineProgress drives
type Percenter interface {
	Sink
	ChangePercentage(p float64) bool
}

// LineProgress estimates installer progress from output volume. Each line
// advances the task from From towards To, reaching it only when the process
// exits; Expected is the typical line count of a full run.
type LineProgress struct {
	Task     Percenter
	From     float64
	To       float64
	Expected int

	mu    sync.Mutex
	lines int
}

// ReportMessage forwards the line and advances progress
func (p *LineProgress) ReportMessage(msg string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.lines++
	frac := min(float64(p.lines)/float64(max(p.Expected, 1)), 0.99)
	p.Task.ChangePercentage(p.From + (p.To-p.From)*frac)
	return p.Task.ReportMessage(msg)
}
