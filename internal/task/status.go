// Package task models one in-flight install: its progress status, cancellation
// and completion.
package task

import "fmt"

// Kind tags the active status variant
type Kind int

const (
	KindNone Kind = iota
	KindDownload
	KindProcess
	KindTool
)

func (k Kind) String() string {
	switch k {
	case KindDownload:
		return "download"
	case KindProcess:
		return "process"
	case KindTool:
		return "tool"
	default:
		return "none"
	}
}

// stage orders kinds: downloads always precede installer work
func (k Kind) stage() int {
	switch k {
	case KindDownload:
		return 1
	case KindProcess, KindTool:
		return 2
	default:
		return 0
	}
}

// ToolState is the phase of a BuildTools run
type ToolState int

const (
	ToolInitialize ToolState = iota
	ToolUpdate
	ToolBuild
)

func (s ToolState) String() string {
	switch s {
	case ToolUpdate:
		return "Update"
	case ToolBuild:
		return "Build"
	default:
		return "Initialize"
	}
}

// Status describes what an install is doing right now. URL is set for
// downloads, Tool for BuildTools phases, LastMessage for subprocess output.
type Status struct {
	Kind        Kind
	URL         string
	LastMessage string
	Tool        ToolState
}

// DownloadStatus reports an artifact transfer
func DownloadStatus(url string) Status {
	return Status{Kind: KindDownload, URL: url}
}

// ProcessStatus reports installer subprocess or post-processing work
func ProcessStatus(message string) Status {
	return Status{Kind: KindProcess, LastMessage: message}
}

// ToolStatus reports a BuildTools phase
func ToolStatus(state ToolState) Status {
	return Status{Kind: KindTool, Tool: state}
}

func (s Status) String() string {
	switch s.Kind {
	case KindDownload:
		return "Downloading " + s.URL
	case KindTool:
		if s.LastMessage != "" {
			return fmt.Sprintf("BuildTools %s: %s", s.Tool, s.LastMessage)
		}
		return "BuildTools " + s.Tool.String()
	case KindProcess:
		return s.LastMessage
	default:
		return ""
	}
}

// follows reports whether next may replace s. Status only moves forward:
// download before installer work, and BuildTools phases in order.
func (s Status) follows(next Status) bool {
	if next.Kind.stage() < s.Kind.stage() {
		return false
	}
	if s.Kind == KindTool && next.Kind == KindTool {
		return next.Tool >= s.Tool
	}
	return true
}
