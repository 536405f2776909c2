//nolint:revive // util is a common package name for shared utilities
package util

import (
	"errors"

	"github.com/shirou/gopsutil/v4/process"
)

// KillTree terminates pid and every descendant. Installers and servers
// started through wrapper scripts leave the real JVM as a child process.
func KillTree(pid int) error {
	p, err := process.NewProcess(int32(pid)) //nolint:gosec // pids fit in int32
	if err != nil {
		return err
	}
	return killTree(p)
}

func killTree(p *process.Process) error {
	var errs []error
	if children, err := p.Children(); err == nil {
		for _, child := range children {
			if err := killTree(child); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if err := p.Kill(); err != nil {
		if running, rerr := p.IsRunning(); rerr == nil && running {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// ProcessInfo is a point-in-time resource snapshot of a process
type ProcessInfo struct {
	PID        int
	RSSBytes   uint64
	CPUPercent float64
	Threads    int32
}

// InspectProcess reads resource usage for pid
func InspectProcess(pid int) (ProcessInfo, error) {
	p, err := process.NewProcess(int32(pid)) //nolint:gosec // pids fit in int32
	if err != nil {
		return ProcessInfo{}, err
	}
	info := ProcessInfo{PID: pid}
	if mem, err := p.MemoryInfo(); err == nil {
		info.RSSBytes = mem.RSS
	}
	if cpu, err := p.CPUPercent(); err == nil {
		info.CPUPercent = cpu
	}
	if threads, err := p.NumThreads(); err == nil {
		info.Threads = threads
	}
	return info, nil
}
