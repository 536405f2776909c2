package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"craftinstall/internal/domain"
	"craftinstall/internal/util"
)

const messageBuffer = 256

// LaunchSpec is the command that runs a server
type LaunchSpec struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

func (s LaunchSpec) String() string {
	return strings.Join(append([]string{s.Path}, s.Args...), " ")
}

// Process wraps one run of a server. It is not restartable; start a new
// Process for every run.
type Process struct {
	logger *zap.Logger

	mu       sync.Mutex
	cmd      *exec.Cmd
	stdin    io.WriteCloser
	started  bool
	messages chan string
	done     chan struct{}
	err      error
}

// NewProcess creates an unstarted process
func NewProcess(logger *zap.Logger) *Process {
	return &Process{
		logger:   logger,
		messages: make(chan string, messageBuffer),
		done:     make(chan struct{}),
	}
}

// Start launches the server
func (p *Process) Start(spec LaunchSpec) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return domain.ErrServerRunning
	}

	cmd := exec.Command(spec.Path, spec.Args...) //nolint:gosec // launch command built from the server record
	cmd.Dir = spec.Dir
	if len(spec.Env) > 0 {
		cmd.Env = append(os.Environ(), spec.Env...)
	}
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		if _, lookErr := exec.LookPath(spec.Path); lookErr != nil && strings.Contains(spec.Path, "java") {
			return fmt.Errorf("%w: %s", domain.ErrJavaNotFound, spec.Path)
		}
		return fmt.Errorf("start server: %w", err)
	}
	p.cmd, p.stdin, p.started = cmd, stdin, true
	p.logger.Info("Server started", zap.Int("pid", cmd.Process.Pid), zap.String("command", spec.String()))

	go p.supervise(stdout)
	return nil
}

func (p *Process) supervise(stdout io.Reader) {
	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		select {
		case p.messages <- line:
		default:
			// Slow readers lose lines rather than stalling the server.
		}
	}

	err := p.cmd.Wait()
	p.mu.Lock()
	p.err = err
	p.mu.Unlock()
	p.logger.Info("Server exited", zap.Error(err))
	close(p.messages)
	close(p.done)
}

// Running reports whether the process has started and not yet exited
func (p *Process) Running() bool {
	p.mu.Lock()
	started := p.started
	p.mu.Unlock()
	if !started {
		return false
	}
	select {
	case <-p.done:
		return false
	default:
		return true
	}
}

// PID returns the process id, or 0 before Start
func (p *Process) PID() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

// InputCommand writes a console command to the server
func (p *Process) InputCommand(command string) error {
	if !p.Running() {
		return domain.ErrServerNotRunning
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, err := io.WriteString(p.stdin, command+"\n"); err != nil {
		return fmt.Errorf("send command: %w", err)
	}
	return nil
}

// Messages delivers console output lines. It is closed when the process exits.
func (p *Process) Messages() <-chan string {
	return p.messages
}

// Done is closed when the process exits
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns the exit error once the process is done
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop asks the server to shut down with the "stop" console command and
// kills the process tree if it has not exited within timeout.
func (p *Process) Stop(ctx context.Context, timeout time.Duration) error {
	if !p.Running() {
		return domain.ErrServerNotRunning
	}
	if err := p.InputCommand("stop"); err != nil {
		p.logger.Warn("Failed to send stop command", zap.Error(err))
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-p.done:
		return nil
	case <-timer.C:
		p.logger.Warn("Server did not stop in time, killing", zap.Duration("timeout", timeout))
	case <-ctx.Done():
		p.logger.Warn("Stop interrupted, killing server", zap.Error(ctx.Err()))
	}
	return p.Kill()
}

// Kill terminates the process tree and waits for exit
func (p *Process) Kill() error {
	pid := p.PID()
	if pid == 0 {
		return domain.ErrServerNotRunning
	}
	if err := util.KillTree(pid); err != nil {
		p.logger.Warn("Failed to kill server process tree", zap.Int("pid", pid), zap.Error(err))
	}
	<-p.done
	return nil
}
