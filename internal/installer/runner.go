// Package installer runs external installer processes (BuildTools, Forge,
// NeoForge, Fabric and Quilt installers) and streams their output.
package installer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"craftinstall/internal/domain"
	"craftinstall/internal/util"
)

const defaultWaitDelay = 5 * time.Second

// Command is a prepared installer invocation
type Command struct {
	Path string
	Args []string
	Dir  string
	Env  []string
}

func (c Command) String() string {
	return strings.Join(append([]string{c.Path}, c.Args...), " ")
}

// Sink receives each line the process writes to stdout or stderr.
// *task.Task satisfies it.
type Sink interface {
	ReportMessage(msg string) bool
}

// Runner executes an installer to completion
type Runner interface {
	Run(ctx context.Context, cmd Command, sink Sink) error
}

// ExecRunner runs commands as OS subprocesses
type ExecRunner struct {
	logger    *zap.Logger
	waitDelay time.Duration
}

var _ Runner = (*ExecRunner)(nil)

// NewExecRunner creates a subprocess runner
func NewExecRunner(logger *zap.Logger) *ExecRunner {
	return &ExecRunner{logger: logger, waitDelay: defaultWaitDelay}
}

// Run starts the command and waits for it to exit. Cancelling ctx kills the
// whole process tree. A non-zero exit status is an error.
func (r *ExecRunner) Run(ctx context.Context, c Command, sink Sink) error {
	path, err := exec.LookPath(c.Path)
	if err != nil {
		if isJava(c.Path) {
			return fmt.Errorf("%w: %s", domain.ErrJavaNotFound, c.Path)
		}
		return fmt.Errorf("installer executable %s: %w", c.Path, err)
	}

	cmd := exec.CommandContext(ctx, path, c.Args...) //nolint:gosec // command assembled by the installer
	cmd.Dir = c.Dir
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}
	cmd.Cancel = func() error {
		return util.KillTree(cmd.Process.Pid)
	}
	cmd.WaitDelay = r.waitDelay

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	r.logger.Info("Starting installer", zap.String("command", c.String()), zap.String("dir", c.Dir))
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start installer: %w", err)
	}

	var g errgroup.Group
	g.Go(func() error { return r.pump(stdout, sink) })
	g.Go(func() error { return r.pump(stderr, sink) })
	pumpErr := g.Wait()
	waitErr := cmd.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return fmt.Errorf("installer exited with status %d: %w", exitErr.ExitCode(), waitErr)
		}
		return fmt.Errorf("installer: %w", waitErr)
	}
	if pumpErr != nil {
		r.logger.Debug("Installer output ended early", zap.Error(pumpErr))
	}

	r.logger.Info("Installer finished", zap.String("command", filepath.Base(c.Path)))
	return nil
}

func (r *ExecRunner) pump(rd io.Reader, sink Sink) error {
	sc := bufio.NewScanner(rd)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}
		r.logger.Debug("installer", zap.String("line", line))
		if sink != nil {
			sink.ReportMessage(line)
		}
	}
	if err := sc.Err(); err != nil && !errors.Is(err, os.ErrClosed) {
		return err
	}
	return nil
}

func isJava(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	return base == "java" || base == "java.exe" || base == "javaw.exe"
}
