package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"craftinstall/internal/config"
	"craftinstall/internal/domain"
	"craftinstall/internal/task"
)

// InstallRequest selects what to install. Build and LoaderVersion are
// optional; the family picks its newest when empty.
type InstallRequest struct {
	Version       string
	Build         string
	LoaderVersion string
	Validate      task.ValidateFunc
	Observer      task.Observer
}

// Installer creates and starts install tasks for an instance
type Installer interface {
	NewInstallTask(ctx context.Context, inst *Instance, req InstallRequest) (*task.Task, error)
}

// Launcher produces the command that runs an installed instance
type Launcher interface {
	LaunchCommand(inst *Instance) (LaunchSpec, error)
}

// Options configures an Instance
type Options struct {
	Family      domain.Family
	Installer   Installer
	Launcher    Launcher
	Java        config.JavaConfig
	StopTimeout time.Duration
}

// Instance is one server directory with its install and launch strategies
type Instance struct {
	dir    string
	record *Record
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	install *task.Task
	process *Process
}

// NewInstance creates an instance over an opened record
func NewInstance(dir string, record *Record, opts Options, logger *zap.Logger) *Instance {
	if opts.StopTimeout <= 0 {
		opts.StopTimeout = time.Minute
	}
	return &Instance{
		dir:    dir,
		record: record,
		opts:   opts,
		logger: logger.With(zap.String("server", dir), zap.String("family", string(opts.Family))),
	}
}

// Dir returns the server directory
func (i *Instance) Dir() string { return i.dir }

// Record returns the persisted property store
func (i *Instance) Record() *Record { return i.record }

// Family returns the software family
func (i *Instance) Family() domain.Family { return i.opts.Family }

// Logger returns the instance-scoped logger
func (i *Instance) Logger() *zap.Logger { return i.logger }

// Version returns the installed version, or "" when nothing is installed
func (i *Instance) Version() string {
	return i.record.GetString(KeyVersion)
}

// JavaPath returns the record override or the configured default
func (i *Instance) JavaPath() string {
	if p := i.record.GetString(KeyJavaPath); p != "" {
		return p
	}
	if i.opts.Java.Path != "" {
		return i.opts.Java.Path
	}
	return "java"
}

// JavaPreArgs returns JVM arguments placed before -jar
func (i *Instance) JavaPreArgs() []string {
	if _, ok := i.record.Get(KeyJavaPreArgs); ok {
		return i.record.GetStrings(KeyJavaPreArgs)
	}
	return append([]string(nil), i.opts.Java.PreArgs...)
}

// JavaPostArgs returns server arguments placed after nogui
func (i *Instance) JavaPostArgs() []string {
	if _, ok := i.record.Get(KeyJavaPostArgs); ok {
		return i.record.GetStrings(KeyJavaPostArgs)
	}
	return append([]string(nil), i.opts.Java.PostArgs...)
}

// Install starts an install. At most one install runs per instance, and
// never while the server is running.
func (i *Instance) Install(ctx context.Context, req InstallRequest) (*task.Task, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.installingLocked() {
		return nil, domain.ErrInstallInProgress
	}
	if i.process != nil && i.process.Running() {
		return nil, domain.ErrServerRunning
	}

	t, err := i.opts.Installer.NewInstallTask(ctx, i, req)
	if err != nil {
		return nil, err
	}
	i.install = t
	go func() {
		<-t.Done()
		i.mu.Lock()
		if i.install == t {
			i.install = nil
		}
		i.mu.Unlock()
	}()
	return t, nil
}

// Installing reports whether an install task is in flight
func (i *Instance) Installing() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.installingLocked()
}

func (i *Instance) installingLocked() bool {
	if i.install == nil {
		return false
	}
	select {
	case <-i.install.Done():
		return false
	default:
		return true
	}
}

// Start launches the installed server
func (i *Instance) Start() (*Process, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.installingLocked() {
		return nil, domain.ErrInstallInProgress
	}
	if i.process != nil && i.process.Running() {
		return nil, domain.ErrServerRunning
	}
	if i.Version() == "" {
		return nil, domain.ErrNotInstalled
	}

	spec, err := i.opts.Launcher.LaunchCommand(i)
	if err != nil {
		return nil, fmt.Errorf("prepare launch: %w", err)
	}
	p := NewProcess(i.logger)
	if err := p.Start(spec); err != nil {
		return nil, err
	}
	i.process = p
	return p, nil
}

// Stop shuts the running server down gracefully
func (i *Instance) Stop(ctx context.Context) error {
	i.mu.Lock()
	p := i.process
	i.mu.Unlock()
	if p == nil {
		return domain.ErrServerNotRunning
	}
	return p.Stop(ctx, i.opts.StopTimeout)
}

// Process returns the current or last process, or nil
func (i *Instance) Process() *Process {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.process
}
