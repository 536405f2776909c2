package software

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"craftinstall/internal/catalog"
	"craftinstall/internal/domain"
	"craftinstall/internal/download"
	"craftinstall/internal/server"
	"craftinstall/internal/task"
)

const buildToolsJar = "BuildTools.jar"

// buildToolsDirs serialises BuildTools runs that share a work directory.
// Spigot and CraftBukkit reuse one checkout, and each run clears the jars
// the previous one left behind.
var buildToolsDirs dirLocks

// BuildTools compiles Spigot or CraftBukkit locally with SpigotMC's BuildTools
type BuildTools struct {
	base
	catalog *catalog.MavenVersions
	url     string
	compile string
}

var _ Context = (*BuildTools)(nil)

// NewSpigot creates the Spigot family
func NewSpigot(deps Deps, versions *catalog.MavenVersions, buildToolsURL string) *BuildTools {
	return newBuildTools(domain.FamilySpigot, deps, versions, buildToolsURL)
}

// NewCraftBukkit creates the CraftBukkit family
func NewCraftBukkit(deps Deps, versions *catalog.MavenVersions, buildToolsURL string) *BuildTools {
	return newBuildTools(domain.FamilyCraftBukkit, deps, versions, buildToolsURL)
}

func newBuildTools(family domain.Family, deps Deps, versions *catalog.MavenVersions, url string) *BuildTools {
	b := &BuildTools{
		base:    newBase(family, deps),
		catalog: versions,
		url:     url,
		compile: string(family),
	}
	b.self = b
	return b
}

// Catalog returns the spigot-api catalog
func (b *BuildTools) Catalog() catalog.Catalog { return b.catalog }

// Versions lists buildable Minecraft versions, newest first
func (b *BuildTools) Versions(ctx context.Context) []string { return b.catalog.Versions(ctx) }

// NewInstallTask downloads BuildTools (0-10%), runs it through its
// Initialize (10-20%), Update (20-50%) and Build (50-100%) phases and moves
// the compiled jar into the server directory.
func (b *BuildTools) NewInstallTask(ctx context.Context, inst *server.Instance, req server.InstallRequest) (*task.Task, error) {
	if err := requireVersion(b.family, b.catalog.Versions(ctx), req.Version); err != nil {
		return nil, err
	}

	return b.start(ctx, inst, req, func(t *task.Task) (map[string]any, error) {
		ctx := t.Context()
		work, err := filepath.Abs(b.cacheDir("buildtools"))
		if err != nil {
			return nil, err
		}
		unlock, err := buildToolsDirs.lock(ctx, work, func() {
			t.ReportMessage("Waiting for another BuildTools run to finish")
		})
		if err != nil {
			return nil, err
		}
		defer unlock()

		t.ChangeStatusPercentage(task.DownloadStatus(b.url), 0)
		err = b.deps.Downloader.DownloadFile(ctx, download.Request{
			URL:        b.url,
			Target:     filepath.Join(work, buildToolsJar),
			Multiplier: 0.1,
		}, t)
		if err != nil {
			return nil, err
		}
		if err := b.removeOutputs(work); err != nil {
			return nil, err
		}

		t.ChangeStatusPercentage(task.ToolStatus(task.ToolInitialize), 10)
		cmd := javaCommand(inst, work, buildToolsJar, "--rev", req.Version, "--compile", b.compile)
		if err := b.deps.Runner.Run(ctx, cmd, newToolProgress(t)); err != nil {
			return nil, err
		}

		out, err := findOutput(work, b.compile, req.Version)
		if err != nil {
			return nil, err
		}
		if err := moveFile(filepath.Join(work, out), filepath.Join(inst.Dir(), serverJar)); err != nil {
			return nil, fmt.Errorf("move %s: %w", out, err)
		}
		return map[string]any{
			server.KeyVersion:       req.Version,
			server.KeyBuild:         nil,
			server.KeyLoaderVersion: nil,
		}, nil
	}), nil
}

// LaunchCommand runs server.jar
func (b *BuildTools) LaunchCommand(inst *server.Instance) (server.LaunchSpec, error) {
	return launchJar(inst, serverJar, true)
}

// removeOutputs deletes jars left by earlier runs so findOutput cannot pick
// up a stale build.
func (b *BuildTools) removeOutputs(work string) error {
	stale, err := doublestar.Glob(os.DirFS(work), "{spigot,craftbukkit}-*.jar")
	if err != nil {
		return err
	}
	for _, name := range stale {
		if err := os.Remove(filepath.Join(work, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("remove stale %s: %w", name, err)
		}
		b.logger.Debug("Removed stale BuildTools output", zap.String("file", name))
	}
	return nil
}

// findOutput locates <compile>-<version>*.jar in the BuildTools directory
func findOutput(work, compile, version string) (string, error) {
	matches, err := doublestar.Glob(os.DirFS(work), fmt.Sprintf("%s-%s*.jar", compile, version))
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fmt.Errorf("BuildTools produced no %s %s jar: %w", compile, version, domain.ErrServerJarNotFound)
	}
	slices.Sort(matches)
	return matches[0], nil
}

// dirLocks hands out one context-aware lock per directory
type dirLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

// lock blocks until dir is free or ctx is done. wait is called once when
// another holder has to be waited for.
func (d *dirLocks) lock(ctx context.Context, dir string, wait func()) (func(), error) {
	d.mu.Lock()
	if d.locks == nil {
		d.locks = make(map[string]chan struct{})
	}
	ch, ok := d.locks[dir]
	if !ok {
		ch = make(chan struct{}, 1)
		d.locks[dir] = ch
	}
	d.mu.Unlock()

	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	default:
	}
	if wait != nil {
		wait()
	}
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// moveFile renames src over dst, copying when they are on different devices
func moveFile(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0o750); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src) //nolint:gosec // BuildTools output
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.Create(tmp) //nolint:gosec // server directory
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return os.Remove(src)
}

type toolPhase struct {
	from, to float64
	lines    int
}

var toolPhases = map[task.ToolState]toolPhase{
	task.ToolInitialize: {from: 10, to: 20, lines: 10},
	task.ToolUpdate:     {from: 20, to: 50, lines: 60},
	task.ToolBuild:      {from: 50, to: 100, lines: 2000},
}

// toolProgress turns BuildTools output into phase changes and progress
type toolProgress struct {
	t *task.Task

	mu    sync.Mutex
	state task.ToolState
	lines int
}

func newToolProgress(t *task.Task) *toolProgress {
	return &toolProgress{t: t, state: task.ToolInitialize}
}

func (p *toolProgress) ReportMessage(line string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if next, ok := detectToolState(line); ok && next > p.state {
		p.state, p.lines = next, 0
		p.t.ChangeStatusPercentage(task.ToolStatus(next), toolPhases[next].from)
	}
	p.lines++
	phase := toolPhases[p.state]
	frac := min(float64(p.lines)/float64(phase.lines), 0.99)
	p.t.ChangePercentage(phase.from + (phase.to-phase.from)*frac)
	return p.t.ReportMessage(line)
}

// detectToolState maps a BuildTools output line to the phase it starts
func detectToolState(line string) (task.ToolState, bool) {
	l := strings.ToLower(line)
	switch {
	case strings.Contains(l, "compiling "),
		strings.Contains(l, "applying craftbukkit patches"),
		strings.Contains(l, "executing: ") && strings.Contains(l, "mvn"):
		return task.ToolBuild, true
	case strings.Contains(l, "starting clone of"),
		strings.Contains(l, "pulling updates for"),
		strings.Contains(l, "resetting "):
		return task.ToolUpdate, true
	}
	return task.ToolInitialize, false
}
