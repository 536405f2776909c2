// Package software binds each server family's version catalog to its install
// pipeline and launch command.
package software

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"time"

	"go.uber.org/zap"

	"craftinstall/internal/catalog"
	"craftinstall/internal/config"
	"craftinstall/internal/domain"
	"craftinstall/internal/download"
	"craftinstall/internal/installer"
	"craftinstall/internal/server"
	"craftinstall/internal/task"
	"craftinstall/internal/util"
)

// Context is the uniform facade of one software family
type Context interface {
	server.Installer
	server.Launcher

	Family() domain.Family
	Catalog() catalog.Catalog
	Versions(ctx context.Context) []string
	CreateServerInstance(dir string) (*server.Instance, error)
}

// BuildLike is a family publishing several builds per version
type BuildLike interface {
	Context
	Builds(ctx context.Context, version string) []domain.BuildEntry
}

// ForgeLike is a family installed by running a per-build installer jar
type ForgeLike interface {
	BuildLike
	InstallerURL(build domain.BuildEntry) string
}

// FabricLike is a family whose mod loader is versioned independently
type FabricLike interface {
	Context
	LoaderVersions(ctx context.Context) []string
}

// Deps are the shared collaborators of every family
type Deps struct {
	Config     *config.Config
	Fetcher    catalog.Fetcher
	Downloader *download.Downloader
	Runner     installer.Runner
	Logger     *zap.Logger
}

// NewDeps wires the default collaborators around one HTTP client
func NewDeps(cfg *config.Config, client *util.HTTPClient, logger *zap.Logger) Deps {
	return Deps{
		Config:     cfg,
		Fetcher:    client,
		Downloader: download.New(client, logger),
		Runner:     installer.NewExecRunner(logger),
		Logger:     logger,
	}
}

// installFunc performs an install and returns the record fields to commit
type installFunc func(t *task.Task) (map[string]any, error)

// base carries what every family context shares
type base struct {
	family domain.Family
	deps   Deps
	logger *zap.Logger
	self   Context
}

func newBase(family domain.Family, deps Deps) base {
	return base{
		family: family,
		deps:   deps,
		logger: deps.Logger.With(zap.String("family", string(family))),
	}
}

// Family returns the family served
func (b *base) Family() domain.Family { return b.family }

// CreateServerInstance opens or creates a server of this family in dir
func (b *base) CreateServerInstance(dir string) (*server.Instance, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	rec, err := server.OpenRecord(abs)
	if err != nil {
		return nil, err
	}
	switch existing := rec.GetString(server.KeySoftware); existing {
	case "":
		if err := rec.Set(server.KeySoftware, string(b.family)); err != nil {
			return nil, err
		}
	case string(b.family):
	default:
		return nil, fmt.Errorf("%s already holds a %s server: %w", abs, existing, domain.ErrUnsupportedFamily)
	}

	java := config.JavaConfig{}
	stopTimeout := 0
	if b.deps.Config != nil {
		java = b.deps.Config.Java
		stopTimeout = b.deps.Config.Install.StopTimeout
	}
	return server.NewInstance(abs, rec, server.Options{
		Family:      b.family,
		Installer:   b.self,
		Launcher:    b.self,
		Java:        java,
		StopTimeout: seconds(stopTimeout),
	}, b.deps.Logger), nil
}

// start creates the task and runs install in the background. Record fields
// are committed only when the task finishes.
func (b *base) start(ctx context.Context, inst *server.Instance, req server.InstallRequest, install installFunc) *task.Task {
	var opts []task.Option
	if req.Observer != nil {
		opts = append(opts, task.WithObserver(req.Observer))
	}
	if req.Validate != nil {
		opts = append(opts, task.WithValidator(req.Validate))
	}
	t := task.New(ctx, inst.Dir(), req.Version, opts...)
	logger := b.logger.With(zap.String("task", t.ID.String()), zap.String("version", req.Version))
	logger.Info("Install started", zap.String("server", inst.Dir()))

	go func() {
		fields, err := install(t)
		if err != nil {
			if t.Fail(err) {
				logger.Error("Install failed", zap.Error(t.Err()))
			}
			return
		}
		if fields == nil {
			fields = make(map[string]any)
		}
		fields[server.KeySoftware] = string(b.family)
		if t.Finish(func() error { return inst.Record().Update(fields) }) {
			logger.Info("Install finished")
		} else {
			logger.Error("Install failed", zap.Error(t.Err()))
		}
	}()
	return t
}

// requireVersion checks version against a catalog listing
func requireVersion(family domain.Family, versions []string, version string) error {
	if len(versions) == 0 {
		return fmt.Errorf("%s: %w", family, domain.ErrCatalogUnavailable)
	}
	if !slices.Contains(versions, version) {
		return fmt.Errorf("%s %s: %w", family, version, domain.ErrVersionNotFound)
	}
	return nil
}

// pickBuild returns the requested build, or the newest when build is empty
func pickBuild(builds []domain.BuildEntry, build string) (domain.BuildEntry, error) {
	if len(builds) == 0 {
		return domain.BuildEntry{}, domain.ErrBuildNotFound
	}
	if build == "" {
		return builds[0], nil
	}
	for _, b := range builds {
		if b.BuildID == build || b.RawTag == build {
			return b, nil
		}
	}
	return domain.BuildEntry{}, fmt.Errorf("build %s: %w", build, domain.ErrBuildNotFound)
}

// sidecarSHA1 reads a Maven .sha1 file. A missing sidecar disables
// verification rather than failing the install.
func (b *base) sidecarSHA1(ctx context.Context, artifactURL string) (util.HashAlgorithm, []byte) {
	text, err := b.deps.Fetcher.GetBytes(ctx, artifactURL+".sha1")
	if err != nil {
		b.logger.Debug("No checksum sidecar", zap.String("url", artifactURL), zap.Error(err))
		return util.HashNone, nil
	}
	sum, err := util.HexToBytes(string(text))
	if err != nil {
		b.logger.Warn("Ignoring malformed checksum sidecar", zap.String("url", artifactURL), zap.Error(err))
		return util.HashNone, nil
	}
	return util.HashSHA1, sum
}

// javaCommand builds "java -jar <jar> <args>" for an installer run in dir
func javaCommand(inst *server.Instance, dir, jar string, args ...string) installer.Command {
	return installer.Command{
		Path: inst.JavaPath(),
		Args: append([]string{"-jar", jar}, args...),
		Dir:  dir,
	}
}

func (b *base) cacheDir(parts ...string) string {
	root := filepath.Join(".", ".craftinstall-cache")
	if b.deps.Config != nil && b.deps.Config.Paths.Cache != "" {
		root = b.deps.Config.Paths.Cache
	}
	return filepath.Join(append([]string{root}, parts...)...)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}
