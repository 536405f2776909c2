package software

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"

	"craftinstall/internal/catalog"
	"craftinstall/internal/domain"
	"craftinstall/internal/download"
	"craftinstall/internal/installer"
	"craftinstall/internal/server"
	"craftinstall/internal/task"
)

const loaderInstallerLines = 40

// Fabric installs Fabric or Quilt through their installer jars
type Fabric struct {
	base
	catalog    *catalog.FabricLike
	launchJar  string
	installCmd func(inst *server.Instance, version, loader string) []string
}

var _ FabricLike = (*Fabric)(nil)

// NewFabric creates the Fabric family
func NewFabric(deps Deps, loaders *catalog.FabricLike) *Fabric {
	f := &Fabric{
		base:      newBase(domain.FamilyFabric, deps),
		catalog:   loaders,
		launchJar: "fabric-server-launch.jar",
		installCmd: func(inst *server.Instance, version, loader string) []string {
			return []string{"server", "-dir", inst.Dir(), "-mcversion", version, "-loader", loader, "-downloadMinecraft"}
		},
	}
	f.self = f
	return f
}

// NewQuilt creates the Quilt family
func NewQuilt(deps Deps, loaders *catalog.FabricLike) *Fabric {
	f := &Fabric{
		base:      newBase(domain.FamilyQuilt, deps),
		catalog:   loaders,
		launchJar: "quilt-server-launch.jar",
		installCmd: func(inst *server.Instance, version, loader string) []string {
			return []string{"install", "server", version, loader, "--install-dir=" + inst.Dir(), "--download-server"}
		},
	}
	f.self = f
	return f
}

// Catalog returns the loader catalog
func (f *Fabric) Catalog() catalog.Catalog { return f.catalog }

// Versions lists Minecraft releases the loader supports, newest first
func (f *Fabric) Versions(ctx context.Context) []string { return f.catalog.Versions(ctx) }

// LoaderVersions lists loader versions, newest first
func (f *Fabric) LoaderVersions(ctx context.Context) []string { return f.catalog.LoaderVersions(ctx) }

// NewInstallTask downloads the installer (0-50%) and runs it (50-100%).
// Without an explicit loader the newest stable loader is used.
func (f *Fabric) NewInstallTask(ctx context.Context, inst *server.Instance, req server.InstallRequest) (*task.Task, error) {
	if err := requireVersion(f.family, f.catalog.Versions(ctx), req.Version); err != nil {
		return nil, err
	}
	loader := req.LoaderVersion
	if loader == "" {
		latest, ok := f.catalog.LatestLoader(ctx)
		if !ok {
			return nil, fmt.Errorf("%s loaders: %w", f.family, domain.ErrCatalogUnavailable)
		}
		loader = latest
	} else if !slices.Contains(f.catalog.LoaderVersions(ctx), loader) {
		return nil, fmt.Errorf("%s loader %s: %w", f.family, loader, domain.ErrVersionNotFound)
	}
	ref, err := f.catalog.Installer(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s installer: %w", f.family, err)
	}

	return f.start(ctx, inst, req, func(t *task.Task) (map[string]any, error) {
		ctx := t.Context()
		jar, err := filepath.Abs(filepath.Join(f.cacheDir(string(f.family)), fmt.Sprintf("%s-installer-%s.jar", f.family, ref.Version)))
		if err != nil {
			return nil, err
		}

		t.ChangeStatusPercentage(task.DownloadStatus(ref.URL), 0)
		alg, sum := f.sidecarSHA1(ctx, ref.URL)
		err = f.deps.Downloader.DownloadFile(ctx, download.Request{
			URL:        ref.URL,
			Target:     jar,
			Hash:       alg,
			Expected:   sum,
			Multiplier: 0.5,
		}, t)
		if err != nil {
			return nil, err
		}

		t.ChangeStatusPercentage(task.ProcessStatus(fmt.Sprintf("Installing %s loader %s", f.family, loader)), 50)
		progress := &installer.LineProgress{Task: t, From: 50, To: 100, Expected: loaderInstallerLines}
		cmd := javaCommand(inst, inst.Dir(), jar, f.installCmd(inst, req.Version, loader)...)
		if err := f.deps.Runner.Run(ctx, cmd, progress); err != nil {
			return nil, err
		}
		return map[string]any{
			server.KeyVersion:       req.Version,
			server.KeyLoaderVersion: loader,
			server.KeyBuild:         nil,
		}, nil
	}), nil
}

// LaunchCommand runs the loader's server launch jar
func (f *Fabric) LaunchCommand(inst *server.Instance) (server.LaunchSpec, error) {
	return launchJar(inst, f.launchJar, true)
}
