package software

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"craftinstall/internal/catalog"
	"craftinstall/internal/domain"
	"craftinstall/internal/download"
	"craftinstall/internal/installer"
	"craftinstall/internal/server"
	"craftinstall/internal/task"
)

// forgeInstallerLines is the typical output length of --installServer
const forgeInstallerLines = 400

// Forge installs Forge or NeoForge by running the build's installer jar
type Forge struct {
	base
	catalog      *catalog.MavenBuilds
	artifactBase string
	artifact     string
}

var _ ForgeLike = (*Forge)(nil)

// NewForge creates the Forge family
func NewForge(deps Deps, builds *catalog.MavenBuilds, artifactBase string) *Forge {
	return newForge(domain.FamilyForge, deps, builds, artifactBase)
}

// NewNeoForge creates the NeoForge family
func NewNeoForge(deps Deps, builds *catalog.MavenBuilds, artifactBase string) *Forge {
	return newForge(domain.FamilyNeoForge, deps, builds, artifactBase)
}

func newForge(family domain.Family, deps Deps, builds *catalog.MavenBuilds, artifactBase string) *Forge {
	base := strings.TrimSuffix(artifactBase, "/")
	f := &Forge{
		base:         newBase(family, deps),
		catalog:      builds,
		artifactBase: base,
		artifact:     path.Base(base),
	}
	f.self = f
	return f
}

// Catalog returns the build catalog
func (f *Forge) Catalog() catalog.Catalog { return f.catalog }

// Versions lists Minecraft versions with builds, newest first
func (f *Forge) Versions(ctx context.Context) []string { return f.catalog.Versions(ctx) }

// Builds lists the builds for a Minecraft version, newest first
func (f *Forge) Builds(ctx context.Context, mcVersion string) []domain.BuildEntry {
	return f.catalog.Builds(ctx, mcVersion)
}

// InstallerURL returns the installer jar location of a build
func (f *Forge) InstallerURL(build domain.BuildEntry) string {
	return fmt.Sprintf("%s/%s/%s-%s-installer.jar", f.artifactBase, build.RawTag, f.artifact, build.RawTag)
}

// NewInstallTask downloads the installer (0-50%) and runs it with
// --installServer (50-100%). Without an explicit build the newest is used.
func (f *Forge) NewInstallTask(ctx context.Context, inst *server.Instance, req server.InstallRequest) (*task.Task, error) {
	if err := requireVersion(f.family, f.catalog.Versions(ctx), req.Version); err != nil {
		return nil, err
	}
	build, err := pickBuild(f.catalog.Builds(ctx, req.Version), req.Build)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", f.family, req.Version, err)
	}
	url := f.InstallerURL(build)
	jar := fmt.Sprintf("%s-%s-installer.jar", f.artifact, build.RawTag)

	return f.start(ctx, inst, req, func(t *task.Task) (map[string]any, error) {
		ctx := t.Context()
		target := filepath.Join(inst.Dir(), jar)
		defer f.cleanup(target)

		alg, sum := f.sidecarSHA1(ctx, url)
		t.ChangeStatusPercentage(task.DownloadStatus(url), 0)
		err := f.deps.Downloader.DownloadFile(ctx, download.Request{
			URL:        url,
			Target:     target,
			Hash:       alg,
			Expected:   sum,
			Multiplier: 0.5,
		}, t)
		if err != nil {
			return nil, err
		}

		t.ChangeStatusPercentage(task.ProcessStatus("Running "+jar), 50)
		progress := &installer.LineProgress{Task: t, From: 50, To: 100, Expected: forgeInstallerLines}
		if err := f.deps.Runner.Run(ctx, javaCommand(inst, inst.Dir(), jar, "--installServer"), progress); err != nil {
			return nil, err
		}
		return map[string]any{
			server.KeyVersion:       req.Version,
			server.KeyBuild:         build.BuildID,
			server.KeyLoaderVersion: nil,
		}, nil
	}), nil
}

// cleanup removes the installer jar and the log it leaves behind
func (f *Forge) cleanup(installerJar string) {
	for _, p := range []string{installerJar, installerJar + ".log"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.logger.Debug("Failed to remove installer file", zap.String("path", p), zap.Error(err))
		}
	}
}

// LaunchCommand uses the installer's argument file or the legacy jar
func (f *Forge) LaunchCommand(inst *server.Instance) (server.LaunchSpec, error) {
	return launchForge(inst)
}
